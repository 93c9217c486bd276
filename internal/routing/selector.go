// Package routing holds the pure decision logic used by the ticket workflows:
// agent selection and ticket id generation.
package routing

import (
	"sort"

	"github.com/spec-kit/helpdesk-router/internal/domain"
)

// SelectAgent picks an agent for a ticket in the given category from a
// snapshot of agents. It returns nil only when no agent is active and under
// capacity.
//
// Channel affinity is a soft preference: agents servicing channelAddress are
// preferred when any exist. Among the remaining candidates, ordered by load,
// the first expert in category wins over a lower-loaded non-expert.
func SelectAgent(category, channelAddress string, agents []domain.Agent) *domain.Agent {
	eligible := make([]domain.Agent, 0, len(agents))
	for i := range agents {
		if agents[i].Available() {
			eligible = append(eligible, agents[i])
		}
	}

	if channelAddress != "" {
		onChannel := make([]domain.Agent, 0, len(eligible))
		for i := range eligible {
			if eligible[i].Services(channelAddress) {
				onChannel = append(onChannel, eligible[i])
			}
		}
		if len(onChannel) > 0 {
			eligible = onChannel
		}
	}

	if len(eligible) == 0 {
		return firstAvailable(agents)
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].CurrentLoad < eligible[j].CurrentLoad
	})

	for i := range eligible {
		if eligible[i].HasExpertise(category) {
			chosen := eligible[i]
			return &chosen
		}
	}
	chosen := eligible[0]
	return &chosen
}

func firstAvailable(agents []domain.Agent) *domain.Agent {
	for i := range agents {
		if agents[i].Available() {
			chosen := agents[i]
			return &chosen
		}
	}
	return nil
}
