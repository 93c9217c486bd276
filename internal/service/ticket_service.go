package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-router/internal/config"
	"github.com/spec-kit/helpdesk-router/internal/domain"
	"github.com/spec-kit/helpdesk-router/internal/notifier"
	"github.com/spec-kit/helpdesk-router/internal/observability"
	"github.com/spec-kit/helpdesk-router/internal/repository"
	"github.com/spec-kit/helpdesk-router/internal/routing"
	apperrors "github.com/spec-kit/helpdesk-router/pkg/util/errorutil"
)

// CustomerNotifier delivers a message to the customer behind a ticket.
type CustomerNotifier interface {
	Notify(ctx context.Context, ticket *domain.Ticket, body string) (domain.Delivery, error)
}

// Source identifies who initiated a ticket.
type Source string

const (
	SourceSystem   Source = "system"
	SourceManual   Source = "manual"
	SourceWhatsApp Source = "whatsapp"
)

func (s Source) actor() string {
	switch s {
	case SourceManual:
		return domain.ActorManualEntry
	case SourceWhatsApp:
		return domain.ActorWhatsAppBot
	}
	return domain.ActorSystem
}

func (s Source) tag() string {
	switch s {
	case SourceManual:
		return "manual-entry"
	case SourceWhatsApp:
		return "whatsapp-auto"
	}
	return "auto-created"
}

// TicketService is the routing engine: it creates tickets, assigns and
// reassigns them, and moves them through their statuses. Every step commits
// on its own; a failure after the ticket write leaves the ticket in place.
type TicketService struct {
	store    *repository.Store
	notifier CustomerNotifier
	cfg      config.RoutingConfig
	logger   *zap.Logger
	metrics  *observability.Metrics
	now      func() time.Time
	sleep    func(context.Context, time.Duration) error
}

// TicketDependencies bundles collaborators for the ticket service. A nil
// Notifier disables customer messages.
type TicketDependencies struct {
	Store    *repository.Store
	Notifier CustomerNotifier
	Config   config.RoutingConfig
	Logger   *zap.Logger
	Metrics  *observability.Metrics
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := deps.Config
	if cfg.DefaultCategory == "" {
		cfg.DefaultCategory = "general"
	}
	if cfg.IDRetryAttempts <= 0 {
		cfg.IDRetryAttempts = 5
	}
	return &TicketService{
		store:    deps.Store,
		notifier: deps.Notifier,
		cfg:      cfg,
		logger:   logger,
		metrics:  deps.Metrics,
		now:      func() time.Time { return time.Now().UTC() },
		sleep:    sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CreateTicketInput carries the fields accepted at ticket creation.
type CreateTicketInput struct {
	CustomerName   string
	CustomerPhone  string
	CustomerEmail  *string
	Subject        string
	Message        string
	Priority       domain.TicketPriority
	Category       string
	Channel        domain.TicketChannel
	WhatsAppNumber *string
	AgentID        *string
	Tags           []string
	Source         Source
}

// TicketResult is returned by every mutating workflow. Warnings hold
// non-fatal notification failures.
type TicketResult struct {
	Ticket   *domain.Ticket
	Agent    *domain.Agent
	History  *domain.HistoryEntry
	Warnings []string
}

func (r *TicketResult) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// CreateTicket validates input, assigns an agent and persists the ticket.
func (s *TicketService) CreateTicket(ctx context.Context, input CreateTicketInput) (*TicketResult, error) {
	if input.Source == "" {
		input.Source = SourceSystem
	}
	ticket, err := s.buildTicket(input)
	if err != nil {
		s.metrics.RecordWorkflow("create", "invalid")
		return nil, err
	}

	ticket.Category, err = s.resolveCategory(ctx, input.Category, ticket.WhatsAppNumber)
	if err != nil {
		return nil, err
	}

	channelAddress := ""
	if ticket.WhatsAppNumber != nil {
		channelAddress = *ticket.WhatsAppNumber
	}
	agent, err := s.resolveAgent(ctx, input.AgentID, ticket.Category, channelAddress)
	if err != nil {
		return nil, err
	}
	if agent != nil {
		ticket.AssignedTo = &agent.ID
	}

	if err := s.insertTicket(ctx, ticket); err != nil {
		s.metrics.RecordWorkflow("create", "failed")
		return nil, err
	}

	result := &TicketResult{Ticket: ticket}
	note := "Ticket created; no agent available"
	if agent != nil {
		note = "Ticket created and assigned to " + agent.Name
	}
	entry := &domain.HistoryEntry{
		TicketID:  ticket.ID,
		Status:    domain.TicketStatusOpen,
		UpdatedBy: input.Source.actor(),
		Note:      note,
	}
	if err := s.store.History.Append(ctx, entry); err != nil {
		return nil, storeError("append history", err)
	}
	result.History = entry

	agentName := ""
	if agent != nil {
		updated, err := s.store.Agents.AdjustLoad(ctx, agent.ID, 1)
		if err != nil {
			return nil, storeError("increment agent load", err)
		}
		result.Agent = updated
		agentName = updated.Name
		s.metrics.RecordWorkflow("create", "assigned")
	} else {
		s.metrics.RecordWorkflow("create", "unassigned")
	}

	if ticket.Channel.Notifiable() {
		s.notify(ctx, result, notifier.Acknowledgment(ticket, agentName))
	}

	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("category", ticket.Category),
		zap.String("assigned_to", agentName),
		zap.String("source", string(input.Source)))
	return result, nil
}

func (s *TicketService) buildTicket(input CreateTicketInput) (*domain.Ticket, error) {
	ticket := &domain.Ticket{
		CustomerName:   strings.TrimSpace(input.CustomerName),
		CustomerPhone:  strings.TrimSpace(input.CustomerPhone),
		CustomerEmail:  trimmedOrNil(input.CustomerEmail),
		Subject:        strings.TrimSpace(input.Subject),
		Message:        strings.TrimSpace(input.Message),
		Status:         domain.TicketStatusOpen,
		Priority:       input.Priority,
		Channel:        input.Channel,
		WhatsAppNumber: trimmedOrNil(input.WhatsAppNumber),
	}

	var missing []string
	if ticket.CustomerName == "" {
		missing = append(missing, "customer_name")
	}
	if ticket.Subject == "" {
		missing = append(missing, "subject")
	}
	if ticket.Message == "" {
		missing = append(missing, "message")
	}
	if len(missing) > 0 {
		return nil, apperrors.NewMissingFields(missing...)
	}

	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}
	if !ticket.Priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": ticket.Priority})
	}
	if ticket.Channel == "" {
		ticket.Channel = domain.ChannelWeb
		if ticket.WhatsAppNumber != nil {
			ticket.Channel = domain.ChannelWhatsApp
		}
	}
	if !ticket.Channel.Valid() {
		return nil, apperrors.NewValidationError("invalid channel", map[string]any{"channel": ticket.Channel})
	}

	ticket.Tags = mergeTags(input.Tags, input.Source.tag())
	return ticket, nil
}

func (s *TicketService) resolveCategory(ctx context.Context, explicit string, number *string) (string, error) {
	if category := strings.TrimSpace(explicit); category != "" {
		return category, nil
	}
	if number != nil {
		channel, err := s.store.Channels.GetByNumber(ctx, *number)
		switch {
		case err == nil:
			if category, ok := channel.DefaultCategory(); ok {
				return category, nil
			}
		case !errors.Is(err, repository.ErrNotFound):
			return "", storeError("get channel", err)
		}
	}
	return s.cfg.DefaultCategory, nil
}

// resolveAgent honours an explicit agent without eligibility checks and
// otherwise runs the selector over a fresh snapshot of agents.
func (s *TicketService) resolveAgent(ctx context.Context, agentID *string, category, channelAddress string) (*domain.Agent, error) {
	if agentID != nil && strings.TrimSpace(*agentID) != "" {
		id := strings.TrimSpace(*agentID)
		agent, err := s.store.Agents.GetByID(ctx, id)
		if err != nil {
			return nil, lookupError("agent", "agent_id", id, err)
		}
		return agent, nil
	}

	agents, err := s.store.Agents.List(ctx, repository.AgentFilter{})
	if err != nil {
		return nil, storeError("list agents", err)
	}
	return routing.SelectAgent(category, channelAddress, agents), nil
}

// insertTicket assigns the next sequential id and inserts the ticket,
// retrying with exponential backoff when another writer takes the id.
// Once retries are exhausted a clock-derived id is used instead.
func (s *TicketService) insertTicket(ctx context.Context, ticket *domain.Ticket) error {
	delay := s.cfg.IDRetryBaseDelay
	for attempt := 1; attempt <= s.cfg.IDRetryAttempts; attempt++ {
		seq, err := s.store.Tickets.MaxSequence(ctx)
		if err != nil {
			return storeError("read ticket sequence", err)
		}
		candidate := routing.FormatTicketID(seq + 1)

		taken, err := s.store.Tickets.Exists(ctx, candidate)
		if err != nil {
			return storeError("check ticket id", err)
		}
		if !taken {
			ticket.ID = candidate
			err = s.store.Tickets.Create(ctx, ticket)
			if err == nil {
				return nil
			}
			if !errors.Is(err, repository.ErrDuplicate) {
				return storeError("create ticket", err)
			}
		}

		s.logger.Debug("ticket id collision",
			zap.String("candidate", candidate),
			zap.Int("attempt", attempt))
		if attempt < s.cfg.IDRetryAttempts {
			if err := s.sleep(ctx, delay); err != nil {
				return err
			}
			delay *= 2
		}
	}

	ticket.ID = routing.FallbackTicketID(s.now())
	s.logger.Warn("ticket id retries exhausted; using fallback id", zap.String("ticket_id", ticket.ID))
	if err := s.store.Tickets.Create(ctx, ticket); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return apperrors.NewConflict("ticket id collision", map[string]any{"ticket_id": ticket.ID})
		}
		return storeError("create ticket", err)
	}
	return nil
}

// UpdateStatus moves a ticket to status. Any status may follow any other.
func (s *TicketService) UpdateStatus(ctx context.Context, ticketID string, status domain.TicketStatus, actor, note string) (*TicketResult, error) {
	if !status.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": status})
	}
	actor = strings.TrimSpace(actor)
	if actor == "" {
		actor = domain.ActorSystem
	}
	note = strings.TrimSpace(note)

	ticket, err := s.store.Tickets.UpdateStatus(ctx, ticketID, status)
	if err != nil {
		return nil, lookupError("ticket", "ticket_id", ticketID, err)
	}

	historyNote := note
	if historyNote == "" {
		historyNote = "Status updated to " + string(status)
	}
	entry := &domain.HistoryEntry{
		TicketID:  ticket.ID,
		Status:    status,
		UpdatedBy: actor,
		Note:      historyNote,
	}
	if err := s.store.History.Append(ctx, entry); err != nil {
		return nil, storeError("append history", err)
	}

	result := &TicketResult{Ticket: ticket, History: entry}
	if ticket.Channel.Notifiable() && status != domain.TicketStatusOpen {
		if body, ok := notifier.StatusMessage(ticket, status, note); ok {
			s.notify(ctx, result, body)
		}
	}

	s.metrics.RecordWorkflow("status", string(status))
	s.logger.Info("ticket status updated",
		zap.String("ticket_id", ticket.ID),
		zap.String("to", string(status)),
		zap.String("actor", actor))
	return result, nil
}

// Reassign moves a ticket to another agent and rebalances both loads.
// The new agent is not checked for availability. Only the assignee is
// written, so a status change racing with it is kept.
func (s *TicketService) Reassign(ctx context.Context, ticketID, agentID string) (*TicketResult, error) {
	if _, err := s.store.Tickets.GetByID(ctx, ticketID); err != nil {
		return nil, lookupError("ticket", "ticket_id", ticketID, err)
	}
	agent, err := s.store.Agents.GetByID(ctx, agentID)
	if err != nil {
		return nil, lookupError("agent", "agent_id", agentID, err)
	}

	ticket, replaced, err := s.store.Tickets.Assign(ctx, ticketID, agent.ID)
	if err != nil {
		return nil, lookupError("ticket", "ticket_id", ticketID, err)
	}
	var previous string
	if replaced != nil {
		previous = *replaced
	}

	entry := &domain.HistoryEntry{
		TicketID:  ticket.ID,
		Status:    ticket.Status,
		UpdatedBy: domain.ActorSystem,
		Note:      "Reassigned to " + agent.Name,
	}
	if err := s.store.History.Append(ctx, entry); err != nil {
		return nil, storeError("append history", err)
	}

	if previous != "" {
		if _, err := s.store.Agents.AdjustLoad(ctx, previous, -1); err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				return nil, storeError("decrement agent load", err)
			}
			s.logger.Warn("previous agent missing during reassignment",
				zap.String("ticket_id", ticket.ID),
				zap.String("agent_id", previous))
		}
	}
	updated, err := s.store.Agents.AdjustLoad(ctx, agent.ID, 1)
	if err != nil {
		return nil, storeError("increment agent load", err)
	}

	s.metrics.RecordWorkflow("reassign", "ok")
	s.logger.Info("ticket reassigned",
		zap.String("ticket_id", ticket.ID),
		zap.String("from", previous),
		zap.String("to", agent.ID))
	return &TicketResult{Ticket: ticket, Agent: updated, History: entry}, nil
}

// notify sends body to the ticket's customer. Failures become warnings.
func (s *TicketService) notify(ctx context.Context, result *TicketResult, body string) {
	if s.notifier == nil {
		return
	}
	ticket := result.Ticket
	if ticket.Destination() == "" {
		result.warn("notification skipped: ticket %s has no customer phone", ticket.ID)
		return
	}
	delivery, err := s.notifier.Notify(ctx, ticket, body)
	if err != nil {
		s.logger.Warn("notification failed",
			zap.String("ticket_id", ticket.ID),
			zap.Error(err))
		result.warn("notification failed: %v", err)
		return
	}
	if !delivery.Delivered() {
		result.warn("notification not delivered: %s", delivery.Error)
	}
}

// TicketDetail is a ticket with its audit trail and outbound messages.
type TicketDetail struct {
	Ticket   *domain.Ticket
	History  []domain.HistoryEntry
	Messages []domain.OutboundMessage
}

// GetTicket returns a ticket with its history.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*TicketDetail, error) {
	ticket, err := s.store.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, lookupError("ticket", "ticket_id", ticketID, err)
	}
	history, err := s.store.History.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, storeError("list history", err)
	}
	messages, err := s.store.Messages.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, storeError("list messages", err)
	}
	return &TicketDetail{Ticket: ticket, History: history, Messages: messages}, nil
}

// ListTickets returns tickets matching filter, newest first.
func (s *TicketService) ListTickets(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	for _, status := range filter.Statuses {
		if !status.Valid() {
			return nil, apperrors.NewValidationError("invalid status filter", map[string]any{"status": status})
		}
	}
	tickets, err := s.store.Tickets.List(ctx, filter)
	if err != nil {
		return nil, storeError("list tickets", err)
	}
	return tickets, nil
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func mergeTags(tags []string, provenance string) []string {
	out := make([]string, 0, len(tags)+1)
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag != "" && !slices.Contains(out, tag) {
			out = append(out, tag)
		}
	}
	if !slices.Contains(out, provenance) {
		out = append(out, provenance)
	}
	return out
}
