package notifier

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-router/internal/domain"
	"github.com/spec-kit/helpdesk-router/internal/observability"
)

// Manager routes ticket notifications to the backend registered for the
// ticket's channel.
type Manager struct {
	mu       sync.RWMutex
	backends map[domain.TicketChannel]Notifier
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewManager builds an empty manager.
func NewManager(logger *zap.Logger, metrics *observability.Metrics) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		backends: make(map[domain.TicketChannel]Notifier),
		logger:   logger,
		metrics:  metrics,
	}
}

// Register assigns n as the backend for channel.
func (m *Manager) Register(channel domain.TicketChannel, n Notifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backends[channel] = n
}

// Backend returns the notifier registered for channel.
func (m *Manager) Backend(channel domain.TicketChannel) (Notifier, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.backends[channel]
	return n, ok
}

// Notify sends body to the ticket's customer.
func (m *Manager) Notify(ctx context.Context, ticket *domain.Ticket, body string) (domain.Delivery, error) {
	backend, ok := m.Backend(ticket.Channel)
	if !ok {
		return domain.Delivery{Status: domain.DeliveryFailed, Error: ErrNoBackend.Error()}, ErrNoBackend
	}

	delivery, err := backend.Send(WithOrigin(ctx, OriginOf(ticket)), ticket.Destination(), body)
	if counter, ok := backend.(DeliveryCounter); !ok || !counter.CountsDeliveries() {
		m.metrics.RecordDelivery(backend.Name(), string(delivery.Status))
	}
	if err != nil {
		m.logger.Warn("customer notification failed",
			zap.String("ticket_id", ticket.ID),
			zap.String("backend", backend.Name()),
			zap.Error(err))
		return delivery, err
	}
	m.logger.Debug("customer notification sent",
		zap.String("ticket_id", ticket.ID),
		zap.String("backend", backend.Name()),
		zap.String("status", string(delivery.Status)))
	return delivery, nil
}
