package notifier

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-router/internal/domain"
)

// LogNotifier only logs messages. It stands in for a backend whose
// dependency is not configured in development.
type LogNotifier struct {
	name   string
	logger *zap.Logger
}

// NewLogNotifier builds a log backend reporting itself as name.
func NewLogNotifier(name string, logger *zap.Logger) *LogNotifier {
	return &LogNotifier{name: name, logger: logger}
}

// Name implements Notifier.
func (l *LogNotifier) Name() string { return l.name }

// Send implements Notifier.
func (l *LogNotifier) Send(ctx context.Context, destination, body string) (domain.Delivery, error) {
	delivery := domain.Delivery{
		ID:          uuid.NewString(),
		Backend:     l.name,
		Destination: destination,
		Body:        body,
		CreatedAt:   time.Now().UTC(),
	}
	if destination == "" {
		return failed(delivery, ErrNoDestination)
	}

	fields := []zap.Field{
		zap.String("backend", l.name),
		zap.String("destination", destination),
		zap.Int("body_length", len(body)),
	}
	if origin, ok := OriginFrom(ctx); ok {
		fields = append(fields, zap.String("ticket_id", origin.TicketID))
	}
	l.logger.Info("notification logged", fields...)

	delivery.Status = domain.DeliveryDelivered
	return delivery, nil
}
