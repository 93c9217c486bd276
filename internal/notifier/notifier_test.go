package notifier

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-router/internal/domain"
	"github.com/spec-kit/helpdesk-router/internal/observability"
	"github.com/spec-kit/helpdesk-router/internal/repository"
)

func strPtr(s string) *string { return &s }

func sampleTicket(channel domain.TicketChannel) *domain.Ticket {
	return &domain.Ticket{
		ID:             "TKT-007",
		CustomerName:   "Dana",
		CustomerPhone:  "+15550100",
		Category:       "billing",
		Channel:        channel,
		WhatsAppNumber: strPtr("+15559999"),
		Status:         domain.TicketStatusOpen,
	}
}

func TestChatNotifierWritesOutboundRow(t *testing.T) {
	store := repository.NewMemoryStore()
	chat := NewChatNotifier(store.Messages, "+10000000")
	ctx := WithOrigin(context.Background(), Origin{TicketID: "TKT-007", ChannelAddress: "+15559999"})

	delivery, err := chat.Send(ctx, "+15550100", "hello")
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryQueued, delivery.Status)
	assert.True(t, delivery.Delivered())
	assert.NotEmpty(t, delivery.ID)

	rows, err := store.Messages.ListByTicket(context.Background(), "TKT-007")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "+15559999", rows[0].FromNumber)
	assert.Equal(t, "+15550100", rows[0].ToNumber)
	assert.Equal(t, "outbound", rows[0].Direction)
}

func TestChatNotifierUsesDefaultSender(t *testing.T) {
	store := repository.NewMemoryStore()
	chat := NewChatNotifier(store.Messages, "+10000000")

	_, err := chat.Send(context.Background(), "+15550100", "hello")
	require.NoError(t, err)

	rows, err := store.Messages.ListByTicket(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "+10000000", rows[0].FromNumber)
	assert.Nil(t, rows[0].TicketID)
}

func TestChatNotifierRejectsEmptyDestination(t *testing.T) {
	chat := NewChatNotifier(repository.NewMemoryStore().Messages, "")

	delivery, err := chat.Send(context.Background(), "", "hello")
	assert.ErrorIs(t, err, ErrNoDestination)
	assert.Equal(t, domain.DeliveryFailed, delivery.Status)
	assert.False(t, delivery.Delivered())
}

func TestSMSGatewayNotifierInsertsOutboxRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sms, err := NewSMSGatewayNotifier(db, "sms_outbox", "HELPDESK")
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sms_outbox (reference, sender_id, destination, body, ticket_id, created_at)")).
		WithArgs(sqlmock.AnyArg(), "HELPDESK", "+15550100", "your ticket", "TKT-007", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	ctx := WithOrigin(context.Background(), Origin{TicketID: "TKT-007"})
	delivery, err := sms.Send(ctx, "+15550100", "your ticket")
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryQueued, delivery.Status)
	assert.Equal(t, "sms", delivery.Backend)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSMSGatewayNotifierReportsInsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sms, err := NewSMSGatewayNotifier(db, "sms_outbox", "HELPDESK")
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sms_outbox")).
		WillReturnError(errors.New("gateway down"))

	delivery, err := sms.Send(context.Background(), "+15550100", "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gateway down")
	assert.Equal(t, domain.DeliveryFailed, delivery.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSMSGatewayNotifierValidation(t *testing.T) {
	_, err := NewSMSGatewayNotifier(nil, "outbox; DROP TABLE x", "S")
	assert.Error(t, err)

	sms, err := NewSMSGatewayNotifier(nil, "sms_outbox", "S")
	require.NoError(t, err)
	_, err = sms.Send(context.Background(), "+1", "body")
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestAcknowledgmentByCategory(t *testing.T) {
	ticket := sampleTicket(domain.ChannelWhatsApp)

	body := Acknowledgment(ticket, "Agent1")
	assert.Contains(t, body, "billing")
	assert.Contains(t, body, "TKT-007")
	assert.Contains(t, body, "Agent1")

	ticket.Category = "logistics"
	body = Acknowledgment(ticket, "")
	assert.Contains(t, body, "TKT-007")
	assert.NotContains(t, body, "assisting")
}

func TestStatusMessage(t *testing.T) {
	ticket := sampleTicket(domain.ChannelWhatsApp)

	body, ok := StatusMessage(ticket, domain.TicketStatusResolved, "Fixed the issue")
	require.True(t, ok)
	assert.Contains(t, body, "resolved")
	assert.Contains(t, body, "Note: Fixed the issue")

	body, ok = StatusMessage(ticket, domain.TicketStatusClosed, "  ")
	require.True(t, ok)
	assert.NotContains(t, body, "Note:")

	_, ok = StatusMessage(ticket, domain.TicketStatusOpen, "reopened")
	assert.False(t, ok)
}

type stubNotifier struct {
	name string
	err  error
	sent []string
	ctxs []context.Context
}

func (s *stubNotifier) Name() string { return s.name }

func (s *stubNotifier) Send(ctx context.Context, destination, body string) (domain.Delivery, error) {
	s.sent = append(s.sent, destination+"|"+body)
	s.ctxs = append(s.ctxs, ctx)
	if s.err != nil {
		return domain.Delivery{Backend: s.name, Status: domain.DeliveryFailed, Error: s.err.Error()}, s.err
	}
	return domain.Delivery{Backend: s.name, Status: domain.DeliveryDelivered}, nil
}

func TestManagerRoutesByChannel(t *testing.T) {
	chat := &stubNotifier{name: "whatsapp"}
	sms := &stubNotifier{name: "sms"}
	manager := NewManager(zap.NewNop(), observability.NewMetrics(prometheus.NewRegistry()))
	manager.Register(domain.ChannelWhatsApp, chat)
	manager.Register(domain.ChannelPhone, sms)

	_, err := manager.Notify(context.Background(), sampleTicket(domain.ChannelWhatsApp), "hi")
	require.NoError(t, err)
	_, err = manager.Notify(context.Background(), sampleTicket(domain.ChannelPhone), "hey")
	require.NoError(t, err)

	assert.Equal(t, []string{"+15550100|hi"}, chat.sent)
	assert.Equal(t, []string{"+15550100|hey"}, sms.sent)

	origin, ok := OriginFrom(chat.ctxs[0])
	require.True(t, ok)
	assert.Equal(t, "TKT-007", origin.TicketID)
	assert.Equal(t, "+15559999", origin.ChannelAddress)
}

func TestManagerWithoutBackend(t *testing.T) {
	manager := NewManager(nil, nil)

	delivery, err := manager.Notify(context.Background(), sampleTicket(domain.ChannelEmail), "hi")
	assert.ErrorIs(t, err, ErrNoBackend)
	assert.Equal(t, domain.DeliveryFailed, delivery.Status)
}

func TestManagerPropagatesBackendFailure(t *testing.T) {
	boom := errors.New("boom")
	manager := NewManager(nil, nil)
	manager.Register(domain.ChannelWhatsApp, &stubNotifier{name: "whatsapp", err: boom})

	_, err := manager.Notify(context.Background(), sampleTicket(domain.ChannelWhatsApp), "hi")
	assert.ErrorIs(t, err, boom)
}

func TestLogNotifier(t *testing.T) {
	logNotifier := NewLogNotifier("sms", zap.NewNop())

	delivery, err := logNotifier.Send(context.Background(), "+1", "hello")
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryDelivered, delivery.Status)
	assert.Equal(t, "sms", logNotifier.Name())
}
