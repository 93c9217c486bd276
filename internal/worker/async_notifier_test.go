package worker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-router/internal/domain"
	"github.com/spec-kit/helpdesk-router/internal/notifier"
	"github.com/spec-kit/helpdesk-router/internal/observability"
)

type recordingNotifier struct {
	mu      sync.Mutex
	err     error
	block   chan struct{}
	sent    []string
	origins []notifier.Origin
}

func (r *recordingNotifier) Name() string { return "whatsapp" }

func (r *recordingNotifier) Send(ctx context.Context, destination, body string) (domain.Delivery, error) {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, destination+"|"+body)
	if origin, ok := notifier.OriginFrom(ctx); ok {
		r.origins = append(r.origins, origin)
	}
	if r.err != nil {
		return domain.Delivery{Status: domain.DeliveryFailed}, r.err
	}
	return domain.Delivery{Status: domain.DeliveryDelivered}, nil
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func TestAsyncNotifierDeliversInBackground(t *testing.T) {
	inner := &recordingNotifier{}
	async := NewAsyncNotifier(inner, Options{Workers: 2, QueueSize: 8, Metrics: observability.NewMetrics(prometheus.NewRegistry())})
	async.Start()

	ctx := notifier.WithOrigin(context.Background(), notifier.Origin{TicketID: "TKT-001"})
	delivery, err := async.Send(ctx, "+1555", "hello")
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryQueued, delivery.Status)
	assert.Equal(t, "whatsapp", async.Name())

	async.Stop()
	assert.Equal(t, []string{"+1555|hello"}, inner.sent)
	require.Len(t, inner.origins, 1)
	assert.Equal(t, "TKT-001", inner.origins[0].TicketID)
}

func TestAsyncNotifierFailureIsOutOfBand(t *testing.T) {
	inner := &recordingNotifier{err: errors.New("down")}
	async := NewAsyncNotifier(inner, Options{})
	async.Start()

	_, err := async.Send(context.Background(), "+1555", "hello")
	require.NoError(t, err)

	async.Stop()
	assert.Equal(t, 1, inner.count())
}

func TestAsyncNotifierQueueFull(t *testing.T) {
	inner := &recordingNotifier{block: make(chan struct{})}
	async := NewAsyncNotifier(inner, Options{Workers: 1, QueueSize: 1})
	async.Start()

	_, err := async.Send(context.Background(), "+1", "first")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(async.queue) == 0 }, time.Second, 5*time.Millisecond)

	_, err = async.Send(context.Background(), "+1", "second")
	require.NoError(t, err)

	delivery, err := async.Send(context.Background(), "+1", "third")
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, domain.DeliveryFailed, delivery.Status)

	close(inner.block)
	async.Stop()
	assert.Equal(t, 2, inner.count())
}

func TestAsyncNotifierAfterStop(t *testing.T) {
	async := NewAsyncNotifier(&recordingNotifier{}, Options{})
	async.Start()
	async.Stop()
	async.Stop()

	_, err := async.Send(context.Background(), "+1", "late")
	assert.ErrorIs(t, err, ErrStopped)
}

func TestAsyncNotifierRejectsEmptyDestination(t *testing.T) {
	async := NewAsyncNotifier(&recordingNotifier{}, Options{})
	_, err := async.Send(context.Background(), "", "body")
	assert.ErrorIs(t, err, notifier.ErrNoDestination)
}

func deliveryCounts(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	counts := make(map[string]float64)
	for _, family := range families {
		if !strings.HasSuffix(family.GetName(), "notifier_deliveries_total") {
			continue
		}
		for _, metric := range family.GetMetric() {
			labels := make(map[string]string)
			for _, pair := range metric.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			counts[labels["backend"]+"/"+labels["status"]] += metric.GetCounter().GetValue()
		}
	}
	return counts
}

func TestManagerCountsAsyncDeliveryOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	inner := &recordingNotifier{}
	async := NewAsyncNotifier(inner, Options{Workers: 1, QueueSize: 4, Metrics: metrics})
	async.Start()

	manager := notifier.NewManager(zap.NewNop(), metrics)
	manager.Register(domain.ChannelWhatsApp, async)
	ticket := &domain.Ticket{ID: "TKT-001", Channel: domain.ChannelWhatsApp, CustomerPhone: "+15550100"}

	delivery, err := manager.Notify(context.Background(), ticket, "hello")
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryQueued, delivery.Status)

	async.Stop()
	assert.Equal(t, map[string]float64{"whatsapp/delivered": 1}, deliveryCounts(t, reg))
}

func TestManagerCountsSyncDelivery(t *testing.T) {
	reg := prometheus.NewRegistry()
	manager := notifier.NewManager(zap.NewNop(), observability.NewMetrics(reg))
	manager.Register(domain.ChannelWhatsApp, &recordingNotifier{})
	ticket := &domain.Ticket{ID: "TKT-002", Channel: domain.ChannelWhatsApp, CustomerPhone: "+15550100"}

	_, err := manager.Notify(context.Background(), ticket, "hello")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"whatsapp/delivered": 1}, deliveryCounts(t, reg))
}
