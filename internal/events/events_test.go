package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-router/internal/domain"
)

func change(collection domain.Collection, recordID string, version time.Time) domain.ChangeEvent {
	return domain.ChangeEvent{
		Collection: collection,
		Type:       domain.ChangeUpdate,
		RecordID:   recordID,
		Version:    version,
	}
}

func TestFeedDispatchesByCollection(t *testing.T) {
	feed := NewFeed(zap.NewNop())
	var tickets, all []domain.ChangeEvent
	feed.Subscribe(domain.CollectionTickets, func(_ context.Context, e domain.ChangeEvent) error {
		tickets = append(tickets, e)
		return nil
	})
	feed.SubscribeAll(func(_ context.Context, e domain.ChangeEvent) error {
		all = append(all, e)
		return nil
	})

	now := time.Now()
	feed.PublishChange(context.Background(), change(domain.CollectionTickets, "TKT-001", now))
	feed.PublishChange(context.Background(), change(domain.CollectionAgents, "a1", now))

	require.Len(t, tickets, 1)
	assert.NotEmpty(t, tickets[0].ID)
	assert.Len(t, all, 2)
}

func TestFeedContinuesAfterHandlerError(t *testing.T) {
	feed := NewFeed(nil)
	calls := 0
	feed.SubscribeAll(func(context.Context, domain.ChangeEvent) error {
		calls++
		return errors.New("boom")
	})
	feed.SubscribeAll(func(context.Context, domain.ChangeEvent) error {
		calls++
		return nil
	})

	feed.PublishChange(context.Background(), change(domain.CollectionAgents, "a1", time.Now()))
	assert.Equal(t, 2, calls)
}

func TestFeedRelayMarksContext(t *testing.T) {
	feed := NewFeed(nil)
	var relayed []bool
	feed.SubscribeAll(func(ctx context.Context, _ domain.ChangeEvent) error {
		relayed = append(relayed, Relayed(ctx))
		return nil
	})

	feed.PublishChange(context.Background(), change(domain.CollectionAgents, "a1", time.Now()))
	feed.Relay(context.Background(), change(domain.CollectionAgents, "a1", time.Now()))
	assert.Equal(t, []bool{false, true}, relayed)
}

func TestDeduperDropsRepeatsAndStaleVersions(t *testing.T) {
	d := NewDeduper(0)
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	first := change(domain.CollectionTickets, "TKT-001", t0)
	first.ID = "e1"
	assert.True(t, d.Accept(first))
	assert.False(t, d.Accept(first), "same event id twice")

	newer := change(domain.CollectionTickets, "TKT-001", t0.Add(time.Second))
	newer.ID = "e2"
	assert.True(t, d.Accept(newer))

	stale := change(domain.CollectionTickets, "TKT-001", t0)
	stale.ID = "e3"
	assert.False(t, d.Accept(stale), "out-of-order older version")

	other := change(domain.CollectionAgents, "TKT-001", t0)
	other.ID = "e4"
	assert.True(t, d.Accept(other), "records are keyed per collection")
}

func TestDeduperForgetsOldestIDs(t *testing.T) {
	d := NewDeduper(2)
	t0 := time.Now()
	for i, id := range []string{"a", "b", "c"} {
		e := change(domain.CollectionHistory, id, t0)
		e.ID = id
		require.True(t, d.Accept(e), "event %d", i)
	}
	assert.Len(t, d.seen, 2)
	_, ok := d.seen["a"]
	assert.False(t, ok)
}

type capturedPublish struct {
	channel string
	payload []byte
}

type fakePublisher struct {
	published []capturedPublish
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.published = append(f.published, capturedPublish{channel: channel, payload: message.([]byte)})
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(1)
	return cmd
}

func newTestBridge(feed *Feed) (*RedisBridge, *fakePublisher) {
	pub := &fakePublisher{}
	bridge := NewRedisBridge(nil, feed, "helpdesk:changes", zap.NewNop())
	bridge.pub = pub
	return bridge, pub
}

func TestRedisBridgeForwardsLocalEvents(t *testing.T) {
	feed := NewFeed(nil)
	bridge, pub := newTestBridge(feed)
	bridge.Attach()

	feed.PublishChange(context.Background(), change(domain.CollectionTickets, "TKT-001", time.Now()))
	feed.Relay(context.Background(), change(domain.CollectionTickets, "TKT-002", time.Now()))

	require.Len(t, pub.published, 1)
	assert.Equal(t, "helpdesk:changes:tickets", pub.published[0].channel)

	var env envelope
	require.NoError(t, json.Unmarshal(pub.published[0].payload, &env))
	assert.Equal(t, bridge.instance, env.Origin)
	assert.Equal(t, "TKT-001", env.Event.RecordID)
}

func TestRedisBridgeRelaysRemoteEvents(t *testing.T) {
	feed := NewFeed(nil)
	bridge, pub := newTestBridge(feed)
	bridge.Attach()

	var received []domain.ChangeEvent
	feed.Subscribe(domain.CollectionAgents, func(_ context.Context, e domain.ChangeEvent) error {
		received = append(received, e)
		return nil
	})

	remote, err := json.Marshal(envelope{Origin: "other", Event: change(domain.CollectionAgents, "a1", time.Now())})
	require.NoError(t, err)
	own, err := json.Marshal(envelope{Origin: bridge.instance, Event: change(domain.CollectionAgents, "a2", time.Now())})
	require.NoError(t, err)

	require.NoError(t, bridge.receive(context.Background(), string(remote)))
	require.NoError(t, bridge.receive(context.Background(), string(own)))
	assert.Error(t, bridge.receive(context.Background(), "not json"))

	require.Len(t, received, 1)
	assert.Equal(t, "a1", received[0].RecordID)
	assert.Empty(t, pub.published, "relayed events are not forwarded again")
}
