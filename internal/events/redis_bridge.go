package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-router/internal/domain"
)

type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

type envelope struct {
	Origin string             `json:"origin"`
	Event  domain.ChangeEvent `json:"event"`
}

// RedisBridge forwards local change events to Redis pub/sub and relays
// events published by other instances into the local feed.
type RedisBridge struct {
	client   *redis.Client
	pub      publisher
	feed     *Feed
	prefix   string
	instance string
	logger   *zap.Logger
}

// NewRedisBridge builds a bridge publishing on "<prefix>:<collection>".
func NewRedisBridge(client *redis.Client, feed *Feed, prefix string, logger *zap.Logger) *RedisBridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBridge{
		client:   client,
		pub:      client,
		feed:     feed,
		prefix:   prefix,
		instance: uuid.NewString(),
		logger:   logger,
	}
}

// Attach subscribes the bridge to every local change.
func (b *RedisBridge) Attach() {
	b.feed.SubscribeAll(b.forward)
}

// Run relays remote events until ctx is cancelled.
func (b *RedisBridge) Run(ctx context.Context) error {
	sub := b.client.PSubscribe(ctx, b.prefix+":*")
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to change channels: %w", err)
	}
	b.logger.Info("change bridge subscribed", zap.String("pattern", b.prefix+":*"))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if err := b.receive(ctx, msg.Payload); err != nil {
				b.logger.Warn("dropping malformed change message",
					zap.String("channel", msg.Channel),
					zap.Error(err))
			}
		}
	}
}

func (b *RedisBridge) channel(collection domain.Collection) string {
	return b.prefix + ":" + string(collection)
}

func (b *RedisBridge) forward(ctx context.Context, event domain.ChangeEvent) error {
	if Relayed(ctx) {
		return nil
	}
	payload, err := json.Marshal(envelope{Origin: b.instance, Event: event})
	if err != nil {
		return fmt.Errorf("encode change event: %w", err)
	}
	return b.pub.Publish(ctx, b.channel(event.Collection), payload).Err()
}

func (b *RedisBridge) receive(ctx context.Context, payload string) error {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return err
	}
	if env.Origin == b.instance {
		return nil
	}
	b.feed.Relay(ctx, env.Event)
	return nil
}
