// Copyright (c) 2026 Folio Works. All rights reserved.

// Package realtime fans post change events out to connected websocket
// clients.
//
// # Architecture
//
// Events flow through Redis pub/sub rather than process memory: every API
// instance publishes mutations to a per-user channel, and every instance's
// [Hub] subscribes to the channel pattern and forwards payloads to its own
// local websocket connections. Horizontal scaling therefore needs no state
// beyond Redis.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/folioworks/folio/internal/platform/constants"
	"github.com/folioworks/folio/internal/post"
)

// Broker publishes post change events into Redis channels and feeds the
// subscriber side of the fan-out. It satisfies [post.EventPublisher].
type Broker struct {
	client *redis.Client
	logger *slog.Logger
}

// NewBroker constructs a [Broker] over the shared Redis client.
func NewBroker(client *redis.Client, logger *slog.Logger) *Broker {
	return &Broker{client: client, logger: logger}
}

// UserChannel derives the Redis channel name carrying a user's post events.
func UserChannel(userID string) string {
	return constants.RedisChannelUserPosts + userID
}

// PublishPostChange serializes the event and publishes it to the owning
// user's channel.
func (broker *Broker) PublishPostChange(ctx context.Context, userID string, event post.ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("realtime_broker_marshal_failed: %w", err)
	}

	if err := broker.client.Publish(ctx, UserChannel(userID), payload).Err(); err != nil {
		return fmt.Errorf("realtime_broker_publish_failed: %w", err)
	}

	return nil
}

// StartSubscriber subscribes to the per-user channel pattern and invokes
// onMessage with the owning userID and the raw JSON payload for every event.
//
// The subscription lives until ctx is cancelled. A panicking onMessage is
// recovered and logged so one bad payload cannot kill the fan-out loop.
func (broker *Broker) StartSubscriber(ctx context.Context, onMessage func(userID string, payload []byte)) error {
	subscription := broker.client.PSubscribe(ctx, constants.RedisChannelUserPosts+"*")

	// Force the subscription handshake now so a dead Redis surfaces at
	// startup instead of silently dropping events later.
	if _, err := subscription.Receive(ctx); err != nil {
		return fmt.Errorf("realtime_broker_subscribe_failed: %w", err)
	}

	channel := subscription.Channel()

	go func() {
		defer func() {
			if err := subscription.Close(); err != nil {
				broker.logger.Warn("realtime_subscription_close_failed", slog.Any("error", err))
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case message, ok := <-channel:
				if !ok {
					return
				}
				broker.dispatch(message, onMessage)
			}
		}
	}()

	return nil
}

// dispatch forwards one pub/sub message, isolating panics.
func (broker *Broker) dispatch(message *redis.Message, onMessage func(userID string, payload []byte)) {
	defer func() {
		if recovered := recover(); recovered != nil {
			broker.logger.Error("realtime_dispatch_panic",
				slog.Any("panic", recovered),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()

	userID, ok := strings.CutPrefix(message.Channel, constants.RedisChannelUserPosts)
	if !ok || userID == "" {
		broker.logger.Warn("realtime_unexpected_channel", slog.String("channel", message.Channel))
		return
	}

	onMessage(userID, []byte(message.Payload))
}
