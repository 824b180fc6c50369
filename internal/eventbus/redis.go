package eventbus

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// envelope はイベントに発行元のインスタンスを付けます
type envelope[T any] struct {
	Origin string `json:"origin"`
	Event  T      `json:"event"`
}

// RedisBridge はローカルのBusをredisのチャンネルに映します
// チャンネルを共有する全プロセスが各イベントをちょうど1回受け取ります
type RedisBridge[T any] struct {
	bus     *Bus[T]
	client  *redis.Client
	channel string
	origin  string
	logger  *slog.Logger
}

// NewRedisBridge はブリッジを作ります。中継を始めるにはRunを呼びます
func NewRedisBridge[T any](bus *Bus[T], client *redis.Client, channel string, logger *slog.Logger) *RedisBridge[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisBridge[T]{
		bus:     bus,
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		logger:  logger,
	}
}

// Publish はevをローカルに配信し、他のインスタンスにも転送します
func (r *RedisBridge[T]) Publish(ctx context.Context, ev T) error {
	r.bus.Publish(ev)

	payload, err := json.Marshal(envelope[T]{Origin: r.origin, Event: ev})
	if err != nil {
		return errors.Wrap(err, "encode event")
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return errors.Wrapf(err, "publish to %s", r.channel)
	}
	return nil
}

// Run は他のインスタンスが発行したイベントを受け取り、ctxが終わるまで
// ローカルのBusに発行し直します
func (r *RedisBridge[T]) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer func() {
		if err := sub.Close(); err != nil {
			r.logger.Warn("failed to close redis subscription", "channel", r.channel, "error", err)
		}
	}()

	// 購読が確定するのを待つ
	if _, err := sub.Receive(ctx); err != nil {
		return errors.Wrapf(err, "subscribe to %s", r.channel)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env envelope[T]
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				r.logger.Warn("dropping malformed event", "channel", r.channel, "error", err)
				continue
			}
			if env.Origin == r.origin {
				continue
			}
			r.bus.Publish(env.Event)
		}
	}
}
