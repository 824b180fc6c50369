package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"kluret.com/storefront/internal/domain/model"
)

const keyPrefix = "kluret:session:"

// RedisStore はセッションをJSON文字列で保存し、複数のBFFインスタンスが同じブラウザに応答できるようにします
// ttlがゼロならエントリは期限切れになりません
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (r *RedisStore) Get(ctx context.Context, clientID string) (model.Session, error) {
	val, err := r.client.Get(ctx, keyPrefix+clientID).Result()
	if errors.Is(err, redis.Nil) {
		return model.Session{}, nil
	}
	if err != nil {
		return model.Session{}, errors.Wrap(err, "redis get session")
	}

	var s model.Session
	if err := json.Unmarshal([]byte(val), &s); err != nil {
		return model.Session{}, errors.Wrap(err, "decode session")
	}
	return s, nil
}

func (r *RedisStore) Put(ctx context.Context, clientID string, s model.Session) error {
	if s.Empty() {
		return r.Delete(ctx, clientID)
	}
	b, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "encode session")
	}
	if err := r.client.Set(ctx, keyPrefix+clientID, b, r.ttl).Err(); err != nil {
		return errors.Wrap(err, "redis set session")
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, clientID string) error {
	if err := r.client.Del(ctx, keyPrefix+clientID).Err(); err != nil {
		return errors.Wrap(err, "redis del session")
	}
	return nil
}
