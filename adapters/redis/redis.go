package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/lborres/agenda"
)

const DefaultPrefix = "agenda:"

// Adapter keeps session tokens in Redis under a key prefix
type Adapter struct {
	client *redis.Client
	prefix string
}

var _ agenda.TokenStorage = (*Adapter)(nil)

func New(client *redis.Client, prefix string) *Adapter {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Adapter{
		client: client,
		prefix: prefix,
	}
}

func (a *Adapter) key(key string) string {
	return a.prefix + key
}

func (a *Adapter) Get(ctx context.Context, key string) (string, error) {
	value, err := a.client.Get(ctx, a.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", agenda.ErrTokenNotFound
		}
		return "", err
	}
	return value, nil
}

// Set stores the token without expiry; the auth service owns its lifetime
func (a *Adapter) Set(ctx context.Context, key, value string) error {
	return a.client.Set(ctx, a.key(key), value, 0).Err()
}

func (a *Adapter) Remove(ctx context.Context, key string) error {
	return a.client.Del(ctx, a.key(key)).Err()
}
