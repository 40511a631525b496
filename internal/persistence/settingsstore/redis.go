package settingsstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// Redis stores settings as plain string keys: <prefix><player>:<tool>.
type Redis struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Redis)

// WithTTL expires settings that have not been saved for ttl.
func WithTTL(ttl time.Duration) Option {
	return func(r *Redis) { r.ttl = ttl }
}

func WithPrefix(prefix string) Option {
	return func(r *Redis) { r.prefix = prefix }
}

func NewRedis(addr, password string, db int, opts ...Option) *Redis {
	return NewRedisFromClient(backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}), opts...)
}

func NewRedisFromClient(client *backend.Client, opts ...Option) *Redis {
	r := &Redis{client: client, prefix: "voxeledit:settings:"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) key(player, tool string) string {
	return r.prefix + player + ":" + tool
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) LoadSettings(ctx context.Context, player, tool string) ([]byte, error) {
	raw, err := r.client.Get(ctx, r.key(player, tool)).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("settings get: %w", err)
	}
	return raw, nil
}

func (r *Redis) SaveSettings(ctx context.Context, player, tool string, raw []byte) error {
	if err := r.client.Set(ctx, r.key(player, tool), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("settings set: %w", err)
	}
	return nil
}

func (r *Redis) Close() error { return r.client.Close() }
