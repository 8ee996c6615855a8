package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"

	"github.com/ghalamif/SensorLog/internal/domain"
	"github.com/ghalamif/SensorLog/internal/ports"
)

// StreamField holds the serialized record in every stream entry.
const StreamField = "data"

type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	// MaxLen trims the stream approximately to this many entries; 0 keeps all.
	MaxLen int64
}

func (c *RedisConfig) Validate() error {
	if c.Addr == "" {
		return errors.New("redis: addr is required")
	}
	if c.MaxLen < 0 {
		return errors.New("redis: max_len must not be negative")
	}
	return nil
}

// RedisStream appends each payload to the stream named by the topic.
type RedisStream struct {
	cfg RedisConfig

	mu     sync.Mutex
	client *redis.Client
}

func NewRedisStream(cfg RedisConfig) (*RedisStream, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &RedisStream{cfg: cfg}, nil
}

func (r *RedisStream) Name() string { return "redis" }

func (r *RedisStream) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client != nil {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     r.cfg.Addr,
		Username: r.cfg.Username,
		Password: r.cfg.Password,
		DB:       r.cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("%w: redis ping %s: %w", domain.ErrSinkUnavailable, r.cfg.Addr, err)
	}
	r.client = client
	return nil
}

func (r *RedisStream) Send(ctx context.Context, topic string, payload []byte) error {
	r.mu.Lock()
	client := r.client
	r.mu.Unlock()
	if client == nil {
		return fmt.Errorf("%w: redis not started", domain.ErrSinkUnavailable)
	}

	args := &redis.XAddArgs{
		Stream: topic,
		Values: map[string]interface{}{StreamField: string(payload)},
	}
	if r.cfg.MaxLen > 0 {
		args.MaxLen = r.cfg.MaxLen
		args.Approx = true
	}
	if err := client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("%w: redis xadd %s: %w", domain.ErrSinkSendFailed, topic, err)
	}
	return nil
}

func (r *RedisStream) Stop(context.Context) error {
	r.mu.Lock()
	client := r.client
	r.client = nil
	r.mu.Unlock()

	if client == nil {
		return nil
	}
	return client.Close()
}

var _ ports.Broker = (*RedisStream)(nil)
