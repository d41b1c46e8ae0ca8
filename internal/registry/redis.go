package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists the identity sets in Redis, one key per set holding
// a JSON array. Useful when the relay runs on a host without a stable
// filesystem (the prototype lived on an ephemeral PaaS disk).
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisStore{client: client, prefix: "chavosh:registry:"}, nil
}

// NewRedisStoreWithClient creates a store from an existing Redis client.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "chavosh:registry:"}
}

func (s *RedisStore) Load(ctx context.Context) (approved, pending []string, err error) {
	approved, err = s.readSet(ctx, "approved")
	if err != nil {
		return nil, nil, err
	}
	pending, err = s.readSet(ctx, "pending")
	if err != nil {
		return nil, nil, err
	}
	return approved, pending, nil
}

func (s *RedisStore) Save(ctx context.Context, approved, pending []string) error {
	if err := s.writeSet(ctx, "approved", approved); err != nil {
		return err
	}
	return s.writeSet(ctx, "pending", pending)
}

func (s *RedisStore) readSet(ctx context.Context, name string) ([]string, error) {
	data, err := s.client.Get(ctx, s.prefix+name).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s set: %w", name, err)
	}
	var set []string
	if err := json.Unmarshal([]byte(data), &set); err != nil {
		return nil, fmt.Errorf("parse %s set: %w", name, err)
	}
	return set, nil
}

func (s *RedisStore) writeSet(ctx context.Context, name string, set []string) error {
	if set == nil {
		set = []string{}
	}
	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("marshal %s set: %w", name, err)
	}
	if err := s.client.Set(ctx, s.prefix+name, data, 0).Err(); err != nil {
		return fmt.Errorf("save %s set: %w", name, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
