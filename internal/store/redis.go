package store

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"github.com/yanun0323/errors"

	"portwatch/internal/adapter"
)

const (
	SnapshotKey    = "portwatch:snapshot"
	CommitsChannel = "portwatch:commits"
)

// Redis caches the latest snapshot and publishes every commit.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (repo *Redis) Name() string {
	return "redis"
}

func (repo *Redis) Save(ctx context.Context, s adapter.Snapshot) error {
	payload, err := sonic.ConfigFastest.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "marshal snapshot")
	}

	pipe := repo.client.TxPipeline()
	pipe.Set(ctx, SnapshotKey, payload, repo.ttl)
	pipe.Publish(ctx, CommitsChannel, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "exec pipeline").With("key", SnapshotKey)
	}

	return nil
}

// Latest returns the cached snapshot, if any.
func (repo *Redis) Latest(ctx context.Context) (adapter.Snapshot, bool, error) {
	var s adapter.Snapshot
	payload, err := repo.client.Get(ctx, SnapshotKey).Bytes()
	if err == redis.Nil {
		return s, false, nil
	}
	if err != nil {
		return s, false, errors.Wrap(err, "get snapshot")
	}

	if err := sonic.ConfigFastest.Unmarshal(payload, &s); err != nil {
		return s, false, errors.Wrap(err, "unmarshal snapshot")
	}

	return s, true, nil
}
