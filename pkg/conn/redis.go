package conn

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yanun0323/errors"
)

// NewRedis parses a redis:// URL, connects and pings once.
func NewRedis(ctx context.Context, rawUrl string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawUrl)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "ping redis").With("addr", opt.Addr)
	}

	return client, nil
}
