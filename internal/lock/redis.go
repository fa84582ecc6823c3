package lock

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// releaseScript deletes the key only if it still carries our token, so an
// expired lock re-acquired by another replica is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a lease-based lock on a single Redis node (SET NX PX).
type Redis struct {
	client redis.UniversalClient
	logger logrus.FieldLogger
	prefix string
	ttl    time.Duration
	retry  time.Duration
}

func NewRedis(client redis.UniversalClient, logger logrus.FieldLogger, prefix string, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &Redis{
		client: client,
		logger: logger,
		prefix: prefix,
		ttl:    ttl,
		retry:  10 * time.Millisecond,
	}
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	name := r.prefix + key
	token := uuid.NewString()

	wait := r.retry
	for {
		ok, err := r.client.SetNX(ctx, name, token, r.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, errors.Wrapf(err, "acquire lock %s", name)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
		if wait < 200*time.Millisecond {
			wait *= 2
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, r.client, []string{name}, token).Err(); err != nil {
				r.logger.WithError(err).WithField("lock", name).Warn("failed to release lock, it will expire")
			}
		})
	}, nil
}
