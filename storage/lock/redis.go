package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/developer0000009-hue/schoolportal/core"
)

const keyPrefix = "portal:lock:"

// release only deletes a lock still owned by the caller
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker shares locks between API instances.
type RedisLocker struct {
	client *redis.Client
	logger core.Logger
}

var _ core.Locker = (*RedisLocker)(nil)

// NewRedisLocker connects to Redis and checks the connection.
func NewRedisLocker(conf *core.Config, logger core.Logger) (*RedisLocker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, errors.Wrap(err, "connecting to redis")
	}
	return &RedisLocker{client: client, logger: logger}, nil
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, keyPrefix+key, token, ttl).Result()
	if err != nil {
		return nil, errors.Wrap(err, "acquiring lock")
	}
	if !ok {
		return nil, core.ErrLocked
	}

	return func() {
		// the request context may be gone already
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{keyPrefix + key}, token).Err(); err != nil {
			l.logger.Warn("releasing lock "+key, err)
		}
	}, nil
}

func (l *RedisLocker) Close() error {
	return l.client.Close()
}
