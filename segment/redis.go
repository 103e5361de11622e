package segment

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/ceyewan/idalloc/connector"
)

// incrByScript 首次访问时以 offset 初始化计数器，再原子前进 step
var incrByScript = redis.NewScript(`
redis.call('SETNX', KEYS[1], ARGV[1])
return redis.call('INCRBY', KEYS[1], ARGV[2])
`)

type redisStore struct {
	conn connector.RedisConnector
}

func newRedisStore(conn connector.RedisConnector) *redisStore {
	return &redisStore{conn: conn}
}

func (s *redisStore) IncrBy(ctx context.Context, key string, offset, step int64) (int64, error) {
	client := s.conn.GetClient()
	if client == nil {
		return 0, connector.ErrClientNil
	}
	return incrByScript.Run(ctx, client, []string{key}, offset, step).Int64()
}
