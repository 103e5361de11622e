package machine

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/ceyewan/idalloc/connector"
)

// distributeScript KEYS[1]=instance->id, KEYS[2]=id->instance；ARGV[1]=instance, ARGV[2]=total
var distributeScript = redis.NewScript(`
local existing = redis.call('HGET', KEYS[1], ARGV[1])
if existing then
	if tonumber(existing) < tonumber(ARGV[2]) then
		return tonumber(existing)
	end
	return -2
end
for id = 0, tonumber(ARGV[2]) - 1 do
	if redis.call('HSETNX', KEYS[2], tostring(id), ARGV[1]) == 1 then
		redis.call('HSET', KEYS[1], ARGV[1], tostring(id))
		return id
	end
end
return -1
`)

// revertScript 返回被释放的号，未绑定时返回 -1
var revertScript = redis.NewScript(`
local existing = redis.call('HGET', KEYS[1], ARGV[1])
if not existing then
	return -1
end
redis.call('HDEL', KEYS[1], ARGV[1])
if redis.call('HGET', KEYS[2], existing) == ARGV[1] then
	redis.call('HDEL', KEYS[2], existing)
end
return tonumber(existing)
`)

type redisStore struct {
	conn   connector.RedisConnector
	prefix string
}

func newRedisStore(conn connector.RedisConnector, prefix string) *redisStore {
	return &redisStore{conn: conn, prefix: prefix}
}

// keys 两张表用 {namespace} 作为 hash tag，集群模式下落在同一个 slot
func (s *redisStore) keys(namespace string) []string {
	base := s.prefix + ":{" + namespace + "}"
	return []string{base + ":instances", base + ":machines"}
}

func (s *redisStore) distribute(ctx context.Context, namespace string, machineBit int, instance InstanceID) (int64, error) {
	client := s.conn.GetClient()
	if client == nil {
		return 0, connector.ErrClientNil
	}
	return distributeScript.Run(ctx, client, s.keys(namespace), string(instance), TotalMachineIDs(machineBit)).Int64()
}

func (s *redisStore) revert(ctx context.Context, namespace string, instance InstanceID) (int64, bool, error) {
	client := s.conn.GetClient()
	if client == nil {
		return 0, false, connector.ErrClientNil
	}
	id, err := revertScript.Run(ctx, client, s.keys(namespace), string(instance)).Int64()
	if err != nil {
		return 0, false, err
	}
	return id, id >= 0, nil
}

func (s *redisStore) close(context.Context) error { return nil }

// lost redis 绑定没有过期时间，只会被 Revert 删除
func (s *redisStore) lost(string, InstanceID) <-chan struct{} { return nil }
