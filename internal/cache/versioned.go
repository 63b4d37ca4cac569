package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// VersionedStore 带版本号的 JSON 缓存
// 读方在回源前记录版本，回填时版本已变化则放弃写入，避免旧值覆盖新值。
type VersionedStore interface {
	Version(ctx context.Context, key string) (int64, error)
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSONIfVersion(ctx context.Context, key string, version int64, value interface{}, ttl time.Duration) (bool, error)
	Invalidate(ctx context.Context, key string) error
}

var setIfVersionScript = redis.NewScript(`
local current = redis.call("GET", KEYS[2])
if not current then
	current = "0"
end
if current ~= ARGV[1] then
	return 0
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`)

var invalidateScript = redis.NewScript(`
redis.call("INCR", KEYS[2])
redis.call("DEL", KEYS[1])
return 1
`)

// RedisVersionedStore 基于全局 Redis 客户端的版本化缓存，未启用 Redis 时全部视为未命中
type RedisVersionedStore struct{}

// NewVersionedStore 创建版本化缓存
func NewVersionedStore() *RedisVersionedStore {
	return &RedisVersionedStore{}
}

func versionKey(key string) string {
	return BuildKey(key) + ":ver"
}

// Version 读取当前版本，不存在时为 0
func (RedisVersionedStore) Version(ctx context.Context, key string) (int64, error) {
	if !Enabled() {
		return 0, nil
	}
	version, err := redisClient.Get(ctx, versionKey(key)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return version, err
}

// GetJSON 读取缓存值
func (RedisVersionedStore) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	return GetJSON(ctx, key, dest)
}

// SetJSONIfVersion 版本未变化时写入缓存，返回是否写入
func (RedisVersionedStore) SetJSONIfVersion(ctx context.Context, key string, version int64, value interface{}, ttl time.Duration) (bool, error) {
	if !Enabled() || ttl <= 0 {
		return false, nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	stored, err := setIfVersionScript.Run(ctx, redisClient,
		[]string{BuildKey(key), versionKey(key)},
		strconv.FormatInt(version, 10), payload, ttl.Milliseconds(),
	).Int64()
	if err != nil {
		return false, err
	}
	return stored == 1, nil
}

// Invalidate 递增版本并删除缓存值
func (RedisVersionedStore) Invalidate(ctx context.Context, key string) error {
	if !Enabled() {
		return nil
	}
	return invalidateScript.Run(ctx, redisClient, []string{BuildKey(key), versionKey(key)}).Err()
}
