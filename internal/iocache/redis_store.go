package iocache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/huangsam/repostats/internal/contract"
	"github.com/huangsam/repostats/schema"
	"github.com/redis/go-redis/v9"
)

const (
	redisNamespace   = "repostats"
	redisOpTimeout   = 10 * time.Second
	redisValueField  = "value"
	redisVersionFld  = "version"
	redisTimeField   = "timestamp"
	redisIndexSuffix = "snapshots"
)

type redisCommander interface {
	Ping(ctx context.Context) *redis.StatusCmd
	HSet(ctx context.Context, key string, values ...any) *redis.IntCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	SAdd(ctx context.Context, key string, members ...any) *redis.IntCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
	SCard(ctx context.Context, key string) *redis.IntCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	MemoryUsage(ctx context.Context, key string, samples ...int) *redis.IntCmd
}

// RedisStore keeps snapshot blobs in Redis hashes, indexed by a set of keys.
type RedisStore struct {
	client  redisCommander
	closeFn func() error
}

var _ contract.CacheStore = &RedisStore{} // Compile-time check

// NewRedisStore connects to the Redis server named by a redis:// URL.
func NewRedisStore(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	store := newRedisStoreFromCommander(client, client.Close)

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis. Check that the server is running and the URL is valid: %w", err)
	}
	return store, nil
}

func newRedisStoreFromCommander(client redisCommander, closeFn func() error) *RedisStore {
	if closeFn == nil {
		closeFn = func() error { return nil }
	}
	return &RedisStore{client: client, closeFn: closeFn}
}

func (s *RedisStore) dataKey(key string) string {
	return redisNamespace + ":snapshot:" + key
}

func (s *RedisStore) indexKey() string {
	return redisNamespace + ":" + redisIndexSuffix
}

// Get retrieves a snapshot blob.
func (s *RedisStore) Get(key string) ([]byte, int, int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	fields, err := s.client.HGetAll(ctx, s.dataKey(key)).Result()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("read snapshot hash: %w", err)
	}
	value, ok := fields[redisValueField]
	if !ok {
		return nil, 0, 0, contract.ErrCacheMiss
	}
	version, _ := strconv.Atoi(fields[redisVersionFld])
	ts, _ := strconv.ParseInt(fields[redisTimeField], 10, 64)
	return []byte(value), version, ts, nil
}

// Set writes a snapshot blob and indexes its key.
func (s *RedisStore) Set(key string, value []byte, version int, timestamp int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	fields := map[string]any{
		redisValueField: string(value),
		redisVersionFld: strconv.Itoa(version),
		redisTimeField:  strconv.FormatInt(timestamp, 10),
	}
	if err := s.client.HSet(ctx, s.dataKey(key), fields).Err(); err != nil {
		return fmt.Errorf("write snapshot hash: %w", err)
	}
	if err := s.client.SAdd(ctx, s.indexKey(), key).Err(); err != nil {
		return fmt.Errorf("index snapshot: %w", err)
	}
	return nil
}

// GetStatus summarizes the indexed snapshots.
func (s *RedisStore) GetStatus() (schema.CacheStatus, error) {
	status := schema.CacheStatus{Backend: string(schema.RedisBackend)}

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := s.client.Ping(ctx).Err(); err != nil {
		return status, nil
	}
	status.Connected = true

	keys, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return status, fmt.Errorf("list snapshots: %w", err)
	}
	for _, key := range keys {
		fields, err := s.client.HGetAll(ctx, s.dataKey(key)).Result()
		if err != nil {
			return status, fmt.Errorf("read snapshot hash: %w", err)
		}
		if _, ok := fields[redisValueField]; !ok {
			continue
		}
		ts, _ := strconv.ParseInt(fields[redisTimeField], 10, 64)
		at := time.Unix(ts, 0)
		if status.TotalEntries == 0 || at.After(status.LastEntryTime) {
			status.LastEntryTime = at
		}
		if status.TotalEntries == 0 || at.Before(status.OldestEntryTime) {
			status.OldestEntryTime = at
		}
		status.TotalEntries++

		if size, err := s.client.MemoryUsage(ctx, s.dataKey(key)).Result(); err == nil {
			status.TableSizeBytes += size
		} else {
			status.TableSizeBytes += int64(len(fields[redisValueField]))
		}
	}
	return status, nil
}

// Clear removes every indexed snapshot and the index itself.
func (s *RedisStore) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	keys, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}
	toDelete := make([]string, 0, len(keys)+1)
	for _, key := range keys {
		toDelete = append(toDelete, s.dataKey(key))
	}
	toDelete = append(toDelete, s.indexKey())
	if err := s.client.Del(ctx, toDelete...).Err(); err != nil {
		return fmt.Errorf("delete snapshots: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (s *RedisStore) Close() error {
	if s == nil || s.closeFn == nil {
		return nil
	}
	return s.closeFn()
}
