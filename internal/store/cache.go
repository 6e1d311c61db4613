// Package store holds RoomStore (the durable source of truth, backed
// by Postgres) and RoomCache (a short-TTL phase snapshot that PhaseClock
// writes on every Schedule). Phase expiry callbacks do not read the
// cache; they check PhaseClock.StillScheduled and reload the room from
// RoomStore instead.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/inkrush/inkrush-backend/internal/domain"
)

const (
	roomCachePrefix = "room:"
	codeCachePrefix = "code:"
	cacheTTL        = 10 * time.Second
)

// PhaseSnapshot is the cheap value a phase timer callback reads back
// before acting, so a stale callback can recognize that the room has
// already moved on.
type PhaseSnapshot struct {
	RoundPhase domain.RoundPhase `json:"roundPhase"`
	Round      int               `json:"round"`
}

// RoomCache is the interface both the Redis-backed and in-memory
// implementations satisfy; PhaseEngine and PhaseClock depend on this,
// never on a concrete implementation.
type RoomCache interface {
	SetPhase(ctx context.Context, roomCode string, snap PhaseSnapshot) error
	GetPhase(ctx context.Context, roomCode string) (*PhaseSnapshot, error)
	SetRoomID(ctx context.Context, code string, roomID int64) error
	GetRoomID(ctx context.Context, code string) (int64, bool, error)
	Invalidate(ctx context.Context, roomCode string) error
}

// RedisCache implements RoomCache over go-redis, with phase snapshots
// keyed room:{roomCode} and room ids keyed code:{code}.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(addr, password string, db int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &RedisCache{client: client}, nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) SetPhase(ctx context.Context, roomCode string, snap PhaseSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal phase snapshot: %w", err)
	}
	key := roomCachePrefix + roomCode
	if err := c.client.Set(ctx, key, data, cacheTTL).Err(); err != nil {
		return fmt.Errorf("set phase snapshot: %w", err)
	}
	return nil
}

func (c *RedisCache) GetPhase(ctx context.Context, roomCode string) (*PhaseSnapshot, error) {
	key := roomCachePrefix + roomCode
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("get phase snapshot: %w", err)
	}
	var snap PhaseSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal phase snapshot: %w", err)
	}
	return &snap, nil
}

func (c *RedisCache) SetRoomID(ctx context.Context, code string, roomID int64) error {
	key := codeCachePrefix + code
	if err := c.client.Set(ctx, key, roomID, cacheTTL).Err(); err != nil {
		return fmt.Errorf("set room id: %w", err)
	}
	return nil
}

func (c *RedisCache) GetRoomID(ctx context.Context, code string) (int64, bool, error) {
	key := codeCachePrefix + code
	id, err := c.client.Get(ctx, key).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get room id: %w", err)
	}
	return id, true, nil
}

func (c *RedisCache) Invalidate(ctx context.Context, roomCode string) error {
	if err := c.client.Del(ctx, roomCachePrefix+roomCode, codeCachePrefix+roomCode).Err(); err != nil {
		return fmt.Errorf("invalidate room cache: %w", err)
	}
	return nil
}

// MemoryCache is the in-process fallback for single-instance
// deployments or tests, with the same TTL-expiry contract as Redis.
type MemoryCache struct {
	mu     sync.RWMutex
	phases map[string]memEntry
	ids    map[string]memIDEntry
}

type memEntry struct {
	snap    PhaseSnapshot
	expires time.Time
}

type memIDEntry struct {
	id      int64
	expires time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		phases: make(map[string]memEntry),
		ids:    make(map[string]memIDEntry),
	}
}

func (c *MemoryCache) SetPhase(ctx context.Context, roomCode string, snap PhaseSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phases[roomCode] = memEntry{snap: snap, expires: time.Now().Add(cacheTTL)}
	return nil
}

func (c *MemoryCache) GetPhase(ctx context.Context, roomCode string) (*PhaseSnapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.phases[roomCode]
	if !ok || time.Now().After(entry.expires) {
		return nil, nil
	}
	snap := entry.snap
	return &snap, nil
}

func (c *MemoryCache) SetRoomID(ctx context.Context, code string, roomID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids[code] = memIDEntry{id: roomID, expires: time.Now().Add(cacheTTL)}
	return nil
}

func (c *MemoryCache) GetRoomID(ctx context.Context, code string) (int64, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.ids[code]
	if !ok || time.Now().After(entry.expires) {
		return 0, false, nil
	}
	return entry.id, true, nil
}

func (c *MemoryCache) Invalidate(ctx context.Context, roomCode string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.phases, roomCode)
	delete(c.ids, roomCode)
	return nil
}
