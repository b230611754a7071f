// Package monitor tracks which chat users subscribed to periodic
// opportunity digests. Membership survives restarts when backed by Redis;
// the in-memory registry exists for tests and for running without Redis.
package monitor

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Registry is the subscription set. Add and Remove are idempotent.
type Registry interface {
	Add(ctx context.Context, userID int64) error
	Remove(ctx context.Context, userID int64) error
	Contains(ctx context.Context, userID int64) (bool, error)
	List(ctx context.Context) ([]int64, error)
}

const redisKey = "monitor:users"

// RedisRegistry keeps the subscription set in a Redis SET.
type RedisRegistry struct {
	rdb *redis.Client
}

func NewRedisRegistry(rdb *redis.Client) *RedisRegistry {
	return &RedisRegistry{rdb: rdb}
}

func (r *RedisRegistry) Add(ctx context.Context, userID int64) error {
	if err := r.rdb.SAdd(ctx, redisKey, userID).Err(); err != nil {
		return fmt.Errorf("monitor: add %d: %w", userID, err)
	}
	return nil
}

func (r *RedisRegistry) Remove(ctx context.Context, userID int64) error {
	if err := r.rdb.SRem(ctx, redisKey, userID).Err(); err != nil {
		return fmt.Errorf("monitor: remove %d: %w", userID, err)
	}
	return nil
}

func (r *RedisRegistry) Contains(ctx context.Context, userID int64) (bool, error) {
	ok, err := r.rdb.SIsMember(ctx, redisKey, userID).Result()
	if err != nil {
		return false, fmt.Errorf("monitor: contains %d: %w", userID, err)
	}
	return ok, nil
}

func (r *RedisRegistry) List(ctx context.Context) ([]int64, error) {
	members, err := r.rdb.SMembers(ctx, redisKey).Result()
	if err != nil {
		return nil, fmt.Errorf("monitor: list: %w", err)
	}
	out := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// MemRegistry is a process-local registry.
type MemRegistry struct {
	mu    sync.RWMutex
	users map[int64]struct{}
}

func NewMemRegistry() *MemRegistry {
	return &MemRegistry{users: make(map[int64]struct{})}
}

func (r *MemRegistry) Add(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[userID] = struct{}{}
	return nil
}

func (r *MemRegistry) Remove(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, userID)
	return nil
}

func (r *MemRegistry) Contains(_ context.Context, userID int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[userID]
	return ok, nil
}

func (r *MemRegistry) List(_ context.Context) ([]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]int64, 0, len(r.users))
	for id := range r.users {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
