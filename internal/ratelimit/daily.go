package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DailyCounter counts events per key within the current UTC day.
type DailyCounter interface {
	// Hit records one event for key and returns today's count including it.
	Hit(ctx context.Context, key string) (int64, error)
	// Count returns today's count for key without recording anything.
	Count(ctx context.Context, key string) (int64, error)
}

// Quota is a fixed per-day allowance enforced over a DailyCounter.
//
// Check does not spend; Consume does. Concurrent callers that all pass
// Check with one unit left overshoot the limit by at most their number.
type Quota struct {
	Counter DailyCounter
	Limit   int64
}

// Check reports how much of key's allowance is left today without
// spending any. ok is false once nothing is left.
func (q Quota) Check(ctx context.Context, key string) (remaining int64, ok bool, err error) {
	n, err := q.Counter.Count(ctx, key)
	if err != nil {
		return 0, false, err
	}
	if n >= q.Limit {
		return 0, false, nil
	}
	return q.Limit - n, true, nil
}

// Consume spends one unit of key's allowance and returns what is left,
// never below zero.
func (q Quota) Consume(ctx context.Context, key string) (remaining int64, err error) {
	n, err := q.Counter.Hit(ctx, key)
	if err != nil {
		return 0, err
	}
	return max(q.Limit-n, 0), nil
}

func utcDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// MemoryCounter is a process-local DailyCounter. Counts are lost on
// restart and are not shared between replicas.
type MemoryCounter struct {
	mu     sync.Mutex
	now    func() time.Time
	day    string
	counts map[string]int64
}

// NewMemoryCounter creates an in-memory daily counter.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{now: time.Now, counts: make(map[string]int64)}
}

// rollover drops yesterday's counts. Callers hold mu.
func (m *MemoryCounter) rollover() {
	if today := utcDay(m.now()); today != m.day {
		m.day = today
		m.counts = make(map[string]int64)
	}
}

func (m *MemoryCounter) Hit(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollover()
	m.counts[key]++
	return m.counts[key], nil
}

func (m *MemoryCounter) Count(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollover()
	return m.counts[key], nil
}

// RedisCounter is a DailyCounter shared by every replica through Redis.
// Each key lives under its day and expires after 48h.
type RedisCounter struct {
	client redis.Cmdable
	prefix string
	now    func() time.Time
}

// NewRedisCounter creates a Redis-backed counter. prefix namespaces the
// keys, e.g. "storefront:demo".
func NewRedisCounter(client redis.Cmdable, prefix string) *RedisCounter {
	return &RedisCounter{client: client, prefix: prefix, now: time.Now}
}

func (r *RedisCounter) key(key string) string {
	return fmt.Sprintf("%s:%s:%s", r.prefix, utcDay(r.now()), key)
}

func (r *RedisCounter) Hit(ctx context.Context, key string) (int64, error) {
	k := r.key(key)
	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, 48*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("ratelimit: redis incr: %w", err)
	}
	return incr.Val(), nil
}

func (r *RedisCounter) Count(ctx context.Context, key string) (int64, error) {
	n, err := r.client.Get(ctx, r.key(key)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("ratelimit: redis get: %w", err)
	}
	return n, nil
}
