// Package syncutil holds small concurrency helpers shared by the handlers.
package syncutil

import (
	"context"
	"hash/fnv"
)

// DefaultShards is the shard count used by NewKeyLock when n <= 0.
const DefaultShards = 256

// KeyLock serializes work per key (usually a user id) inside one process.
// Keys hash onto a fixed pool of shards, so unrelated keys may
// occasionally wait on each other. Waiting honors context cancellation.
//
// KeyLock does not coordinate replicas; anything that must hold across
// instances still needs a database guard.
type KeyLock struct {
	shards []chan struct{}
}

// NewKeyLock creates a lock pool with n shards.
func NewKeyLock(n int) *KeyLock {
	if n <= 0 {
		n = DefaultShards
	}
	l := &KeyLock{shards: make([]chan struct{}, n)}
	for i := range l.shards {
		l.shards[i] = make(chan struct{}, 1)
	}
	return l
}

// Lock blocks until key's shard is free or ctx is done. On success the
// caller must call the returned unlock exactly once.
func (l *KeyLock) Lock(ctx context.Context, key string) (unlock func(), err error) {
	ch := l.shards[l.shard(key)]
	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Do runs fn while holding key's lock.
func (l *KeyLock) Do(ctx context.Context, key string, fn func(context.Context) error) error {
	unlock, err := l.Lock(ctx, key)
	if err != nil {
		return err
	}
	defer unlock()
	return fn(ctx)
}

func (l *KeyLock) shard(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % uint32(len(l.shards))
}
