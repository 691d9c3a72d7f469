package stats

import (
	"context"
	"sync"

	"github.com/paiml/rosetta-ruchy-sub000/internal/constants"
	"github.com/paiml/rosetta-ruchy-sub000/internal/service/cache"
)

// MemoryStore keeps counters in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	hashes map[string]map[string]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{hashes: make(map[string]map[string]int64)}
}

func (m *MemoryStore) Name() string { return "memory" }

func (m *MemoryStore) Write(_ context.Context, o Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range counters(o) {
		h, ok := m.hashes[c.hash]
		if !ok {
			h = make(map[string]int64)
			m.hashes[c.hash] = h
		}
		h[c.field] += c.delta
	}
	return nil
}

func (m *MemoryStore) Snapshot(context.Context) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return snapshotFrom(m.hashes), nil
}

// HashBackend is the subset of the Redis cache service used for counters.
type HashBackend interface {
	IncrementMany(ctx context.Context, incs []cache.HashIncrement) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// RedisStore keeps counters in Redis hashes shared by every instance.
type RedisStore struct {
	backend HashBackend
	prefix  string
}

func NewRedisStore(backend HashBackend) *RedisStore {
	return &RedisStore{backend: backend, prefix: constants.StatsKeys.Prefix}
}

func (r *RedisStore) Name() string { return "redis" }

func (r *RedisStore) key(hash string) string {
	return r.prefix + ":" + hash
}

func (r *RedisStore) Write(ctx context.Context, o Outcome) error {
	cs := counters(o)
	incs := make([]cache.HashIncrement, 0, len(cs))
	for _, c := range cs {
		incs = append(incs, cache.HashIncrement{Key: r.key(c.hash), Field: c.field, Delta: c.delta})
	}
	return r.backend.IncrementMany(ctx, incs)
}

func (r *RedisStore) Snapshot(ctx context.Context) (Snapshot, error) {
	hashes := make(map[string]map[string]int64)
	for _, h := range []string{hashTotals, hashLanguages, hashErrors, hashAnalyzers, hashBigO} {
		values, err := r.backend.HGetAll(ctx, r.key(h))
		if err != nil {
			return Snapshot{}, err
		}
		hashes[h] = parseHash(values)
	}
	return snapshotFrom(hashes), nil
}
