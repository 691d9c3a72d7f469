package stats

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/paiml/rosetta-ruchy-sub000/internal/domain"
	"github.com/paiml/rosetta-ruchy-sub000/internal/service/cache"
)

func completed(lang string) Outcome {
	return Outcome{
		RequestID: "req-" + lang,
		Language:  lang,
		State:     domain.StateCompleted,
		Duration:  40 * time.Millisecond,
		BigO:      "O(n)",
	}
}

func TestMemoryStoreAggregates(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	_ = m.Write(ctx, completed("python"))
	_ = m.Write(ctx, completed("python"))
	_ = m.Write(ctx, Outcome{
		Language:  "rust",
		State:     domain.StateFailed,
		ErrorCode: "PARSE_ERROR",
		Duration:  10 * time.Millisecond,
		Degraded:  []domain.AnalyzerName{domain.AnalyzerQuality},
	})

	s, err := m.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if s.Total != 3 || s.Completed != 2 || s.Failed != 1 || s.Degraded != 1 {
		t.Fatalf("unexpected totals %+v", s)
	}
	if s.Languages["python"] != 2 || s.Errors["PARSE_ERROR"] != 1 || s.Analyzers["quality"] != 1 || s.BigO["O(n)"] != 2 {
		t.Fatalf("unexpected breakdown %+v", s)
	}
	if s.AvgDurationMS != 30 {
		t.Fatalf("avg duration = %v, want 30", s.AvgDurationMS)
	}
}

type fakeBackend struct {
	mu     sync.Mutex
	hashes map[string]map[string]int64
	fail   error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{hashes: make(map[string]map[string]int64)}
}

func (f *fakeBackend) IncrementMany(_ context.Context, incs []cache.HashIncrement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	for _, inc := range incs {
		if f.hashes[inc.Key] == nil {
			f.hashes[inc.Key] = make(map[string]int64)
		}
		f.hashes[inc.Key][inc.Field] += inc.Delta
	}
	return nil
}

func (f *fakeBackend) HGetAll(_ context.Context, key string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]string{}
	for k, v := range f.hashes[key] {
		out[k] = strconv.FormatInt(v, 10)
	}
	return out, nil
}

func TestRedisStoreUsesPrefixedHashes(t *testing.T) {
	backend := newFakeBackend()
	r := NewRedisStore(backend)
	ctx := context.Background()

	if err := r.Write(ctx, completed("go")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if backend.hashes["rosetta:stats:languages"]["go"] != 1 {
		t.Fatalf("unexpected keys %+v", backend.hashes)
	}

	s, err := r.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if s.Total != 1 || s.Completed != 1 || s.Languages["go"] != 1 {
		t.Fatalf("unexpected snapshot %+v", s)
	}
}

type countingSink struct {
	mu    sync.Mutex
	name  string
	count int
	err   error
	delay time.Duration
}

func (c *countingSink) Name() string { return c.name }

func (c *countingSink) Write(context.Context, Outcome) error {
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	return c.err
}

func (c *countingSink) writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

func TestDispatcherDeliversToEverySink(t *testing.T) {
	a := &countingSink{name: "a"}
	b := &countingSink{name: "b"}
	d := NewDispatcher(16, zap.NewNop(), a, b)

	for i := 0; i < 5; i++ {
		if !d.Submit(completed("c")) {
			t.Fatalf("submit %d rejected", i)
		}
	}
	d.Close()

	if a.writes() != 5 || b.writes() != 5 {
		t.Fatalf("expected 5 writes each, got %d and %d", a.writes(), b.writes())
	}
	if d.Submit(completed("c")) {
		t.Fatalf("submit after close must be rejected")
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	slow := &countingSink{name: "slow", delay: 50 * time.Millisecond}
	d := NewDispatcher(1, zap.NewNop(), slow)
	defer d.Close()

	accepted := 0
	for i := 0; i < 20; i++ {
		if d.Submit(completed("c")) {
			accepted++
		}
	}
	if accepted == 20 {
		t.Fatalf("a full queue should drop outcomes")
	}
}

func TestDispatcherOpensCircuitOnFailingSink(t *testing.T) {
	broken := &countingSink{name: "broken", err: errors.New("down")}
	d := NewDispatcher(32, zap.NewNop(), broken)

	for i := 0; i < 10; i++ {
		d.Submit(completed("c"))
	}
	d.Close()

	if got := broken.writes(); got != 3 {
		t.Fatalf("expected writes to stop at the failure threshold, got %d", got)
	}
}

func TestReporterRejectsBadSchedule(t *testing.T) {
	if _, err := NewReporter("every now and then", NewMemoryStore(), zap.NewNop()); err == nil {
		t.Fatalf("expected schedule error")
	}

	r, err := NewReporter("@every 1h", NewMemoryStore(), zap.NewNop())
	if err != nil {
		t.Fatalf("NewReporter: %v", err)
	}
	r.Start()
	r.report()
	r.Stop()
}
