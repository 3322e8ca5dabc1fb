package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const sweepInterval = 5 * time.Minute

// CounterStore atomically bumps a per-key counter inside a fixed window and
// reports the new count plus time left in the window. The first increment of
// a window starts it.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int, remaining time.Duration, err error)
	Close()
}

type Decision struct {
	Allowed    bool
	Count      int
	RetryAfter time.Duration
}

// Limiter enforces a request budget per origin over a fixed window.
// Store failures fail open: availability of login beats strictness here, and
// the failure is logged.
type Limiter struct {
	store  CounterStore
	budget int
	window time.Duration
	log    *zap.Logger
}

func New(store CounterStore, budget int, window time.Duration, log *zap.Logger) *Limiter {
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{store: store, budget: budget, window: window, log: log}
}

func (l *Limiter) Allow(ctx context.Context, key string) Decision {
	if l.budget <= 0 {
		return Decision{Allowed: true}
	}
	count, remaining, err := l.store.Incr(ctx, key, l.window)
	if err != nil {
		if l.log != nil {
			l.log.Error("rate limit store error", zap.Error(err))
		}
		return Decision{Allowed: true}
	}
	return Decision{
		Allowed:    count <= l.budget,
		Count:      count,
		RetryAfter: remaining,
	}
}

func (l *Limiter) Close() { l.store.Close() }

// MemoryStore keeps per-process counters. Entries whose window lapsed are
// reset on next increment and swept periodically.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]windowState
	stopCh  chan struct{}
	once    sync.Once

	now func() time.Time // overridable in tests
}

type windowState struct {
	count     int
	windowEnd time.Time
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]windowState),
		stopCh:  make(chan struct{}),
		now:     time.Now,
	}
	go s.sweepLoop()
	return s
}

func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int, time.Duration, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.entries[key]
	if !ok || now.After(state.windowEnd) {
		state = windowState{count: 1, windowEnd: now.Add(window)}
		s.entries[key] = state
		return 1, window, nil
	}
	state.count++
	s.entries[key] = state
	return state.count, state.windowEnd.Sub(now), nil
}

func (s *MemoryStore) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.cleanup(s.now())
		case <-s.stopCh:
			return
		}
	}
}

func (s *MemoryStore) cleanup(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, state := range s.entries {
		if now.After(state.windowEnd) {
			delete(s.entries, key)
		}
	}
}

func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.stopCh) })
}
