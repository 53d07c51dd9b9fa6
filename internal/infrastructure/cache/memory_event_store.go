package cache

import (
	"context"
	"sync"
	"time"

	"github.com/blibbers/vibekit/internal/domain/shared"
)

// MemoryEventStore keeps processed event ids in process memory.
// State is not shared between instances.
type MemoryEventStore struct {
	mu        sync.Mutex
	expiries  map[string]time.Time
	now       func() time.Time
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

var _ shared.IdempotencyStore = (*MemoryEventStore)(nil)

// NewMemoryEventStore starts a store that sweeps expired ids every sweepEvery.
// A non-positive interval disables the sweeper.
func NewMemoryEventStore(sweepEvery time.Duration) *MemoryEventStore {
	s := &MemoryEventStore{
		expiries: make(map[string]time.Time),
		now:      time.Now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if sweepEvery <= 0 {
		close(s.done)
		return s
	}
	go s.sweepLoop(sweepEvery)
	return s
}

func (s *MemoryEventStore) MarkProcessed(_ context.Context, eventID string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if exp, ok := s.expiries[eventID]; ok && now.Before(exp) {
		return false, nil
	}
	s.expiries[eventID] = now.Add(ttl)
	return true, nil
}

func (s *MemoryEventStore) IsProcessed(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.expiries[eventID]
	return ok && s.now().Before(exp), nil
}

// Len returns the number of tracked ids, expired or not
func (s *MemoryEventStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.expiries)
}

// Close stops the sweeper. Safe to call more than once.
func (s *MemoryEventStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		<-s.done
	})
	return nil
}

func (s *MemoryEventStore) sweepLoop(every time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *MemoryEventStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, exp := range s.expiries {
		if !now.Before(exp) {
			delete(s.expiries, id)
		}
	}
}
