package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local Store for single-instance deployments. It is
// concurrency-safe. A janitor drops lapsed entries once a minute; reads never
// return them either way.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	clock   func() time.Time
	ticker  *time.Ticker
	done    chan struct{}
	once    sync.Once
}

type memoryEntry struct {
	value     []byte
	count     int64
	expiresAt time.Time
}

// NewMemoryStore constructs a memory-backed Store and starts its janitor.
func NewMemoryStore() *MemoryStore {
	store := &MemoryStore{
		entries: make(map[string]*memoryEntry),
		clock:   time.Now,
		ticker:  time.NewTicker(time.Minute),
		done:    make(chan struct{}),
	}

	go store.janitor()
	return store
}

// Close stops the janitor.
func (s *MemoryStore) Close() {
	s.once.Do(func() {
		s.ticker.Stop()
		close(s.done)
	})
}

func (s *MemoryStore) janitor() {
	for {
		select {
		case <-s.done:
			return
		case <-s.ticker.C:
			s.purgeExpired()
		}
	}
}

func (s *MemoryStore) purgeExpired() {
	now := s.clock()
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, entry := range s.entries {
		if entry.lapsed(now) {
			delete(s.entries, key)
		}
	}
}

func (e *memoryEntry) lapsed(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// IncrementWithTTL bumps the counter behind key. The window is fixed: it
// starts at the first hit and later hits do not extend it.
func (s *MemoryStore) IncrementWithTTL(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}

	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || entry.lapsed(now) {
		entry = &memoryEntry{expiresAt: now.Add(window)}
		s.entries[key] = entry
	}
	entry.count++

	return entry.count, entry.expiresAt.Sub(now), nil
}

// Set stores value behind key. A non-positive ttl keeps it until overwritten.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	now := s.clock()

	entry := &memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry
	return nil
}

// Get retrieves the value behind key, reporting whether it was present.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if entry.lapsed(now) {
		delete(s.entries, key)
		return nil, false, nil
	}

	return append([]byte(nil), entry.value...), true, nil
}

// Delete removes keys from the store.
func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.entries, key)
	}
	return nil
}
