package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	data      Data
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory. Expired entries are
// dropped lazily on access.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Data, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, id)
		return nil, ErrNotFound
	}

	data := entry.data
	data.Flashes = append([]Flash(nil), entry.data.Flashes...)
	return &data, nil
}

func (s *MemoryStore) Save(_ context.Context, id string, data *Data) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *data
	stored.Flashes = append([]Flash(nil), data.Flashes...)
	s.entries[id] = memoryEntry{
		data:      stored,
		expiresAt: s.now().Add(s.ttl),
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, id)
	return nil
}
