package state

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStorage keeps pending requests in process memory. Entries older than ttl are
// discarded lazily on Get in addition to the Cleaner sweep.
type MemoryStorage struct {
	mu      sync.Mutex
	entries map[string]*PendingRequest
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStorage returns an empty in-memory Storage.
func NewMemoryStorage(ttl time.Duration) *MemoryStorage {
	return &MemoryStorage{
		entries: make(map[string]*PendingRequest),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns a copy of the stored request or ErrStateNotFound when absent or expired.
func (s *MemoryStorage) Get(_ context.Context, userID string) (*PendingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.entries[userID]
	if !ok {
		return nil, ErrStateNotFound
	}

	if p.Expired(s.ttl, s.now()) {
		delete(s.entries, userID)
		return nil, ErrStateNotFound
	}

	return p.clone(), nil
}

// Set stores a copy of p stamped with the current time.
func (s *MemoryStorage) Set(_ context.Context, p *PendingRequest) error {
	if p == nil {
		return ErrStateNotFound
	}

	stored := p.clone()
	stored.UpdatedAt = s.now().UTC()

	s.mu.Lock()
	s.entries[p.UserID] = stored
	s.mu.Unlock()

	p.UpdatedAt = stored.UpdatedAt
	return nil
}

// Delete removes the user's pending request.
func (s *MemoryStorage) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	delete(s.entries, userID)
	s.mu.Unlock()
	return nil
}

// List returns copies of all entries ordered by user id, expired ones included.
func (s *MemoryStorage) List(_ context.Context) ([]*PendingRequest, error) {
	s.mu.Lock()
	result := make([]*PendingRequest, 0, len(s.entries))
	for _, p := range s.entries {
		result = append(result, p.clone())
	}
	s.mu.Unlock()

	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result, nil
}
