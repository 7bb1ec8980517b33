// Package memory provides short-lived storage of recently generated plans so
// HTTP callers can re-fetch a result without re-running generation.
package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record holds one generated plan alongside the profile that produced it.
type Record struct {
	ID        string
	Profile   string
	Plan      string
	CreatedAt time.Time
}

// Store provides in-memory plan storage with a bounded entry count and TTL.
// For production, consider Redis for persistence across restarts.
type Store struct {
	mu         sync.RWMutex
	records    map[string]Record
	order      []string // insertion order, oldest first
	maxRecords int
	ttl        time.Duration
}

// NewStore creates a plan store keeping at most maxRecords entries, each
// expiring ttl after creation.
func NewStore(maxRecords int, ttl time.Duration) *Store {
	s := &Store{
		records:    make(map[string]Record),
		maxRecords: maxRecords,
		ttl:        ttl,
	}

	// Start cleanup goroutine
	go s.cleanupLoop()

	return s
}

// DefaultStore creates a store with sensible defaults.
// - Max 100 plans kept
// - 1 hour TTL
func DefaultStore() *Store {
	return NewStore(100, 1*time.Hour)
}

// Put stores a generated plan and returns its assigned ID.
func (s *Store) Put(profile, planText string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	s.records[id] = Record{
		ID:        id,
		Profile:   profile,
		Plan:      planText,
		CreatedAt: time.Now(),
	}
	s.order = append(s.order, id)

	// Evict oldest entries when exceeding the bound
	for len(s.order) > s.maxRecords {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.records, oldest)
	}

	return id
}

// Get returns the stored plan for id, if present and not expired.
func (s *Store) Get(id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return Record{}, false
	}
	if time.Since(rec.CreatedAt) > s.ttl {
		return Record{}, false
	}
	return rec, true
}

// Len reports the number of stored records, expired ones included until the
// next cleanup pass.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// cleanupLoop periodically removes expired plans.
func (s *Store) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		s.cleanup()
	}
}

func (s *Store) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	kept := s.order[:0]
	for _, id := range s.order {
		rec, ok := s.records[id]
		if !ok {
			continue
		}
		if now.Sub(rec.CreatedAt) > s.ttl {
			delete(s.records, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
}
