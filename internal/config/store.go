package config

import "sync"

// Store holds the current limit thresholds behind a mutex. The external
// configuration collaborator replaces the record through Replace; the
// decision cycle reads an immutable copy per tick and never sees a
// half-written update.
type Store struct {
	mu     sync.RWMutex
	limits Limits
}

// NewStore creates a Store with validated initial limits.
func NewStore(l Limits) (*Store, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return &Store{limits: l}, nil
}

// Limits returns the current threshold snapshot.
func (s *Store) Limits() Limits {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.limits
}

// Replace swaps in a new threshold record. On validation failure the
// prior record is retained and the error surfaced to the caller.
func (s *Store) Replace(l Limits) error {
	if err := l.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.limits = l
	s.mu.Unlock()
	return nil
}
