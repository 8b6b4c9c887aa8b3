package utils

import (
	"sync"
	"time"
)

// ttlSet is the in-process fallback for short lived markers when Redis is down.
type ttlSet struct {
	mu    sync.Mutex
	items map[string]time.Time
}

func newTTLSet() *ttlSet {
	return &ttlSet{items: map[string]time.Time{}}
}

func (s *ttlSet) add(key string, expiresAt time.Time) {
	s.mu.Lock()
	s.items[key] = expiresAt
	s.mu.Unlock()
}

func (s *ttlSet) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.items[key]
	if !ok {
		return false
	}
	if time.Now().After(exp) {
		delete(s.items, key)
		return false
	}
	return true
}

// take reports whether key was present and unexpired, removing it either way.
func (s *ttlSet) take(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.items[key]
	if ok {
		delete(s.items, key)
	}
	return ok && time.Now().Before(exp)
}
