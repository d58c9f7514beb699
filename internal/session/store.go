package session

import (
	"sync"

	"github.com/forwardme/checkout-gateway/internal/checkout"
)

// Store keeps live checkout sessions in memory. Sessions are deliberately not
// persisted anywhere: everything durable belongs to the upstream API.
type Store struct {
	mu sync.RWMutex
	m  map[string]checkout.Session
}

func New() *Store {
	return &Store{m: make(map[string]checkout.Session, 64)}
}

func (s *Store) Get(id string) (checkout.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.m[id]
	return sess, ok
}

func (s *Store) Set(id string, sess checkout.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[id] = sess
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, id)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}
