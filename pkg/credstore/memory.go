package credstore

import "sync"

// MemoryStore is an in-memory Store. It is always available and serves both
// as the fallback when durable storage cannot be used and as the test double.
type MemoryStore struct {
	mu      sync.RWMutex
	creds   map[Kind]string
	profile []byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{creds: make(map[Kind]string)}
}

func (s *MemoryStore) Save(kind Kind, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[kind] = value
}

func (s *MemoryStore) Read(kind Kind) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.creds[kind]
	return v, ok
}

func (s *MemoryStore) SaveProfile(raw []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Copy so later caller mutations don't leak into the store.
	s.profile = append([]byte(nil), raw...)
}

func (s *MemoryStore) Profile() ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return nil, false
	}
	return append([]byte(nil), s.profile...), true
}

func (s *MemoryStore) HasProfile() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile != nil
}

func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.creds)
	s.profile = nil
}
