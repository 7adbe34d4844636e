package session

import (
	"sync"
	"time"
)

// MemoryManager holds sessions in process memory.
type MemoryManager struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]*memoryEntry
}

type memoryEntry struct {
	values  map[string]string
	touched time.Time
}

// NewMemoryManager returns a manager whose sessions expire after ttl of
// inactivity. A non-positive ttl uses DefaultTTL.
func NewMemoryManager(ttl time.Duration) *MemoryManager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryManager{ttl: ttl, now: time.Now, sessions: make(map[string]*memoryEntry)}
}

func (m *MemoryManager) Load(id string) (Store, error) {
	if !ValidID(id) {
		return nil, ErrInvalidID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	e, ok := m.sessions[id]
	if !ok || now.Sub(e.touched) > m.ttl {
		e = &memoryEntry{values: make(map[string]string)}
		m.sessions[id] = e
	}
	e.touched = now
	return &memoryStore{m: m, id: id}, nil
}

func (m *MemoryManager) Destroy(id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

// Sweep drops sessions idle longer than the ttl.
func (m *MemoryManager) Sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for id, e := range m.sessions {
		if now.Sub(e.touched) > m.ttl {
			delete(m.sessions, id)
		}
	}
}

// Len returns the number of live sessions.
func (m *MemoryManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

type memoryStore struct {
	m  *MemoryManager
	id string
}

// entry returns the backing entry, recreating it if it was swept or
// destroyed while the store was held.
func (s *memoryStore) entry() *memoryEntry {
	e, ok := s.m.sessions[s.id]
	if !ok {
		e = &memoryEntry{values: make(map[string]string)}
		s.m.sessions[s.id] = e
	}
	e.touched = s.m.now()
	return e
}

func (s *memoryStore) Get(key string) (string, bool) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	v, ok := s.entry().values[key]
	return v, ok
}

func (s *memoryStore) Set(key, value string) error {
	s.m.mu.Lock()
	s.entry().values[key] = value
	s.m.mu.Unlock()
	return nil
}

func (s *memoryStore) Delete(key string) error {
	s.m.mu.Lock()
	delete(s.entry().values, key)
	s.m.mu.Unlock()
	return nil
}

func (s *memoryStore) Clear() error {
	s.m.mu.Lock()
	s.entry().values = make(map[string]string)
	s.m.mu.Unlock()
	return nil
}
