package cache

import "sync"

// Memory is an in-process Store used in tests and when caching is
// disabled persistence-wise but hash dedup within one run still helps.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]Entry)}
}

func (m *Memory) Get(hash string) (Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[hash]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

func (m *Memory) Put(hash string, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[hash] = entry
	return nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *Memory) Close() error { return nil }
