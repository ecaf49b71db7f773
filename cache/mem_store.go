package cache

import (
	"sync"
	"time"
)

// MemStore is an in-process Store, mainly for tests.
type MemStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
}

type memEntry struct {
	body     []byte
	modified time.Time
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{entries: make(map[string]memEntry)}
}

func (m *MemStore) Lookup(url string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[url]
	return entry.modified, ok
}

func (m *MemStore) Load(url string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[url]
	if !ok {
		return nil, false
	}
	body := make([]byte, len(entry.body))
	copy(body, entry.body)
	return body, true
}

func (m *MemStore) Put(url string, body []byte, modified time.Time) error {
	clone := make([]byte, len(body))
	copy(clone, body)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[url] = memEntry{body: clone, modified: modified}
	return nil
}
