package cache

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	data    []byte
	expires time.Time
	seq     uint64
}

// Memory is an in-process cache bounded by entry count. When full, the
// oldest inserted entry is evicted.
type Memory struct {
	mu         sync.Mutex
	entries    map[string]memEntry
	ttl        time.Duration
	maxEntries int
	seq        uint64
	now        func() time.Time
}

// NewMemory returns a Memory cache. ttl <= 0 disables expiry and
// maxEntries <= 0 means 256.
func NewMemory(ttl time.Duration, maxEntries int) *Memory {
	if maxEntries <= 0 {
		maxEntries = 256
	}
	return &Memory{
		entries:    make(map[string]memEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns a copy of the stored bytes.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, ErrMiss
	}
	if !e.expires.IsZero() && m.now().After(e.expires) {
		delete(m.entries, key)
		return nil, ErrMiss
	}
	return append([]byte(nil), e.data...), nil
}

// Set stores a copy of data.
func (m *Memory) Set(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.maxEntries {
		m.evictOldest()
	}
	m.seq++
	e := memEntry{data: append([]byte(nil), data...), seq: m.seq}
	if m.ttl > 0 {
		e.expires = m.now().Add(m.ttl)
	}
	m.entries[key] = e
	return nil
}

func (m *Memory) evictOldest() {
	var (
		oldestKey string
		oldestSeq uint64
		found     bool
	)
	for k, e := range m.entries {
		if !found || e.seq < oldestSeq {
			oldestKey, oldestSeq, found = k, e.seq, true
		}
	}
	if found {
		delete(m.entries, oldestKey)
	}
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Close drops every entry.
func (m *Memory) Close() error {
	m.mu.Lock()
	m.entries = make(map[string]memEntry)
	m.mu.Unlock()
	return nil
}
