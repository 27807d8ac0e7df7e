package journal

import (
	"context"
	"sync"
)

const defaultMemoryCapacity = 10000

// Memory keeps the most recent entries in process.
type Memory struct {
	mu       sync.Mutex
	entries  []Entry
	capacity int
}

func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	return &Memory{capacity: capacity}
}

func (m *Memory) Record(_ context.Context, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	if over := len(m.entries) - m.capacity; over > 0 {
		m.entries = append([]Entry(nil), m.entries[over:]...)
	}
	return nil
}

// Recent returns newest first.
func (m *Memory) Recent(_ context.Context, componentName string, limit int) ([]Entry, error) {
	limit = clampLimit(limit)
	m.mu.Lock()
	defer m.mu.Unlock()
	results := []Entry{}
	for i := len(m.entries) - 1; i >= 0 && len(results) < limit; i-- {
		if m.entries[i].ComponentName == componentName {
			results = append(results, m.entries[i])
		}
	}
	return results, nil
}

func (m *Memory) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...)
}

func (m *Memory) Close() {}
