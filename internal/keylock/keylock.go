// Package keylock serializes work per key inside one process.
package keylock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// Locker hands out one mutex per key. Idle keys are dropped so the map does
// not grow with every component ever seen.
type Locker struct {
	mu      sync.Mutex
	entries map[int]*entry
}

func New() *Locker {
	return &Locker{entries: map[int]*entry{}}
}

// Lock blocks until key is free and returns the function that releases it.
func (l *Locker) Lock(key int) func() {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.entries, key)
		}
		l.mu.Unlock()
	}
}

func (l *Locker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
