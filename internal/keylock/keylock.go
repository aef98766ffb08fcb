// Package keylock serialises in-process work per key.
package keylock

import "sync"

// Map hands out one mutex per key. Entries are dropped once unused.
type Map struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

// New returns an empty Map.
func New() *Map {
	return &Map{locks: make(map[string]*refMutex)}
}

// Key joins a tenant and an entity ID into one lock key.
func Key(tenantID, id string) string {
	return tenantID + "\x00" + id
}

// Lock blocks until key is free and returns the matching unlock.
func (k *Map) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// Len reports how many keys are currently held or awaited.
func (k *Map) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
