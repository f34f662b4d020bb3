package keylock

import "sync"

// Mutex provides mutual exclusion per string key. It guarantees that at most
// one caller holds the lock for a given key at any time while callers for
// distinct keys proceed independently. Entries are reference counted and
// removed once the last holder releases them, so the map does not grow with
// the number of keys seen over the process lifetime.
type Mutex struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// New creates a new keyed mutex.
func New() *Mutex {
	return &Mutex{locks: map[string]*entry{}}
}

// Lock acquires the lock for the supplied key, blocking until it is available.
func (m *Mutex) Lock(key string) {
	m.mu.Lock()
	e, ok := m.locks[key]
	if !ok {
		e = &entry{}
		m.locks[key] = e
	}
	e.refs++
	m.mu.Unlock()
	e.mu.Lock()
}

// Unlock releases the lock for the supplied key. Unlocking a key that is not
// held is a programming error and panics, mirroring sync.Mutex semantics.
func (m *Mutex) Unlock(key string) {
	m.mu.Lock()
	e, ok := m.locks[key]
	if !ok {
		m.mu.Unlock()
		panic("keylock: unlock of unlocked key " + key)
	}
	e.refs--
	if e.refs == 0 {
		delete(m.locks, key)
	}
	m.mu.Unlock()
	e.mu.Unlock()
}
