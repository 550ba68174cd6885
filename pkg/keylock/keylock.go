package keylock

import "sync"

// Map hands out one mutex per key and forgets keys nobody holds or waits on.
type Map struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func New() *Map {
	return &Map{locks: make(map[string]*entry)}
}

// Lock blocks until key is free and returns the matching unlock.
func (m *Map) Lock(key string) (unlock func()) {
	m.mu.Lock()
	e, ok := m.locks[key]
	if !ok {
		e = &entry{}
		m.locks[key] = e
	}
	e.refs++
	m.mu.Unlock()

	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			m.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(m.locks, key)
			}
			m.mu.Unlock()
		})
	}
}

func (m *Map) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
