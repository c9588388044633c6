package service

import "sync"

// keyedMutex serializes transitions per correlation key so a webhook and a
// poll landing in the same instant cannot both fire side effects. Entries are
// reference counted and removed once the last holder unlocks.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

func (k *keyedMutex) Lock(key string) {
	k.mu.Lock()
	entry := k.locks[key]
	if entry == nil {
		entry = &keyedLock{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
}

func (k *keyedMutex) Unlock(key string) {
	k.mu.Lock()
	entry := k.locks[key]
	if entry != nil {
		entry.refs--
		if entry.refs <= 0 {
			delete(k.locks, key)
		}
	}
	k.mu.Unlock()

	if entry != nil {
		entry.mu.Unlock()
	}
}
