package orchestrator

import (
	"sort"
	"sync"
)

// keyedMutex serializes writers per canonical entity id so concurrent
// workers touching the same entity cannot interleave event appends.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}

// LockAll acquires every key in sorted order (so two workers locking
// overlapping sets cannot deadlock) and returns the unlock function.
func (k *keyedMutex) LockAll(keys []string) func() {
	uniq := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		if key != "" && !seen[key] {
			seen[key] = true
			uniq = append(uniq, key)
		}
	}
	sort.Strings(uniq)
	held := make([]*sync.Mutex, 0, len(uniq))
	for _, key := range uniq {
		m := k.get(key)
		m.Lock()
		held = append(held, m)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
