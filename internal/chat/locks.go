package chat

import "sync"

// pairLocks serializes read-modify-write cycles per pair key. The lock is held
// across load, mutate, persist and preview recomputation; fanout runs after
// release.
type pairLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newPairLocks() *pairLocks {
	return &pairLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for a pair key and returns its unlock func.
func (p *pairLocks) Lock(pairKey string) func() {
	p.mu.Lock()
	lock, ok := p.locks[pairKey]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[pairKey] = lock
	}
	p.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
