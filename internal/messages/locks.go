package messages

import "sync"

// PairLocks serializes writers of the same conversation. Entries are
// reference counted and removed once nobody holds or waits for them.
type PairLocks struct {
	mu    sync.Mutex
	locks map[string]*pairLock
}

type pairLock struct {
	mu   sync.Mutex
	refs int
}

func NewPairLocks() *PairLocks {
	return &PairLocks{locks: make(map[string]*pairLock)}
}

// Lock blocks until the conversation between a and b is free and returns
// the matching unlock.
func (p *PairLocks) Lock(a, b string) (unlock func()) {
	key := PairKey(a, b)

	p.mu.Lock()
	l, ok := p.locks[key]
	if !ok {
		l = &pairLock{}
		p.locks[key] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, key)
		}
		p.mu.Unlock()
	}
}

func (p *PairLocks) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.locks)
}
