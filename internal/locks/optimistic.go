package locks

import (
	"sync"
	"sync/atomic"
)

// Optimistic is a reader/writer lock with a sequence stamp. Writers bump the
// stamp on entry and exit, so an odd stamp means a write is in progress and a
// changed stamp means the protected state moved on. Readers that cached
// something derived from the state keep the stamp and call Validate instead
// of locking.
type Optimistic struct {
	mu  sync.RWMutex
	seq atomic.Uint64
}

func (l *Optimistic) Lock() {
	l.mu.Lock()
	l.seq.Add(1)
}

func (l *Optimistic) Unlock() {
	l.seq.Add(1)
	l.mu.Unlock()
}

func (l *Optimistic) RLock() {
	l.mu.RLock()
}

func (l *Optimistic) RUnlock() {
	l.mu.RUnlock()
}

func (l *Optimistic) Stamp() uint64 {
	return l.seq.Load()
}

func (l *Optimistic) Validate(stamp uint64) bool {
	return stamp&1 == 0 && l.seq.Load() == stamp
}
