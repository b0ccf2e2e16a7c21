package locks

import (
	"sync"
	"sync/atomic"
)

// Latch runs a build function at most once successfully. A failed build
// leaves the latch open so a later caller can try again.
type Latch struct {
	mu    sync.Mutex
	done  atomic.Bool
	value any
}

func (l *Latch) Do(build func() (any, error)) (any, error) {
	if l.done.Load() {
		return l.value, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.done.Load() {
		return l.value, nil
	}

	v, err := build()
	if err != nil {
		return nil, err
	}

	l.value = v
	l.done.Store(true)
	return v, nil
}

func (l *Latch) Done() bool {
	return l.done.Load()
}
