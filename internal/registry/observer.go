package registry

import (
	"iter"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"
)

// SingleObserver tracks the builder a single-valued lookup would currently
// pick. The registry refreshes it synchronously whenever the contract's
// builders change.
type SingleObserver struct {
	registry *Registry
	contract reflect.Type
	target   TargetInfo

	current  atomic.Pointer[ObjectBuilder]
	onChange func(*ObjectBuilder)
	closed   atomic.Bool
}

func (o *SingleObserver) Contract() reflect.Type {
	return o.contract
}

// Current returns the bound builder, or nil when nothing matches.
func (o *SingleObserver) Current() *ObjectBuilder {
	return o.current.Load()
}

// refresh must be called with the registry lock held.
func (o *SingleObserver) refresh() {
	next := o.registry.selectLocked(o.contract, o.target)
	prev := o.current.Swap(next)
	if prev != next && o.onChange != nil {
		o.onChange(next)
	}
}

func (o *SingleObserver) Close() {
	if o.closed.Swap(true) {
		return
	}
	o.registry.removeSingle(o)
}

// CollectionObserver is the live, ranked membership of one collection
// dependency. Members are ordered by ranking; equal rankings keep
// registration order.
type CollectionObserver struct {
	registry *Registry
	contract reflect.Type
	target   TargetInfo

	mu      sync.RWMutex
	members []*ObjectBuilder
	closed  atomic.Bool
}

func (o *CollectionObserver) Contract() reflect.Type {
	return o.contract
}

func (o *CollectionObserver) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.members)
}

// At returns the member at index i, or nil when i is out of range.
func (o *CollectionObserver) At(i int) *ObjectBuilder {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if i < 0 || i >= len(o.members) {
		return nil
	}
	return o.members[i]
}

// All yields the live members in ranked order. The observer is locked for
// each step only, so callers may build instances while iterating. Builders
// that became obsolete are skipped.
func (o *CollectionObserver) All() iter.Seq[*ObjectBuilder] {
	return func(yield func(*ObjectBuilder) bool) {
		for i := 0; ; i++ {
			b := o.At(i)
			if b == nil {
				return
			}
			if b.Obsolete() {
				continue
			}
			if !yield(b) {
				return
			}
		}
	}
}

func (o *CollectionObserver) insert(b *ObjectBuilder) {
	if !b.Matches(o.target) {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	// stable: after every member ranked at or below b
	pos := len(o.members)
	for i, m := range o.members {
		if m.Ranking() > b.Ranking() {
			pos = i
			break
		}
	}
	o.members = slices.Insert(o.members, pos, b)
}

func (o *CollectionObserver) remove(b *ObjectBuilder) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.members = slices.DeleteFunc(o.members, func(m *ObjectBuilder) bool { return m == b })
}

func (o *CollectionObserver) Close() {
	if o.closed.Swap(true) {
		return
	}
	o.registry.removeCollection(o)
}
