// Package registry is the dynamic map from contract type to the builders
// able to satisfy it, with live observers for single and collection lookups.
package registry

import (
	"reflect"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jingyiliu/injector/internal/errs"
	"github.com/jingyiliu/injector/internal/locks"
	"github.com/jingyiliu/injector/internal/typeinfo"
)

type State int

const (
	StateFound State = iota
	StateNotRegistered
	StateConditionMismatch
)

func (s State) String() string {
	switch s {
	case StateFound:
		return "found"
	case StateNotRegistered:
		return "not registered"
	case StateConditionMismatch:
		return "condition mismatch"
	default:
		return "unknown"
	}
}

// NotFoundHandler is asked to supply builders for a contract that has none.
// It reports whether it registered anything, in which case the lookup is
// retried once.
type NotFoundHandler func(contract reflect.Type) (bool, error)

type entry struct {
	builders    []*ObjectBuilder
	singles     map[*SingleObserver]struct{}
	collections map[*CollectionObserver]struct{}
}

func (e *entry) idle() bool {
	return len(e.builders) == 0 && len(e.singles) == 0 && len(e.collections) == 0
}

type Registry struct {
	lock    locks.Optimistic
	entries map[reflect.Type]*entry
	seq     uint64
	logger  zerolog.Logger

	hooksMu       sync.RWMutex
	notFound      []NotFoundHandler
	onActivated   []func(*ObjectBuilder)
	onDeactivated []func(*ObjectBuilder)
}

func New(logger zerolog.Logger) *Registry {
	return &Registry{
		entries: make(map[reflect.Type]*entry),
		logger:  logger,
	}
}

// Stamp returns the structural version. It changes on every mutation.
func (r *Registry) Stamp() uint64 {
	return r.lock.Stamp()
}

// Validate reports whether nothing was registered or unregistered since
// stamp was taken.
func (r *Registry) Validate(stamp uint64) bool {
	return r.lock.Validate(stamp)
}

func (r *Registry) AddNotFoundHandler(h NotFoundHandler) {
	r.hooksMu.Lock()
	defer r.hooksMu.Unlock()
	r.notFound = append(r.notFound, h)
}

// OnActivated registers fn to run after every successful Register.
func (r *Registry) OnActivated(fn func(*ObjectBuilder)) {
	r.hooksMu.Lock()
	defer r.hooksMu.Unlock()
	r.onActivated = append(r.onActivated, fn)
}

// OnDeactivated registers fn to run after every successful Unregister.
func (r *Registry) OnDeactivated(fn func(*ObjectBuilder)) {
	r.hooksMu.Lock()
	defer r.hooksMu.Unlock()
	r.onDeactivated = append(r.onDeactivated, fn)
}

func (r *Registry) entryLocked(contract reflect.Type) *entry {
	e, ok := r.entries[contract]
	if !ok {
		e = &entry{
			singles:     make(map[*SingleObserver]struct{}),
			collections: make(map[*CollectionObserver]struct{}),
		}
		r.entries[contract] = e
	}
	return e
}

// Register activates b. Observers of b's contract are updated before
// Register returns.
func (r *Registry) Register(b *ObjectBuilder) error {
	if b == nil {
		return errs.Precondition("builder must not be nil")
	}
	if b.Removed() {
		return errs.Precondition("builder %s was unregistered and cannot be registered again", b)
	}

	contract := b.Description().Contract()

	r.lock.Lock()
	e := r.entryLocked(contract)
	if slices.Contains(e.builders, b) {
		r.lock.Unlock()
		return errs.Precondition("builder %s is already registered", b)
	}
	for _, other := range e.builders {
		if other.Description().Equal(b.Description()) {
			r.lock.Unlock()
			return errs.Precondition("a builder for %s is already registered", b)
		}
	}

	r.seq++
	b.seq = r.seq
	first := len(e.builders) == 0
	e.builders = append(e.builders, b)

	if first {
		r.markDependentsLocked(contract, true)
	}
	for o := range e.singles {
		o.refresh()
	}
	for o := range e.collections {
		o.insert(b)
	}
	r.lock.Unlock()

	r.logger.Debug().
		Str("contract", typeinfo.Name(contract)).
		Str("concrete", typeinfo.Name(b.Description().Concrete())).
		Str("lifetime", b.Lifetime().String()).
		Int("ranking", b.Ranking()).
		Msg("builder registered")

	r.hooksMu.RLock()
	hooks := slices.Clone(r.onActivated)
	r.hooksMu.RUnlock()
	for _, fn := range hooks {
		fn(b)
	}
	return nil
}

// Unregister deactivates b and marks it obsolete. Every observer of b's
// contract is notified before Unregister returns.
func (r *Registry) Unregister(b *ObjectBuilder) error {
	if b == nil {
		return errs.Precondition("builder must not be nil")
	}

	r.lock.Lock()
	ok := r.unregisterLocked(b)
	r.lock.Unlock()

	if !ok {
		return errs.Precondition("builder %s is not registered", b)
	}

	r.deactivated(b)
	return nil
}

// UnregisterContract removes every builder of contract and returns them in
// registration order.
func (r *Registry) UnregisterContract(contract reflect.Type) []*ObjectBuilder {
	r.lock.Lock()
	var removed []*ObjectBuilder
	if e, ok := r.entries[contract]; ok {
		removed = slices.Clone(e.builders)
	}
	for _, b := range removed {
		r.unregisterLocked(b)
	}
	r.lock.Unlock()

	for _, b := range removed {
		r.deactivated(b)
	}
	return removed
}

func (r *Registry) unregisterLocked(b *ObjectBuilder) bool {
	contract := b.Description().Contract()
	e, ok := r.entries[contract]
	if !ok {
		return false
	}
	idx := slices.Index(e.builders, b)
	if idx < 0 {
		return false
	}

	e.builders = slices.Delete(e.builders, idx, idx+1)
	b.removed.Store(true)

	for o := range e.collections {
		o.remove(b)
	}
	if len(e.builders) == 0 {
		r.markDependentsLocked(contract, false)
	}
	for o := range e.singles {
		o.refresh()
	}
	if e.idle() {
		delete(r.entries, contract)
	}
	return true
}

func (r *Registry) deactivated(b *ObjectBuilder) {
	r.logger.Debug().
		Str("contract", typeinfo.Name(b.Description().Contract())).
		Str("concrete", typeinfo.Name(b.Description().Concrete())).
		Msg("builder unregistered")

	r.hooksMu.RLock()
	hooks := slices.Clone(r.onDeactivated)
	r.hooksMu.RUnlock()
	for _, fn := range hooks {
		fn(b)
	}
}

// markDependentsLocked flips the satisfied flag of contract on every builder
// that depends on it, then refreshes the single observers of the affected
// contracts since their preferred builder may have changed.
func (r *Registry) markDependentsLocked(contract reflect.Type, satisfied bool) {
	touched := make(map[reflect.Type]struct{})
	for c, e := range r.entries {
		for _, b := range e.builders {
			if slices.Contains(b.Dependencies(), contract) {
				b.SetDependencySatisfied(contract, satisfied)
				touched[c] = struct{}{}
			}
		}
	}
	for c := range touched {
		if c == contract {
			continue
		}
		for o := range r.entries[c].singles {
			o.refresh()
		}
	}
}

// selectLocked picks the builder for a single-valued lookup: among the
// builders matching target, prefer those not obsolete, then the lowest
// ranking, then the most recent registration.
func (r *Registry) selectLocked(contract reflect.Type, target TargetInfo) *ObjectBuilder {
	e, ok := r.entries[contract]
	if !ok {
		return nil
	}

	var best *ObjectBuilder
	for _, b := range e.builders {
		if !b.Matches(target) {
			continue
		}
		if best == nil || better(b, best) {
			best = b
		}
	}
	return best
}

func better(a, b *ObjectBuilder) bool {
	if ao, bo := a.Obsolete(), b.Obsolete(); ao != bo {
		return !ao
	}
	if a.Ranking() != b.Ranking() {
		return a.Ranking() < b.Ranking()
	}
	return a.seq > b.seq
}

func (r *Registry) lookup(contract reflect.Type, target TargetInfo) (*ObjectBuilder, State) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	if b := r.selectLocked(contract, target); b != nil {
		return b, StateFound
	}
	if e, ok := r.entries[contract]; ok && len(e.builders) > 0 {
		return nil, StateConditionMismatch
	}
	return nil, StateNotRegistered
}

// TryGet returns the builder a single-valued dependency on contract binds to
// for target. Not-found handlers get one chance to supply a builder.
func (r *Registry) TryGet(contract reflect.Type, target TargetInfo) (*ObjectBuilder, State, error) {
	b, state := r.lookup(contract, target)
	if state != StateNotRegistered {
		return b, state, nil
	}

	supplied, err := r.runNotFound(contract)
	if err != nil || !supplied {
		return nil, state, err
	}
	b, state = r.lookup(contract, target)
	return b, state, nil
}

func (r *Registry) runNotFound(contract reflect.Type) (bool, error) {
	r.hooksMu.RLock()
	handlers := slices.Clone(r.notFound)
	r.hooksMu.RUnlock()

	for _, h := range handlers {
		ok, err := h(contract)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// ObserveSingle subscribes to the binding of a single-valued dependency.
// onChange, when set, runs under the registry lock and must not call back
// into the registry.
func (r *Registry) ObserveSingle(contract reflect.Type, target TargetInfo, onChange func(*ObjectBuilder)) *SingleObserver {
	o := &SingleObserver{
		registry: r,
		contract: contract,
		target:   target,
		onChange: onChange,
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	r.entryLocked(contract).singles[o] = struct{}{}
	o.current.Store(r.selectLocked(contract, target))
	return o
}

// TryGetCollection returns a live observer over every builder of contract
// matching target. The caller owns the observer and must Close it.
func (r *Registry) TryGetCollection(contract reflect.Type, target TargetInfo) (*CollectionObserver, error) {
	if !r.Has(contract) {
		if _, err := r.runNotFound(contract); err != nil {
			return nil, err
		}
	}

	o := &CollectionObserver{
		registry: r,
		contract: contract,
		target:   target,
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	e := r.entryLocked(contract)
	for _, b := range e.builders {
		o.insert(b)
	}
	e.collections[o] = struct{}{}
	return o, nil
}

func (r *Registry) removeSingle(o *SingleObserver) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if e, ok := r.entries[o.contract]; ok {
		delete(e.singles, o)
		if e.idle() {
			delete(r.entries, o.contract)
		}
	}
}

func (r *Registry) removeCollection(o *CollectionObserver) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if e, ok := r.entries[o.contract]; ok {
		delete(e.collections, o)
		if e.idle() {
			delete(r.entries, o.contract)
		}
	}
}

func (r *Registry) Has(contract reflect.Type) bool {
	r.lock.RLock()
	defer r.lock.RUnlock()
	e, ok := r.entries[contract]
	return ok && len(e.builders) > 0
}

// Builders returns the builders of contract in registration order.
func (r *Registry) Builders(contract reflect.Type) []*ObjectBuilder {
	r.lock.RLock()
	defer r.lock.RUnlock()
	if e, ok := r.entries[contract]; ok {
		return slices.Clone(e.builders)
	}
	return nil
}

// All returns every registered builder in registration order.
func (r *Registry) All() []*ObjectBuilder {
	r.lock.RLock()
	var out []*ObjectBuilder
	for _, e := range r.entries {
		out = append(out, e.builders...)
	}
	r.lock.RUnlock()

	slices.SortFunc(out, func(a, b *ObjectBuilder) int {
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		default:
			return 0
		}
	})
	return out
}

// Contracts lists every contract with at least one builder.
func (r *Registry) Contracts() []reflect.Type {
	seen := make(map[reflect.Type]struct{})
	var out []reflect.Type
	for _, b := range r.All() {
		c := b.Description().Contract()
		if _, ok := seen[c]; !ok {
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}

func (r *Registry) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	n := 0
	for _, e := range r.entries {
		n += len(e.builders)
	}
	return n
}
