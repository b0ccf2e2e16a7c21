// Package scope implements the lifetime-scope tree: a container scope at the
// top, root scopes beneath it and nested child scopes below those. Each scope
// owns an instance cache and a disposal queue.
package scope

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jingyiliu/injector/internal/description"
	"github.com/jingyiliu/injector/internal/errs"
)

type Kind int

const (
	KindContainer Kind = iota
	KindRoot
	KindChild
)

func (k Kind) String() string {
	switch k {
	case KindContainer:
		return "container"
	case KindRoot:
		return "root"
	case KindChild:
		return "child"
	default:
		return "unknown"
	}
}

// Disposable is the disposal contract recognised next to io.Closer.
type Disposable interface {
	Dispose() error
}

// Hooks are shared by every scope of one tree.
type Hooks struct {
	OnBegin   func(s *Scope)
	OnEnd     func(s *Scope, err error)
	OnDispose func(s *Scope, instance any, err error)
}

type tree struct {
	logger zerolog.Logger
	hooks  Hooks
}

type Scope struct {
	id     uuid.UUID
	kind   Kind
	parent *Scope
	depth  int
	tree   *tree

	mu          sync.Mutex
	children    map[*Scope]struct{}
	disposables []any
	onEnded     []func(*Scope)
	ended       atomic.Bool

	cache sync.Map
}

type entry struct {
	mu    sync.Mutex
	value atomic.Pointer[cached]
}

type cached struct {
	instance any
}

func NewContainer(logger zerolog.Logger, hooks Hooks) *Scope {
	return newScope(KindContainer, nil, &tree{logger: logger, hooks: hooks})
}

func newScope(kind Kind, parent *Scope, t *tree) *Scope {
	s := &Scope{
		id:       uuid.New(),
		kind:     kind,
		parent:   parent,
		tree:     t,
		children: make(map[*Scope]struct{}),
	}
	if parent != nil {
		s.depth = parent.depth + 1
	}
	return s
}

func (s *Scope) ID() string {
	return s.id.String()
}

func (s *Scope) Kind() Kind {
	return s.kind
}

func (s *Scope) Parent() *Scope {
	return s.parent
}

func (s *Scope) Depth() int {
	return s.depth
}

// Sharing reports whether scoped instances may be cached here.
func (s *Scope) Sharing() bool {
	return s.kind != KindContainer
}

func (s *Scope) Ended() bool {
	return s.ended.Load()
}

func (s *Scope) Container() *Scope {
	c := s
	for c.parent != nil {
		c = c.parent
	}
	return c
}

func (s *Scope) OpenChildren() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.children)
}

// Begin opens a nested scope. Scopes opened on the container scope are root
// scopes; all others are child scopes.
func (s *Scope) Begin() (*Scope, error) {
	s.mu.Lock()
	if s.ended.Load() {
		s.mu.Unlock()
		return nil, s.disposedError()
	}

	kind := KindChild
	if s.kind == KindContainer {
		kind = KindRoot
	}

	child := newScope(kind, s, s.tree)
	s.children[child] = struct{}{}
	s.mu.Unlock()

	s.tree.logger.Debug().
		Str("scope_id", child.ID()).
		Str("parent_id", s.ID()).
		Str("kind", kind.String()).
		Int("depth", child.depth).
		Msg("scope begun")

	if s.tree.hooks.OnBegin != nil {
		s.tree.hooks.OnBegin(child)
	}

	return child, nil
}

// Lookup searches this scope and its ancestors up to the root scope. The
// container scope never holds scoped instances and is not searched.
func (s *Scope) Lookup(key description.Key) (any, bool) {
	for sc := s; sc != nil && sc.kind != KindContainer; sc = sc.parent {
		e, ok := sc.cache.Load(key)
		if !ok {
			continue
		}
		if c := e.(*entry).value.Load(); c != nil {
			return c.instance, true
		}
	}
	return nil, false
}

// GetOrCreate returns the instance cached for key in this scope or an
// ancestor, building and caching it in this scope on a miss. Concurrent
// callers for the same key wait on one build.
func (s *Scope) GetOrCreate(key description.Key, build func() (any, error)) (any, error) {
	if instance, ok := s.Lookup(key); ok {
		return instance, nil
	}
	if s.kind == KindContainer {
		return nil, errs.Precondition("the container scope does not cache scoped instances")
	}
	if s.ended.Load() {
		return nil, s.disposedError()
	}

	e, _ := s.cache.LoadOrStore(key, &entry{})
	ent := e.(*entry)

	ent.mu.Lock()
	defer ent.mu.Unlock()

	if c := ent.value.Load(); c != nil {
		return c.instance, nil
	}

	instance, err := build()
	if err != nil {
		return nil, err
	}

	ent.value.Store(&cached{instance: instance})
	return instance, nil
}

// Track queues instance for disposal when this scope ends. Values that are
// neither io.Closer nor Disposable are ignored.
// Track hands a disposable instance to the scope. An ended scope disposes it
// at once and reports the scope as disposed.
func (s *Scope) Track(instance any) error {
	if !IsDisposable(instance) {
		return nil
	}

	s.mu.Lock()
	if !s.ended.Load() {
		s.disposables = append(s.disposables, instance)
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	_ = s.release(instance)
	return s.disposedError()
}

func (s *Scope) Tracked() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.disposables)
}

func (s *Scope) OnEnded(fn func(*Scope)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEnded = append(s.onEnded, fn)
}

// Dispose ends the scope. Every tracked instance is disposed once, newest
// first, then the ended callbacks run. Disposing a scope that still has open
// children fails and leaves the scope untouched. Disposing twice is a no-op.
func (s *Scope) Dispose() error {
	s.mu.Lock()
	if s.ended.Load() {
		s.mu.Unlock()
		return nil
	}
	if open := len(s.children); open > 0 {
		s.mu.Unlock()
		return errs.Newf(
			errs.CodeScopeNesting,
			"%s scope %s ended while %d nested scope(s) are still open",
			s.kind, s.ID(), open,
		)
	}

	s.ended.Store(true)
	items := s.disposables
	s.disposables = nil
	callbacks := s.onEnded
	s.onEnded = nil
	s.mu.Unlock()

	var failures []error
	for i := len(items) - 1; i >= 0; i-- {
		if err := s.release(items[i]); err != nil {
			failures = append(failures, err)
		}
	}

	if s.parent != nil {
		s.parent.mu.Lock()
		delete(s.parent.children, s)
		s.parent.mu.Unlock()
	}
	s.cache.Clear()

	err := errors.Join(failures...)

	s.tree.logger.Debug().
		Str("scope_id", s.ID()).
		Str("kind", s.kind.String()).
		Int("disposed", len(items)).
		Msg("scope ended")

	if s.tree.hooks.OnEnd != nil {
		s.tree.hooks.OnEnd(s, err)
	}
	for _, fn := range callbacks {
		fn(s)
	}

	return err
}

// release disposes one instance owned by s.
func (s *Scope) release(instance any) error {
	err := disposeOne(instance)
	if s.tree.hooks.OnDispose != nil {
		s.tree.hooks.OnDispose(s, instance, err)
	}
	if err != nil {
		s.tree.logger.Warn().Err(err).
			Str("scope_id", s.ID()).
			Str("instance", fmt.Sprintf("%T", instance)).
			Msg("dispose failed")
	}
	return err
}

func (s *Scope) disposedError() error {
	return errs.Newf(errs.CodeScopeDisposed, "%s scope %s has already ended", s.kind, s.ID())
}

func IsDisposable(instance any) bool {
	switch instance.(type) {
	case Disposable, io.Closer:
		return true
	default:
		return false
	}
}

func disposeOne(instance any) error {
	switch d := instance.(type) {
	case Disposable:
		return d.Dispose()
	case io.Closer:
		return d.Close()
	default:
		return nil
	}
}
