package injector

import (
	"context"
	"reflect"

	"github.com/jingyiliu/injector/internal/inject"
	"github.com/jingyiliu/injector/internal/scope"
)

// Disposable is recognised next to io.Closer when a scope ends.
type Disposable = scope.Disposable

// Scope is one node of the lifetime-scope tree. A scoped service is reused
// from the requesting scope or its nearest ancestor that cached it, and is
// otherwise built and cached in the requesting scope. A parent never sees
// what its children cached.
type Scope struct {
	container *Container
	scope     *scope.Scope

	// frame is set on the Scope injected into a builder.
	frame *inject.Context
}

// live returns the builder frame while that builder is still running.
func (s *Scope) live() (*inject.Context, bool) {
	if s.frame == nil || !s.frame.Live() {
		return nil, false
	}
	return s.frame, true
}

func (s *Scope) ID() string {
	return s.scope.ID()
}

// Kind is "container", "root" or "child".
func (s *Scope) Kind() string {
	return s.scope.Kind().String()
}

func (s *Scope) Depth() int {
	return s.scope.Depth()
}

func (s *Scope) Ended() bool {
	return s.scope.Ended()
}

func (s *Scope) Parent() *Scope {
	if p := s.scope.Parent(); p != nil {
		return s.container.wrap(p)
	}
	return nil
}

// BeginScope opens a nested scope.
func (s *Scope) BeginScope() (*Scope, error) {
	child, err := s.scope.Begin()
	if err != nil {
		return nil, err
	}
	return s.container.wrap(child), nil
}

// Dispose disposes every instance the scope owns, newest first, then runs
// the OnEnded callbacks. It fails while nested scopes are open.
func (s *Scope) Dispose() error {
	if s.scope.Kind() == scope.KindContainer {
		return s.container.Close()
	}
	return s.scope.Dispose()
}

func (s *Scope) OnEnded(fn func(*Scope)) {
	s.scope.OnEnded(func(ended *scope.Scope) {
		fn(s.container.wrap(ended))
	})
}

// ResolveType resolves t from the scope. Called from inside a constructor or
// factory, the resolution continues that builder's chain, so resolving the
// builder's own contract fails as a circular dependency.
func (s *Scope) ResolveType(ctx context.Context, t reflect.Type, overrides ...Override) (any, error) {
	if frame, ok := s.live(); ok {
		return s.container.internal.ResolveIn(frame.WithContext(ctx), t, collectOverrides(overrides))
	}
	return s.container.resolve(ctx, s.scope, t, overrides)
}

func (s *Scope) ResolveAllType(ctx context.Context, t reflect.Type) ([]any, error) {
	if frame, ok := s.live(); ok {
		return s.container.internal.ResolveAllIn(frame.WithContext(ctx), t)
	}
	return s.container.internal.ResolveAll(ctx, s.scope, t)
}

func (s *Scope) Has(t reflect.Type) bool {
	return s.container.Has(t)
}

// Same reports whether both values denote the same scope.
func (s *Scope) Same(other *Scope) bool {
	return other != nil && s.scope == other.scope
}
