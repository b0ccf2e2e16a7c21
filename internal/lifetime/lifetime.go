// Package lifetime implements the sharing policies layered over activation:
// transient, scoped and container.
package lifetime

import (
	"strings"

	"github.com/jingyiliu/injector/internal/description"
	"github.com/jingyiliu/injector/internal/errs"
	"github.com/jingyiliu/injector/internal/inject"
	"github.com/jingyiliu/injector/internal/locks"
	"github.com/jingyiliu/injector/internal/registry"
	"github.com/jingyiliu/injector/internal/scope"
)

type Kind int

const (
	Transient Kind = iota
	Scoped
	Container
)

func (k Kind) String() string {
	switch k {
	case Transient:
		return "transient"
	case Scoped:
		return "scoped"
	case Container:
		return "container"
	default:
		return "unknown"
	}
}

func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "transient":
		return Transient, nil
	case "scoped":
		return Scoped, nil
	case "container", "singleton":
		return Container, nil
	default:
		return Transient, errs.Newf(errs.CodeConfiguration, "unknown lifetime %q", s)
	}
}

// Activator builds a new instance for the frame it is given.
type Activator interface {
	Activate(ictx *inject.Context) (any, error)
}

// New returns the lifetime of kind for builds of d. container is the scope
// that owns container-lifetime instances.
func New(kind Kind, d *description.ObjectDescription, a Activator, container *scope.Scope) registry.Lifetime {
	switch kind {
	case Scoped:
		return &scoped{description: d, activator: a}
	case Container:
		return &containerLifetime{activator: a, container: container}
	default:
		return &transient{activator: a}
	}
}

type transient struct {
	activator Activator
}

// Instance builds every time. Disposable results are owned by the scope that
// asked for them.
func (l *transient) Instance(ictx *inject.Context) (any, error) {
	v, err := l.activator.Activate(ictx)
	if err != nil {
		return nil, err
	}
	if err := ictx.Scope.Track(v); err != nil {
		return nil, err
	}
	return v, nil
}

func (l *transient) String() string { return Transient.String() }

type scoped struct {
	description *description.ObjectDescription
	activator   Activator
}

// Instance reuses the instance cached by the requesting scope or one of its
// ancestors, and otherwise builds and caches it in the requesting scope.
func (l *scoped) Instance(ictx *inject.Context) (any, error) {
	s := ictx.Scope
	if !s.Sharing() {
		return nil, errs.ScopeNotFound(l.description.Contract()).WithChain(ictx.Chain())
	}

	return s.GetOrCreate(l.description.Key(), func() (any, error) {
		v, err := l.activator.Activate(ictx)
		if err != nil {
			return nil, err
		}
		if err := s.Track(v); err != nil {
			return nil, err
		}
		return v, nil
	})
}

func (l *scoped) String() string { return Scoped.String() }

type containerLifetime struct {
	activator Activator
	container *scope.Scope
	latch     locks.Latch
}

// Instance builds once for the container. The build sees the container scope,
// so it can neither capture scoped instances nor hand its transient
// disposables to a shorter lived scope.
func (l *containerLifetime) Instance(ictx *inject.Context) (any, error) {
	return l.latch.Do(func() (any, error) {
		v, err := l.activator.Activate(ictx.WithScope(l.container))
		if err != nil {
			return nil, err
		}
		if err := l.container.Track(v); err != nil {
			return nil, err
		}
		return v, nil
	})
}

func (l *containerLifetime) String() string { return Container.String() }

// Built reports whether a container-lifetime instance exists.
func Built(l registry.Lifetime) bool {
	c, ok := l.(*containerLifetime)
	return ok && c.latch.Done()
}

// KindOf returns the kind of a lifetime created by New.
func KindOf(l registry.Lifetime) Kind {
	switch l.(type) {
	case *scoped:
		return Scoped
	case *containerLifetime:
		return Container
	default:
		return Transient
	}
}
