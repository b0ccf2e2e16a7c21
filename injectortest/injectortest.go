// Package injectortest wires an injector.Container into a test: the
// container and every scope begun through it are disposed on cleanup, and
// registration or resolution failures fail the test immediately.
package injectortest

import (
	"context"
	"reflect"

	"github.com/rs/zerolog"

	"github.com/jingyiliu/injector"
)

type TB interface {
	Helper()
	Fatal(args ...any)
	Fatalf(format string, args ...any)
	Cleanup(f func())
}

type TestContainer struct {
	*injector.Container
	tb TB
}

// New returns a container that logs nothing unless opts say otherwise. It is
// closed when the test ends.
func New(tb TB, opts ...injector.Option) *TestContainer {
	tb.Helper()

	c := injector.New(append([]injector.Option{injector.WithLogger(zerolog.Nop())}, opts...)...)
	tc := &TestContainer{
		Container: c,
		tb:        tb,
	}

	tb.Cleanup(func() {
		if err := c.Close(); err != nil {
			tb.Fatalf("failed to close container: %v", err)
		}
	})

	return tc
}

// BeginScope opens a root scope disposed before the container on cleanup.
func (tc *TestContainer) BeginScope() *injector.Scope {
	tc.tb.Helper()

	s, err := tc.Container.BeginScope()
	if err != nil {
		tc.tb.Fatalf("failed to begin scope: %v", err)
	}
	tc.tb.Cleanup(func() {
		if err := s.Dispose(); err != nil {
			tc.tb.Fatalf("failed to dispose scope %s: %v", s.ID(), err)
		}
	})
	return s
}

func (tc *TestContainer) RequireValidate() {
	tc.tb.Helper()

	if err := tc.Validate(); err != nil {
		tc.tb.Fatalf("container validation failed: %v", err)
	}
}

func (tc *TestContainer) RequireWarmup(ctx context.Context) {
	tc.tb.Helper()

	if err := tc.Warmup(ctx); err != nil {
		tc.tb.Fatalf("failed to warm up container: %v", err)
	}
}

func (tc *TestContainer) RequireClose() {
	tc.tb.Helper()

	if err := tc.Close(); err != nil {
		tc.tb.Fatalf("failed to close container: %v", err)
	}
}

// Replace swaps every builder of C for value.
func Replace[C any](tc *TestContainer, value C) {
	tc.tb.Helper()

	if _, err := injector.ReplaceInstance(tc.Container, value); err != nil {
		tc.tb.Fatalf("failed to replace %s: %v", name[C](), err)
	}
}

func ReplaceFactory[C any](tc *TestContainer, fn injector.Factory[C], opts ...injector.RegisterOption) {
	tc.tb.Helper()

	if _, err := injector.ReplaceFactory[C](tc.Container, fn, opts...); err != nil {
		tc.tb.Fatalf("failed to replace factory %s: %v", name[C](), err)
	}
}

func AssertHas[C any](tc *TestContainer) {
	tc.tb.Helper()

	if !injector.Has[C](tc.Container) {
		tc.tb.Fatalf("expected container to have %s", name[C]())
	}
}

func AssertNotHas[C any](tc *TestContainer) {
	tc.tb.Helper()

	if injector.Has[C](tc.Container) {
		tc.tb.Fatalf("expected container to not have %s", name[C]())
	}
}

func MustResolve[T any](tc *TestContainer, overrides ...injector.Override) T {
	tc.tb.Helper()
	return MustResolveIn[T](tc, tc.Container, overrides...)
}

// MustResolveIn resolves T from r, typically a scope from BeginScope.
func MustResolveIn[T any](tc *TestContainer, r injector.Resolver, overrides ...injector.Override) T {
	tc.tb.Helper()

	v, err := injector.Resolve[T](context.Background(), r, overrides...)
	if err != nil {
		tc.tb.Fatalf("failed to resolve %s: %v", name[T](), err)
	}
	return v
}

func MustRegister[C any](tc *TestContainer, constructor any, opts ...injector.RegisterOption) *injector.Registration {
	tc.tb.Helper()

	r, err := injector.Register[C](tc.Container, constructor, opts...)
	if err != nil {
		tc.tb.Fatalf("failed to register %s: %v", name[C](), err)
	}
	return r
}

func MustRegisterFactory[C any](tc *TestContainer, fn injector.Factory[C], opts ...injector.RegisterOption) *injector.Registration {
	tc.tb.Helper()

	r, err := injector.RegisterFactory[C](tc.Container, fn, opts...)
	if err != nil {
		tc.tb.Fatalf("failed to register factory %s: %v", name[C](), err)
	}
	return r
}

func MustRegisterInstance[C any](tc *TestContainer, value C, opts ...injector.RegisterOption) *injector.Registration {
	tc.tb.Helper()

	r, err := injector.RegisterInstance(tc.Container, value, opts...)
	if err != nil {
		tc.tb.Fatalf("failed to register instance %s: %v", name[C](), err)
	}
	return r
}

func name[T any]() string {
	return reflect.TypeFor[T]().String()
}
