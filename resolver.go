package injector

import (
	"context"
	"fmt"
	"reflect"

	"github.com/jingyiliu/injector/internal/container"
	"github.com/jingyiliu/injector/internal/errs"
	"github.com/jingyiliu/injector/internal/inject"
	"github.com/jingyiliu/injector/internal/scope"
	"github.com/jingyiliu/injector/internal/typeinfo"
)

// Resolver resolves services by type. *Container and *Scope implement it,
// and a constructor parameter of type Resolver receives the resolving scope.
type Resolver interface {
	ResolveType(ctx context.Context, t reflect.Type, overrides ...Override) (any, error)
	ResolveAllType(ctx context.Context, t reflect.Type) ([]any, error)
	Has(t reflect.Type) bool
}

// Override supplies a constructor value for one top-level resolution.
// Positional values win over named ones and both win over registered
// constants.
type Override func(o *inject.Overrides)

// Positional fills the first constructor parameters whose types accept the
// values, in order.
func Positional(values ...any) Override {
	return func(o *inject.Overrides) {
		o.Positional = append(o.Positional, values...)
	}
}

// Named addresses a parameter declared with WithParamNames or a tagged
// struct field by name.
func Named(name string, value any) Override {
	return func(o *inject.Overrides) {
		if o.Named == nil {
			o.Named = make(map[string]any)
		}
		o.Named[name] = value
	}
}

func collectOverrides(opts []Override) *inject.Overrides {
	if len(opts) == 0 {
		return nil
	}
	o := &inject.Overrides{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Resolve builds T from r. From a *Container or *Scope it goes through the
// container's typed provider of T; other resolvers fall back to ResolveType.
func Resolve[T any](ctx context.Context, r Resolver, overrides ...Override) (T, error) {
	switch r := r.(type) {
	case *Container:
		return resolveTyped[T](ctx, r, r.internal.Scope(), nil, overrides)
	case *Scope:
		frame, _ := r.live()
		return resolveTyped[T](ctx, r.container, r.scope, frame, overrides)
	}

	var zero T
	instance, err := r.ResolveType(ctx, reflect.TypeFor[T](), overrides...)
	if err != nil {
		return zero, err
	}
	return cast[T](instance)
}

// resolveTyped continues frame when it is set and otherwise starts a
// top-level resolution from s.
func resolveTyped[T any](
	ctx context.Context,
	c *Container,
	s *scope.Scope,
	frame *inject.Context,
	overrides []Override,
) (T, error) {
	o := collectOverrides(overrides)
	if frame != nil {
		return container.ResolveTyped[T](c.internal, frame.WithContext(ctx), o)
	}

	var out T
	err := c.observe(ctx, s, reflect.TypeFor[T](), func(ctx context.Context) error {
		ictx, err := c.internal.Root(ctx, s)
		if err != nil {
			return err
		}
		out, err = container.ResolveTyped[T](c.internal, ictx, o)
		return err
	})
	return out, err
}

func MustResolve[T any](ctx context.Context, r Resolver, overrides ...Override) T {
	v, err := Resolve[T](ctx, r, overrides...)
	if err != nil {
		panic(err)
	}
	return v
}

func TryResolve[T any](ctx context.Context, r Resolver) (T, bool) {
	v, err := Resolve[T](ctx, r)
	return v, err == nil
}

// ResolveAll builds every matching builder of T in ranked order.
func ResolveAll[T any](ctx context.Context, r Resolver) ([]T, error) {
	instances, err := r.ResolveAllType(ctx, reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(instances))
	for _, instance := range instances {
		typed, err := cast[T](instance)
		if err != nil {
			return nil, err
		}
		out = append(out, typed)
	}
	return out, nil
}

func Has[T any](r Resolver) bool {
	return r.Has(reflect.TypeFor[T]())
}

func cast[T any](instance any) (T, error) {
	var zero T
	if instance == nil {
		return zero, nil
	}
	typed, ok := instance.(T)
	if !ok {
		name := typeinfo.Name(reflect.TypeFor[T]())
		return zero, errs.New(
			errs.CodeResolutionFailed,
			fmt.Sprintf("resolved %T is not assignable to %s", instance, name),
			nil,
		).WithService(name)
	}
	return typed, nil
}

type Optional[T any] struct {
	value   T
	present bool
}

func (o Optional[T]) Get() (T, bool) {
	return o.value, o.present
}

func (o Optional[T]) Value() T {
	return o.value
}

func (o Optional[T]) Present() bool {
	return o.present
}

func (o Optional[T]) OrElse(defaultValue T) T {
	if o.present {
		return o.value
	}
	return defaultValue
}

func Some[T any](value T) Optional[T] {
	return Optional[T]{value: value, present: true}
}

func None[T any]() Optional[T] {
	return Optional[T]{}
}

// ResolveOptional returns None when no builder of T is registered. Any
// other failure is returned as an error.
func ResolveOptional[T any](ctx context.Context, r Resolver, overrides ...Override) (Optional[T], error) {
	v, err := Resolve[T](ctx, r, overrides...)
	switch {
	case err == nil:
		return Some(v), nil
	case IsNotFound(err) && !Has[T](r):
		return None[T](), nil
	default:
		return None[T](), err
	}
}
