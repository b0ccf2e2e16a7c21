package resolve

import (
	"reflect"

	"github.com/jingyiliu/injector/internal/errs"
	"github.com/jingyiliu/injector/internal/inject"
	"github.com/jingyiliu/injector/internal/mapper"
	"github.com/jingyiliu/injector/internal/registry"
	"github.com/jingyiliu/injector/internal/typeinfo"
)

// Binder picks the provider for an injection point.
type Binder struct {
	Registry *registry.Registry
	Mappers  *mapper.Registry

	// ResolverType is the interface whose parameters receive a handle to the
	// resolving scope.
	ResolverType reflect.Type

	// Eager selects observer-based rebinding for autowired providers.
	Eager bool
}

// For returns the provider autowiring t at target. It reports false when t
// cannot be autowired and needs an explicit value.
func (b *Binder) For(t reflect.Type, target registry.TargetInfo) (Provider, bool, error) {
	switch {
	case t == typeinfo.ContextType:
		return ContextProvider{}, true, nil
	case b.ResolverType != nil && t == b.ResolverType:
		return NewHandleProvider(t), true, nil
	}

	if elem, ok := b.Mappers.ElemType(t); ok && typeinfo.IsAutowirable(elem) {
		m, err := b.Mappers.New(t)
		if err != nil {
			return nil, false, err
		}
		return NewCollection(b.Registry, m, target), true, nil
	}

	if !typeinfo.IsAutowirable(t) {
		return nil, false, nil
	}
	return NewAutowired(b.Registry, t, target, b.Eager), true, nil
}

// Strong is the typed face of a provider. It produces the same values as the
// provider's Resolve without a reflect.Value round trip.
type Strong[T any] struct {
	provider Provider
}

func NewStrong[T any](p Provider) (*Strong[T], error) {
	want := reflect.TypeFor[T]()
	if !p.Type().AssignableTo(want) {
		return nil, errs.Precondition(
			"provider of %s cannot serve %s", typeinfo.Name(p.Type()), typeinfo.Name(want),
		)
	}
	return &Strong[T]{provider: p}, nil
}

func (s *Strong[T]) Provider() Provider {
	return s.provider
}

func (s *Strong[T]) Get(ictx *inject.Context) (T, error) {
	var zero T

	if ip, ok := s.provider.(InstanceProvider); ok {
		v, err := ip.Instance(ictx)
		if err != nil || v == nil {
			return zero, err
		}
		return cast[T](v, ictx)
	}

	rv, err := s.provider.Resolve(ictx)
	if err != nil {
		return zero, err
	}
	return cast[T](rv.Interface(), ictx)
}

// GetWith resolves with overrides when the provider is autowired.
func (s *Strong[T]) GetWith(ictx *inject.Context, overrides *inject.Overrides) (T, error) {
	a, ok := s.provider.(*Autowired)
	if !ok || overrides.Empty() {
		return s.Get(ictx)
	}

	var zero T
	v, err := a.ResolveWith(ictx, overrides)
	if err != nil || v == nil {
		return zero, err
	}
	return cast[T](v, ictx)
}

func cast[T any](v any, ictx *inject.Context) (T, error) {
	t, ok := v.(T)
	if !ok {
		return t, errs.Newf(
			errs.CodeResolutionFailed,
			"value of type %T is not assignable to %s", v, typeinfo.Name(reflect.TypeFor[T]()),
		).WithChain(ictx.Chain())
	}
	return t, nil
}
