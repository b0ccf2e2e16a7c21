package injector

import (
	"context"
	"reflect"

	"github.com/jingyiliu/injector/internal/activation"
)

// TagKey marks struct fields for injection. The tag value lists target
// attributes ("primary,readonly"); "-" skips the field.
const TagKey = activation.TagKey

// Build constructs T from s without registering it. T is a struct or a
// pointer to a struct whose inject-tagged fields are autowired. Named
// overrides address fields by name. The caller owns the result; it is not
// disposed with the scope.
func Build[T any](ctx context.Context, s *Scope, overrides ...Override) (T, error) {
	recipe := activation.Recipe{Kind: activation.KindStruct, Concrete: reflect.TypeFor[T]()}
	return construct[T](ctx, s, recipe, overrides)
}

// Call invokes fn with autowired arguments and returns its first result.
// fn may return a trailing error.
func Call[T any](ctx context.Context, s *Scope, fn any, overrides ...Override) (T, error) {
	return construct[T](ctx, s, constructorRecipe(fn), overrides)
}

func construct[T any](ctx context.Context, s *Scope, recipe activation.Recipe, overrides []Override) (T, error) {
	v, err := s.container.internal.Construct(ctx, s.scope, recipe, collectOverrides(overrides))
	if err != nil {
		var zero T
		return zero, err
	}
	return cast[T](v)
}
