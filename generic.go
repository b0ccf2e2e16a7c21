package injector

import (
	"context"
	"reflect"

	"github.com/jingyiliu/injector/internal/activation"
	"github.com/jingyiliu/injector/internal/container"
	"github.com/jingyiliu/injector/internal/errs"
	"github.com/jingyiliu/injector/internal/inject"
	"github.com/jingyiliu/injector/internal/typeinfo"
)

// GenericFactory builds one instantiation of a generic family. closed is the
// requested instantiation, e.g. *Repository[User].
type GenericFactory func(ctx context.Context, r Resolver, closed reflect.Type) (any, error)

// RegisterGeneric registers every instantiation of the generic type behind
// T at once. T names any instantiation of the family, so
// RegisterGeneric[*Repository[any]] covers *Repository[User] and
// *Repository[Order]. A concrete instantiation is registered the first time
// it is requested, and only once.
//
// With a nil factory the instantiation must be a struct or pointer to struct
// and is built through its inject-tagged fields.
func RegisterGeneric[T any](c *Container, factory GenericFactory, opts ...RegisterOption) error {
	t := reflect.TypeFor[T]()
	family, ok := typeinfo.GenericFamily(t)
	if !ok {
		return errs.Precondition("%s is not an instantiated generic type", typeinfo.Name(t))
	}

	cfg := newRegisterConfig(opts)
	return c.internal.RegisterGeneric(container.GenericDefinition{
		Family:    family,
		Lifetime:  cfg.lifetime,
		Ranking:   cfg.ranking,
		Metadata:  cfg.metadata,
		Condition: cfg.condition,
		Close: func(closed reflect.Type) (activation.Recipe, error) {
			base := activation.Recipe{Kind: activation.KindStruct, Concrete: closed}
			if factory != nil {
				base = activation.Recipe{
					Kind:     activation.KindFactory,
					Concrete: closed,
					Factory: func(ictx *inject.Context) (any, error) {
						return factory(ictx.Ctx, c.bind(ictx), closed)
					},
				}
			}
			return cfg.recipe(c, base), nil
		},
	})
}

// GenericFamilies lists the registered generic family names.
func (c *Container) GenericFamilies() []string {
	return c.internal.GenericFamilies()
}
