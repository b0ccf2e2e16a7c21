package injector

import (
	"reflect"

	"github.com/jingyiliu/injector/internal/activation"
)

func (c *Container) replace(contract reflect.Type, recipe activation.Recipe, cfg *registerConfig) (*Registration, error) {
	b, err := c.internal.Replace(cfg.registration(contract, cfg.recipe(c, recipe)))
	if err != nil {
		return nil, err
	}
	return &Registration{container: c, builder: b}, nil
}

// Replace swaps every builder of C for one calling constructor. Services
// already depending on C pick the new builder up on their next
// activation; nothing built earlier is rebuilt.
func Replace[C any](c *Container, constructor any, opts ...RegisterOption) (*Registration, error) {
	return c.replace(reflect.TypeFor[C](), constructorRecipe(constructor), newRegisterConfig(opts))
}

func ReplaceType[C, S any](c *Container, opts ...RegisterOption) (*Registration, error) {
	return c.replace(reflect.TypeFor[C](), structRecipe[S](), newRegisterConfig(opts))
}

func ReplaceFactory[C any](c *Container, fn Factory[C], opts ...RegisterOption) (*Registration, error) {
	return c.replace(reflect.TypeFor[C](), factoryRecipe(c, fn), newRegisterConfig(opts))
}

func ReplaceInstance[C any](c *Container, value C, opts ...RegisterOption) (*Registration, error) {
	cfg := newRegisterConfig(opts)
	if !cfg.lifetimeSet {
		cfg.lifetime = Singleton
	}
	return c.replace(reflect.TypeFor[C](), instanceRecipe(value), cfg)
}

func MustReplace[C any](c *Container, constructor any, opts ...RegisterOption) *Registration {
	r, err := Replace[C](c, constructor, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

func MustReplaceInstance[C any](c *Container, value C, opts ...RegisterOption) *Registration {
	r, err := ReplaceInstance(c, value, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// Unregister removes every builder of C and reports how many were removed.
func Unregister[C any](c *Container) int {
	return c.internal.UnregisterContract(reflect.TypeFor[C]())
}
