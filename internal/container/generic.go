package container

import (
	"reflect"
	"sync"

	"github.com/jingyiliu/injector/internal/activation"
	"github.com/jingyiliu/injector/internal/description"
	"github.com/jingyiliu/injector/internal/errs"
	"github.com/jingyiliu/injector/internal/lifetime"
	"github.com/jingyiliu/injector/internal/registry"
	"github.com/jingyiliu/injector/internal/typeinfo"
)

// GenericDefinition describes every instantiation of one generic type.
// Close returns the recipe for a closed instantiation; when Close is nil the
// closed type itself must be a struct or pointer to struct and is built by
// field injection.
type GenericDefinition struct {
	Family    string
	Lifetime  lifetime.Kind
	Ranking   int
	Metadata  *description.Metadata
	Condition registry.Condition
	Close     func(closed reflect.Type) (activation.Recipe, error)
}

type synthesis struct {
	once sync.Once
	ok   bool
	err  error
}

// RegisterGeneric records def. Instantiations are registered on first
// request.
func (c *Container) RegisterGeneric(def GenericDefinition) error {
	if def.Family == "" {
		return errs.Precondition("generic definition needs a family name")
	}

	c.genericsMu.Lock()
	defer c.genericsMu.Unlock()

	if _, ok := c.generics[def.Family]; ok {
		return errs.Precondition("generic family %s is already registered", def.Family)
	}
	c.generics[def.Family] = &def

	c.logger.Debug().
		Str("family", def.Family).
		Str("lifetime", def.Lifetime.String()).
		Msg("generic family registered")
	return nil
}

// GenericFamilies lists the registered family names.
func (c *Container) GenericFamilies() []string {
	c.genericsMu.RLock()
	defer c.genericsMu.RUnlock()

	out := make([]string, 0, len(c.generics))
	for f := range c.generics {
		out = append(out, f)
	}
	return out
}

func (c *Container) genericFor(t reflect.Type) (*GenericDefinition, bool) {
	family, ok := typeinfo.GenericFamily(t)
	if !ok {
		return nil, false
	}

	c.genericsMu.RLock()
	defer c.genericsMu.RUnlock()
	def, ok := c.generics[family]
	return def, ok
}

// closeGeneric is the registry's not-found handler. It registers a builder
// for a closed instantiation of a known family, once per closed type.
func (c *Container) closeGeneric(contract reflect.Type) (bool, error) {
	def, ok := c.genericFor(contract)
	if !ok {
		return false, nil
	}

	c.genericsMu.Lock()
	s, ok := c.synthesized[contract]
	if !ok {
		s = &synthesis{}
		c.synthesized[contract] = s
	}
	c.genericsMu.Unlock()

	s.once.Do(func() {
		s.err = c.synthesize(def, contract)
		s.ok = s.err == nil
	})
	return s.ok, s.err
}

func (c *Container) synthesize(def *GenericDefinition, closed reflect.Type) error {
	var recipe activation.Recipe
	if def.Close != nil {
		r, err := def.Close(closed)
		if err != nil {
			return errs.New(
				errs.CodeConfiguration,
				"closing generic family "+def.Family+" for "+typeinfo.Name(closed),
				err,
			).WithService(typeinfo.Name(closed))
		}
		recipe = r
	} else {
		recipe = activation.Recipe{Kind: activation.KindStruct, Concrete: closed}
	}

	_, err := c.Register(Registration{
		Contract:  closed,
		Recipe:    recipe,
		Lifetime:  def.Lifetime,
		Ranking:   def.Ranking,
		Metadata:  def.Metadata,
		Condition: def.Condition,
	})
	if err != nil {
		return err
	}

	c.logger.Debug().
		Str("family", def.Family).
		Str("contract", typeinfo.Name(closed)).
		Msg("generic instantiation registered")
	return nil
}
