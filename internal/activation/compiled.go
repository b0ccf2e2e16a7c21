package activation

import (
	"reflect"

	"github.com/jingyiliu/injector/internal/inject"
)

type (
	getter  func(ictx *inject.Context) (reflect.Value, error)
	builder func(ictx *inject.Context) (reflect.Value, error)
	member  func(ictx *inject.Context, obj reflect.Value) error
)

// Compiled runs a closure chain prepared once from the plan. Calls without
// overrides go straight to the providers; calls with overrides share the
// reflective merge so both strategies agree.
type Compiled struct {
	plan    *Plan
	build   builder
	members []member
	direct  func(ictx *inject.Context) (any, error)
}

func compile(p *Plan) *Compiled {
	c := &Compiled{plan: p}

	switch p.Kind {
	case KindInstance:
		instance := p.instance
		c.direct = func(*inject.Context) (any, error) { return instance, nil }
		return c
	case KindFactory:
		factory := p.factory
		c.direct = func(ictx *inject.Context) (any, error) {
			v, err := factory(ictx)
			if err != nil {
				return nil, p.activationError(ictx, err)
			}
			return v, nil
		}
		return c
	case KindConstructor:
		c.build = compileConstructor(p)
	default:
		c.build = func(*inject.Context) (reflect.Value, error) { return p.allocate(), nil }
	}

	for _, prop := range p.Properties {
		c.members = append(c.members, compileProperty(prop))
	}
	for _, m := range p.Methods {
		c.members = append(c.members, compileMethod(p, m))
	}
	return c
}

func compileConstructor(p *Plan) builder {
	ctor := p.ctor
	getters := make([]getter, len(p.Params))
	for i, s := range p.Params {
		getters[i] = s.Provider.Resolve
	}

	return func(ictx *inject.Context) (reflect.Value, error) {
		var args []reflect.Value
		if ictx.Overrides.Empty() {
			args = make([]reflect.Value, len(getters))
			for i, get := range getters {
				v, err := get(ictx)
				if err != nil {
					return reflect.Value{}, err
				}
				args[i] = v
			}
		} else {
			var err error
			if args, err = p.args(ictx); err != nil {
				return reflect.Value{}, err
			}
		}
		return p.callResult(ictx, ctor.Call(args))
	}
}

func compileProperty(prop Property) member {
	slot := prop.Slot
	get := slot.Provider.Resolve

	var field func(reflect.Value) reflect.Value
	if len(prop.Field) == 1 {
		i := prop.Field[0]
		field = func(s reflect.Value) reflect.Value { return s.Field(i) }
	} else {
		index := prop.Field
		field = func(s reflect.Value) reflect.Value { return s.FieldByIndex(index) }
	}

	return func(ictx *inject.Context, obj reflect.Value) error {
		fields := fieldsOf(obj)
		if !fields.IsValid() {
			return nil
		}

		var v reflect.Value
		var err error
		if ictx.Overrides.Empty() {
			v, err = get(ictx)
		} else {
			v, err = value(ictx, slot, false)
		}
		if err != nil {
			return err
		}
		field(fields).Set(v)
		return nil
	}
}

func compileMethod(p *Plan, m Method) member {
	getters := make([]getter, len(m.Params))
	for i, s := range m.Params {
		getters[i] = s.Provider.Resolve
	}

	return func(ictx *inject.Context, obj reflect.Value) error {
		args := make([]reflect.Value, len(getters))
		for i, get := range getters {
			v, err := get(ictx)
			if err != nil {
				return err
			}
			args[i] = v
		}
		return p.callMethod(ictx, m, obj, args)
	}
}

func (c *Compiled) Plan() *Plan {
	return c.plan
}

func (c *Compiled) Activate(ictx *inject.Context) (any, error) {
	if !ictx.Overrides.Empty() {
		if err := c.plan.checkOverrides(ictx.Overrides); err != nil {
			return nil, err
		}
	}
	if c.direct != nil {
		return c.direct(ictx)
	}

	obj, err := c.build(ictx)
	if err != nil {
		return nil, err
	}
	obj = addressable(obj)
	for _, apply := range c.members {
		if err := apply(ictx, obj); err != nil {
			return nil, err
		}
	}
	return obj.Interface(), nil
}
