package activation

import (
	"reflect"
	"strings"

	"github.com/jingyiliu/injector/internal/errs"
	"github.com/jingyiliu/injector/internal/inject"
)

// Activator produces one fully injected instance per call.
type Activator interface {
	Activate(ictx *inject.Context) (any, error)
	Plan() *Plan
}

type Strategy int

const (
	StrategyAuto Strategy = iota
	StrategyReflective
	StrategyCompiled
)

func (s Strategy) String() string {
	switch s {
	case StrategyAuto:
		return "auto"
	case StrategyReflective:
		return "reflective"
	case StrategyCompiled:
		return "compiled"
	default:
		return "unknown"
	}
}

func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return StrategyAuto, nil
	case "reflective":
		return StrategyReflective, nil
	case "compiled":
		return StrategyCompiled, nil
	default:
		return StrategyAuto, errs.Newf(errs.CodeConfiguration, "unknown activation strategy %q", s)
	}
}

// New returns the activator for plan. Auto picks the compiled routine except
// for instances built once per container, where the one-time reflective
// cost is cheaper than compiling.
func (s Strategy) New(plan *Plan, buildsOnce bool) Activator {
	switch s {
	case StrategyReflective:
		return &Reflective{plan: plan}
	case StrategyCompiled:
		return compile(plan)
	default:
		if buildsOnce {
			return &Reflective{plan: plan}
		}
		return compile(plan)
	}
}

// Reflective interprets the plan on every call.
type Reflective struct {
	plan *Plan
}

func NewReflective(plan *Plan) *Reflective {
	return &Reflective{plan: plan}
}

func (a *Reflective) Plan() *Plan {
	return a.plan
}

func (a *Reflective) Activate(ictx *inject.Context) (any, error) {
	p := a.plan
	if err := p.checkOverrides(ictx.Overrides); err != nil {
		return nil, err
	}

	var obj reflect.Value
	switch p.Kind {
	case KindInstance:
		return p.instance, nil
	case KindFactory:
		v, err := p.factory(ictx)
		if err != nil {
			return nil, p.activationError(ictx, err)
		}
		return v, nil
	case KindConstructor:
		args, err := p.args(ictx)
		if err != nil {
			return nil, err
		}
		obj, err = p.callResult(ictx, p.ctor.Call(args))
		if err != nil {
			return nil, err
		}
	default:
		obj = p.allocate()
	}

	obj = addressable(obj)
	if fields := fieldsOf(obj); fields.IsValid() {
		for _, prop := range p.Properties {
			v, err := value(ictx, prop.Slot, false)
			if err != nil {
				return nil, err
			}
			fields.FieldByIndex(prop.Field).Set(v)
		}
	}

	for _, m := range p.Methods {
		args := make([]reflect.Value, len(m.Params))
		for i, s := range m.Params {
			v, err := s.Provider.Resolve(ictx)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		if err := p.callMethod(ictx, m, obj, args); err != nil {
			return nil, err
		}
	}

	return obj.Interface(), nil
}

// addressable copies a struct value returned by a constructor so its fields
// can be set.
func addressable(v reflect.Value) reflect.Value {
	if v.Kind() != reflect.Struct || v.CanAddr() {
		return v
	}
	cp := reflect.New(v.Type()).Elem()
	cp.Set(v)
	return cp
}
