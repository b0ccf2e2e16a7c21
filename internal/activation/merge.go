package activation

import (
	"reflect"

	"github.com/jingyiliu/injector/internal/errs"
	"github.com/jingyiliu/injector/internal/inject"
	"github.com/jingyiliu/injector/internal/typeinfo"
)

// checkOverrides rejects positional values beyond the constructor's arity
// and names that address neither a parameter nor a field.
func (p *Plan) checkOverrides(o *inject.Overrides) error {
	if o.Empty() {
		return nil
	}
	if len(o.Positional) > len(p.Params) {
		return errs.ExcessParameters(len(o.Positional), len(p.Params), p.Concrete)
	}
	for name := range o.Named {
		if _, ok := p.names[name]; !ok {
			return errs.RedundantParameter(name, p.Concrete)
		}
	}
	return nil
}

// override returns the caller value covering s, if any. A positional value
// counts for slot i only when its type fits the slot; a named value only
// when both name and type fit. Positional values win over named ones.
func override(o *inject.Overrides, s Slot, positional bool) (reflect.Value, bool) {
	if o.Empty() {
		return reflect.Value{}, false
	}
	if positional && s.Index >= 0 && s.Index < len(o.Positional) {
		if v, ok := typeinfo.ValueOf(o.Positional[s.Index], s.Type); ok {
			return v, true
		}
	}
	if v, ok := o.Lookup(s.Name); ok {
		if rv, ok := typeinfo.ValueOf(v, s.Type); ok {
			return rv, true
		}
	}
	return reflect.Value{}, false
}

// value merges overrides with the slot's own provider.
func value(ictx *inject.Context, s Slot, positional bool) (reflect.Value, error) {
	if v, ok := override(ictx.Overrides, s, positional); ok {
		return v, nil
	}
	return s.Provider.Resolve(ictx)
}

// args resolves constructor arguments in declaration order.
func (p *Plan) args(ictx *inject.Context) ([]reflect.Value, error) {
	out := make([]reflect.Value, len(p.Params))
	for i, s := range p.Params {
		v, err := value(ictx, s, true)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (p *Plan) activationError(ictx *inject.Context, err error) error {
	return errs.Activation(p.Concrete, err).WithChain(ictx.Chain())
}

// callResult unpacks (T) or (T, error).
func (p *Plan) callResult(ictx *inject.Context, out []reflect.Value) (reflect.Value, error) {
	if p.returnsErr {
		if errV := out[1]; !errV.IsNil() {
			return reflect.Value{}, p.activationError(ictx, errV.Interface().(error))
		}
	}
	return out[0], nil
}

func (p *Plan) allocate() reflect.Value {
	if p.Concrete.Kind() == reflect.Ptr {
		return reflect.New(p.Concrete.Elem())
	}
	return reflect.New(p.Concrete).Elem()
}

// fieldsOf returns the addressable struct behind obj, or an invalid value
// when obj is a nil pointer.
func fieldsOf(obj reflect.Value) reflect.Value {
	if obj.Kind() == reflect.Ptr {
		if obj.IsNil() {
			return reflect.Value{}
		}
		return obj.Elem()
	}
	return obj
}

func (p *Plan) callMethod(ictx *inject.Context, m Method, obj reflect.Value, args []reflect.Value) error {
	out := m.Func.Call(append([]reflect.Value{obj}, args...))
	if len(out) == 1 && !out[0].IsNil() {
		return p.activationError(ictx, out[0].Interface().(error))
	}
	return nil
}
