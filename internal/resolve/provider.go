// Package resolve binds constructor parameters and struct members to the
// values they receive: constants, factories, the resolution context, the
// resolving scope, single builders and builder collections.
package resolve

import (
	"reflect"

	"github.com/jingyiliu/injector/internal/errs"
	"github.com/jingyiliu/injector/internal/inject"
	"github.com/jingyiliu/injector/internal/typeinfo"
)

// Provider yields the value for one injection point. Providers are created
// once per builder and reused across activations.
type Provider interface {
	Resolve(ictx *inject.Context) (reflect.Value, error)
	Type() reflect.Type
	Close()
}

// InstanceProvider can hand out the untyped instance without going through
// reflect.Value.
type InstanceProvider interface {
	Provider
	Instance(ictx *inject.Context) (any, error)
}

func convert(v any, t reflect.Type, ictx *inject.Context) (reflect.Value, error) {
	rv, ok := typeinfo.ValueOf(v, t)
	if !ok {
		return reflect.Value{}, errs.Newf(
			errs.CodeResolutionFailed,
			"value of type %T is not assignable to %s", v, typeinfo.Name(t),
		).WithChain(ictx.Chain())
	}
	return rv, nil
}

type Constant struct {
	typ   reflect.Type
	value reflect.Value
}

// NewConstant checks v against t once, at configuration time.
func NewConstant(t reflect.Type, v any) (*Constant, error) {
	rv, ok := typeinfo.ValueOf(v, t)
	if !ok {
		return nil, errs.Newf(
			errs.CodeConfiguration,
			"constant of type %T is not assignable to %s", v, typeinfo.Name(t),
		)
	}
	return &Constant{typ: t, value: rv}, nil
}

func (p *Constant) Resolve(*inject.Context) (reflect.Value, error) {
	return p.value, nil
}

func (p *Constant) Instance(*inject.Context) (any, error) {
	return p.value.Interface(), nil
}

func (p *Constant) Type() reflect.Type { return p.typ }

func (p *Constant) Close() {}

// Factory computes the value on every activation.
type Factory struct {
	typ reflect.Type
	fn  func(ictx *inject.Context) (any, error)
}

func NewFactory(t reflect.Type, fn func(ictx *inject.Context) (any, error)) *Factory {
	return &Factory{typ: t, fn: fn}
}

func (p *Factory) Resolve(ictx *inject.Context) (reflect.Value, error) {
	v, err := p.fn(ictx)
	if err != nil {
		return reflect.Value{}, err
	}
	return convert(v, p.typ, ictx)
}

func (p *Factory) Instance(ictx *inject.Context) (any, error) {
	return p.fn(ictx)
}

func (p *Factory) Type() reflect.Type { return p.typ }

func (p *Factory) Close() {}

// ContextProvider injects the context.Context the resolution was started
// with.
type ContextProvider struct{}

func (ContextProvider) Resolve(ictx *inject.Context) (reflect.Value, error) {
	return reflect.ValueOf(&ictx.Ctx).Elem(), nil
}

func (ContextProvider) Instance(ictx *inject.Context) (any, error) {
	return ictx.Ctx, nil
}

func (ContextProvider) Type() reflect.Type { return typeinfo.ContextType }

func (ContextProvider) Close() {}

// HandleProvider injects a resolver bound to the scope of the current frame.
type HandleProvider struct {
	typ reflect.Type
}

func NewHandleProvider(t reflect.Type) *HandleProvider {
	return &HandleProvider{typ: t}
}

func (p *HandleProvider) Resolve(ictx *inject.Context) (reflect.Value, error) {
	return convert(ictx.Handle(), p.typ, ictx)
}

func (p *HandleProvider) Instance(ictx *inject.Context) (any, error) {
	return ictx.Handle(), nil
}

func (p *HandleProvider) Type() reflect.Type { return p.typ }

func (p *HandleProvider) Close() {}

// Required stands for a non-autowirable slot of a transient builder. Only an
// override can fill it; reaching the provider itself is an error.
type Required struct {
	typ       reflect.Type
	declaring reflect.Type
	index     int
	member    string
}

func NewRequired(t, declaring reflect.Type, index int) *Required {
	return &Required{typ: t, declaring: declaring, index: index}
}

func NewRequiredMember(t, declaring reflect.Type, member string) *Required {
	return &Required{typ: t, declaring: declaring, index: -1, member: member}
}

func (p *Required) Resolve(ictx *inject.Context) (reflect.Value, error) {
	var err *errs.Error
	if p.member != "" {
		err = errs.NonAutowirableMember(p.member, p.declaring, p.typ)
	} else {
		err = errs.NonAutowirable(p.index, p.declaring, p.typ)
	}
	return reflect.Value{}, err.WithChain(ictx.Chain())
}

func (p *Required) Type() reflect.Type { return p.typ }

func (p *Required) Close() {}
