package resolve

import (
	"reflect"
	"sync/atomic"

	"github.com/jingyiliu/injector/internal/errs"
	"github.com/jingyiliu/injector/internal/inject"
	"github.com/jingyiliu/injector/internal/registry"
)

type binding struct {
	builder *registry.ObjectBuilder
	stamp   uint64
}

// Autowired resolves a single-valued dependency through the registry.
//
// With lazy rebinding the provider keeps the builder it found together with
// the registry stamp of the lookup and re-checks both before every use. With
// eager rebinding it holds a registry observer that is re-pointed while the
// registry changes. Both report the builder TryGet would return.
type Autowired struct {
	registry *registry.Registry
	contract reflect.Type
	target   registry.TargetInfo

	observer *registry.SingleObserver
	bound    atomic.Pointer[binding]
}

func NewAutowired(r *registry.Registry, contract reflect.Type, target registry.TargetInfo, eager bool) *Autowired {
	p := &Autowired{registry: r, contract: contract, target: target}
	if eager {
		p.observer = r.ObserveSingle(contract, target, nil)
	}
	return p
}

func (p *Autowired) Type() reflect.Type { return p.contract }

func (p *Autowired) Target() registry.TargetInfo { return p.target }

// Eager reports whether the provider rebinds through a registry observer.
func (p *Autowired) Eager() bool { return p.observer != nil }

// Builder returns the builder the dependency is currently bound to.
func (p *Autowired) Builder() (*registry.ObjectBuilder, error) {
	if p.observer != nil {
		if b := p.observer.Current(); b != nil && !b.Removed() {
			return b, nil
		}
		return p.lookup()
	}

	if cur := p.bound.Load(); cur != nil && !cur.builder.Obsolete() && p.registry.Validate(cur.stamp) {
		return cur.builder, nil
	}
	return p.lookup()
}

func (p *Autowired) lookup() (*registry.ObjectBuilder, error) {
	stamp := p.registry.Stamp()
	b, state, err := p.registry.TryGet(p.contract, p.target)
	if err != nil {
		return nil, err
	}

	switch state {
	case registry.StateFound:
		if p.observer == nil {
			p.bound.Store(&binding{builder: b, stamp: stamp})
		}
		return b, nil
	case registry.StateConditionMismatch:
		return nil, errs.ConditionMismatch(p.contract, p.target.Consumer)
	default:
		p.bound.Store(nil)
		return nil, errs.Unregistered(p.contract)
	}
}

func (p *Autowired) Instance(ictx *inject.Context) (any, error) {
	return p.ResolveWith(ictx, nil)
}

// ResolveWith builds the bound builder with caller supplied overrides.
func (p *Autowired) ResolveWith(ictx *inject.Context, overrides *inject.Overrides) (any, error) {
	b, err := p.Builder()
	if err != nil {
		return nil, withChain(err, ictx)
	}
	return b.Build(ictx, overrides)
}

func (p *Autowired) Resolve(ictx *inject.Context) (reflect.Value, error) {
	v, err := p.ResolveWith(ictx, nil)
	if err != nil {
		return reflect.Value{}, err
	}
	return convert(v, p.contract, ictx)
}

func (p *Autowired) Close() {
	if p.observer != nil {
		p.observer.Close()
	}
}

func withChain(err error, ictx *inject.Context) error {
	if e, ok := errs.As(err); ok {
		e.WithChain(ictx.Chain())
	}
	return err
}
