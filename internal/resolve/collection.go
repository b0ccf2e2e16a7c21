package resolve

import (
	"reflect"
	"sync"

	"github.com/jingyiliu/injector/internal/inject"
	"github.com/jingyiliu/injector/internal/mapper"
	"github.com/jingyiliu/injector/internal/registry"
)

// Collection resolves every builder of the element contract into one
// collection value. Instances are built in ranked order without holding any
// registry or mapper lock; only the final mapping runs under the mapper
// lock.
type Collection struct {
	registry *registry.Registry
	mapper   *mapper.Locked
	target   registry.TargetInfo

	mu       sync.Mutex
	observer *registry.CollectionObserver
}

func NewCollection(r *registry.Registry, m *mapper.Locked, target registry.TargetInfo) *Collection {
	return &Collection{registry: r, mapper: m, target: target}
}

func (p *Collection) Type() reflect.Type { return p.mapper.Type() }

func (p *Collection) Elem() reflect.Type { return p.mapper.Elem() }

// Observer subscribes on first use and returns the live membership.
func (p *Collection) Observer() (*registry.CollectionObserver, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.observer != nil {
		return p.observer, nil
	}
	o, err := p.registry.TryGetCollection(p.mapper.Elem(), p.target)
	if err != nil {
		return nil, err
	}
	p.observer = o
	return o, nil
}

func (p *Collection) Resolve(ictx *inject.Context) (reflect.Value, error) {
	o, err := p.Observer()
	if err != nil {
		return reflect.Value{}, withChain(err, ictx)
	}

	elem := p.mapper.Elem()
	values := make([]reflect.Value, 0, o.Len())
	for b := range o.All() {
		v, err := b.Build(ictx, nil)
		if err != nil {
			return reflect.Value{}, err
		}
		rv, err := convert(v, elem, ictx)
		if err != nil {
			return reflect.Value{}, err
		}
		values = append(values, rv)
	}

	out, err := p.mapper.Materialize(values)
	if err != nil {
		return reflect.Value{}, withChain(err, ictx)
	}
	return out, nil
}

func (p *Collection) Instance(ictx *inject.Context) (any, error) {
	v, err := p.Resolve(ictx)
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

func (p *Collection) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.observer != nil {
		p.observer.Close()
		p.observer = nil
	}
}
