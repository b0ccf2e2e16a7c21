// Package mapper turns the instances built for a collection dependency into
// the collection shape the dependent asked for.
package mapper

import (
	"reflect"
	"sync"

	"github.com/jingyiliu/injector/internal/errs"
	"github.com/jingyiliu/injector/internal/typeinfo"
)

// Mapper accumulates elements and produces one collection value.
type Mapper interface {
	Map(v reflect.Value) error
	Result() reflect.Value
	Reset()
}

// Factory creates a Mapper for the collection type t.
type Factory func(t reflect.Type) Mapper

// Appender is implemented by pointer-to-collection types that can be filled
// element by element, such as injector.Queue and injector.Stack.
type Appender interface {
	AppendElement(v any)
	ElementType() reflect.Type
}

var appenderType = reflect.TypeFor[Appender]()

type custom struct {
	elem    reflect.Type
	factory Factory
}

type Registry struct {
	mu     sync.RWMutex
	custom map[reflect.Type]custom
}

func NewRegistry() *Registry {
	return &Registry{custom: make(map[reflect.Type]custom)}
}

// Register installs a factory for collection type t whose elements are elem.
func (r *Registry) Register(t, elem reflect.Type, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.custom[t] = custom{elem: elem, factory: factory}
}

// ElemType reports whether t is a collection shape and returns its element
// type.
func (r *Registry) ElemType(t reflect.Type) (reflect.Type, bool) {
	if t == nil {
		return nil, false
	}

	r.mu.RLock()
	c, ok := r.custom[t]
	r.mu.RUnlock()
	if ok {
		return c.elem, true
	}

	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		return t.Elem(), true
	case reflect.Ptr:
		if t.Implements(appenderType) && t.Elem().Kind() == reflect.Struct {
			a := reflect.New(t.Elem()).Interface().(Appender)
			return a.ElementType(), true
		}
	}
	return nil, false
}

// New returns a lockable mapper for collection type t.
func (r *Registry) New(t reflect.Type) (*Locked, error) {
	elem, ok := r.ElemType(t)
	if !ok {
		return nil, errs.Precondition("%s is not a collection type", typeinfo.Name(t))
	}

	r.mu.RLock()
	c, ok := r.custom[t]
	r.mu.RUnlock()

	var m Mapper
	switch {
	case ok:
		m = c.factory(t)
	case t.Kind() == reflect.Slice:
		m = &sliceMapper{typ: t}
	case t.Kind() == reflect.Array:
		m = &arrayMapper{typ: t}
	default:
		m = &appenderMapper{typ: t}
	}
	m.Reset()

	return &Locked{typ: t, elem: elem, mapper: m}, nil
}

// Locked serialises materializations on one mapper.
type Locked struct {
	mu     sync.Mutex
	typ    reflect.Type
	elem   reflect.Type
	mapper Mapper
}

func (l *Locked) Type() reflect.Type {
	return l.typ
}

func (l *Locked) Elem() reflect.Type {
	return l.elem
}

// Materialize maps values in order, reads the result and resets the mapper.
func (l *Locked) Materialize(values []reflect.Value) (reflect.Value, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	defer l.mapper.Reset()

	for _, v := range values {
		if err := l.mapper.Map(v); err != nil {
			return reflect.Value{}, err
		}
	}
	return l.mapper.Result(), nil
}

type sliceMapper struct {
	typ    reflect.Type
	result reflect.Value
}

func (m *sliceMapper) Map(v reflect.Value) error {
	m.result = reflect.Append(m.result, v)
	return nil
}

func (m *sliceMapper) Result() reflect.Value {
	return m.result
}

func (m *sliceMapper) Reset() {
	m.result = reflect.MakeSlice(m.typ, 0, 4)
}

type arrayMapper struct {
	typ    reflect.Type
	result reflect.Value
	n      int
}

func (m *arrayMapper) Map(v reflect.Value) error {
	if m.n >= m.typ.Len() {
		return errs.Newf(
			errs.CodeResolutionFailed,
			"collection %s holds %d elements, more builders are registered",
			typeinfo.Name(m.typ), m.typ.Len(),
		)
	}
	m.result.Index(m.n).Set(v)
	m.n++
	return nil
}

func (m *arrayMapper) Result() reflect.Value {
	return m.result
}

func (m *arrayMapper) Reset() {
	m.result = reflect.New(m.typ).Elem()
	m.n = 0
}

type appenderMapper struct {
	typ    reflect.Type
	result reflect.Value
}

func (m *appenderMapper) Map(v reflect.Value) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errs.Newf(errs.CodeResolutionFailed, "appending to %s: %v", typeinfo.Name(m.typ), r)
		}
	}()
	m.result.Interface().(Appender).AppendElement(v.Interface())
	return nil
}

func (m *appenderMapper) Result() reflect.Value {
	return m.result
}

func (m *appenderMapper) Reset() {
	m.result = reflect.New(m.typ.Elem())
}
