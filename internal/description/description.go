// Package description holds the immutable identity of a registered service.
package description

import (
	"fmt"
	"maps"
	"reflect"

	"github.com/jingyiliu/injector/internal/errs"
	"github.com/jingyiliu/injector/internal/typeinfo"
)

// Metadata is compared by identity: two descriptions carrying equal maps in
// different Metadata values are distinct.
type Metadata struct {
	name   string
	values map[string]any
}

func NewMetadata(name string, values map[string]any) *Metadata {
	return &Metadata{name: name, values: maps.Clone(values)}
}

func (m *Metadata) Name() string {
	if m == nil {
		return ""
	}
	return m.name
}

func (m *Metadata) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

func (m *Metadata) Values() map[string]any {
	if m == nil {
		return nil
	}
	return maps.Clone(m.values)
}

// Key is the comparable identity of an ObjectDescription.
type Key struct {
	Contract reflect.Type
	Concrete reflect.Type
	Metadata *Metadata
}

type ObjectDescription struct {
	contract reflect.Type
	concrete reflect.Type
	metadata *Metadata
	ranking  int
}

type Option func(*ObjectDescription)

func WithMetadata(m *Metadata) Option {
	return func(d *ObjectDescription) {
		d.metadata = m
	}
}

func WithRanking(ranking int) Option {
	return func(d *ObjectDescription) {
		d.ranking = ranking
	}
}

func New(contract, concrete reflect.Type, opts ...Option) (*ObjectDescription, error) {
	if contract == nil {
		return nil, errs.Precondition("contract type must not be nil")
	}
	if concrete == nil {
		return nil, errs.Precondition("concrete type for %s must not be nil", typeinfo.Name(contract))
	}
	if concrete != contract && !concrete.AssignableTo(contract) {
		return nil, errs.Precondition(
			"concrete type %s does not satisfy contract %s",
			typeinfo.Name(concrete), typeinfo.Name(contract),
		)
	}

	d := &ObjectDescription{
		contract: contract,
		concrete: concrete,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

func (d *ObjectDescription) Contract() reflect.Type {
	return d.contract
}

func (d *ObjectDescription) Concrete() reflect.Type {
	return d.concrete
}

func (d *ObjectDescription) Metadata() *Metadata {
	return d.metadata
}

func (d *ObjectDescription) Ranking() int {
	return d.ranking
}

func (d *ObjectDescription) Key() Key {
	return Key{Contract: d.contract, Concrete: d.concrete, Metadata: d.metadata}
}

func (d *ObjectDescription) Equal(other *ObjectDescription) bool {
	if d == nil || other == nil {
		return d == other
	}
	return d.Key() == other.Key()
}

func (d *ObjectDescription) String() string {
	s := typeinfo.Name(d.contract)
	if d.concrete != d.contract {
		s += " => " + typeinfo.Name(d.concrete)
	}
	if d.metadata != nil && d.metadata.name != "" {
		s += fmt.Sprintf(" [%s]", d.metadata.name)
	}
	return s
}
