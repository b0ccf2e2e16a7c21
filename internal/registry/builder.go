package registry

import (
	"reflect"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jingyiliu/injector/internal/description"
	"github.com/jingyiliu/injector/internal/errs"
	"github.com/jingyiliu/injector/internal/inject"
	"github.com/jingyiliu/injector/internal/typeinfo"
)

// Lifetime hands out instances for one builder according to its sharing
// policy.
type Lifetime interface {
	Instance(ictx *inject.Context) (any, error)
	String() string
}

// ObjectBuilder is the live registry entry able to produce instances of one
// concrete type for one contract.
type ObjectBuilder struct {
	description  *description.ObjectDescription
	lifetime     Lifetime
	condition    Condition
	dependencies []reflect.Type

	seq     uint64
	removed atomic.Bool

	mu          sync.Mutex
	unsatisfied map[reflect.Type]struct{}
	degraded    atomic.Bool
}

func NewObjectBuilder(
	d *description.ObjectDescription,
	lifetime Lifetime,
	condition Condition,
	dependencies []reflect.Type,
) *ObjectBuilder {
	return &ObjectBuilder{
		description:  d,
		lifetime:     lifetime,
		condition:    condition,
		dependencies: dependencies,
	}
}

func (b *ObjectBuilder) Description() *description.ObjectDescription {
	return b.description
}

func (b *ObjectBuilder) Lifetime() Lifetime {
	return b.lifetime
}

func (b *ObjectBuilder) Condition() Condition {
	return b.condition
}

// Dependencies lists the single-valued contracts the builder's plan needs.
func (b *ObjectBuilder) Dependencies() []reflect.Type {
	return b.dependencies
}

func (b *ObjectBuilder) Ranking() int {
	return b.description.Ranking()
}

// Obsolete is true once the builder left the registry or while one of its
// structural dependencies has no builder.
func (b *ObjectBuilder) Obsolete() bool {
	return b.removed.Load() || b.degraded.Load()
}

func (b *ObjectBuilder) Removed() bool {
	return b.removed.Load()
}

// SetDependencySatisfied records whether contract currently has a builder.
func (b *ObjectBuilder) SetDependencySatisfied(contract reflect.Type, satisfied bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if satisfied {
		delete(b.unsatisfied, contract)
	} else {
		if b.unsatisfied == nil {
			b.unsatisfied = make(map[reflect.Type]struct{})
		}
		b.unsatisfied[contract] = struct{}{}
	}
	b.degraded.Store(len(b.unsatisfied) > 0)
}

// Unsatisfied lists the dependencies that keep the builder obsolete, sorted
// by type name.
func (b *ObjectBuilder) Unsatisfied() []reflect.Type {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]reflect.Type, 0, len(b.unsatisfied))
	for t := range b.unsatisfied {
		out = append(out, t)
	}
	slices.SortFunc(out, func(x, y reflect.Type) int {
		return strings.Compare(typeinfo.Name(x), typeinfo.Name(y))
	})
	return out
}

// Matches reports whether the builder may serve target.
func (b *ObjectBuilder) Matches(target TargetInfo) bool {
	return b.condition == nil || b.condition.Match(target, b.description)
}

// Build produces an instance in a new frame below ictx. A description that is
// already being built further up the chain is a cycle.
func (b *ObjectBuilder) Build(ictx *inject.Context, overrides *inject.Overrides) (any, error) {
	if ictx.Building(b.description) {
		return nil, errs.Circular(ictx.ChainWith(b.description)).
			WithService(typeinfo.Name(b.description.Contract()))
	}
	frame := ictx.Child(b.description, overrides)
	defer frame.Finish()
	return b.lifetime.Instance(frame)
}

func (b *ObjectBuilder) String() string {
	return b.description.String()
}
