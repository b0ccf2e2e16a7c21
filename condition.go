package injector

import (
	"reflect"

	"github.com/jingyiliu/injector/internal/registry"
)

// Condition decides whether a builder may serve an injection target.
type Condition = registry.Condition

// Target describes where a dependency is being injected: the consumer being
// built, the member name and the attributes of the parameter or field.
type Target = registry.TargetInfo

// WhenInjectedInto matches targets whose consumer is T, or implements T when
// T is an interface.
func WhenInjectedInto[T any]() Condition {
	return registry.InjectedInto(reflect.TypeFor[T]())
}

// WhenTargetHas matches parameters or fields carrying attr, set through the
// inject tag or WithParamAttributes.
func WhenTargetHas(attr string) Condition {
	return registry.TargetHas(attr)
}

// WhenMetadata matches when pred accepts the builder's own metadata. label
// names the predicate in diagnostics.
func WhenMetadata(label string, pred func(*Metadata) bool) Condition {
	return registry.MetadataMatches(label, pred)
}

func AllOf(conds ...Condition) Condition {
	return registry.AllOf(conds...)
}
