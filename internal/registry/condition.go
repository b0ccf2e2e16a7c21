package registry

import (
	"reflect"
	"slices"
	"strings"

	"github.com/jingyiliu/injector/internal/description"
	"github.com/jingyiliu/injector/internal/typeinfo"
)

// TargetInfo describes the injection point asking for a dependency. The zero
// value stands for a direct request from application code.
type TargetInfo struct {
	Consumer   reflect.Type
	Member     string
	Attributes []string
}

func (t TargetInfo) HasAttribute(attr string) bool {
	return slices.Contains(t.Attributes, attr)
}

// Condition restricts the injection points a builder may serve.
type Condition interface {
	Match(target TargetInfo, d *description.ObjectDescription) bool
	String() string
}

type injectedInto struct {
	consumer reflect.Type
}

// InjectedInto matches only when the consumer is t, or implements t when t
// is an interface.
func InjectedInto(t reflect.Type) Condition {
	return injectedInto{consumer: t}
}

func (c injectedInto) Match(target TargetInfo, _ *description.ObjectDescription) bool {
	if target.Consumer == nil {
		return false
	}
	if target.Consumer == c.consumer {
		return true
	}
	return c.consumer.Kind() == reflect.Interface && target.Consumer.Implements(c.consumer)
}

func (c injectedInto) String() string {
	return "injected into " + typeinfo.Name(c.consumer)
}

type targetHas struct {
	attr string
}

// TargetHas matches injection points carrying attr.
func TargetHas(attr string) Condition {
	return targetHas{attr: attr}
}

func (c targetHas) Match(target TargetInfo, _ *description.ObjectDescription) bool {
	return target.HasAttribute(c.attr)
}

func (c targetHas) String() string {
	return "target has " + c.attr
}

type metadataMatches struct {
	label string
	pred  func(*description.Metadata) bool
}

// MetadataMatches matches when pred accepts the builder's own metadata.
func MetadataMatches(label string, pred func(*description.Metadata) bool) Condition {
	return metadataMatches{label: label, pred: pred}
}

func (c metadataMatches) Match(_ TargetInfo, d *description.ObjectDescription) bool {
	return c.pred(d.Metadata())
}

func (c metadataMatches) String() string {
	return "metadata " + c.label
}

type allOf []Condition

func AllOf(conds ...Condition) Condition {
	return allOf(conds)
}

func (c allOf) Match(target TargetInfo, d *description.ObjectDescription) bool {
	for _, cond := range c {
		if !cond.Match(target, d) {
			return false
		}
	}
	return true
}

func (c allOf) String() string {
	parts := make([]string, len(c))
	for i, cond := range c {
		parts[i] = cond.String()
	}
	return strings.Join(parts, " and ")
}
