// Package activation compiles construction recipes into injection plans and
// runs them, either reflectively or through a precompiled closure chain.
package activation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/jingyiliu/injector/internal/errs"
	"github.com/jingyiliu/injector/internal/inject"
	"github.com/jingyiliu/injector/internal/registry"
	"github.com/jingyiliu/injector/internal/resolve"
	"github.com/jingyiliu/injector/internal/typeinfo"
)

// TagKey marks struct fields that receive injected values.
const TagKey = "inject"

type Kind int

const (
	KindConstructor Kind = iota
	KindStruct
	KindFactory
	KindInstance
)

func (k Kind) String() string {
	switch k {
	case KindConstructor:
		return "constructor"
	case KindStruct:
		return "struct"
	case KindFactory:
		return "factory"
	case KindInstance:
		return "instance"
	default:
		return "unknown"
	}
}

// Value is an explicit value for one parameter or member. Index addresses a
// constructor parameter; when Index is negative, Name addresses a parameter
// declared through ParamNames or a tagged field.
type Value struct {
	Index    int
	Name     string
	Constant any
	Factory  func(ictx *inject.Context) (any, error)
}

func (v Value) label() string {
	if v.Index >= 0 {
		return fmt.Sprintf("#%d", v.Index)
	}
	return v.Name
}

// Recipe is what a registration asks to be built.
type Recipe struct {
	Kind Kind

	// Constructor is a func returning the concrete type, optionally followed
	// by an error.
	Constructor reflect.Value

	// Concrete is the struct or pointer-to-struct type for KindStruct and
	// the produced type for KindFactory and KindInstance.
	Concrete reflect.Type

	Factory  func(ictx *inject.Context) (any, error)
	Instance any

	ParamNames      []string
	ParamAttributes map[int][]string
	Values          []Value
	Methods         []string

	// AllowRequired turns uncovered non-autowirable slots into providers
	// that only an override can satisfy instead of failing compilation.
	AllowRequired bool
}

// Slot is one constructor or method parameter, or one injected field.
type Slot struct {
	Index       int
	Name        string
	Type        reflect.Type
	Provider    resolve.Provider
	Autowirable bool
	Fixed       bool
}

type Property struct {
	Slot
	Field []int
}

type Method struct {
	Name   string
	Func   reflect.Value
	Params []Slot
}

// Plan is the compiled form of a Recipe. Providers are created once here and
// shared by every activation.
type Plan struct {
	Kind       Kind
	Concrete   reflect.Type
	Params     []Slot
	Properties []Property
	Methods    []Method

	ctor       reflect.Value
	returnsErr bool
	factory    func(ictx *inject.Context) (any, error)
	instance   any
	names      map[string]struct{}
}

// Compile resolves every injection point of r into a provider.
func Compile(r Recipe, binder *resolve.Binder) (*Plan, error) {
	p := &Plan{Kind: r.Kind, names: make(map[string]struct{})}
	c := &compiler{recipe: r, binder: binder, used: make([]bool, len(r.Values))}

	var err error
	switch r.Kind {
	case KindConstructor:
		err = c.constructor(p)
	case KindStruct:
		err = c.structType(p)
	case KindFactory:
		if r.Factory == nil {
			err = errs.Precondition("factory must not be nil")
		}
		p.Concrete, p.factory = r.Concrete, r.Factory
	case KindInstance:
		p.Concrete, p.instance = r.Concrete, r.Instance
	default:
		err = errs.Precondition("unknown recipe kind %d", r.Kind)
	}
	if err == nil && (r.Kind == KindConstructor || r.Kind == KindStruct) {
		err = c.methods(p)
	}
	if err == nil {
		err = c.unused(p)
	}
	if err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

type compiler struct {
	recipe Recipe
	binder *resolve.Binder
	used   []bool
}

func (c *compiler) constructor(p *Plan) error {
	fn := c.recipe.Constructor
	if !fn.IsValid() || fn.Kind() != reflect.Func || fn.IsNil() {
		return errs.Precondition("constructor must be a non-nil function")
	}

	ft := fn.Type()
	if ft.IsVariadic() {
		return errs.Precondition("constructor %s must not be variadic", ft)
	}
	switch {
	case ft.NumOut() == 1 && ft.Out(0) != typeinfo.ErrorType:
	case ft.NumOut() == 2 && ft.Out(1) == typeinfo.ErrorType:
		p.returnsErr = true
	default:
		return errs.Precondition("constructor %s must return T or (T, error)", ft)
	}
	if len(c.recipe.ParamNames) > ft.NumIn() {
		return errs.Precondition(
			"%d parameter names given for constructor %s with %d parameters",
			len(c.recipe.ParamNames), ft, ft.NumIn(),
		)
	}

	p.ctor = fn
	p.Concrete = ft.Out(0)

	for i := range ft.NumIn() {
		name := ""
		if i < len(c.recipe.ParamNames) {
			name = c.recipe.ParamNames[i]
		}
		if name != "" {
			p.names[name] = struct{}{}
		}
		target := registry.TargetInfo{
			Consumer:   p.Concrete,
			Member:     name,
			Attributes: c.recipe.ParamAttributes[i],
		}
		slot, err := c.slot(i, name, ft.In(i), target, p.Concrete)
		if err != nil {
			return err
		}
		p.Params = append(p.Params, slot)
	}

	if structOf(p.Concrete) != nil {
		return c.properties(p)
	}
	return nil
}

func (c *compiler) structType(p *Plan) error {
	t := c.recipe.Concrete
	if structOf(t) == nil {
		return errs.Precondition("%s is not a struct or pointer to struct", typeinfo.Name(t))
	}
	p.Concrete = t
	return c.properties(p)
}

func structOf(t reflect.Type) reflect.Type {
	if t == nil {
		return nil
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	return t
}

func (c *compiler) properties(p *Plan) error {
	st := structOf(p.Concrete)
	for i := range st.NumField() {
		f := st.Field(i)
		tag, ok := f.Tag.Lookup(TagKey)
		if !ok || tag == "-" {
			continue
		}
		if !f.IsExported() {
			return errs.Precondition(
				"field %s of %s is tagged for injection but unexported", f.Name, typeinfo.Name(p.Concrete),
			)
		}

		var attrs []string
		for a := range strings.SplitSeq(tag, ",") {
			if a = strings.TrimSpace(a); a != "" {
				attrs = append(attrs, a)
			}
		}

		p.names[f.Name] = struct{}{}
		target := registry.TargetInfo{Consumer: p.Concrete, Member: f.Name, Attributes: attrs}
		slot, err := c.slot(-1, f.Name, f.Type, target, p.Concrete)
		if err != nil {
			return err
		}
		p.Properties = append(p.Properties, Property{Slot: slot, Field: f.Index})
	}
	return nil
}

func (c *compiler) methods(p *Plan) error {
	for _, name := range c.recipe.Methods {
		m, ok := p.Concrete.MethodByName(name)
		if !ok {
			return errs.Precondition("%s has no exported method %s", typeinfo.Name(p.Concrete), name)
		}
		mt := m.Type
		if mt.NumOut() > 1 || (mt.NumOut() == 1 && mt.Out(0) != typeinfo.ErrorType) {
			return errs.Precondition("method %s.%s must return nothing or an error", typeinfo.Name(p.Concrete), name)
		}

		method := Method{Name: name, Func: m.Func}
		for i := 1; i < mt.NumIn(); i++ {
			t := mt.In(i)
			target := registry.TargetInfo{Consumer: p.Concrete, Member: name}
			prov, ok, err := c.binder.For(t, target)
			if err != nil {
				return err
			}
			if !ok {
				return errs.NonAutowirableMember(fmt.Sprintf("%s#%d", name, i-1), p.Concrete, t)
			}
			method.Params = append(method.Params, Slot{Index: i - 1, Type: t, Provider: prov, Autowirable: true})
		}
		p.Methods = append(p.Methods, method)
	}
	return nil
}

func (c *compiler) explicit(index int, name string) (Value, bool) {
	for i, v := range c.recipe.Values {
		if (v.Index >= 0 && v.Index == index) || (v.Index < 0 && name != "" && v.Name == name) {
			c.used[i] = true
			return v, true
		}
	}
	return Value{}, false
}

func (c *compiler) slot(
	index int,
	name string,
	t reflect.Type,
	target registry.TargetInfo,
	declaring reflect.Type,
) (Slot, error) {
	s := Slot{Index: index, Name: name, Type: t}

	if v, ok := c.explicit(index, name); ok {
		s.Fixed = true
		if v.Factory != nil {
			s.Provider = resolve.NewFactory(t, v.Factory)
			return s, nil
		}
		prov, err := resolve.NewConstant(t, v.Constant)
		if err != nil {
			return s, err
		}
		s.Provider = prov
		return s, nil
	}

	prov, ok, err := c.binder.For(t, target)
	if err != nil {
		return s, err
	}
	if ok {
		s.Provider, s.Autowirable = prov, true
		return s, nil
	}

	if !c.recipe.AllowRequired {
		if index < 0 {
			return s, errs.NonAutowirableMember(name, declaring, t)
		}
		return s, errs.NonAutowirable(index, declaring, t)
	}
	if index < 0 {
		s.Provider = resolve.NewRequiredMember(t, declaring, name)
	} else {
		s.Provider = resolve.NewRequired(t, declaring, index)
	}
	return s, nil
}

func (c *compiler) unused(p *Plan) error {
	for i, v := range c.recipe.Values {
		if !c.used[i] {
			return errs.RedundantParameter(v.label(), p.Concrete)
		}
	}
	return nil
}

// Dependencies lists the single-valued contracts the plan autowires.
func (p *Plan) Dependencies() []reflect.Type {
	var deps []reflect.Type
	add := func(s Slot) {
		if a, ok := s.Provider.(*resolve.Autowired); ok {
			deps = append(deps, a.Type())
		}
	}
	for _, s := range p.Params {
		add(s)
	}
	for _, prop := range p.Properties {
		add(prop.Slot)
	}
	for _, m := range p.Methods {
		for _, s := range m.Params {
			add(s)
		}
	}
	return deps
}

// Collections lists the element contracts of the plan's collection
// dependencies.
func (p *Plan) Collections() []reflect.Type {
	var out []reflect.Type
	visit := func(s Slot) {
		if c, ok := s.Provider.(*resolve.Collection); ok {
			out = append(out, c.Elem())
		}
	}
	for _, s := range p.Params {
		visit(s)
	}
	for _, prop := range p.Properties {
		visit(prop.Slot)
	}
	for _, m := range p.Methods {
		for _, s := range m.Params {
			visit(s)
		}
	}
	return out
}

// Close releases the registry observers held by the plan's providers.
func (p *Plan) Close() {
	for _, s := range p.Params {
		closeProvider(s.Provider)
	}
	for _, prop := range p.Properties {
		closeProvider(prop.Provider)
	}
	for _, m := range p.Methods {
		for _, s := range m.Params {
			closeProvider(s.Provider)
		}
	}
}

func closeProvider(p resolve.Provider) {
	if p != nil {
		p.Close()
	}
}
