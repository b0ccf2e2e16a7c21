package injector

import (
	"context"
	"reflect"

	"github.com/jingyiliu/injector/internal/activation"
	"github.com/jingyiliu/injector/internal/container"
	"github.com/jingyiliu/injector/internal/description"
	"github.com/jingyiliu/injector/internal/inject"
	"github.com/jingyiliu/injector/internal/lifetime"
	"github.com/jingyiliu/injector/internal/registry"
	"github.com/jingyiliu/injector/internal/typeinfo"
)

// Lifetime decides how long a built instance is shared.
type Lifetime = lifetime.Kind

const (
	// Transient builds a new instance per request.
	Transient = lifetime.Transient
	// Scoped reuses an instance cached by the requesting scope or one of its
	// ancestors and otherwise caches a new one in the requesting scope.
	// Sibling scopes therefore get distinct instances.
	Scoped = lifetime.Scoped
	// Singleton shares one instance per container.
	Singleton = lifetime.Container
)

func ParseLifetime(s string) (Lifetime, error) {
	return lifetime.ParseKind(s)
}

// ActivationStrategy picks how instances are constructed.
type ActivationStrategy = activation.Strategy

const (
	// ActivationAuto uses compiled plans, except for singletons which are
	// built only once and use reflection.
	ActivationAuto       = activation.StrategyAuto
	ActivationReflective = activation.StrategyReflective
	ActivationCompiled   = activation.StrategyCompiled
)

func ParseActivation(s string) (ActivationStrategy, error) {
	return activation.ParseStrategy(s)
}

// Metadata is attached to a registration and compared by identity.
type Metadata = description.Metadata

func NewMetadata(name string, values map[string]any) *Metadata {
	return description.NewMetadata(name, values)
}

// Factory builds a T. The Resolver continues the resolution that asked for
// T, so dependency cycles through factories are reported.
type Factory[T any] func(ctx context.Context, r Resolver) (T, error)

type RegisterOption func(*registerConfig)

type registerConfig struct {
	lifetime    Lifetime
	lifetimeSet bool
	ranking     int
	metadata    *Metadata
	condition   Condition
	strategy    *ActivationStrategy

	paramNames      []string
	paramAttributes map[int][]string
	values          []valueConfig
	methods         []string
}

type valueConfig struct {
	index    int
	name     string
	constant any
	factory  func(ctx context.Context, r Resolver) (any, error)
}

func newRegisterConfig(opts []RegisterOption) *registerConfig {
	cfg := &registerConfig{lifetime: Transient}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func WithLifetime(l Lifetime) RegisterOption {
	return func(cfg *registerConfig) {
		cfg.lifetime = l
		cfg.lifetimeSet = true
	}
}

// WithRanking orders builders of one contract. Lower rankings come first
// and win single lookups; ties go to the most recent registration.
func WithRanking(ranking int) RegisterOption {
	return func(cfg *registerConfig) {
		cfg.ranking = ranking
	}
}

func WithMetadata(m *Metadata) RegisterOption {
	return func(cfg *registerConfig) {
		cfg.metadata = m
	}
}

// When restricts the builder to injection targets the condition accepts.
func When(cond Condition) RegisterOption {
	return func(cfg *registerConfig) {
		cfg.condition = cond
	}
}

// WithStrategy overrides the container activation strategy for one
// registration.
func WithStrategy(s ActivationStrategy) RegisterOption {
	return func(cfg *registerConfig) {
		cfg.strategy = &s
	}
}

// WithParam fixes constructor parameter index to value.
func WithParam(index int, value any) RegisterOption {
	return func(cfg *registerConfig) {
		cfg.values = append(cfg.values, valueConfig{index: index, constant: value})
	}
}

// WithNamedParam fixes the parameter or tagged field called name to value.
func WithNamedParam(name string, value any) RegisterOption {
	return func(cfg *registerConfig) {
		cfg.values = append(cfg.values, valueConfig{index: -1, name: name, constant: value})
	}
}

// WithParamFactory computes constructor parameter index on every
// activation.
func WithParamFactory(index int, fn func(ctx context.Context, r Resolver) (any, error)) RegisterOption {
	return func(cfg *registerConfig) {
		cfg.values = append(cfg.values, valueConfig{index: index, factory: fn})
	}
}

// WithParamNames names constructor parameters in declaration order so that
// named overrides and WithNamedParam can address them.
func WithParamNames(names ...string) RegisterOption {
	return func(cfg *registerConfig) {
		cfg.paramNames = names
	}
}

// WithParamAttributes attaches target attributes to constructor parameter
// index, as the inject tag does for fields.
func WithParamAttributes(index int, attrs ...string) RegisterOption {
	return func(cfg *registerConfig) {
		if cfg.paramAttributes == nil {
			cfg.paramAttributes = make(map[int][]string)
		}
		cfg.paramAttributes[index] = append(cfg.paramAttributes[index], attrs...)
	}
}

// WithMethod calls the named methods after construction with autowired
// arguments, in the given order.
func WithMethod(names ...string) RegisterOption {
	return func(cfg *registerConfig) {
		cfg.methods = append(cfg.methods, names...)
	}
}

func (cfg *registerConfig) recipe(c *Container, base activation.Recipe) activation.Recipe {
	base.ParamNames = cfg.paramNames
	base.ParamAttributes = cfg.paramAttributes
	base.Methods = cfg.methods

	for _, v := range cfg.values {
		value := activation.Value{Index: v.index, Name: v.name, Constant: v.constant}
		if v.factory != nil {
			fn := v.factory
			value.Factory = func(ictx *inject.Context) (any, error) {
				return fn(ictx.Ctx, c.bind(ictx))
			}
		}
		base.Values = append(base.Values, value)
	}
	return base
}

func (cfg *registerConfig) registration(contract reflect.Type, recipe activation.Recipe) container.Registration {
	return container.Registration{
		Contract:  contract,
		Recipe:    recipe,
		Lifetime:  cfg.lifetime,
		Ranking:   cfg.ranking,
		Metadata:  cfg.metadata,
		Condition: cfg.condition,
		Strategy:  cfg.strategy,
	}
}

func constructorRecipe(constructor any) activation.Recipe {
	return activation.Recipe{Kind: activation.KindConstructor, Constructor: reflect.ValueOf(constructor)}
}

func structRecipe[S any]() activation.Recipe {
	return activation.Recipe{Kind: activation.KindStruct, Concrete: reflect.TypeFor[S]()}
}

func factoryRecipe[T any](c *Container, fn Factory[T]) activation.Recipe {
	return activation.Recipe{
		Kind:     activation.KindFactory,
		Concrete: reflect.TypeFor[T](),
		Factory: func(ictx *inject.Context) (any, error) {
			return fn(ictx.Ctx, c.bind(ictx))
		},
	}
}

func instanceRecipe[T any](value T) activation.Recipe {
	concrete := reflect.TypeFor[T]()
	if !typeinfo.IsNil(value) {
		concrete = reflect.TypeOf(value)
	}
	return activation.Recipe{Kind: activation.KindInstance, Concrete: concrete, Instance: value}
}

// Registration is the handle of one registered builder.
type Registration struct {
	container *Container
	builder   *registry.ObjectBuilder
}

func (c *Container) register(contract reflect.Type, recipe activation.Recipe, cfg *registerConfig) (*Registration, error) {
	b, err := c.internal.Register(cfg.registration(contract, cfg.recipe(c, recipe)))
	if err != nil {
		return nil, err
	}
	return &Registration{container: c, builder: b}, nil
}

// Register adds a builder for contract C that calls constructor. The
// constructor returns a value assignable to C, optionally followed by an
// error; its parameters are autowired.
func Register[C any](c *Container, constructor any, opts ...RegisterOption) (*Registration, error) {
	return c.register(reflect.TypeFor[C](), constructorRecipe(constructor), newRegisterConfig(opts))
}

// RegisterType adds a builder for contract C that allocates S and fills its
// inject-tagged fields. S is a struct or a pointer to a struct.
func RegisterType[C, S any](c *Container, opts ...RegisterOption) (*Registration, error) {
	return c.register(reflect.TypeFor[C](), structRecipe[S](), newRegisterConfig(opts))
}

func RegisterFactory[C any](c *Container, fn Factory[C], opts ...RegisterOption) (*Registration, error) {
	return c.register(reflect.TypeFor[C](), factoryRecipe(c, fn), newRegisterConfig(opts))
}

// RegisterInstance adds an existing value. Instances always live as long as
// the container; asking for another lifetime is a configuration error.
func RegisterInstance[C any](c *Container, value C, opts ...RegisterOption) (*Registration, error) {
	cfg := newRegisterConfig(opts)
	if !cfg.lifetimeSet {
		cfg.lifetime = Singleton
	}
	return c.register(reflect.TypeFor[C](), instanceRecipe(value), cfg)
}

func MustRegister[C any](c *Container, constructor any, opts ...RegisterOption) *Registration {
	r, err := Register[C](c, constructor, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

func MustRegisterInstance[C any](c *Container, value C, opts ...RegisterOption) *Registration {
	r, err := RegisterInstance(c, value, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registration) Contract() reflect.Type {
	return r.builder.Description().Contract()
}

func (r *Registration) Concrete() reflect.Type {
	return r.builder.Description().Concrete()
}

func (r *Registration) Lifetime() Lifetime {
	return lifetime.KindOf(r.builder.Lifetime())
}

func (r *Registration) Ranking() int {
	return r.builder.Ranking()
}

func (r *Registration) Metadata() *Metadata {
	return r.builder.Description().Metadata()
}

// Obsolete reports whether the builder was unregistered or one of its
// dependencies lost its last builder.
func (r *Registration) Obsolete() bool {
	return r.builder.Obsolete()
}

// Unregister removes the builder. Dependents bound to it rebind to another
// builder of the same contract on their next use.
func (r *Registration) Unregister() error {
	return r.container.internal.Unregister(r.builder)
}

func (r *Registration) String() string {
	return r.builder.String()
}
