// Package container is the engine behind the public API. It compiles
// registrations into builders, keeps the registry and the container scope,
// and answers top-level resolution requests.
package container

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/jingyiliu/injector/internal/activation"
	"github.com/jingyiliu/injector/internal/description"
	"github.com/jingyiliu/injector/internal/errs"
	"github.com/jingyiliu/injector/internal/inject"
	"github.com/jingyiliu/injector/internal/lifetime"
	"github.com/jingyiliu/injector/internal/mapper"
	"github.com/jingyiliu/injector/internal/registry"
	"github.com/jingyiliu/injector/internal/resolve"
	"github.com/jingyiliu/injector/internal/scope"
	"github.com/jingyiliu/injector/internal/typeinfo"
)

type Config struct {
	Logger   zerolog.Logger
	Strategy activation.Strategy

	// EagerRebinding makes autowired dependencies follow registry changes
	// through observers instead of re-checking lazily.
	EagerRebinding bool

	// ResolverType and Handle describe the value injected for parameters
	// asking for the resolving scope.
	ResolverType reflect.Type
	Handle       inject.HandleFunc

	ScopeHooks scope.Hooks
}

// Registration is one compiled-on-register service definition.
type Registration struct {
	Contract  reflect.Type
	Recipe    activation.Recipe
	Lifetime  lifetime.Kind
	Ranking   int
	Metadata  *description.Metadata
	Condition registry.Condition

	// Strategy overrides the container default when set.
	Strategy *activation.Strategy
}

type Container struct {
	cfg      Config
	logger   zerolog.Logger
	registry *registry.Registry
	mappers  *mapper.Registry
	binder   *resolve.Binder
	scope    *scope.Scope

	mu    sync.Mutex
	plans map[*registry.ObjectBuilder]*activation.Plan

	providers sync.Map

	genericsMu  sync.RWMutex
	generics    map[string]*GenericDefinition
	synthesized map[reflect.Type]*synthesis

	closed atomic.Bool
}

func New(cfg Config) *Container {
	c := &Container{
		cfg:         cfg,
		logger:      cfg.Logger,
		registry:    registry.New(cfg.Logger),
		mappers:     mapper.NewRegistry(),
		plans:       make(map[*registry.ObjectBuilder]*activation.Plan),
		generics:    make(map[string]*GenericDefinition),
		synthesized: make(map[reflect.Type]*synthesis),
	}
	c.binder = &resolve.Binder{
		Registry:     c.registry,
		Mappers:      c.mappers,
		ResolverType: cfg.ResolverType,
		Eager:        cfg.EagerRebinding,
	}
	c.scope = scope.NewContainer(cfg.Logger, cfg.ScopeHooks)

	c.registry.AddNotFoundHandler(c.closeGeneric)
	c.registry.OnDeactivated(c.release)
	return c
}

func (c *Container) Registry() *registry.Registry {
	return c.registry
}

func (c *Container) Mappers() *mapper.Registry {
	return c.mappers
}

// Scope returns the container scope.
func (c *Container) Scope() *scope.Scope {
	return c.scope
}

func (c *Container) Logger() zerolog.Logger {
	return c.logger
}

// Register compiles reg and activates the resulting builder.
func (c *Container) Register(reg Registration) (*registry.ObjectBuilder, error) {
	b, plan, err := c.compile(reg)
	if err != nil {
		return nil, err
	}
	return c.activate(b, plan)
}

// compile checks reg and builds its builder without touching the registry.
func (c *Container) compile(reg Registration) (*registry.ObjectBuilder, *activation.Plan, error) {
	if c.closed.Load() {
		return nil, nil, errs.Newf(errs.CodeScopeDisposed, "container is closed")
	}
	if reg.Contract == nil {
		return nil, nil, errs.Precondition("contract type must not be nil")
	}
	if reg.Recipe.Kind == activation.KindInstance && reg.Lifetime != lifetime.Container {
		return nil, nil, errs.Newf(
			errs.CodeIncompatibleLifetime,
			"instance of %s can only be registered with the container lifetime, got %s",
			typeinfo.Name(reg.Contract), reg.Lifetime,
		).WithService(typeinfo.Name(reg.Contract))
	}

	recipe := reg.Recipe
	recipe.AllowRequired = reg.Lifetime == lifetime.Transient

	plan, err := activation.Compile(recipe, c.binder)
	if err != nil {
		return nil, nil, withService(err, reg.Contract)
	}

	opts := []description.Option{description.WithRanking(reg.Ranking)}
	if reg.Metadata != nil {
		opts = append(opts, description.WithMetadata(reg.Metadata))
	}
	d, err := description.New(reg.Contract, plan.Concrete, opts...)
	if err != nil {
		plan.Close()
		return nil, nil, err
	}

	strategy := c.cfg.Strategy
	if reg.Strategy != nil {
		strategy = *reg.Strategy
	}
	activator := strategy.New(plan, reg.Lifetime == lifetime.Container)
	lt := lifetime.New(reg.Lifetime, d, activator, c.scope)
	return registry.NewObjectBuilder(d, lt, reg.Condition, plan.Dependencies()), plan, nil
}

func (c *Container) activate(b *registry.ObjectBuilder, plan *activation.Plan) (*registry.ObjectBuilder, error) {
	c.mu.Lock()
	c.plans[b] = plan
	c.mu.Unlock()

	if err := c.registry.Register(b); err != nil {
		c.mu.Lock()
		delete(c.plans, b)
		c.mu.Unlock()
		plan.Close()
		return nil, err
	}
	return b, nil
}

func withService(err error, contract reflect.Type) error {
	if e, ok := errs.As(err); ok && e.Service == "" {
		e.WithService(typeinfo.Name(contract))
	}
	return err
}

// release closes the providers of a builder once it left the registry.
func (c *Container) release(b *registry.ObjectBuilder) {
	c.mu.Lock()
	plan, ok := c.plans[b]
	delete(c.plans, b)
	c.mu.Unlock()

	if ok {
		plan.Close()
	}
}

func (c *Container) Unregister(b *registry.ObjectBuilder) error {
	return c.registry.Unregister(b)
}

// UnregisterContract removes every builder of contract and reports how many
// were removed.
func (c *Container) UnregisterContract(contract reflect.Type) int {
	return len(c.registry.UnregisterContract(contract))
}

// Replace swaps every builder of reg.Contract for the one described by reg.
// reg is compiled first; when it is invalid the old builders stay. The swap
// is not atomic: a concurrent resolution may find the contract empty between
// removal and registration. Autowired dependencies bound to the old builders
// rebind on next use.
func (c *Container) Replace(reg Registration) (*registry.ObjectBuilder, error) {
	b, plan, err := c.compile(reg)
	if err != nil {
		return nil, err
	}

	removed := c.UnregisterContract(reg.Contract)
	if _, err := c.activate(b, plan); err != nil {
		return nil, err
	}
	c.logger.Debug().
		Str("contract", typeinfo.Name(reg.Contract)).
		Int("replaced", removed).
		Msg("contract replaced")
	return b, nil
}

// Plan returns the compiled plan of a registered builder.
func (c *Container) Plan(b *registry.ObjectBuilder) (*activation.Plan, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.plans[b]
	return p, ok
}

// BeginScope opens a root scope below the container scope.
func (c *Container) BeginScope() (*scope.Scope, error) {
	if c.closed.Load() {
		return nil, errs.Newf(errs.CodeScopeDisposed, "container is closed")
	}
	return c.scope.Begin()
}

// provider returns the shared top-level provider for contract.
func (c *Container) provider(contract reflect.Type) (resolve.Provider, error) {
	if p, ok := c.providers.Load(contract); ok {
		return p.(resolve.Provider), nil
	}

	var p resolve.Provider
	if elem, ok := c.mappers.ElemType(contract); ok && typeinfo.IsAutowirable(elem) {
		m, err := c.mappers.New(contract)
		if err != nil {
			return nil, err
		}
		p = resolve.NewCollection(c.registry, m, registry.TargetInfo{})
	} else {
		p = resolve.NewAutowired(c.registry, contract, registry.TargetInfo{}, c.cfg.EagerRebinding)
	}

	if actual, loaded := c.providers.LoadOrStore(contract, p); loaded {
		p.Close()
		return actual.(resolve.Provider), nil
	}
	return p, nil
}

// Strong returns a typed provider for T shared by every caller.
func Strong[T any](c *Container) (*resolve.Strong[T], error) {
	p, err := c.provider(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	return resolve.NewStrong[T](p)
}

// ResolveTyped is ResolveIn through the shared typed provider of T.
func ResolveTyped[T any](c *Container, ictx *inject.Context, overrides *inject.Overrides) (T, error) {
	var zero T
	if c.closed.Load() {
		return zero, errs.Newf(errs.CodeScopeDisposed, "container is closed")
	}

	strong, err := Strong[T](c)
	if err != nil {
		return zero, err
	}
	if _, ok := strong.Provider().(*resolve.Autowired); !ok && !overrides.Empty() {
		return zero, errs.Precondition(
			"override parameters cannot be applied to collection %s", typeinfo.Name(reflect.TypeFor[T]()),
		)
	}
	return strong.GetWith(ictx, overrides)
}

// Root opens the first frame of a resolution from s.
func (c *Container) Root(ctx context.Context, s *scope.Scope) (*inject.Context, error) {
	if s == nil {
		s = c.scope
	}
	if s.Ended() {
		return nil, errs.Newf(errs.CodeScopeDisposed, "%s scope %s has already ended", s.Kind(), s.ID())
	}
	return inject.Root(ctx, s, c.cfg.Handle), nil
}

// Resolve builds contract from s. Overrides apply to the top-level builder
// only.
func (c *Container) Resolve(
	ctx context.Context,
	s *scope.Scope,
	contract reflect.Type,
	overrides *inject.Overrides,
) (any, error) {
	ictx, err := c.Root(ctx, s)
	if err != nil {
		return nil, err
	}
	return c.ResolveIn(ictx, contract, overrides)
}

// ResolveIn continues a resolution from an existing frame, so builders
// already on the frame's chain are reported as cycles.
func (c *Container) ResolveIn(ictx *inject.Context, contract reflect.Type, overrides *inject.Overrides) (any, error) {
	if contract == nil {
		return nil, errs.Precondition("contract type must not be nil")
	}
	if c.closed.Load() {
		return nil, errs.Newf(errs.CodeScopeDisposed, "container is closed")
	}

	p, err := c.provider(contract)
	if err != nil {
		return nil, err
	}
	if a, ok := p.(*resolve.Autowired); ok {
		return a.ResolveWith(ictx, overrides)
	}
	if !overrides.Empty() {
		return nil, errs.Precondition("override parameters cannot be applied to collection %s", typeinfo.Name(contract))
	}
	return p.(resolve.InstanceProvider).Instance(ictx)
}

// Construct builds recipe once from s without registering it. The result
// is owned by the caller and never tracked for disposal.
func (c *Container) Construct(
	ctx context.Context,
	s *scope.Scope,
	recipe activation.Recipe,
	overrides *inject.Overrides,
) (any, error) {
	ictx, err := c.Root(ctx, s)
	if err != nil {
		return nil, err
	}

	recipe.AllowRequired = true
	plan, err := activation.Compile(recipe, c.binder)
	if err != nil {
		return nil, err
	}
	defer plan.Close()

	ictx.Overrides = overrides
	return activation.NewReflective(plan).Activate(ictx)
}

// ResolveAll builds every builder of contract in ranked order.
func (c *Container) ResolveAll(ctx context.Context, s *scope.Scope, contract reflect.Type) ([]any, error) {
	ictx, err := c.Root(ctx, s)
	if err != nil {
		return nil, err
	}
	return c.ResolveAllIn(ictx, contract)
}

func (c *Container) ResolveAllIn(ictx *inject.Context, contract reflect.Type) ([]any, error) {
	o, err := c.registry.TryGetCollection(contract, registry.TargetInfo{})
	if err != nil {
		return nil, err
	}
	defer o.Close()

	var out []any
	for b := range o.All() {
		v, err := b.Build(ictx, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (c *Container) Has(contract reflect.Type) bool {
	return c.registry.Has(contract)
}

func (c *Container) Closed() bool {
	return c.closed.Load()
}

// Close disposes the container scope. It fails while root scopes are open.
func (c *Container) Close() error {
	if c.closed.Load() {
		return nil
	}
	err := c.scope.Dispose()
	if errs.HasCode(err, errs.CodeScopeNesting) {
		return err
	}
	if c.closed.Swap(true) {
		return err
	}

	c.providers.Range(func(key, p any) bool {
		p.(resolve.Provider).Close()
		c.providers.Delete(key)
		return true
	})
	return err
}
