package injector

import (
	"context"
	"os"
	"os/signal"
	"reflect"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/jingyiliu/injector/internal/container"
	"github.com/jingyiliu/injector/internal/errs"
	"github.com/jingyiliu/injector/internal/inject"
	"github.com/jingyiliu/injector/internal/registry"
	"github.com/jingyiliu/injector/internal/scope"
	"github.com/jingyiliu/injector/internal/typeinfo"
)

// Container owns the registry and the container scope. It is safe for
// concurrent use.
type Container struct {
	internal *container.Container
	config   *containerConfig
	tel      *telemetry
}

type containerConfig struct {
	logger   zerolog.Logger
	strategy ActivationStrategy
	eager    bool

	validateOnApply bool

	onResolve  []ResolveHook
	onRegister []RegisterHook
	onDispose  []DisposeHook

	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

var resolverType = reflect.TypeFor[Resolver]()

func New(opts ...Option) *Container {
	cfg := &containerConfig{
		logger: zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	c := &Container{config: cfg}

	tel, err := newTelemetry(cfg.tracerProvider, cfg.meterProvider)
	if err != nil {
		cfg.logger.Warn().Err(err).Msg("telemetry instruments unavailable, falling back to no-op")
		tel, _ = newTelemetry(tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider())
	}
	c.tel = tel

	c.internal = container.New(
		container.Config{
			Logger:         cfg.logger,
			Strategy:       cfg.strategy,
			EagerRebinding: cfg.eager,
			ResolverType:   resolverType,
			Handle: func(frame *inject.Context) any {
				return c.bind(frame)
			},
			ScopeHooks: scope.Hooks{
				OnDispose: c.disposed,
			},
		},
	)

	if len(cfg.onRegister) > 0 {
		c.internal.Registry().OnActivated(func(b *registry.ObjectBuilder) {
			name := typeinfo.Name(b.Description().Contract())
			for _, hook := range cfg.onRegister {
				hook(name)
			}
		})
	}

	return c
}

func (c *Container) disposed(s *scope.Scope, instance any, err error) {
	c.tel.disposed(s.Kind().String(), err)
	for _, hook := range c.config.onDispose {
		hook(s.ID(), instance, err)
	}
}

func (c *Container) wrap(s *scope.Scope) *Scope {
	return &Scope{container: c, scope: s}
}

// bind returns the resolver handed to a running builder. While the builder
// runs, its resolutions extend the builder's chain.
func (c *Container) bind(frame *inject.Context) *Scope {
	return &Scope{container: c, scope: frame.Scope, frame: frame}
}

// Validate reports contracts that are depended on but never registered and
// dependency cycles between contracts.
func (c *Container) Validate() error {
	return c.internal.Validate()
}

// Warmup builds every singleton, dependencies first.
func (c *Container) Warmup(ctx context.Context) error {
	return c.internal.Warmup(ctx)
}

// Size returns the number of registered builders.
func (c *Container) Size() int {
	return c.internal.Registry().Len()
}

// Contracts lists the registered contract types by name.
func (c *Container) Contracts() []string {
	contracts := c.internal.Registry().Contracts()
	out := make([]string, 0, len(contracts))
	for _, t := range contracts {
		out = append(out, typeinfo.Name(t))
	}
	return out
}

// Scope returns the container scope. Transient disposables resolved from
// the container itself are queued there.
func (c *Container) Scope() *Scope {
	return c.wrap(c.internal.Scope())
}

// BeginScope opens a root scope, the sharing boundary for scoped services.
func (c *Container) BeginScope() (*Scope, error) {
	s, err := c.internal.BeginScope()
	if err != nil {
		return nil, err
	}
	return c.wrap(s), nil
}

func (c *Container) ResolveType(ctx context.Context, t reflect.Type, overrides ...Override) (any, error) {
	return c.resolve(ctx, c.internal.Scope(), t, overrides)
}

func (c *Container) ResolveAllType(ctx context.Context, t reflect.Type) ([]any, error) {
	return c.internal.ResolveAll(ctx, c.internal.Scope(), t)
}

func (c *Container) Has(t reflect.Type) bool {
	return c.internal.Has(t)
}

func (c *Container) resolve(ctx context.Context, s *scope.Scope, t reflect.Type, overrides []Override) (any, error) {
	var v any
	err := c.observe(ctx, s, t, func(ctx context.Context) error {
		var err error
		v, err = c.internal.Resolve(ctx, s, t, collectOverrides(overrides))
		return err
	})
	return v, err
}

// observe runs one top-level resolution of t under the resolve span, the
// OnResolve hooks and failure logging.
func (c *Container) observe(ctx context.Context, s *scope.Scope, t reflect.Type, fn func(ctx context.Context) error) error {
	if t == nil {
		return errs.Precondition("contract type must not be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	name := typeinfo.Name(t)
	start := time.Now()
	ctx, end := c.tel.startResolve(ctx, name, s.ID())

	err := fn(ctx)

	end(err)
	for _, hook := range c.config.onResolve {
		hook(name, time.Since(start), err)
	}
	if err != nil {
		c.config.logger.Debug().Err(err).
			Str("contract", name).
			Str("scope_id", s.ID()).
			Msg("resolution failed")
	}
	return err
}

// Close disposes the container scope and everything it owns. It fails while
// root scopes are still open. Closing twice is a no-op.
func (c *Container) Close() error {
	return c.internal.Close()
}

func (c *Container) Closed() bool {
	return c.internal.Closed()
}

// Run warms the container up, blocks until ctx is done or the process is
// interrupted, then closes the container.
func (c *Container) Run(ctx context.Context) error {
	if err := c.Warmup(ctx); err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-ctx.Done():
	case <-quit:
	}

	signal.Stop(quit)
	close(quit)

	return c.Close()
}
