package injector

import (
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type Option func(*containerConfig)

func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *containerConfig) {
		cfg.logger = logger
	}
}

// WithActivation sets the default activation strategy. Registrations can
// override it with WithStrategy.
func WithActivation(s ActivationStrategy) Option {
	return func(cfg *containerConfig) {
		cfg.strategy = s
	}
}

// WithEagerRebinding makes autowired dependencies follow registry changes as
// they happen instead of re-checking their binding on next use.
func WithEagerRebinding(eager bool) Option {
	return func(cfg *containerConfig) {
		cfg.eager = eager
	}
}

// WithValidateOnApply makes Apply validate the container after the modules
// were applied.
func WithValidateOnApply(validate bool) Option {
	return func(cfg *containerConfig) {
		cfg.validateOnApply = validate
	}
}

func WithResolveObserver(hook ResolveHook) Option {
	return func(cfg *containerConfig) {
		cfg.onResolve = append(cfg.onResolve, hook)
	}
}

func WithRegisterObserver(hook RegisterHook) Option {
	return func(cfg *containerConfig) {
		cfg.onRegister = append(cfg.onRegister, hook)
	}
}

func WithDisposeObserver(hook DisposeHook) Option {
	return func(cfg *containerConfig) {
		cfg.onDispose = append(cfg.onDispose, hook)
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *containerConfig) {
		cfg.tracerProvider = tp
	}
}

func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(cfg *containerConfig) {
		cfg.meterProvider = mp
	}
}
