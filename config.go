package injector

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/jingyiliu/injector/internal/errs"
)

// EnvPrefix prefixes environment overrides, e.g. INJECTOR_LOG_LEVEL.
const EnvPrefix = "INJECTOR"

// Config is the file and environment form of the container options.
type Config struct {
	Activation      string          `mapstructure:"activation" validate:"oneof=auto reflective compiled"`
	EagerRebinding  bool            `mapstructure:"eager_rebinding"`
	ValidateOnApply bool            `mapstructure:"validate_on_apply"`
	Log             LogConfig       `mapstructure:"log"`
	Telemetry       TelemetryConfig `mapstructure:"telemetry"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

type TelemetryConfig struct {
	// Enabled reports to the global OpenTelemetry providers. When false,
	// no-op providers are used unless options supply others.
	Enabled bool `mapstructure:"enabled"`
}

func DefaultConfig() Config {
	return Config{
		Activation: "auto",
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

type loaderConfig struct {
	envFile string
}

type ConfigOption func(*loaderConfig)

// WithEnvFile loads a .env file before environment overrides are read.
// Variables already set in the process win.
func WithEnvFile(path string) ConfigOption {
	return func(lc *loaderConfig) {
		lc.envFile = path
	}
}

// LoadConfig reads path (YAML, JSON or TOML by extension) over the
// defaults, then applies INJECTOR_* environment overrides. An empty path
// loads defaults and environment only.
func LoadConfig(path string, opts ...ConfigOption) (*Config, error) {
	var lc loaderConfig
	for _, opt := range opts {
		opt(&lc)
	}

	if lc.envFile != "" {
		if err := godotenv.Load(lc.envFile); err != nil {
			return nil, errs.New(errs.CodeConfiguration, "loading env file "+lc.envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errs.New(errs.CodeConfiguration, "reading config file "+path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errs.New(errs.CodeConfiguration, "decoding config", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("activation", cfg.Activation)
	v.SetDefault("eager_rebinding", cfg.EagerRebinding)
	v.SetDefault("validate_on_apply", cfg.ValidateOnApply)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("telemetry.enabled", cfg.Telemetry.Enabled)
}

var configValidator = validator.New(validator.WithRequiredStructEnabled())

func (c *Config) Validate() error {
	err := configValidator.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errs.New(errs.CodeConfiguration, "invalid config", err)
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg := fe.Namespace() + ": failed " + fe.Tag()
		if fe.Param() != "" {
			msg += " (" + fe.Param() + ")"
		}
		messages = append(messages, msg)
	}
	return errs.New(errs.CodeConfiguration, "invalid config: "+strings.Join(messages, "; "), err)
}

// NewLogger builds the zerolog logger described by the log section.
func (c *Config) NewLogger(w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil {
		return zerolog.Nop(), errs.New(errs.CodeConfiguration, "invalid log level "+c.Log.Level, err)
	}
	if w == nil {
		w = os.Stderr
	}
	if c.Log.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}

// NewFromConfig builds a container from cfg. opts are applied after the
// config and take precedence.
func NewFromConfig(cfg *Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	strategy, err := ParseActivation(cfg.Activation)
	if err != nil {
		return nil, err
	}
	logger, err := cfg.NewLogger(os.Stderr)
	if err != nil {
		return nil, err
	}

	base := []Option{
		WithLogger(logger),
		WithActivation(strategy),
		WithEagerRebinding(cfg.EagerRebinding),
		WithValidateOnApply(cfg.ValidateOnApply),
	}
	if !cfg.Telemetry.Enabled {
		base = append(base,
			WithTracerProvider(tracenoop.NewTracerProvider()),
			WithMeterProvider(metricnoop.NewMeterProvider()),
		)
	}

	return New(append(base, opts...)...), nil
}
