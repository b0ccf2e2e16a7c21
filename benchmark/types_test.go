package benchmark

import (
	"github.com/rs/zerolog"
	"github.com/samber/do/v2"
	"go.uber.org/dig"
	"go.uber.org/fx"

	"github.com/jingyiliu/injector"
)

type Config struct {
	Host string
	Port int
}

type Logger struct {
	Level string
}

type Database struct {
	Config *Config
	Logger *Logger
}

type Cache struct {
	Logger *Logger
}

type Repository struct {
	DB    *Database
	Cache *Cache
}

type Service struct {
	Repo   *Repository
	Logger *Logger
}

func NewConfig() *Config { return &Config{Host: "localhost", Port: 8080} }

func NewLogger() *Logger { return &Logger{Level: "info"} }

func NewDatabase(cfg *Config, log *Logger) *Database { return &Database{Config: cfg, Logger: log} }

func NewCache(log *Logger) *Cache { return &Cache{Logger: log} }

func NewRepository(db *Database, cache *Cache) *Repository { return &Repository{DB: db, Cache: cache} }

func NewService(repo *Repository, log *Logger) *Service { return &Service{Repo: repo, Logger: log} }

func newInjector(opts ...injector.Option) *injector.Container {
	return injector.New(append([]injector.Option{injector.WithLogger(zerolog.Nop())}, opts...)...)
}

// registerChain registers the Config -> ... -> Service graph. Config and
// Logger are instances; the rest use lt.
func registerChain(c *injector.Container, lt injector.Lifetime) {
	_, _ = injector.RegisterInstance(c, NewConfig())
	_, _ = injector.RegisterInstance(c, NewLogger())
	_, _ = injector.Register[*Database](c, NewDatabase, injector.WithLifetime(lt))
	_, _ = injector.Register[*Cache](c, NewCache, injector.WithLifetime(lt))
	_, _ = injector.Register[*Repository](c, NewRepository, injector.WithLifetime(lt))
	_, _ = injector.Register[*Service](c, NewService, injector.WithLifetime(lt))
}

// provideDoChain registers the same graph with samber/do. do providers pull
// their dependencies through the injector.
func provideDoChain(di do.Injector, transient bool) {
	do.ProvideValue(di, NewConfig())
	do.ProvideValue(di, NewLogger())

	if transient {
		do.ProvideTransient(di, doDatabase)
		do.ProvideTransient(di, doCache)
		do.ProvideTransient(di, doRepository)
		do.ProvideTransient(di, doService)
		return
	}
	do.Provide(di, doDatabase)
	do.Provide(di, doCache)
	do.Provide(di, doRepository)
	do.Provide(di, doService)
}

func doDatabase(i do.Injector) (*Database, error) {
	return NewDatabase(do.MustInvoke[*Config](i), do.MustInvoke[*Logger](i)), nil
}

func doCache(i do.Injector) (*Cache, error) {
	return NewCache(do.MustInvoke[*Logger](i)), nil
}

func doRepository(i do.Injector) (*Repository, error) {
	return NewRepository(do.MustInvoke[*Database](i), do.MustInvoke[*Cache](i)), nil
}

func doService(i do.Injector) (*Service, error) {
	return NewService(do.MustInvoke[*Repository](i), do.MustInvoke[*Logger](i)), nil
}

func provideDigChain(c *dig.Container) {
	for _, ctor := range []any{NewConfig, NewLogger, NewDatabase, NewCache, NewRepository, NewService} {
		_ = c.Provide(ctor)
	}
}

func fxChain() fx.Option {
	return fx.Provide(NewConfig, NewLogger, NewDatabase, NewCache, NewRepository, NewService)
}
