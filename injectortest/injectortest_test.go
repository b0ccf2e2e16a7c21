package injectortest_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jingyiliu/injector"
	"github.com/jingyiliu/injector/injectortest"
)

type Config struct {
	Port int
	Host string
}

type Database struct {
	Config *Config
	closed bool
}

func NewDatabase(cfg *Config) *Database {
	return &Database{Config: cfg}
}

func (d *Database) Close() error {
	d.closed = true
	return nil
}

type UserRepository interface {
	FindByID(id int) string
}

type MockUserRepository struct {
	FindByIDFn func(id int) string
}

func (m *MockUserRepository) FindByID(id int) string {
	if m.FindByIDFn != nil {
		return m.FindByIDFn(id)
	}
	return ""
}

type recordingTB struct {
	testing.TB
	failed   bool
	cleanups []func()
}

func (r *recordingTB) Fatalf(format string, args ...any) {
	r.failed = true
}

func (r *recordingTB) Cleanup(f func()) {
	r.cleanups = append(r.cleanups, f)
}

func (r *recordingTB) runCleanups() {
	for i := len(r.cleanups) - 1; i >= 0; i-- {
		r.cleanups[i]()
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	tc := injectortest.New(t)
	if tc == nil {
		t.Fatal("New() returned nil")
	}
}

func TestCleanupDisposesScopesThenContainer(t *testing.T) {
	t.Parallel()

	rec := &recordingTB{TB: t}
	tc := injectortest.New(rec)
	injectortest.MustRegisterInstance(tc, &Config{Port: 8080})
	injectortest.MustRegister[*Database](tc, NewDatabase, injector.WithLifetime(injector.Scoped))

	s := tc.BeginScope()
	db := injectortest.MustResolveIn[*Database](tc, s)
	if db.closed {
		t.Fatal("database closed before cleanup")
	}

	rec.runCleanups()
	if rec.failed {
		t.Fatal("cleanup reported a failure")
	}
	if !db.closed {
		t.Error("expected scoped database to be closed on cleanup")
	}
	if !tc.Closed() {
		t.Error("expected container to be closed on cleanup")
	}
}

func TestReplace(t *testing.T) {
	t.Parallel()

	tc := injectortest.New(t)

	injectortest.MustRegisterInstance(tc, &Config{Port: 8080, Host: "localhost"})
	injectortest.MustRegister[*Database](tc, NewDatabase)

	injectortest.Replace(tc, &Config{Port: 9090, Host: "testhost"})

	db := injectortest.MustResolve[*Database](tc)
	if db.Config.Port != 9090 {
		t.Errorf("expected port 9090, got %d", db.Config.Port)
	}
	if db.Config.Host != "testhost" {
		t.Errorf("expected host testhost, got %s", db.Config.Host)
	}
}

func TestReplaceFactory(t *testing.T) {
	t.Parallel()

	tc := injectortest.New(t)

	injectortest.MustRegisterFactory[*Config](tc, func(context.Context, injector.Resolver) (*Config, error) {
		return &Config{Port: 8080}, nil
	})

	callCount := 0
	injectortest.ReplaceFactory[*Config](tc, func(context.Context, injector.Resolver) (*Config, error) {
		callCount++
		return &Config{Port: 3000}, nil
	})

	cfg := injectortest.MustResolve[*Config](tc)
	if cfg.Port != 3000 {
		t.Errorf("expected port 3000, got %d", cfg.Port)
	}
	if callCount != 1 {
		t.Errorf("expected factory to be called once, got %d", callCount)
	}
}

func TestAssertHas(t *testing.T) {
	t.Parallel()

	tc := injectortest.New(t)
	injectortest.MustRegisterInstance(tc, &Config{Port: 8080})

	injectortest.AssertHas[*Config](tc)
	injectortest.AssertNotHas[*Database](tc)
}

func TestAssertHasFails(t *testing.T) {
	t.Parallel()

	rec := &recordingTB{TB: t}
	tc := injectortest.New(rec)
	injectortest.AssertHas[*Config](tc)
	if !rec.failed {
		t.Error("expected AssertHas to fail on an empty container")
	}
	rec.runCleanups()
}

func TestRequireValidate(t *testing.T) {
	t.Parallel()

	tc := injectortest.New(t)
	injectortest.MustRegisterInstance(tc, &Config{Port: 8080})
	injectortest.MustRegister[*Database](tc, NewDatabase)

	tc.RequireValidate()
}

func TestRequireValidateReportsMissing(t *testing.T) {
	t.Parallel()

	rec := &recordingTB{TB: t}
	tc := injectortest.New(rec)
	injectortest.MustRegister[*Database](tc, NewDatabase)

	tc.RequireValidate()
	if !rec.failed {
		t.Error("expected validation to fail without *Config")
	}
	rec.runCleanups()
}

func TestRequireWarmupAndClose(t *testing.T) {
	t.Parallel()

	tc := injectortest.New(t)
	injectortest.MustRegisterInstance(tc, &Config{Port: 8080})
	injectortest.MustRegister[*Database](tc, NewDatabase, injector.WithLifetime(injector.Singleton))

	tc.RequireWarmup(context.Background())
	db := injectortest.MustResolve[*Database](tc)

	tc.RequireClose()
	if !db.closed {
		t.Error("expected singleton database to be closed with the container")
	}
}

func TestMockInjection(t *testing.T) {
	t.Parallel()

	tc := injectortest.New(t)

	mock := &MockUserRepository{
		FindByIDFn: func(id int) string {
			return "mock-user"
		},
	}
	injectortest.MustRegisterInstance[UserRepository](tc, mock)

	repo := injectortest.MustResolve[UserRepository](tc)
	if result := repo.FindByID(1); result != "mock-user" {
		t.Errorf("expected 'mock-user', got '%s'", result)
	}
}

func TestReplaceWithMock(t *testing.T) {
	t.Parallel()

	tc := injectortest.New(t)

	injectortest.MustRegisterInstance[UserRepository](tc, &MockUserRepository{
		FindByIDFn: func(id int) string {
			return "real-user"
		},
	})

	injectortest.Replace[UserRepository](tc, &MockUserRepository{
		FindByIDFn: func(id int) string {
			return "test-user-" + string(rune('0'+id))
		},
	})

	repo := injectortest.MustResolve[UserRepository](tc)
	if result := repo.FindByID(5); result != "test-user-5" {
		t.Errorf("expected 'test-user-5', got '%s'", result)
	}
}

func TestFactoryReturningError(t *testing.T) {
	t.Parallel()

	tc := injectortest.New(t)
	expectedErr := errors.New("initialization failed")

	injectortest.MustRegisterFactory[*Config](tc, func(context.Context, injector.Resolver) (*Config, error) {
		return nil, expectedErr
	})

	_, err := injector.Resolve[*Config](context.Background(), tc.Container)
	if !errors.Is(err, expectedErr) {
		t.Errorf("expected factory error, got %v", err)
	}
}

func TestMustResolveWithOverrides(t *testing.T) {
	t.Parallel()

	tc := injectortest.New(t)
	injectortest.MustRegister[*Database](tc, NewDatabase)

	db := injectortest.MustResolve[*Database](tc, injector.Positional(&Config{Port: 5432}))
	if db.Config.Port != 5432 {
		t.Errorf("expected port 5432, got %d", db.Config.Port)
	}
}
