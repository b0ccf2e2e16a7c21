package activation

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingyiliu/injector/internal/description"
	"github.com/jingyiliu/injector/internal/errs"
	"github.com/jingyiliu/injector/internal/inject"
	"github.com/jingyiliu/injector/internal/mapper"
	"github.com/jingyiliu/injector/internal/registry"
	"github.com/jingyiliu/injector/internal/resolve"
	"github.com/jingyiliu/injector/internal/scope"
)

type Logger interface{ Log(string) }

type consoleLogger struct{ prefix string }

func (*consoleLogger) Log(string) {}

type reportService struct {
	logger  Logger
	title   string
	retries int
}

func newReportService(l Logger, title string, retries int) *reportService {
	return &reportService{logger: l, title: title, retries: retries}
}

type Plugin interface{ ID() int }

type plugin struct{ id int }

func (p *plugin) ID() int { return p.id }

type dashboard struct {
	Logger  Logger   `inject:""`
	Plugins []Plugin `inject:"all"`
	Title   string   `inject:""`
	Skipped Logger   `inject:"-"`
	Plain   Logger

	started bool
	ctx     context.Context
}

func (d *dashboard) Start(ctx context.Context, l Logger) error {
	if l == nil {
		return errors.New("no logger")
	}
	d.started, d.ctx = true, ctx
	return nil
}

var strategies = []Strategy{StrategyReflective, StrategyCompiled}

type env struct {
	registry *registry.Registry
	binder   *resolve.Binder
	logger   *consoleLogger
}

type valueLifetime struct{ v any }

func (l valueLifetime) Instance(*inject.Context) (any, error) { return l.v, nil }

func (valueLifetime) String() string { return "value" }

func newEnv(t *testing.T) *env {
	t.Helper()
	r := registry.New(zerolog.Nop())
	e := &env{
		registry: r,
		binder:   &resolve.Binder{Registry: r, Mappers: mapper.NewRegistry()},
		logger:   &consoleLogger{prefix: "app"},
	}
	e.add(t, reflect.TypeFor[Logger](), e.logger, 0)
	return e
}

func (e *env) add(t *testing.T, contract reflect.Type, v any, ranking int) {
	t.Helper()
	d, err := description.New(contract, reflect.TypeOf(v),
		description.WithRanking(ranking),
		description.WithMetadata(description.NewMetadata("", nil)))
	require.NoError(t, err)
	require.NoError(t, e.registry.Register(registry.NewObjectBuilder(d, valueLifetime{v: v}, nil, nil)))
}

func rootCtx(overrides *inject.Overrides) *inject.Context {
	s := scope.NewContainer(zerolog.Nop(), scope.Hooks{})
	d, _ := description.New(reflect.TypeFor[any](), reflect.TypeFor[*reportService]())
	return inject.Root(context.Background(), s, nil).Child(d, overrides)
}

func reportRecipe(values ...Value) Recipe {
	return Recipe{
		Kind:        KindConstructor,
		Constructor: reflect.ValueOf(newReportService),
		ParamNames:  []string{"logger", "title", "retries"},
		Values:      values,
	}
}

func TestCompile_NonAutowirable(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	_, err := Compile(reportRecipe(), e.binder)
	require.True(t, errs.HasCode(err, errs.CodeNonAutowirable))
	assert.Contains(t, err.Error(), "parameter 1 of *activation.reportService")
	assert.Contains(t, err.Error(), "type string")
}

func TestCompile_Preconditions(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	tests := []struct {
		name   string
		recipe Recipe
		code   errs.Code
	}{
		{"nil constructor", Recipe{Kind: KindConstructor}, errs.CodePrecondition},
		{"variadic", Recipe{Kind: KindConstructor, Constructor: reflect.ValueOf(func(...Logger) *plugin { return nil })}, errs.CodePrecondition},
		{"no result", Recipe{Kind: KindConstructor, Constructor: reflect.ValueOf(func() {})}, errs.CodePrecondition},
		{"error only", Recipe{Kind: KindConstructor, Constructor: reflect.ValueOf(func() error { return nil })}, errs.CodePrecondition},
		{"not a struct", Recipe{Kind: KindStruct, Concrete: reflect.TypeFor[int]()}, errs.CodePrecondition},
		{"missing method", Recipe{Kind: KindStruct, Concrete: reflect.TypeFor[*plugin](), Methods: []string{"Nope"}}, errs.CodePrecondition},
		{"too many names", Recipe{Kind: KindConstructor, Constructor: reflect.ValueOf(func() *plugin { return nil }), ParamNames: []string{"x"}}, errs.CodePrecondition},
		{"redundant value", reportRecipe(
			Value{Index: 1, Constant: "t"}, Value{Index: 2, Constant: 1}, Value{Index: -1, Name: "nope", Constant: 1},
		), errs.CodeRedundantParameter},
		{"wrong constant type", reportRecipe(Value{Index: 1, Constant: 7}, Value{Index: 2, Constant: 1}), errs.CodeConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.recipe, e.binder)
			require.Error(t, err)
			assert.True(t, errs.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestActivate_ConstantsAndAutowiring(t *testing.T) {
	t.Parallel()

	for _, s := range strategies {
		t.Run(s.String(), func(t *testing.T) {
			e := newEnv(t)
			plan, err := Compile(reportRecipe(
				Value{Index: -1, Name: "title", Constant: "Q3"},
				Value{Index: 2, Factory: func(*inject.Context) (any, error) { return 3, nil }},
			), e.binder)
			require.NoError(t, err)
			assert.Equal(t, []reflect.Type{reflect.TypeFor[Logger]()}, plan.Dependencies())

			v, err := s.New(plan, false).Activate(rootCtx(nil))
			require.NoError(t, err)
			rs := v.(*reportService)
			assert.Same(t, e.logger, rs.logger)
			assert.Equal(t, "Q3", rs.title)
			assert.Equal(t, 3, rs.retries)
		})
	}
}

func TestActivate_OverrideMerge(t *testing.T) {
	t.Parallel()

	other := &consoleLogger{prefix: "other"}
	tests := []struct {
		name      string
		overrides *inject.Overrides
		check     func(t *testing.T, rs *reportService, e *env)
		code      errs.Code
	}{
		{
			name:      "positional fills first slots",
			overrides: &inject.Overrides{Positional: []any{other, "override"}},
			check: func(t *testing.T, rs *reportService, _ *env) {
				assert.Same(t, other, rs.logger)
				assert.Equal(t, "override", rs.title)
				assert.Equal(t, 1, rs.retries)
			},
		},
		{
			name:      "incompatible positional slot autowires",
			overrides: &inject.Overrides{Positional: []any{"not a logger", "t2"}},
			check: func(t *testing.T, rs *reportService, e *env) {
				assert.Same(t, e.logger, rs.logger)
				assert.Equal(t, "t2", rs.title)
			},
		},
		{
			name:      "named beats constant",
			overrides: &inject.Overrides{Named: map[string]any{"retries": 9}},
			check: func(t *testing.T, rs *reportService, _ *env) {
				assert.Equal(t, 9, rs.retries)
				assert.Equal(t, "default", rs.title)
			},
		},
		{
			name:      "excess positional",
			overrides: &inject.Overrides{Positional: []any{other, "a", 1, 2}},
			code:      errs.CodeExcessParameters,
		},
		{
			name:      "unknown name",
			overrides: &inject.Overrides{Named: map[string]any{"colour": "red"}},
			code:      errs.CodeRedundantParameter,
		},
	}

	for _, s := range strategies {
		for _, tt := range tests {
			t.Run(s.String()+"/"+tt.name, func(t *testing.T) {
				e := newEnv(t)
				plan, err := Compile(reportRecipe(
					Value{Index: 1, Constant: "default"},
					Value{Index: 2, Constant: 1},
				), e.binder)
				require.NoError(t, err)

				v, err := s.New(plan, false).Activate(rootCtx(tt.overrides))
				if tt.code != errs.CodeUnknown {
					require.Error(t, err)
					assert.True(t, errs.HasCode(err, tt.code), "got %v", err)
					return
				}
				require.NoError(t, err)
				tt.check(t, v.(*reportService), e)
			})
		}
	}
}

func TestActivate_RequiredSlots(t *testing.T) {
	t.Parallel()

	for _, s := range strategies {
		t.Run(s.String(), func(t *testing.T) {
			e := newEnv(t)
			r := reportRecipe()
			r.AllowRequired = true
			plan, err := Compile(r, e.binder)
			require.NoError(t, err)
			a := s.New(plan, false)

			_, err = a.Activate(rootCtx(nil))
			require.True(t, errs.HasCode(err, errs.CodeNonAutowirable))
			assert.Contains(t, err.Error(), "parameter 1")

			_, err = a.Activate(rootCtx(&inject.Overrides{Positional: []any{nil, "title"}}))
			require.True(t, errs.HasCode(err, errs.CodeNonAutowirable))
			assert.Contains(t, err.Error(), "parameter 2")

			v, err := a.Activate(rootCtx(&inject.Overrides{Named: map[string]any{"title": "t", "retries": 2}}))
			require.NoError(t, err)
			assert.Equal(t, 2, v.(*reportService).retries)
		})
	}
}

func TestActivate_StructMembersAndMethods(t *testing.T) {
	t.Parallel()

	for _, s := range strategies {
		t.Run(s.String(), func(t *testing.T) {
			e := newEnv(t)
			e.add(t, reflect.TypeFor[Plugin](), &plugin{id: 5}, 5)
			e.add(t, reflect.TypeFor[Plugin](), &plugin{id: 1}, 1)

			plan, err := Compile(Recipe{
				Kind:     KindStruct,
				Concrete: reflect.TypeFor[*dashboard](),
				Values:   []Value{{Index: -1, Name: "Title", Constant: "ops"}},
				Methods:  []string{"Start"},
			}, e.binder)
			require.NoError(t, err)
			require.Len(t, plan.Properties, 3)
			assert.Equal(t, []reflect.Type{reflect.TypeFor[Plugin]()}, plan.Collections())

			ictx := rootCtx(nil)
			v, err := s.New(plan, false).Activate(ictx)
			require.NoError(t, err)

			d := v.(*dashboard)
			assert.Same(t, e.logger, d.Logger)
			assert.Nil(t, d.Skipped)
			assert.Nil(t, d.Plain)
			assert.Equal(t, "ops", d.Title)
			require.Len(t, d.Plugins, 2)
			assert.Equal(t, 1, d.Plugins[0].ID())
			assert.Equal(t, 5, d.Plugins[1].ID())
			assert.True(t, d.started)
			assert.Equal(t, ictx.Ctx, d.ctx)

			v, err = s.New(plan, false).Activate(rootCtx(&inject.Overrides{Named: map[string]any{"Title": "dev"}}))
			require.NoError(t, err)
			assert.Equal(t, "dev", v.(*dashboard).Title)
		})
	}
}

func TestActivate_ConstructorAndFactoryErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	for _, s := range strategies {
		t.Run(s.String(), func(t *testing.T) {
			e := newEnv(t)

			plan, err := Compile(Recipe{
				Kind:        KindConstructor,
				Constructor: reflect.ValueOf(func(Logger) (*plugin, error) { return nil, boom }),
			}, e.binder)
			require.NoError(t, err)
			_, err = s.New(plan, false).Activate(rootCtx(nil))
			require.ErrorIs(t, err, boom)
			assert.True(t, errs.HasCode(err, errs.CodeActivationFailed))
			ae, _ := errs.As(err)
			assert.Equal(t, []string{"*activation.reportService"}, ae.Chain)

			plan, err = Compile(Recipe{
				Kind:     KindFactory,
				Concrete: reflect.TypeFor[*plugin](),
				Factory:  func(*inject.Context) (any, error) { return nil, boom },
			}, e.binder)
			require.NoError(t, err)
			_, err = s.New(plan, false).Activate(rootCtx(nil))
			require.ErrorIs(t, err, boom)
		})
	}
}

func TestActivate_UnregisteredDependency(t *testing.T) {
	t.Parallel()

	for _, s := range strategies {
		t.Run(s.String(), func(t *testing.T) {
			e := newEnv(t)
			plan, err := Compile(Recipe{
				Kind:        KindConstructor,
				Constructor: reflect.ValueOf(func(Plugin) *dashboard { return &dashboard{} }),
			}, e.binder)
			require.NoError(t, err)

			_, err = s.New(plan, false).Activate(rootCtx(nil))
			require.True(t, errs.HasCode(err, errs.CodeDependencyUnregistered))
			assert.Contains(t, err.Error(), "activation.Plugin")
		})
	}
}

func TestStrategy_Selection(t *testing.T) {
	t.Parallel()

	plan := &Plan{Kind: KindInstance, instance: 1}
	assert.IsType(t, &Compiled{}, StrategyAuto.New(plan, false))
	assert.IsType(t, &Reflective{}, StrategyAuto.New(plan, true))
	assert.IsType(t, &Compiled{}, StrategyCompiled.New(plan, true))
	assert.IsType(t, &Reflective{}, StrategyReflective.New(plan, false))

	for in, want := range map[string]Strategy{"": StrategyAuto, "Compiled": StrategyCompiled, "reflective": StrategyReflective} {
		got, err := ParseStrategy(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseStrategy("jit")
	assert.True(t, errs.HasCode(err, errs.CodeConfiguration))
}
