package injector_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingyiliu/injector"
)

type User struct{ ID int }

type Order struct{ ID int }

type Repository[T any] struct {
	Log Logger `inject:""`
}

type Cache[T any] struct {
	entries map[string]T
}

func TestGenericFamilyStruct(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := newTestContainer()
	injector.MustRegister[Logger](c, NewConsoleLogger, injector.WithLifetime(injector.Singleton))
	require.NoError(t, injector.RegisterGeneric[*Repository[any]](c, nil, injector.WithLifetime(injector.Scoped)))

	s, err := c.BeginScope()
	require.NoError(t, err)

	users := injector.MustResolve[*Repository[User]](ctx, s)
	orders := injector.MustResolve[*Repository[Order]](ctx, s)
	assert.NotNil(t, users.Log)
	assert.Same(t, users.Log, orders.Log)
	assert.Same(t, users, injector.MustResolve[*Repository[User]](ctx, s))

	other, err := c.BeginScope()
	require.NoError(t, err)
	assert.NotSame(t, users, injector.MustResolve[*Repository[User]](ctx, other))

	assert.True(t, injector.Has[*Repository[User]](c))
	assert.Equal(t, 3, c.Size(), "one builder per closed instantiation plus the logger")

	err = injector.RegisterGeneric[*Repository[int]](c, nil)
	assert.True(t, injector.IsPrecondition(err), "family already registered")

	err = injector.RegisterGeneric[*User](c, nil)
	assert.True(t, injector.IsPrecondition(err))
}

func TestGenericFamilyFactory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := newTestContainer()

	var closed []reflect.Type
	err := injector.RegisterGeneric[*Cache[any]](c,
		func(_ context.Context, _ injector.Resolver, t reflect.Type) (any, error) {
			closed = append(closed, t)
			return reflect.New(t.Elem()).Interface(), nil
		},
		injector.WithLifetime(injector.Singleton),
	)
	require.NoError(t, err)

	a := injector.MustResolve[*Cache[User]](ctx, c)
	b := injector.MustResolve[*Cache[User]](ctx, c)
	assert.Same(t, a, b)
	assert.Equal(t, []reflect.Type{reflect.TypeFor[*Cache[User]]()}, closed)
	assert.Len(t, c.GenericFamilies(), 1)
}

func TestGenericDependencyCountsAsPresent(t *testing.T) {
	t.Parallel()

	c := newTestContainer()
	injector.MustRegister[Logger](c, NewConsoleLogger)
	require.NoError(t, injector.RegisterGeneric[*Repository[any]](c, nil))
	injector.MustRegister[*UserService](c, NewUserService)

	require.NoError(t, c.Validate())
	assert.Empty(t, c.Graph().Missing)
}

type UserService struct {
	repo *Repository[User]
}

func NewUserService(repo *Repository[User]) *UserService {
	return &UserService{repo: repo}
}
