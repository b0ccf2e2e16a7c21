package inject

import (
	"context"
	"reflect"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/jingyiliu/injector/internal/description"
	"github.com/jingyiliu/injector/internal/scope"
)

type alpha struct{}
type beta struct{}

func desc[T any]() *description.ObjectDescription {
	d, _ := description.New(reflect.TypeFor[T](), reflect.TypeFor[T]())
	return d
}

func TestContext_ChainAndBuilding(t *testing.T) {
	t.Parallel()

	s := scope.NewContainer(zerolog.Nop(), scope.Hooks{})
	root := Root(context.Background(), s, nil)
	a := desc[*alpha]()
	b := desc[*beta]()

	first := root.Child(a, &Overrides{Positional: []any{1}})
	second := first.Child(b, nil)

	assert.Equal(t, []string{"*inject.alpha", "*inject.beta"}, second.Chain())
	assert.Equal(t, []string{"*inject.alpha", "*inject.beta", "*inject.alpha"}, second.ChainWith(a))
	assert.True(t, second.Building(a))
	assert.True(t, second.Building(desc[*alpha]()), "identity, not pointer, decides")
	assert.False(t, first.Building(b))
	assert.Nil(t, second.Overrides, "overrides stay on their frame")
	assert.Empty(t, root.Chain())
}

func TestContext_HandleFollowsScope(t *testing.T) {
	t.Parallel()

	c := scope.NewContainer(zerolog.Nop(), scope.Hooks{})
	child, _ := c.Begin()

	root := Root(nil, child, func(f *Context) any { return f.Scope.ID() })
	assert.NotNil(t, root.Ctx)
	assert.Equal(t, child.ID(), root.Handle())

	moved := root.Child(desc[*alpha](), nil).WithScope(c)
	assert.Equal(t, c.ID(), moved.Handle())
	assert.Same(t, child, root.Scope)

	assert.Nil(t, Root(context.Background(), c, nil).Handle())
}

func TestContext_LiveUntilFinished(t *testing.T) {
	t.Parallel()

	s := scope.NewContainer(zerolog.Nop(), scope.Hooks{})
	root := Root(context.Background(), s, nil)
	assert.False(t, root.Live(), "root frames never extend a chain")

	frame := root.Child(desc[*alpha](), nil)
	moved := frame.WithScope(s)
	type key struct{}
	withCtx := frame.WithContext(context.WithValue(context.Background(), key{}, 1))
	assert.True(t, frame.Live())
	assert.Equal(t, 1, withCtx.Ctx.Value(key{}))
	assert.Equal(t, frame.Ctx, frame.WithContext(nil).Ctx)

	frame.Finish()
	assert.False(t, frame.Live())
	assert.False(t, moved.Live(), "copies share the finished flag")
	assert.False(t, withCtx.Live())
	root.Finish()
}

func TestOverrides(t *testing.T) {
	t.Parallel()

	var none *Overrides
	assert.True(t, none.Empty())
	assert.True(t, (&Overrides{}).Empty())

	o := &Overrides{Named: map[string]any{"name": "x"}}
	assert.False(t, o.Empty())
	v, ok := o.Lookup("name")
	assert.True(t, ok)
	assert.Equal(t, "x", v)
	_, ok = o.Lookup("")
	assert.False(t, ok)
}
