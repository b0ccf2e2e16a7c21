package lifetime

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingyiliu/injector/internal/description"
	"github.com/jingyiliu/injector/internal/errs"
	"github.com/jingyiliu/injector/internal/inject"
	"github.com/jingyiliu/injector/internal/scope"
)

type unitOfWork struct {
	id       int32
	disposed atomic.Int32
	scope    *scope.Scope
}

func (u *unitOfWork) Dispose() error {
	u.disposed.Add(1)
	return nil
}

type counter struct {
	n    atomic.Int32
	fail atomic.Bool
	last atomic.Pointer[unitOfWork]
}

func (c *counter) Activate(ictx *inject.Context) (any, error) {
	if c.fail.Load() {
		return nil, errors.New("activation failed")
	}
	u := &unitOfWork{id: c.n.Add(1), scope: ictx.Scope}
	c.last.Store(u)
	return u, nil
}

type harness struct {
	container *scope.Scope
	desc      *description.ObjectDescription
	counter   *counter
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	d, err := description.New(reflect.TypeFor[*unitOfWork](), reflect.TypeFor[*unitOfWork]())
	require.NoError(t, err)
	return &harness{
		container: scope.NewContainer(zerolog.Nop(), scope.Hooks{}),
		desc:      d,
		counter:   &counter{},
	}
}

func (h *harness) lifetime(k Kind) interface {
	Instance(*inject.Context) (any, error)
	String() string
} {
	return New(k, h.desc, h.counter, h.container)
}

func (h *harness) in(s *scope.Scope) *inject.Context {
	return inject.Root(context.Background(), s, nil).Child(h.desc, nil)
}

func get(t *testing.T, l interface {
	Instance(*inject.Context) (any, error)
}, ictx *inject.Context) *unitOfWork {
	t.Helper()
	v, err := l.Instance(ictx)
	require.NoError(t, err)
	return v.(*unitOfWork)
}

func TestTransient_NewEachTimeTrackedByRequester(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	l := h.lifetime(Transient)
	root, _ := h.container.Begin()

	a := get(t, l, h.in(root))
	b := get(t, l, h.in(root))
	assert.NotSame(t, a, b)
	assert.Equal(t, 2, root.Tracked())
	assert.Equal(t, 0, h.container.Tracked())

	require.NoError(t, root.Dispose())
	assert.Equal(t, int32(1), a.disposed.Load())
	assert.Equal(t, int32(1), b.disposed.Load())
}

func TestTransient_EndedScopeDisposesBuiltInstance(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	root, _ := h.container.Begin()
	ictx := h.in(root)
	require.NoError(t, root.Dispose())

	_, err := h.lifetime(Transient).Instance(ictx)
	require.Error(t, err)
	assert.True(t, errs.HasCode(err, errs.CodeScopeDisposed))

	built := h.counter.last.Load()
	require.NotNil(t, built)
	assert.Equal(t, int32(1), built.disposed.Load())
}

func TestScoped_SharingRules(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	l := h.lifetime(Scoped)
	root, _ := h.container.Begin()
	left, _ := root.Begin()
	right, _ := root.Begin()

	first := get(t, l, h.in(left))
	assert.Same(t, first, get(t, l, h.in(left)), "same scope shares")
	assert.NotSame(t, first, get(t, l, h.in(right)), "siblings are isolated")

	parent := get(t, l, h.in(root))
	grandchild, _ := right.Begin()
	assert.NotSame(t, parent, get(t, l, h.in(grandchild)), "right already cached its own")

	other, _ := root.Begin()
	assert.Same(t, parent, get(t, l, h.in(other)), "children reuse the parent's instance")
}

func TestScoped_NestedUnitOfWork(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	l := h.lifetime(Scoped)
	root, _ := h.container.Begin()
	child, _ := root.Begin()

	uow := get(t, l, h.in(child))
	grandchild, _ := child.Begin()
	assert.Same(t, uow, get(t, l, h.in(grandchild)))

	require.NoError(t, grandchild.Dispose())
	assert.Zero(t, uow.disposed.Load(), "the grandchild does not own it")

	require.NoError(t, child.Dispose())
	assert.Equal(t, int32(1), uow.disposed.Load())
}

func TestScoped_NoSharingScope(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	_, err := h.lifetime(Scoped).Instance(h.in(h.container))
	require.Error(t, err)
	assert.True(t, errs.HasCode(err, errs.CodeScopeNotFound))
	assert.Equal(t, errs.CategoryLifetimeScope, errs.CodeScopeNotFound.Category())
}

func TestContainer_OnceAcrossScopes(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	l := h.lifetime(Container)
	left, _ := h.container.Begin()
	right, _ := h.container.Begin()

	a := get(t, l, h.in(left))
	b := get(t, l, h.in(right))
	assert.Same(t, a, b)
	assert.Same(t, h.container, a.scope, "builds run against the container scope")
	assert.True(t, Built(l))

	require.NoError(t, left.Dispose())
	require.NoError(t, right.Dispose())
	assert.Zero(t, a.disposed.Load())
	require.NoError(t, h.container.Dispose())
	assert.Equal(t, int32(1), a.disposed.Load())
}

func TestContainer_ConcurrentFirstAccess(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	l := h.lifetime(Container)
	root, _ := h.container.Begin()

	var wg sync.WaitGroup
	got := make([]*unitOfWork, 32)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := l.Instance(h.in(root))
			assert.NoError(t, err)
			got[i] = v.(*unitOfWork)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), h.counter.n.Load())
	for _, u := range got {
		assert.Same(t, got[0], u)
	}
}

func TestContainer_FailedBuildRetries(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	l := h.lifetime(Container)
	h.counter.fail.Store(true)

	_, err := l.Instance(h.in(h.container))
	require.Error(t, err)
	assert.False(t, Built(l))

	h.counter.fail.Store(false)
	assert.NotNil(t, get(t, l, h.in(h.container)))
}

func TestKinds(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	for _, k := range []Kind{Transient, Scoped, Container} {
		l := h.lifetime(k)
		assert.Equal(t, k, KindOf(l))
		assert.Equal(t, k.String(), l.String())

		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}

	k, err := ParseKind("singleton")
	require.NoError(t, err)
	assert.Equal(t, Container, k)

	_, err = ParseKind("pooled")
	assert.True(t, errs.HasCode(err, errs.CodeConfiguration))
}
