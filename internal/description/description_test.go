package description

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingyiliu/injector/internal/errs"
)

type greeter interface{ Greet() string }

type english struct{}

func (english) Greet() string { return "hello" }

type stranger struct{}

func TestNew_Validates(t *testing.T) {
	t.Parallel()

	_, err := New(nil, reflect.TypeFor[english]())
	assert.True(t, errs.HasCode(err, errs.CodePrecondition))

	_, err = New(reflect.TypeFor[greeter](), reflect.TypeFor[stranger]())
	assert.True(t, errs.HasCode(err, errs.CodePrecondition))

	d, err := New(reflect.TypeFor[greeter](), reflect.TypeFor[english](), WithRanking(4))
	require.NoError(t, err)
	assert.Equal(t, 4, d.Ranking())
	assert.Equal(t, reflect.TypeFor[greeter](), d.Contract())
	assert.Equal(t, reflect.TypeFor[english](), d.Concrete())
}

func TestEqual_UsesMetadataIdentity(t *testing.T) {
	t.Parallel()

	contract, concrete := reflect.TypeFor[greeter](), reflect.TypeFor[english]()

	plainA, _ := New(contract, concrete)
	plainB, _ := New(contract, concrete, WithRanking(9))
	assert.True(t, plainA.Equal(plainB), "ranking is not part of identity")

	meta := NewMetadata("en", map[string]any{"lang": "en"})
	withMetaA, _ := New(contract, concrete, WithMetadata(meta))
	withMetaB, _ := New(contract, concrete, WithMetadata(meta))
	assert.True(t, withMetaA.Equal(withMetaB))
	assert.False(t, plainA.Equal(withMetaA))

	other := NewMetadata("en", map[string]any{"lang": "en"})
	withOther, _ := New(contract, concrete, WithMetadata(other))
	assert.False(t, withMetaA.Equal(withOther))

	keys := map[Key]int{withMetaA.Key(): 1}
	assert.Equal(t, 1, keys[withMetaB.Key()])
}

func TestMetadata_IsImmutable(t *testing.T) {
	t.Parallel()

	src := map[string]any{"region": "eu"}
	m := NewMetadata("cfg", src)
	src["region"] = "us"

	v, ok := m.Get("region")
	assert.True(t, ok)
	assert.Equal(t, "eu", v)

	values := m.Values()
	values["region"] = "apac"
	v, _ = m.Get("region")
	assert.Equal(t, "eu", v)

	var missing *Metadata
	_, ok = missing.Get("region")
	assert.False(t, ok)
	assert.Equal(t, "", missing.Name())
}

func TestString(t *testing.T) {
	t.Parallel()

	d, _ := New(reflect.TypeFor[greeter](), reflect.TypeFor[english](), WithMetadata(NewMetadata("en", nil)))
	assert.Contains(t, d.String(), "greeter => description.english [en]")
}
