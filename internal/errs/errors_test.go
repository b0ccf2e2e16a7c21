package errs

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct{}

func TestError_Format(t *testing.T) {
	cause := errors.New("boom")
	err := Activation(reflect.TypeFor[*widget](), cause).WithChain([]string{"a", "b"})

	assert.Equal(t,
		`[ACTIVATION_FAILED] service="*errs.widget": constructing *errs.widget failed (chain: a -> b): boom`,
		err.Error(),
	)
	assert.ErrorIs(t, err, cause)
}

func TestError_WithChainKeepsDeepest(t *testing.T) {
	err := Newf(CodeResolutionFailed, "x").WithChain([]string{"inner"})
	err.WithChain([]string{"outer", "inner"})
	assert.Equal(t, []string{"inner"}, err.Chain)
}

func TestError_IsMatchesCode(t *testing.T) {
	wrapped := fmt.Errorf("wrapped: %w", Unregistered(reflect.TypeFor[*widget]()))

	assert.ErrorIs(t, wrapped, Sentinel(CodeDependencyUnregistered))
	assert.NotErrorIs(t, wrapped, Sentinel(CodeScopeNotFound))
	assert.True(t, HasCode(wrapped, CodeDependencyUnregistered))

	e, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, "*errs.widget", e.Service)

	_, ok = As(errors.New("plain"))
	assert.False(t, ok)
}

func TestHasCode_FindsWrappedCauses(t *testing.T) {
	cycle := Circular([]string{"A", "A"})
	err := Activation(reflect.TypeFor[*widget](), fmt.Errorf("resolving: %w", cycle))

	assert.True(t, HasCode(err, CodeActivationFailed))
	assert.True(t, HasCode(err, CodeCircularDependency))
	assert.False(t, HasCode(err, CodeScopeNotFound))
	assert.False(t, HasCode(nil, CodeUnknown))
}

func TestCode_Category(t *testing.T) {
	tests := []struct {
		code     Code
		category Category
	}{
		{CodePrecondition, CategoryPrecondition},
		{CodeNonAutowirable, CategoryConfiguration},
		{CodeValidationFailed, CategoryConfiguration},
		{CodeCircularDependency, CategoryResolution},
		{CodeActivationFailed, CategoryResolution},
		{CodeScopeDisposed, CategoryLifetimeScope},
		{CodeUnknown, CategoryUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.category, tt.code.Category(), tt.code.String())
	}

	assert.Equal(t, "lifetime-scope", CategoryLifetimeScope.String())
	assert.Equal(t, "UNKNOWN(999)", Code(999).String())
}

func TestCircular(t *testing.T) {
	err := Circular([]string{"A", "B", "A"})
	assert.Equal(t, CodeCircularDependency, err.Code)
	assert.Contains(t, err.Error(), "circular dependency detected: A -> B -> A")
	assert.Equal(t, []string{"A", "B", "A"}, err.Chain)
}
