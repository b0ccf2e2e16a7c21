package injector

import (
	"github.com/jingyiliu/injector/internal/errs"
)

// Error is the coded error returned by every operation of the package.
type Error = errs.Error

type ErrorCode = errs.Code

// ErrorCategory groups codes into precondition, configuration, resolution
// and lifetime-scope failures.
type ErrorCategory = errs.Category

const (
	ErrCodeUnknown              = errs.CodeUnknown
	ErrCodePrecondition         = errs.CodePrecondition
	ErrCodeConfiguration        = errs.CodeConfiguration
	ErrCodeNonAutowirable       = errs.CodeNonAutowirable
	ErrCodeExcessParameters     = errs.CodeExcessParameters
	ErrCodeRedundantParameter   = errs.CodeRedundantParameter
	ErrCodeIncompatibleLifetime = errs.CodeIncompatibleLifetime
	ErrCodeDependencyNotFound   = errs.CodeDependencyUnregistered
	ErrCodeResolutionFailed     = errs.CodeResolutionFailed
	ErrCodeCircularDependency   = errs.CodeCircularDependency
	ErrCodeActivationFailed     = errs.CodeActivationFailed
	ErrCodeScopeNotFound        = errs.CodeScopeNotFound
	ErrCodeScopeNesting         = errs.CodeScopeNesting
	ErrCodeScopeDisposed        = errs.CodeScopeDisposed
	ErrCodeValidationFailed     = errs.CodeValidationFailed
)

const (
	CategoryPrecondition  = errs.CategoryPrecondition
	CategoryConfiguration = errs.CategoryConfiguration
	CategoryResolution    = errs.CategoryResolution
	CategoryLifetimeScope = errs.CategoryLifetimeScope
)

// Sentinels for errors.Is. Matching compares codes only.
var (
	ErrNotFound             = errs.Sentinel(errs.CodeDependencyUnregistered)
	ErrCircularDependency   = errs.Sentinel(errs.CodeCircularDependency)
	ErrNonAutowirable       = errs.Sentinel(errs.CodeNonAutowirable)
	ErrScopeNotFound        = errs.Sentinel(errs.CodeScopeNotFound)
	ErrScopeDisposed        = errs.Sentinel(errs.CodeScopeDisposed)
	ErrIncompatibleLifetime = errs.Sentinel(errs.CodeIncompatibleLifetime)
)

// CodeOf returns the code of the first *Error in err's tree.
func CodeOf(err error) ErrorCode {
	if e, ok := errs.As(err); ok {
		return e.Code
	}
	return ErrCodeUnknown
}

// CategoryOf returns the taxonomy class of err.
func CategoryOf(err error) ErrorCategory {
	return CodeOf(err).Category()
}

// ChainOf returns the concrete types that were being built when err
// happened, outermost first.
func ChainOf(err error) []string {
	if e, ok := errs.As(err); ok {
		return e.Chain
	}
	return nil
}

func IsNotFound(err error) bool {
	return errs.HasCode(err, errs.CodeDependencyUnregistered)
}

func IsCircularDependency(err error) bool {
	return errs.HasCode(err, errs.CodeCircularDependency)
}

func IsNonAutowirable(err error) bool {
	return errs.HasCode(err, errs.CodeNonAutowirable)
}

func IsActivationFailed(err error) bool {
	return errs.HasCode(err, errs.CodeActivationFailed)
}

func IsScopeNotFound(err error) bool {
	return errs.HasCode(err, errs.CodeScopeNotFound)
}

func IsScopeDisposed(err error) bool {
	return errs.HasCode(err, errs.CodeScopeDisposed)
}

func IsValidationFailed(err error) bool {
	return errs.HasCode(err, errs.CodeValidationFailed)
}

func IsConfiguration(err error) bool {
	return CategoryOf(err) == CategoryConfiguration
}

func IsPrecondition(err error) bool {
	return CategoryOf(err) == CategoryPrecondition
}
