package errs

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/jingyiliu/injector/internal/typeinfo"
)

type Code uint16

const (
	CodeUnknown Code = iota
	CodePrecondition
	CodeConfiguration
	CodeNonAutowirable
	CodeExcessParameters
	CodeRedundantParameter
	CodeIncompatibleLifetime
	CodeDependencyUnregistered
	CodeResolutionFailed
	CodeCircularDependency
	CodeActivationFailed
	CodeScopeNotFound
	CodeScopeNesting
	CodeScopeDisposed
	CodeValidationFailed
)

var codeNames = map[Code]string{
	CodeUnknown:                "UNKNOWN",
	CodePrecondition:           "PRECONDITION",
	CodeConfiguration:          "CONFIGURATION",
	CodeNonAutowirable:         "NON_AUTOWIRABLE",
	CodeExcessParameters:       "EXCESS_PARAMETERS",
	CodeRedundantParameter:     "REDUNDANT_PARAMETER",
	CodeIncompatibleLifetime:   "INCOMPATIBLE_LIFETIME",
	CodeDependencyUnregistered: "DEPENDENCY_UNREGISTERED",
	CodeResolutionFailed:       "RESOLUTION_FAILED",
	CodeCircularDependency:     "CIRCULAR_DEPENDENCY",
	CodeActivationFailed:       "ACTIVATION_FAILED",
	CodeScopeNotFound:          "SCOPE_NOT_FOUND",
	CodeScopeNesting:           "SCOPE_NESTING",
	CodeScopeDisposed:          "SCOPE_DISPOSED",
	CodeValidationFailed:       "VALIDATION_FAILED",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", c)
}

// Category groups codes into the classes callers usually branch on.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryPrecondition
	CategoryConfiguration
	CategoryResolution
	CategoryLifetimeScope
)

func (c Category) String() string {
	switch c {
	case CategoryPrecondition:
		return "precondition"
	case CategoryConfiguration:
		return "configuration"
	case CategoryResolution:
		return "resolution"
	case CategoryLifetimeScope:
		return "lifetime-scope"
	default:
		return "unknown"
	}
}

func (c Code) Category() Category {
	switch c {
	case CodePrecondition:
		return CategoryPrecondition
	case CodeConfiguration, CodeNonAutowirable, CodeExcessParameters,
		CodeRedundantParameter, CodeIncompatibleLifetime, CodeValidationFailed:
		return CategoryConfiguration
	case CodeDependencyUnregistered, CodeResolutionFailed,
		CodeCircularDependency, CodeActivationFailed:
		return CategoryResolution
	case CodeScopeNotFound, CodeScopeNesting, CodeScopeDisposed:
		return CategoryLifetimeScope
	default:
		return CategoryUnknown
	}
}

type Error struct {
	Code    Code
	Message string
	Service string
	Cause   error
	Chain   []string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s]", e.Code))

	if e.Service != "" {
		b.WriteString(fmt.Sprintf(" service=%q:", e.Service))
	}

	b.WriteString(" ")
	b.WriteString(e.Message)

	if len(e.Chain) > 0 {
		b.WriteString(" (chain: ")
		b.WriteString(strings.Join(e.Chain, " -> "))
		b.WriteString(")")
	}

	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}

	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

func (e *Error) WithService(service string) *Error {
	e.Service = service
	return e
}

// WithChain records the resolution chain unless a deeper frame already did.
func (e *Error) WithChain(chain []string) *Error {
	if len(e.Chain) == 0 {
		e.Chain = chain
	}
	return e
}

func New(code Code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...), nil)
}

func Sentinel(code Code) *Error {
	return &Error{Code: code, Message: code.String()}
}

// As returns the first *Error in err's tree.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// HasCode reports whether any *Error in err's tree carries code, so a
// circular dependency wrapped in a constructor's activation failure still
// counts.
func HasCode(err error, code Code) bool {
	return err != nil && errors.Is(err, &Error{Code: code})
}

func Precondition(format string, args ...any) *Error {
	return Newf(CodePrecondition, format, args...)
}

func Unregistered(contract reflect.Type) *Error {
	return Newf(
		CodeDependencyUnregistered,
		"dependency unregistered: no builder for %s", typeinfo.Name(contract),
	).WithService(typeinfo.Name(contract))
}

func ConditionMismatch(contract reflect.Type, consumer reflect.Type) *Error {
	return Newf(
		CodeDependencyUnregistered,
		"dependency unregistered: no builder for %s matches consumer %s",
		typeinfo.Name(contract), typeinfo.Name(consumer),
	).WithService(typeinfo.Name(contract))
}

func NonAutowirable(index int, declaring, missing reflect.Type) *Error {
	return Newf(
		CodeNonAutowirable,
		"parameter %d of %s: type %s is not autowirable and no value was supplied",
		index, typeinfo.Name(declaring), typeinfo.Name(missing),
	).WithService(typeinfo.Name(declaring))
}

func NonAutowirableMember(member string, declaring, missing reflect.Type) *Error {
	return Newf(
		CodeNonAutowirable,
		"member %s of %s: type %s is not autowirable and no value was supplied",
		member, typeinfo.Name(declaring), typeinfo.Name(missing),
	).WithService(typeinfo.Name(declaring))
}

func ExcessParameters(supplied, accepted int, declaring reflect.Type) *Error {
	return Newf(
		CodeExcessParameters,
		"%d positional parameters supplied but %s accepts %d",
		supplied, typeinfo.Name(declaring), accepted,
	).WithService(typeinfo.Name(declaring))
}

func RedundantParameter(name string, declaring reflect.Type) *Error {
	return Newf(
		CodeRedundantParameter,
		"named parameter %q does not match any parameter or member of %s",
		name, typeinfo.Name(declaring),
	).WithService(typeinfo.Name(declaring))
}

func Circular(chain []string) *Error {
	return Newf(
		CodeCircularDependency,
		"circular dependency detected: %s", strings.Join(chain, " -> "),
	).WithChain(chain)
}

func ScopeNotFound(contract reflect.Type) *Error {
	return Newf(
		CodeScopeNotFound,
		"scoped service %s resolved without an active lifetime scope; use BeginScope",
		typeinfo.Name(contract),
	).WithService(typeinfo.Name(contract))
}

func Activation(concrete reflect.Type, cause error) *Error {
	return New(
		CodeActivationFailed,
		fmt.Sprintf("constructing %s failed", typeinfo.Name(concrete)),
		cause,
	).WithService(typeinfo.Name(concrete))
}
