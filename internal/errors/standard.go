// Package errors provides standardized error values for code generation.
// Every failure the generator can report is a *StandardError whose Code
// identifies the kind, so callers can match with errors.Is against the
// sentinels declared below.
package errors

import (
	"fmt"
	"runtime"

	"github.com/orizon-lang/kaleido/internal/position"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryResolution ErrorCategory = "RESOLUTION"
	CategoryArity      ErrorCategory = "ARITY"
	CategoryDefinition ErrorCategory = "DEFINITION"
	CategoryStructure  ErrorCategory = "STRUCTURE"
	CategoryValidation ErrorCategory = "VALIDATION"
	CategoryRuntime    ErrorCategory = "RUNTIME"
)

// Error codes.
const (
	CodeUnknownVariable     = "UNKNOWN_VARIABLE"
	CodeUnknownFunction     = "UNKNOWN_FUNCTION"
	CodeArityMismatch       = "ARITY_MISMATCH"
	CodeRedefinition        = "REDEFINITION"
	CodeInvalidAssignTarget = "INVALID_ASSIGN_TARGET"
	CodeUnsupportedOperator = "UNSUPPORTED_OPERATOR"
	CodeMalformedFunction   = "MALFORMED_FUNCTION"
	CodeStepLimit           = "STEP_LIMIT"
)

// Sentinels for errors.Is. They match any StandardError with the same code.
var (
	ErrUnknownVariable     = &StandardError{Category: CategoryResolution, Code: CodeUnknownVariable}
	ErrUnknownFunction     = &StandardError{Category: CategoryResolution, Code: CodeUnknownFunction}
	ErrArityMismatch       = &StandardError{Category: CategoryArity, Code: CodeArityMismatch}
	ErrRedefinition        = &StandardError{Category: CategoryDefinition, Code: CodeRedefinition}
	ErrInvalidAssignTarget = &StandardError{Category: CategoryStructure, Code: CodeInvalidAssignTarget}
	ErrUnsupportedOperator = &StandardError{Category: CategoryStructure, Code: CodeUnsupportedOperator}
	ErrMalformedFunction   = &StandardError{Category: CategoryValidation, Code: CodeMalformedFunction}
	ErrStepLimit           = &StandardError{Category: CategoryRuntime, Code: CodeStepLimit}
)

// StandardError provides a consistent error format
type StandardError struct {
	Category ErrorCategory
	Code     string
	Message  string
	Context  map[string]interface{}
	Caller   string
	Span     position.Span
	// Cause is the underlying failure, if any.
	Cause error
}

// Error implements the error interface
func (e *StandardError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("[%s:%s]", e.Category, e.Code)
	}
	return e.Message
}

// Is reports whether target carries the same code.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Unwrap returns the underlying failure.
func (e *StandardError) Unwrap() error { return e.Cause }

// At attaches a source span and returns the receiver.
func (e *StandardError) At(span position.Span) *StandardError {
	e.Span = span
	return e
}

// NewStandardError creates a new standardized error
func NewStandardError(category ErrorCategory, code, message string, context map[string]interface{}) *StandardError {
	pc, _, _, ok := runtime.Caller(1)
	caller := "unknown"
	if ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			caller = fn.Name()
		}
	}

	return &StandardError{
		Category: category,
		Code:     code,
		Message:  message,
		Context:  context,
		Caller:   caller,
	}
}

// Common error constructors
func UnknownVariable(name string) *StandardError {
	return NewStandardError(CategoryResolution, CodeUnknownVariable,
		fmt.Sprintf("unknown variable name %q", name),
		map[string]interface{}{"name": name})
}

func UnknownFunction(name string) *StandardError {
	return NewStandardError(CategoryResolution, CodeUnknownFunction,
		fmt.Sprintf("function %q not defined", name),
		map[string]interface{}{"name": name})
}

func ArityMismatch(name string, want, got int) *StandardError {
	return NewStandardError(CategoryArity, CodeArityMismatch,
		fmt.Sprintf("wrong argument count calling %q: want %d, got %d", name, want, got),
		map[string]interface{}{"name": name, "want": want, "got": got})
}

func Redefinition(name string) *StandardError {
	return NewStandardError(CategoryDefinition, CodeRedefinition,
		fmt.Sprintf("function %q already defined", name),
		map[string]interface{}{"name": name})
}

func InvalidAssignTarget(target string) *StandardError {
	return NewStandardError(CategoryStructure, CodeInvalidAssignTarget,
		fmt.Sprintf("destination of '=' must be a variable, got %s", target),
		map[string]interface{}{"target": target})
}

func UnsupportedOperator(kind string, op string) *StandardError {
	return NewStandardError(CategoryStructure, CodeUnsupportedOperator,
		fmt.Sprintf("unsupported %s operator %q", kind, op),
		map[string]interface{}{"kind": kind, "operator": op})
}

// MalformedFunction wraps the verification failures of name.
func MalformedFunction(name string, cause error) *StandardError {
	e := NewStandardError(CategoryValidation, CodeMalformedFunction,
		fmt.Sprintf("malformed function %q", name),
		map[string]interface{}{"name": name})
	e.Cause = cause
	return e
}

func StepLimit(name string, limit int) *StandardError {
	return NewStandardError(CategoryRuntime, CodeStepLimit,
		fmt.Sprintf("evaluation of %q exceeded %d steps", name, limit),
		map[string]interface{}{"name": name, "limit": limit})
}
