// Diagnostic messages for the kaleido front end.
// Parse, code generation and evaluation failures are all reported through
// this package so that drivers print them in one format.

package diagnostic

import (
	"errors"

	kerrors "github.com/orizon-lang/kaleido/internal/errors"
	"github.com/orizon-lang/kaleido/internal/position"
)

// DiagnosticLevel represents the severity level of a diagnostic message.
type DiagnosticLevel int

const (
	DiagnosticError DiagnosticLevel = iota
	DiagnosticWarning
	DiagnosticInfo
	DiagnosticHint
)

func (dl DiagnosticLevel) String() string {
	switch dl {
	case DiagnosticError:
		return "error"
	case DiagnosticWarning:
		return "warning"
	case DiagnosticInfo:
		return "info"
	case DiagnosticHint:
		return "hint"
	default:
		return "unknown"
	}
}

// DiagnosticCategory represents the category of diagnostic.
type DiagnosticCategory int

const (
	DiagnosticSyntax DiagnosticCategory = iota
	DiagnosticResolution
	DiagnosticDefinition
	DiagnosticStructure
	DiagnosticValidation
	DiagnosticRuntime
)

func (dc DiagnosticCategory) String() string {
	switch dc {
	case DiagnosticSyntax:
		return "syntax"
	case DiagnosticResolution:
		return "resolution"
	case DiagnosticDefinition:
		return "definition"
	case DiagnosticStructure:
		return "structure"
	case DiagnosticValidation:
		return "validation"
	case DiagnosticRuntime:
		return "runtime"
	default:
		return "unknown"
	}
}

// Diagnostic represents a single diagnostic message.
type Diagnostic struct {
	Code        string
	Message     string
	RelatedInfo []RelatedInformation
	Span        position.Span
	Level       DiagnosticLevel
	Category    DiagnosticCategory
}

// RelatedInformation provides additional context for a diagnostic.
type RelatedInformation struct {
	Message string
	Span    position.Span
}

// DiagnosticBuilder helps construct diagnostic messages with fluent API.
type DiagnosticBuilder struct {
	diagnostic *Diagnostic
}

// NewDiagnostic creates a new diagnostic builder.
func NewDiagnostic() *DiagnosticBuilder {
	return &DiagnosticBuilder{diagnostic: &Diagnostic{}}
}

func (db *DiagnosticBuilder) Error() *DiagnosticBuilder {
	db.diagnostic.Level = DiagnosticError

	return db
}

func (db *DiagnosticBuilder) Warning() *DiagnosticBuilder {
	db.diagnostic.Level = DiagnosticWarning

	return db
}

func (db *DiagnosticBuilder) Info() *DiagnosticBuilder {
	db.diagnostic.Level = DiagnosticInfo

	return db
}

func (db *DiagnosticBuilder) Category(c DiagnosticCategory) *DiagnosticBuilder {
	db.diagnostic.Category = c

	return db
}

func (db *DiagnosticBuilder) Syntax() *DiagnosticBuilder {
	return db.Category(DiagnosticSyntax)
}

func (db *DiagnosticBuilder) Code(code string) *DiagnosticBuilder {
	db.diagnostic.Code = code

	return db
}

func (db *DiagnosticBuilder) Message(message string) *DiagnosticBuilder {
	db.diagnostic.Message = message

	return db
}

func (db *DiagnosticBuilder) Span(span position.Span) *DiagnosticBuilder {
	db.diagnostic.Span = span

	return db
}

func (db *DiagnosticBuilder) Related(span position.Span, message string) *DiagnosticBuilder {
	db.diagnostic.RelatedInfo = append(db.diagnostic.RelatedInfo, RelatedInformation{
		Span:    span,
		Message: message,
	})

	return db
}

func (db *DiagnosticBuilder) Build() *Diagnostic {
	return db.diagnostic
}

var categoryOf = map[kerrors.ErrorCategory]DiagnosticCategory{
	kerrors.CategoryResolution: DiagnosticResolution,
	kerrors.CategoryArity:      DiagnosticResolution,
	kerrors.CategoryDefinition: DiagnosticDefinition,
	kerrors.CategoryStructure:  DiagnosticStructure,
	kerrors.CategoryValidation: DiagnosticValidation,
	kerrors.CategoryRuntime:    DiagnosticRuntime,
}

// Spanned is implemented by errors that know where they occurred.
type Spanned interface {
	error
	ErrorSpan() position.Span
}

// FromError converts err into an error-level diagnostic. A StandardError
// keeps its code and span, and each part of its cause becomes a note;
// other errors get code "E0000".
func FromError(err error) *Diagnostic {
	b := NewDiagnostic().Error().Message(err.Error())

	var se *kerrors.StandardError
	if errors.As(err, &se) {
		for _, cause := range causes(se.Cause) {
			b.Related(position.Span{}, cause.Error())
		}
		return b.Code(se.Code).Category(categoryOf[se.Category]).Span(se.Span).Build()
	}

	var sp Spanned
	if errors.As(err, &sp) {
		return b.Code("E0001").Syntax().Span(sp.ErrorSpan()).Build()
	}

	return b.Code("E0000").Build()
}

func causes(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}
