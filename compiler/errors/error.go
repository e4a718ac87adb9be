package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
)

// Severity represents the severity level of an error
type Severity int

const (
	Info Severity = iota
	Warning
	Error
	Fatal
)

// String returns the string representation of the severity
func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler for Severity
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON implements json.Unmarshaler for Severity
func (s *Severity) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	switch str {
	case "info":
		*s = Info
	case "warning":
		*s = Warning
	case "fatal":
		*s = Fatal
	default:
		*s = Error
	}
	return nil
}

// Compilation phases. Each phase owns a range of error codes (see codes.go).
const (
	PhaseStructure  = "structure"
	PhaseMetadata   = "metadata"
	PhaseExpression = "expression"
	PhaseEmit       = "emit"
	PhaseIO         = "io"
)

// SourceLocation represents a location in a source document
type SourceLocation struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Length int    `json:"length"`
}

// ErrorContext contains the lines surrounding an error
type ErrorContext struct {
	SourceLines []string  `json:"source_lines"`
	FirstLine   int       `json:"first_line"` // 1-indexed number of SourceLines[0]
	Highlight   Highlight `json:"highlight"`
}

// Highlight specifies which part of the context to highlight
type Highlight struct {
	Line  int `json:"line"`  // index into SourceLines
	Start int `json:"start"` // 0-based column
	End   int `json:"end"`
}

// FixSuggestion is a hint attached to an error
type FixSuggestion struct {
	Description string  `json:"description"`
	OldCode     string  `json:"old_code,omitempty"`
	NewCode     string  `json:"new_code,omitempty"`
	Confidence  float64 `json:"confidence"`
}

// CompilerError is the single error type produced by every compilation phase.
//
// The phase identifies the error kind:
//
//	structure   directive adjacency, sealing and separator placement
//	metadata    malformed key/value blocks and front matter
//	expression  reference expressions and example sources the host grammar rejects
//	emit        values the emitter cannot represent, backend failures
type CompilerError struct {
	Phase         string
	Code          string
	Message       string
	Location      SourceLocation
	Severity      Severity
	Context       ErrorContext
	Suggestion    *FixSuggestion
	RelatedErrors []CompilerError
}

// Error implements the error interface
func (e CompilerError) Error() string {
	if e.Location.File == "" {
		return fmt.Sprintf("%d:%d: %s: %s", e.Location.Line, e.Location.Column, e.Code, e.Message)
	}
	return fmt.Sprintf("%s:%d:%d: %s: %s",
		e.Location.File,
		e.Location.Line,
		e.Location.Column,
		e.Code,
		e.Message)
}

// NewCompilerError creates a new CompilerError
func NewCompilerError(phase, code, message string, location SourceLocation, severity Severity) CompilerError {
	return CompilerError{
		Phase:         phase,
		Code:          code,
		Message:       message,
		Location:      location,
		Severity:      severity,
		RelatedErrors: []CompilerError{},
	}
}

// NewStructuralError reports a directive grammar violation.
func NewStructuralError(code, message string, location SourceLocation) CompilerError {
	return NewCompilerError(PhaseStructure, code, message, location, Fatal)
}

// NewMetadataError reports a malformed metadata block.
func NewMetadataError(code, message string, location SourceLocation) CompilerError {
	return NewCompilerError(PhaseMetadata, code, message, location, Error)
}

// NewExpressionError reports source the host expression grammar rejects.
func NewExpressionError(code, message string, location SourceLocation) CompilerError {
	return NewCompilerError(PhaseExpression, code, message, location, Error)
}

// NewUnsupportedValueError reports a field value the emitter cannot represent.
func NewUnsupportedValueError(path string, value any, location SourceLocation) CompilerError {
	msg := fmt.Sprintf("unsupported value for field %q: %T", path, value)
	return NewCompilerError(PhaseEmit, ErrUnsupportedValue, msg, location, Error)
}

// WithContext adds context to the error
func (e CompilerError) WithContext(ctx ErrorContext) CompilerError {
	e.Context = ctx
	return e
}

// WithSuggestion adds a fix suggestion to the error
func (e CompilerError) WithSuggestion(suggestion FixSuggestion) CompilerError {
	e.Suggestion = &suggestion
	return e
}

// WithRelatedError adds a related error
func (e CompilerError) WithRelatedError(related CompilerError) CompilerError {
	e.RelatedErrors = append(e.RelatedErrors, related)
	return e
}

// WithFile sets the document the error belongs to
func (e CompilerError) WithFile(file string) CompilerError {
	e.Location.File = file
	return e
}

// MarshalJSON implements json.Marshaler
func (e CompilerError) MarshalJSON() ([]byte, error) {
	related := e.RelatedErrors
	if related == nil {
		related = []CompilerError{}
	}
	return json.Marshal(struct {
		Phase         string          `json:"phase"`
		Code          string          `json:"code"`
		Message       string          `json:"message"`
		Severity      Severity        `json:"severity"`
		Location      SourceLocation  `json:"location"`
		Context       ErrorContext    `json:"context"`
		Suggestion    *FixSuggestion  `json:"suggestion"`
		RelatedErrors []CompilerError `json:"related_errors"`
	}{
		Phase:         e.Phase,
		Code:          e.Code,
		Message:       e.Message,
		Severity:      e.Severity,
		Location:      e.Location,
		Context:       e.Context,
		Suggestion:    e.Suggestion,
		RelatedErrors: related,
	})
}

// IsError returns true if the error is at Error or Fatal severity
func (e CompilerError) IsError() bool {
	return e.Severity == Error || e.Severity == Fatal
}

// IsWarning returns true if the error is at Warning severity
func (e CompilerError) IsWarning() bool {
	return e.Severity == Warning
}

// IsInfo returns true if the error is at Info severity
func (e CompilerError) IsInfo() bool {
	return e.Severity == Info
}

// IsFatal returns true if the error is at Fatal severity
func (e CompilerError) IsFatal() bool {
	return e.Severity == Fatal
}

// AsCompilerError unwraps err into a CompilerError.
func AsCompilerError(err error) (CompilerError, bool) {
	var ce CompilerError
	if stderrors.As(err, &ce) {
		return ce, true
	}
	return CompilerError{}, false
}

// IsPhase reports whether err is a CompilerError raised in the given phase.
func IsPhase(err error, phase string) bool {
	ce, ok := AsCompilerError(err)
	return ok && ce.Phase == phase
}

// HasCode reports whether err is a CompilerError with the given code.
func HasCode(err error, code string) bool {
	ce, ok := AsCompilerError(err)
	return ok && ce.Code == code
}
