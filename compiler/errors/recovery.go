package errors

import (
	"fmt"
	"strings"
	"sync"
)

// MaxErrors is the maximum number of errors to collect before stopping
const MaxErrors = 100

// ErrorRecovery collects the failures of independent documents. A document
// that fails is skipped as a whole; the collector lets the remaining
// documents compile and reports everything at the end. Safe for concurrent use.
type ErrorRecovery struct {
	mu       sync.Mutex
	errors   []CompilerError
	warnings []CompilerError
	maxCount int
}

// NewErrorRecovery creates a new ErrorRecovery instance
func NewErrorRecovery() *ErrorRecovery {
	return NewErrorRecoveryWithMax(MaxErrors)
}

// NewErrorRecoveryWithMax creates a new ErrorRecovery with custom max count
func NewErrorRecoveryWithMax(maxCount int) *ErrorRecovery {
	return &ErrorRecovery{
		errors:   make([]CompilerError, 0),
		warnings: make([]CompilerError, 0),
		maxCount: maxCount,
	}
}

// Recover adds an error to the collection
func (r *ErrorRecovery) Recover(err CompilerError) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err.IsWarning() || err.IsInfo() {
		r.warnings = append(r.warnings, err)
		return
	}

	if len(r.errors) >= r.maxCount {
		return
	}
	r.errors = append(r.errors, err)
}

// RecoverError records any error for file. Errors that are not already
// CompilerErrors are recorded under fallbackPhase/fallbackCode.
func (r *ErrorRecovery) RecoverError(err error, file, fallbackPhase, fallbackCode string) {
	if ce, ok := AsCompilerError(err); ok {
		if ce.Location.File == "" {
			ce = ce.WithFile(file)
		}
		r.Recover(ce)
		return
	}

	r.Recover(NewCompilerError(fallbackPhase, fallbackCode, err.Error(), SourceLocation{File: file}, Error))
}

// HasErrors returns true if there are any errors (not just warnings)
func (r *ErrorRecovery) HasErrors() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errors) > 0
}

// ErrorCount returns the number of errors
func (r *ErrorRecovery) ErrorCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errors)
}

// WarningCount returns the number of warnings
func (r *ErrorRecovery) WarningCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.warnings)
}

// GetErrors returns a copy of all errors
func (r *ErrorRecovery) GetErrors() []CompilerError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]CompilerError(nil), r.errors...)
}

// GetAll returns all errors and warnings combined
func (r *ErrorRecovery) GetAll() []CompilerError {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]CompilerError, 0, len(r.errors)+len(r.warnings))
	all = append(all, r.errors...)
	all = append(all, r.warnings...)
	return all
}

// GetErrorsByPhase returns errors for a specific phase
func (r *ErrorRecovery) GetErrorsByPhase(phase string) []CompilerError {
	var result []CompilerError
	for _, err := range r.GetErrors() {
		if err.Phase == phase {
			result = append(result, err)
		}
	}
	return result
}

// FormatForTerminal formats all errors for terminal output
func (r *ErrorRecovery) FormatForTerminal() string {
	all := r.GetAll()
	errorCount, warningCount := r.ErrorCount(), r.WarningCount()

	var sb strings.Builder
	for i, err := range all {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(err.FormatForTerminal())
	}

	if len(all) > 0 {
		sb.WriteString(FormatSummary(errorCount, warningCount))
	}

	if errorCount >= r.maxCount {
		sb.WriteString(fmt.Sprintf("\nNote: Error limit reached (%d). Additional errors not shown.\n", r.maxCount))
	}

	return sb.String()
}

// FormatAsJSON formats all errors as JSON
func (r *ErrorRecovery) FormatAsJSON() (string, error) {
	return FormatErrorsAsJSON(r.GetAll())
}

// Error implements the error interface
func (r *ErrorRecovery) Error() string {
	errs := r.GetErrors()
	switch len(errs) {
	case 0:
		return "no errors"
	case 1:
		return errs[0].Error()
	default:
		return fmt.Sprintf("%s (and %d more errors)", errs[0].Error(), len(errs)-1)
	}
}

// Summary returns a human-readable summary
func (r *ErrorRecovery) Summary() string {
	errorCount, warningCount := r.ErrorCount(), r.WarningCount()
	if errorCount == 0 && warningCount == 0 {
		return "No errors or warnings"
	}

	var parts []string
	if errorCount > 0 {
		parts = append(parts, fmt.Sprintf("%d error(s)", errorCount))
	}
	if warningCount > 0 {
		parts = append(parts, fmt.Sprintf("%d warning(s)", warningCount))
	}

	return "Found " + strings.Join(parts, " and ")
}
