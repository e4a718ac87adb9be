package errors

import (
	"encoding/json"
)

// JSONOutput represents the JSON structure for error output
type JSONOutput struct {
	Status   string          `json:"status"`
	Errors   []CompilerError `json:"errors"`
	Warnings []CompilerError `json:"warnings"`
	Summary  Summary         `json:"summary"`
}

// Summary contains error and warning counts
type Summary struct {
	ErrorCount   int `json:"error_count"`
	WarningCount int `json:"warning_count"`
	TotalCount   int `json:"total_count"`
}

// FormatAsJSON formats a CompilerError as indented JSON
func (e CompilerError) FormatAsJSON() (string, error) {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// NewJSONOutput splits errs into errors and warnings and derives the status.
func NewJSONOutput(errs []CompilerError) JSONOutput {
	output := JSONOutput{
		Status:   "success",
		Errors:   []CompilerError{},
		Warnings: []CompilerError{},
	}

	for _, err := range errs {
		if err.IsError() {
			output.Errors = append(output.Errors, err)
		} else if err.IsWarning() {
			output.Warnings = append(output.Warnings, err)
		}
	}

	if len(output.Errors) > 0 {
		output.Status = "error"
	} else if len(output.Warnings) > 0 {
		output.Status = "warning"
	}

	output.Summary = Summary{
		ErrorCount:   len(output.Errors),
		WarningCount: len(output.Warnings),
		TotalCount:   len(errs),
	}
	return output
}

// FormatErrorsAsJSON formats multiple errors as indented JSON
func FormatErrorsAsJSON(errs []CompilerError) (string, error) {
	data, err := json.MarshalIndent(NewJSONOutput(errs), "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FormatErrorsAsJSONCompact formats multiple errors as compact JSON
func FormatErrorsAsJSONCompact(errs []CompilerError) (string, error) {
	data, err := json.Marshal(NewJSONOutput(errs))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
