package errors

import (
	"strings"
)

// ContextRadius is the number of lines shown before and after an error line
const ContextRadius = 3

// EnrichError adds source context and suggestions to an error
func EnrichError(err CompilerError, sourceContent string) CompilerError {
	err = err.WithContext(ExtractSourceContext(err.Location, sourceContent))

	if suggestion := suggestFix(err); suggestion != nil {
		err = err.WithSuggestion(*suggestion)
	}

	return err
}

// ExtractSourceContext returns the window of ContextRadius lines around
// location in sourceContent. Only Line, Column and Length are used, so the
// location may be relative to a fragment (an example body) rather than the
// whole document.
func ExtractSourceContext(location SourceLocation, sourceContent string) ErrorContext {
	lines := strings.Split(sourceContent, "\n")

	if location.Line < 1 || location.Line > len(lines) {
		return ErrorContext{}
	}

	errorLineIndex := location.Line - 1
	startLine := max(0, errorLineIndex-ContextRadius)
	endLine := min(len(lines), errorLineIndex+ContextRadius+1)

	contextLines := make([]string, 0, endLine-startLine)
	contextLines = append(contextLines, lines[startLine:endLine]...)

	start := max(0, location.Column-1)
	end := start + location.Length
	if location.Length == 0 {
		end = start + 1
	}

	return ErrorContext{
		SourceLines: contextLines,
		FirstLine:   startLine + 1,
		Highlight: Highlight{
			Line:  errorLineIndex - startLine,
			Start: start,
			End:   end,
		},
	}
}

// Excerpt returns the highlighted source line of the context, if any.
func (c ErrorContext) Excerpt() string {
	if c.Highlight.Line < 0 || c.Highlight.Line >= len(c.SourceLines) {
		return ""
	}
	return c.SourceLines[c.Highlight.Line]
}
