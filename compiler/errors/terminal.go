package errors

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fatih/color"
)

var (
	locationColor = color.New(color.FgCyan)
	gutterColor   = color.New(color.FgBlue)
	contextColor  = color.New(color.FgHiBlack)
	markerColor   = color.New(color.FgRed)
	helpColor     = color.New(color.FgCyan, color.Bold)
	boldColor     = color.New(color.Bold)
)

// FormatForTerminal formats a CompilerError for terminal output.
// Colors follow github.com/fatih/color and are dropped when stdout is not a TTY.
func (e CompilerError) FormatForTerminal() string {
	var sb strings.Builder

	title := strings.ToUpper(e.Severity.String()[:1]) + e.Severity.String()[1:]
	sb.WriteString(fmt.Sprintf("%s: %s\n",
		severityColor(e.Severity).Sprintf("%s[%s]", title, e.Code),
		e.Message))

	sb.WriteString(fmt.Sprintf("  %s %s:%d:%d\n",
		locationColor.Sprint("-->"),
		e.Location.File,
		e.Location.Line,
		e.Location.Column))

	if len(e.Context.SourceLines) > 0 {
		sb.WriteString(formatSourceContext(e.Context))
	}

	if e.Suggestion != nil {
		sb.WriteString(formatSuggestion(*e.Suggestion))
	}

	if len(e.RelatedErrors) > 0 {
		sb.WriteString("\n" + boldColor.Sprint("Related errors:") + "\n")
		for i, related := range e.RelatedErrors {
			sb.WriteString(fmt.Sprintf("  %d. %s:%d:%d: %s\n",
				i+1,
				related.Location.File,
				related.Location.Line,
				related.Location.Column,
				related.Message))
		}
	}

	return sb.String()
}

// formatSourceContext prints the window with real line numbers and a ^ marker
// under the highlighted span.
func formatSourceContext(ctx ErrorContext) string {
	var sb strings.Builder

	first := ctx.FirstLine
	if first < 1 {
		first = 1
	}
	width := len(fmt.Sprint(first + len(ctx.SourceLines)))
	pad := strings.Repeat(" ", width)

	sb.WriteString(fmt.Sprintf("%s %s\n", pad, gutterColor.Sprint("|")))

	for i, line := range ctx.SourceLines {
		num := fmt.Sprintf("%*d", width, first+i)
		if i != ctx.Highlight.Line {
			sb.WriteString(fmt.Sprintf("%s %s %s\n", contextColor.Sprint(num), gutterColor.Sprint("|"), line))
			continue
		}

		sb.WriteString(fmt.Sprintf("%s %s %s\n", gutterColor.Sprint(num), gutterColor.Sprint("|"), line))

		length := ctx.Highlight.End - ctx.Highlight.Start
		if length <= 0 {
			length = 1
		}
		sb.WriteString(fmt.Sprintf("%s %s %s%s\n",
			pad,
			gutterColor.Sprint("|"),
			strings.Repeat(" ", max(0, ctx.Highlight.Start)),
			markerColor.Sprint(strings.Repeat("^", length))))
	}

	sb.WriteString(fmt.Sprintf("%s %s\n", pad, gutterColor.Sprint("|")))

	return sb.String()
}

// formatSuggestion formats a fix suggestion
func formatSuggestion(suggestion FixSuggestion) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("\n%s %s\n", helpColor.Sprint("Help:"), suggestion.Description))

	if suggestion.NewCode != "" {
		sb.WriteString(helpColor.Sprint("Suggestion:") + "\n")
		for _, line := range strings.Split(suggestion.NewCode, "\n") {
			sb.WriteString(fmt.Sprintf("    %s\n", line))
		}
	}

	return sb.String()
}

func severityColor(severity Severity) *color.Color {
	switch severity {
	case Info:
		return color.New(color.FgBlue, color.Bold)
	case Warning:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}

// FormatSummary formats a summary of errors and warnings
func FormatSummary(errorCount, warningCount int) string {
	var parts []string

	if errorCount > 0 {
		parts = append(parts, color.RedString("%d error(s)", errorCount))
	}
	if warningCount > 0 {
		parts = append(parts, color.YellowString("%d warning(s)", warningCount))
	}

	if len(parts) == 0 {
		return color.BlueString("No errors or warnings") + "\n"
	}

	return "\n" + boldColor.Sprintf("Compilation failed with %s", strings.Join(parts, " and ")) + "\n"
}

var ansiPattern = regexp.MustCompile("\x1b\\[[0-9;]*m")

// StripColors removes ANSI escape sequences from a string
func StripColors(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}
