package lexer

import (
	"regexp"
	"strings"
)

// directives is checked in order; the first matching pattern wins.
var directives = []struct {
	kind    LineKind
	pattern *regexp.Regexp
}{
	{LINE_ENTITY_DIRECTIVE, regexp.MustCompile(`^@annotate:\s*(.+)`)},
	{LINE_GUIDE_DIRECTIVE, regexp.MustCompile(`^@guide:\s*(.+)`)},
	{LINE_SEPARATOR, regexp.MustCompile(`^---+\s*$`)},
}

// Classify returns the kind of a single line and its payload. It is total:
// anything that is not a well-formed directive or separator is LINE_PLAIN,
// with the line itself as payload.
func Classify(line string) (LineKind, string) {
	for _, d := range directives {
		m := d.pattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if len(m) > 1 {
			return d.kind, m[1]
		}
		return d.kind, ""
	}
	return LINE_PLAIN, line
}

// Lexer splits an annotated Markdown document into classified lines
type Lexer struct {
	source string
	file   string
}

// New creates a new Lexer for the given document
func New(source, file string) *Lexer {
	return &Lexer{
		source: source,
		file:   file,
	}
}

// ScanLines classifies every line of the document and appends a LINE_EOF
// marker. An empty document yields only the marker.
func (l *Lexer) ScanLines() []Line {
	var raw []string
	if l.source != "" {
		raw = strings.Split(l.source, "\n")
	}

	lines := make([]Line, 0, len(raw)+1)
	for i, text := range raw {
		kind, payload := Classify(text)
		lines = append(lines, Line{
			Kind:   kind,
			Text:   payload,
			Number: i + 1,
			File:   l.file,
		})
	}

	return append(lines, Line{
		Kind:   LINE_EOF,
		Number: len(raw) + 1,
		File:   l.file,
	})
}
