package lexer

import "fmt"

// LineKind classifies a single line of an annotated Markdown document
type LineKind int

const (
	// LINE_EOF is the synthetic marker appended after the last line
	LINE_EOF LineKind = iota

	// LINE_ENTITY_DIRECTIVE is "@annotate: <reference>"
	LINE_ENTITY_DIRECTIVE

	// LINE_GUIDE_DIRECTIVE is "@guide: <title>"
	LINE_GUIDE_DIRECTIVE

	// LINE_SEPARATOR is a line of three or more '-' characters
	LINE_SEPARATOR

	// LINE_PLAIN is any other line
	LINE_PLAIN

	// lineKindCount must stay last; the parser sizes its transition table with it
	lineKindCount
)

// NumLineKinds is the number of line kinds, LINE_EOF included
const NumLineKinds = int(lineKindCount)

var lineKindNames = [...]string{
	LINE_EOF:              "EOF",
	LINE_ENTITY_DIRECTIVE: "ENTITY_DIRECTIVE",
	LINE_GUIDE_DIRECTIVE:  "GUIDE_DIRECTIVE",
	LINE_SEPARATOR:        "SEPARATOR",
	LINE_PLAIN:            "PLAIN",
}

// String returns the string representation of the line kind
func (k LineKind) String() string {
	if k >= 0 && int(k) < len(lineKindNames) {
		return lineKindNames[k]
	}
	return fmt.Sprintf("LineKind(%d)", int(k))
}

// IsDirective reports whether the kind opens a new annotation
func (k LineKind) IsDirective() bool {
	return k == LINE_ENTITY_DIRECTIVE || k == LINE_GUIDE_DIRECTIVE
}

// Line is one classified input line.
//
// Text holds the directive capture (reference or title) for directives, the
// raw line for plain lines and is empty for separators and EOF.
type Line struct {
	Kind   LineKind
	Text   string
	Number int // 1-indexed; the EOF marker carries the line count + 1
	File   string
}

// String returns a debug representation of the line
func (l Line) String() string {
	if l.Text == "" {
		return fmt.Sprintf("%s@%d", l.Kind, l.Number)
	}
	return fmt.Sprintf("%s(%q)@%d", l.Kind, l.Text, l.Number)
}
