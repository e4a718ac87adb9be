package parser

import "fmt"

// RecordKind distinguishes entity annotations from guides
type RecordKind int

const (
	RecordEntity RecordKind = iota
	RecordGuide
)

// String returns the string representation of the record kind
func (k RecordKind) String() string {
	switch k {
	case RecordEntity:
		return "entity"
	case RecordGuide:
		return "guide"
	default:
		return fmt.Sprintf("RecordKind(%d)", int(k))
	}
}

// Record binds one directive (or one group of adjacent entity directives) to
// the raw metadata and documentation text that follows it. The metadata is
// still unparsed YAML at this stage.
type Record struct {
	Kind RecordKind

	// References holds the symbol reference of every @annotate line in the
	// group, in document order. Empty for guides.
	References     []string
	ReferenceLines []int
	MultiRef       bool

	// Title is the guide title. Empty for entities.
	Title string

	Metadata      string
	Documentation string

	File              string
	Line              int // line of the (first) directive
	MetadataLine      int // line of the first metadata line, 0 if none
	DocumentationLine int // line of the first documentation line, 0 if none
}

// Reference returns the first reference of an entity record
func (r Record) Reference() string {
	if len(r.References) == 0 {
		return ""
	}
	return r.References[0]
}

// Name returns the reference or the title, whichever applies
func (r Record) Name() string {
	if r.Kind == RecordGuide {
		return r.Title
	}
	return r.Reference()
}
