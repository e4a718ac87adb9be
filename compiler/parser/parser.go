package parser

import (
	"strings"

	"github.com/conduit-lang/docmeta/compiler/errors"
	"github.com/conduit-lang/docmeta/compiler/lexer"
)

// state is the annotation phase the parser is in. Idle means no directive
// block is open: either nothing has been seen yet, or a separator closed the
// metadata block and plain lines now go to documentation.
type state int

const (
	stateIdle state = iota
	stateEntity
	stateGuide
	stateCount
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateEntity:
		return "entity"
	case stateGuide:
		return "guide"
	default:
		return "unknown"
	}
}

type transition func(p *Parser, line lexer.Line) error

// transitions is the complete state machine. Every (state, line kind) pair has
// an entry; a nil entry would be a programming error and panics in step.
var transitions = [stateCount][lexer.NumLineKinds]transition{
	stateIdle: {
		lexer.LINE_EOF:              (*Parser).finish,
		lexer.LINE_ENTITY_DIRECTIVE: (*Parser).startEntity,
		lexer.LINE_GUIDE_DIRECTIVE:  (*Parser).startGuide,
		lexer.LINE_SEPARATOR:        (*Parser).separator,
		lexer.LINE_PLAIN:            (*Parser).plain,
	},
	stateEntity: {
		lexer.LINE_EOF:              (*Parser).finish,
		lexer.LINE_ENTITY_DIRECTIVE: (*Parser).groupEntity,
		lexer.LINE_GUIDE_DIRECTIVE:  (*Parser).rejectGuide,
		lexer.LINE_SEPARATOR:        (*Parser).separator,
		lexer.LINE_PLAIN:            (*Parser).plain,
	},
	stateGuide: {
		lexer.LINE_EOF:              (*Parser).finish,
		lexer.LINE_ENTITY_DIRECTIVE: (*Parser).rejectEntityInGuide,
		lexer.LINE_GUIDE_DIRECTIVE:  (*Parser).rejectGuide,
		lexer.LINE_SEPARATOR:        (*Parser).separator,
		lexer.LINE_PLAIN:            (*Parser).plain,
	},
}

// builder accumulates one record while it is open
type builder struct {
	record   Record
	metadata []string
	docs     []string
	sealed   bool
}

func (b *builder) build() Record {
	r := b.record
	r.Metadata = strings.Join(b.metadata, "\n")
	r.Documentation = strings.Join(b.docs, "\n")
	return r
}

// Parser folds a classified line stream into annotation records
type Parser struct {
	lines    []lexer.Line
	source   string
	rawLines []string

	state     state
	current   *builder
	completed []Record
	done      bool
}

// New creates a new Parser from a classified line stream
func New(lines []lexer.Line) *Parser {
	return &Parser{lines: lines}
}

// NewWithSource creates a new Parser with access to the original document
// text, which is used to attach a source window to structural errors.
func NewWithSource(lines []lexer.Line, source string) *Parser {
	return &Parser{
		lines:    lines,
		source:   source,
		rawLines: strings.Split(source, "\n"),
	}
}

// ParseDocument classifies and parses a whole document
func ParseDocument(source, file string) ([]Record, error) {
	lines := lexer.New(source, file).ScanLines()
	return NewWithSource(lines, source).Parse()
}

// Parse runs the state machine over the line stream. The first structural
// error aborts the document; no records are returned alongside it.
func (p *Parser) Parse() ([]Record, error) {
	p.state = stateIdle
	p.current = nil
	p.completed = nil
	p.done = false

	for _, line := range p.lines {
		if err := p.step(line); err != nil {
			return nil, err
		}
		if p.done {
			break
		}
	}

	// A stream without an EOF marker still flushes the open record.
	if !p.done {
		p.push()
	}

	return p.completed, nil
}

func (p *Parser) step(line lexer.Line) error {
	fn := transitions[p.state][line.Kind]
	return fn(p, line)
}

func (p *Parser) push() {
	if p.current != nil {
		p.completed = append(p.completed, p.current.build())
		p.current = nil
	}
}

func (p *Parser) startEntity(line lexer.Line) error {
	p.push()
	p.current = &builder{record: Record{
		Kind:           RecordEntity,
		References:     []string{line.Text},
		ReferenceLines: []int{line.Number},
		File:           line.File,
		Line:           line.Number,
	}}
	p.state = stateEntity
	return nil
}

func (p *Parser) startGuide(line lexer.Line) error {
	p.push()
	p.current = &builder{record: Record{
		Kind:  RecordGuide,
		Title: line.Text,
		File:  line.File,
		Line:  line.Number,
	}}
	p.state = stateGuide
	return nil
}

func (p *Parser) groupEntity(line lexer.Line) error {
	if p.current.sealed {
		return p.structuralError(errors.ErrAnnotationNotAdjacent, line)
	}
	r := &p.current.record
	r.References = append(r.References, line.Text)
	r.ReferenceLines = append(r.ReferenceLines, line.Number)
	r.MultiRef = true
	return nil
}

func (p *Parser) rejectEntityInGuide(line lexer.Line) error {
	return p.structuralError(errors.ErrMultiRefGuide, line)
}

func (p *Parser) rejectGuide(line lexer.Line) error {
	return p.structuralError(errors.ErrGuideNotAlone, line)
}

func (p *Parser) separator(line lexer.Line) error {
	if p.current == nil {
		return p.structuralError(errors.ErrSeparatorWithoutEntity, line)
	}
	p.state = stateIdle
	return nil
}

func (p *Parser) plain(line lexer.Line) error {
	if p.current == nil {
		return p.structuralError(errors.ErrDocumentationBeforeAnno, line)
	}

	b := p.current
	if p.state != stateIdle {
		if len(b.metadata) == 0 {
			b.record.MetadataLine = line.Number
		}
		b.metadata = append(b.metadata, line.Text)
		b.sealed = true
		return nil
	}

	if len(b.docs) == 0 {
		b.record.DocumentationLine = line.Number
	}
	b.docs = append(b.docs, line.Text)
	return nil
}

func (p *Parser) finish(lexer.Line) error {
	p.push()
	p.state = stateIdle
	p.done = true
	return nil
}
