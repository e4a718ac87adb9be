package parser

import (
	"github.com/conduit-lang/docmeta/compiler/errors"
	"github.com/conduit-lang/docmeta/compiler/lexer"
)

// structuralError builds a fatal structure-phase error pointing at line and
// enriched with the surrounding document text when the source is known.
func (p *Parser) structuralError(code string, line lexer.Line) error {
	loc := errors.SourceLocation{
		File:   line.File,
		Line:   line.Number,
		Column: 1,
	}
	if raw := p.rawLine(line.Number); raw != "" {
		loc.Length = len(raw)
	}

	err := errors.NewStructuralError(code, errors.GetErrorMessage(code), loc)
	if p.source != "" {
		err = errors.EnrichError(err, p.source)
	}
	return err
}

func (p *Parser) rawLine(number int) string {
	if number < 1 || number > len(p.rawLines) {
		return ""
	}
	return p.rawLines[number-1]
}
