// Package analyzer turns annotation records into metadata units: it decodes
// each metadata block, resolves special fields, infers stability and
// examples, and expands multi-reference records into one unit per symbol.
package analyzer

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/conduit-lang/docmeta/compiler/errors"
	"github.com/conduit-lang/docmeta/compiler/expr"
	"github.com/conduit-lang/docmeta/compiler/parser"
)

// DefaultGuidesRoot is the parent expression guides bind to when their
// metadata names none.
const DefaultGuidesRoot = "guides"

// Options configures an Analyzer
type Options struct {
	// GuidesRoot is the default guide parent expression
	GuidesRoot string
	// Defaults are document-level fields cloned into every unit before the
	// unit's own metadata is applied.
	Defaults Fields
}

// Analyzer converts records into units. It holds no per-document state and
// is safe for concurrent use when its expression parser is.
type Analyzer struct {
	exprs expr.Parser
	opts  Options
}

// New creates a new Analyzer
func New(exprs expr.Parser, opts Options) *Analyzer {
	if opts.GuidesRoot == "" {
		opts.GuidesRoot = DefaultGuidesRoot
	}
	return &Analyzer{exprs: exprs, opts: opts}
}

// WithDefaults returns a copy of the analyzer that clones defaults into
// every unit.
func (a *Analyzer) WithDefaults(defaults Fields) *Analyzer {
	clone := *a
	clone.opts.Defaults = defaults
	return &clone
}

// Analyze analyzes every record in order and stops at the first failure
func (a *Analyzer) Analyze(records []parser.Record) ([]Unit, error) {
	var units []Unit
	for _, rec := range records {
		out, err := a.AnalyzeRecord(rec)
		if err != nil {
			return nil, err
		}
		units = append(units, out...)
	}
	return units, nil
}

// AnalyzeRecord analyzes a single record. A failure affects only this
// record, so callers can keep going to collect every error of a document.
func (a *Analyzer) AnalyzeRecord(rec parser.Record) ([]Unit, error) {
	md, err := a.parseMetadata(rec)
	if err != nil {
		return nil, err
	}

	fields := a.opts.Defaults.Clone()
	for k, v := range md.fields {
		fields[k] = v
	}

	if rec.Documentation != "" || fields["documentation"] == nil {
		fields["documentation"] = strings.TrimSpace(rec.Documentation)
	}

	if err := a.infer(rec, fields); err != nil {
		return nil, err
	}

	switch rec.Kind {
	case parser.RecordGuide:
		return a.guide(rec, fields, md.overrides)
	default:
		return a.entity(rec, fields, md.overrides)
	}
}

func (a *Analyzer) guide(rec parser.Record, fields Fields, overrides []string) ([]Unit, error) {
	parentSrc := a.opts.GuidesRoot
	if raw, ok := fields["parent"]; ok {
		s, isString := raw.(string)
		if !isString || s == "" {
			loc := errors.SourceLocation{File: rec.File, Line: rec.Line, Column: 1}
			return nil, errors.NewExpressionError(errors.ErrInvalidParent,
				fmt.Sprintf("%s: parent must be a reference expression, got %T", errors.GetErrorMessage(errors.ErrInvalidParent), raw), loc)
		}
		parentSrc = s
	}

	parent, err := a.exprs.ParseExpression(parentSrc)
	if err != nil {
		return nil, expressionError(rec, errors.ErrInvalidParent, "parent", parentSrc, rec.Line, err)
	}

	fields["name"] = rec.Title
	fields["module"] = "guides"

	return []Unit{{
		Target: Target{
			Kind:   TargetGuide,
			Title:  rec.Title,
			Parent: parent,
		},
		Fields:    fields,
		Overrides: overrides,
		File:      rec.File,
		Line:      rec.Line,
	}}, nil
}

func (a *Analyzer) entity(rec parser.Record, fields Fields, overrides []string) ([]Unit, error) {
	units := make([]Unit, 0, len(rec.References))
	for i, ref := range rec.References {
		line := rec.Line
		if i < len(rec.ReferenceLines) {
			line = rec.ReferenceLines[i]
		}

		e, err := a.exprs.ParseExpression(ref)
		if err != nil {
			return nil, expressionError(rec, errors.ErrInvalidReference, fmt.Sprintf("reference %q", ref), ref, line, err)
		}

		unitFields := fields
		if i > 0 {
			unitFields = fields.Clone()
		}
		units = append(units, Unit{
			Target: Target{
				Kind:      TargetSymbol,
				Reference: ref,
				Expr:      e,
			},
			Fields:    unitFields,
			Overrides: append([]string(nil), overrides...),
			File:      rec.File,
			Line:      line,
		})
	}
	return units, nil
}

// expressionError builds an expression-phase error at a document line. The
// source window is taken over the expression source itself.
func expressionError(rec parser.Record, code, what, source string, line int, cause error) errors.CompilerError {
	loc := errors.SourceLocation{File: rec.File, Line: line, Column: 1}
	fragLoc := errors.SourceLocation{Line: 1, Column: 1}

	msg := fmt.Sprintf("%s: %s", errors.GetErrorMessage(code), what)
	var serr *expr.SyntaxError
	if stderrors.As(cause, &serr) {
		msg += ": " + serr.Error()
		fragLoc.Line = serr.Line
		fragLoc.Column = serr.Column
		fragLoc.Length = 1
	} else if cause != nil {
		msg += ": " + cause.Error()
	}

	err := errors.NewExpressionError(code, msg, loc)
	return err.WithContext(errors.ExtractSourceContext(fragLoc, source))
}
