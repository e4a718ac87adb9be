// Package compiler runs the annotation pipeline over one document:
// classify lines, fold them into records, then analyze the records into
// metadata units. It never performs I/O.
package compiler

import (
	"github.com/conduit-lang/docmeta/compiler/analyzer"
	"github.com/conduit-lang/docmeta/compiler/errors"
	"github.com/conduit-lang/docmeta/compiler/expr"
	"github.com/conduit-lang/docmeta/compiler/lexer"
	"github.com/conduit-lang/docmeta/compiler/parser"
)

// Document is one Markdown source
type Document struct {
	Path   string
	Source string
}

// Options configures a Compiler
type Options struct {
	// FrontMatter enables a leading YAML front matter block whose fields
	// become defaults for every unit of the document.
	FrontMatter bool
	// GuidesRoot is the default guide parent expression
	GuidesRoot string
}

// Result is the output of compiling one document
type Result struct {
	Document Document
	Defaults analyzer.Fields
	Records  []parser.Record
	Units    []analyzer.Unit
}

// Compiler compiles documents. It is safe for concurrent use.
type Compiler struct {
	opts     Options
	analyzer *analyzer.Analyzer
}

// New creates a compiler backed by the tree-sitter expression parser
func New(opts Options) *Compiler {
	return NewWithParser(expr.NewTreeSitterParser(), opts)
}

// NewWithParser creates a compiler with a custom expression parser
func NewWithParser(exprs expr.Parser, opts Options) *Compiler {
	return &Compiler{
		opts:     opts,
		analyzer: analyzer.New(exprs, analyzer.Options{GuidesRoot: opts.GuidesRoot}),
	}
}

// Compile compiles a document. Any error fails the whole document.
func (c *Compiler) Compile(doc Document) (*Result, error) {
	result, a, err := c.prepare(doc)
	if err != nil {
		return nil, err
	}

	units, err := a.Analyze(result.Records)
	if err != nil {
		return nil, err
	}
	result.Units = units
	return result, nil
}

// Diagnose compiles a document and collects every error instead of stopping
// at the first. Records are analyzed in isolation, so a broken record does
// not hide problems in the ones after it. Structural errors still abort.
func (c *Compiler) Diagnose(doc Document) (*Result, *errors.ErrorRecovery) {
	recovery := errors.NewErrorRecovery()

	result, a, err := c.prepare(doc)
	if err != nil {
		recovery.RecoverError(err, doc.Path, errors.PhaseStructure, errors.ErrDocumentUnreadable)
		return nil, recovery
	}

	for _, rec := range result.Records {
		units, err := a.AnalyzeRecord(rec)
		if err != nil {
			recovery.RecoverError(err, doc.Path, errors.PhaseMetadata, errors.ErrMalformedMetadata)
			continue
		}
		result.Units = append(result.Units, units...)
	}
	return result, recovery
}

func (c *Compiler) prepare(doc Document) (*Result, *analyzer.Analyzer, error) {
	result := &Result{Document: doc}
	body := doc.Source
	offset := 0

	a := c.analyzer
	if c.opts.FrontMatter {
		fm, err := extractFrontMatter(doc)
		if err != nil {
			return nil, nil, err
		}
		if fm.found {
			body, offset = fm.body, fm.offset
			result.Defaults = fm.fields
			a = a.WithDefaults(fm.fields)
		}
	}

	lines := lexer.New(body, doc.Path).ScanLines()
	for i := range lines {
		lines[i].Number += offset
	}

	records, err := parser.NewWithSource(lines, doc.Source).Parse()
	if err != nil {
		return nil, nil, err
	}
	result.Records = records
	return result, a, nil
}
