package analyzer

import (
	"regexp"
	"strings"

	"github.com/conduit-lang/docmeta/compiler/errors"
	"github.com/conduit-lang/docmeta/compiler/examples"
	"github.com/conduit-lang/docmeta/compiler/expr"
	"github.com/conduit-lang/docmeta/compiler/parser"
)

var (
	markerLineRe   = regexp.MustCompile(`^[ \t]*::[ \t]*$`)
	trailingMarkRe = regexp.MustCompile(`([^:])::[ \t]*$`)
	awaitRe        = regexp.MustCompile(`\bawait\b`)
)

// infer applies deprecation, example mining and the documentation rewrite,
// in that order.
func (a *Analyzer) infer(rec parser.Record, fields Fields) error {
	if truthy(fields["deprecated"]) {
		fields["stability"] = "deprecated"
	}

	doc := fields.Documentation()
	if doc == "" {
		return nil
	}

	mined, err := a.mineExamples(rec, doc)
	if err != nil {
		return err
	}
	if len(mined) > 0 {
		fields["examples"] = mined
	}

	fields["documentation"] = RewriteDocumentation(doc)
	return nil
}

func (a *Analyzer) mineExamples(rec parser.Record, doc string) ([]Example, error) {
	candidates := examples.Mine(doc)
	if len(candidates) == 0 {
		return nil, nil
	}

	out := make([]Example, 0, len(candidates))
	for _, c := range candidates {
		name := exampleName(c.Heading)
		fn, err := CompileExample(a.exprs, c.Source)
		if err != nil {
			line := rec.DocumentationLine
			if line == 0 {
				line = rec.Line
			}
			what := "example"
			if name != "" {
				what = "example \"" + name + "\""
			}
			return nil, expressionError(rec, errors.ErrInvalidExample, what, c.Source, line, err)
		}
		out = append(out, Example{
			Name:     name,
			Source:   c.Source,
			Code:     fn,
			Inferred: true,
		})
	}
	return out, nil
}

// CompileExample parses an example source into a zero-argument function.
// Sources using await are wrapped in an async arrow that is invoked and
// returned, so the caller always gets a function returning a value or a
// pending value.
func CompileExample(p expr.Parser, source string) (expr.Function, error) {
	if !awaitRe.MatchString(source) {
		return p.ParseStatements(source)
	}

	body := "return (async () => {\n" + source + "\n})();"
	fn, err := p.ParseStatements(body)
	if err != nil {
		if serr, ok := err.(*expr.SyntaxError); ok {
			shifted := *serr
			shifted.Source = source
			shifted.Line = max(1, serr.Line-1)
			return expr.Function{}, &shifted
		}
		return expr.Function{}, err
	}
	fn.Async = true
	return fn, nil
}

// RewriteDocumentation drops lines that hold only the example marker and
// turns a trailing "::" into ":". Applying it twice changes nothing.
func RewriteDocumentation(doc string) string {
	lines := strings.Split(doc, "\n")
	out := lines[:0]
	for _, line := range lines {
		if markerLineRe.MatchString(line) {
			continue
		}
		out = append(out, trailingMarkRe.ReplaceAllString(line, "$1:"))
	}
	return strings.Join(out, "\n")
}

func exampleName(heading string) string {
	name := strings.TrimSpace(heading)
	return strings.TrimSpace(strings.TrimSuffix(name, examples.Marker))
}

// truthy follows the usual scripting truthiness: nil, false, zero and the
// empty string are false, everything else is true.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case int:
		return val != 0
	case int64:
		return val != 0
	case uint64:
		return val != 0
	case float64:
		return val != 0
	default:
		return true
	}
}
