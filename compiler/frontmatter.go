package compiler

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"

	"github.com/conduit-lang/docmeta/compiler/analyzer"
	"github.com/conduit-lang/docmeta/compiler/errors"
)

var yamlFrontMatter = frontmatter.NewFormat("---", "---", yaml.Unmarshal)

type frontMatter struct {
	found  bool
	fields analyzer.Fields
	body   string
	// offset is the number of document lines consumed before body
	offset int
}

// extractFrontMatter splits a leading front matter block off the document.
// Blank lines between the block and the first directive are consumed too,
// since they would otherwise count as documentation before any annotation.
func extractFrontMatter(doc Document) (frontMatter, error) {
	if !strings.HasPrefix(doc.Source, "---") {
		return frontMatter{}, nil
	}

	var raw map[string]any
	rest, err := frontmatter.Parse(strings.NewReader(doc.Source), &raw, yamlFrontMatter)
	if err != nil {
		loc := errors.SourceLocation{File: doc.Path, Line: 1, Column: 1}
		msg := fmt.Sprintf("%s: %v", errors.GetErrorMessage(errors.ErrMalformedFrontMatter), err)
		return frontMatter{}, errors.EnrichError(errors.NewMetadataError(errors.ErrMalformedFrontMatter, msg, loc), doc.Source)
	}

	// No closing delimiter means the leading line was not a front matter
	// opener; the parser reports it as a stray separator.
	if len(rest) == len(doc.Source) {
		return frontMatter{}, nil
	}

	rest = bytes.TrimLeft(rest, " \t\r\n")
	body := string(rest)
	offset := strings.Count(doc.Source, "\n") - strings.Count(body, "\n")

	fields := make(analyzer.Fields, len(raw))
	for k, v := range raw {
		fields[k] = normalize(v)
	}

	return frontMatter{found: true, fields: fields, body: body, offset: offset}, nil
}

// normalize turns decoded YAML values into field values the emitter accepts
func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format(time.DateOnly)
		}
		return val.Format(time.RFC3339)
	default:
		return v
	}
}
