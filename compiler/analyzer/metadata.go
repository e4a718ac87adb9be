package analyzer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/conduit-lang/docmeta/compiler/errors"
	"github.com/conduit-lang/docmeta/compiler/expr"
	"github.com/conduit-lang/docmeta/compiler/parser"
)

// SpecialPrefix marks override keys and lazy reference fields
const SpecialPrefix = "~"

var yamlLineRe = regexp.MustCompile(`line (\d+)`)

// metadata is the decoded metadata block of one record
type metadata struct {
	fields    Fields
	overrides []string
}

// metadataDecoder converts a YAML node tree into field values, resolving
// special fields along the way.
type metadataDecoder struct {
	record    parser.Record
	exprs     expr.Parser
	overrides []string
}

// parseMetadata decodes the record's metadata text. An empty block yields
// an empty mapping.
func (a *Analyzer) parseMetadata(rec parser.Record) (metadata, error) {
	if strings.TrimSpace(rec.Metadata) == "" {
		return metadata{fields: Fields{}}, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(rec.Metadata), &doc); err != nil {
		line := 1
		if m := yamlLineRe.FindStringSubmatch(err.Error()); m != nil {
			line, _ = strconv.Atoi(m[1])
		}
		msg := strings.TrimPrefix(err.Error(), "yaml: ")
		return metadata{}, metadataError(rec, errors.ErrMalformedMetadata,
			fmt.Sprintf("%s: %s", errors.GetErrorMessage(errors.ErrMalformedMetadata), msg), line)
	}

	if doc.Kind == 0 || len(doc.Content) == 0 {
		return metadata{fields: Fields{}}, nil
	}

	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return metadata{fields: Fields{}}, nil
	}
	if root.Kind != yaml.MappingNode {
		return metadata{}, metadataError(rec, errors.ErrMetadataNotMapping,
			errors.GetErrorMessage(errors.ErrMetadataNotMapping), root.Line)
	}

	d := &metadataDecoder{record: rec, exprs: a.exprs}
	fields, err := d.mapping(root, "")
	if err != nil {
		return metadata{}, err
	}
	return metadata{fields: Fields(fields), overrides: d.overrides}, nil
}

func (d *metadataDecoder) mapping(node *yaml.Node, path string) (map[string]any, error) {
	out := make(map[string]any, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]
		key := keyNode.Value

		if key == "<<" && keyNode.Tag == "!!merge" {
			if err := d.merge(out, valNode, path); err != nil {
				return nil, err
			}
			continue
		}

		override := strings.HasPrefix(key, SpecialPrefix)
		if override {
			key = strings.TrimPrefix(key, SpecialPrefix)
			if key == "" {
				return nil, metadataError(d.record, errors.ErrInvalidSpecialField,
					"special field needs a name after \"~\"", keyNode.Line)
			}
			d.overrides = append(d.overrides, joinPath(path, key))
		}

		val, err := d.value(valNode, joinPath(path, key))
		if err != nil {
			return nil, err
		}
		out[key] = val
	}
	return out, nil
}

func (d *metadataDecoder) merge(out map[string]any, node *yaml.Node, path string) error {
	if node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	sources := []*yaml.Node{node}
	if node.Kind == yaml.SequenceNode {
		sources = node.Content
	}
	for _, src := range sources {
		if src.Kind == yaml.AliasNode {
			src = src.Alias
		}
		if src.Kind != yaml.MappingNode {
			return metadataError(d.record, errors.ErrMalformedMetadata,
				"merge key expects a mapping", src.Line)
		}
		merged, err := d.mapping(src, path)
		if err != nil {
			return err
		}
		for k, v := range merged {
			if _, exists := out[k]; !exists {
				out[k] = v
			}
		}
	}
	return nil
}

func (d *metadataDecoder) value(node *yaml.Node, path string) (any, error) {
	switch node.Kind {
	case yaml.AliasNode:
		return d.value(node.Alias, path)

	case yaml.MappingNode:
		if lazy, ok, err := d.lazy(node); ok || err != nil {
			return lazy, err
		}
		return d.mapping(node, path)

	case yaml.SequenceNode:
		out := make([]any, 0, len(node.Content))
		for i, item := range node.Content {
			v, err := d.value(item, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil

	case yaml.ScalarNode:
		return d.scalar(node)

	default:
		return nil, metadataError(d.record, errors.ErrMalformedMetadata,
			fmt.Sprintf("unexpected YAML node for field %q", path), node.Line)
	}
}

// scalar decodes a scalar node. Timestamps stay strings so every scalar maps
// onto a value the emitter can represent.
func (d *metadataDecoder) scalar(node *yaml.Node) (any, error) {
	switch node.Tag {
	case "!!timestamp", "!!str", "!!binary":
		return node.Value, nil
	}

	var v any
	if err := node.Decode(&v); err != nil {
		return nil, metadataError(d.record, errors.ErrMalformedMetadata, err.Error(), node.Line)
	}
	return v, nil
}

// lazy recognizes a mapping with exactly one "~kind" key as a deferred
// reference.
func (d *metadataDecoder) lazy(node *yaml.Node) (expr.Lazy, bool, error) {
	if len(node.Content) != 2 {
		return expr.Lazy{}, false, nil
	}
	keyNode, valNode := node.Content[0], node.Content[1]
	if !strings.HasPrefix(keyNode.Value, SpecialPrefix) {
		return expr.Lazy{}, false, nil
	}

	kind := strings.TrimPrefix(keyNode.Value, SpecialPrefix)
	if kind == "" {
		return expr.Lazy{}, true, metadataError(d.record, errors.ErrInvalidSpecialField,
			"special field needs a name after \"~\"", keyNode.Line)
	}
	if valNode.Kind != yaml.ScalarNode || valNode.Tag == "!!null" || strings.TrimSpace(valNode.Value) == "" {
		return expr.Lazy{}, true, metadataError(d.record, errors.ErrInvalidSpecialField,
			fmt.Sprintf("special field %q must hold a reference expression", keyNode.Value), keyNode.Line)
	}

	e, err := d.exprs.ParseExpression(valNode.Value)
	if err != nil {
		line := documentLine(d.record, valNode.Line)
		return expr.Lazy{}, true, expressionError(d.record, errors.ErrInvalidLazyReference,
			fmt.Sprintf("lazy reference %q", keyNode.Value), valNode.Value, line, err)
	}
	return expr.Lazy{Kind: kind, Expr: e}, true, nil
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// documentLine maps a 1-indexed line of the metadata block onto the document
func documentLine(rec parser.Record, metadataLine int) int {
	if rec.MetadataLine == 0 {
		return rec.Line
	}
	if metadataLine < 1 {
		metadataLine = 1
	}
	return rec.MetadataLine + metadataLine - 1
}

// metadataError builds a metadata-phase error at a line of the metadata
// block, with a source window numbered in document lines.
func metadataError(rec parser.Record, code, message string, metadataLine int) errors.CompilerError {
	loc := errors.SourceLocation{
		File:   rec.File,
		Line:   documentLine(rec, metadataLine),
		Column: 1,
	}
	err := errors.NewMetadataError(code, message, loc)

	fragLoc := errors.SourceLocation{Line: metadataLine, Column: 1}
	if lines := strings.Split(rec.Metadata, "\n"); metadataLine >= 1 && metadataLine <= len(lines) {
		fragLoc.Length = len(lines[metadataLine-1])
	}
	ctx := errors.ExtractSourceContext(fragLoc, rec.Metadata)
	if len(ctx.SourceLines) > 0 && rec.MetadataLine > 0 {
		ctx.FirstLine += rec.MetadataLine - 1
	}
	return err.WithContext(ctx)
}
