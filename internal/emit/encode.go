package emit

import (
	"github.com/conduit-lang/docmeta/compiler/analyzer"
	"github.com/conduit-lang/docmeta/compiler/expr"
	"github.com/conduit-lang/docmeta/runtime/metadata"
)

// Encode converts a validated unit into a JSON-safe registry entry.
// Expressions, deferred references and functions become tagged objects.
func Encode(unit analyzer.Unit) metadata.Entry {
	e := metadata.Entry{
		Document:  unit.File,
		Line:      unit.Line,
		Fields:    make(map[string]any, len(unit.Fields)),
		Overrides: append([]string(nil), unit.Overrides...),
	}

	switch unit.Target.Kind {
	case analyzer.TargetGuide:
		e.Kind = metadata.KindGuide
		e.Target = unit.Target.Title
		e.Parent = unit.Target.Parent.Source
	default:
		e.Kind = metadata.KindSymbol
		e.Target = unit.Target.Expr.Source
	}

	for k, v := range unit.Fields {
		e.Fields[k] = EncodeValue(v)
	}
	return e
}

// EncodeValue converts one field value
func EncodeValue(v any) any {
	switch val := v.(type) {
	case expr.Expr:
		return map[string]any{metadata.ExprKey: val.Source}
	case expr.Lazy:
		return map[string]any{
			metadata.LazyKey:     val.Expr.Source,
			metadata.LazyKindKey: val.Kind,
		}
	case expr.Function:
		return encodeFunction(val)
	case []analyzer.Example:
		out := make([]any, len(val))
		for i, ex := range val {
			out[i] = map[string]any{
				"name":     ex.Name,
				"source":   ex.Source,
				"inferred": ex.Inferred,
				"code":     encodeFunction(ex.Code),
			}
		}
		return out
	case analyzer.Fields:
		return encodeMap(val)
	case map[string]any:
		return encodeMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = EncodeValue(item)
		}
		return out
	case float32:
		return float64(val)
	default:
		return v
	}
}

func encodeFunction(fn expr.Function) map[string]any {
	return map[string]any{
		metadata.FunctionKey: fn.Body,
		metadata.AsyncKey:    fn.Async,
	}
}

func encodeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, item := range m {
		out[k] = EncodeValue(item)
	}
	return out
}
