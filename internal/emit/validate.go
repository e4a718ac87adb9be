package emit

import (
	"fmt"
	"math"
	"sort"

	"github.com/conduit-lang/docmeta/compiler/analyzer"
	"github.com/conduit-lang/docmeta/compiler/errors"
	"github.com/conduit-lang/docmeta/compiler/expr"
)

// Validate checks that a unit can be emitted: its target must be resolvable
// and every field value must be representable.
func Validate(unit analyzer.Unit) error {
	loc := errors.SourceLocation{File: unit.File, Line: unit.Line, Column: 1}

	switch unit.Target.Kind {
	case analyzer.TargetGuide:
		if unit.Target.Title == "" || unit.Target.Parent.IsZero() {
			return errors.NewCompilerError(errors.PhaseEmit, errors.ErrUnresolvedTarget,
				fmt.Sprintf("%s: guide %q has no parent", errors.GetErrorMessage(errors.ErrUnresolvedTarget), unit.Target.Title),
				loc, errors.Error)
		}
	default:
		if unit.Target.Expr.IsZero() {
			return errors.NewCompilerError(errors.PhaseEmit, errors.ErrUnresolvedTarget,
				fmt.Sprintf("%s: symbol %q was not parsed", errors.GetErrorMessage(errors.ErrUnresolvedTarget), unit.Target.Reference),
				loc, errors.Error)
		}
	}

	keys := make([]string, 0, len(unit.Fields))
	for k := range unit.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if path, bad, ok := checkValue(k, unit.Fields[k]); !ok {
			return errors.NewUnsupportedValueError(path, bad, loc)
		}
	}
	return nil
}

// checkValue returns the path and value of the first unsupported value
// under v.
func checkValue(path string, v any) (string, any, bool) {
	switch val := v.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return "", nil, true
	case float32:
		return checkFloat(path, float64(val))
	case float64:
		return checkFloat(path, val)
	case expr.Expr, expr.Lazy, expr.Function, []analyzer.Example:
		return "", nil, true
	case []any:
		for i, item := range val {
			if p, bad, ok := checkValue(fmt.Sprintf("%s[%d]", path, i), item); !ok {
				return p, bad, false
			}
		}
		return "", nil, true
	case map[string]any:
		return checkMap(path, val)
	case analyzer.Fields:
		return checkMap(path, val)
	default:
		return path, v, false
	}
}

// checkFloat rejects NaN and infinities, which have no JSON form
func checkFloat(path string, f float64) (string, any, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return path, f, false
	}
	return "", nil, true
}

func checkMap(path string, m map[string]any) (string, any, bool) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if p, bad, ok := checkValue(path+"."+k, m[k]); !ok {
			return p, bad, false
		}
	}
	return "", nil, true
}
