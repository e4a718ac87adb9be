package analyzer

import (
	"github.com/conduit-lang/docmeta/compiler/expr"
)

// TargetKind distinguishes symbol bindings from guide bindings
type TargetKind int

const (
	TargetSymbol TargetKind = iota
	TargetGuide
)

// String returns the string representation of the target kind
func (k TargetKind) String() string {
	if k == TargetGuide {
		return "guide"
	}
	return "symbol"
}

// Target is what a unit is bound to. Symbol targets use Reference and Expr;
// guide targets use Title and Parent.
type Target struct {
	Kind      TargetKind
	Reference string
	Expr      expr.Expr
	Title     string
	Parent    expr.Expr
}

// Key returns a stable identifier for the target
func (t Target) Key() string {
	if t.Kind == TargetGuide {
		return t.Parent.Source + "/" + t.Title
	}
	return t.Reference
}

// Fields is the resolved metadata mapping of a unit
type Fields map[string]any

// Documentation returns the documentation field, or "" when absent
func (f Fields) Documentation() string {
	s, _ := f["documentation"].(string)
	return s
}

// Examples returns the examples field when it holds mined examples
func (f Fields) Examples() []Example {
	ex, _ := f["examples"].([]Example)
	return ex
}

// Clone returns a deep copy of f
func (f Fields) Clone() Fields {
	if f == nil {
		return Fields{}
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case Fields:
		return val.Clone()
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []Example:
		out := make([]Example, len(val))
		copy(out, val)
		return out
	default:
		return v
	}
}

// Example is a runnable example attached to a unit
type Example struct {
	Name     string
	Source   string
	Code     expr.Function
	Inferred bool
}

// Unit is one fully analyzed metadata record, ready for emission
type Unit struct {
	Target    Target
	Fields    Fields
	Overrides []string
	File      string
	Line      int
}
