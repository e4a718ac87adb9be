package metadata

import "time"

// Keys of the tagged objects that encode non-literal field values
const (
	ExprKey     = "$expr"
	LazyKey     = "$lazy"
	LazyKindKey = "kind"
	FunctionKey = "$function"
	AsyncKey    = "async"
)

// Entry kinds
const (
	KindSymbol = "symbol"
	KindGuide  = "guide"
)

// Entry is one emitted unit.
type Entry struct {
	Kind      string         `json:"kind"`             // "symbol" or "guide"
	Target    string         `json:"target"`           // Reference source or guide title
	Parent    string         `json:"parent,omitempty"` // Guide parent expression
	Document  string         `json:"document"`         // Source document path
	Line      int            `json:"line"`             // Directive line in the document
	Fields    map[string]any `json:"fields"`           // Encoded field values
	Overrides []string       `json:"overrides,omitempty"`
}

// Key returns the registry key of the entry
func (e Entry) Key() string {
	return EntryKey(e.Kind, e.Parent, e.Target)
}

// EntryKey builds the registry key for a target
func EntryKey(kind, parent, target string) string {
	if kind == KindGuide {
		return KindGuide + ":" + parent + "/" + target
	}
	return KindSymbol + ":" + target
}

// Stability returns the stability field, or "" when unset
func (e Entry) Stability() string {
	s, _ := e.Fields["stability"].(string)
	return s
}

// IsOverride reports whether path was marked as an override
func (e Entry) IsOverride(path string) bool {
	for _, o := range e.Overrides {
		if o == path {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the entry
func (e Entry) Clone() Entry {
	out := e
	out.Fields = cloneMap(e.Fields)
	out.Overrides = append([]string(nil), e.Overrides...)
	return out
}

// Artifact is the JSON document written for one compiled source
type Artifact struct {
	Version    string    `json:"version"`               // Schema version for evolution
	Generated  time.Time `json:"generated"`             // Timestamp of generation
	SourceHash string    `json:"source_hash,omitempty"` // Hash of the source for cache invalidation
	Source     string    `json:"source"`                // Source document path
	Units      []Entry   `json:"units"`
}

// SchemaVersion is the current artifact schema version
const SchemaVersion = "1"

// DependencyGraph captures deferred references between entries.
type DependencyGraph struct {
	Nodes map[string]*DependencyNode `json:"nodes"` // All nodes indexed by target
	Edges []DependencyEdge           `json:"edges"` // All dependency edges
}

// DependencyNode represents a single node in the dependency graph.
type DependencyNode struct {
	ID       string `json:"id"`       // Target reference or guide key
	Type     string `json:"type"`     // Entry kind, or "external" for unknown targets
	Document string `json:"document"` // Source document, empty for external nodes
}

// DependencyEdge represents a dependency between two nodes.
type DependencyEdge struct {
	From         string `json:"from"`         // Source node ID
	To           string `json:"to"`           // Target node ID
	Relationship string `json:"relationship"` // Lazy kind (belongsTo, ...) or "parent"
	Field        string `json:"field"`        // Field path holding the reference
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
