package metadata

import "fmt"

// Filter provides optional filters for entry queries.
// All fields are optional - empty string means no filtering on that field.
//
// Example usage:
//
//	// All deprecated symbols under Array
//	entries := reg.Query(metadata.Filter{
//		Kind:      metadata.KindSymbol,
//		Pattern:   "Array.*",
//		Stability: "deprecated",
//	})
type Filter struct {
	Kind      string // Optional: "symbol" or "guide"
	Pattern   string // Optional: target pattern, "*" matches any characters
	Stability string // Optional: value of the stability field
	Document  string // Optional: source document path
	Parent    string // Optional: guide parent expression
}

func (f Filter) cacheKey() string {
	return fmt.Sprintf("query:%s|%s|%s|%s|%s", f.Kind, f.Pattern, f.Stability, f.Document, f.Parent)
}

func (f Filter) matches(e *Entry) bool {
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if f.Pattern != "" && !matchPattern(e.Target, f.Pattern) {
		return false
	}
	if f.Stability != "" && e.Stability() != f.Stability {
		return false
	}
	if f.Document != "" && e.Document != f.Document {
		return false
	}
	if f.Parent != "" && e.Parent != f.Parent {
		return false
	}
	return true
}

// Query returns the entries matching filter, sorted by key. Results are
// cached until the next write.
func (r *Registry) Query(filter Filter) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Check cache first
	cacheKey := filter.cacheKey()
	if cached := r.getCached(cacheKey); cached != nil {
		return cloneEntries(cached.([]Entry))
	}

	result := make([]Entry, 0)
	for _, e := range r.entries {
		if filter.matches(e) {
			result = append(result, e.Clone())
		}
	}
	sortEntries(result)

	// Cache result
	r.setCached(cacheKey, result)
	return cloneEntries(result)
}

// Stats summarizes the registry contents
type Stats struct {
	Symbols    int `json:"symbols"`
	Guides     int `json:"guides"`
	Documents  int `json:"documents"`
	Deprecated int `json:"deprecated"`
}

// Stats returns counts over the registered entries
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Stats{Documents: len(r.byDocument)}
	for _, e := range r.entries {
		switch e.Kind {
		case KindGuide:
			s.Guides++
		default:
			s.Symbols++
		}
		if e.Stability() == "deprecated" {
			s.Deprecated++
		}
	}
	return s
}

func cloneEntries(in []Entry) []Entry {
	out := make([]Entry, len(in))
	for i, e := range in {
		out[i] = e.Clone()
	}
	return out
}
