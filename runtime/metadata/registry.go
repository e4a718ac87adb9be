package metadata

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry holds emitted entries for introspection queries. It is safe for
// concurrent use; returned entries are copies.
type Registry struct {
	mu sync.RWMutex

	entries        map[string]*Entry   // key -> entry
	guidesByParent map[string][]string // parent -> keys
	byDocument     map[string][]string // document -> keys

	// Query result cache, cleared on every write
	cache      map[string]interface{}
	cacheMutex sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		entries:        make(map[string]*Entry),
		guidesByParent: make(map[string][]string),
		byDocument:     make(map[string][]string),
		cache:          make(map[string]interface{}),
	}
}

// Global registry instance
var globalRegistry = NewRegistry()

// Default returns the process-wide registry
func Default() *Registry {
	return globalRegistry
}

// RegisterArtifact registers an artifact in the global registry.
func RegisterArtifact(data []byte) error {
	return globalRegistry.RegisterArtifact(data)
}

// Reset clears the global registry (used for testing).
func Reset() {
	globalRegistry.Reset()
}

// RegisterArtifact decodes a JSON artifact and registers its units
func (r *Registry) RegisterArtifact(data []byte) error {
	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return fmt.Errorf("failed to unmarshal artifact: %w", err)
	}
	for _, e := range artifact.Units {
		if e.Document == "" {
			e.Document = artifact.Source
		}
		r.Register(e)
	}
	return nil
}

// Register adds an entry, merging it into any entry already registered for
// the same target. It returns the resulting entry.
func (r *Registry) Register(e Entry) Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.clearCache()

	key := e.Key()
	incoming := e.Clone()

	existing, ok := r.entries[key]
	if !ok {
		r.entries[key] = &incoming
		r.index(key, &incoming)
		return incoming.Clone()
	}

	if existing.Document != incoming.Document {
		r.unindexDocument(key, existing.Document)
		r.byDocument[incoming.Document] = append(r.byDocument[incoming.Document], key)
	}

	if existing.Fields == nil {
		existing.Fields = make(map[string]any)
	}
	mergeFields(existing.Fields, incoming.Fields, "", overrideSet(incoming.Overrides))
	for _, o := range incoming.Overrides {
		if !existing.IsOverride(o) {
			existing.Overrides = append(existing.Overrides, o)
		}
	}
	existing.Document = incoming.Document
	existing.Line = incoming.Line

	return existing.Clone()
}

func (r *Registry) index(key string, e *Entry) {
	if e.Kind == KindGuide {
		r.guidesByParent[e.Parent] = append(r.guidesByParent[e.Parent], key)
	}
	r.byDocument[e.Document] = append(r.byDocument[e.Document], key)
}

func (r *Registry) unindexDocument(key, document string) {
	keys := r.byDocument[document]
	for i, k := range keys {
		if k == key {
			r.byDocument[document] = append(keys[:i:i], keys[i+1:]...)
			break
		}
	}
	if len(r.byDocument[document]) == 0 {
		delete(r.byDocument, document)
	}
}

// mergeFields merges src into dst. Mappings merge recursively unless their
// path is an override; every other value replaces the previous one.
func mergeFields(dst, src map[string]any, prefix string, overrides map[string]bool) {
	for k, v := range src {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}

		srcMap, srcIsMap := v.(map[string]any)
		dstMap, dstIsMap := dst[k].(map[string]any)
		if srcIsMap && dstIsMap && !overrides[path] && !isTagged(srcMap) && !isTagged(dstMap) {
			mergeFields(dstMap, srcMap, path, overrides)
			continue
		}
		dst[k] = v
	}
}

// isTagged reports whether m encodes an expression, deferred reference or
// function rather than a plain mapping.
func isTagged(m map[string]any) bool {
	for _, k := range []string{ExprKey, LazyKey, FunctionKey} {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}

func overrideSet(paths []string) map[string]bool {
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		set[p] = true
	}
	return set
}

// RemoveDocument drops every entry last written by document and returns the
// number removed.
func (r *Registry) RemoveDocument(document string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.clearCache()

	keys := r.byDocument[document]
	for _, key := range keys {
		e := r.entries[key]
		delete(r.entries, key)
		if e != nil && e.Kind == KindGuide {
			r.removeGuideKey(e.Parent, key)
		}
	}
	delete(r.byDocument, document)
	return len(keys)
}

func (r *Registry) removeGuideKey(parent, key string) {
	keys := r.guidesByParent[parent]
	for i, k := range keys {
		if k == key {
			r.guidesByParent[parent] = append(keys[:i:i], keys[i+1:]...)
			break
		}
	}
	if len(r.guidesByParent[parent]) == 0 {
		delete(r.guidesByParent, parent)
	}
}

// Symbol finds a symbol entry by reference.
func (r *Registry) Symbol(ref string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.entries[EntryKey(KindSymbol, "", ref)]; ok {
		// Return a copy to prevent external mutation
		c := e.Clone()
		return &c, nil
	}
	return nil, fmt.Errorf("symbol not found: %s", ref)
}

// Guide finds a guide entry by parent and title.
func (r *Registry) Guide(parent, title string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.entries[EntryKey(KindGuide, parent, title)]; ok {
		c := e.Clone()
		return &c, nil
	}
	return nil, fmt.Errorf("guide not found: %s/%s", parent, title)
}

// Symbols returns all symbol entries sorted by reference
func (r *Registry) Symbols() []Entry {
	return r.Query(Filter{Kind: KindSymbol})
}

// Guides returns all guide entries sorted by parent and title
func (r *Registry) Guides() []Entry {
	return r.Query(Filter{Kind: KindGuide})
}

// GuidesByParent returns the guides registered under parent.
// Uses the parent index for lookup.
func (r *Registry) GuidesByParent(parent string) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys, ok := r.guidesByParent[parent]
	if !ok {
		return []Entry{}
	}

	result := make([]Entry, 0, len(keys))
	for _, k := range keys {
		result = append(result, r.entries[k].Clone())
	}
	sortEntries(result)
	return result
}

// Documents returns the documents that currently own entries
func (r *Registry) Documents() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	docs := make([]string, 0, len(r.byDocument))
	for d := range r.byDocument {
		docs = append(docs, d)
	}
	sort.Strings(docs)
	return docs
}

// Len returns the number of registered entries
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Reset clears the registry.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]*Entry)
	r.guidesByParent = make(map[string][]string)
	r.byDocument = make(map[string][]string)
	r.clearCache()
}

// getCached retrieves a value from the cache
func (r *Registry) getCached(key string) interface{} {
	r.cacheMutex.RLock()
	defer r.cacheMutex.RUnlock()
	return r.cache[key]
}

// setCached stores a value in the cache
func (r *Registry) setCached(key string, value interface{}) {
	r.cacheMutex.Lock()
	defer r.cacheMutex.Unlock()
	r.cache[key] = value
}

func (r *Registry) clearCache() {
	r.cacheMutex.Lock()
	defer r.cacheMutex.Unlock()
	r.cache = make(map[string]interface{})
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key() < entries[j].Key()
	})
}

// matchPattern matches a string against a pattern with wildcards
func matchPattern(s, pattern string) bool {
	// Exact match
	if pattern == s {
		return true
	}

	// Wildcard match
	if pattern == "*" {
		return true
	}

	// Prefix match (pattern ends with *)
	if strings.HasSuffix(pattern, "*") && strings.Count(pattern, "*") == 1 {
		prefix := strings.TrimSuffix(pattern, "*")
		return strings.HasPrefix(s, prefix)
	}

	// Suffix match (pattern starts with *)
	if strings.HasPrefix(pattern, "*") && strings.Count(pattern, "*") == 1 {
		suffix := strings.TrimPrefix(pattern, "*")
		return strings.HasSuffix(s, suffix)
	}

	// Contains match (pattern has * in the middle)
	if strings.Contains(pattern, "*") {
		parts := strings.Split(pattern, "*")
		if len(parts) == 2 {
			return strings.HasPrefix(s, parts[0]) && strings.HasSuffix(s, parts[1])
		}
	}

	return false
}
