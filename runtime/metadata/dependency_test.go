package metadata

import (
	"testing"
)

func lazy(target, kind string) map[string]any {
	return map[string]any{LazyKey: target, LazyKindKey: kind}
}

func newDependencyRegistry() *Registry {
	r := NewRegistry()
	r.Register(symbol("Comment", "c.md", map[string]any{"owner": lazy("Post", "belongsTo")}))
	r.Register(symbol("Post", "p.md", map[string]any{
		"owner":   lazy("User", "belongsTo"),
		"related": []any{lazy("Tag", "hasMany")},
	}))
	r.Register(symbol("User", "u.md", nil))
	r.Register(Entry{Kind: KindGuide, Target: "Posting", Parent: "guides", Document: "g.md"})
	return r
}

func TestBuildDependencyGraph(t *testing.T) {
	r := newDependencyRegistry()
	graph := BuildDependencyGraph(r.Query(Filter{}))

	if len(graph.Edges) != 4 {
		t.Fatalf("Expected 4 edges, got %d: %+v", len(graph.Edges), graph.Edges)
	}
	if graph.Nodes["Tag"] == nil || graph.Nodes["Tag"].Type != "external" {
		t.Errorf("Expected unknown target to become an external node, got %+v", graph.Nodes["Tag"])
	}
	if graph.Nodes["guides"] == nil {
		t.Error("Expected guide parent node")
	}

	var found bool
	for _, e := range graph.Edges {
		if e.From == "Post" && e.To == "Tag" {
			found = true
			if e.Field != "related[0]" || e.Relationship != "hasMany" {
				t.Errorf("Unexpected edge %+v", e)
			}
		}
	}
	if !found {
		t.Error("Expected an edge from Post to Tag")
	}
}

func TestRegistry_Dependencies(t *testing.T) {
	r := newDependencyRegistry()

	graph, err := r.Dependencies("Comment", DependencyOptions{})
	if err != nil {
		t.Fatalf("Dependencies failed: %v", err)
	}
	for _, id := range []string{"Comment", "Post", "User", "Tag"} {
		if graph.Nodes[id] == nil {
			t.Errorf("Expected node %s in transitive graph", id)
		}
	}

	graph, _ = r.Dependencies("Comment", DependencyOptions{Depth: 1})
	if len(graph.Nodes) != 2 {
		t.Errorf("Expected depth 1 to stop at Post, got %d nodes", len(graph.Nodes))
	}

	graph, _ = r.Dependencies("Post", DependencyOptions{Types: []string{"hasMany"}})
	if len(graph.Edges) != 1 || graph.Edges[0].To != "Tag" {
		t.Errorf("Expected only the hasMany edge, got %+v", graph.Edges)
	}
}

func TestRegistry_ReverseDependencies(t *testing.T) {
	r := newDependencyRegistry()

	graph, err := r.Dependencies("User", DependencyOptions{Reverse: true})
	if err != nil {
		t.Fatalf("Dependencies failed: %v", err)
	}
	if graph.Nodes["Post"] == nil || graph.Nodes["Comment"] == nil {
		t.Errorf("Expected Post and Comment to depend on User, got %v", graph.Nodes)
	}
}

func TestRegistry_DependenciesUnknownSymbol(t *testing.T) {
	if _, err := NewRegistry().Dependencies("nope", DependencyOptions{}); err == nil {
		t.Error("Expected error for unknown symbol")
	}
}

func TestDetectCycles(t *testing.T) {
	r := NewRegistry()
	r.Register(symbol("A", "a.md", map[string]any{"next": lazy("B", "uses")}))
	r.Register(symbol("B", "b.md", map[string]any{"next": lazy("A", "uses")}))
	r.Register(symbol("C", "c.md", nil))

	cycles := DetectCycles(BuildDependencyGraph(r.Query(Filter{})))
	if len(cycles) != 1 {
		t.Fatalf("Expected 1 cycle, got %v", cycles)
	}
	if len(cycles[0]) != 3 || cycles[0][0] != cycles[0][2] {
		t.Errorf("Expected a closed A-B cycle, got %v", cycles[0])
	}
}
