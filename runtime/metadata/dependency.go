package metadata

import (
	"fmt"
	"sort"
)

// DependencyOptions configures dependency graph queries
type DependencyOptions struct {
	Depth   int      // Maximum traversal depth (0 = unlimited)
	Reverse bool     // Reverse traversal (find what depends on this)
	Types   []string // Filter by edge types (e.g., ["belongsTo", "parent"])
}

// BuildDependencyGraph constructs the graph of deferred references between
// entries. Symbols are identified by their reference, guides by their key.
// A guide also depends on its parent.
func BuildDependencyGraph(entries []Entry) *DependencyGraph {
	graph := &DependencyGraph{
		Nodes: make(map[string]*DependencyNode),
		Edges: make([]DependencyEdge, 0),
	}

	for _, e := range entries {
		id := nodeID(e)
		graph.Nodes[id] = &DependencyNode{ID: id, Type: e.Kind, Document: e.Document}
	}

	for _, e := range entries {
		from := nodeID(e)
		if e.Kind == KindGuide && e.Parent != "" {
			graph.addEdge(from, e.Parent, "parent", "")
		}
		collectLazy(e.Fields, "", func(field, target, kind string) {
			graph.addEdge(from, target, kind, field)
		})
	}

	sort.Slice(graph.Edges, func(i, j int) bool {
		a, b := graph.Edges[i], graph.Edges[j]
		if a.From != b.From {
			return a.From < b.From
		}
		if a.Field != b.Field {
			return a.Field < b.Field
		}
		return a.To < b.To
	})
	return graph
}

func (g *DependencyGraph) addEdge(from, to, relationship, field string) {
	g.Edges = append(g.Edges, DependencyEdge{From: from, To: to, Relationship: relationship, Field: field})

	// Ensure target node exists
	if _, exists := g.Nodes[to]; !exists {
		g.Nodes[to] = &DependencyNode{ID: to, Type: "external"}
	}
}

func nodeID(e Entry) string {
	if e.Kind == KindGuide {
		return e.Key()
	}
	return e.Target
}

// collectLazy walks encoded fields and reports every deferred reference
func collectLazy(v any, path string, visit func(field, target, kind string)) {
	switch val := v.(type) {
	case map[string]any:
		if target, ok := val[LazyKey].(string); ok {
			kind, _ := val[LazyKindKey].(string)
			visit(path, target, kind)
			return
		}
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			child := k
			if path != "" {
				child = path + "." + k
			}
			collectLazy(val[k], child, visit)
		}
	case []any:
		for i, item := range val {
			collectLazy(item, fmt.Sprintf("%s[%d]", path, i), visit)
		}
	}
}

// Dependencies finds the deferred references reachable from a symbol
func (r *Registry) Dependencies(ref string, opts DependencyOptions) (*DependencyGraph, error) {
	if _, err := r.Symbol(ref); err != nil {
		return nil, err
	}

	// Check cache first
	cacheKey := fmt.Sprintf("deps:%s:%d:%v:%v", ref, opts.Depth, opts.Reverse, opts.Types)
	if cached := r.getCached(cacheKey); cached != nil {
		return cached.(*DependencyGraph), nil
	}

	fullGraph := BuildDependencyGraph(r.Query(Filter{}))
	result := extractSubgraph(fullGraph, ref, opts)

	r.setCached(cacheKey, result)
	return result, nil
}

// extractSubgraph extracts a subgraph using BFS traversal
func extractSubgraph(fullGraph *DependencyGraph, startNode string, opts DependencyOptions) *DependencyGraph {
	result := &DependencyGraph{
		Nodes: make(map[string]*DependencyNode),
		Edges: make([]DependencyEdge, 0),
	}

	visited := make(map[string]bool)
	queue := []depthNode{{id: startNode, depth: 0}}

	// Always add the start node
	if node, exists := fullGraph.Nodes[startNode]; exists {
		result.Nodes[startNode] = node
	}
	visited[startNode] = true

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		var edges []DependencyEdge
		if opts.Reverse {
			edges = findIncomingEdges(fullGraph, current.id)
		} else {
			edges = findOutgoingEdges(fullGraph, current.id)
		}

		if len(opts.Types) > 0 {
			edges = filterEdgesByType(edges, opts.Types)
		}

		for _, edge := range edges {
			result.Edges = append(result.Edges, edge)

			nextNode := edge.To
			if opts.Reverse {
				nextNode = edge.From
			}

			if !visited[nextNode] {
				visited[nextNode] = true

				if node, exists := fullGraph.Nodes[nextNode]; exists {
					result.Nodes[nextNode] = node
				}

				// Check depth limit for next level before queuing
				if opts.Depth == 0 || current.depth+1 < opts.Depth {
					queue = append(queue, depthNode{id: nextNode, depth: current.depth + 1})
				}
			}
		}
	}

	return result
}

// depthNode tracks a node and its depth during traversal
type depthNode struct {
	id    string
	depth int
}

// findOutgoingEdges finds all edges from a node
func findOutgoingEdges(graph *DependencyGraph, nodeID string) []DependencyEdge {
	var result []DependencyEdge
	for _, edge := range graph.Edges {
		if edge.From == nodeID {
			result = append(result, edge)
		}
	}
	return result
}

// findIncomingEdges finds all edges to a node
func findIncomingEdges(graph *DependencyGraph, nodeID string) []DependencyEdge {
	var result []DependencyEdge
	for _, edge := range graph.Edges {
		if edge.To == nodeID {
			result = append(result, edge)
		}
	}
	return result
}

// filterEdgesByType filters edges by relationship type
func filterEdgesByType(edges []DependencyEdge, types []string) []DependencyEdge {
	typeSet := make(map[string]bool)
	for _, t := range types {
		typeSet[t] = true
	}

	var result []DependencyEdge
	for _, edge := range edges {
		if typeSet[edge.Relationship] {
			result = append(result, edge)
		}
	}
	return result
}

// DetectCycles detects circular references in the graph
func DetectCycles(graph *DependencyGraph) [][]string {
	var cycles [][]string
	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	path := make([]string, 0)

	ids := make([]string, 0, len(graph.Nodes))
	for id := range graph.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, nodeID := range ids {
		if !visited[nodeID] {
			findCycles(graph, nodeID, visited, recStack, path, &cycles)
		}
	}

	return cycles
}

// findCycles performs DFS to find cycles
func findCycles(graph *DependencyGraph, nodeID string, visited, recStack map[string]bool, path []string, cycles *[][]string) {
	visited[nodeID] = true
	recStack[nodeID] = true
	path = append(path, nodeID)

	for _, edge := range graph.Edges {
		if edge.From != nodeID {
			continue
		}

		nextNode := edge.To

		// If node is in recursion stack, we found a cycle
		if recStack[nextNode] {
			cycleStart := -1
			for i, n := range path {
				if n == nextNode {
					cycleStart = i
					break
				}
			}
			if cycleStart >= 0 {
				cycle := make([]string, len(path)-cycleStart)
				copy(cycle, path[cycleStart:])
				cycle = append(cycle, nextNode) // Close the cycle
				*cycles = append(*cycles, cycle)
			}
		} else if !visited[nextNode] {
			findCycles(graph, nextNode, visited, recStack, path, cycles)
		}
	}

	recStack[nodeID] = false
}
