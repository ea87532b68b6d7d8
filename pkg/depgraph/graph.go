// Package depgraph provides the directed dependency graphs the reduction
// passes are built on.
//
// Two graphs appear in the pipeline, both represented by [Graph]:
//
//   - the equation graph: vertices are equation indices in block order, with
//     an edge u→v when equation u defines a symbol that appears free on
//     equation v's right-hand side ("u feeds v")
//   - the candidate symbol graph: vertices are inlining candidates, with an
//     edge a→b when candidate a's symbol appears free in candidate b's
//     right-hand side
//
// Vertices are dense integers so results are deterministic for a given input
// order: adjacency lists preserve insertion order and no map iteration leaks
// into any output.
package depgraph

// Graph is a directed graph over the dense vertex set {0..n-1}.
// The zero value is not usable; create instances with [New].
// Graph is not safe for concurrent mutation.
type Graph struct {
	n    int
	out  [][]int
	in   [][]int
	seen map[[2]int]struct{}
}

// New creates a graph with n vertices and no edges.
func New(n int) *Graph {
	return &Graph{
		n:    n,
		out:  make([][]int, n),
		in:   make([][]int, n),
		seen: make(map[[2]int]struct{}),
	}
}

// Len returns the number of vertices.
func (g *Graph) Len() int { return g.n }

// AddEdge inserts the directed edge u→v. Duplicate edges and out-of-range
// endpoints are ignored; self-loops are allowed (they matter for cycle
// detection on self-referential equations).
func (g *Graph) AddEdge(u, v int) {
	if u < 0 || u >= g.n || v < 0 || v >= g.n {
		return
	}
	if _, dup := g.seen[[2]int{u, v}]; dup {
		return
	}
	g.seen[[2]int{u, v}] = struct{}{}
	g.out[u] = append(g.out[u], v)
	g.in[v] = append(g.in[v], u)
}

// HasEdge reports whether the edge u→v exists.
func (g *Graph) HasEdge(u, v int) bool {
	_, ok := g.seen[[2]int{u, v}]
	return ok
}

// Succ returns the successors of u in insertion order.
// The returned slice is a read-only view.
func (g *Graph) Succ(u int) []int { return g.out[u] }

// Pred returns the predecessors of u in insertion order.
// The returned slice is a read-only view.
func (g *Graph) Pred(u int) []int { return g.in[u] }

// EdgeCount returns the number of distinct edges.
func (g *Graph) EdgeCount() int { return len(g.seen) }

// ReachableTo returns, for each vertex, whether a directed path (of length
// zero or more) leads from it to any of the target vertices. Targets are
// always reachable to themselves. The computation is a reverse breadth-first
// search from the targets.
func (g *Graph) ReachableTo(targets []int) []bool {
	reach := make([]bool, g.n)
	queue := make([]int, 0, len(targets))
	for _, t := range targets {
		if t >= 0 && t < g.n && !reach[t] {
			reach[t] = true
			queue = append(queue, t)
		}
	}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, u := range g.in[v] {
			if !reach[u] {
				reach[u] = true
				queue = append(queue, u)
			}
		}
	}
	return reach
}

// HasCycle reports whether the graph contains any directed cycle, including
// self-loops. Detection is depth-first search with white/gray/black coloring.
func (g *Graph) HasCycle() bool {
	const (
		white = iota
		gray
		black
	)

	color := make([]int, g.n)
	var found bool

	var dfs func(v int)
	dfs = func(v int) {
		color[v] = gray
		for _, w := range g.out[v] {
			switch color[w] {
			case white:
				dfs(w)
			case gray:
				found = true
			}
			if found {
				return
			}
		}
		color[v] = black
	}

	for v := 0; v < g.n && !found; v++ {
		if color[v] == white {
			dfs(v)
		}
	}
	return found
}
