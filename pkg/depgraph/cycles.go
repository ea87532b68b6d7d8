package depgraph

// ElementaryCycles enumerates every elementary cycle in the graph: each cycle
// is returned as the vertex sequence in traversal order, starting from its
// smallest vertex, with no vertex repeated. Self-loops are reported as
// single-vertex cycles.
//
// The enumeration is Johnson's algorithm: for each root vertex s in ascending
// order, cycles through s are searched in the subgraph induced on vertices
// >= s, restricted to the strongly connected component of s. Output order is
// deterministic for a given graph construction order.
//
// Worst-case output is exponential in the vertex count; the candidate graphs
// this package sees are small (one vertex per inlinable equation).
func (g *Graph) ElementaryCycles() [][]int {
	var cycles [][]int
	for s := range g.n {
		if g.HasEdge(s, s) {
			cycles = append(cycles, []int{s})
		}

		comp := g.componentOf(s)
		if len(comp) < 2 {
			continue
		}

		j := &johnson{
			g:         g,
			root:      s,
			comp:      comp,
			blocked:   make(map[int]bool, len(comp)),
			blockList: make(map[int][]int, len(comp)),
		}
		j.circuit(s)
		cycles = append(cycles, j.cycles...)
	}
	return cycles
}

// componentOf returns the strongly connected component containing s within
// the subgraph induced on vertices >= s, or nil when s is alone in it.
// The component is returned as a membership set.
func (g *Graph) componentOf(s int) map[int]struct{} {
	t := &tarjan{
		g:       g,
		min:     s,
		index:   make(map[int]int),
		lowlink: make(map[int]int),
		onStack: make(map[int]bool),
	}
	for v := s; v < g.n; v++ {
		if _, visited := t.index[v]; !visited {
			t.strongconnect(v)
		}
	}
	comp := t.compOf[s]
	if len(comp) < 2 {
		return nil
	}
	return comp
}

// tarjan computes strongly connected components of the subgraph induced on
// vertices >= min.
type tarjan struct {
	g       *Graph
	min     int
	counter int
	index   map[int]int
	lowlink map[int]int
	onStack map[int]bool
	stack   []int
	compOf  map[int]map[int]struct{}
}

func (t *tarjan) strongconnect(v int) {
	t.index[v] = t.counter
	t.lowlink[v] = t.counter
	t.counter++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range t.g.out[v] {
		if w < t.min {
			continue
		}
		if _, visited := t.index[w]; !visited {
			t.strongconnect(w)
			t.lowlink[v] = min(t.lowlink[v], t.lowlink[w])
		} else if t.onStack[w] {
			t.lowlink[v] = min(t.lowlink[v], t.index[w])
		}
	}

	if t.lowlink[v] == t.index[v] {
		comp := make(map[int]struct{})
		for {
			w := t.stack[len(t.stack)-1]
			t.stack = t.stack[:len(t.stack)-1]
			t.onStack[w] = false
			comp[w] = struct{}{}
			if w == v {
				break
			}
		}
		if t.compOf == nil {
			t.compOf = make(map[int]map[int]struct{})
		}
		for w := range comp {
			t.compOf[w] = comp
		}
	}
}

// johnson holds the state of one rooted circuit search.
type johnson struct {
	g         *Graph
	root      int
	comp      map[int]struct{}
	blocked   map[int]bool
	blockList map[int][]int
	stack     []int
	cycles    [][]int
}

func (j *johnson) circuit(v int) bool {
	found := false
	j.stack = append(j.stack, v)
	j.blocked[v] = true

	for _, w := range j.g.out[v] {
		if _, in := j.comp[w]; !in || w == v {
			continue // self-loops are reported separately
		}
		if w == j.root {
			cycle := make([]int, len(j.stack))
			copy(cycle, j.stack)
			j.cycles = append(j.cycles, cycle)
			found = true
		} else if !j.blocked[w] {
			if j.circuit(w) {
				found = true
			}
		}
	}

	if found {
		j.unblock(v)
	} else {
		for _, w := range j.g.out[v] {
			if _, in := j.comp[w]; !in || w == v {
				continue
			}
			if !contains(j.blockList[w], v) {
				j.blockList[w] = append(j.blockList[w], v)
			}
		}
	}

	j.stack = j.stack[:len(j.stack)-1]
	return found
}

func (j *johnson) unblock(v int) {
	j.blocked[v] = false
	pending := j.blockList[v]
	j.blockList[v] = nil
	for _, u := range pending {
		if j.blocked[u] {
			j.unblock(u)
		}
	}
}

func contains(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
