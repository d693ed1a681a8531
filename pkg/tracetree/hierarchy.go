package tracetree

// ForestStats counts repairs made while linking spans.
type ForestStats struct {
	OrphansPromoted int
	CyclesBroken    int
}

// BuildForest links spans into trees by parent id. spans must be in
// insertion order with unique ids. Each returned node is a copy, so the
// input is left as it was.
//
// A span whose parent id is empty or unknown is a root. Children keep
// insertion order. Parent chains that loop are cut at the first repeated
// span, which becomes a root.
func BuildForest(spans []*Span) ([]*Span, ForestStats) {
	var stats ForestStats

	nodes := make([]*Span, len(spans))
	byID := make(map[string]int, len(spans))
	for i, s := range spans {
		c := *s
		c.Children = nil
		c.index = i
		nodes[i] = &c
		byID[c.ID] = i
	}

	parent := make([]int, len(nodes))
	for i, n := range nodes {
		parent[i] = -1
		if n.ParentID == "" {
			continue
		}
		p, ok := byID[n.ParentID]
		if !ok {
			stats.OrphansPromoted++
			continue
		}
		parent[i] = p
		nodes[p].Children = append(nodes[p].Children, n)
	}

	reached := make([]bool, len(nodes))
	for i := range nodes {
		if parent[i] == -1 {
			markReached(nodes, byID, reached, i)
		}
	}

	for i := range nodes {
		if reached[i] {
			continue
		}
		// Every ancestor of an unreached span is unreached too, so the
		// chain cannot end at a root and must repeat.
		seen := make(map[int]bool)
		j := i
		for !seen[j] {
			seen[j] = true
			j = parent[j]
		}
		detach(nodes[parent[j]], nodes[j])
		parent[j] = -1
		stats.CyclesBroken++
		markReached(nodes, byID, reached, j)
	}

	var roots []*Span
	for i, n := range nodes {
		if parent[i] == -1 {
			roots = append(roots, n)
		}
	}
	return roots, stats
}

func markReached(nodes []*Span, byID map[string]int, reached []bool, from int) {
	stack := []int{from}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reached[i] {
			continue
		}
		reached[i] = true
		for _, c := range nodes[i].Children {
			stack = append(stack, byID[c.ID])
		}
	}
}

func detach(parent, child *Span) {
	kept := parent.Children[:0]
	for _, c := range parent.Children {
		if c != child {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		kept = nil
	}
	parent.Children = kept
}
