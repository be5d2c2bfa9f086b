package semanticrouter

// candidate is a scored route during top-k selection.
type candidate struct {
	index     int // position in the catalog
	score     float64
	reachable bool
}

// before reports whether c ranks ahead of o. Reachable routes come first,
// then higher scores, then earlier catalog positions.
func (c candidate) before(o candidate) bool {
	if c.reachable != o.reachable {
		return c.reachable
	}
	if c.reachable && c.score != o.score {
		return c.score > o.score
	}
	return c.index < o.index
}

// candidateHeap keeps the worst retained candidate at the root.
type candidateHeap []candidate

func (h candidateHeap) Len() int           { return len(h) }
func (h candidateHeap) Less(i, j int) bool { return h[j].before(h[i]) }
func (h candidateHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *candidateHeap) Push(x any) {
	*h = append(*h, x.(candidate))
}

func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
