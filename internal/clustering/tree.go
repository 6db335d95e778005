package clustering

import (
	"math"
	"sort"
)

// maxLambda stands in for 1/0 when two points coincide.
const maxLambda = 1e12

func lambdaOf(distance float64) float64 {
	if distance <= 0 {
		return maxLambda
	}
	return math.Min(1/distance, maxLambda)
}

// condensedRow records a point or child cluster leaving its parent cluster
// at density level lambda. Cluster ids start at n (the root).
type condensedRow struct {
	parent int
	child  int
	lambda float64
	size   int
}

type condensedTree struct {
	rows     []condensedRow
	n        int
	numNodes int
}

func nodeSize(h []merge, n, node int) int {
	if node < n {
		return 1
	}
	return h[node-n].size
}

// bfs lists the hierarchy below node breadth-first, left before right.
func bfs(h []merge, n, node int) []int {
	order := []int{node}
	for i := 0; i < len(order); i++ {
		if cur := order[i]; cur >= n {
			m := h[cur-n]
			order = append(order, m.left, m.right)
		}
	}
	return order
}

// condense collapses the single-linkage hierarchy into clusters of at least
// minSize points. Cluster labels are handed out top-down, so a child always
// has a larger label than its parent.
func condense(h []merge, n, minSize int) *condensedTree {
	root := 2*n - 2
	relabel := make([]int, 2*n-1)
	ignore := make([]bool, 2*n-1)
	relabel[root] = n
	nextLabel := n + 1

	t := &condensedTree{n: n}
	fallOut := func(parent, sub int, lambda float64) {
		for _, node := range bfs(h, n, sub) {
			ignore[node] = true
			if node < n {
				t.rows = append(t.rows, condensedRow{parent: parent, child: node, lambda: lambda, size: 1})
			}
		}
	}

	for _, node := range bfs(h, n, root) {
		if ignore[node] || node < n {
			continue
		}
		m := h[node-n]
		lambda := lambdaOf(m.distance)
		parent := relabel[node]
		leftSize, rightSize := nodeSize(h, n, m.left), nodeSize(h, n, m.right)

		switch {
		case leftSize >= minSize && rightSize >= minSize:
			relabel[m.left] = nextLabel
			nextLabel++
			t.rows = append(t.rows, condensedRow{parent: parent, child: relabel[m.left], lambda: lambda, size: leftSize})
			relabel[m.right] = nextLabel
			nextLabel++
			t.rows = append(t.rows, condensedRow{parent: parent, child: relabel[m.right], lambda: lambda, size: rightSize})
		case leftSize < minSize && rightSize < minSize:
			fallOut(parent, m.left, lambda)
			fallOut(parent, m.right, lambda)
		case leftSize < minSize:
			relabel[m.right] = parent
			fallOut(parent, m.left, lambda)
		default:
			relabel[m.left] = parent
			fallOut(parent, m.right, lambda)
		}
	}

	t.numNodes = nextLabel
	return t
}

type selection struct {
	// labels holds the final cluster label of every point, or Noise.
	labels []int
	// thresholds holds, per label, the lowest density at which a point
	// still counts as part of that cluster.
	thresholds []float64
}

// selectClusters picks the flat clustering with the excess-of-mass rule.
// The root is never selected unless no other cluster exists, in which case
// a single dense group is kept only when it stands out by at least gap.
func (t *condensedTree) selectClusters(minSize int, gap float64) selection {
	root := t.n
	births := make([]float64, t.numNodes)
	stability := make([]float64, t.numNodes)
	parentOf := make([]int, t.numNodes)
	children := make([][]int, t.numNodes)
	pointParent := make([]int, t.n)
	pointLambda := make([]float64, t.n)

	for _, r := range t.rows {
		if r.child >= t.n {
			births[r.child] = r.lambda
			parentOf[r.child] = r.parent
			children[r.parent] = append(children[r.parent], r.child)
		} else {
			pointParent[r.child] = r.parent
			pointLambda[r.child] = r.lambda
		}
	}
	for _, r := range t.rows {
		stability[r.parent] += (r.lambda - births[r.parent]) * float64(r.size)
	}

	selected := make([]bool, t.numNodes)
	for c := root + 1; c < t.numNodes; c++ {
		selected[c] = true
	}
	for c := t.numNodes - 1; c > root; c-- {
		childSum := 0.0
		for _, ch := range children[c] {
			childSum += stability[ch]
		}
		if childSum > stability[c] {
			selected[c] = false
			stability[c] = childSum
			continue
		}
		stack := append([]int(nil), children[c]...)
		for len(stack) > 0 {
			d := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			selected[d] = false
			stack = append(stack, children[d]...)
		}
	}

	labelOf := make(map[int]int)
	var thresholds []float64
	for c := root + 1; c < t.numNodes; c++ {
		if selected[c] {
			labelOf[c] = len(thresholds)
			thresholds = append(thresholds, births[c])
		}
	}

	if len(thresholds) == 0 {
		return t.singleCluster(pointLambda, minSize, gap)
	}

	labels := make([]int, t.n)
	for p := range labels {
		labels[p] = Noise
		for c := pointParent[p]; c != root; c = parentOf[c] {
			if label, ok := labelOf[c]; ok {
				labels[p] = label
				break
			}
		}
	}
	return selection{labels: labels, thresholds: thresholds}
}

// singleCluster handles a tree without splits: every point left the root.
// The densest points form one cluster when the largest density gap between
// consecutive points (with at least minSize points above it) reaches gap.
func (t *condensedTree) singleCluster(pointLambda []float64, minSize int, gap float64) selection {
	labels := make([]int, t.n)
	for i := range labels {
		labels[i] = Noise
	}

	order := make([]int, t.n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return pointLambda[order[i]] > pointLambda[order[j]]
	})

	cut, bestRatio := -1, 0.0
	for k := minSize; k < len(order); k++ {
		ratio := pointLambda[order[k-1]] / pointLambda[order[k]]
		if ratio > bestRatio {
			cut, bestRatio = k, ratio
		}
	}
	if cut == -1 || bestRatio < gap {
		return selection{labels: labels}
	}

	for _, p := range order[:cut] {
		labels[p] = 0
	}
	boundary := math.Sqrt(pointLambda[order[cut-1]] * pointLambda[order[cut]])
	return selection{labels: labels, thresholds: []float64{boundary}}
}
