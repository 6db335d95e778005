package clustering

import (
	"math"
	"sort"

	"github.com/thebtf/notionflow-ai/pkg/similarity"
)

// edge is a weighted minimum spanning tree edge.
type edge struct {
	a, b   int
	weight float64
}

// merge is one step of the single-linkage hierarchy. Node ids below n are
// points; merge i creates node n+i.
type merge struct {
	left, right int
	distance    float64
	size        int
}

// coreDistances returns, for every point, the distance to its minSamples-th
// nearest neighbour counting the point itself.
func coreDistances(points [][]float32, minSamples int) []float64 {
	n := len(points)
	k := minSamples
	if k > n {
		k = n
	}

	core := make([]float64, n)
	nearest := make([]float64, 0, k)
	for i := range points {
		nearest = nearest[:0]
		for j := range points {
			d := 0.0
			if i != j {
				d = similarity.EuclideanDistance(points[i], points[j])
			}
			nearest = insertSmallest(nearest, d, k)
		}
		core[i] = nearest[len(nearest)-1]
	}
	return core
}

// insertSmallest keeps s as the ascending list of the k smallest values seen.
func insertSmallest(s []float64, d float64, k int) []float64 {
	if len(s) == k && d >= s[k-1] {
		return s
	}
	idx := sort.SearchFloat64s(s, d)
	if len(s) < k {
		s = append(s, 0)
	}
	copy(s[idx+1:], s[idx:len(s)-1])
	s[idx] = d
	return s
}

func mutualReachability(points [][]float32, core []float64, i, j int) float64 {
	d := similarity.EuclideanDistance(points[i], points[j])
	return math.Max(d, math.Max(core[i], core[j]))
}

// mutualReachabilityMST builds the minimum spanning tree of the complete
// mutual-reachability graph with Prim's algorithm. Edges are returned sorted
// by ascending weight; ties keep discovery order.
func mutualReachabilityMST(points [][]float32, core []float64) []edge {
	n := len(points)
	inTree := make([]bool, n)
	best := make([]float64, n)
	from := make([]int, n)
	for i := range best {
		best[i] = math.Inf(1)
		from[i] = -1
	}

	edges := make([]edge, 0, n-1)
	current := 0
	inTree[0] = true
	for len(edges) < n-1 {
		next := -1
		for j := 0; j < n; j++ {
			if inTree[j] {
				continue
			}
			if d := mutualReachability(points, core, current, j); d < best[j] {
				best[j] = d
				from[j] = current
			}
			if next == -1 || best[j] < best[next] {
				next = j
			}
		}
		edges = append(edges, edge{a: from[next], b: next, weight: best[next]})
		inTree[next] = true
		current = next
	}

	sort.SliceStable(edges, func(i, j int) bool {
		return edges[i].weight < edges[j].weight
	})
	return edges
}

// unionFind tracks connected components while the hierarchy is built.
type unionFind struct {
	parent []int
	size   []int
	next   int
}

func newUnionFind(n int) *unionFind {
	total := 2*n - 1
	uf := &unionFind{parent: make([]int, total), size: make([]int, total), next: n}
	for i := range uf.parent {
		uf.parent[i] = i
		if i < n {
			uf.size[i] = 1
		}
	}
	return uf
}

func (u *unionFind) find(x int) int {
	root := x
	for u.parent[root] != root {
		root = u.parent[root]
	}
	for u.parent[x] != root {
		u.parent[x], x = root, u.parent[x]
	}
	return root
}

func (u *unionFind) union(a, b int) int {
	node := u.next
	u.next++
	u.parent[a] = node
	u.parent[b] = node
	u.size[node] = u.size[a] + u.size[b]
	return node
}

// singleLinkage turns sorted MST edges into a binary merge hierarchy.
func singleLinkage(edges []edge, n int) []merge {
	uf := newUnionFind(n)
	merges := make([]merge, 0, len(edges))
	for _, e := range edges {
		a, b := uf.find(e.a), uf.find(e.b)
		node := uf.union(a, b)
		merges = append(merges, merge{left: a, right: b, distance: e.weight, size: uf.size[node]})
	}
	return merges
}
