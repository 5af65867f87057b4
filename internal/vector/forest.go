package vector

import (
	"container/heap"
	"context"
	"math"
	"math/rand/v2"
)

const (
	// DefaultTrees is the number of trees built when ForestConfig.Trees is unset.
	DefaultTrees = 10
	// twoMeansSteps is the number of sampled points used to place a split hyperplane.
	twoMeansSteps = 200
	// maxImbalance is the largest fraction of items allowed on one side of a split
	// before the split is retried or replaced by a random one.
	maxImbalance = 0.95

	maxSplitAttempts = 3
)

// ForestConfig configures an angular random-projection forest.
type ForestConfig struct {
	// Trees trades build cost for recall. Defaults to DefaultTrees.
	Trees int
	// LeafSize is the maximum number of items in a leaf. Defaults to dimension+2.
	LeafSize int
	// SearchK is the number of candidates inspected per query. Defaults to k*Trees.
	SearchK int
	// Seed makes builds reproducible.
	Seed uint64
}

// ForestBuilder builds Forest indexes.
type ForestBuilder struct {
	cfg ForestConfig
}

// NewForestBuilder returns a builder with defaults applied to cfg.
func NewForestBuilder(cfg ForestConfig) *ForestBuilder {
	if cfg.Trees <= 0 {
		cfg.Trees = DefaultTrees
	}
	return &ForestBuilder{cfg: cfg}
}

// Type returns the index type identifier.
func (b *ForestBuilder) Type() string {
	return string(IndexTypeAnnoy)
}

// Trees returns the configured number of trees.
func (b *ForestBuilder) Trees() int {
	return b.cfg.Trees
}

// node is either a split (normal != nil) or a leaf (items != nil).
// A split with an all-zero normal sends queries down both children with equal priority.
type node struct {
	normal      []float32
	left, right int32
	items       []int32
}

// Forest is an ensemble of binary trees that recursively split the vector set by
// hyperplanes through the origin. Queries walk all trees best-first, ordered by the
// smallest margin seen along each path, collect candidates from the leaves and rank
// them by exact angular distance.
type Forest struct {
	dimensions int
	vectors    [][]float32
	nodes      []node
	roots      []int32
	searchK    int
}

type forestBuild struct {
	vectors  [][]float32
	leafSize int
	rng      *rand.Rand
	nodes    []node
}

// Build constructs the forest over vectors. Vector i gets id i.
func (b *ForestBuilder) Build(ctx context.Context, vectors [][]float32) (Index, error) {
	dim, err := checkDimensions(vectors)
	if err != nil {
		return nil, err
	}
	f := &Forest{
		dimensions: dim,
		vectors:    make([][]float32, len(vectors)),
		searchK:    b.cfg.SearchK,
	}
	for i, v := range vectors {
		vec := make([]float32, dim)
		copy(vec, v)
		f.vectors[i] = vec
	}
	if len(vectors) == 0 {
		return f, nil
	}

	leafSize := b.cfg.LeafSize
	if leafSize <= 0 {
		leafSize = dim + 2
	}
	if leafSize < 2 {
		leafSize = 2
	}
	fb := &forestBuild{
		vectors:  f.vectors,
		leafSize: leafSize,
		rng:      rand.New(rand.NewPCG(b.cfg.Seed, b.cfg.Seed^0x9e3779b97f4a7c15)),
	}
	all := make([]int32, len(vectors))
	for i := range all {
		all[i] = int32(i)
	}
	for t := 0; t < b.cfg.Trees; t++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		items := make([]int32, len(all))
		copy(items, all)
		f.roots = append(f.roots, fb.split(items))
	}
	f.nodes = fb.nodes
	return f, nil
}

func (fb *forestBuild) addNode(n node) int32 {
	fb.nodes = append(fb.nodes, n)
	return int32(len(fb.nodes) - 1)
}

func (fb *forestBuild) split(items []int32) int32 {
	if len(items) <= fb.leafSize {
		return fb.addNode(node{items: items})
	}

	var normal []float32
	var left, right []int32
	for attempt := 0; attempt < maxSplitAttempts; attempt++ {
		normal = fb.twoMeans(items)
		left, right = left[:0], right[:0]
		for _, id := range items {
			if InnerProduct(normal, fb.vectors[id]) > 0 {
				right = append(right, id)
			} else {
				left = append(left, id)
			}
		}
		if imbalance(len(left), len(right)) <= maxImbalance {
			break
		}
	}
	if imbalance(len(left), len(right)) > maxImbalance {
		// Duplicates or degenerate data: split at random and let queries explore both sides.
		normal = make([]float32, len(fb.vectors[items[0]]))
		for {
			left, right = left[:0], right[:0]
			for _, id := range items {
				if fb.rng.IntN(2) == 0 {
					left = append(left, id)
				} else {
					right = append(right, id)
				}
			}
			if len(left) > 0 && len(right) > 0 {
				break
			}
		}
	}

	idx := fb.addNode(node{normal: normal})
	l := fb.split(append([]int32(nil), left...))
	r := fb.split(append([]int32(nil), right...))
	fb.nodes[idx].left = l
	fb.nodes[idx].right = r
	return idx
}

func imbalance(left, right int) float64 {
	return float64(max(left, right)) / float64(left+right)
}

// twoMeans runs a sampled 2-means over items in angular space and returns the
// normalized difference of the two centroids.
func (fb *forestBuild) twoMeans(items []int32) []float32 {
	dim := len(fb.vectors[items[0]])
	i := fb.rng.IntN(len(items))
	j := fb.rng.IntN(len(items) - 1)
	if j >= i {
		j++
	}
	p := unit(fb.vectors[items[i]])
	q := unit(fb.vectors[items[j]])
	ic, jc := 1.0, 1.0
	for step := 0; step < twoMeansSteps; step++ {
		v := unit(fb.vectors[items[fb.rng.IntN(len(items))]])
		di := ic * AngularDistance(p, v)
		dj := jc * AngularDistance(q, v)
		switch {
		case di < dj:
			for x := 0; x < dim; x++ {
				p[x] = float32((float64(p[x])*ic + float64(v[x])) / (ic + 1))
			}
			ic++
		case dj < di:
			for x := 0; x < dim; x++ {
				q[x] = float32((float64(q[x])*jc + float64(v[x])) / (jc + 1))
			}
			jc++
		}
	}
	normal := make([]float32, dim)
	for x := 0; x < dim; x++ {
		normal[x] = p[x] - q[x]
	}
	if n := L2Norm(normal); n > 0 {
		for x := range normal {
			normal[x] = float32(float64(normal[x]) / n)
		}
	}
	return normal
}

func unit(v []float32) []float32 {
	out := make([]float32, len(v))
	n := L2Norm(v)
	if n == 0 {
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / n)
	}
	return out
}

// Type returns the index type identifier.
func (f *Forest) Type() string {
	return string(IndexTypeAnnoy)
}

// Size returns the number of vectors in the index.
func (f *Forest) Size() int {
	return len(f.vectors)
}

// Dimensions returns the vector dimension, 0 for an empty index.
func (f *Forest) Dimensions() int {
	return f.dimensions
}

// Trees returns the number of trees in the forest.
func (f *Forest) Trees() int {
	return len(f.roots)
}

// Search returns up to k approximate nearest neighbours of query, closest first.
func (f *Forest) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	if k <= 0 || len(f.vectors) == 0 {
		return nil, nil
	}
	if err := checkQuery(query, f.dimensions); err != nil {
		return nil, err
	}
	searchK := f.searchK
	if searchK <= 0 {
		searchK = k * len(f.roots)
	}

	q := make(nodeQueue, 0, len(f.roots)*2)
	for _, r := range f.roots {
		q = append(q, queued{priority: math.Inf(1), node: r})
	}
	heap.Init(&q)

	seen := make([]bool, len(f.vectors))
	candidates := make([]int32, 0, searchK)
	for len(candidates) < searchK && q.Len() > 0 {
		top := heap.Pop(&q).(queued)
		nd := &f.nodes[top.node]
		if nd.normal == nil {
			for _, id := range nd.items {
				if !seen[id] {
					seen[id] = true
					candidates = append(candidates, id)
				}
			}
			continue
		}
		margin := InnerProduct(nd.normal, query)
		heap.Push(&q, queued{priority: math.Min(top.priority, margin), node: nd.right})
		heap.Push(&q, queued{priority: math.Min(top.priority, -margin), node: nd.left})
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]Result, len(candidates))
	for i, id := range candidates {
		results[i] = Result{ID: int(id), Distance: AngularDistance(query, f.vectors[id])}
	}
	sortResults(results)
	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

type queued struct {
	priority float64
	node     int32
}

// nodeQueue is a max-heap on priority; ties pop the lower node index first.
type nodeQueue []queued

func (q nodeQueue) Len() int { return len(q) }
func (q nodeQueue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority > q[j].priority
	}
	return q[i].node < q[j].node
}
func (q nodeQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *nodeQueue) Push(x any)   { *q = append(*q, x.(queued)) }
func (q *nodeQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}
