package bvh

import (
	"errors"
	"math"
	"time"

	"github.com/achilleasa/progressive-pt/log"
	"github.com/achilleasa/progressive-pt/scene"
	"github.com/achilleasa/progressive-pt/types"
)

type Axis uint8

const (
	XAxis Axis = iota
	YAxis
	ZAxis
)

const (
	DefaultLeafSize = 5
	DefaultBuckets  = 12

	// Axes whose centroid range is below this threshold are not
	// considered for splitting. It also pads the bucket denominator.
	centroidEpsilon = 1e-6

	// Nodes with at least this many primitives score their split axes
	// in parallel.
	parallelScoreThreshold = 1024
)

var (
	ErrEmptyPrimitiveList = errors.New("bvh: empty primitive list")
)

// Builder options.
type Options struct {
	// Nodes with at most this many primitives become leaves.
	LeafSize int

	// Number of SAH buckets per axis.
	Buckets int
}

func (o *Options) setDefaults() {
	if o.LeafSize < 1 {
		o.LeafSize = DefaultLeafSize
	}
	if o.Buckets < 2 {
		o.Buckets = DefaultBuckets
	}
}

type splitScore struct {
	axis Axis

	// Primitives whose centroid bucket is < boundary go to the left child.
	boundary int
	score    float32
}

type bucket struct {
	count int
	bbox  scene.AABB
}

type builder struct {
	logger log.Logger
	opts   Options

	// Per-primitive bounds and centroids indexed by primitive index.
	bboxes    []scene.AABB
	centroids []types.Vec3

	// The primitive index array; partitioned in place.
	indices []uint32

	// Bvh nodes stored as a contiguous list
	nodes []Node

	// A channel for receiving score results.
	scoreChan chan splitScore

	stats Stats
}

// Construct a BVH over a set of primitives.
//
// The builder recursively splits the primitive range using the surface area
// heuristic evaluated over a fixed number of centroid buckets per axis:
//
// cost = SA(left)/SA(parent) * count(left) + SA(right)/SA(parent) * count(right)
//
// If no split produces two non-empty sides the range is split in half.
func Build(primitives []scene.Primitive, opts Options) (*Tree, error) {
	if len(primitives) == 0 {
		return nil, ErrEmptyPrimitiveList
	}
	opts.setDefaults()

	b := &builder{
		logger:    log.New("bvh builder"),
		opts:      opts,
		bboxes:    make([]scene.AABB, len(primitives)),
		centroids: make([]types.Vec3, len(primitives)),
		indices:   make([]uint32, len(primitives)),
		nodes:     make([]Node, 0, 2*len(primitives)/opts.LeafSize+1),
		scoreChan: make(chan splitScore, 3),
		stats: Stats{
			Primitives: len(primitives),
		},
	}

	for i, prim := range primitives {
		b.bboxes[i] = prim.BBox()
		b.centroids[i] = b.bboxes[i].Centroid()
		b.indices[i] = uint32(i)
	}

	start := time.Now()
	b.partition(0, len(primitives), 0)
	b.stats.BuildTime = time.Since(start)
	b.stats.Nodes = len(b.nodes)

	b.logger.Debugf(
		"BVH tree build time: %d ms, maxDepth: %d, nodes: %d, leafs: %d",
		b.stats.BuildTime.Nanoseconds()/1e6,
		b.stats.MaxDepth, b.stats.Nodes, b.stats.Leaves,
	)

	return &Tree{
		Nodes:      b.nodes,
		Indices:    b.indices,
		Primitives: primitives,
		Stats:      b.stats,
	}, nil
}

// Partition the index range [start, end) and return the node index.
func (b *builder) partition(start, end, depth int) uint32 {
	if depth > b.stats.MaxDepth {
		b.stats.MaxDepth = depth
	}

	node := Node{BBox: scene.EmptyAABB()}
	centroidBox := scene.EmptyAABB()
	for _, primIndex := range b.indices[start:end] {
		node.BBox.Expand(b.bboxes[primIndex])
		centroidBox.ExpandPoint(b.centroids[primIndex])
	}

	// Do we have few enough items to form a leaf?
	count := end - start
	if count <= b.opts.LeafSize {
		return b.createLeaf(&node, start, count)
	}

	mid := -1
	if bestSplit := b.findSplit(start, end, node.BBox, centroidBox); bestSplit != nil {
		mid = b.partitionRange(start, end, bestSplit, centroidBox)
	}

	// No usable split; all centroids coincide. Split by position instead.
	if mid <= start || mid >= end {
		mid = start + count/2
		b.stats.FallbackSplits++
	}

	// Add node to list
	nodeIndex := len(b.nodes)
	b.nodes = append(b.nodes, node)

	// Partition children and update node indices
	leftNodeIndex := b.partition(start, mid, depth+1)
	rightNodeIndex := b.partition(mid, end, depth+1)
	b.nodes[nodeIndex].SetChildNodes(leftNodeIndex, rightNodeIndex)

	return uint32(nodeIndex)
}

// Score all bucket boundaries along each axis and return the cheapest
// split, or nil if no split yields a finite cost.
func (b *builder) findSplit(start, end int, nodeBox, centroidBox scene.AABB) *splitScore {
	parallel := end-start >= parallelScoreThreshold
	parentArea := nodeBox.SurfaceArea()

	// Run axis split tests in parallel for large nodes
	pendingScores := 0
	var inline []splitScore
	for axis := XAxis; axis <= ZAxis; axis++ {
		if centroidBox.Max[axis]-centroidBox.Min[axis] < centroidEpsilon {
			continue
		}

		if !parallel {
			inline = append(inline, b.scoreAxis(start, end, axis, centroidBox, parentArea))
			continue
		}

		pendingScores++
		go func(axis Axis) {
			b.scoreChan <- b.scoreAxis(start, end, axis, centroidBox, parentArea)
		}(axis)
	}

	for ; pendingScores > 0; pendingScores-- {
		inline = append(inline, <-b.scoreChan)
	}

	var bestSplit *splitScore
	for i := range inline {
		candidate := inline[i]
		if math.IsInf(float64(candidate.score), 1) {
			continue
		}
		// Prefer lower axes on ties so that builds are deterministic.
		if bestSplit == nil || candidate.score < bestSplit.score ||
			(candidate.score == bestSplit.score && candidate.axis < bestSplit.axis) {
			bestSplit = &candidate
		}
	}

	return bestSplit
}

// Bucket the centroids in [start, end) along axis and evaluate the SAH cost
// of each internal bucket boundary. Boundaries that leave one side empty
// are rejected.
func (b *builder) scoreAxis(start, end int, axis Axis, centroidBox scene.AABB, parentArea float32) splitScore {
	buckets := make([]bucket, b.opts.Buckets)
	for i := range buckets {
		buckets[i].bbox = scene.EmptyAABB()
	}

	cMin, cMax := centroidBox.Min[axis], centroidBox.Max[axis]
	for _, primIndex := range b.indices[start:end] {
		bi := bucketIndex(b.centroids[primIndex][axis], cMin, cMax, b.opts.Buckets)
		buckets[bi].count++
		buckets[bi].bbox.Expand(b.bboxes[primIndex])
	}

	// Sweep from the right to collect the right side of each boundary.
	rightCounts := make([]int, b.opts.Buckets)
	rightAreas := make([]float32, b.opts.Buckets)
	rightBox := scene.EmptyAABB()
	rightCount := 0
	for i := b.opts.Buckets - 1; i > 0; i-- {
		rightCount += buckets[i].count
		rightBox.Expand(buckets[i].bbox)
		rightCounts[i] = rightCount
		rightAreas[i] = rightBox.SurfaceArea()
	}

	best := splitScore{
		axis:  axis,
		score: float32(math.Inf(1)),
	}
	leftBox := scene.EmptyAABB()
	leftCount := 0
	for boundary := 1; boundary < b.opts.Buckets; boundary++ {
		leftCount += buckets[boundary-1].count
		leftBox.Expand(buckets[boundary-1].bbox)

		if leftCount == 0 || rightCounts[boundary] == 0 {
			continue
		}

		cost := leftBox.SurfaceArea()*float32(leftCount) + rightAreas[boundary]*float32(rightCounts[boundary])
		if parentArea > 0 {
			cost /= parentArea
		}
		if cost < best.score {
			best.score = cost
			best.boundary = boundary
		}
	}

	return best
}

// Reorder [start, end) in place so that primitives on the left side of the
// split come first. Returns the index of the first right-side primitive.
func (b *builder) partitionRange(start, end int, split *splitScore, centroidBox scene.AABB) int {
	cMin, cMax := centroidBox.Min[split.axis], centroidBox.Max[split.axis]
	isLeft := func(primIndex uint32) bool {
		return bucketIndex(b.centroids[primIndex][split.axis], cMin, cMax, b.opts.Buckets) < split.boundary
	}

	lo, hi := start, end-1
	for lo <= hi {
		if isLeft(b.indices[lo]) {
			lo++
			continue
		}
		b.indices[lo], b.indices[hi] = b.indices[hi], b.indices[lo]
		hi--
	}
	return lo
}

// Setup the given node as a leaf covering count primitives starting at first.
// Returns the index to the node in the bvh node array.
func (b *builder) createLeaf(node *Node, first, count int) uint32 {
	node.SetPrimitives(uint32(first), uint32(count))

	nodeIndex := len(b.nodes)
	b.nodes = append(b.nodes, *node)

	b.stats.Leaves++
	if count > b.stats.MaxLeafSize {
		b.stats.MaxLeafSize = count
	}

	return uint32(nodeIndex)
}

// Map a centroid coordinate to a bucket in [0, numBuckets-1].
func bucketIndex(c, min, max float32, numBuckets int) int {
	rel := float64(c-min) / (float64(max-min) + centroidEpsilon)
	bi := int(math.Floor(rel * float64(numBuckets-1)))
	if bi < 0 {
		return 0
	} else if bi > numBuckets-1 {
		return numBuckets - 1
	}
	return bi
}
