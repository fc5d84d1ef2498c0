package bvh

import (
	"bytes"
	"fmt"
	"time"

	"github.com/achilleasa/progressive-pt/scene"
	"github.com/olekukonko/tablewriter"
)

// Build statistics.
type Stats struct {
	Primitives     int
	Nodes          int
	Leaves         int
	MaxDepth       int
	MaxLeafSize    int
	FallbackSplits int
	BuildTime      time.Duration
}

// Render stats as a table.
func (s Stats) Table() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Primitives", "Nodes", "Leaves", "Max depth", "Max leaf size", "Fallback splits", "Build time"})
	table.Append([]string{
		fmt.Sprint(s.Primitives),
		fmt.Sprint(s.Nodes),
		fmt.Sprint(s.Leaves),
		fmt.Sprint(s.MaxDepth),
		fmt.Sprint(s.MaxLeafSize),
		fmt.Sprint(s.FallbackSplits),
		fmt.Sprintf("%d ms", s.BuildTime.Nanoseconds()/1e6),
	})
	table.Render()
	return buf.String()
}

// A bounding volume hierarchy over a primitive list. A built tree is
// read-only and may be queried concurrently.
type Tree struct {
	Nodes []Node

	// Primitive indices ordered so that every leaf covers a contiguous range.
	Indices []uint32

	Primitives []scene.Primitive

	Stats Stats
}

// Find the nearest intersection along the ray. Returns scene.NoHit if the
// ray does not hit any primitive.
func (t *Tree) Intersect(r scene.Ray) scene.Hit {
	best := scene.NoHit
	if len(t.Nodes) == 0 {
		return best
	}

	if _, _, hit := t.Nodes[0].BBox.Intersect(r, 0, best.Distance); !hit {
		return best
	}

	t.intersectNode(0, r, &best)
	return best
}

// Visit a node whose box is known to overlap the ray before best.Distance.
func (t *Tree) intersectNode(nodeIndex uint32, r scene.Ray, best *scene.Hit) {
	node := &t.Nodes[nodeIndex]
	if node.IsLeaf() {
		first, count := node.GetPrimitives()
		for _, primIndex := range t.Indices[first : first+count] {
			hit := t.Primitives[primIndex].Intersect(r)
			if hit.Distance > 0 && hit.Distance < best.Distance {
				*best = hit
			}
		}
		return
	}

	left, right := node.GetChildNodes()
	leftEnter, _, leftHit := t.Nodes[left].BBox.Intersect(r, 0, best.Distance)
	rightEnter, _, rightHit := t.Nodes[right].BBox.Intersect(r, 0, best.Distance)

	switch {
	case leftHit && rightHit:
		near, far, farEnter := left, right, rightEnter
		if rightEnter < leftEnter {
			near, far, farEnter = right, left, leftEnter
		}

		t.intersectNode(near, r, best)

		// The near child may have tightened the bound enough to skip far.
		if farEnter < best.Distance {
			t.intersectNode(far, r, best)
		}
	case leftHit:
		t.intersectNode(left, r, best)
	case rightHit:
		t.intersectNode(right, r, best)
	}
}

// Collect the primitive index ranges of all leaves, in depth-first order.
func (t *Tree) Leaves() [][2]uint32 {
	var out [][2]uint32
	if len(t.Nodes) == 0 {
		return out
	}

	stack := []uint32{0}
	for len(stack) > 0 {
		nodeIndex := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := &t.Nodes[nodeIndex]
		if node.IsLeaf() {
			first, count := node.GetPrimitives()
			out = append(out, [2]uint32{first, count})
			continue
		}
		left, right := node.GetChildNodes()
		stack = append(stack, right, left)
	}
	return out
}
