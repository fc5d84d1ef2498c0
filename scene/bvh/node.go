package bvh

import "github.com/achilleasa/progressive-pt/scene"

// Bvh node definition. Nodes are stored in a flat array; the root is always
// at index 0 and children are always appended after their parent so a child
// index is never 0.
type Node struct {
	BBox scene.AABB

	// If this is a node then LData is > 0 and contains the index to the
	// left node; if this is a leaf then LData is <= 0 and contains the
	// negated index of the first primitive in the leaf.
	LData int32

	// If this is a node then RData contains the index to the right node;
	// if this is a leaf then RData contains the primitive count.
	RData int32
}

// Set the left and right child node indices.
func (n *Node) SetChildNodes(left, right uint32) {
	n.LData = int32(left)
	n.RData = int32(right)
}

// Set the primitive index range covered by a leaf.
func (n *Node) SetPrimitives(first, count uint32) {
	n.LData = -int32(first)
	n.RData = int32(count)
}

// Returns true if this is a leaf node.
func (n *Node) IsLeaf() bool {
	return n.LData <= 0
}

// Get the left and right child node indices.
func (n *Node) GetChildNodes() (left, right uint32) {
	return uint32(n.LData), uint32(n.RData)
}

// Get the primitive index range covered by a leaf.
func (n *Node) GetPrimitives() (first, count uint32) {
	return uint32(-n.LData), uint32(n.RData)
}
