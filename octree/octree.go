// Package octree implements an octree that recursively partitions a cubic
// region of 3D space down to a fixed maximum depth, accumulating the points
// routed through every node. Cutting the tree at any depth yields one
// averaged representative point per occupied cell, which makes the tree a
// multi-resolution downsampler: deep cuts preserve detail, shallow cuts give
// coarse outlines.
package octree

import (
	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/mpicque/grid-sensor/pointset"
)

// Each node in the tree is either an internal node which links to eight
// children, an empty leaf that no point has been routed through, or a filled
// leaf at the bottom of the tree holding the accumulated points of its cell.
const (
	InternalNode = NodeType(iota)
	LeafNodeEmpty
	LeafNodeFilled
)

// NodeType represents the possible types of nodes in the tree.
type NodeType uint8

// Tree is the root of an octree over a cubic region with a fixed maximum
// subdivision depth.
type Tree struct {
	logger     golog.Logger
	node       treeNode
	center     r3.Vector
	sideLength float64
	maxDepth   int
	size       int
	meta       pointset.MetaData
}

// treeNode is a struct comprised of the type of node, children nodes (should
// they exist) and the running sum and count of the points routed through it.
type treeNode struct {
	nodeType NodeType
	children []*Tree
	sum      r3.Vector
	count    int
}

// New creates a new empty octree with the specified center, side length and
// maximum depth.
func New(center r3.Vector, sideLength float64, maxDepth int, logger golog.Logger) (*Tree, error) {
	if sideLength <= 0 {
		return nil, errors.Errorf("invalid side length (%.2f) for octree", sideLength)
	}
	if maxDepth < 1 {
		return nil, errors.Errorf("invalid max depth (%d) for octree", maxDepth)
	}

	return &Tree{
		logger:     logger,
		node:       newLeafNodeEmpty(),
		center:     center,
		sideLength: sideLength,
		maxDepth:   maxDepth,
		meta:       pointset.NewMetaData(),
	}, nil
}

// Size returns the number of points stored in the tree.
func (tree *Tree) Size() int {
	return tree.size
}

// MaxDepth returns the maximum subdivision depth of the tree.
func (tree *Tree) MaxDepth() int {
	return tree.maxDepth
}

// Center returns the center of the region the tree covers.
func (tree *Tree) Center() r3.Vector {
	return tree.center
}

// SideLength returns the side length of the region the tree covers.
func (tree *Tree) SideLength() float64 {
	return tree.sideLength
}

// MetaData returns the meta data of the points stored in the tree.
func (tree *Tree) MetaData() pointset.MetaData {
	return tree.meta
}

// Insert routes the given point down to the bottom cell containing it,
// accumulating it into every node along the path. Points outside the bounds
// of the tree are rejected.
func (tree *Tree) Insert(p r3.Vector) error {
	if !tree.checkPointPlacement(p) {
		return errors.New("error point is outside the bounds of this octree")
	}
	return tree.insert(p, tree.maxDepth)
}

func (tree *Tree) insert(p r3.Vector, depthLeft int) error {
	if depthLeft == 0 {
		tree.node.nodeType = LeafNodeFilled
		tree.node.sum = tree.node.sum.Add(p)
		tree.node.count++
		tree.size++
		tree.meta.Merge(p)
		return nil
	}

	if tree.node.nodeType != InternalNode {
		tree.splitIntoOctants()
	}

	for _, child := range tree.node.children {
		if child.checkPointPlacement(p) {
			if err := child.insert(p, depthLeft-1); err != nil {
				return err
			}
			tree.node.sum = tree.node.sum.Add(p)
			tree.node.count++
			tree.size++
			tree.meta.Merge(p)
			return nil
		}
	}
	return errors.New("error invalid internal node detected, please check your tree")
}

// LevelPoints cuts the tree at the given depth and returns the averaged
// representative point of every occupied cell at that resolution. Depth 0 is
// the root cell, MaxDepth() is the finest sampling; values outside that range
// are clamped. Traversal follows the fixed octant order, so output order is
// deterministic for a given insertion sequence.
func (tree *Tree) LevelPoints(depth int) []r3.Vector {
	if depth < 0 {
		depth = 0
	}
	if depth > tree.maxDepth {
		depth = tree.maxDepth
	}
	var out []r3.Vector
	tree.collectAtDepth(depth, &out)
	return out
}

func (tree *Tree) collectAtDepth(depth int, out *[]r3.Vector) {
	if tree.node.count == 0 {
		return
	}
	if depth == 0 || tree.node.nodeType != InternalNode {
		*out = append(*out, tree.node.sum.Mul(1/float64(tree.node.count)))
		return
	}
	for _, child := range tree.node.children {
		child.collectAtDepth(depth-1, out)
	}
}
