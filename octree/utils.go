package octree

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/mpicque/grid-sensor/pointset"
)

// splitIntoOctants redefines a leaf node as an internal node with eight new
// empty children, one per octant, in a fixed X-major order so traversal over
// children is deterministic.
func (tree *Tree) splitIntoOctants() {
	children := []*Tree{}
	newSideLength := tree.sideLength / 2
	for _, i := range []float64{-1.0, 1.0} {
		for _, j := range []float64{-1.0, 1.0} {
			for _, k := range []float64{-1.0, 1.0} {
				centerOffset := r3.Vector{
					X: i * newSideLength / 2.,
					Y: j * newSideLength / 2.,
					Z: k * newSideLength / 2.,
				}
				children = append(children, &Tree{
					logger:     tree.logger,
					node:       newLeafNodeEmpty(),
					center:     tree.center.Add(centerOffset),
					sideLength: newSideLength,
					maxDepth:   tree.maxDepth - 1,
					meta:       pointset.NewMetaData(),
				})
			}
		}
	}
	tree.node = newInternalNode(children)
}

// checkPointPlacement checks that a point belongs inside the tree based on
// its center and defined side length.
func (tree *Tree) checkPointPlacement(p r3.Vector) bool {
	return (math.Abs(tree.center.X-p.X) <= tree.sideLength/2.) &&
		(math.Abs(tree.center.Y-p.Y) <= tree.sideLength/2.) &&
		(math.Abs(tree.center.Z-p.Z) <= tree.sideLength/2.)
}

// Creates a new LeafNodeEmpty.
func newLeafNodeEmpty() treeNode {
	return treeNode{
		children: nil,
		nodeType: LeafNodeEmpty,
	}
}

// Creates a new InternalNode with the specified children nodes.
func newInternalNode(children []*Tree) treeNode {
	return treeNode{
		children: children,
		nodeType: InternalNode,
	}
}
