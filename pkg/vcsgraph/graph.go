// Package vcsgraph provides arena-backed commit graphs: a read-only permanent
// graph with dense integer node ids, and a mutable collapsed view over it that
// supports hiding rows and reconnecting edges inside a single atomic edit.
package vcsgraph

import (
	"errors"
	"fmt"
	"slices"
)

// NoNode marks the absence of a node, e.g. the previous node of a walk root.
const NoNode = -1

// Sentinel graph errors.
var (
	// ErrNotTopological is returned when a parent id is not greater than its child id.
	ErrNotTopological = errors.New("graph is not in topological order")
	// ErrStructuralInconsistency is returned when an edit refers to rows the view no longer holds.
	ErrStructuralInconsistency = errors.New("structural inconsistency")
)

// Graph is the permanent commit graph. Nodes are dense ids 0..Len()-1 ordered
// like a log: every child id is smaller than the ids of its parents.
// Adjacency is stored as index lists in both directions.
type Graph struct {
	// parents[u] lists v for edges u -> v (child to parent).
	parents [][]int
	// children[v] lists u for edges u -> v.
	children [][]int
}

// NewGraph creates a graph with n isolated nodes.
func NewGraph(n int) *Graph {
	g := &Graph{}
	g.EnsureCapacity(n)

	return g
}

// EnsureCapacity ensures the graph holds at least n nodes.
func (g *Graph) EnsureCapacity(n int) {
	if n <= len(g.parents) {
		return
	}

	parents := make([][]int, n)
	copy(parents, g.parents)
	g.parents = parents

	children := make([][]int, n)
	copy(children, g.children)
	g.children = children
}

// AddEdge links child to parent.
// Returns false if the edge already existed.
func (g *Graph) AddEdge(child, parent int) bool {
	g.EnsureCapacity(max(child, parent) + 1)

	if slices.Contains(g.parents[child], parent) {
		return false
	}

	g.parents[child] = append(g.parents[child], parent)
	g.children[parent] = append(g.children[parent], child)

	return true
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.parents)
}

// Contains reports whether node is a valid id.
func (g *Graph) Contains(node int) bool {
	return node >= 0 && node < len(g.parents)
}

// Parents returns the parents of node in insertion order.
// The returned slice must not be modified.
func (g *Graph) Parents(node int) []int {
	return g.parents[node]
}

// Children returns the children of node in insertion order.
// The returned slice must not be modified.
func (g *Graph) Children(node int) []int {
	return g.children[node]
}

// Down implements [Adjacency].
func (g *Graph) Down(node int) []int {
	return g.parents[node]
}

// Up implements [Adjacency].
func (g *Graph) Up(node int) []int {
	return g.children[node]
}

// Validate checks that every edge points from a smaller to a larger id.
func (g *Graph) Validate() error {
	for child, parents := range g.parents {
		for _, parent := range parents {
			if parent <= child {
				return fmt.Errorf("%w: edge %d -> %d", ErrNotTopological, child, parent)
			}
		}
	}

	return nil
}
