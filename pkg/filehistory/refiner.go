package filehistory

import (
	"maps"
	"slices"

	"github.com/Sumatoshi-tech/pathfollow/pkg/vcsgraph"
)

// Refinement is the outcome of one refiner walk.
type Refinement struct {
	// Paths maps each kept commit to the identity of the file there.
	Paths map[int]FileIdentity
	// Excluded lists visited commits that do not affect their identity, ascending.
	Excluded []int
	// Ambiguous counts steps where parents disagreed and the structurally
	// corresponding parent decided.
	Ambiguous int
}

// GraphRefiner propagates the tracked identity over the visible graph.
type GraphRefiner struct {
	visible   *vcsgraph.CollapsedGraph
	permanent *vcsgraph.Graph
	index     *FileIdentityIndex
	scratch   *vcsgraph.Flags

	stack     []FileIdentity
	paths     map[int]FileIdentity
	ambiguous int
}

// NewGraphRefiner creates a refiner. scratch must hold at least
// permanent.Len() bits and is used by no other walk meanwhile.
func NewGraphRefiner(
	visible *vcsgraph.CollapsedGraph, index *FileIdentityIndex, scratch *vcsgraph.Flags,
) *GraphRefiner {
	return &GraphRefiner{
		visible:   visible,
		permanent: visible.Base(),
		index:     index,
		scratch:   scratch,
	}
}

// Refine walks the visible graph from row, where the file is known as start,
// and returns the identity at every reached commit that affects it.
func (r *GraphRefiner) Refine(row int, start FileIdentity) Refinement {
	r.stack = r.stack[:0]
	r.paths = make(map[int]FileIdentity)
	r.ambiguous = 0

	vcsgraph.Walk(r.visible, row, vcsgraph.Visitor{
		Enter: func(current, previous int, down bool) {
			node := r.visible.NodeID(current)

			id := start
			if previous != vcsgraph.NoNode {
				id = r.step(r.visible.NodeID(previous), node, r.stack[len(r.stack)-1], down)
			}

			r.paths[node] = id
			r.stack = append(r.stack, id)
		},
		Exit: func(int) {
			r.stack = r.stack[:len(r.stack)-1]
		},
	})

	var excluded []int

	for _, node := range slices.Sorted(maps.Keys(r.paths)) {
		if !r.index.Affects(node, r.paths[node]) {
			excluded = append(excluded, node)
			delete(r.paths, node)
		}
	}

	return Refinement{Paths: r.paths, Excluded: excluded, Ambiguous: r.ambiguous}
}

// step resolves the identity at current, reached from previous whose identity is known.
func (r *GraphRefiner) step(previous, current int, known FileIdentity, down bool) FileIdentity {
	if down {
		return r.resolve(previous, current, func(parent int) FileIdentity {
			return r.index.PathInParent(previous, parent, known)
		})
	}

	return r.resolve(current, previous, func(parent int) FileIdentity {
		return r.index.PathInChild(current, parent, known)
	})
}

// resolve asks every permanent parent of child; on disagreement the parent
// leading to ancestor decides.
func (r *GraphRefiner) resolve(child, ancestor int, across func(parent int) FileIdentity) FileIdentity {
	parents := r.permanent.Parents(child)
	if len(parents) == 0 {
		return r.stack[len(r.stack)-1]
	}

	first := across(parents[0])

	for _, parent := range parents[1:] {
		if across(parent) != first {
			r.ambiguous++

			return across(vcsgraph.CorrespondingParent(r.permanent, child, ancestor, r.scratch))
		}
	}

	return first
}
