package filehistory

import (
	"slices"

	"github.com/Sumatoshi-tech/pathfollow/pkg/vcsgraph"
)

// MergeCollapser hides trivial merges in a collapsed graph.
type MergeCollapser struct {
	graph   *vcsgraph.CollapsedGraph
	scratch *vcsgraph.Flags
}

// NewMergeCollapser creates a collapser. scratch must hold at least
// graph.Len() bits.
func NewMergeCollapser(graph *vcsgraph.CollapsedGraph, scratch *vcsgraph.Flags) *MergeCollapser {
	return &MergeCollapser{graph: graph, scratch: scratch}
}

// Collapse hides every candidate row whose parents reduce to a single one,
// either because it has only one or because they form an ancestor chain, and
// links its children to that parent. Rows are visited from the oldest up so
// a row's parents are settled before it is looked at. All changes land in one
// edit; the hidden nodes are returned in the order they were hidden.
func (c *MergeCollapser) Collapse(isCandidate func(node int) bool) ([]int, error) {
	var hidden []int

	err := c.graph.Modify(func(e *vcsgraph.Edit) error {
		hidden = hidden[:0]

		for row := e.Len() - 1; row >= 0; row-- {
			if e.Hidden(row) || !isCandidate(e.NodeID(row)) {
				continue
			}

			target := c.chainTarget(e, e.Down(row))
			if target == vcsgraph.NoNode {
				continue
			}

			children := slices.Clone(e.Up(row))

			if err := e.HideRow(row); err != nil {
				return err
			}

			for _, child := range children {
				if err := e.ConnectRows(child, target); err != nil {
					return err
				}
			}

			hidden = append(hidden, e.NodeID(row))
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return hidden, nil
}

// chainTarget returns the newest parent if, taken from the oldest, each parent
// descends from the previous one. Otherwise it returns NoNode.
func (c *MergeCollapser) chainTarget(e *vcsgraph.Edit, parents []int) int {
	switch len(parents) {
	case 0:
		return vcsgraph.NoNode
	case 1:
		return parents[0]
	}

	sorted := slices.Clone(parents)
	slices.Sort(sorted)
	slices.Reverse(sorted)

	current := sorted[0]

	for _, next := range sorted[1:] {
		if !vcsgraph.IsAncestor(e, current, next, c.scratch) {
			return vcsgraph.NoNode
		}

		current = next
	}

	return current
}
