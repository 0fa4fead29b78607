package vcsgraph

import (
	"fmt"
	"slices"
)

// CollapsedGraph is a mutable view over a permanent [Graph]. It holds a subset
// of the permanent nodes as rows, numbered 0..Len()-1 in node order, with edges
// between rows. Hidden permanent nodes are bypassed: a row's parents are the
// nearest visible nodes reached through hidden ones.
//
// The view changes only through [CollapsedGraph.Modify]; readers never see a
// partially applied edit. It is not safe for concurrent use.
type CollapsedGraph struct {
	base  *Graph
	rows  []int
	rowOf map[int]int
	down  [][]int
	up    [][]int
}

// NewCollapsedGraph builds a view of base containing the nodes accepted by
// visible. A nil visible keeps every node.
func NewCollapsedGraph(base *Graph, visible func(node int) bool) *CollapsedGraph {
	n := base.Len()
	keep := func(node int) bool { return visible == nil || visible(node) }

	// Parents always have larger ids, so a descending sweep sees every parent's
	// visible ancestors before the node itself.
	nearest := make([][]int, n)

	for node := n - 1; node >= 0; node-- {
		var out []int

		for _, parent := range base.Parents(node) {
			if keep(parent) {
				out = append(out, parent)

				continue
			}

			out = append(out, nearest[parent]...)
		}

		slices.Sort(out)
		nearest[node] = slices.Compact(out)
	}

	cg := &CollapsedGraph{base: base}

	var rows []int

	for node := range n {
		if keep(node) {
			rows = append(rows, node)
		}
	}

	cg.setRows(rows, func(node int) []int { return nearest[node] })

	return cg
}

func (cg *CollapsedGraph) setRows(rows []int, parentsOf func(node int) []int) {
	cg.rows = rows
	cg.rowOf = make(map[int]int, len(rows))

	for row, node := range rows {
		cg.rowOf[node] = row
	}

	cg.down = make([][]int, len(rows))
	cg.up = make([][]int, len(rows))

	for row, node := range rows {
		for _, parent := range parentsOf(node) {
			parentRow, ok := cg.rowOf[parent]
			if !ok {
				continue
			}

			cg.down[row] = append(cg.down[row], parentRow)
			cg.up[parentRow] = append(cg.up[parentRow], row)
		}
	}
}

// Base returns the permanent graph under the view.
func (cg *CollapsedGraph) Base() *Graph {
	return cg.base
}

// Len returns the number of rows.
func (cg *CollapsedGraph) Len() int {
	return len(cg.rows)
}

// NodeID returns the permanent node shown at row.
func (cg *CollapsedGraph) NodeID(row int) int {
	return cg.rows[row]
}

// Row returns the row showing node, if the node is visible.
func (cg *CollapsedGraph) Row(node int) (int, bool) {
	row, ok := cg.rowOf[node]

	return row, ok
}

// Nodes returns the visible permanent nodes in row order.
func (cg *CollapsedGraph) Nodes() []int {
	return slices.Clone(cg.rows)
}

// Down implements [Adjacency]: the parent rows of row, ascending.
func (cg *CollapsedGraph) Down(row int) []int {
	return cg.down[row]
}

// Up implements [Adjacency]: the child rows of row, ascending.
func (cg *CollapsedGraph) Up(row int) []int {
	return cg.up[row]
}

// Modify runs fn against a draft of the view. If fn returns nil the draft
// replaces the view, otherwise the view is left untouched and the error is
// returned.
func (cg *CollapsedGraph) Modify(fn func(e *Edit) error) error {
	edit := &Edit{
		graph:  cg,
		down:   cloneLists(cg.down),
		up:     cloneLists(cg.up),
		hidden: make([]bool, len(cg.rows)),
	}

	if err := fn(edit); err != nil {
		return err
	}

	edit.commit()

	return nil
}

func cloneLists(lists [][]int) [][]int {
	out := make([][]int, len(lists))
	for i, list := range lists {
		out[i] = slices.Clone(list)
	}

	return out
}

// Edit is a draft of a [CollapsedGraph]. Rows keep the numbering they had when
// the edit started, hidden rows included; the view is renumbered on commit.
type Edit struct {
	graph   *CollapsedGraph
	down    [][]int
	up      [][]int
	hidden  []bool
	nHidden int
}

// Len returns the number of rows at the start of the edit.
func (e *Edit) Len() int {
	return len(e.hidden)
}

// NodeID returns the permanent node of row.
func (e *Edit) NodeID(row int) int {
	return e.graph.rows[row]
}

// Hidden reports whether row was hidden in this edit.
func (e *Edit) Hidden(row int) bool {
	return e.hidden[row]
}

// HiddenCount returns the number of rows hidden so far.
func (e *Edit) HiddenCount() int {
	return e.nHidden
}

// Down implements [Adjacency] over the draft.
func (e *Edit) Down(row int) []int {
	return e.down[row]
}

// Up implements [Adjacency] over the draft.
func (e *Edit) Up(row int) []int {
	return e.up[row]
}

func (e *Edit) alive(row int) bool {
	return row >= 0 && row < len(e.hidden) && !e.hidden[row]
}

// HideRow removes row and every edge touching it.
func (e *Edit) HideRow(row int) error {
	if !e.alive(row) {
		return fmt.Errorf("%w: hide row %d", ErrStructuralInconsistency, row)
	}

	for _, parent := range e.down[row] {
		e.up[parent] = removeValue(e.up[parent], row)
	}

	for _, child := range e.up[row] {
		e.down[child] = removeValue(e.down[child], row)
	}

	e.down[row] = nil
	e.up[row] = nil
	e.hidden[row] = true
	e.nHidden++

	return nil
}

// ConnectRows adds the edge childRow -> parentRow unless it already exists.
func (e *Edit) ConnectRows(childRow, parentRow int) error {
	if !e.alive(childRow) || !e.alive(parentRow) {
		return fmt.Errorf("%w: connect rows %d -> %d", ErrStructuralInconsistency, childRow, parentRow)
	}

	if childRow >= parentRow {
		return fmt.Errorf("%w: connect rows %d -> %d", ErrNotTopological, childRow, parentRow)
	}

	e.down[childRow] = insertSorted(e.down[childRow], parentRow)
	e.up[parentRow] = insertSorted(e.up[parentRow], childRow)

	return nil
}

func (e *Edit) commit() {
	if e.nHidden == 0 {
		e.graph.down = e.down
		e.graph.up = e.up

		return
	}

	cg := e.graph
	oldRows, oldRowOf := cg.rows, cg.rowOf
	rows := make([]int, 0, len(oldRows)-e.nHidden)

	for row, node := range oldRows {
		if !e.hidden[row] {
			rows = append(rows, node)
		}
	}

	cg.setRows(rows, func(node int) []int {
		parentRows := e.down[oldRowOf[node]]
		parents := make([]int, len(parentRows))

		for i, parentRow := range parentRows {
			parents[i] = oldRows[parentRow]
		}

		return parents
	})
}

func removeValue(list []int, value int) []int {
	return slices.DeleteFunc(list, func(v int) bool { return v == value })
}

func insertSorted(list []int, value int) []int {
	idx, found := slices.BinarySearch(list, value)
	if found {
		return list
	}

	return slices.Insert(list, idx, value)
}
