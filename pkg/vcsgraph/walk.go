package vcsgraph

import "slices"

// Adjacency is a topologically ordered graph: Down neighbors (parents) always
// have larger indices than the node itself, Up neighbors (children) smaller.
// Both [Graph] (node ids) and the collapsed views (rows) implement it.
type Adjacency interface {
	Len() int
	Down(node int) []int
	Up(node int) []int
}

// Visitor receives DFS events from [Walk].
// Enter is called with previous == NoNode for the walk root.
type Visitor struct {
	Enter func(current, previous int, down bool)
	Exit  func(node int)
}

// Walk runs an iterative depth-first traversal from start over both edge
// directions, preferring parents over children at every step. Each node
// reachable from start is entered exactly once, and exited after all nodes
// discovered from it.
func Walk(g Adjacency, start int, visitor Visitor) {
	visited := NewFlags(g.Len())
	stack := []int{start}

	visited.Set(start)
	visitor.Enter(start, NoNode, false)

	for len(stack) > 0 {
		current := stack[len(stack)-1]

		next, down := nextUnvisited(g, current, visited)
		if next == NoNode {
			stack = stack[:len(stack)-1]

			if visitor.Exit != nil {
				visitor.Exit(current)
			}

			continue
		}

		visited.Set(next)
		visitor.Enter(next, current, down)

		stack = append(stack, next)
	}
}

func nextUnvisited(g Adjacency, node int, visited *Flags) (int, bool) {
	for _, parent := range g.Down(node) {
		if !visited.Get(parent) {
			return parent, true
		}
	}

	for _, child := range g.Up(node) {
		if !visited.Get(child) {
			return child, false
		}
	}

	return NoNode, false
}

// IsAncestor reports whether ancestor is reachable from descendant by
// following parent edges. A node is its own ancestor. scratch is cleared
// and reused as the visited set; it must hold at least g.Len() bits.
func IsAncestor(g Adjacency, ancestor, descendant int, scratch *Flags) bool {
	if ancestor == descendant {
		return true
	}

	if ancestor < descendant {
		return false
	}

	scratch.Clear()

	stack := []int{descendant}
	scratch.Set(descendant)

	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, parent := range g.Down(node) {
			if parent == ancestor {
				return true
			}

			// Parents only grow in index, so anything past ancestor is a dead end.
			if parent > ancestor || scratch.Get(parent) {
				continue
			}

			scratch.Set(parent)
			stack = append(stack, parent)
		}
	}

	return false
}

// CorrespondingParent returns the parent of child through which ancestor is
// reached. A single parent, or a parent equal to ancestor, is returned
// directly. When no parent leads to ancestor the first parent is returned, so
// the answer is always defined for nodes that have parents; NoNode is
// returned only for roots.
func CorrespondingParent(g Adjacency, child, ancestor int, scratch *Flags) int {
	parents := g.Down(child)

	switch len(parents) {
	case 0:
		return NoNode
	case 1:
		return parents[0]
	}

	if slices.Contains(parents, ancestor) {
		return ancestor
	}

	for _, parent := range parents {
		if IsAncestor(g, ancestor, parent, scratch) {
			return parent
		}
	}

	return parents[0]
}

// WalkAncestors visits start and its ancestors in increasing index order,
// i.e. nearest-in-log first, until fn returns false. scratch is cleared and
// reused to mark reachable nodes.
func WalkAncestors(g Adjacency, start int, scratch *Flags, fn func(node int) bool) {
	scratch.Clear()
	scratch.Set(start)

	for node := start; node < g.Len(); node++ {
		if !scratch.Get(node) {
			continue
		}

		if !fn(node) {
			return
		}

		for _, parent := range g.Down(node) {
			scratch.Set(parent)
		}
	}
}
