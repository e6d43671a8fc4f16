package internal

import (
	"fmt"
	"io"
	"iter"
	"strings"
)

// SnapshotNode is one frozen node of a TreeSnapshot.
type SnapshotNode struct {
	Task     Task
	Parent   int // -1 for the root
	Children []int
	Data     NodeData
}

// TreeSnapshot is an immutable copy of a Tree. Nodes refer to each other by index.
type TreeSnapshot struct {
	nodes []SnapshotNode
	index map[TaskID]int
}

func (t *Tree) Snapshot() *TreeSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := &TreeSnapshot{
		nodes: make([]SnapshotNode, len(t.nodes)),
		index: make(map[TaskID]int, len(t.nodes)),
	}
	for i, n := range t.nodes {
		s.nodes[i] = SnapshotNode{
			Task:     n.task,
			Parent:   n.parent,
			Children: append([]int(nil), n.children...),
			Data:     n.data.clone(),
		}
		s.index[n.task.ID] = i
	}
	return s
}

func (s *TreeSnapshot) Len() int {
	return len(s.nodes)
}

func (s *TreeSnapshot) Root() SnapshotNode {
	return s.nodes[0]
}

func (s *TreeSnapshot) At(i int) SnapshotNode {
	return s.nodes[i]
}

func (s *TreeSnapshot) Lookup(id TaskID) (int, bool) {
	i, ok := s.index[id]
	return i, ok
}

func (s *TreeSnapshot) Children(i int) iter.Seq[int] {
	return func(yield func(int) bool) {
		for _, child := range s.nodes[i].Children {
			if !yield(child) {
				return
			}
		}
	}
}

// Validate checks the arborescence invariant: a single root at index 0,
// a unique parent per node and every node reachable from the root exactly once.
func (s *TreeSnapshot) Validate() error {
	if len(s.nodes) == 0 {
		return fmt.Errorf("%w: empty tree", ErrNotArborescence)
	}

	for i, n := range s.nodes {
		switch {
		case i == 0 && n.Parent != -1:
			return fmt.Errorf("%w: root %s has a parent", ErrNotArborescence, n.Task)
		case i != 0 && (n.Parent < 0 || n.Parent >= len(s.nodes)):
			return fmt.Errorf("%w: %s has no parent", ErrNotArborescence, n.Task)
		}
	}

	seen := make([]bool, len(s.nodes))
	stack := []int{0}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if seen[i] {
			return fmt.Errorf("%w: %s is reachable twice", ErrNotArborescence, s.nodes[i].Task)
		}
		seen[i] = true

		for child := range s.Children(i) {
			if s.nodes[child].Parent != i {
				return fmt.Errorf("%w: %s lists %s as child", ErrNotArborescence, s.nodes[i].Task, s.nodes[child].Task)
			}
			stack = append(stack, child)
		}
	}

	for i, ok := range seen {
		if !ok {
			return fmt.Errorf("%w: %s is unreachable from the root", ErrNotArborescence, s.nodes[i].Task)
		}
	}
	return nil
}

// Pretty writes one indented line per task, children below their parent.
func (s *TreeSnapshot) Pretty(w io.Writer) error {
	return s.pretty(w, 0, 0)
}

func (s *TreeSnapshot) pretty(w io.Writer, i, level int) error {
	if _, err := fmt.Fprintf(w, "%s%s\n", strings.Repeat("    ", level), s.nodes[i].Task); err != nil {
		return err
	}
	for child := range s.Children(i) {
		if err := s.pretty(w, child, level+1); err != nil {
			return err
		}
	}
	return nil
}
