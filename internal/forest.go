package internal

import (
	"fmt"
	"sync"
)

// Forest maps each planting task to the tree it planted.
// It is only locked when trees are planted, released or looked up.
type Forest struct {
	mu sync.Mutex

	trees   map[TaskID]*Tree
	metrics *Metrics
}

func NewForest(metrics *Metrics) *Forest {
	return &Forest{
		trees:   make(map[TaskID]*Tree),
		metrics: metrics,
	}
}

func (f *Forest) Plant(root Task) (*Tree, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.trees[root.ID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyPlanted, root)
	}

	tree := NewTree(root, f.metrics)
	f.trees[root.ID] = tree
	f.metrics.treePlanted()
	return tree, nil
}

// Release unregisters tree and closes its change broadcast. Releasing twice is a no-op.
func (f *Forest) Release(tree *Tree) {
	root := tree.Root()

	f.mu.Lock()
	registered, ok := f.trees[root.ID]
	if ok && registered == tree {
		delete(f.trees, root.ID)
		f.metrics.treeReleased()
	}
	f.mu.Unlock()

	tree.Close()
}

func (f *Forest) Lookup(root TaskID) (*Tree, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tree, ok := f.trees[root]
	return tree, ok
}

func (f *Forest) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.trees)
}

// Innermost returns the tree planted closest to the start of nodeToRoot,
// together with the path from that tree's root down to the node.
func (f *Forest) Innermost(nodeToRoot []Task) (*Tree, []Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, task := range nodeToRoot {
		tree, ok := f.trees[task.ID]
		if !ok {
			continue
		}

		path := make([]Task, 0, i+1)
		for j := i; j >= 0; j-- {
			path = append(path, nodeToRoot[j])
		}
		return tree, path, nil
	}

	return nil, nil, ErrNoTaskTree
}
