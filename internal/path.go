package internal

import (
	"fmt"
	"iter"
	"sync/atomic"
)

var nextKey atomic.Uint64

// Key identifies one kind of instance stored in node data.
type Key struct {
	id   uint64
	name string
}

func NewKey(name string) Key {
	return Key{id: nextKey.Add(1), name: name}
}

func (k Key) ID() uint64 {
	return k.id
}

func (k Key) String() string {
	return k.name
}

// RootPath returns the current task followed by all its ancestors, up to and including the root task.
// It scans the live tasks once, so it runs in O(N) for N live tasks.
func (r *Runtime) RootPath() ([]Task, error) {
	current, ok := r.registry.Current()
	if !ok {
		return nil, ErrNoTask
	}

	live := r.registry.Live()
	byID := make(map[TaskID]Task, len(live))
	for _, task := range live {
		byID[task.ID] = task
	}

	path := []Task{current}
	for task := current; !task.IsRoot(); {
		parent, ok := byID[task.ParentID]
		if !ok {
			return nil, fmt.Errorf("%w: parent %d of %s is not running", ErrBrokenTaskGraph, task.ParentID, task)
		}
		if len(path) > len(byID) {
			return nil, fmt.Errorf("%w: cycle through %s", ErrBrokenTaskGraph, task)
		}

		path = append(path, parent)
		task = parent
	}

	return path, nil
}

// TreeAndPath returns the innermost tree on the path of the current task,
// together with the path from that tree's root to the current task.
func (r *Runtime) TreeAndPath() (*Tree, []Task, error) {
	nodeToRoot, err := r.RootPath()
	if err != nil {
		return nil, nil, err
	}
	return r.forest.Innermost(nodeToRoot)
}

// AddRootPath makes sure the current task (and every task above it) is part of its tree.
func (r *Runtime) AddRootPath() (*Tree, []Task, error) {
	tree, path, err := r.TreeAndPath()
	if err != nil {
		return nil, nil, err
	}
	if err := tree.AddPath(path); err != nil {
		return nil, nil, err
	}
	return tree, path, nil
}

// CurrentTree returns the tree of the current task and the task itself.
func (r *Runtime) CurrentTree() (*Tree, Task, error) {
	tree, path, err := r.AddRootPath()
	if err != nil {
		return nil, Task{}, err
	}
	return tree, path[len(path)-1], nil
}

// pathData yields node data from the current task up to the root.
func pathData(tree *Tree, path []Task) iter.Seq2[Task, NodeData] {
	return func(yield func(Task, NodeData) bool) {
		for i := len(path) - 1; i >= 0; i-- {
			data, ok := tree.NodeData(path[i].ID)
			if !ok {
				continue
			}
			if !yield(path[i], data) {
				return
			}
		}
	}
}

// FirstInstance returns the value for key closest to the current task.
func (r *Runtime) FirstInstance(key Key) (any, error) {
	tree, path, err := r.AddRootPath()
	if err != nil {
		return nil, err
	}

	for _, data := range pathData(tree, path) {
		if v, ok := data.Instance(key.id); ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
}

// AllInstances returns every value for key on the path, closest to the current task first.
func (r *Runtime) AllInstances(key Key) ([]any, error) {
	tree, path, err := r.AddRootPath()
	if err != nil {
		return nil, err
	}

	var values []any
	for _, data := range pathData(tree, path) {
		if v, ok := data.Instance(key.id); ok {
			values = append(values, v)
		}
	}
	return values, nil
}

// SetInstance stores v for key on the current task.
func (r *Runtime) SetInstance(key Key, v any) error {
	tree, task, err := r.CurrentTree()
	if err != nil {
		return err
	}
	return tree.Mutate(task.ID, func(d *NodeData) { d.SetInstance(key.id, v) })
}

func (r *Runtime) DeleteInstance(key Key) error {
	tree, task, err := r.CurrentTree()
	if err != nil {
		return err
	}
	return tree.Mutate(task.ID, func(d *NodeData) { d.DeleteInstance(key.id) })
}

// OwnInstance returns the value for key stored on the current task itself, ignoring its ancestors.
func (r *Runtime) OwnInstance(key Key) (any, bool, error) {
	tree, task, err := r.CurrentTree()
	if err != nil {
		return nil, false, err
	}

	data, _ := tree.NodeData(task.ID)
	v, ok := data.Instance(key.id)
	return v, ok, nil
}
