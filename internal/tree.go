package internal

import (
	"fmt"
	"maps"
	"sync"
)

// NodeData is the per-task store attached to a tree node.
// Only the owning task writes it; any task on a path through the node may read it.
type NodeData struct {
	// Section is the latest frozen section snapshot of the task (if any).
	Section *Section

	instances map[uint64]any
}

func (d NodeData) Instance(key uint64) (any, bool) {
	v, ok := d.instances[key]
	return v, ok
}

func (d *NodeData) SetInstance(key uint64, v any) {
	if d.instances == nil {
		d.instances = make(map[uint64]any)
	}
	d.instances[key] = v
}

func (d *NodeData) DeleteInstance(key uint64) {
	delete(d.instances, key)
}

func (d NodeData) clone() NodeData {
	d.instances = maps.Clone(d.instances)
	return d
}

type node struct {
	task     Task
	parent   int // index into the arena, -1 for the root
	children []int
	data     NodeData

	// live section state, touched by the owning task only
	section *mutableSection
}

// Tree is an arborescence of tasks rooted at the task that planted it.
// Nodes live in an arena and refer to each other by index.
type Tree struct {
	mu sync.RWMutex

	nodes  []node
	index  map[TaskID]int
	closed bool

	changes *Broadcast[*TreeSnapshot]
}

func NewTree(root Task, metrics *Metrics) *Tree {
	t := &Tree{
		nodes:   []node{{task: root, parent: -1}},
		index:   map[TaskID]int{root.ID: 0},
		changes: NewBroadcast[*TreeSnapshot]("tree", metrics),
	}
	t.publish()
	return t
}

func (t *Tree) Root() Task {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nodes[0].task
}

func (t *Tree) Contains(id TaskID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.index[id]
	return ok
}

// AddPath inserts every edge of a root-to-node path. It is a no-op (and publishes nothing)
// when the path is already part of the tree. A path that would break the arborescence is
// rejected as a whole.
func (t *Tree) AddPath(path []Task) error {
	if len(path) == 0 {
		return nil
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrTreeClosed
	}
	changed, err := t.addPath(path)
	t.mu.Unlock()

	if changed {
		t.publish()
	}
	return err
}

func (t *Tree) addPath(path []Task) (bool, error) {
	root := t.nodes[0].task
	if path[0].ID != root.ID {
		return false, fmt.Errorf("%w: path starts at %s but the root is %s", ErrNotArborescence, path[0], root)
	}

	// the whole path is checked before the arena changes
	added := make(map[TaskID]bool)
	for i := 1; i < len(path); i++ {
		parent, child := path[i-1], path[i]

		if idx, ok := t.index[child.ID]; ok {
			p := t.nodes[idx].parent
			if p < 0 || t.nodes[p].task.ID != parent.ID {
				return false, fmt.Errorf("%w: %s would get a second parent %s", ErrNotArborescence, child, parent)
			}
			continue
		}
		if added[child.ID] {
			return false, fmt.Errorf("%w: %s appears twice on the path", ErrNotArborescence, child)
		}
		added[child.ID] = true
	}
	if len(added) == 0 {
		return false, nil
	}

	for i := 1; i < len(path); i++ {
		parent := t.index[path[i-1].ID]
		child := path[i]
		if _, ok := t.index[child.ID]; ok {
			continue
		}

		t.nodes = append(t.nodes, node{task: child, parent: parent})
		idx := len(t.nodes) - 1
		t.index[child.ID] = idx
		t.nodes[parent].children = append(t.nodes[parent].children, idx)
	}

	return true, nil
}

// NodeData returns a copy of the data attached to the given task.
func (t *Tree) NodeData(id TaskID) (NodeData, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	idx, ok := t.index[id]
	if !ok {
		return NodeData{}, false
	}
	return t.nodes[idx].data.clone(), true
}

// Mutate gives fn write access to the data of the given task and publishes one change afterwards.
// It returns ErrTreeClosed once the tree is closed.
func (t *Tree) Mutate(id TaskID, fn func(*NodeData)) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrTreeClosed
	}
	idx, ok := t.index[id]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("task %d is not part of the task tree", id)
	}

	defer t.publish()
	defer t.mu.Unlock()

	fn(&t.nodes[idx].data)
	return nil
}

func (t *Tree) Subscribe(seed Seed) (*Subscription[*TreeSnapshot], error) {
	return t.changes.Subscribe(seed)
}

func (t *Tree) Changes() *Broadcast[*TreeSnapshot] {
	return t.changes
}

// Close releases the change broadcast, closing every subscriber channel.
// Later writes fail with ErrTreeClosed.
func (t *Tree) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()

	t.changes.Close()
}

func (t *Tree) mutableSection(id TaskID) *mutableSection {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if idx, ok := t.index[id]; ok {
		return t.nodes[idx].section
	}
	return nil
}

func (t *Tree) setMutableSection(id TaskID, s *mutableSection) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if idx, ok := t.index[id]; ok {
		t.nodes[idx].section = s
	}
}

func (t *Tree) publish() {
	// a Close racing with a write turns this into a no-op
	_ = t.changes.Publish(t.Snapshot())
}
