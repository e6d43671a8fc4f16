package internal

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

// at returns epoch + n seconds.
func at(n int) time.Time {
	return epoch.Add(time.Duration(n) * time.Second)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: epoch}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// staticRegistry is a Registry with a fixed set of tasks and a settable current task.
type staticRegistry struct {
	mu      sync.Mutex
	current Task
	bound   bool
	live    []Task
}

func (r *staticRegistry) Current() (Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current, r.bound
}

func (r *staticRegistry) Live() []Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Task(nil), r.live...)
}

func (r *staticRegistry) become(task Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current, r.bound = task, true
}

// planted runs fn as a root task with a tree planted on it.
func planted(t *testing.T, r *Runtime, fn func(tree *Tree)) {
	t.Helper()
	err := r.Run("root", func() error {
		return r.Planted(func(tree *Tree) error {
			fn(tree)
			return nil
		})
	})
	require.NoError(t, err)
}
