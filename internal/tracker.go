package internal

import (
	"sync"

	"github.com/petermattis/goid"
)

// Tracker binds goroutines to the task they currently run.
type Tracker struct {
	bindings sync.Map // goroutine id -> Task
}

func NewTracker() *Tracker {
	return &Tracker{}
}

func (t *Tracker) Current() (Task, bool) {
	if v, ok := t.bindings.Load(goid.Get()); ok {
		return v.(Task), true
	}
	return Task{}, false
}

// RunWithTask binds the calling goroutine to task while fn runs.
// The previous binding (if any) is restored afterwards, so nested runs behave like a stack.
func (t *Tracker) RunWithTask(task Task, fn func() error) error {
	gid := goid.Get()

	prev, hadPrev := t.bindings.Load(gid)
	t.bindings.Store(gid, task)
	defer func() {
		if hadPrev {
			t.bindings.Store(gid, prev)
		} else {
			t.bindings.Delete(gid)
		}
	}()

	return fn()
}
