package internal

import "fmt"

type TaskID int64

// Task is the scheduler's view of one concurrently running unit of work.
type Task struct {
	ID       TaskID
	Name     string
	ParentID TaskID // 0 for root tasks
}

func (t Task) IsRoot() bool {
	return t.ParentID == 0
}

func (t Task) String() string {
	if t.Name == "" {
		return fmt.Sprintf("task-%d", t.ID)
	}
	return fmt.Sprintf("%s(%d)", t.Name, t.ID)
}

// Registry exposes the live tasks of a host scheduler.
type Registry interface {
	// Current returns the task bound to the calling goroutine.
	Current() (Task, bool)

	// Live returns every task that is currently running.
	Live() []Task
}
