package internal

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

var _ Registry = (*Scheduler)(nil)

// Scheduler runs tasks on goroutines and keeps track of the live ones.
type Scheduler struct {
	mu sync.RWMutex

	tracker *Tracker
	live    map[TaskID]Task
	nextID  atomic.Int64
	logger  *slog.Logger
}

func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Scheduler{
		tracker: NewTracker(),
		live:    make(map[TaskID]Task),
		logger:  logger,
	}
}

func (s *Scheduler) Current() (Task, bool) {
	return s.tracker.Current()
}

func (s *Scheduler) Live() []Task {
	s.mu.RLock()
	tasks := make([]Task, 0, len(s.live))
	for _, task := range s.live {
		tasks = append(tasks, task)
	}
	s.mu.RUnlock()

	slices.SortFunc(tasks, func(a, b Task) int { return cmp.Compare(a.ID, b.ID) })
	return tasks
}

// Run executes fn as a new task on the calling goroutine.
// The new task is a child of the task already bound to this goroutine, or a root task otherwise.
func (s *Scheduler) Run(name string, fn func() error) error {
	parent, _ := s.Current()
	return s.run(name, parent.ID, fn)
}

func (s *Scheduler) run(name string, parent TaskID, fn func() error) (err error) {
	task := Task{
		ID:       TaskID(s.nextID.Add(1)),
		Name:     name,
		ParentID: parent,
	}

	s.mu.Lock()
	s.live[task.ID] = task
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.live, task.ID)
		s.mu.Unlock()
	}()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("task panic", slog.String("task", task.String()), slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
			err = fmt.Errorf("task %s panicked: %v", task, r)
		}
	}()

	return s.tracker.RunWithTask(task, fn)
}

// Group is a structured set of child tasks.
// The spawning task must stay alive (i.e. call Wait) while its children run,
// otherwise the children can no longer resolve their path to the root.
type Group struct {
	scheduler *Scheduler
	eg        *errgroup.Group
	ctx       context.Context
}

func (s *Scheduler) Group(ctx context.Context) (*Group, context.Context) {
	eg, ctx := errgroup.WithContext(ctx)
	return &Group{scheduler: s, eg: eg, ctx: ctx}, ctx
}

func (g *Group) SetLimit(n int) {
	g.eg.SetLimit(n)
}

// Go spawns fn as a child task of the calling task.
func (g *Group) Go(name string, fn func(ctx context.Context) error) {
	parent, _ := g.scheduler.Current()

	g.eg.Go(func() error {
		return g.scheduler.run(name, parent.ID, func() error { return fn(g.ctx) })
	})
}

func (g *Group) Wait() error {
	return g.eg.Wait()
}
