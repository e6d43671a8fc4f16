package tasktree

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/AnatoleLucet/tasktree/internal"
)

func as[T any](v any) T {
	if v == nil {
		var zero T
		return zero
	}

	return v.(T)
}

type (
	Task         = internal.Task
	TaskID       = internal.TaskID
	Registry     = internal.Registry
	Group        = internal.Group
	Tree         = internal.Tree
	NodeData     = internal.NodeData
	TreeSnapshot = internal.TreeSnapshot
	SnapshotNode = internal.SnapshotNode

	Section       = internal.Section
	SectionOption = internal.SectionOption
	Hint          = internal.Hint
	Interval      = internal.Interval

	Project         = internal.Project
	ProjectDatabase = internal.ProjectDatabase
	TrailConfig     = internal.TrailConfig
	Trail           = internal.Trail
	TrailSection    = internal.TrailSection
	Outline         = internal.Outline

	Seed                = internal.Seed
	Broadcast[T any]    = internal.Broadcast[T]
	Subscription[T any] = internal.Subscription[T]

	Option  = internal.Option
	Metrics = internal.Metrics
)

const (
	SeedLatest = internal.SeedLatest
	SeedFirst  = internal.SeedFirst
	SeedNone   = internal.SeedNone

	HintMayEndEarly            = internal.HintMayEndEarly
	HintIndeterminateIndicator = internal.HintIndeterminateIndicator
)

var (
	ErrNoTask               = internal.ErrNoTask
	ErrNoTaskTree           = internal.ErrNoTaskTree
	ErrAlreadyPlanted       = internal.ErrAlreadyPlanted
	ErrNoScheduler          = internal.ErrNoScheduler
	ErrBroadcastClosed      = internal.ErrBroadcastClosed
	ErrTreeClosed           = internal.ErrTreeClosed
	ErrDuplicateSectionName = internal.ErrDuplicateSectionName
	ErrSectionAlreadyActive = internal.ErrSectionAlreadyActive
	ErrNoSection            = internal.ErrNoSection
	ErrTimingScopeInUse     = internal.ErrTimingScopeInUse
	ErrBrokenTaskGraph      = internal.ErrBrokenTaskGraph
	ErrNotArborescence      = internal.ErrNotArborescence
	ErrTrailOverlap         = internal.ErrTrailOverlap
	ErrNotNested            = internal.ErrNotNested
	ErrInvalidInterval      = internal.ErrInvalidInterval
	ErrNotFound             = internal.ErrNotFound
	ErrTimeout              = internal.ErrTimeout
)

var (
	WithRegistry = internal.WithRegistry
	WithClock    = internal.WithClock
	WithLogger   = internal.WithLogger
	WithTracer   = internal.WithTracer
	WithMetrics  = internal.WithMetrics

	WithPlannedDuration = internal.WithPlannedDuration
	WithHints           = internal.WithHints

	MustNewMetrics     = internal.MustNewMetrics
	NewProjectDatabase = internal.NewProjectDatabase
	TreeToProjects     = internal.TreeToProjects
	ProjectsToTrail    = internal.ProjectsToTrail
	NewTrail           = internal.NewTrail
	ClosedOpen         = internal.ClosedOpen
	Between            = internal.Between
)

// NewBroadcast creates a broadcast channel. metrics may be nil.
func NewBroadcast[T any](name string, metrics *Metrics) *Broadcast[T] {
	return internal.NewBroadcast[T](name, metrics)
}

type Runtime struct {
	rt *internal.Runtime
}

// New creates a runtime with its own goroutine scheduler and forest of trees.
func New(opts ...Option) *Runtime {
	return &Runtime{internal.NewRuntime(opts...)}
}

// Default returns the process-wide runtime.
func Default() *Runtime {
	return &Runtime{internal.Default()}
}

func (r *Runtime) Registry() Registry { return r.rt.Registry() }

// Now reads the runtime clock.
func (r *Runtime) Now() time.Time { return r.rt.Now() }

func (r *Runtime) Logger() *slog.Logger { return r.rt.Logger() }

// Run executes fn as a new task on the calling goroutine.
// The task is a child of the task already running on this goroutine, if any.
func (r *Runtime) Run(name string, fn func() error) error { return r.rt.Run(name, fn) }

// Group starts a structured set of child tasks of the calling task.
func (r *Runtime) Group(ctx context.Context) (*Group, context.Context, error) {
	return r.rt.Group(ctx)
}

// Plant registers a new task tree rooted at the calling task.
// The tree must be released with Unplant once the task is done.
func (r *Runtime) Plant() (*Tree, error) { return r.rt.Plant() }

// Unplant releases a tree, closing its change stream.
func (r *Runtime) Unplant(tree *Tree) { r.rt.Unplant(tree) }

// Planted plants a tree at the calling task, runs fn and always releases the tree.
func (r *Runtime) Planted(fn func(*Tree) error) error { return r.rt.Planted(fn) }

// RootPath returns the calling task followed by all its ancestors.
func (r *Runtime) RootPath() ([]Task, error) { return r.rt.RootPath() }

// AddRootPath adds the calling task, and every task above it, to the innermost planted tree.
func (r *Runtime) AddRootPath() (*Tree, []Task, error) { return r.rt.AddRootPath() }

// EnterSection opens a named section on the calling task.
func (r *Runtime) EnterSection(name string, opts ...SectionOption) error {
	return r.rt.EnterSection(name, opts...)
}

// ExitSection closes the innermost open section of the calling task.
func (r *Runtime) ExitSection() error { return r.rt.ExitSection() }

// Section runs fn inside a named section, which is always closed afterwards.
func (r *Runtime) Section(name string, fn func() error, opts ...SectionOption) error {
	return r.rt.Section(name, fn, opts...)
}

// CurrentSection returns the latest snapshot of the calling task's sections.
func (r *Runtime) CurrentSection() (Section, error) { return r.rt.CurrentSection() }

// FailAfter cancels fn once limit passes and reports the timeout as an error.
func (r *Runtime) FailAfter(ctx context.Context, limit time.Duration, fn func(context.Context) error) error {
	return r.rt.FailAfter(ctx, limit, fn)
}

// WaitExactly takes exactly limit: slow work is cancelled, fast work is followed by a wait.
func (r *Runtime) WaitExactly(ctx context.Context, limit time.Duration, fn func(context.Context) error) error {
	return r.rt.WaitExactly(ctx, limit, fn)
}

// WarnAfter logs a warning when fn takes longer than limit.
func (r *Runtime) WarnAfter(limit time.Duration, fn func() error) error {
	return r.rt.WarnAfter(limit, fn)
}

// SleepFor sleeps inside the current section, marking it as planned for d.
func (r *Runtime) SleepFor(ctx context.Context, d time.Duration) error {
	return r.rt.SleepFor(ctx, d)
}

// Synthesize merges the sections of every task in snap into a single trail.
func (r *Runtime) Synthesize(snap *TreeSnapshot, cfg TrailConfig) (Trail, error) {
	return r.rt.Synthesize(snap, cfg)
}

// TrailConfig returns the trail configuration closest to the calling task.
func (r *Runtime) TrailConfig() TrailConfig { return r.rt.TrailConfig() }

// OutlineFeed publishes an outline for every change of tree until ctx is done or the tree closes.
func (r *Runtime) OutlineFeed(ctx context.Context, tree *Tree, cfg TrailConfig) (*Broadcast[Outline], error) {
	return r.rt.OutlineFeed(ctx, tree, cfg)
}

// Key identifies a kind of value stored on the tasks of a tree.
type Key[T any] struct {
	key internal.Key
}

// NewKey creates a new, distinct key. Two keys with the same name are still different keys.
func NewKey[T any](name string) Key[T] {
	return Key[T]{internal.NewKey(name)}
}

func (k Key[T]) String() string { return k.key.String() }

// TrailConfigKey scopes a TrailConfig to a task and its descendants.
var TrailConfigKey = Key[TrailConfig]{internal.TrailConfigKey}

// FirstInstance returns the value for key closest to the calling task (the task itself first,
// then its parent, and so on up to the root of the tree).
func FirstInstance[T any](r *Runtime, key Key[T]) (T, error) {
	v, err := r.rt.FirstInstance(key.key)
	if err != nil {
		var zero T
		return zero, err
	}
	return as[T](v), nil
}

// AllInstances returns every value for key on the path from the calling task to the root,
// closest first.
func AllInstances[T any](r *Runtime, key Key[T]) ([]T, error) {
	values, err := r.rt.AllInstances(key.key)
	if err != nil {
		return nil, err
	}

	typed := make([]T, len(values))
	for i, v := range values {
		typed[i] = as[T](v)
	}
	return typed, nil
}

// SetInstance stores v for key on the calling task.
func SetInstance[T any](r *Runtime, key Key[T], v T) error {
	return r.rt.SetInstance(key.key, v)
}

// Fetch returns the first instance of key, producing and storing one on the calling task
// if there is none.
func Fetch[T any](r *Runtime, key Key[T], produce func() (T, error)) (T, error) {
	v, err := FirstInstance(r, key)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return v, err
	}

	if v, err = produce(); err != nil {
		return v, err
	}
	return v, SetInstance(r, key, v)
}

// Override stores v for key on the calling task while fn runs, then restores the previous value.
func Override[T any](r *Runtime, key Key[T], v T, fn func() error) (err error) {
	prev, hadPrev, err := r.rt.OwnInstance(key.key)
	if err != nil {
		return err
	}
	if err := r.rt.SetInstance(key.key, v); err != nil {
		return err
	}

	defer func() {
		var restoreErr error
		if hadPrev {
			restoreErr = r.rt.SetInstance(key.key, prev)
		} else {
			restoreErr = r.rt.DeleteInstance(key.key)
		}
		if err == nil {
			err = restoreErr
		}
	}()

	return fn()
}
