package internal

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Runtime ties together the task registry, the planted trees and the ambient services
// (clock, logger, tracer, metrics) used by sections and trail synthesis.
type Runtime struct {
	registry  Registry
	scheduler *Scheduler
	forest    *Forest

	now     func() time.Time
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *Metrics
}

type Option func(*Runtime)

// WithRegistry replaces the built-in goroutine scheduler with another task registry.
func WithRegistry(registry Registry) Option {
	return func(r *Runtime) {
		r.registry = registry
		r.scheduler = nil
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Runtime) { r.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) { r.logger = logger }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(r *Runtime) { r.tracer = tracer }
}

func WithMetrics(metrics *Metrics) Option {
	return func(r *Runtime) { r.metrics = metrics }
}

func NewRuntime(opts ...Option) *Runtime {
	r := &Runtime{
		now:    func() time.Time { return time.Now().UTC() },
		logger: slog.New(slog.DiscardHandler),
		tracer: noop.NewTracerProvider().Tracer("tasktree"),
	}

	scheduler := NewScheduler(nil)
	r.registry, r.scheduler = scheduler, scheduler

	for _, opt := range opts {
		opt(r)
	}

	if r.scheduler != nil {
		r.scheduler.logger = r.logger
	}
	r.forest = NewForest(r.metrics)

	return r
}

func (r *Runtime) Now() time.Time {
	return r.now()
}

func (r *Runtime) Logger() *slog.Logger {
	return r.logger
}

func (r *Runtime) Registry() Registry {
	return r.registry
}

func (r *Runtime) Forest() *Forest {
	return r.forest
}

// Run executes fn as a task on the calling goroutine.
func (r *Runtime) Run(name string, fn func() error) error {
	if r.scheduler == nil {
		return ErrNoScheduler
	}
	return r.scheduler.Run(name, fn)
}

// Group starts a structured set of child tasks of the calling task.
func (r *Runtime) Group(ctx context.Context) (*Group, context.Context, error) {
	if r.scheduler == nil {
		return nil, ctx, ErrNoScheduler
	}
	g, ctx := r.scheduler.Group(ctx)
	return g, ctx, nil
}

// Plant registers a new tree rooted at the calling task.
func (r *Runtime) Plant() (*Tree, error) {
	current, ok := r.registry.Current()
	if !ok {
		return nil, ErrNoTask
	}

	tree, err := r.forest.Plant(current)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("planted task tree", slog.String("root", current.String()))
	return tree, nil
}

// Unplant releases a tree returned by Plant.
func (r *Runtime) Unplant(tree *Tree) {
	r.forest.Release(tree)
	r.logger.Debug("released task tree", slog.String("root", tree.Root().String()))
}

// Planted plants a tree, runs fn and always releases the tree afterwards.
func (r *Runtime) Planted(fn func(*Tree) error) error {
	tree, err := r.Plant()
	if err != nil {
		return err
	}
	defer r.Unplant(tree)

	return fn(tree)
}
