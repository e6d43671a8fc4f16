package internal

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Hint string

const (
	HintMayEndEarly            Hint = "may-end-early"
	HintIndeterminateIndicator Hint = "indeterminate-indicator"
)

// Section is the frozen, immutable snapshot of a task's section tree.
type Section struct {
	Name     string    `json:"name"`
	Actual   Interval  `json:"actual"`
	Planned  Interval  `json:"planned"`
	Hints    []Hint    `json:"hints,omitempty"`
	Children []Section `json:"children,omitempty"`
}

func (s Section) HasHint(h Hint) bool {
	return slices.Contains(s.Hints, h)
}

func (s Section) Child(name string) (Section, bool) {
	for _, child := range s.Children {
		if child.Name == name {
			return child, true
		}
	}
	return Section{}, false
}

type SectionOption func(*mutableSection)

func WithPlannedDuration(d time.Duration) SectionOption {
	return func(s *mutableSection) { s.plannedDuration = &d }
}

func WithHints(hints ...Hint) SectionOption {
	return func(s *mutableSection) {
		for _, h := range hints {
			s.addHint(h)
		}
	}
}

type mutableSection struct {
	name            string
	actual          Interval
	plannedDuration *time.Duration
	hints           []Hint

	children    []*mutableSection
	activeChild *mutableSection
	entered     bool

	span trace.Span
}

func newMutableSection(name string, now time.Time, opts ...SectionOption) *mutableSection {
	s := &mutableSection{name: name, actual: ClosedOpen(now)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *mutableSection) planned() Interval {
	if s.plannedDuration == nil {
		return ClosedOpen(s.actual.Lower)
	}
	return Between(s.actual.Lower, s.actual.Lower.Add(*s.plannedDuration))
}

func (s *mutableSection) addHint(h Hint) {
	if !slices.Contains(s.hints, h) {
		s.hints = append(s.hints, h)
	}
}

func (s *mutableSection) innermost() *mutableSection {
	for s.activeChild != nil {
		s = s.activeChild
	}
	return s
}

// parentOf returns the section whose active child is inner, or nil if inner is s itself.
func (s *mutableSection) parentOf(inner *mutableSection) *mutableSection {
	for p := s; p.activeChild != nil; p = p.activeChild {
		if p.activeChild == inner {
			return p
		}
	}
	return nil
}

func (s *mutableSection) child(name string) *mutableSection {
	for _, c := range s.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

func (s *mutableSection) freeze() *Section {
	frozen := &Section{
		Name:    s.name,
		Actual:  s.actual,
		Planned: s.planned(),
		Hints:   slices.Clone(s.hints),
	}
	slices.Sort(frozen.Hints)

	if len(s.children) > 0 {
		frozen.Children = make([]Section, len(s.children))
		for i, c := range s.children {
			frozen.Children[i] = *c.freeze()
		}
	}
	return frozen
}

// EnterSection opens a section on the current task. The first section becomes the task's root
// section; later ones nest under the innermost open section.
func (r *Runtime) EnterSection(name string, opts ...SectionOption) error {
	tree, task, err := r.CurrentTree()
	if err != nil {
		return err
	}

	now := r.now()
	root := tree.mutableSection(task.ID)

	var entered *mutableSection
	spanCtx := context.Background()
	switch {
	case root == nil:
		entered = newMutableSection(name, now, opts...)
		tree.setMutableSection(task.ID, entered)
		root = entered

	case !root.entered:
		return fmt.Errorf("%w: %q exists, refusing to open %q next to it", ErrSectionAlreadyActive, root.name, name)

	default:
		parent := root.innermost()
		if parent.child(name) != nil {
			return fmt.Errorf("%w: %q under %q", ErrDuplicateSectionName, name, parent.name)
		}
		entered = newMutableSection(name, now, opts...)
		parent.children = append(parent.children, entered)
		parent.activeChild = entered
		if parent.span != nil {
			spanCtx = trace.ContextWithSpan(spanCtx, parent.span)
		}
	}

	entered.entered = true
	_, entered.span = r.tracer.Start(spanCtx, name,
		trace.WithTimestamp(now),
		trace.WithAttributes(
			attribute.Int64("tasktree.task.id", int64(task.ID)),
			attribute.String("tasktree.task.name", task.Name),
		),
	)
	r.metrics.sectionOpened()

	r.logger.Debug("entered section", slog.String("task", task.String()), slog.String("section", name))
	return r.publishSection(tree, task, root)
}

// ExitSection closes the innermost open section of the current task.
func (r *Runtime) ExitSection() error {
	tree, task, err := r.CurrentTree()
	if err != nil {
		return err
	}

	root := tree.mutableSection(task.ID)
	if root == nil || !root.entered {
		return ErrNoSection
	}

	now := r.now()
	inner := root.innermost()
	inner.actual = Between(inner.actual.Lower, now)
	inner.entered = false
	if parent := root.parentOf(inner); parent != nil {
		parent.activeChild = nil
	}

	if inner.span != nil {
		inner.span.End(trace.WithTimestamp(now))
		inner.span = nil
	}

	r.logger.Debug("exited section", slog.String("task", task.String()), slog.String("section", inner.name))
	return r.publishSection(tree, task, root)
}

// Section runs fn inside a named section. The section is exited even if fn fails.
func (r *Runtime) Section(name string, fn func() error, opts ...SectionOption) (err error) {
	if err := r.EnterSection(name, opts...); err != nil {
		return err
	}
	defer func() {
		if exitErr := r.ExitSection(); err == nil {
			err = exitErr
		}
	}()

	return fn()
}

// CurrentSection returns the latest snapshot of the current task's section tree.
func (r *Runtime) CurrentSection() (Section, error) {
	tree, task, err := r.CurrentTree()
	if err != nil {
		return Section{}, err
	}

	data, _ := tree.NodeData(task.ID)
	if data.Section == nil {
		return Section{}, fmt.Errorf("%w: no section for %s", ErrNotFound, task)
	}
	return *data.Section, nil
}

func (r *Runtime) publishSection(tree *Tree, task Task, root *mutableSection) error {
	frozen := root.freeze()
	return tree.Mutate(task.ID, func(d *NodeData) { d.Section = frozen })
}
