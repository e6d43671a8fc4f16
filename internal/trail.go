package internal

import (
	"fmt"
	"math"
	"slices"
	"time"
)

// TrailSection is one segment of a Trail.
type TrailSection struct {
	Name     string   `json:"name"`
	Interval Interval `json:"interval"`
	Hints    []Hint   `json:"hints"`
}

func (s TrailSection) HasHint(h Hint) bool {
	return slices.Contains(s.Hints, h)
}

// Remaining returns the time left in this section as of now: the whole duration if the section
// lies in the future, zero if it lies in the past.
func (s TrailSection) Remaining(now time.Time) time.Duration {
	if now.Before(s.Interval.Lower) {
		if d, ok := s.Interval.Duration(); ok {
			return d
		}
		return time.Duration(math.MaxInt64)
	}
	if !s.Interval.Bounded() {
		return time.Duration(math.MaxInt64)
	}
	if !now.Before(s.Interval.Upper) {
		return 0
	}
	return s.Interval.Upper.Sub(now)
}

func (s TrailSection) equal(o TrailSection) bool {
	return s.Name == o.Name &&
		s.Interval.Lower.Equal(o.Interval.Lower) &&
		s.Interval.Upper.Equal(o.Interval.Upper) &&
		slices.Equal(s.Hints, o.Hints)
}

// Trail is a time-ordered, linear route of consecutive, non-overlapping sections.
type Trail struct {
	Sections []TrailSection `json:"sections"`
}

// NewTrail validates that sections are consecutive (not necessarily contiguous) and without overlap.
func NewTrail(sections []TrailSection) (Trail, error) {
	for i, s := range sections {
		if err := s.Interval.Validate(); err != nil {
			return Trail{}, fmt.Errorf("section %q: %w", s.Name, err)
		}
		if i == 0 {
			continue
		}

		prev := sections[i-1]
		if !prev.Interval.Bounded() || prev.Interval.Upper.After(s.Interval.Lower) {
			return Trail{}, fmt.Errorf("%w: %q overlaps %q", ErrTrailOverlap, prev.Name, s.Name)
		}
	}

	if sections == nil {
		sections = []TrailSection{}
	}
	return Trail{Sections: sections}, nil
}

// CurrentSection returns the section containing now (if any).
func (t Trail) CurrentSection(now time.Time) (TrailSection, bool) {
	for _, s := range t.Sections {
		if s.Interval.Contains(now) {
			return s, true
		}
	}
	return TrailSection{}, false
}

func (t Trail) Equal(o Trail) bool {
	return slices.EqualFunc(t.Sections, o.Sections, TrailSection.equal)
}

// Outline is the plan (past, present and future) of an execution.
type Outline struct {
	Trail *Trail `json:"trail,omitempty"`
}

func (o Outline) current(now time.Time) (TrailSection, bool) {
	if o.Trail == nil {
		return TrailSection{}, false
	}
	return o.Trail.CurrentSection(now)
}

// HasHint reports whether the current section (if any) carries the hint.
func (o Outline) HasHint(h Hint, now time.Time) bool {
	s, ok := o.current(now)
	return ok && s.HasHint(h)
}

func (o Outline) TimeRemaining(now time.Time) (time.Duration, bool) {
	s, ok := o.current(now)
	if !ok {
		return 0, false
	}
	return s.Remaining(now), true
}

func (o Outline) CurrentName(now time.Time) (string, bool) {
	s, ok := o.current(now)
	return s.Name, ok
}

func (o Outline) Equal(other Outline) bool {
	if o.Trail == nil || other.Trail == nil {
		return o.Trail == other.Trail
	}
	return o.Trail.Equal(*other.Trail)
}
