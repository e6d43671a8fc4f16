package internal

import (
	"cmp"
	"fmt"
	"slices"
	"time"
)

// TrailConfig tunes trail synthesis.
type TrailConfig struct {
	// OnlyInclude keeps only projects with these names. Nil keeps everything.
	OnlyInclude []string `json:"only_include,omitempty" yaml:"only_include,omitempty" toml:"only_include,omitempty"`

	// Strict rejects intervals that overlap without nesting instead of resolving them.
	Strict bool `json:"strict,omitempty" yaml:"strict,omitempty" toml:"strict,omitempty"`
}

// TrailConfigKey lets a task publish a TrailConfig for itself and its descendants.
var TrailConfigKey = NewKey("trail-config")

type markerKind int

// ends sort before begins at equal times
const (
	endMarker markerKind = iota
	beginMarker
)

type marker struct {
	at   time.Time
	kind markerKind
	item int
}

// ProjectsToTrail merges possibly overlapping projects into a single trail.
//
// Every project contributes a begin marker and, when its end is known, an end marker.
// Walking the sorted markers with a stack, the most recently begun, still open project
// owns the time until the top of the stack changes or the last marker is reached. Projects
// without an end stay on the stack and keep covering the timeline up to the last marker.
func ProjectsToTrail(db *ProjectDatabase, cfg TrailConfig) (Trail, error) {
	projects := db.All()
	if cfg.OnlyInclude != nil {
		projects = slices.DeleteFunc(projects, func(p Project) bool {
			return !slices.Contains(cfg.OnlyInclude, p.Name)
		})
	}

	markers, err := projectMarkers(projects)
	if err != nil {
		return Trail{}, err
	}

	var (
		sections []TrailSection
		stack    []int
		since    time.Time
	)
	top := func() int {
		if len(stack) == 0 {
			return -1
		}
		return stack[len(stack)-1]
	}

	emit := func(item int, until time.Time) {
		if item >= 0 && until.After(since) {
			sections = append(sections, TrailSection{
				Name:     projects[item].Name,
				Interval: Between(since, until),
				Hints:    append([]Hint{}, projects[item].Hints...),
			})
		}
	}

	for _, m := range markers {
		prev := top()

		switch m.kind {
		case beginMarker:
			stack = append(stack, m.item)
		case endMarker:
			i := slices.Index(stack, m.item)
			switch {
			case i < 0:
				return Trail{}, fmt.Errorf("%w: %q ends but never began", ErrNotNested, projects[m.item].Name)
			case i != len(stack)-1 && cfg.Strict:
				return Trail{}, fmt.Errorf("%w: %q ends while %q is still open", ErrNotNested, projects[m.item].Name, projects[top()].Name)
			}
			stack = slices.Delete(stack, i, i+1)
		}

		if top() == prev {
			continue
		}
		emit(prev, m.at)
		since = m.at
	}

	// the last markers may end projects below the top, which still owns the time up to them
	if len(markers) > 0 {
		emit(top(), markers[len(markers)-1].at)
	}

	return NewTrail(sections)
}

func projectMarkers(projects []Project) ([]marker, error) {
	markers := make([]marker, 0, 2*len(projects))
	for i, p := range projects {
		begin, err := p.begin()
		if err != nil {
			return nil, err
		}

		end, ok := p.end()
		if ok && end.Before(begin) {
			return nil, fmt.Errorf("project %q: %w", p.Name, ErrInvalidInterval)
		}
		if ok && end.Equal(begin) {
			// covers no time
			continue
		}

		markers = append(markers, marker{at: begin, kind: beginMarker, item: i})
		if ok {
			markers = append(markers, marker{at: end, kind: endMarker, item: i})
		}
	}

	slices.SortStableFunc(markers, func(a, b marker) int {
		if c := a.at.Compare(b.at); c != 0 {
			return c
		}
		return cmp.Compare(a.kind, b.kind)
	})
	return markers, nil
}

// Synthesize turns a tree snapshot into a trail.
func (r *Runtime) Synthesize(snap *TreeSnapshot, cfg TrailConfig) (Trail, error) {
	trail, err := ProjectsToTrail(TreeToProjects(snap), cfg)
	r.metrics.synthesized(err)
	return trail, err
}

// TrailConfig returns the trail configuration closest to the current task, or the zero config.
func (r *Runtime) TrailConfig() TrailConfig {
	v, err := r.FirstInstance(TrailConfigKey)
	if err != nil {
		return TrailConfig{}
	}
	cfg, _ := v.(TrailConfig)
	return cfg
}
