package internal

import (
	"fmt"
	"slices"
	"sync"
	"time"
)

// Project is one named item of work in a multi-lane schedule.
type Project struct {
	Name         string    `json:"project_name" yaml:"project_name"`
	AssigneeID   TaskID    `json:"assignee_id" yaml:"assignee_id"`
	AssigneeName string    `json:"assignee_name,omitempty" yaml:"assignee_name,omitempty"`
	Actual       *Interval `json:"actual,omitempty" yaml:"actual,omitempty"`
	Planned      *Interval `json:"planned,omitempty" yaml:"planned,omitempty"`
	Hints        []Hint    `json:"hints,omitempty" yaml:"hints,omitempty"`
	Parent       int       `json:"parent,omitempty" yaml:"parent,omitempty"` // 0 for top-level projects
}

func (p Project) begin() (time.Time, error) {
	switch {
	case p.Actual != nil:
		return p.Actual.Lower, nil
	case p.Planned != nil:
		return p.Planned.Lower, nil
	}
	return time.Time{}, fmt.Errorf("project %q has neither an actual nor a planned interval", p.Name)
}

func (p Project) end() (time.Time, bool) {
	switch {
	case p.Actual != nil && p.Actual.Bounded():
		return p.Actual.Upper, true
	case p.Planned != nil && p.Planned.Bounded():
		return p.Planned.Upper, true
	}
	return time.Time{}, false
}

// ProjectDatabase is an in-memory, multi-lane schedule for parallel work.
// Project ids start at 1.
type ProjectDatabase struct {
	mu       sync.RWMutex
	projects []Project
}

func NewProjectDatabase() *ProjectDatabase {
	return &ProjectDatabase{}
}

func (db *ProjectDatabase) Add(p Project) int {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.projects = append(db.projects, p)
	return len(db.projects)
}

func (db *ProjectDatabase) Get(id int) (Project, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if id < 1 || id > len(db.projects) {
		return Project{}, false
	}
	return db.projects[id-1], true
}

func (db *ProjectDatabase) All() []Project {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return slices.Clone(db.projects)
}

func (db *ProjectDatabase) Len() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.projects)
}

// TreeToProjects flattens the sections of every task in the snapshot.
// Child tasks are added before their parent; within a task, sections are added in pre-order.
func TreeToProjects(snap *TreeSnapshot) *ProjectDatabase {
	db := NewProjectDatabase()
	addTaskProjects(db, snap, 0)
	return db
}

func addTaskProjects(db *ProjectDatabase, snap *TreeSnapshot, i int) {
	for child := range snap.Children(i) {
		addTaskProjects(db, snap, child)
	}

	n := snap.At(i)
	if n.Data.Section != nil {
		addSectionProjects(db, *n.Data.Section, n.Task, 0)
	}
}

func addSectionProjects(db *ProjectDatabase, s Section, task Task, parent int) {
	actual, planned := s.Actual, s.Planned
	id := db.Add(Project{
		Name:         s.Name,
		AssigneeID:   task.ID,
		AssigneeName: task.Name,
		Actual:       &actual,
		Planned:      &planned,
		Hints:        s.Hints,
		Parent:       parent,
	})

	for _, child := range s.Children {
		addSectionProjects(db, child, task, id)
	}
}
