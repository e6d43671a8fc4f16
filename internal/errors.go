package internal

import "errors"

// usage faults
var (
	ErrNoTask               = errors.New("not running inside a task")
	ErrNoTaskTree           = errors.New("there isn't a path from the current task to a root node")
	ErrAlreadyPlanted       = errors.New("already registered a root for the current task")
	ErrNoScheduler          = errors.New("registry cannot spawn tasks")
	ErrBroadcastClosed      = errors.New("broadcast is closed")
	ErrTreeClosed           = errors.New("task tree is closed")
	ErrDuplicateSectionName = errors.New("section name already in use")
	ErrSectionAlreadyActive = errors.New("task already has a root-level section")
	ErrNoSection            = errors.New("no open section for the current task")
	ErrTimingScopeInUse     = errors.New("section already has a timing scope")
)

// structural faults
var (
	ErrBrokenTaskGraph = errors.New("broken task graph")
	ErrNotArborescence = errors.New("task tree is no longer an arborescence")
	ErrTrailOverlap    = errors.New("trail sections must be consecutive and without overlap")
	ErrNotNested       = errors.New("intervals are not properly nested")
	ErrInvalidInterval = errors.New("interval ends before it begins")
)

var (
	ErrNotFound = errors.New("no instance for the current task path")
	ErrTimeout  = errors.New("time limit exceeded")
)
