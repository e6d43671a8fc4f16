package report

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Status is the overall state of an execution.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
	StatusAbandoned Status = "abandoned"
)

var statuses = []Status{
	StatusPending,
	StatusRunning,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
	StatusAbandoned,
}

// IsCurrent reports whether the execution has not stopped yet.
func (s Status) IsCurrent() bool {
	return s == StatusPending || s == StatusRunning
}

func (s Status) Valid() bool {
	return slices.Contains(statuses, s)
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if !Status(raw).Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
	}
	*s = Status(raw)
	return nil
}
