package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Interval is a closed-open time interval [Lower, Upper).
// A zero Upper means the interval is still open (unbounded).
type Interval struct {
	Lower time.Time
	Upper time.Time
}

func ClosedOpen(lower time.Time) Interval {
	return Interval{Lower: lower}
}

func Between(lower, upper time.Time) Interval {
	return Interval{Lower: lower, Upper: upper}
}

func (i Interval) Bounded() bool {
	return !i.Upper.IsZero()
}

func (i Interval) Contains(t time.Time) bool {
	if t.Before(i.Lower) {
		return false
	}
	return !i.Bounded() || t.Before(i.Upper)
}

func (i Interval) Duration() (time.Duration, bool) {
	if !i.Bounded() {
		return 0, false
	}
	return i.Upper.Sub(i.Lower), true
}

func (i Interval) Validate() error {
	if i.Bounded() && i.Upper.Before(i.Lower) {
		return fmt.Errorf("%w: [%s, %s)", ErrInvalidInterval, i.Lower.Format(time.RFC3339Nano), i.Upper.Format(time.RFC3339Nano))
	}
	return nil
}

// MarshalJSON encodes the interval as [lower, upper], with a null upper when unbounded.
func (i Interval) MarshalJSON() ([]byte, error) {
	bounds := [2]*time.Time{&i.Lower, nil}
	if i.Bounded() {
		bounds[1] = &i.Upper
	}
	return json.Marshal(bounds)
}

func (i *Interval) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	var bounds []*time.Time
	if err := json.Unmarshal(data, &bounds); err != nil {
		return err
	}
	if len(bounds) != 2 || bounds[0] == nil {
		return fmt.Errorf("interval must be [lower, upper], got %s", data)
	}

	*i = Interval{Lower: *bounds[0]}
	if bounds[1] != nil {
		i.Upper = *bounds[1]
	}
	return i.Validate()
}

// UnmarshalYAML accepts the same [lower, upper] form as the JSON encoding.
func (i *Interval) UnmarshalYAML(value *yaml.Node) error {
	var bounds []*time.Time
	if err := value.Decode(&bounds); err != nil {
		return err
	}
	if len(bounds) != 2 || bounds[0] == nil {
		return fmt.Errorf("line %d: interval must be [lower, upper]", value.Line)
	}

	*i = Interval{Lower: *bounds[0]}
	if bounds[1] != nil {
		i.Upper = *bounds[1]
	}
	return i.Validate()
}
