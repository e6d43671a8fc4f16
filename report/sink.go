package report

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/AnatoleLucet/tasktree"
)

// IdleName marks the end of the last segment of a pushed trail.
const IdleName = "<Idle>"

// StreamEntry is one (timestamp, name) pair of an append-only stream.
type StreamEntry struct {
	ID   string    `json:"id"`
	At   time.Time `json:"at"`
	Name string    `json:"name"`
}

// NewStreamEntry returns an entry whose id is the millisecond timestamp of at.
func NewStreamEntry(at time.Time, name string) StreamEntry {
	return StreamEntry{
		ID:   fmt.Sprintf("%d-0", at.UnixMilli()),
		At:   at,
		Name: name,
	}
}

// StreamSink persists append-only streams of entries, one stream per key.
type StreamSink interface {
	// Recreate replaces the whole stream at key with entries.
	Recreate(ctx context.Context, key string, entries []StreamEntry) error

	// Append adds entries at the end of the stream at key.
	Append(ctx context.Context, key string, entries []StreamEntry) error
}

type PushOptions struct {
	// Recreate replaces the stream instead of appending to it.
	Recreate bool

	// Until, when set, keeps only the segments that ended at or before it.
	Until time.Time
}

// TrailEntries returns one entry per trail segment, followed by an IdleName entry at the end
// of the last segment. An empty trail gives no entries.
func TrailEntries(trail tasktree.Trail, until time.Time) []StreamEntry {
	var (
		entries []StreamEntry
		last    *tasktree.TrailSection
	)
	for i, s := range trail.Sections {
		if !until.IsZero() && (!s.Interval.Bounded() || until.Before(s.Interval.Upper)) {
			continue
		}
		entries = append(entries, NewStreamEntry(s.Interval.Lower, s.Name))
		last = &trail.Sections[i]
	}

	if last != nil && last.Interval.Bounded() {
		entries = append(entries, NewStreamEntry(last.Interval.Upper, IdleName))
	}
	return entries
}

// PushTrail writes the segments of trail to the stream at key.
func PushTrail(ctx context.Context, sink StreamSink, key string, trail tasktree.Trail, opts PushOptions) error {
	entries := TrailEntries(trail, opts.Until)
	if opts.Recreate {
		return sink.Recreate(ctx, key, entries)
	}
	if len(entries) == 0 {
		return nil
	}
	return sink.Append(ctx, key, entries)
}

// MemorySink keeps streams in memory.
type MemorySink struct {
	mu      sync.Mutex
	streams map[string][]StreamEntry
}

func NewMemorySink() *MemorySink {
	return &MemorySink{streams: make(map[string][]StreamEntry)}
}

func (s *MemorySink) Recreate(_ context.Context, key string, entries []StreamEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(entries) == 0 {
		delete(s.streams, key)
		return nil
	}
	s.streams[key] = slices.Clone(entries)
	return nil
}

func (s *MemorySink) Append(_ context.Context, key string, entries []StreamEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.streams[key] = append(s.streams[key], entries...)
	return nil
}

// Entries returns a copy of the stream at key.
func (s *MemorySink) Entries(key string) []StreamEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.streams[key])
}
