package report

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/AnatoleLucet/tasktree"
)

// Record is one line of a report stream. The kind of a record is given by its
// single top-level key: "status", "outcome" or "outline".
type Record interface {
	record()
}

// StatusRecord carries the overall execution status and details.
type StatusRecord struct {
	Status        Status `json:"status"`
	ExecutableURI string `json:"executable_uri,omitempty"`
	HandleURI     string `json:"handle_uri,omitempty"`
}

// OutcomeRecord carries the result and messages of an execution.
type OutcomeRecord struct {
	Outcome Outcome `json:"outcome"`
}

// OutlineRecord carries the plan, and indirectly the progress, of an execution.
type OutlineRecord struct {
	Outline tasktree.Outline `json:"outline"`
}

func (StatusRecord) record()  {}
func (OutcomeRecord) record() {}
func (OutlineRecord) record() {}

// ProcessStatus returns a running status for the current process.
func ProcessStatus() StatusRecord {
	return StatusRecord{
		Status:    StatusRunning,
		HandleURI: fmt.Sprintf("process-id:%d", os.Getpid()),
	}
}

// Decode parses one line of a report stream.
func Decode(line []byte) (Record, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(line, &keys); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}

	var rec Record
	switch {
	case keys["status"] != nil:
		var r StatusRecord
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, fmt.Errorf("decode status: %w", err)
		}
		rec = r
	case keys["outcome"] != nil:
		var r OutcomeRecord
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, fmt.Errorf("decode outcome: %w", err)
		}
		if err := r.Outcome.Validate(); err != nil {
			return nil, err
		}
		rec = r
	case keys["outline"] != nil:
		var r OutlineRecord
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, fmt.Errorf("decode outline: %w", err)
		}
		rec = r
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownRecord, bytes.TrimSpace(line))
	}
	return rec, nil
}

// Writer writes records as newline-delimited JSON. It is safe for concurrent use.
type Writer struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: json.NewEncoder(w)}
}

func (w *Writer) Write(rec Record) error {
	if r, ok := rec.(OutcomeRecord); ok {
		if err := r.Outcome.Validate(); err != nil {
			return err
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.enc.Encode(rec); err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return nil
}

func (w *Writer) Status(status Status) error {
	return w.Write(StatusRecord{Status: status})
}

func (w *Writer) Outcome(outcome Outcome) error {
	return w.Write(OutcomeRecord{Outcome: outcome})
}

func (w *Writer) Outline(outline tasktree.Outline) error {
	return w.Write(OutlineRecord{Outline: outline})
}

// Reader reads records from a newline-delimited JSON stream, skipping blank lines.
type Reader struct {
	scanner *bufio.Scanner
}

func NewReader(r io.Reader) *Reader {
	const (
		initialBufSize = 64 * 1024
		maxLineSize    = 4 * 1024 * 1024
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, initialBufSize), maxLineSize)
	return &Reader{scanner: scanner}
}

// Next returns the next record, or io.EOF at the end of the stream.
func (r *Reader) Next() (Record, error) {
	for r.scanner.Scan() {
		line := bytes.TrimSpace(r.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		return Decode(line)
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}
