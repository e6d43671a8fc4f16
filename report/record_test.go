package report

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnatoleLucet/tasktree"
)

var t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func testTrail(t *testing.T) tasktree.Trail {
	t.Helper()
	trail, err := tasktree.NewTrail([]tasktree.TrailSection{
		{Name: "fill", Interval: tasktree.Between(t0, t0.Add(time.Minute)), Hints: []tasktree.Hint{tasktree.HintMayEndEarly}},
		{Name: "drain", Interval: tasktree.Between(t0.Add(time.Minute), t0.Add(3*time.Minute))},
	})
	require.NoError(t, err)
	return trail
}

func TestStatus(t *testing.T) {
	assert.True(t, StatusPending.IsCurrent())
	assert.True(t, StatusRunning.IsCurrent())
	for _, s := range []Status{StatusCompleted, StatusFailed, StatusCancelled, StatusAbandoned} {
		assert.False(t, s.IsCurrent(), s)
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, Status("paused").Valid())
}

func TestOutcome(t *testing.T) {
	t.Run("validate", func(t *testing.T) {
		ok := Outcome{Messages: map[string]Message{"1234": ErrorMessage("a", "b", "c", "d")}}
		assert.NoError(t, ok.Validate())

		badCode := Outcome{Messages: map[string]Message{"12a4": DebugMessage("a", "b", "c", "d")}}
		assert.ErrorIs(t, badCode.Validate(), ErrInvalidCode)

		badSeverity := Outcome{Messages: map[string]Message{"1234": NewMessage("fatal", "a", "b", "c", "d")}}
		assert.ErrorIs(t, badSeverity.Validate(), ErrUnknownSeverity)
	})

	t.Run("errors", func(t *testing.T) {
		o := Outcome{Messages: map[string]Message{
			"3000": ErrorMessage("late", "", "", ""),
			"1000": DebugMessage("noise", "", "", ""),
			"2000": ErrorMessage("early", "", "", ""),
		}}

		code, msg, ok := o.FirstError()
		assert.True(t, ok)
		assert.Equal(t, "2000", code)
		assert.Equal(t, "early", msg.Tech.Cause)

		var codes []string
		for code := range o.Errors() {
			codes = append(codes, code)
		}
		assert.Equal(t, []string{"2000", "3000"}, codes)

		_, _, ok = Outcome{}.FirstError()
		assert.False(t, ok)
	})

	t.Run("empty", func(t *testing.T) {
		assert.True(t, Outcome{}.Empty())
		assert.False(t, Outcome{Result: 1}.Empty())
	})
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	trail := testTrail(t)

	require.NoError(t, w.Status(StatusRunning))
	require.NoError(t, w.Outline(tasktree.Outline{Trail: &trail}))
	require.NoError(t, w.Outcome(Outcome{Result: map[string]any{"volume": 1.5}}))
	require.NoError(t, w.Status(StatusCompleted))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.JSONEq(t, `{"status": "running"}`, lines[0])
	assert.JSONEq(t, `{"outline": {"trail": {"sections": [
		{"name": "fill", "interval": ["2024-05-01T10:00:00Z", "2024-05-01T10:01:00Z"], "hints": ["may-end-early"]},
		{"name": "drain", "interval": ["2024-05-01T10:01:00Z", "2024-05-01T10:03:00Z"], "hints": null}
	]}}}`, lines[1])
	assert.JSONEq(t, `{"outcome": {"result": {"volume": 1.5}, "messages": {}}}`, lines[2])
	assert.JSONEq(t, `{"status": "completed"}`, lines[3])

	t.Run("read back", func(t *testing.T) {
		r := NewReader(strings.NewReader(buf.String() + "\n\n"))

		rec, err := r.Next()
		require.NoError(t, err)
		assert.Equal(t, StatusRecord{Status: StatusRunning}, rec)

		rec, err = r.Next()
		require.NoError(t, err)
		outline, ok := rec.(OutlineRecord)
		require.True(t, ok)
		assert.True(t, outline.Outline.Equal(tasktree.Outline{Trail: &trail}))

		rec, err = r.Next()
		require.NoError(t, err)
		assert.IsType(t, OutcomeRecord{}, rec)

		rec, err = r.Next()
		require.NoError(t, err)
		assert.Equal(t, StatusRecord{Status: StatusCompleted}, rec)

		_, err = r.Next()
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("invalid outcome", func(t *testing.T) {
		err := w.Outcome(Outcome{Messages: map[string]Message{"1": ErrorMessage("", "", "", "")}})
		assert.ErrorIs(t, err, ErrInvalidCode)
	})
}

func TestDecode(t *testing.T) {
	t.Run("status with details", func(t *testing.T) {
		rec, err := Decode([]byte(`{"status": "running", "handle_uri": "process-id:12"}`))
		require.NoError(t, err)
		assert.Equal(t, StatusRecord{Status: StatusRunning, HandleURI: "process-id:12"}, rec)
	})

	t.Run("unknown status", func(t *testing.T) {
		_, err := Decode([]byte(`{"status": "paused"}`))
		assert.ErrorIs(t, err, ErrUnknownStatus)
	})

	t.Run("invalid message code", func(t *testing.T) {
		_, err := Decode([]byte(`{"outcome": {"result": null, "messages": {"abcd": {"severity": "error"}}}}`))
		assert.ErrorIs(t, err, ErrInvalidCode)
	})

	t.Run("unknown record", func(t *testing.T) {
		_, err := Decode([]byte(`{"progress": 0.5}`))
		assert.ErrorIs(t, err, ErrUnknownRecord)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := Decode([]byte(`status: running`))
		assert.Error(t, err)
		assert.False(t, errors.Is(err, ErrUnknownRecord))
	})
}

func TestProcessStatus(t *testing.T) {
	s := ProcessStatus()
	assert.Equal(t, StatusRunning, s.Status)
	assert.True(t, strings.HasPrefix(s.HandleURI, "process-id:"))
}
