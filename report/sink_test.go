package report

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnatoleLucet/tasktree"
)

func names(entries []StreamEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func TestTrailEntries(t *testing.T) {
	trail := testTrail(t)

	t.Run("idle sentinel", func(t *testing.T) {
		entries := TrailEntries(trail, time.Time{})
		assert.Equal(t, []string{"fill", "drain", IdleName}, names(entries))
		assert.True(t, entries[2].At.Equal(t0.Add(3*time.Minute)))
		assert.Equal(t, "1714557600000-0", entries[0].ID)
	})

	t.Run("until", func(t *testing.T) {
		entries := TrailEntries(trail, t0.Add(2*time.Minute))
		assert.Equal(t, []string{"fill", IdleName}, names(entries))
		assert.True(t, entries[1].At.Equal(t0.Add(time.Minute)))
	})

	t.Run("empty trail", func(t *testing.T) {
		assert.Empty(t, TrailEntries(tasktree.Trail{}, time.Time{}))
		assert.Empty(t, TrailEntries(trail, t0))
	})
}

func TestPushTrail(t *testing.T) {
	ctx := context.Background()
	trail := testTrail(t)

	t.Run("recreate", func(t *testing.T) {
		sink := NewMemorySink()
		require.NoError(t, PushTrail(ctx, sink, "k", trail, PushOptions{}))
		require.NoError(t, PushTrail(ctx, sink, "k", trail, PushOptions{Recreate: true}))
		assert.Len(t, sink.Entries("k"), 3)

		require.NoError(t, PushTrail(ctx, sink, "k", tasktree.Trail{}, PushOptions{Recreate: true}))
		assert.Empty(t, sink.Entries("k"))
	})

	t.Run("append", func(t *testing.T) {
		sink := NewMemorySink()
		require.NoError(t, PushTrail(ctx, sink, "k", trail, PushOptions{}))
		require.NoError(t, PushTrail(ctx, sink, "k", trail, PushOptions{}))
		assert.Len(t, sink.Entries("k"), 6)
	})
}

func TestFileSink(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	sink, err := NewFileSink(dir)
	require.NoError(t, err)

	entries, err := sink.Entries("outline:active")
	require.NoError(t, err)
	assert.Empty(t, entries)

	trail := testTrail(t)
	require.NoError(t, PushTrail(ctx, sink, "outline:active", trail, PushOptions{Recreate: true}))
	require.NoError(t, PushTrail(ctx, sink, "outline:active", trail, PushOptions{Recreate: true}))
	require.NoError(t, PushTrail(ctx, sink, "outline:inactive", trail, PushOptions{}))
	require.NoError(t, PushTrail(ctx, sink, "outline:inactive", trail, PushOptions{}))

	entries, err = sink.Entries("outline:active")
	require.NoError(t, err)
	assert.Equal(t, []string{"fill", "drain", IdleName}, names(entries))
	assert.True(t, entries[0].At.Equal(t0))

	entries, err = sink.Entries("outline:inactive")
	require.NoError(t, err)
	assert.Len(t, entries, 6)

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, files, 2, "no temporary files are left behind")
	assert.FileExists(t, sink.Path("outline:active"))
}

func TestOutlineToSink(t *testing.T) {
	trail := testTrail(t)
	shorter, err := tasktree.NewTrail(trail.Sections[:1])
	require.NoError(t, err)

	feed := tasktree.NewBroadcast[tasktree.Outline]("outlines", nil)
	sub, err := feed.Subscribe(tasktree.SeedNone)
	require.NoError(t, err)

	sink := NewMemorySink()
	opts := DefaultSinkOptions()
	opts.Now = func() time.Time { return t0.Add(2 * time.Minute) }

	done := make(chan error, 1)
	go func() { done <- OutlineToSink(context.Background(), sub, sink, opts) }()

	require.NoError(t, feed.Publish(tasktree.Outline{Trail: &shorter}))
	require.Eventually(t, func() bool { return len(sink.Entries("outline:active")) == 2 }, time.Second, time.Millisecond)

	require.NoError(t, feed.Publish(tasktree.Outline{Trail: &trail}))
	require.Eventually(t, func() bool { return len(sink.Entries("outline:active")) == 3 }, time.Second, time.Millisecond)

	feed.Close()
	require.NoError(t, <-done)

	assert.Equal(t, []string{"fill", "drain", IdleName}, names(sink.Entries("outline:active")))
	assert.Equal(t, []string{"fill", IdleName}, names(sink.Entries("outline:inactive")))
}

func TestOutlineToSinkWithoutOutlines(t *testing.T) {
	feed := tasktree.NewBroadcast[tasktree.Outline]("outlines", nil)
	sub, err := feed.Subscribe(tasktree.SeedNone)
	require.NoError(t, err)
	feed.Close()

	sink := NewMemorySink()
	require.NoError(t, OutlineToSink(context.Background(), sub, sink, DefaultSinkOptions()))
	assert.Empty(t, sink.Entries("outline:inactive"))
}

func TestOutlineToWriter(t *testing.T) {
	trail := testTrail(t)
	feed := tasktree.NewBroadcast[tasktree.Outline]("outlines", nil)
	require.NoError(t, feed.Publish(tasktree.Outline{Trail: &trail}))

	sub, err := feed.Subscribe(tasktree.SeedLatest)
	require.NoError(t, err)
	feed.Close()

	var buf bytes.Buffer
	require.NoError(t, OutlineToWriter(context.Background(), sub, NewWriter(&buf)))

	rec, err := Decode(buf.Bytes())
	require.NoError(t, err)
	outline, ok := rec.(OutlineRecord)
	require.True(t, ok)
	assert.True(t, outline.Outline.Equal(tasktree.Outline{Trail: &trail}))
}
