package report

import (
	"context"
	"iter"
	"time"

	"github.com/AnatoleLucet/tasktree"
)

type SinkOptions struct {
	// ActiveKey receives the latest trail, recreated on every change.
	ActiveKey string

	// ArchiveKey receives the past segments of the last trail once the stream ends.
	ArchiveKey string

	Now func() time.Time
}

func DefaultSinkOptions() SinkOptions {
	return SinkOptions{
		ActiveKey:  "outline:active",
		ArchiveKey: "outline:inactive",
		Now:        time.Now,
	}
}

// OutlineToSink mirrors a stream of outlines into sink until sub closes or ctx is done.
// Consecutive equal outlines are written once. When the stream ends, the segments of the last
// outline that already passed are appended to the archive.
func OutlineToSink(ctx context.Context, sub *tasktree.Subscription[tasktree.Outline], sink StreamSink, opts SinkOptions) error {
	defer sub.Close()

	if opts.Now == nil {
		opts.Now = time.Now
	}

	var (
		last    tasktree.Outline
		hasLast bool
	)
	for outline := range outlines(ctx, sub) {
		if hasLast && last.Equal(outline) {
			continue
		}
		last, hasLast = outline, true

		if err := PushTrail(ctx, sink, opts.ActiveKey, trailOf(outline), PushOptions{Recreate: true}); err != nil {
			return err
		}
	}

	if !hasLast {
		return nil
	}

	// the archive is written even when ctx was cancelled
	return PushTrail(context.WithoutCancel(ctx), sink, opts.ArchiveKey, trailOf(last), PushOptions{Until: opts.Now()})
}

// OutlineToWriter writes one outline record per received outline until sub closes or ctx is done.
func OutlineToWriter(ctx context.Context, sub *tasktree.Subscription[tasktree.Outline], w *Writer) error {
	defer sub.Close()

	for outline := range outlines(ctx, sub) {
		if err := w.Outline(outline); err != nil {
			return err
		}
	}
	return nil
}

func outlines(ctx context.Context, sub *tasktree.Subscription[tasktree.Outline]) iter.Seq[tasktree.Outline] {
	return func(yield func(tasktree.Outline) bool) {
		for {
			select {
			case <-ctx.Done():
				return
			case outline, ok := <-sub.C():
				if !ok || !yield(outline) {
					return
				}
			}
		}
	}
}

func trailOf(outline tasktree.Outline) tasktree.Trail {
	if outline.Trail == nil {
		return tasktree.Trail{}
	}
	return *outline.Trail
}
