package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AnatoleLucet/tasktree"
	"github.com/AnatoleLucet/tasktree/report"
)

type demoOptions struct {
	workers     int
	step        time.Duration
	sinkDir     string
	metricsAddr string
}

func newDemoCommand(a *app) *cobra.Command {
	var opts demoOptions

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a small concurrent workload and stream its report",
		Long: `Runs a workload made of a preparation step, a group of workers with timed sections and a
final step. Every change of the task tree is turned into an outline record on stdout, followed by
the outcome and the final status.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("sink-dir") {
				opts.sinkDir = a.cfg.Report.SinkDir
			}
			if !cmd.Flags().Changed("metrics-addr") {
				opts.metricsAddr = a.cfg.Metrics.Addr
			}
			return runDemo(cmd.Context(), a, report.NewWriter(cmd.OutOrStdout()), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 3, "number of concurrent workers")
	cmd.Flags().DurationVar(&opts.step, "step", 200*time.Millisecond, "base duration of every step")
	cmd.Flags().StringVar(&opts.sinkDir, "sink-dir", "", "mirror outlines into JSONL streams under this directory")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	return cmd
}

func runDemo(ctx context.Context, a *app, w *report.Writer, opts demoOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.workers < 1 {
		return fmt.Errorf("--workers must be at least 1, got %d", opts.workers)
	}

	reg := prometheus.NewRegistry()
	rt := tasktree.New(
		tasktree.WithLogger(a.logger),
		tasktree.WithMetrics(tasktree.MustNewMetrics(reg)),
	)

	if opts.metricsAddr != "" {
		stop := serveMetrics(a, reg, opts.metricsAddr)
		defer stop()
	}

	var sink *report.FileSink
	if opts.sinkDir != "" {
		var err error
		if sink, err = report.NewFileSink(opts.sinkDir); err != nil {
			return err
		}
	}

	if err := w.Write(report.ProcessStatus()); err != nil {
		return err
	}

	var consumers errgroup.Group
	workErr := rt.Run("demo", func() error {
		return rt.Planted(func(tree *tasktree.Tree) error {
			feed, err := rt.OutlineFeed(ctx, tree, a.cfg.Trail)
			if err != nil {
				return err
			}

			sub, err := feed.Subscribe(tasktree.SeedLatest)
			if err != nil {
				return err
			}
			consumers.Go(func() error { return report.OutlineToWriter(ctx, sub, w) })

			if sink != nil {
				sub, err := feed.Subscribe(tasktree.SeedLatest)
				if err != nil {
					return err
				}
				sinkOpts := report.DefaultSinkOptions()
				sinkOpts.ActiveKey = a.cfg.Report.ActiveKey
				sinkOpts.ArchiveKey = a.cfg.Report.ArchiveKey
				consumers.Go(func() error { return report.OutlineToSink(ctx, sub, sink, sinkOpts) })
			}

			return runWorkload(ctx, rt, opts)
		})
	})
	if err := consumers.Wait(); err != nil {
		a.logger.Error("report consumer failed", "error", err)
	}

	return finish(w, workErr, opts)
}

func runWorkload(ctx context.Context, rt *tasktree.Runtime, opts demoOptions) error {
	return rt.Section("demo", func() error {
		err := rt.Section("prepare", func() error {
			return rt.SleepFor(ctx, opts.step)
		})
		if err != nil {
			return err
		}

		err = rt.Section("work", func() error {
			g, _, err := rt.Group(ctx)
			if err != nil {
				return err
			}

			for i := range opts.workers {
				name := fmt.Sprintf("worker-%d", i+1)
				limit := time.Duration(i+2) * opts.step

				g.Go(name, func(ctx context.Context) error {
					return rt.Section(name, func() error {
						// every worker is planned for its limit; odd ones finish early
						return rt.WaitExactly(ctx, limit, func(ctx context.Context) error {
							work := limit
							if i%2 == 0 {
								work = limit / 2
							}
							return sleep(ctx, work)
						})
					})
				})
			}
			return g.Wait()
		})
		if err != nil {
			return err
		}

		return rt.Section("finish", func() error {
			return rt.WarnAfter(opts.step, func() error { return sleep(ctx, opts.step/2) })
		}, tasktree.WithHints(tasktree.HintIndeterminateIndicator))
	})
}

func finish(w *report.Writer, workErr error, opts demoOptions) error {
	outcome := report.Outcome{
		Result: map[string]any{"workers": opts.workers},
	}
	status := report.StatusCompleted

	switch {
	case errors.Is(workErr, context.Canceled):
		status = report.StatusCancelled
	case workErr != nil:
		status = report.StatusFailed
		outcome.Messages = map[string]report.Message{
			"1000": report.ErrorMessage(
				workErr.Error(),
				"The workload stopped before it was done.",
				"The outline shows how far it got.",
				"Run again with --log-level debug for details.",
			),
		}
	}

	if err := w.Outcome(outcome); err != nil {
		return err
	}
	if err := w.Status(status); err != nil {
		return err
	}
	return workErr
}

func serveMetrics(a *app, reg *prometheus.Registry, addr string) (stop func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	a.logger.Info("serving metrics", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
