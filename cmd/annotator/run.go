package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jackzampolin/annotator/internal/jsonl"
	"github.com/jackzampolin/annotator/internal/llmcall"
	"github.com/jackzampolin/annotator/internal/metrics"
	"github.com/jackzampolin/annotator/internal/pipeline"
	"github.com/jackzampolin/annotator/internal/tasks"
)

// traceAuto is the --trace value used when the flag is given without a path.
const traceAuto = "auto"

var (
	runTask        string
	runInput       string
	runOutput      string
	runDelay       time.Duration
	runLimit       int
	runTest        bool
	runWorkers     int
	runRPS         float64
	runTrace       string
	runMetricsAddr string
	runSkipProbe   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Annotate a JSON-Lines file with one task",
	Long: `Run a task over every line of the input file and write one output
record per input line, in input order.

The model service is probed once before any output is created; an
unreachable service aborts the run. After that, per-record failures never
stop the run: unreachable-model records and malformed lines get their
task's fallback output.

Examples:
  annotator run --task emotion --input data.jsonl --output out.jsonl
  annotator run --task qa --input qa.jsonl --output qa_out.jsonl --limit 50
  annotator run --task summary --test                 # built-in fixtures
  annotator run --task counsel --input c.jsonl --output o.jsonl --workers 4 --rps 2
  annotator run --task emotion --test --trace         # trace to ~/.annotator/traces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := setup(cmd)
		if err != nil {
			return err
		}
		cfg := e.config.Get()

		reg, err := e.registry()
		if err != nil {
			return err
		}
		task, err := reg.Lookup(runTask)
		if err != nil {
			return err
		}

		input, output, limit := runInput, runOutput, runLimit
		if runTest {
			fixtures := task.Fixtures()
			if input == "" {
				if input, err = e.home.WriteFixtures(task.Name(), fixtures); err != nil {
					return err
				}
				e.logger.Info("wrote test fixtures", "path", input, "records", len(fixtures))
			}
			if limit <= 0 || limit > len(fixtures) {
				limit = len(fixtures)
			}
			if output == "" {
				output = fmt.Sprintf("%s_test_results.jsonl", task.Name())
			}
		}
		if input == "" || output == "" {
			return errors.New("--input and --output are required (or use --test)")
		}

		delay := task.DefaultDelay()
		switch {
		case cmd.Flags().Changed("delay"):
			delay = runDelay
		case cfg.Run.Delay > 0:
			delay = cfg.Run.Delay
		}
		workers := cfg.Run.Workers
		if cmd.Flags().Changed("workers") {
			workers = runWorkers
		}
		rps := cfg.Run.RPS
		if cmd.Flags().Changed("rps") {
			rps = runRPS
		}
		metricsAddr := cfg.MetricsAddr
		if cmd.Flags().Changed("metrics-addr") {
			metricsAddr = runMetricsAddr
		}

		c, err := e.newCaller()
		if err != nil {
			return err
		}
		if !runSkipProbe {
			if err := c.Probe(ctx); err != nil {
				return fmt.Errorf("aborting before any output is written: %w", err)
			}
		}

		in, err := os.Open(input)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer in.Close()

		out, err := jsonl.Create(output)
		if err != nil {
			return err
		}
		defer out.Close()

		var recorder *llmcall.Recorder
		if runTrace != "" {
			path := runTrace
			if path == traceAuto {
				path = e.home.TracePath(task.Name())
			}
			if recorder, err = llmcall.Open(path, e.logger); err != nil {
				return err
			}
			defer recorder.Close()
			e.logger.Info("tracing model calls", "path", path)
		}

		var (
			rec *metrics.Recorder
			srv *metrics.Server
		)
		if metricsAddr != "" {
			rec = metrics.NewRecorder()
			if srv, err = metrics.Listen(metricsAddr, rec, e.logger); err != nil {
				return err
			}
		}

		e.followLogLevel()

		opts := pipeline.Options{
			Task:     task,
			Caller:   c,
			Limit:    limit,
			Delay:    delay,
			Workers:  workers,
			RPS:      rps,
			Recorder: recorder,
			Metrics:  rec,
			Logger:   e.logger,
		}
		sum, runErr := runWithMetrics(ctx, srv, func(ctx context.Context) (*pipeline.Summary, error) {
			return pipeline.Run(ctx, jsonl.NewReader(in), out, opts)
		})

		if err := out.Close(); err != nil && runErr == nil {
			runErr = fmt.Errorf("failed to close output: %w", err)
		}
		if sum != nil {
			printSummary(cmd.OutOrStdout(), task, sum, output)
		}
		return runErr
	},
}

// runWithMetrics runs fn alongside the metrics endpoint, if any. The
// endpoint is shut down once fn returns.
func runWithMetrics(ctx context.Context, srv *metrics.Server, fn func(context.Context) (*pipeline.Summary, error)) (*pipeline.Summary, error) {
	if srv == nil {
		return fn(ctx)
	}

	g, gctx := errgroup.WithContext(ctx)
	serveCtx, stop := context.WithCancel(gctx)
	defer stop()

	g.Go(func() error {
		return srv.Serve(serveCtx)
	})

	var sum *pipeline.Summary
	g.Go(func() error {
		defer stop()
		var err error
		sum, err = fn(gctx)
		return err
	})

	err := g.Wait()
	return sum, err
}

func printSummary(w io.Writer, task tasks.Task, sum *pipeline.Summary, output string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Task:\t%s\n", task.Name())
	fmt.Fprintf(tw, "Output:\t%s\n", output)
	fmt.Fprintf(tw, "Records:\t%d\n", sum.Total)
	fmt.Fprintf(tw, "Succeeded:\t%d\n", sum.Succeeded)
	fmt.Fprintf(tw, "Failed:\t%d (malformed %d, unavailable %d)\n", sum.Failed, sum.Malformed, sum.Unavailable)
	fmt.Fprintf(tw, "Duration:\t%s\n", sum.Duration.Round(time.Millisecond))
	tw.Flush()

	printDistribution(w, "Labels", sum.Labels)
	printDistribution(w, "Extraction tiers", sum.Tiers)
}

func printDistribution(w io.Writer, title string, dist map[string]int) {
	if len(dist) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, c := range pipeline.Sorted(dist) {
		fmt.Fprintf(tw, "  %s\t%d\n", c.Key, c.Count)
	}
	tw.Flush()
}

func init() {
	runCmd.Flags().StringVarP(&runTask, "task", "t", "", "task to run (see: annotator tasks)")
	runCmd.Flags().StringVarP(&runInput, "input", "i", "", "input JSON-Lines file")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "output JSON-Lines file (replaced if it exists)")
	runCmd.Flags().DurationVar(&runDelay, "delay", 0, "spacing between model calls (default: config run.delay, then the task's default)")
	runCmd.Flags().IntVar(&runLimit, "limit", 0, "process at most N input lines (0: all)")
	runCmd.Flags().BoolVar(&runTest, "test", false, "run on the task's built-in fixtures")
	runCmd.Flags().IntVar(&runWorkers, "workers", 1, "concurrent model calls (default: config run.workers)")
	runCmd.Flags().Float64Var(&runRPS, "rps", 0, "pool rate limit in calls per second (default: config run.rps)")
	runCmd.Flags().StringVar(&runTrace, "trace", "", "record every model call to this JSONL file (no value: ~/.annotator/traces/<task>.jsonl)")
	runCmd.Flags().Lookup("trace").NoOptDefVal = traceAuto
	runCmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "", "serve Prometheus /metrics here during the run (default: config metrics_addr)")
	runCmd.Flags().BoolVar(&runSkipProbe, "skip-probe", false, "skip the reachability check before the run")

	_ = runCmd.MarkFlagRequired("task")

	rootCmd.AddCommand(runCmd)
}
