// Package pipeline drives one annotation task over a JSON Lines input: every
// line becomes exactly one output record, written in input order, whatever
// happens to the model call or the line itself.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jackzampolin/annotator/internal/caller"
	"github.com/jackzampolin/annotator/internal/extract"
	"github.com/jackzampolin/annotator/internal/jsonl"
	"github.com/jackzampolin/annotator/internal/llmcall"
	"github.com/jackzampolin/annotator/internal/metrics"
	"github.com/jackzampolin/annotator/internal/prompts"
	"github.com/jackzampolin/annotator/internal/providers"
	"github.com/jackzampolin/annotator/internal/tasks"
)

// Source yields input lines. Next returns io.EOF after the last line.
type Source interface {
	Next() (jsonl.Line, error)
}

// Sink receives output records in input order.
type Sink interface {
	Write(rec jsonl.Record) error
}

// Options configures a run.
type Options struct {
	Task   tasks.Task
	Caller *caller.Caller

	// Limit caps the number of input lines processed. 0 means no cap.
	Limit int
	// Delay is the minimum spacing between consecutive model calls in
	// sequential mode.
	Delay time.Duration
	// Workers > 1 runs model calls concurrently.
	Workers int
	// RPS bounds the pool's call rate. When zero it is derived from Delay.
	RPS float64

	// KeepRecords retains every emitted record in the Summary.
	KeepRecords bool

	Recorder *llmcall.Recorder
	Metrics  *metrics.Recorder
	Logger   *slog.Logger
}

type runner struct {
	task     tasks.Task
	caller   *caller.Caller
	recorder *llmcall.Recorder
	metrics  *metrics.Recorder
	logger   *slog.Logger
}

// Run processes src until end of input, the record cap, or cancellation of
// ctx. The summary is always returned, partial when the run stopped early.
// On cancellation the error is ctx.Err(); input read and sink write failures
// are returned as they are.
func Run(ctx context.Context, src Source, sink Sink, opts Options) (*Summary, error) {
	if opts.Task == nil {
		return nil, errors.New("pipeline: task is required")
	}
	if opts.Caller == nil {
		return nil, errors.New("pipeline: caller is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &runner{
		task:     opts.Task,
		caller:   opts.Caller,
		recorder: opts.Recorder,
		metrics:  opts.Metrics,
		logger:   logger.With("component", "pipeline", "task", opts.Task.Name()),
	}
	state := newRunState(opts.KeepRecords)

	r.logger.Info("run started",
		"provider", opts.Caller.Provider(),
		"limit", opts.Limit,
		"delay", opts.Delay,
		"workers", max(opts.Workers, 1))

	var err error
	if opts.Workers > 1 {
		err = r.runPool(ctx, src, sink, state, opts)
	} else {
		err = r.runSequential(ctx, src, sink, state, opts)
	}
	if ctxErr := ctx.Err(); ctxErr != nil && (err == nil || errors.Is(err, ctxErr)) {
		err = ctxErr
	}

	sum := state.Summary(opts.Task.Name())
	attrs := []any{
		"total", sum.Total,
		"succeeded", sum.Succeeded,
		"failed", sum.Failed,
		"malformed", sum.Malformed,
		"unavailable", sum.Unavailable,
		"duration", sum.Duration.Round(time.Millisecond),
	}
	if err != nil {
		r.logger.Warn("run stopped early", append(attrs, "error", err)...)
	} else {
		r.logger.Info("run complete", attrs...)
	}
	return sum, err
}

func (r *runner) runSequential(ctx context.Context, src Source, sink Sink, state *RunState, opts Options) error {
	var lastCall time.Time
	for seq := 0; opts.Limit <= 0 || seq < opts.Limit; seq++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		item, perr := r.task.Prepare(line.Index, line.Bytes)
		if perr != nil {
			if err := r.emit(sink, state, r.malformed(seq, line, perr)); err != nil {
				return err
			}
			continue
		}

		if !lastCall.IsZero() && opts.Delay > 0 {
			if err := sleepCtx(ctx, opts.Delay-time.Since(lastCall)); err != nil {
				return err
			}
		}
		o, ok := r.process(ctx, seq, item)
		lastCall = time.Now()
		if !ok {
			return ctx.Err()
		}
		if err := r.emit(sink, state, o); err != nil {
			return err
		}
	}
	return nil
}

// malformed builds the sentinel outcome for a line that failed to parse.
// The line keeps its own id when Prepare could read one.
func (r *runner) malformed(seq int, line jsonl.Line, cause error) outcome {
	id := tasks.RecordID(cause, line.Index)
	r.logger.Warn("malformed input line", "line", line.Index, "error", cause)
	return outcome{
		seq:    seq,
		record: r.task.Sentinel(id, cause),
		status: StatusMalformed,
	}
}

// process calls the model for one item and builds its record. ok is false
// when the call was cut short by cancellation; nothing is emitted then.
func (r *runner) process(ctx context.Context, seq int, item *tasks.Item) (o outcome, ok bool) {
	done := r.metrics.CallStarted()
	out := r.caller.Call(ctx, &providers.Request{Prompt: item.Prompt})
	done()

	if !out.Available() && ctx.Err() != nil {
		return outcome{}, false
	}

	r.metrics.ObserveCall(metrics.Call{
		Task:             r.task.Name(),
		Provider:         out.Provider,
		Success:          out.Available(),
		Attempts:         out.Attempts,
		Latency:          out.Latency,
		PromptTokens:     out.PromptTokens,
		CompletionTokens: out.CompletionTokens,
	})

	o = outcome{seq: seq, status: StatusSucceeded}
	text := out.Text
	if !out.Available() {
		o.status = StatusUnavailable
		if r.task.Policy() == tasks.EmitError {
			o.record = r.task.Unavailable(item)
			r.trace(item, out, "")
			r.logger.Warn("record unavailable", "line", item.Index, "id", string(item.ID), "attempts", out.Attempts)
			return o, true
		}
		text = extract.UnavailableMarker
	}

	res := extract.Extract(text, item.Domain)
	o.record = r.task.Project(item, res)
	o.bucket = r.task.Bucket(item, res)
	o.tier = res.Tier
	o.extracted = true
	r.metrics.ObserveTier(r.task.Name(), res.Tier.String())
	r.trace(item, out, res.Tier.String())

	if o.status == StatusUnavailable {
		r.logger.Warn("record unavailable, emitted domain default",
			"line", item.Index, "id", string(item.ID), "attempts", out.Attempts)
	} else {
		r.logger.Info("record processed",
			"line", item.Index,
			"id", string(item.ID),
			"tier", res.Tier.String(),
			"attempts", out.Attempts,
			"latency", out.Latency.Round(time.Millisecond))
	}
	return o, true
}

func (r *runner) trace(item *tasks.Item, out caller.Outcome, tier string) {
	if r.recorder == nil {
		return
	}
	r.recorder.Record(llmcall.FromOutcome(out, llmcall.RecordOptions{
		Task:       r.task.Name(),
		RecordID:   item.ID,
		Line:       item.Index,
		PromptKey:  prompts.TaskKey(r.task.Name()),
		PromptHash: item.PromptHash,
		Tier:       tier,
	}))
}

// emit writes one record and folds it into the run state.
func (r *runner) emit(sink Sink, state *RunState, o outcome) error {
	if err := sink.Write(o.record); err != nil {
		return fmt.Errorf("write output record %d: %w", o.seq, err)
	}
	state.observe(o)
	r.metrics.ObserveRecord(r.task.Name(), o.status.String())
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
