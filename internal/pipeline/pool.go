package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jackzampolin/annotator/internal/tasks"
)

// job is one input line handed to a worker. Exactly one of item and sentinel is set.
type job struct {
	seq      int
	item     *tasks.Item
	sentinel *outcome
}

// reorderWindowPerWorker bounds how many lines may be in flight or waiting
// in the reorder buffer, per worker.
const reorderWindowPerWorker = 4

// runPool fans model calls out to opts.Workers goroutines sharing one limiter.
// Finished records are held in a reorder buffer so the sink still sees input order.
// At most Workers*reorderWindowPerWorker lines are read ahead of the sink.
func (r *runner) runPool(ctx context.Context, src Source, sink Sink, state *RunState, opts Options) error {
	limiter := limiterFor(opts.RPS, opts.Delay)
	g, gctx := errgroup.WithContext(ctx)

	// A slot is taken before a line is read and released once its record is emitted.
	window := make(chan struct{}, opts.Workers*reorderWindowPerWorker)

	jobs := make(chan job)
	results := make(chan outcome, opts.Workers)

	// Producer: reads and parses lines in order.
	g.Go(func() error {
		defer close(jobs)
		for seq := 0; opts.Limit <= 0 || seq < opts.Limit; seq++ {
			if gctx.Err() != nil {
				return nil
			}
			select {
			case window <- struct{}{}:
			case <-gctx.Done():
				return nil
			}
			line, err := src.Next()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			j := job{seq: seq}
			if item, perr := r.task.Prepare(line.Index, line.Bytes); perr != nil {
				o := r.malformed(seq, line, perr)
				j.sentinel = &o
			} else {
				j.item = item
			}

			select {
			case jobs <- j:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})

	// Workers
	var wg sync.WaitGroup
	for w := 0; w < opts.Workers; w++ {
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			for j := range jobs {
				var o outcome
				if j.sentinel != nil {
					o = *j.sentinel
				} else {
					if limiter != nil {
						if err := limiter.Wait(gctx); err != nil {
							return nil
						}
					}
					var ok bool
					if o, ok = r.process(gctx, j.seq, j.item); !ok {
						return nil
					}
				}
				select {
				case results <- o:
				case <-gctx.Done():
					return nil
				}
			}
			return nil
		})
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	// Collector: releases records to the sink in sequence order.
	g.Go(func() error {
		pending := make(map[int]outcome)
		next := 0
		for o := range results {
			pending[o.seq] = o
			for {
				ready, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				if err := r.emit(sink, state, ready); err != nil {
					return err
				}
				<-window
				next++
			}
		}
		if len(pending) > 0 {
			r.logger.Warn("dropped out-of-order records after early stop", "count", len(pending), "next_seq", next)
		}
		return nil
	})

	err := g.Wait()
	if limiter != nil {
		st := limiter.Status()
		r.logger.Info("rate limiter",
			"rps", st.RPS,
			"calls", st.TotalConsumed,
			"waited", st.TotalWaited.Round(time.Millisecond))
	}
	return err
}
