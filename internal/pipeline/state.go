package pipeline

import (
	"sort"
	"time"

	"github.com/jackzampolin/annotator/internal/extract"
	"github.com/jackzampolin/annotator/internal/jsonl"
)

// Status is how one record ended.
type Status int

const (
	StatusSucceeded Status = iota
	StatusUnavailable
	StatusMalformed
)

func (s Status) String() string {
	switch s {
	case StatusUnavailable:
		return "unavailable"
	case StatusMalformed:
		return "malformed"
	default:
		return "succeeded"
	}
}

// outcome is one finished record on its way to the sink.
type outcome struct {
	seq    int
	record jsonl.Record
	status Status
	bucket string
	tier   extract.Tier
	// extracted is false when no extraction ran (malformed lines and
	// directly emitted unavailable errors).
	extracted bool
}

// RunState accumulates the results of one run. It is owned by the goroutine
// writing to the sink.
type RunState struct {
	Total       int
	Succeeded   int
	Unavailable int
	Malformed   int
	Labels      map[string]int
	Tiers       map[string]int

	// Records holds every emitted record when the run keeps them.
	Records []jsonl.Record

	keep    bool
	started time.Time
}

func newRunState(keep bool) *RunState {
	return &RunState{
		Labels:  make(map[string]int),
		Tiers:   make(map[string]int),
		keep:    keep,
		started: time.Now(),
	}
}

// Failed is the number of records that did not get a model answer.
func (s *RunState) Failed() int {
	return s.Unavailable + s.Malformed
}

func (s *RunState) observe(o outcome) {
	s.Total++
	switch o.status {
	case StatusSucceeded:
		s.Succeeded++
	case StatusUnavailable:
		s.Unavailable++
	case StatusMalformed:
		s.Malformed++
	}
	if o.bucket != "" {
		s.Labels[o.bucket]++
	}
	if o.extracted {
		s.Tiers[o.tier.String()]++
	}
	if s.keep {
		s.Records = append(s.Records, o.record)
	}
}

// Summary is the final report of a run.
type Summary struct {
	Task        string         `json:"task"`
	Total       int            `json:"total"`
	Succeeded   int            `json:"succeeded"`
	Failed      int            `json:"failed"`
	Malformed   int            `json:"malformed"`
	Unavailable int            `json:"unavailable"`
	Labels      map[string]int `json:"labels,omitempty"`
	Tiers       map[string]int `json:"tiers,omitempty"`
	Duration    time.Duration  `json:"duration"`

	Records []jsonl.Record `json:"-"`
}

// Summary snapshots the state.
func (s *RunState) Summary(task string) *Summary {
	sum := &Summary{
		Task:        task,
		Total:       s.Total,
		Succeeded:   s.Succeeded,
		Failed:      s.Failed(),
		Malformed:   s.Malformed,
		Unavailable: s.Unavailable,
		Labels:      make(map[string]int, len(s.Labels)),
		Tiers:       make(map[string]int, len(s.Tiers)),
		Duration:    time.Since(s.started),
		Records:     s.Records,
	}
	for k, v := range s.Labels {
		sum.Labels[k] = v
	}
	for k, v := range s.Tiers {
		sum.Tiers[k] = v
	}
	return sum
}

// Count is one distribution bucket.
type Count struct {
	Key   string
	Count int
}

// Sorted returns a distribution ordered by descending count, then key.
func Sorted(dist map[string]int) []Count {
	out := make([]Count, 0, len(dist))
	for k, v := range dist {
		out = append(out, Count{Key: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}
