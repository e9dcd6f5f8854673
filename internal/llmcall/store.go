package llmcall

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// QueryFilter specifies filters for listing recorded calls.
type QueryFilter struct {
	Task      string
	PromptKey string
	Provider  string
	Model     string
	After     *time.Time
	Before    *time.Time
	Success   *bool
	Limit     int
	Offset    int
}

// Matches reports whether call passes every set filter.
func (f QueryFilter) Matches(c *Call) bool {
	if f.Task != "" && c.Task != f.Task {
		return false
	}
	if f.PromptKey != "" && c.PromptKey != f.PromptKey {
		return false
	}
	if f.Provider != "" && c.Provider != f.Provider {
		return false
	}
	if f.Model != "" && c.Model != f.Model {
		return false
	}
	if f.After != nil && !c.Timestamp.After(*f.After) {
		return false
	}
	if f.Before != nil && !c.Timestamp.Before(*f.Before) {
		return false
	}
	if f.Success != nil && c.Success != *f.Success {
		return false
	}
	return true
}

// Load reads every call from a trace file.
func Load(path string) ([]*Call, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read decodes a JSON Lines trace. Blank lines are skipped.
func Read(r io.Reader) ([]*Call, error) {
	var calls []*Call
	br := bufio.NewReader(r)
	for n := 1; ; n++ {
		line, err := br.ReadBytes('\n')
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			var c Call
			if uerr := json.Unmarshal(trimmed, &c); uerr != nil {
				return nil, fmt.Errorf("trace line %d: %w", n, uerr)
			}
			calls = append(calls, &c)
		}
		if err == io.EOF {
			return calls, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read trace: %w", err)
		}
	}
}

// List returns the calls matching filter, in trace order.
func List(calls []*Call, filter QueryFilter) []*Call {
	var out []*Call
	skipped := 0
	for _, c := range calls {
		if !filter.Matches(c) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		out = append(out, c)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out
}

// Stats summarizes a set of calls.
type Stats struct {
	Calls        int
	Succeeded    int
	Failed       int
	Attempts     int
	InputTokens  int
	OutputTokens int
	AvgLatency   time.Duration
	ByTier       map[string]int
}

// Summarize aggregates calls into Stats.
func Summarize(calls []*Call) Stats {
	s := Stats{ByTier: make(map[string]int)}
	var latency int64
	for _, c := range calls {
		s.Calls++
		if c.Success {
			s.Succeeded++
		} else {
			s.Failed++
		}
		s.Attempts += c.Attempts
		s.InputTokens += c.InputTokens
		s.OutputTokens += c.OutputTokens
		latency += int64(c.LatencyMs)
		if c.Tier != "" {
			s.ByTier[c.Tier]++
		}
	}
	if s.Calls > 0 {
		s.AvgLatency = time.Duration(latency/int64(s.Calls)) * time.Millisecond
	}
	return s
}
