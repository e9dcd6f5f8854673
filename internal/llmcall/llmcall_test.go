package llmcall

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/jackzampolin/annotator/internal/caller"
)

func TestFromOutcome(t *testing.T) {
	temp := 0.2
	out := caller.Outcome{
		Text:             `{"Emotion": "Anger"}`,
		Attempts:         2,
		Latency:          1500 * time.Millisecond,
		Model:            "llama2",
		Provider:         "ollama",
		RequestID:        "req-1",
		PromptTokens:     40,
		CompletionTokens: 6,
	}
	call := FromOutcome(out, RecordOptions{
		Task:        "emotion",
		RecordID:    json.RawMessage(`7`),
		Line:        3,
		PromptKey:   "tasks.emotion.prompt",
		PromptHash:  "abc",
		Temperature: &temp,
		Tier:        "bare",
	})

	if call.ID == "" {
		t.Error("ID is empty")
	}
	if !call.Success || call.Error != "" {
		t.Errorf("Success = %v, Error = %q", call.Success, call.Error)
	}
	if call.LatencyMs != 1500 {
		t.Errorf("LatencyMs = %d, want 1500", call.LatencyMs)
	}
	if call.Attempts != 2 || call.InputTokens != 40 || call.OutputTokens != 6 {
		t.Errorf("counts = %d/%d/%d", call.Attempts, call.InputTokens, call.OutputTokens)
	}
	if string(call.RecordID) != "7" || call.Line != 3 {
		t.Errorf("RecordID = %s, Line = %d", call.RecordID, call.Line)
	}
}

func TestFromOutcome_Failure(t *testing.T) {
	out := caller.Outcome{Err: caller.ErrUnavailable, Attempts: 3, Provider: "ollama"}
	call := FromOutcome(out, RecordOptions{Task: "qa"})
	if call.Success {
		t.Error("Success = true for failed outcome")
	}
	if call.Error != "model unavailable" {
		t.Errorf("Error = %q", call.Error)
	}
}

func TestRecorder_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	r := NewRecorder(&buf, nil)

	ok := FromOutcome(caller.Outcome{Text: "yes", Provider: "mock", Attempts: 1}, RecordOptions{Task: "qa", Tier: "yes_no"})
	bad := FromOutcome(caller.Outcome{Err: errors.New("down"), Provider: "mock", Attempts: 3}, RecordOptions{Task: "qa"})
	r.Record(ok)
	r.Record(bad)
	r.Record(nil)

	if got := r.Count(); got != 2 {
		t.Fatalf("Count() = %d, want 2", got)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if lines := strings.Count(buf.String(), "\n"); lines != 2 {
		t.Errorf("trace has %d lines, want 2", lines)
	}

	calls, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("len(calls) = %d, want 2", len(calls))
	}
	if calls[0].ID != ok.ID || calls[1].ID != bad.ID {
		t.Error("calls out of order")
	}

	stats := Summarize(calls)
	want := Stats{Calls: 2, Succeeded: 1, Failed: 1, Attempts: 4, ByTier: map[string]int{"yes_no": 1}}
	if diff := cmp.Diff(want, stats); diff != "" {
		t.Errorf("Summarize() mismatch (-want +got):\n%s", diff)
	}
}

func TestRecorder_Nil(t *testing.T) {
	var r *Recorder
	r.Record(&Call{})
	if r.Count() != 0 {
		t.Error("nil recorder counted a call")
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestOpenAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "trace.jsonl")
	r, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	r.Record(FromOutcome(caller.Outcome{Text: "a", Provider: "mock"}, RecordOptions{Task: "counsel"}))
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	calls, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(calls) != 1 || calls[0].Task != "counsel" {
		t.Errorf("Load() = %+v", calls)
	}
}

func TestList(t *testing.T) {
	now := time.Now()
	calls := []*Call{
		{ID: "1", Task: "qa", Success: true, Timestamp: now.Add(-3 * time.Minute)},
		{ID: "2", Task: "qa", Success: false, Timestamp: now.Add(-2 * time.Minute)},
		{ID: "3", Task: "emotion", Success: true, Timestamp: now.Add(-time.Minute)},
		{ID: "4", Task: "qa", Success: true, Timestamp: now},
	}
	failed := false
	cutoff := now.Add(-150 * time.Second)

	tests := []struct {
		name   string
		filter QueryFilter
		want   []string
	}{
		{"all", QueryFilter{}, []string{"1", "2", "3", "4"}},
		{"task", QueryFilter{Task: "qa"}, []string{"1", "2", "4"}},
		{"failed", QueryFilter{Success: &failed}, []string{"2"}},
		{"after", QueryFilter{After: &cutoff}, []string{"2", "3", "4"}},
		{"offset and limit", QueryFilter{Task: "qa", Offset: 1, Limit: 1}, []string{"2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, c := range List(calls, tt.filter) {
				got = append(got, c.ID)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("List() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
