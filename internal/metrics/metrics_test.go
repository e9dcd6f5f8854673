package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/goleak"
)

func TestRecorder_Counters(t *testing.T) {
	r := NewRecorder()

	r.ObserveRecord("emotion", StatusSucceeded)
	r.ObserveRecord("emotion", StatusSucceeded)
	r.ObserveRecord("emotion", StatusMalformed)
	r.ObserveTier("emotion", "fenced")

	if got := testutil.ToFloat64(r.recordsTotal.WithLabelValues("emotion", StatusSucceeded)); got != 2 {
		t.Errorf("succeeded records = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.recordsTotal.WithLabelValues("emotion", StatusMalformed)); got != 1 {
		t.Errorf("malformed records = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.tiersTotal.WithLabelValues("emotion", "fenced")); got != 1 {
		t.Errorf("fenced tier = %v, want 1", got)
	}
}

func TestRecorder_ObserveCall(t *testing.T) {
	r := NewRecorder()

	r.ObserveCall(Call{Task: "qa", Provider: "ollama", Success: true, Attempts: 1, Latency: time.Second, PromptTokens: 10, CompletionTokens: 2})
	r.ObserveCall(Call{Task: "qa", Provider: "ollama", Success: false, Attempts: 3, Latency: 4 * time.Second})

	if got := testutil.ToFloat64(r.callsTotal.WithLabelValues("qa", "ollama", "ok")); got != 1 {
		t.Errorf("ok calls = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.callsTotal.WithLabelValues("qa", "ollama", "unavailable")); got != 1 {
		t.Errorf("unavailable calls = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.tokensTotal.WithLabelValues("qa", "prompt")); got != 10 {
		t.Errorf("prompt tokens = %v, want 10", got)
	}
	if n := testutil.CollectAndCount(r.callDuration); n != 1 {
		t.Errorf("duration series = %d, want 1", n)
	}
}

func TestRecorder_InFlight(t *testing.T) {
	r := NewRecorder()
	done := r.CallStarted()
	if got := testutil.ToFloat64(r.inFlight); got != 1 {
		t.Errorf("in flight = %v, want 1", got)
	}
	done()
	if got := testutil.ToFloat64(r.inFlight); got != 0 {
		t.Errorf("in flight = %v, want 0", got)
	}
}

func TestRecorder_Nil(t *testing.T) {
	var r *Recorder
	r.ObserveRecord("qa", StatusSucceeded)
	r.ObserveTier("qa", "bare")
	r.ObserveCall(Call{Task: "qa"})
	r.CallStarted()()
	if r.Registry() != nil {
		t.Error("nil recorder returned a registry")
	}
}

func TestRecorder_Handler(t *testing.T) {
	r := NewRecorder()
	r.ObserveRecord("summary", StatusUnavailable)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `annotator_records_total{status="unavailable",task="summary"} 1`) {
		t.Errorf("metrics output missing record counter:\n%s", body)
	}
}

func TestServer_ServeAndShutdown(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"))

	r := NewRecorder()
	s, err := Listen("127.0.0.1:0", r, nil)
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = client.Get("http://" + s.Addr() + "/metrics")
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}
