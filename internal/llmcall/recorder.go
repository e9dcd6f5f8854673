package llmcall

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Recorder appends calls to a JSON Lines trace. A nil Recorder records nothing.
type Recorder struct {
	mu     sync.Mutex
	w      *bufio.Writer
	closer io.Closer
	count  int
	logger *slog.Logger
}

// NewRecorder creates a recorder writing to w.
func NewRecorder(w io.Writer, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{
		w:      bufio.NewWriter(w),
		logger: logger.With("component", "llmcall"),
	}
	if c, ok := w.(io.Closer); ok {
		r.closer = c
	}
	return r
}

// Open creates (or truncates) the trace file at path.
func Open(path string, logger *slog.Logger) (*Recorder, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create trace directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create trace file: %w", err)
	}
	return NewRecorder(f, logger), nil
}

// Record writes one call. Trace failures are logged, never returned:
// the trace is diagnostic and must not fail a run.
func (r *Recorder) Record(call *Call) {
	if r == nil || call == nil {
		return
	}

	data, err := json.Marshal(call)
	if err != nil {
		r.logger.Warn("failed to serialize LLM call record", "call_id", call.ID, "error", err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.w.Write(append(data, '\n')); err != nil {
		r.logger.Warn("failed to write LLM call record", "call_id", call.ID, "error", err)
		return
	}
	if err := r.w.Flush(); err != nil {
		r.logger.Warn("failed to flush LLM call trace", "error", err)
		return
	}
	r.count++
}

// Count returns the number of calls written.
func (r *Recorder) Count() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Close flushes the trace and closes the underlying writer when it is closable.
func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.w.Flush(); err != nil {
		return err
	}
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
