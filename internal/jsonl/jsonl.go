// Package jsonl reads and writes JSON Lines streams.
package jsonl

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// Line is one physical input line without its terminator.
type Line struct {
	// Index is the zero-based line position in the stream.
	Index int
	Bytes []byte
}

// Reader yields every physical line of a stream, including blank ones.
// Lines may be arbitrarily long.
type Reader struct {
	r    *bufio.Reader
	next int
	done bool
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReaderSize(r, 64*1024)}
}

// Next returns the next line, or io.EOF after the last one. A final line
// without a trailing newline is still returned.
func (r *Reader) Next() (Line, error) {
	if r.done {
		return Line{}, io.EOF
	}
	b, err := r.r.ReadBytes('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return Line{}, fmt.Errorf("read line %d: %w", r.next, err)
		}
		r.done = true
		if len(b) == 0 {
			return Line{}, io.EOF
		}
	}
	b = bytes.TrimSuffix(b, []byte("\n"))
	b = bytes.TrimSuffix(b, []byte("\r"))
	line := Line{Index: r.next, Bytes: b}
	r.next++
	return line, nil
}

// ReadAll returns every line of r.
func ReadAll(r io.Reader) ([]Line, error) {
	rd := NewReader(r)
	var lines []Line
	for {
		line, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return lines, nil
		}
		if err != nil {
			return lines, err
		}
		lines = append(lines, line)
	}
}

// Field is one output key/value pair.
type Field struct {
	Key   string
	Value any
}

// Record is one output object: "id" first, then Fields in order.
type Record struct {
	ID     json.RawMessage
	Fields []Field
}

// PositionalID returns the id used for a record with no usable "id" value.
func PositionalID(index int) json.RawMessage {
	return json.RawMessage(strconv.Itoa(index))
}

// Get returns the value stored under key.
func (r Record) Get(key string) (any, bool) {
	for _, f := range r.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// MarshalJSON encodes the record with keys in declaration order and without
// HTML escaping.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"id":`)
	if len(r.ID) == 0 {
		buf.WriteString("null")
	} else {
		buf.Write(r.ID)
	}
	for _, f := range r.Fields {
		buf.WriteByte(',')
		if err := encodeValue(&buf, f.Key); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := encodeValue(&buf, f.Value); err != nil {
			return nil, fmt.Errorf("encode %q: %w", f.Key, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func encodeValue(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	// Encode appends a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}

// Writer writes one record per line and flushes after each one so partial
// output survives a crash. It is safe for concurrent use.
type Writer struct {
	mu     sync.Mutex
	w      *bufio.Writer
	closer io.Closer
	count  int
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	jw := &Writer{w: bufio.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		jw.closer = c
	}
	return jw
}

// Create creates (or truncates) the file at path, making parent directories.
func Create(path string) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	return NewWriter(f), nil
}

// Write encodes rec as a single line and flushes it.
func (w *Writer) Write(rec Record) error {
	b, err := rec.MarshalJSON()
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.w.Write(b); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("flush record: %w", err)
	}
	w.count++
	return nil
}

// Count returns the number of records written.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Close flushes and closes the underlying writer when it is closable.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	err := w.w.Flush()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
		w.closer = nil
	}
	return err
}
