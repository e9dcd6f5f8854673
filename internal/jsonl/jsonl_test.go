package jsonl

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReader(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty stream", "", nil},
		{"trailing newline", "{\"id\":1}\n{\"id\":2}\n", []string{`{"id":1}`, `{"id":2}`}},
		{"no trailing newline", "a\nb", []string{"a", "b"}},
		{"crlf", "a\r\nb\r\n", []string{"a", "b"}},
		{"blank lines kept", "a\n\n   \nb\n", []string{"a", "", "   ", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines, err := ReadAll(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("ReadAll() error = %v", err)
			}
			if len(lines) != len(tt.want) {
				t.Fatalf("got %d lines, want %d", len(lines), len(tt.want))
			}
			for i, l := range lines {
				if l.Index != i {
					t.Errorf("line %d Index = %d", i, l.Index)
				}
				if string(l.Bytes) != tt.want[i] {
					t.Errorf("line %d = %q, want %q", i, l.Bytes, tt.want[i])
				}
			}
		})
	}
}

func TestReader_LongLine(t *testing.T) {
	long := `{"context":"` + strings.Repeat("x", 1<<20) + `"}`
	r := NewReader(strings.NewReader(long + "\n"))
	line, err := r.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if len(line.Bytes) != len(long) {
		t.Errorf("len = %d, want %d", len(line.Bytes), len(long))
	}
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("second Next() error = %v, want io.EOF", err)
	}
}

func TestRecordMarshal(t *testing.T) {
	rec := Record{
		ID: json.RawMessage(`"case-7"`),
		Fields: []Field{
			{Key: "predicted_emotion", Value: "Anger"},
			{Key: "note", Value: "<b>&</b> 情绪"},
			{Key: "predicted_index", Value: -1},
		},
	}
	b, err := rec.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	want := `{"id":"case-7","predicted_emotion":"Anger","note":"<b>&</b> 情绪","predicted_index":-1}`
	if string(b) != want {
		t.Errorf("MarshalJSON() = %s\nwant %s", b, want)
	}

	if got := string(mustMarshal(t, Record{ID: PositionalID(3)})); got != `{"id":3}` {
		t.Errorf("positional id = %s", got)
	}
	if got := string(mustMarshal(t, Record{})); got != `{"id":null}` {
		t.Errorf("missing id = %s", got)
	}
}

func mustMarshal(t *testing.T, r Record) []byte {
	t.Helper()
	b, err := r.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	return b
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	for i := 0; i < 3; i++ {
		if err := w.Write(Record{ID: PositionalID(i), Fields: []Field{{Key: "predicted_answer", Value: "yes"}}}); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		// Each record is visible as soon as Write returns.
		if got := strings.Count(buf.String(), "\n"); got != i+1 {
			t.Errorf("after record %d buffer has %d lines", i, got)
		}
	}
	if w.Count() != 3 {
		t.Errorf("Count() = %d, want 3", w.Count())
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	lines, err := ReadAll(&buf)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	for i, l := range lines {
		var obj map[string]any
		if err := json.Unmarshal(l.Bytes, &obj); err != nil {
			t.Fatalf("line %d not valid JSON: %v", i, err)
		}
		if obj["predicted_answer"] != "yes" {
			t.Errorf("line %d = %s", i, l.Bytes)
		}
	}
}

func TestCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.jsonl")
	w, err := Create(path)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := w.Write(Record{ID: PositionalID(0), Fields: []Field{{Key: "k", Value: "v"}}}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "{\"id\":0,\"k\":\"v\"}\n" {
		t.Errorf("file = %q", data)
	}
}
