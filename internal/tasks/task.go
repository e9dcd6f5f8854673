// Package tasks defines the annotation task variants: how an input line becomes
// a prompt and an answer domain, and how an extraction result becomes an
// output record.
package tasks

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackzampolin/annotator/internal/extract"
	"github.com/jackzampolin/annotator/internal/jsonl"
	"github.com/jackzampolin/annotator/internal/prompts"
)

// UnavailableText is written directly into free-form fields when the model
// could not be reached.
const UnavailableText = "Error: model unavailable"

// ErrMalformedInput is wrapped by every Prepare error.
var ErrMalformedInput = errors.New("malformed input record")

// UnavailablePolicy decides what a task emits when the model is unavailable.
type UnavailablePolicy int

const (
	// FeedMarker runs extract.UnavailableMarker through the extractor, so the
	// domain default is emitted.
	FeedMarker UnavailablePolicy = iota
	// EmitError writes UnavailableText directly into the result field.
	EmitError
)

// Item is one prepared input record. Immutable once built.
type Item struct {
	// Index is the zero-based line position.
	Index int
	// ID is the record's "id" value verbatim, or the positional index.
	ID         json.RawMessage
	Prompt     string
	PromptHash string
	Domain     extract.Domain
	// YesNo is set for QA questions that ask for a yes/no answer.
	YesNo bool
}

// Task is one annotation task variant.
type Task interface {
	Name() string
	Description() string
	// OutputFields lists the result keys written after "id", in order.
	OutputFields() []string
	DefaultDelay() time.Duration
	Policy() UnavailablePolicy

	// Prepare parses one input line. Errors wrap ErrMalformedInput.
	Prepare(index int, line []byte) (*Item, error)
	// Project turns an extraction result into the output record.
	Project(item *Item, res extract.Result) jsonl.Record
	// Unavailable returns the record emitted when the model could not be reached.
	Unavailable(item *Item) jsonl.Record
	// Sentinel returns the record emitted for a line that failed to parse.
	Sentinel(id json.RawMessage, cause error) jsonl.Record
	// Bucket names the distribution bucket for a result, or "" for none.
	Bucket(item *Item, res extract.Result) string

	// Fixtures returns the demo records used by test mode, one JSON object per entry.
	Fixtures() []string
}

// base carries what every task shares.
type base struct {
	name        string
	description string
	fields      []string
	delay       time.Duration
	policy      UnavailablePolicy
	prompts     *prompts.Resolver
}

func (b base) Name() string                { return b.name }
func (b base) Description() string         { return b.description }
func (b base) DefaultDelay() time.Duration { return b.delay }
func (b base) Policy() UnavailablePolicy   { return b.policy }

func (b base) OutputFields() []string {
	return append([]string(nil), b.fields...)
}

// render fills the task's prompt template.
func (b base) render(data any) (*prompts.Rendered, error) {
	return b.prompts.Render(prompts.TaskKey(b.name), data)
}

// InputError is returned by Prepare for a line that cannot become an Item.
// It wraps ErrMalformedInput.
type InputError struct {
	Line int
	// ID is the line's own id when the line was a JSON object carrying one.
	ID    json.RawMessage
	Cause string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%v: line %d: %s", ErrMalformedInput, e.Line, e.Cause)
}

func (e *InputError) Unwrap() error {
	return ErrMalformedInput
}

// RecordID returns the id to emit for a line whose Prepare failed with err:
// the line's own id when it could be read, otherwise the line position.
func RecordID(err error, index int) json.RawMessage {
	var ie *InputError
	if errors.As(err, &ie) && len(ie.ID) > 0 {
		return ie.ID
	}
	return jsonl.PositionalID(index)
}

// newItem decodes the shared envelope of a line into payload and builds the item
// identity. payload must be a pointer to the task's input struct.
func (b base) newItem(index int, line []byte, payload any) (*Item, error) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return nil, &InputError{Line: index, Cause: "blank line"}
	}
	if trimmed[0] != '{' {
		return nil, &InputError{Line: index, Cause: "not a JSON object"}
	}

	var envelope struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, &InputError{Line: index, Cause: err.Error()}
	}
	id := identity(envelope.ID, index)
	if err := json.Unmarshal(trimmed, payload); err != nil {
		return nil, &InputError{Line: index, ID: id, Cause: err.Error()}
	}

	return &Item{Index: index, ID: id}, nil
}

// identity returns the record's own id, or its position when the id is absent or null.
func identity(raw json.RawMessage, index int) json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return jsonl.PositionalID(index)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return jsonl.PositionalID(index)
	}
	return buf.Bytes()
}

func (b base) record(id json.RawMessage, values ...any) jsonl.Record {
	rec := jsonl.Record{ID: id, Fields: make([]jsonl.Field, len(b.fields))}
	for i, name := range b.fields {
		rec.Fields[i] = jsonl.Field{Key: name, Value: values[i]}
	}
	return rec
}

// flexText accepts a JSON string, a list of strings, or any other value.
// Lists are joined with a space; other values keep their JSON text.
type flexText string

func (f *flexText) UnmarshalJSON(b []byte) error {
	*f = flexText(textOf(b, " "))
	return nil
}

func textOf(raw json.RawMessage, sep string) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, sep)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
