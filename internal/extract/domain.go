// Package extract turns free-form model text into a structured answer that is
// always valid for a known answer domain.
//
// Extraction runs an ordered cascade of tiers. Each tier either produces a
// domain-valid value or declines, and the first tier to produce a value wins.
// The final tier always produces a value, so Extract never fails.
package extract

import "strings"

// NotExtracted marks a structured field the model did not supply.
const NotExtracted = "not extracted"

// UnavailableMarker is fed to Extract in place of model text when the model
// could not be reached. It matches no choice, no field pattern and holds no digits.
const UnavailableMarker = "ERROR: model unavailable"

// Domain is the constraint an extraction result must satisfy.
// The set of implementations is closed: Enumerated, Index, FieldSet, Freeform.
type Domain interface {
	domain()
}

// Enumerated permits exactly one label from Choices.
type Enumerated struct {
	// Key is the JSON object key the model is asked to answer under, e.g. "Emotion".
	Key string
	// Choices in declaration order. Order decides ties.
	Choices []string
	// Fallback is returned when Choices is empty.
	Fallback string
}

// Index selects one candidate by its declared integer index.
type Index struct {
	// Key is the JSON object key, e.g. "index".
	Key string
	// Valid lists the declared candidate indices. Empty accepts any value >= 0.
	Valid []int
}

// FieldSet requires a fixed set of named text fields.
type FieldSet struct {
	Fields []Field
}

// Field is one named output field and the ordered label patterns used to find
// it in unstructured text. Each pattern must contain one capture group.
type Field struct {
	Name     string
	Patterns []string
}

// Freeform passes text through, optionally normalized to "yes" or "no".
type Freeform struct {
	YesNo bool
	// MaxLen bounds the output in runes. Zero means unbounded.
	MaxLen int
}

func (Enumerated) domain() {}
func (Index) domain()      {}
func (FieldSet) domain()   {}
func (Freeform) domain()   {}

// Default returns the label used when nothing in the text matches.
func (d Enumerated) Default() string {
	if len(d.Choices) > 0 {
		return d.Choices[0]
	}
	return d.Fallback
}

// Contains reports whether label is a permitted choice.
func (d Enumerated) Contains(label string) bool {
	_, ok := d.canonical(label)
	return ok || (len(d.Choices) == 0 && label == d.Fallback)
}

// canonical maps a case-insensitive match to the declared spelling.
func (d Enumerated) canonical(label string) (string, bool) {
	label = strings.TrimSpace(label)
	for _, c := range d.Choices {
		if strings.EqualFold(c, label) {
			return c, true
		}
	}
	return "", false
}

// Accepts reports whether idx is a declared candidate index.
func (d Index) Accepts(idx int) bool {
	if idx < 0 {
		return false
	}
	if len(d.Valid) == 0 {
		return true
	}
	for _, v := range d.Valid {
		if v == idx {
			return true
		}
	}
	return false
}

// Names returns the declared field names in order.
func (d FieldSet) Names() []string {
	names := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		names[i] = f.Name
	}
	return names
}
