package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	schemaCache  sync.Map // joined field names -> *jsonschema.Schema
	patternCache sync.Map // pattern source -> *regexp.Regexp, nil when invalid
)

func extractFields(raw string, d FieldSet) Result {
	schema, err := fieldSetSchema(d)
	if err == nil {
		for _, c := range fencedCandidates(raw) {
			if fields, ok := fieldsFromJSON(c, d, schema); ok {
				return Result{Fields: fields, Tier: TierFenced}
			}
		}
		if fields, ok := fieldsFromJSON(raw, d, schema); ok {
			return Result{Fields: fields, Tier: TierBare}
		}
	}

	fields := make([]FieldValue, len(d.Fields))
	matched := false
	for i, f := range d.Fields {
		fields[i] = FieldValue{Name: f.Name, Value: NotExtracted}
		for _, p := range f.Patterns {
			re := compilePattern(p)
			if re == nil {
				continue
			}
			m := re.FindStringSubmatch(raw)
			if m == nil {
				continue
			}
			matched = true
			if len(m) > 1 {
				if v := strings.TrimSpace(m[1]); v != "" {
					fields[i].Value = v
				}
			}
			break
		}
	}
	if matched {
		return Result{Fields: fields, Tier: TierFieldPattern}
	}
	return Result{Fields: fields, Tier: TierDefault}
}

// fieldsFromJSON validates s against the field-set schema and projects the
// declared fields in order. Missing, null or empty values get NotExtracted.
func fieldsFromJSON(s string, d FieldSet, schema *jsonschema.Schema) ([]FieldValue, bool) {
	v, err := decodeStrict(s)
	if err != nil {
		return nil, false
	}
	if err := schema.Validate(v); err != nil {
		return nil, false
	}
	obj := v.(map[string]any)

	fields := make([]FieldValue, len(d.Fields))
	for i, f := range d.Fields {
		fields[i] = FieldValue{Name: f.Name, Value: NotExtracted}
		val, ok := lookupKey(obj, f.Name)
		if !ok {
			continue
		}
		if str, ok := scalarString(val); ok && strings.TrimSpace(str) != "" {
			fields[i].Value = strings.TrimSpace(str)
		}
	}
	return fields, true
}

// fieldSetSchema builds and caches the JSON Schema an object must satisfy to
// count as a structured answer: at least one declared field present, every
// declared field a scalar or null.
func fieldSetSchema(d FieldSet) (*jsonschema.Schema, error) {
	names := d.Names()
	key := strings.Join(names, "\x00")
	if s, ok := schemaCache.Load(key); ok {
		return s.(*jsonschema.Schema), nil
	}

	props := make(map[string]any, len(names))
	anyOf := make([]any, 0, len(names))
	for _, n := range names {
		props[n] = map[string]any{"type": []string{"string", "number", "boolean", "null"}}
		anyOf = append(anyOf, map[string]any{"required": []string{n}})
	}
	doc := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(anyOf) > 0 {
		doc["anyOf"] = anyOf
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize field schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("fields.json", bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("failed to load field schema: %w", err)
	}
	schema, err := compiler.Compile("fields.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile field schema: %w", err)
	}
	actual, _ := schemaCache.LoadOrStore(key, schema)
	return actual.(*jsonschema.Schema), nil
}

// compilePattern compiles a field pattern once. It returns nil for a pattern
// that does not compile.
func compilePattern(p string) *regexp.Regexp {
	if re, ok := patternCache.Load(p); ok {
		return re.(*regexp.Regexp)
	}
	re, _ := regexp.Compile(p)
	actual, _ := patternCache.LoadOrStore(p, re)
	return actual.(*regexp.Regexp)
}
