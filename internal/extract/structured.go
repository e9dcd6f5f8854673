package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"sort"
	"strings"
)

// fencePattern matches a markdown code fence and captures its body.
var fencePattern = regexp.MustCompile("(?s)```(.*?)```")

// fencedCandidates returns every delimited structured block in text, in order:
// code fence bodies first, then balanced {...} objects found anywhere in the text.
func fencedCandidates(text string) []string {
	var out []string
	for _, m := range fencePattern.FindAllStringSubmatch(text, -1) {
		if body := stripFenceTag(m[1]); body != "" {
			out = append(out, body)
		}
	}
	out = append(out, balancedObjects(text)...)
	return out
}

// stripFenceTag drops a leading language tag such as "json" from a fence body.
func stripFenceTag(body string) string {
	body = strings.TrimSpace(body)
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		rest := body[4:]
		if rest == "" || strings.ContainsAny(rest[:1], " \t\r\n{[\"") {
			return strings.TrimSpace(rest)
		}
	}
	return body
}

// balancedObjects returns each top-level {...} span in text whose braces
// balance, skipping braces inside JSON string literals.
func balancedObjects(text string) []string {
	var out []string
	for start := strings.IndexByte(text, '{'); start >= 0; {
		end := matchBrace(text, start)
		if end < 0 {
			next := strings.IndexByte(text[start+1:], '{')
			if next < 0 {
				break
			}
			start += 1 + next
			continue
		}
		out = append(out, text[start:end+1])
		next := strings.IndexByte(text[end+1:], '{')
		if next < 0 {
			break
		}
		start = end + 1 + next
	}
	return out
}

// matchBrace returns the index of the brace closing the one at open, or -1.
func matchBrace(text string, open int) int {
	depth := 0
	inString := false
	escaped := false
	for i := open; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

var errTrailingData = errors.New("trailing data after JSON value")

// decodeStrict parses s as exactly one JSON value. Numbers decode as json.Number.
func decodeStrict(s string) (any, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, io.ErrUnexpectedEOF
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errTrailingData
	}
	return v, nil
}

// lookupKey finds key in obj, exactly first and then case-insensitively in
// sorted key order so the result never depends on map iteration.
func lookupKey(obj map[string]any, key string) (any, bool) {
	if v, ok := obj[key]; ok {
		return v, true
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.EqualFold(strings.TrimSpace(k), key) {
			return obj[k], true
		}
	}
	return nil, false
}

// scalarString renders a JSON scalar as text. Objects and arrays are rejected.
func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		if t {
			return "true", true
		}
		return "false", true
	default:
		return "", false
	}
}
