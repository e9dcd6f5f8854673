package extract

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Extract resolves raw model text into a result valid for d.
// It is pure and deterministic: identical inputs always yield identical results.
func Extract(raw string, d Domain) Result {
	switch dom := d.(type) {
	case Enumerated:
		return extractEnumerated(raw, dom)
	case *Enumerated:
		return extractEnumerated(raw, *dom)
	case Index:
		return extractIndex(raw, dom)
	case *Index:
		return extractIndex(raw, *dom)
	case FieldSet:
		return extractFields(raw, dom)
	case *FieldSet:
		return extractFields(raw, *dom)
	case Freeform:
		return extractFreeform(raw, dom)
	case *Freeform:
		return extractFreeform(raw, *dom)
	default:
		return Result{Index: -1, Tier: TierDefault}
	}
}

func extractEnumerated(raw string, d Enumerated) Result {
	for _, c := range fencedCandidates(raw) {
		if label, ok := enumeratedFromJSON(c, d, false); ok {
			return Result{Label: label, Tier: TierFenced}
		}
	}
	if label, ok := enumeratedFromJSON(raw, d, true); ok {
		return Result{Label: label, Tier: TierBare}
	}

	lower := strings.ToLower(raw)
	for _, c := range d.Choices {
		needle := strings.ToLower(strings.TrimSpace(c))
		if needle != "" && strings.Contains(lower, needle) {
			return Result{Label: c, Tier: TierMembership}
		}
	}

	for _, entry := range synonymTable {
		label, ok := d.canonical(entry.label)
		if !ok {
			continue
		}
		for _, p := range entry.patterns {
			if p.MatchString(lower) {
				return Result{Label: label, Tier: TierSynonym}
			}
		}
	}

	return Result{Label: d.Default(), Tier: TierDefault}
}

// enumeratedFromJSON accepts an object carrying the domain key and, when
// allowScalar is set, a bare JSON string.
func enumeratedFromJSON(s string, d Enumerated, allowScalar bool) (string, bool) {
	v, err := decodeStrict(s)
	if err != nil {
		return "", false
	}
	switch t := v.(type) {
	case map[string]any:
		val, ok := lookupKey(t, d.Key)
		if !ok {
			return "", false
		}
		str, ok := val.(string)
		if !ok {
			return "", false
		}
		return d.canonical(str)
	case string:
		if !allowScalar {
			return "", false
		}
		return d.canonical(t)
	}
	return "", false
}

// Captures include a leading minus so "-1" is never read as 1.
var numericPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)"index"\s*:\s*(-?\d+)`),
	regexp.MustCompile(`(?i)index\s*:\s*(-?\d+)`),
	regexp.MustCompile(`(?is)不一致.*?(-?\d+)`),
	regexp.MustCompile(`(?is)inconsistent.*?(-?\d+)`),
	regexp.MustCompile(`(?i)index\s*=\s*(-?\d+)`),
}

var bareInteger = regexp.MustCompile(`-?\b\d+\b`)

func extractIndex(raw string, d Index) Result {
	for _, c := range fencedCandidates(raw) {
		if idx, ok := indexFromJSON(c, d, false); ok {
			return Result{Index: idx, Tier: TierFenced}
		}
	}
	if idx, ok := indexFromJSON(raw, d, true); ok {
		return Result{Index: idx, Tier: TierBare}
	}

	for _, p := range numericPatterns {
		m := p.FindStringSubmatch(raw)
		if m == nil {
			continue
		}
		if idx, err := strconv.Atoi(m[1]); err == nil && d.Accepts(idx) {
			return Result{Index: idx, Tier: TierNumeric}
		}
	}
	for _, tok := range bareInteger.FindAllString(raw, -1) {
		if strings.HasPrefix(tok, "-") {
			continue
		}
		if idx, err := strconv.Atoi(tok); err == nil && d.Accepts(idx) {
			return Result{Index: idx, Tier: TierNumeric}
		}
		break
	}

	return Result{Index: -1, Tier: TierDefault}
}

// indexFromJSON decides the index when s is an object carrying the domain
// key as an integer, or, when allowScalar is set, a bare JSON integer. An
// integer outside the domain (including -1) decides the sentinel, so the
// cascade stops there. ok is false when s carries no integer answer.
func indexFromJSON(s string, d Index, allowScalar bool) (idx int, ok bool) {
	v, err := decodeStrict(s)
	if err != nil {
		return 0, false
	}
	var val any
	switch t := v.(type) {
	case map[string]any:
		if val, ok = lookupKey(t, d.Key); !ok {
			return 0, false
		}
	case json.Number:
		if !allowScalar {
			return 0, false
		}
		val = t
	default:
		return 0, false
	}
	idx, ok = integerValue(val)
	if !ok {
		return 0, false
	}
	if !d.Accepts(idx) {
		return -1, true
	}
	return idx, true
}

// integerValue reads an integral JSON number or digit string.
func integerValue(v any) (int, bool) {
	var text string
	switch t := v.(type) {
	case json.Number:
		text = t.String()
	case string:
		text = strings.TrimSpace(t)
	default:
		return 0, false
	}
	idx, err := strconv.Atoi(text)
	if err != nil {
		return 0, false
	}
	return idx, true
}
