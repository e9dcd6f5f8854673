package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// ErrInvalidKey is returned when a config key contains invalid characters.
var ErrInvalidKey = errors.New("invalid config key")

// ErrUnknownKey is returned when looking up a key with no default.
var ErrUnknownKey = errors.New("unknown config key")

// ValidateKey checks if a config key contains only allowed characters.
// Valid keys contain: letters, digits, dots, underscores, and hyphens.
// This protects against typos and malformed keys.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidKey)
	}
	for i, r := range key {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '_' && r != '-' {
			return fmt.Errorf("%w: invalid character %q at position %d", ErrInvalidKey, r, i)
		}
	}
	// Don't allow keys starting or ending with dots
	if key[0] == '.' || key[len(key)-1] == '.' {
		return fmt.Errorf("%w: key cannot start or end with a dot", ErrInvalidKey)
	}
	return nil
}

// Entry represents a single configuration entry.
type Entry struct {
	Key         string `json:"key"`
	Value       any    `json:"value"`
	Description string `json:"description"`
	// Default reports whether Value is still the built-in default.
	Default bool `json:"default"`
}

// Lookup returns the effective value of a key, after file and environment
// overrides.
func (cm *Manager) Lookup(key string) (*Entry, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	def := GetDefault(key)
	if def == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	value := cm.v.Get(key)
	return &Entry{
		Key:         key,
		Value:       value,
		Description: def.Description,
		Default:     fmt.Sprint(value) == fmt.Sprint(def.Value),
	}, nil
}

// Entries returns every known key with its effective value, sorted by key.
// A non-empty prefix limits the result to keys under it.
func (cm *Manager) Entries(prefix string) []Entry {
	var out []Entry
	for _, def := range DefaultEntries() {
		if prefix != "" && !strings.HasPrefix(def.Key, prefix) {
			continue
		}
		e, err := cm.Lookup(def.Key)
		if err != nil {
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
