package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// TaskKey returns the prompt key for a task name.
func TaskKey(task string) string {
	return "tasks." + task + ".prompt"
}

// Resolver resolves prompts with directory overrides.
// Resolution order: <overrideDir>/<key>.tmpl > embedded default
type Resolver struct {
	overrideDir string
	embedded    map[string]EmbeddedPrompt
	parsed      map[string]*template.Template
	resolved    map[string]*ResolvedPrompt
	mu          sync.RWMutex
	logger      *slog.Logger
}

// NewResolver creates a resolver preloaded with every embedded task template.
// overrideDir may be empty.
func NewResolver(overrideDir string, logger *slog.Logger) (*Resolver, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{
		overrideDir: overrideDir,
		embedded:    make(map[string]EmbeddedPrompt),
		parsed:      make(map[string]*template.Template),
		resolved:    make(map[string]*ResolvedPrompt),
		logger:      logger.With("component", "prompts"),
	}

	entries, err := fs.ReadDir(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("read embedded templates: %w", err)
	}
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".tmpl")
		text, err := fs.ReadFile(templateFS, path.Join("templates", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read embedded template %s: %w", e.Name(), err)
		}
		r.Register(EmbeddedPrompt{
			Key:         TaskKey(name),
			Text:        string(text),
			Description: fmt.Sprintf("Prompt for the %s task", name),
		})
	}
	return r, nil
}

var (
	defaultOnce     sync.Once
	defaultResolver *Resolver
	defaultErr      error
)

// Default returns a shared resolver over the embedded templates only.
func Default() (*Resolver, error) {
	defaultOnce.Do(func() {
		defaultResolver, defaultErr = NewResolver("", nil)
	})
	return defaultResolver, defaultErr
}

// Register registers an embedded prompt, replacing any earlier one with the same key.
func (r *Resolver) Register(prompt EmbeddedPrompt) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prompt.Hash == "" {
		prompt.Hash = HashText(prompt.Text)
	}
	if prompt.Variables == nil {
		prompt.Variables = ExtractVariables(prompt.Text)
	}

	r.embedded[prompt.Key] = prompt
	delete(r.parsed, prompt.Key)
	delete(r.resolved, prompt.Key)
	r.logger.Debug("registered embedded prompt", "key", prompt.Key, "vars", prompt.Variables)
}

// Resolve returns the override for key if one exists, otherwise the embedded default.
func (r *Resolver) Resolve(key string) (*ResolvedPrompt, error) {
	r.mu.RLock()
	cached, ok := r.resolved[key]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	resolved, err := r.resolve(key)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.resolved[key] = resolved
	r.mu.Unlock()
	return resolved, nil
}

func (r *Resolver) resolve(key string) (*ResolvedPrompt, error) {
	if r.overrideDir != "" {
		data, err := os.ReadFile(filepath.Join(r.overrideDir, key+".tmpl"))
		switch {
		case err == nil:
			text := string(data)
			r.logger.Info("using prompt override", "key", key, "dir", r.overrideDir)
			return &ResolvedPrompt{
				Key:        key,
				Text:       text,
				Variables:  ExtractVariables(text),
				Hash:       HashText(text),
				IsOverride: true,
			}, nil
		case !errors.Is(err, fs.ErrNotExist):
			r.logger.Warn("failed to read prompt override", "key", key, "error", err)
			// Fall through to embedded default
		}
	}

	r.mu.RLock()
	embedded, ok := r.embedded[key]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("prompt not found: %s", key)
	}
	return &ResolvedPrompt{
		Key:       key,
		Text:      embedded.Text,
		Variables: embedded.Variables,
		Hash:      embedded.Hash,
	}, nil
}

// Render resolves key and executes it with data.
func (r *Resolver) Render(key string, data any) (*Rendered, error) {
	resolved, err := r.Resolve(key)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	tmpl, ok := r.parsed[key]
	r.mu.RUnlock()
	if !ok {
		tmpl, err = parse(key, resolved.Text)
		if err != nil {
			return nil, fmt.Errorf("parse prompt %s: %w", key, err)
		}
		r.mu.Lock()
		r.parsed[key] = tmpl
		r.mu.Unlock()
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render prompt %s: %w", key, err)
	}
	return &Rendered{
		Key:        key,
		Text:       buf.String(),
		Hash:       resolved.Hash,
		IsOverride: resolved.IsOverride,
	}, nil
}

// GetEmbedded returns the embedded default for a key.
func (r *Resolver) GetEmbedded(key string) (*EmbeddedPrompt, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.embedded[key]
	return &p, ok
}

// Keys returns every registered key, sorted.
func (r *Resolver) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.embedded))
	for k := range r.embedded {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
