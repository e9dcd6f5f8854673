// Package prompts provides the prompt templates for every annotation task.
//
// Embedded .tmpl files are the source of truth. An optional override directory
// may shadow any of them: a file named <key>.tmpl in that directory replaces
// the embedded text for that key.
//
// Every rendered prompt carries the hash of the template it came from, so
// call traces can be tied to the exact prompt version that produced them.
package prompts

// EmbeddedPrompt represents a prompt loaded from an embedded .tmpl file.
type EmbeddedPrompt struct {
	Key         string   // Hierarchical key: tasks.emotion.prompt
	Text        string   // The prompt text (Go template)
	Description string   // Human-readable description
	Variables   []string // Extracted template variables
	Hash        string   // SHA256 hash of the text for change detection
}

// ResolvedPrompt is the template chosen for a key after applying overrides.
type ResolvedPrompt struct {
	Key        string   `json:"key"`
	Text       string   `json:"text"`
	Variables  []string `json:"variables,omitempty"`
	Hash       string   `json:"hash"`
	IsOverride bool     `json:"is_override"`
}

// Rendered is a prompt ready to send to the model.
type Rendered struct {
	Key        string `json:"key"`
	Text       string `json:"text"`
	Hash       string `json:"hash"` // hash of the template, not of Text
	IsOverride bool   `json:"is_override"`
}
