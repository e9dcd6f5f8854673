package prompts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewResolver_EmbeddedTasks(t *testing.T) {
	r, err := NewResolver("", nil)
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}
	for _, task := range []string{"counsel", "emotion", "inconsistency", "qa", "summary"} {
		if _, ok := r.GetEmbedded(TaskKey(task)); !ok {
			t.Errorf("missing embedded prompt for %s", task)
		}
	}
	if got := len(r.Keys()); got != 5 {
		t.Errorf("len(Keys()) = %d, want 5", got)
	}
}

func TestRender(t *testing.T) {
	r, err := NewResolver("", nil)
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}

	t.Run("emotion", func(t *testing.T) {
		out, err := r.Render(TaskKey("emotion"), struct {
			Context string
			Subject string
			Choices []string
		}{"John won the lottery.", "John", []string{"Delight", "Anger"}})
		if err != nil {
			t.Fatalf("Render() error = %v", err)
		}
		for _, want := range []string{"John won the lottery.", "would John ultimately feel", "Choices: Delight, Anger", `{"Emotion": "selected_emotion"}`} {
			if !strings.Contains(out.Text, want) {
				t.Errorf("rendered prompt missing %q", want)
			}
		}
		emb, _ := r.GetEmbedded(TaskKey("emotion"))
		if out.Hash != emb.Hash {
			t.Errorf("Hash = %s, want embedded hash %s", out.Hash, emb.Hash)
		}
		if out.IsOverride {
			t.Error("IsOverride = true, want false")
		}
	})

	t.Run("inconsistency lists every text", func(t *testing.T) {
		type text struct {
			Index   int
			Context string
		}
		out, err := r.Render(TaskKey("inconsistency"), struct{ Texts []text }{
			Texts: []text{{0, "calm"}, {1, "furious"}, {2, "calm"}},
		})
		if err != nil {
			t.Fatalf("Render() error = %v", err)
		}
		for _, want := range []string{"There are 3 texts", "Index 0: calm", "Index 1: furious", "Index 2: calm"} {
			if !strings.Contains(out.Text, want) {
				t.Errorf("rendered prompt missing %q", want)
			}
		}
	})

	t.Run("qa switches instruction", func(t *testing.T) {
		type qa struct {
			Context, Problem string
			YesNo            bool
		}
		yes, err := r.Render(TaskKey("qa"), qa{"article", "Is it?", true})
		if err != nil {
			t.Fatalf("Render() error = %v", err)
		}
		open, err := r.Render(TaskKey("qa"), qa{"article", "Why?", false})
		if err != nil {
			t.Fatalf("Render() error = %v", err)
		}
		if !strings.Contains(yes.Text, "exactly one word: 'yes' or 'no'") {
			t.Error("yes/no prompt missing one-word instruction")
		}
		if !strings.Contains(open.Text, "Answer concisely in one sentence. Do not") {
			t.Error("open prompt missing one-sentence instruction")
		}
	})

	t.Run("unknown key", func(t *testing.T) {
		if _, err := r.Render("tasks.nope.prompt", nil); err == nil {
			t.Fatal("Render() expected error for unknown key")
		}
	})
}

func TestRender_Override(t *testing.T) {
	dir := t.TempDir()
	key := TaskKey("counsel")
	override := "Reply kindly to: {{.ConversationHistory}}"
	if err := os.WriteFile(filepath.Join(dir, key+".tmpl"), []byte(override), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	r, err := NewResolver(dir, nil)
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}
	out, err := r.Render(key, struct{ ConversationHistory string }{"I feel lost."})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if out.Text != "Reply kindly to: I feel lost." {
		t.Errorf("Text = %q", out.Text)
	}
	if !out.IsOverride {
		t.Error("IsOverride = false, want true")
	}
	if out.Hash != HashText(override) {
		t.Errorf("Hash = %s, want hash of override", out.Hash)
	}

	// Keys without an override file still use the embedded text.
	other, err := r.Resolve(TaskKey("qa"))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if other.IsOverride {
		t.Error("qa resolved as override")
	}
}

func TestExtractVariables(t *testing.T) {
	got := ExtractVariables(`{{.Subject}} {{ .Context }} {{join .Choices ", "}} {{.Subject}}`)
	want := []string{"Choices", "Context", "Subject"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("ExtractVariables() = %v, want %v", got, want)
	}
}

func TestHashText(t *testing.T) {
	if HashText("a") == HashText("b") {
		t.Error("different text produced the same hash")
	}
	if len(HashText("")) != 64 {
		t.Errorf("len(HashText) = %d, want 64", len(HashText("")))
	}
}
