package extract

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var emotions = Enumerated{Key: "Emotion", Choices: []string{"Delight", "Anger", "Embarrassment"}, Fallback: "Delight"}

func TestExtractEnumerated(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		domain    Enumerated
		wantLabel string
		wantTier  Tier
	}{
		{"exact object", `{"Emotion": "Anger"}`, emotions, "Anger", TierFenced},
		{"substring", "I think the answer is anger here", emotions, "Anger", TierMembership},
		{"no match defaults to first", "nothing to report", Enumerated{Key: "Emotion", Choices: []string{"Delight", "Anger"}}, "Delight", TierDefault},
		{"fenced object", "Answer:\n```json\n{\"Emotion\": \"Embarrassment\"}\n```", emotions, "Embarrassment", TierFenced},
		{"key and value case folded", `{"emotion": "anger"}`, emotions, "Anger", TierFenced},
		{"bare string", `"Embarrassment"`, emotions, "Embarrassment", TierBare},
		{"out of domain json falls through to synonym", `{"Emotion": "Joy"}`, emotions, "Delight", TierSynonym},
		{"synonym", "The speaker seems happy", Enumerated{Key: "Emotion", Choices: []string{"Anger", "Delight"}}, "Delight", TierSynonym},
		{"synonym only for labels in domain", "he was furious", Enumerated{Key: "Emotion", Choices: []string{"Delight", "Pride"}}, "Delight", TierDefault},
		{"membership follows declaration order", "anger then delight", Enumerated{Key: "Emotion", Choices: []string{"Delight", "Anger"}}, "Delight", TierMembership},
		{"empty text", "", emotions, "Delight", TierDefault},
		{"empty choices use fallback", "no idea", Enumerated{Key: "Emotion", Fallback: "Delight"}, "Delight", TierDefault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.raw, tt.domain)
			if got.Label != tt.wantLabel {
				t.Errorf("Label = %q, want %q", got.Label, tt.wantLabel)
			}
			if got.Tier != tt.wantTier {
				t.Errorf("Tier = %v, want %v", got.Tier, tt.wantTier)
			}
		})
	}
}

func TestExtractEnumerated_AlwaysInDomain(t *testing.T) {
	inputs := []string{
		"",
		"   \n\t",
		"```",
		"```json\n{\"Emotion\": 5}\n```",
		"{{{{",
		`{"Emotion": null}`,
		`["Anger"]`,
		"\x00\xff\xfe",
		"ANGER!!!",
		"Hopeless and proud",
		strings.Repeat("x", 10000),
		UnavailableMarker,
	}
	domains := []Enumerated{
		emotions,
		{Key: "Emotion", Choices: []string{"Pride"}},
		{Key: "Emotion", Fallback: "Delight"},
	}

	for _, d := range domains {
		for _, raw := range inputs {
			got := Extract(raw, d)
			if !d.Contains(got.Label) {
				t.Errorf("Extract(%q, %v) = %q, not in domain", raw, d.Choices, got.Label)
			}
		}
	}
}

func TestExtractIndex(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		domain   Index
		want     int
		wantTier Tier
	}{
		{"fenced", "```json {\"index\": 2} ```", Index{Key: "index"}, 2, TierFenced},
		{"no digits", "I cannot tell which sentence is off.", Index{Key: "index"}, -1, TierDefault},
		{"string value", `{"index": "1"}`, Index{Key: "index", Valid: []int{0, 1, 2}}, 1, TierFenced},
		{"bare number", "1", Index{Key: "index", Valid: []int{0, 1}}, 1, TierBare},
		{"labelled equals", "index = 5", Index{Key: "index"}, 5, TierNumeric},
		{"english phrasing", "The inconsistent sentence is number 4", Index{Key: "index"}, 4, TierNumeric},
		{"localized phrasing", "句子不一致的是 1", Index{Key: "index"}, 1, TierNumeric},
		{"first bare integer", "I pick 7 but maybe 2", Index{Key: "index"}, 7, TierNumeric},
		{"undeclared index decides sentinel", `{"index": 3}`, Index{Key: "index", Valid: []int{0, 1, 2}}, -1, TierFenced},
		{"fenced minus one", "```json\n{\"index\": -1}\n```", Index{Key: "index", Valid: []int{0, 1, 2}}, -1, TierFenced},
		{"bare minus one", `{"index": -1}`, Index{Key: "index", Valid: []int{0, 1, 2}}, -1, TierFenced},
		{"bare scalar minus one", "-1", Index{Key: "index", Valid: []int{0, 1, 2}}, -1, TierBare},
		{"labelled minus one", "index: -1", Index{Key: "index", Valid: []int{0, 1, 2}}, -1, TierDefault},
		{"negative token skipped", "not -1, it is 2", Index{Key: "index", Valid: []int{0, 1, 2}}, 2, TierNumeric},
		{"non-integer value falls through", `{"index": "second"} index = 1`, Index{Key: "index", Valid: []int{0, 1, 2}}, 1, TierNumeric},
		{"empty text", "", Index{Key: "index"}, -1, TierDefault},
		{"unavailable marker", UnavailableMarker, Index{Key: "index"}, -1, TierDefault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.raw, tt.domain)
			if got.Index != tt.want {
				t.Errorf("Index = %d, want %d", got.Index, tt.want)
			}
			if got.Tier != tt.wantTier {
				t.Errorf("Tier = %v, want %v", got.Tier, tt.wantTier)
			}
		})
	}
}

var testFields = FieldSet{Fields: []Field{
	{Name: "predicted_cause", Patterns: []string{`(?is)"predicted_cause"\s*:\s*"([^"]*)"`, `(?im)cause:\s*(.*)$`}},
	{Name: "predicted_symptoms", Patterns: []string{`(?is)"predicted_symptoms"\s*:\s*"([^"]*)"`, `(?im)symptoms:\s*(.*)$`}},
	{Name: "predicted_treatment_effect", Patterns: []string{`(?is)"predicted_treatment_effect"\s*:\s*"([^"]*)"`}},
}}

func TestExtractFields(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		want     []FieldValue
		wantTier Tier
	}{
		{
			name: "complete object",
			raw:  "```json\n{\"predicted_cause\": \"overwork\", \"predicted_symptoms\": \"insomnia\", \"predicted_treatment_effect\": \"improved\"}\n```",
			want: []FieldValue{
				{"predicted_cause", "overwork"},
				{"predicted_symptoms", "insomnia"},
				{"predicted_treatment_effect", "improved"},
			},
			wantTier: TierFenced,
		},
		{
			name: "null and missing fields get marker",
			raw:  `{"predicted_cause": "stress", "predicted_symptoms": null}`,
			want: []FieldValue{
				{"predicted_cause", "stress"},
				{"predicted_symptoms", NotExtracted},
				{"predicted_treatment_effect", NotExtracted},
			},
			wantTier: TierFenced,
		},
		{
			name: "labelled prose",
			raw:  "Cause: overwork\nSymptoms: insomnia and fatigue",
			want: []FieldValue{
				{"predicted_cause", "overwork"},
				{"predicted_symptoms", "insomnia and fatigue"},
				{"predicted_treatment_effect", NotExtracted},
			},
			wantTier: TierFieldPattern,
		},
		{
			name: "object without declared fields falls through",
			raw:  `{"foo": "bar"}`,
			want: []FieldValue{
				{"predicted_cause", NotExtracted},
				{"predicted_symptoms", NotExtracted},
				{"predicted_treatment_effect", NotExtracted},
			},
			wantTier: TierDefault,
		},
		{
			name: "nested values fail the schema",
			raw:  `{"predicted_cause": {"primary": "stress"}}`,
			want: []FieldValue{
				{"predicted_cause", NotExtracted},
				{"predicted_symptoms", NotExtracted},
				{"predicted_treatment_effect", NotExtracted},
			},
			wantTier: TierDefault,
		},
		{
			name: "empty text",
			raw:  "",
			want: []FieldValue{
				{"predicted_cause", NotExtracted},
				{"predicted_symptoms", NotExtracted},
				{"predicted_treatment_effect", NotExtracted},
			},
			wantTier: TierDefault,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.raw, testFields)
			if diff := cmp.Diff(tt.want, got.Fields); diff != "" {
				t.Errorf("Fields mismatch (-want +got):\n%s", diff)
			}
			if got.Tier != tt.wantTier {
				t.Errorf("Tier = %v, want %v", got.Tier, tt.wantTier)
			}
		})
	}
}

func TestExtractFields_EveryFieldPresent(t *testing.T) {
	for _, raw := range []string{"", "{}", "null", "```json\n[]\n```", UnavailableMarker, "cause:"} {
		got := Extract(raw, testFields)
		if len(got.Fields) != len(testFields.Fields) {
			t.Fatalf("Extract(%q) returned %d fields, want %d", raw, len(got.Fields), len(testFields.Fields))
		}
		for i, f := range got.Fields {
			if f.Name != testFields.Fields[i].Name {
				t.Errorf("field %d = %q, want %q", i, f.Name, testFields.Fields[i].Name)
			}
			if f.Value == "" {
				t.Errorf("Extract(%q) field %q is empty", raw, f.Name)
			}
		}
	}
}

func TestExtractFreeform(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		domain   Freeform
		want     string
		wantTier Tier
	}{
		{"yes with trailing words", "Yes, clearly.", Freeform{YesNo: true}, "yes", TierYesNo},
		{"exact no", "NO", Freeform{YesNo: true}, "no", TierYesNo},
		{"no with period", " No. ", Freeform{YesNo: true}, "no", TierYesNo},
		{"not yes or no", "Maybe, it depends on the dose", Freeform{YesNo: true}, "Maybe, it depends on the dose", TierVerbatim},
		{"yes/no fallback truncates", strings.Repeat("a", 80), Freeform{YesNo: true}, strings.Repeat("a", 50), TierVerbatim},
		{"open answer truncates", "abcdefgh", Freeform{MaxLen: 5}, "abcde", TierVerbatim},
		{"truncation counts runes", "你好世界啊", Freeform{MaxLen: 3}, "你好世", TierVerbatim},
		{"unbounded", "  keep all of it  ", Freeform{}, "keep all of it", TierVerbatim},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.raw, tt.domain)
			if got.Text != tt.want {
				t.Errorf("Text = %q, want %q", got.Text, tt.want)
			}
			if got.Tier != tt.wantTier {
				t.Errorf("Tier = %v, want %v", got.Tier, tt.wantTier)
			}
		})
	}
}

func TestIsYesNoQuestion(t *testing.T) {
	tests := map[string]bool{
		"Is the patient improving?":               true,
		"  Does the treatment work?":              true,
		"Should we continue, yes or no?":          true,
		"Answer true or false: the dose is safe.": true,
		"What is the dosage?":                     false,
		"Isolation helps recovery?":               false,
		"":                                        false,
	}
	for q, want := range tests {
		if got := IsYesNoQuestion(q); got != want {
			t.Errorf("IsYesNoQuestion(%q) = %v, want %v", q, got, want)
		}
	}
}

func TestExtract_Idempotent(t *testing.T) {
	domains := []Domain{emotions, Index{Key: "index"}, testFields, Freeform{YesNo: true}, Freeform{MaxLen: 10}}
	inputs := []string{
		"",
		`{"Emotion": "Anger", "index": 2, "predicted_cause": "x"}`,
		"Yes. Cause: fatigue. index = 3, happy",
		"```json\n{\"index\": 1}\n```",
	}
	for _, d := range domains {
		for _, raw := range inputs {
			first := Extract(raw, d)
			second := Extract(raw, d)
			if diff := cmp.Diff(first, second); diff != "" {
				t.Errorf("Extract(%q) not idempotent (-first +second):\n%s", raw, diff)
			}
		}
	}
}

func TestTierString(t *testing.T) {
	if got := TierFieldPattern.String(); got != "field_pattern" {
		t.Errorf("TierFieldPattern.String() = %q", got)
	}
	if got := Tier(99).String(); got != "default" {
		t.Errorf("Tier(99).String() = %q", got)
	}
}
