package tasks

import (
	"encoding/json"
	"time"

	"github.com/jackzampolin/annotator/internal/extract"
	"github.com/jackzampolin/annotator/internal/jsonl"
	"github.com/jackzampolin/annotator/internal/prompts"
)

const (
	QAName      = "qa"
	FieldAnswer = "predicted_answer"

	// qaMaxLen caps open answers in runes.
	qaMaxLen = 200
)

type qaInput struct {
	Context flexText `json:"context"`
	Problem string   `json:"problem"`
}

// QA answers a question about an article, forcing yes/no when the question asks for it.
type QA struct {
	base
}

// NewQA creates the article question answering task.
func NewQA(r *prompts.Resolver) *QA {
	return &QA{base{
		name:        QAName,
		description: "Answer a question from an article; yes/no questions are normalized to yes or no",
		fields:      []string{FieldAnswer},
		delay:       2 * time.Second,
		policy:      EmitError,
		prompts:     r,
	}}
}

func (t *QA) Prepare(index int, line []byte) (*Item, error) {
	var in qaInput
	item, err := t.newItem(index, line, &in)
	if err != nil {
		return nil, err
	}
	yesNo := extract.IsYesNoQuestion(in.Problem)
	rendered, err := t.render(struct {
		Context string
		Problem string
		YesNo   bool
	}{string(in.Context), in.Problem, yesNo})
	if err != nil {
		return nil, err
	}
	item.Prompt = rendered.Text
	item.PromptHash = rendered.Hash
	item.YesNo = yesNo
	item.Domain = extract.Freeform{YesNo: yesNo, MaxLen: qaMaxLen}
	return item, nil
}

func (t *QA) Project(item *Item, res extract.Result) jsonl.Record {
	return t.record(item.ID, res.Text)
}

func (t *QA) Unavailable(item *Item) jsonl.Record {
	return t.record(item.ID, UnavailableText)
}

func (t *QA) Sentinel(id json.RawMessage, cause error) jsonl.Record {
	return t.record(id, invalidInputText(cause))
}

// Bucket is "yes" or "no" for normalized answers and "open" otherwise.
func (t *QA) Bucket(_ *Item, res extract.Result) string {
	if res.Tier == extract.TierYesNo {
		return res.Text
	}
	return "open"
}

func (t *QA) Fixtures() []string {
	return []string{
		`{"id":0,"context":"In a randomized trial of 120 adults, eight weeks of mindfulness training reduced self-reported anxiety scores by 30 percent compared with a waitlist control.","problem":"Did mindfulness training reduce anxiety?"}`,
		`{"id":1,"context":"The study followed 2,000 adolescents for five years and found that sleep duration under seven hours predicted later depressive symptoms.","problem":"How long were the adolescents followed?"}`,
		`{"id":2,"context":"Participants who wrote about positive experiences for twenty minutes a day reported fewer illness-related visits to the health center.","problem":"Is expressive writing associated with fewer health center visits, yes or no?"}`,
	}
}
