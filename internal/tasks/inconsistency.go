package tasks

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/jackzampolin/annotator/internal/extract"
	"github.com/jackzampolin/annotator/internal/jsonl"
	"github.com/jackzampolin/annotator/internal/prompts"
)

const (
	InconsistencyName = "inconsistency"
	FieldIndex        = "predicted_index"
	indexKey          = "index"
)

type candidateText struct {
	Index   *int   `json:"index"`
	Context string `json:"context"`
}

type inconsistencyInput struct {
	Text []candidateText `json:"text"`
}

// promptText is the template view of one candidate.
type promptText struct {
	Index   int
	Context string
}

// Inconsistency selects the candidate text whose emotion differs from the rest.
type Inconsistency struct {
	base
}

// NewInconsistency creates the inconsistency detection task.
func NewInconsistency(r *prompts.Resolver) *Inconsistency {
	return &Inconsistency{base{
		name:        InconsistencyName,
		description: "Pick the index of the text whose emotion is inconsistent with the others",
		fields:      []string{FieldIndex},
		delay:       time.Second,
		policy:      FeedMarker,
		prompts:     r,
	}}
}

func (t *Inconsistency) Prepare(index int, line []byte) (*Item, error) {
	var in inconsistencyInput
	item, err := t.newItem(index, line, &in)
	if err != nil {
		return nil, err
	}

	texts := make([]promptText, len(in.Text))
	valid := make([]int, len(in.Text))
	for i, c := range in.Text {
		idx := i
		if c.Index != nil {
			idx = *c.Index
		}
		texts[i] = promptText{Index: idx, Context: c.Context}
		valid[i] = idx
	}

	rendered, err := t.render(struct{ Texts []promptText }{texts})
	if err != nil {
		return nil, err
	}
	item.Prompt = rendered.Text
	item.PromptHash = rendered.Hash
	item.Domain = extract.Index{Key: indexKey, Valid: valid}
	return item, nil
}

func (t *Inconsistency) Project(item *Item, res extract.Result) jsonl.Record {
	return t.record(item.ID, res.Index)
}

func (t *Inconsistency) Unavailable(item *Item) jsonl.Record {
	return t.Project(item, extract.Extract(extract.UnavailableMarker, item.Domain))
}

func (t *Inconsistency) Sentinel(id json.RawMessage, _ error) jsonl.Record {
	return t.record(id, -1)
}

func (t *Inconsistency) Bucket(_ *Item, res extract.Result) string {
	return strconv.Itoa(res.Index)
}

func (t *Inconsistency) Fixtures() []string {
	return []string{
		`{"id":0,"text":[{"index":0,"context":"I finally got the job offer I wanted."},{"index":1,"context":"My best friend threw me a surprise party."},{"index":2,"context":"I lost my wallet on the way home."}]}`,
		`{"id":1,"text":[{"index":0,"context":"The storm flooded our basement again."},{"index":1,"context":"We won the championship in overtime."},{"index":2,"context":"My flight was cancelled for the third time."},{"index":3,"context":"The repair bill was twice the estimate."}]}`,
		`{"id":2,"text":[{"index":0,"context":"She smiled as the lights came on."},{"index":1,"context":"He laughed at the old photographs."},{"index":2,"context":"They danced until midnight."},{"index":3,"context":"The news of the accident left him shaking."}]}`,
	}
}
