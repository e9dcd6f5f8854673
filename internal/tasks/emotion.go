package tasks

import (
	"encoding/json"
	"time"

	"github.com/jackzampolin/annotator/internal/extract"
	"github.com/jackzampolin/annotator/internal/jsonl"
	"github.com/jackzampolin/annotator/internal/prompts"
)

const (
	EmotionName     = "emotion"
	FieldEmotion    = "predicted_emotion"
	emotionKey      = "Emotion"
	emotionFallback = "Delight"
)

type emotionInput struct {
	Context string   `json:"context"`
	Subject string   `json:"Subject"`
	Choices []string `json:"choices"`
}

// Emotion classifies the emotion a subject feels into one of the record's choices.
type Emotion struct {
	base
}

// NewEmotion creates the emotion classification task.
func NewEmotion(r *prompts.Resolver) *Emotion {
	return &Emotion{base{
		name:        EmotionName,
		description: "Classify the emotion a subject feels into one of the listed choices",
		fields:      []string{FieldEmotion},
		delay:       2 * time.Second,
		policy:      FeedMarker,
		prompts:     r,
	}}
}

func (t *Emotion) Prepare(index int, line []byte) (*Item, error) {
	var in emotionInput
	item, err := t.newItem(index, line, &in)
	if err != nil {
		return nil, err
	}
	rendered, err := t.render(in)
	if err != nil {
		return nil, err
	}
	item.Prompt = rendered.Text
	item.PromptHash = rendered.Hash
	item.Domain = extract.Enumerated{Key: emotionKey, Choices: in.Choices, Fallback: emotionFallback}
	return item, nil
}

func (t *Emotion) Project(item *Item, res extract.Result) jsonl.Record {
	return t.record(item.ID, res.Label)
}

func (t *Emotion) Unavailable(item *Item) jsonl.Record {
	return t.Project(item, extract.Extract(extract.UnavailableMarker, item.Domain))
}

func (t *Emotion) Sentinel(id json.RawMessage, _ error) jsonl.Record {
	return t.record(id, emotionFallback)
}

func (t *Emotion) Bucket(_ *Item, res extract.Result) string {
	return res.Label
}

func (t *Emotion) Fixtures() []string {
	return []string{
		`{"id":0,"context":"John just won the lottery and is celebrating with his friends.","Subject":"John","choices":["Delight","Anger","Embarrassment"]}`,
		`{"id":1,"context":"Mary failed her final exam despite studying hard for weeks.","Subject":"Mary","choices":["Disappointment","Pride","Hopeless"]}`,
		`{"id":2,"context":"Tom was praised by his boss in front of the whole team for his excellent work.","Subject":"Tom","choices":["Pride","Embarrassment","Anger"]}`,
	}
}
