package tasks

import (
	"encoding/json"
	"time"

	"github.com/jackzampolin/annotator/internal/extract"
	"github.com/jackzampolin/annotator/internal/jsonl"
	"github.com/jackzampolin/annotator/internal/prompts"
)

const (
	CounselName   = "counsel"
	FieldResponse = "predicted_response"
)

type counselInput struct {
	ConversationHistory json.RawMessage `json:"conversation_history"`
}

// Counsel writes a counsellor's next reply to a conversation.
type Counsel struct {
	base
}

// NewCounsel creates the counselling reply task.
func NewCounsel(r *prompts.Resolver) *Counsel {
	return &Counsel{base{
		name:        CounselName,
		description: "Write an empathetic counsellor reply to a conversation history",
		fields:      []string{FieldResponse},
		delay:       2 * time.Second,
		policy:      EmitError,
		prompts:     r,
	}}
}

func (t *Counsel) Prepare(index int, line []byte) (*Item, error) {
	var in counselInput
	item, err := t.newItem(index, line, &in)
	if err != nil {
		return nil, err
	}
	rendered, err := t.render(struct{ ConversationHistory string }{textOf(in.ConversationHistory, "\n")})
	if err != nil {
		return nil, err
	}
	item.Prompt = rendered.Text
	item.PromptHash = rendered.Hash
	item.Domain = extract.Freeform{}
	return item, nil
}

func (t *Counsel) Project(item *Item, res extract.Result) jsonl.Record {
	return t.record(item.ID, res.Text)
}

func (t *Counsel) Unavailable(item *Item) jsonl.Record {
	return t.record(item.ID, UnavailableText)
}

func (t *Counsel) Sentinel(id json.RawMessage, cause error) jsonl.Record {
	return t.record(id, invalidInputText(cause))
}

func (t *Counsel) Bucket(*Item, extract.Result) string {
	return ""
}

func (t *Counsel) Fixtures() []string {
	return []string{
		`{"id":0,"conversation_history":"Client: I've been feeling overwhelmed at work lately.\nCounselor: That sounds exhausting. What has been the hardest part?\nClient: I can't say no to anyone, and now I'm behind on everything."}`,
		`{"id":1,"conversation_history":["Client: My mother passed away last month.","Counselor: I'm so sorry for your loss. How have you been coping?","Client: I keep expecting her to call me on Sundays."]}`,
		`{"id":2,"conversation_history":"Client: I finally told my partner how I felt, like we practiced.\nCounselor: How did that go?\nClient: Better than I expected, but I'm still nervous."}`,
	}
}

// invalidInputText is the free-form sentinel for a malformed line.
func invalidInputText(cause error) string {
	if cause == nil {
		return "Error: invalid input record"
	}
	return "Error: invalid input record: " + cause.Error()
}
