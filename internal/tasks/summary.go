package tasks

import (
	"encoding/json"
	"time"

	"github.com/jackzampolin/annotator/internal/extract"
	"github.com/jackzampolin/annotator/internal/jsonl"
	"github.com/jackzampolin/annotator/internal/prompts"
)

const (
	SummaryName = "summary"

	FieldCause            = "predicted_cause"
	FieldSymptoms         = "predicted_symptoms"
	FieldTreatmentProcess = "predicted_treatment_process"
	FieldCharacteristics  = "predicted_illness_Characteristics"
	FieldTreatmentEffect  = "predicted_treatment_effect"
)

// summaryFields lists each output field with its label patterns: the exact
// quoted key first, then a loose natural-language label.
var summaryFields = []extract.Field{
	{Name: FieldCause, Patterns: []string{
		`(?is)"predicted_cause"\s*:\s*"([^"]*)"`,
		`(?is)causes?["']?\s*:\s*["']?([^"']*)`,
	}},
	{Name: FieldSymptoms, Patterns: []string{
		`(?is)"predicted_symptoms"\s*:\s*"([^"]*)"`,
		`(?is)symptoms?["']?\s*:\s*["']?([^"']*)`,
	}},
	{Name: FieldTreatmentProcess, Patterns: []string{
		`(?is)"predicted_treatment_process"\s*:\s*"([^"]*)"`,
		`(?is)treatment.process["']?\s*:\s*["']?([^"']*)`,
	}},
	{Name: FieldCharacteristics, Patterns: []string{
		`(?is)"predicted_illness_Characteristics"\s*:\s*"([^"]*)"`,
		`(?is)characteristics["']?\s*:\s*["']?([^"']*)`,
	}},
	{Name: FieldTreatmentEffect, Patterns: []string{
		`(?is)"predicted_treatment_effect"\s*:\s*"([^"]*)"`,
		`(?is)treatment.effect["']?\s*:\s*["']?([^"']*)`,
	}},
}

type summaryInput struct {
	CaseDescription         flexText `json:"case_description"`
	ConsultationProcess     flexText `json:"consultation_process"`
	ExperienceAndReflection flexText `json:"experience_and_reflection"`
}

// Summary condenses a counselling case report into five named fields.
type Summary struct {
	base
	domain extract.FieldSet
}

// NewSummary creates the structured summarization task.
func NewSummary(r *prompts.Resolver) *Summary {
	domain := extract.FieldSet{Fields: summaryFields}
	return &Summary{
		base: base{
			name:        SummaryName,
			description: "Summarize a counselling case report into cause, symptoms, treatment process, characteristics and effect",
			fields:      domain.Names(),
			delay:       time.Second,
			policy:      FeedMarker,
			prompts:     r,
		},
		domain: domain,
	}
}

func (t *Summary) Prepare(index int, line []byte) (*Item, error) {
	var in summaryInput
	item, err := t.newItem(index, line, &in)
	if err != nil {
		return nil, err
	}
	rendered, err := t.render(struct {
		CaseDescription         string
		ConsultationProcess     string
		ExperienceAndReflection string
	}{string(in.CaseDescription), string(in.ConsultationProcess), string(in.ExperienceAndReflection)})
	if err != nil {
		return nil, err
	}
	item.Prompt = rendered.Text
	item.PromptHash = rendered.Hash
	item.Domain = t.domain
	return item, nil
}

func (t *Summary) Project(item *Item, res extract.Result) jsonl.Record {
	values := make([]any, len(t.fields))
	for i, name := range t.fields {
		values[i] = res.Field(name)
	}
	return t.record(item.ID, values...)
}

func (t *Summary) Unavailable(item *Item) jsonl.Record {
	return t.Project(item, extract.Extract(extract.UnavailableMarker, t.domain))
}

func (t *Summary) Sentinel(id json.RawMessage, _ error) jsonl.Record {
	return t.Project(&Item{ID: id}, extract.Extract("", t.domain))
}

func (t *Summary) Bucket(_ *Item, res extract.Result) string {
	return ""
}

func (t *Summary) Fixtures() []string {
	return []string{
		`{"id":0,"case_description":["求助者，女，28岁，公司职员。","近三个月失眠、情绪低落，对工作失去兴趣。"],"consultation_process":["第一次咨询建立关系，收集资料。","第二至五次咨询采用认知行为疗法，调整自动化思维。"],"experience_and_reflection":"求助者的工作压力与完美主义倾向是问题的核心。"}`,
		`{"id":1,"case_description":"求助者，男，16岁，高一学生，考试前出现心慌、手抖、无法集中注意力。","consultation_process":"采用放松训练与系统脱敏，共六次咨询。","experience_and_reflection":"家长期望过高加重了焦虑，家庭参与很重要。"}`,
		`{"id":2,"case_description":["求助者，女，45岁，丧偶一年。"],"consultation_process":["运用哀伤辅导，帮助其表达情绪，重建生活目标。"],"experience_and_reflection":"哀伤需要被允许和接纳。"}`,
	}
}
