package extract

// Tier identifies the cascade step that produced a result.
type Tier int

const (
	TierDefault Tier = iota
	TierFenced
	TierBare
	TierFieldPattern
	TierMembership
	TierSynonym
	TierNumeric
	TierYesNo
	TierVerbatim
)

// String returns the tier name used in logs, traces and metrics labels.
func (t Tier) String() string {
	switch t {
	case TierFenced:
		return "fenced"
	case TierBare:
		return "bare"
	case TierFieldPattern:
		return "field_pattern"
	case TierMembership:
		return "membership"
	case TierSynonym:
		return "synonym"
	case TierNumeric:
		return "numeric"
	case TierYesNo:
		return "yes_no"
	case TierVerbatim:
		return "verbatim"
	default:
		return "default"
	}
}

// FieldValue is one extracted field in declaration order.
type FieldValue struct {
	Name  string
	Value string
}

// Result is the structured answer for one piece of model text.
// Exactly one of Label, Index, Fields or Text is meaningful, depending on the
// domain that produced it. Tier is diagnostic and is never written to output.
type Result struct {
	Label  string
	Index  int
	Fields []FieldValue
	Text   string
	Tier   Tier
}

// Field returns the value of the named field, or NotExtracted.
func (r Result) Field(name string) string {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return NotExtracted
}
