package models

// Confidence is the ordinal strength of a classifier suggestion.
type Confidence string

// Confidence levels, weakest first.
const (
	ConfidenceNone   Confidence = "none"
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

var confidenceRank = map[Confidence]int{
	ConfidenceNone:   0,
	ConfidenceLow:    1,
	ConfidenceMedium: 2,
	ConfidenceHigh:   3,
}

// Valid reports whether c is a known confidence level.
func (c Confidence) Valid() bool {
	_, ok := confidenceRank[c]
	return ok
}

// AtLeast reports whether c is greater than or equal to min on the
// none < low < medium < high ordering. Unknown values rank below none.
func (c Confidence) AtLeast(min Confidence) bool {
	return confidenceRank[c] >= confidenceRank[min]
}

// Suggestion is the classifier's verdict for one file.
// RuleID is empty when no rule matched (heuristic fallback or none).
type Suggestion struct {
	TargetType TargetType `json:"target_type,omitempty"`
	TargetID   string     `json:"target_id,omitempty"`
	RuleID     string     `json:"rule_id,omitempty"`
	Confidence Confidence `json:"confidence"`
}

// Matched reports whether the suggestion carries a usable target.
func (s Suggestion) Matched() bool {
	return s.TargetID != ""
}
