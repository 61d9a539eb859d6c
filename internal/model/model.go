// Package model defines the review data model shared across the pipeline.
package model

// Severity classifies how serious a finding is.
type Severity string

// Severity levels, ordered from least to most serious.
const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Valid reports whether s is a known severity level.
func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityError:
		return true
	}
	return false
}

// ReplacementOption is an alternative replacement the generator may offer.
type ReplacementOption struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Issue is a single proposed edit from the generator. ReplaceText and
// ReplaceWith form the deterministic replacement contract: ReplaceText must
// occur exactly once outside forbidden regions for the edit to be applied.
type Issue struct {
	ID       string   `json:"id"`
	Rule     string   `json:"rule"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`

	ReplaceText string `json:"replace_text"`
	ReplaceWith string `json:"replace_with"`

	// Optional fields the generator may include; carried through untouched.
	Replacement  string              `json:"replacement,omitempty"`
	Replacements []ReplacementOption `json:"replacements,omitempty"`
}

// ReviewResponse is the structured edit list parsed from generator output.
type ReviewResponse struct {
	Version string  `json:"version"`
	Issues  []Issue `json:"issues"`
}

// LintIssue is an advisory finding from the external linter. Start and End
// are byte offsets into the reviewed document.
type LintIssue struct {
	ID       string   `json:"id"`
	Rule     string   `json:"rule"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Start    int      `json:"start"`
	End      int      `json:"end"`
}
