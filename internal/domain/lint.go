package domain

// Tier is the severity tier of a lint rule.
type Tier string

// Lint tiers.
const (
	TierError   Tier = "error"
	TierWarning Tier = "warning"
	TierInfo    Tier = "info"
)

// LintFinding is one issue reported by a lint rule.
type LintFinding struct {
	Rule       string `json:"rule"`
	Tier       Tier   `json:"tier"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
	Line       int    `json:"line,omitempty"` // 1-based, 0 when not tied to a line
}

// LintResult holds the findings of one lint pass partitioned by tier.
type LintResult struct {
	Errors   []LintFinding `json:"errors"`
	Warnings []LintFinding `json:"warnings"`
	Info     []LintFinding `json:"info"`
	Passed   []string      `json:"passed"`
}

// Total returns the number of findings across all tiers.
func (r LintResult) Total() int {
	return len(r.Errors) + len(r.Warnings) + len(r.Info)
}

// Score is the quality score derived from a lint result.
type Score struct {
	Score         int    `json:"score"`
	Grade         string `json:"grade"`
	PassThreshold bool   `json:"pass_threshold"`
}
