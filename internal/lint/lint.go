// Package lint checks template bodies for completeness and communication
// quality and scores the result.
package lint

import (
	"github.com/bissquit/incident-comms/internal/domain"
)

// PassScore is the lowest score that passes.
const PassScore = 70

const (
	errorWeight   = 10
	warningWeight = 5
	infoWeight    = 1
)

// Linter runs a fixed set of rules.
type Linter struct {
	rules []Rule
}

// NewLinter creates a linter with the built-in rules.
func NewLinter() *Linter {
	return NewLinterWithRules(DefaultRules())
}

// NewLinterWithRules creates a linter with a custom rule set.
func NewLinterWithRules(rules []Rule) *Linter {
	return &Linter{rules: rules}
}

// Rules returns the registered rules in evaluation order.
func (l *Linter) Rules() []Rule {
	out := make([]Rule, len(l.rules))
	copy(out, l.rules)
	return out
}

// Lint runs every rule against body and partitions the findings by tier.
// Rules without findings are listed in Passed.
func (l *Linter) Lint(tmpl domain.Template, body string) domain.LintResult {
	result := domain.LintResult{
		Errors:   []domain.LintFinding{},
		Warnings: []domain.LintFinding{},
		Info:     []domain.LintFinding{},
		Passed:   []string{},
	}

	for _, rule := range l.rules {
		issues := rule.Check(tmpl, body)
		if len(issues) == 0 {
			result.Passed = append(result.Passed, rule.ID)
			continue
		}

		for _, issue := range issues {
			finding := domain.LintFinding{
				Rule:       rule.ID,
				Tier:       rule.Tier,
				Message:    issue.Message,
				Suggestion: issue.Suggestion,
				Line:       issue.Line,
			}
			switch rule.Tier {
			case domain.TierError:
				result.Errors = append(result.Errors, finding)
			case domain.TierWarning:
				result.Warnings = append(result.Warnings, finding)
			default:
				result.Info = append(result.Info, finding)
			}
		}
		recordFindings(rule.ID, rule.Tier, len(issues))
	}

	recordLintRun()
	return result
}

// Report is a lint result together with its score.
type Report struct {
	Template string            `json:"template"`
	Result   domain.LintResult `json:"result"`
	Score    domain.Score      `json:"score"`
}

// Check lints body and scores the result.
func (l *Linter) Check(tmpl domain.Template, body string) Report {
	result := l.Lint(tmpl, body)
	score := CalculateScore(result)
	recordScore(score)
	return Report{Template: tmpl.ID, Result: result, Score: score}
}

// CalculateScore converts a result to a 0-100 score and letter grade.
func CalculateScore(result domain.LintResult) domain.Score {
	deductions := len(result.Errors)*errorWeight +
		len(result.Warnings)*warningWeight +
		len(result.Info)*infoWeight

	score := max(0, 100-deductions)
	return domain.Score{
		Score:         score,
		Grade:         Grade(score),
		PassThreshold: score >= PassScore,
	}
}

// Grade maps a score to a letter grade.
func Grade(score int) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}
