package lint

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/bissquit/incident-comms/internal/domain"
	"github.com/bissquit/incident-comms/internal/fieldmap"
	"github.com/bissquit/incident-comms/internal/tokens"
)

// Rule identifiers.
const (
	RuleMissingTokens   = "missing-tokens"
	RuleUndefinedTokens = "undefined-tokens"
	RuleLength          = "length-check"
	RuleTone            = "tone-check"
	RuleClarity         = "clarity-check"
	RuleSpelling        = "spelling-check"
	RuleFormatting      = "formatting-check"
)

// Thresholds.
const (
	MinLength        = 50
	MaxLength        = 2000
	MaxExclamations  = 2
	MaxSentenceWords = 40
	MaxJargonUses    = 2
)

// Issue is what a rule reports; the engine attaches the rule id and tier.
type Issue struct {
	Message    string
	Suggestion string
	Line       int
}

// CheckFunc inspects a template and body. It must not modify either.
type CheckFunc func(tmpl domain.Template, body string) []Issue

// Rule is one registered lint check.
type Rule struct {
	ID    string
	Tier  domain.Tier
	Check CheckFunc
}

// DefaultRules returns the built-in rules in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{ID: RuleMissingTokens, Tier: domain.TierError, Check: checkMissingTokens},
		{ID: RuleUndefinedTokens, Tier: domain.TierWarning, Check: checkUndefinedTokens},
		{ID: RuleLength, Tier: domain.TierWarning, Check: checkLength},
		{ID: RuleTone, Tier: domain.TierInfo, Check: checkTone},
		{ID: RuleClarity, Tier: domain.TierInfo, Check: checkClarity},
		{ID: RuleSpelling, Tier: domain.TierWarning, Check: checkSpelling},
		{ID: RuleFormatting, Tier: domain.TierInfo, Check: checkFormatting},
	}
}

var (
	informalWords = []string{"hey", "guys", "stuff", "things", "gonna", "wanna", "kinda", "yeah"}

	passivePhrases = []string{"was affected", "were affected", "is being", "has been", "will be"}

	jargonTerms = []string{"SRE", "IC", "PIR", "RCA", "ETA", "SLA"}

	misspellings = []struct {
		wrong   string
		correct string
	}{
		{"recieve", "receive"},
		{"occured", "occurred"},
		{"seperate", "separate"},
		{"definately", "definitely"},
		{"accomodate", "accommodate"},
		{"untill", "until"},
		{"begining", "beginning"},
	}

	informalPatterns = compileWords(informalWords, true)
	jargonPatterns   = compileWords(jargonTerms, false)
	spellingPatterns = func() []*regexp.Regexp {
		out := make([]*regexp.Regexp, len(misspellings))
		for i, m := range misspellings {
			out[i] = wordPattern(m.wrong, true)
		}
		return out
	}()

	sentenceSplit = regexp.MustCompile(`[.!?]+`)
	singleNewline = regexp.MustCompile(`[^\n]\n[^\n]`)
)

func wordPattern(word string, ignoreCase bool) *regexp.Regexp {
	expr := `\b` + regexp.QuoteMeta(word) + `\b`
	if ignoreCase {
		expr = `(?i)` + expr
	}
	return regexp.MustCompile(expr)
}

func compileWords(words []string, ignoreCase bool) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(words))
	for i, w := range words {
		out[i] = wordPattern(w, ignoreCase)
	}
	return out
}

func checkMissingTokens(tmpl domain.Template, body string) []Issue {
	present := make(map[string]struct{})
	for _, name := range tokens.Names(body) {
		present[name] = struct{}{}
	}

	var issues []Issue
	for _, required := range tmpl.TokensRequired {
		if _, ok := present[required]; ok {
			continue
		}
		issues = append(issues, Issue{
			Message:    fmt.Sprintf("Required token [%s] is missing from template body", required),
			Suggestion: fmt.Sprintf("Add [%s] to the template where appropriate", required),
		})
	}
	return issues
}

func checkUndefinedTokens(_ domain.Template, body string) []Issue {
	var issues []Issue
	for _, name := range tokens.Names(body) {
		if _, ok := fieldmap.MapTokenToField(name); ok {
			continue
		}
		issues = append(issues, Issue{
			Message:    fmt.Sprintf("Token [%s] is not defined in the token mapping system", name),
			Suggestion: "Remove the token or use one of the known incident fields",
		})
	}
	return issues
}

func checkLength(_ domain.Template, body string) []Issue {
	length := utf8.RuneCountInString(body)

	var issues []Issue
	if length < MinLength {
		issues = append(issues, Issue{
			Message:    fmt.Sprintf("Template is very short (< %d characters)", MinLength),
			Suggestion: "Consider adding more context or structure",
		})
	}
	if length > MaxLength {
		issues = append(issues, Issue{
			Message:    fmt.Sprintf("Template is very long (> %d characters)", MaxLength),
			Suggestion: "Consider breaking into multiple templates or simplifying",
		})
	}
	return issues
}

func checkTone(tmpl domain.Template, body string) []Issue {
	audience := tmpl.EffectiveAudience()

	var issues []Issue
	if audience.IsRestricted() {
		for i, re := range informalPatterns {
			if !re.MatchString(body) {
				continue
			}
			issues = append(issues, Issue{
				Message:    fmt.Sprintf("Informal word %q may be inappropriate for %s audience", informalWords[i], audience),
				Suggestion: fmt.Sprintf("Use more formal language for %s communications", audience),
			})
		}
	}

	if count := strings.Count(body, "!"); count > MaxExclamations && audience != domain.AudienceInternal {
		issues = append(issues, Issue{
			Message:    fmt.Sprintf("Excessive exclamation marks (%d) for %s audience", count, audience),
			Suggestion: "Use exclamation marks sparingly in professional communications",
		})
	}
	return issues
}

func checkClarity(tmpl domain.Template, body string) []Issue {
	var issues []Issue

	for idx, sentence := range sentenceSplit.Split(body, -1) {
		if words := len(strings.Fields(sentence)); words > MaxSentenceWords {
			issues = append(issues, Issue{
				Message:    fmt.Sprintf("Sentence %d is very long (%d words)", idx+1, words),
				Suggestion: "Break into shorter sentences for better readability",
			})
		}
	}

	lower := strings.ToLower(body)
	for _, phrase := range passivePhrases {
		if strings.Contains(lower, phrase) {
			issues = append(issues, Issue{
				Message:    fmt.Sprintf("Possible passive voice: %q", phrase),
				Suggestion: "Consider using active voice for clearer communication",
			})
		}
	}

	if tmpl.EffectiveAudience() == domain.AudienceCustomer {
		for i, re := range jargonPatterns {
			if len(re.FindAllStringIndex(body, -1)) > MaxJargonUses {
				issues = append(issues, Issue{
					Message:    fmt.Sprintf("Heavy use of jargon %q for customer-facing template", jargonTerms[i]),
					Suggestion: "Define acronyms or use plain language for external audiences",
				})
			}
		}
	}
	return issues
}

func checkSpelling(_ domain.Template, body string) []Issue {
	var issues []Issue
	for i, re := range spellingPatterns {
		if !re.MatchString(body) {
			continue
		}
		issues = append(issues, Issue{
			Message:    fmt.Sprintf("Possible spelling error: %q", misspellings[i].wrong),
			Suggestion: fmt.Sprintf("Did you mean %q?", misspellings[i].correct),
		})
	}
	return issues
}

func checkFormatting(_ domain.Template, body string) []Issue {
	var issues []Issue

	if strings.Contains(body, "\n\n") && singleNewline.MatchString(body) {
		issues = append(issues, Issue{
			Message:    "Inconsistent line break usage (mixing single and double)",
			Suggestion: "Use consistent line breaks throughout template",
		})
	}

	for idx, line := range strings.Split(body, "\n") {
		if line != strings.TrimRight(line, " \t\r\f\v") {
			issues = append(issues, Issue{
				Message:    fmt.Sprintf("Line %d has trailing whitespace", idx+1),
				Suggestion: "Remove trailing spaces for cleaner formatting",
				Line:       idx + 1,
			})
		}
	}

	if open, closed := strings.Count(body, "["), strings.Count(body, "]"); open != closed {
		issues = append(issues, Issue{
			Message:    fmt.Sprintf("Mismatched brackets: %d opening, %d closing", open, closed),
			Suggestion: "Ensure all token brackets are properly closed",
		})
	}

	if open, closed := strings.Count(body, "{"), strings.Count(body, "}"); open != closed {
		issues = append(issues, Issue{
			Message:    fmt.Sprintf("Mismatched braces: %d opening, %d closing", open, closed),
			Suggestion: "Ensure all braces are properly closed",
		})
	}
	return issues
}
