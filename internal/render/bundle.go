package render

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

const (
	bundleDelimiter  = "====="
	bundleFileSuffix = ".txt"
	defaultLabelBase = "incident"
)

var bundleHeader = regexp.MustCompile(`(?m)^===== (.+) =====$`)

// Section is one labeled block of a bundle.
type Section struct {
	Label string
	Kind  string
	Body  string
}

// SectionLabel returns the file-like label for a communication kind.
func SectionLabel(identifier, kind string) string {
	base := identifier
	if base == "" {
		base = defaultLabelBase
	}
	return fmt.Sprintf("%s_%s%s", base, kind, bundleFileSuffix)
}

// Bundle concatenates rendered communications into one export, sorted
// by kind.
func Bundle(identifier string, rendered map[string]string) string {
	kinds := make([]string, 0, len(rendered))
	for k := range rendered {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	sections := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		header := fmt.Sprintf("%s %s %s", bundleDelimiter, SectionLabel(identifier, kind), bundleDelimiter)
		sections = append(sections, header+"\n"+rendered[kind])
	}
	return strings.Join(sections, "\n\n")
}

// ParseBundle splits a bundle produced by Bundle back into its sections.
// The identifier, when known, is stripped from labels to recover kinds.
func ParseBundle(text, identifier string) ([]Section, error) {
	headers := bundleHeader.FindAllStringSubmatchIndex(text, -1)
	if len(headers) == 0 {
		return nil, ErrEmptyBundle
	}

	base := identifier
	if base == "" {
		base = defaultLabelBase
	}

	sections := make([]Section, 0, len(headers))
	for i, h := range headers {
		label := text[h[2]:h[3]]

		start := h[1]
		if start < len(text) && text[start] == '\n' {
			start++
		}
		end := len(text)
		if i+1 < len(headers) {
			end = headers[i+1][0]
		}
		body := text[start:end]
		if i+1 < len(headers) {
			body = strings.TrimSuffix(body, "\n\n")
		}

		kind := strings.TrimSuffix(label, bundleFileSuffix)
		kind = strings.TrimPrefix(kind, base+"_")

		sections = append(sections, Section{Label: label, Kind: kind, Body: body})
	}
	return sections, nil
}
