// Package tokens extracts bracket placeholders and the inline metadata block
// from template bodies.
package tokens

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	tokenPattern    = regexp.MustCompile(`\[\s*([A-Za-z_][A-Za-z0-9_]*)\s*\]`)
	metadataPattern = regexp.MustCompile(`(?s)<!--\s*META\s*:\s*(\{.*?\})\s*-->`)
)

// Token is one placeholder occurrence in a body.
type Token struct {
	Raw    string // exact surface form, e.g. "[ INCIDENT_NAME ]"
	Name   string // trimmed name, e.g. "INCIDENT_NAME"
	Offset int    // byte offset of Raw in the scanned body
}

// Extract returns every placeholder occurrence in body in positional order.
func Extract(body string) []Token {
	matches := tokenPattern.FindAllStringSubmatchIndex(body, -1)
	if len(matches) == 0 {
		return nil
	}

	result := make([]Token, 0, len(matches))
	for _, m := range matches {
		result = append(result, Token{
			Raw:    body[m[0]:m[1]],
			Name:   body[m[2]:m[3]],
			Offset: m[0],
		})
	}
	return result
}

// Names returns the distinct token names of body in first-occurrence order.
func Names(body string) []string {
	all := Extract(body)
	if len(all) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(all))
	names := make([]string, 0, len(all))
	for _, t := range all {
		if _, ok := seen[t.Name]; ok {
			continue
		}
		seen[t.Name] = struct{}{}
		names = append(names, t.Name)
	}
	return names
}

// Replace substitutes every token occurrence in body with fn's result in a
// single left-to-right pass. Replacement text is never rescanned.
func Replace(body string, fn func(Token) string) string {
	matches := tokenPattern.FindAllStringSubmatchIndex(body, -1)
	if len(matches) == 0 {
		return body
	}

	var b strings.Builder
	b.Grow(len(body))
	last := 0
	for _, m := range matches {
		b.WriteString(body[last:m[0]])
		b.WriteString(fn(Token{Raw: body[m[0]:m[1]], Name: body[m[2]:m[3]], Offset: m[0]}))
		last = m[1]
	}
	b.WriteString(body[last:])
	return b.String()
}

// Contains reports whether body references the token name.
func Contains(body, name string) bool {
	for _, t := range Extract(body) {
		if t.Name == name {
			return true
		}
	}
	return false
}

// ExtractMetadata parses the "<!-- META: {...} -->" block of body. The
// returned map is never nil. A block that fails to parse, or a body carrying
// more than one block, yields a *ParseWarning; callers log it and go on.
func ExtractMetadata(body string) (map[string]any, error) {
	result := make(map[string]any)

	blocks := metadataPattern.FindAllStringSubmatch(body, -1)
	if len(blocks) == 0 {
		return result, nil
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(blocks[0][1])))
	dec.UseNumber()
	if err := dec.Decode(&result); err != nil {
		return make(map[string]any), &ParseWarning{Source: "metadata", Err: err}
	}

	if len(blocks) > 1 {
		return result, &ParseWarning{
			Source: "metadata",
			Err:    fmt.Errorf("found %d metadata blocks, using the first", len(blocks)),
		}
	}
	return result, nil
}

// StripMetadata removes every metadata block from body and trims the result.
func StripMetadata(body string) string {
	return strings.TrimSpace(metadataPattern.ReplaceAllString(body, ""))
}
