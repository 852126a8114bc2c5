package render

import (
	"fmt"
	"strings"
)

// Footer marker lines.
const (
	FooterBegin = "--- BEGIN INCIDENT METADATA ---"
	FooterEnd   = "--- END INCIDENT METADATA ---"
)

const (
	footerSeparator = "\n\n"
	noticePrefix    = "notice_"
)

// Notice is a jurisdiction note carried in the footer.
type Notice struct {
	Tag  string
	Text string
}

// Footer is the metadata block appended to rendered output.
type Footer struct {
	Identifier      string
	Revision        string
	Template        string
	TemplateVersion string
	Jurisdictions   []string
	Notices         []Notice
}

// AppendFooter attaches the footer block after content.
func AppendFooter(content string, f Footer) string {
	var b strings.Builder
	b.WriteString(content)
	b.WriteString(footerSeparator)
	b.WriteString(FooterBegin)
	b.WriteByte('\n')

	writeLine(&b, "identifier", f.Identifier)
	writeLine(&b, "revision", f.Revision)
	writeLine(&b, "template", f.Template)
	writeLine(&b, "template_version", f.TemplateVersion)
	writeLine(&b, "jurisdictions", strings.Join(f.Jurisdictions, ","))
	for _, n := range f.Notices {
		writeLine(&b, noticePrefix+strings.ToLower(n.Tag), n.Text)
	}

	b.WriteString(FooterEnd)
	return b.String()
}

func writeLine(b *strings.Builder, key, value string) {
	b.WriteString(key)
	b.WriteString(": ")
	b.WriteString(oneLine(value))
	b.WriteByte('\n')
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// StripFooter removes a trailing footer block. Text without a footer is
// returned unchanged with false.
func StripFooter(text string) (string, bool) {
	idx := footerStart(text)
	if idx < 0 {
		return text, false
	}
	return text[:idx], true
}

// ParseFooter splits text into the rendered content and its footer.
func ParseFooter(text string) (string, Footer, error) {
	idx := footerStart(text)
	if idx < 0 {
		return text, Footer{}, ErrNoFooter
	}

	block := text[idx+len(footerSeparator)+len(FooterBegin):]
	block = strings.TrimPrefix(block, "\n")
	end := strings.LastIndex(block, FooterEnd)
	if end < 0 {
		return text, Footer{}, fmt.Errorf("parse footer: %w", ErrNoFooter)
	}

	var f Footer
	for _, line := range strings.Split(block[:end], "\n") {
		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			key, value, ok = strings.Cut(line, ":")
			if !ok {
				continue
			}
		}
		value = strings.TrimSpace(value)
		switch key {
		case "identifier":
			f.Identifier = value
		case "revision":
			f.Revision = value
		case "template":
			f.Template = value
		case "template_version":
			f.TemplateVersion = value
		case "jurisdictions":
			f.Jurisdictions = NormalizeJurisdictions([]string{value})
		default:
			if tag, found := strings.CutPrefix(key, noticePrefix); found {
				f.Notices = append(f.Notices, Notice{Tag: strings.ToUpper(tag), Text: value})
			}
		}
	}

	return text[:idx], f, nil
}

// footerStart finds the separator that precedes the last footer block.
func footerStart(text string) int {
	if !strings.HasSuffix(strings.TrimRight(text, "\n"), FooterEnd) {
		return -1
	}
	return strings.LastIndex(text, footerSeparator+FooterBegin+"\n")
}
