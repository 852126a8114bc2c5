package render

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var kindTitles = map[string]string{
	"internal":         "Internal Communication",
	"customer":         "Customer Communication",
	"executive":        "Executive Briefing",
	"regulators":       "Regulatory Notification",
	"pre_maintenance":  "Pre-Maintenance Notification",
	"post_maintenance": "Post-Maintenance Notification",
	"primary":          "Communication",
}

var titleCaser = cases.Title(language.English)

// KindTitle returns a display title for a communication kind.
func KindTitle(kind string) string {
	if title, ok := kindTitles[kind]; ok {
		return title
	}
	words := strings.ReplaceAll(strings.ReplaceAll(kind, "_", " "), "-", " ")
	return titleCaser.String(strings.TrimSpace(words)) + " Communication"
}
