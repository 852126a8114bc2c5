package render

import (
	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
)

var htmlPolicy = bluemonday.UGCPolicy()

// ToHTML converts a rendered communication written in markdown into
// sanitized HTML. A trailing metadata footer is left out.
func ToHTML(text string) string {
	content, _ := StripFooter(text)
	unsafe := blackfriday.Run([]byte(content))
	return string(htmlPolicy.SanitizeBytes(unsafe))
}
