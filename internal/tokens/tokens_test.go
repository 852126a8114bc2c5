package tokens

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	body := "Incident [INCIDENT_NAME] at [ START_TIME ], again [INCIDENT_NAME]"

	got := Extract(body)
	require.Len(t, got, 3)

	assert.Equal(t, Token{Raw: "[INCIDENT_NAME]", Name: "INCIDENT_NAME", Offset: 9}, got[0])
	assert.Equal(t, "[ START_TIME ]", got[1].Raw)
	assert.Equal(t, "START_TIME", got[1].Name)
	assert.Equal(t, "INCIDENT_NAME", got[2].Name)
	assert.Equal(t, got[1].Raw, body[got[1].Offset:got[1].Offset+len(got[1].Raw)])
}

func TestExtract_Ignores(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"no tokens", "Plain text only"},
		{"empty brackets", "a [] b"},
		{"leading digit", "item [1] and [2nd]"},
		{"markdown link text with spaces", "[click here](http://example.com)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, Extract(tt.body))
			assert.Empty(t, Names(tt.body))
		})
	}
}

func TestNames(t *testing.T) {
	body := "[B] [A] [B] [ C ] [A]"
	assert.Equal(t, []string{"B", "A", "C"}, Names(body))
}

func TestReplace(t *testing.T) {
	values := map[string]string{"A": "[B]", "B": "bee"}

	got := Replace("x [A] y [ B ] z [C]", func(tok Token) string {
		return values[tok.Name]
	})

	assert.Equal(t, "x [B] y bee z ", got)
	assert.Equal(t, "no tokens", Replace("no tokens", func(Token) string { return "!" }))
}

func TestContains(t *testing.T) {
	assert.True(t, Contains("see [ ETA ]", "ETA"))
	assert.False(t, Contains("see [ETA]", "TICKET_ID"))
}

func TestExtractMetadata(t *testing.T) {
	body := `<!-- META: {"audience":"customer","version":2} -->
Hello [INCIDENT_NAME]`

	meta, err := ExtractMetadata(body)
	require.NoError(t, err)
	assert.Equal(t, "customer", meta["audience"])
	assert.Equal(t, json.Number("2"), meta["version"])
}

func TestExtractMetadata_None(t *testing.T) {
	meta, err := ExtractMetadata("Hello")
	require.NoError(t, err)
	assert.NotNil(t, meta)
	assert.Empty(t, meta)
}

func TestExtractMetadata_Malformed(t *testing.T) {
	meta, err := ExtractMetadata(`<!-- META: {"audience": } -->body`)
	require.Error(t, err)

	var warning *ParseWarning
	require.True(t, errors.As(err, &warning))
	assert.Equal(t, "metadata", warning.Source)
	assert.NotNil(t, meta)
	assert.Empty(t, meta)
}

func TestExtractMetadata_MultipleBlocks(t *testing.T) {
	body := `<!-- META: {"a":"first"} --> text <!-- META: {"a":"second"} -->`

	meta, err := ExtractMetadata(body)
	var warning *ParseWarning
	require.True(t, errors.As(err, &warning))
	assert.Equal(t, "first", meta["a"])
}

func TestStripMetadata(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{"no block", "  Hello [NAME]\n", "Hello [NAME]"},
		{"leading block", "<!-- META: {\"a\":1} -->\n\nHello", "Hello"},
		{"multiline block", "<!--META:{\n\"a\": 1\n}-->\nHello", "Hello"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripMetadata(tt.body))
		})
	}
}
