package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bissquit/incident-comms/internal/domain"
)

// Format is the encoding of a template document.
type Format string

// Formats.
const (
	FormatAuto Format = ""
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// packKey holds the template list in a pack document.
const packKey = "communications"

// DetectFormat picks a format from the file extension, falling back to the
// first significant byte of data.
func DetectFormat(name string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return FormatJSON
	}
	return FormatYAML
}

// Decode parses a single template, a list of templates or a pack.
func Decode(data []byte, format Format) ([]domain.Template, error) {
	if format == FormatAuto {
		format = DetectFormat("", data)
	}

	var (
		templates []domain.Template
		err       error
	)
	switch format {
	case FormatJSON:
		templates, err = decodeJSON(data)
	case FormatYAML:
		templates, err = decodeYAML(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, err
	}
	if len(templates) == 0 {
		return nil, ErrEmptyImport
	}

	for i := range templates {
		templates[i].Audience = domain.ParseAudience(string(templates[i].Audience))
	}
	return templates, nil
}

func decodeJSON(data []byte) ([]domain.Template, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrEmptyImport
	}

	if trimmed[0] == '[' {
		var list []domain.Template
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("decode template list: %w", err)
		}
		return list, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, fmt.Errorf("decode template: %w", err)
	}
	if raw, ok := fields[packKey]; ok {
		if inner := bytes.TrimSpace(raw); len(inner) > 0 && inner[0] == '[' {
			var list []domain.Template
			if err := json.Unmarshal(inner, &list); err != nil {
				return nil, fmt.Errorf("decode template pack: %w", err)
			}
			return list, nil
		}
	}

	var t domain.Template
	if err := json.Unmarshal(trimmed, &t); err != nil {
		return nil, fmt.Errorf("decode template: %w", err)
	}
	return []domain.Template{t}, nil
}

func decodeYAML(data []byte) ([]domain.Template, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, ErrEmptyImport
	}
	root := doc.Content[0]

	switch root.Kind {
	case yaml.SequenceNode:
		var list []domain.Template
		if err := root.Decode(&list); err != nil {
			return nil, fmt.Errorf("decode template list: %w", err)
		}
		return list, nil
	case yaml.MappingNode:
		for i := 0; i+1 < len(root.Content); i += 2 {
			key, value := root.Content[i], root.Content[i+1]
			if key.Value == packKey && value.Kind == yaml.SequenceNode {
				var list []domain.Template
				if err := value.Decode(&list); err != nil {
					return nil, fmt.Errorf("decode template pack: %w", err)
				}
				return list, nil
			}
		}
		var t domain.Template
		if err := root.Decode(&t); err != nil {
			return nil, fmt.Errorf("decode template: %w", err)
		}
		return []domain.Template{t}, nil
	}
	return nil, fmt.Errorf("decode yaml: expected a mapping or a sequence")
}
