package persistence

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the codec from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateName rejects names that cannot be used as a file name or key.
func ValidateName(name string) error {
	if err := validate.Var(name, "required,max=128,excludesall=/\\:*?<>0x7C"); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	if name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	return nil
}

// Marshal encodes doc. JSON output is indented.
func Marshal(doc *Document, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(doc, "", "  ")
	case FormatYAML:
		var buf bytes.Buffer

		encoder := yaml.NewEncoder(&buf)
		encoder.SetIndent(2)

		if err := encoder.Encode(doc); err != nil {
			return nil, err
		}

		if err := encoder.Close(); err != nil {
			return nil, err
		}

		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// Unmarshal decodes and validates a document against the document schema and
// the struct rules.
func Unmarshal(data []byte, format Format) (*Document, error) {
	var (
		doc        Document
		dataLoader gojsonschema.JSONLoader
	)

	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}

		dataLoader = gojsonschema.NewBytesLoader(data)
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}

		dataLoader = gojsonschema.NewGoLoader(doc)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	if err := checkSchema(dataLoader); err != nil {
		return nil, err
	}

	if err := Validate(&doc); err != nil {
		return nil, err
	}

	return &doc, nil
}

// Validate applies the struct rules of the document.
func Validate(doc *Document) error {
	if err := validate.Struct(doc); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	return nil
}

func checkSchema(dataLoader gojsonschema.JSONLoader) error {
	schemaLoader := gojsonschema.NewGoLoader(documentSchema)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if !result.Valid() {
		var messages []string
		for _, resultError := range result.Errors() {
			messages = append(messages, resultError.String())
		}

		return fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(messages, "; "))
	}

	return nil
}

var stringType = map[string]any{"type": "string"}

var documentSchema = map[string]any{
	"type":     "object",
	"required": []any{"nodes"},
	"properties": map[string]any{
		"name": stringType,
		"nodes": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []any{"id", "type"},
				"properties": map[string]any{
					"id":          map[string]any{"type": "string", "minLength": 1},
					"name":        stringType,
					"type":        map[string]any{"type": "string", "minLength": 1},
					"x":           map[string]any{"type": "number"},
					"y":           map[string]any{"type": "number"},
					"details":     stringType,
					"description": stringType,
					"metadata": map[string]any{
						"type":                 "object",
						"additionalProperties": stringType,
					},
					"condition": stringType,
					"yesTarget": stringType,
					"noTarget":  stringType,
				},
			},
		},
		"connections": map[string]any{
			"type": []any{"array", "null"},
			"items": map[string]any{
				"type":     "object",
				"required": []any{"sourceId", "targetId"},
				"properties": map[string]any{
					"sourceId": map[string]any{"type": "string", "minLength": 1},
					"targetId": map[string]any{"type": "string", "minLength": 1},
					"label":    stringType,
				},
			},
		},
	},
}
