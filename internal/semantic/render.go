package semantic

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"semval/internal/domain"
)

// Render serializes model to the YAML document format Parse accepts.
func Render(model *domain.SemanticModel) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(model); err != nil {
		return "", fmt.Errorf("render semantic model: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("render semantic model: %w", err)
	}
	return buf.String(), nil
}

// DecodeJSON reads a model from its JSON form. Unknown fields are rejected.
func DecodeJSON(data []byte) (*domain.SemanticModel, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var model domain.SemanticModel
	if err := dec.Decode(&model); err != nil {
		return nil, fmt.Errorf("decode semantic model json: %w", err)
	}
	return &model, nil
}
