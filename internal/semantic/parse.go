// Package semantic parses, size-checks, constraint-checks and renders semantic
// model documents.
package semantic

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"semval/internal/domain"
)

// Parse decodes text into a SemanticModel under the strict document schema.
//
// Errors are one of *domain.SyntaxError, *domain.DuplicateKeyError or
// *domain.SchemaValidationError. Decoding into the typed model only happens
// after the whole node tree has passed validation.
func Parse(text string) (*domain.SemanticModel, error) {
	root, err := decodeSingleDocument(text)
	if err != nil {
		return nil, err
	}
	if err := checkDuplicateKeys(root, ""); err != nil {
		return nil, err
	}
	if err := validateNode(root, Schema, ""); err != nil {
		return nil, err
	}

	var model domain.SemanticModel
	if err := root.Decode(&model); err != nil {
		return nil, &domain.SyntaxError{Message: err.Error()}
	}
	return &model, nil
}

// decodeSingleDocument returns the root content node of the only document in text.
func decodeSingleDocument(text string) (*yaml.Node, error) {
	dec := yaml.NewDecoder(strings.NewReader(text))

	var doc yaml.Node
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &domain.SchemaValidationError{Expected: "a mapping", Found: "an empty document"}
		}
		return nil, &domain.SyntaxError{Message: err.Error()}
	}

	var extra yaml.Node
	switch err := dec.Decode(&extra); {
	case err == nil:
		return nil, &domain.SchemaValidationError{
			Line:     extra.Line,
			Column:   extra.Column,
			Expected: "a single document",
			Found:    "another document",
		}
	case !errors.Is(err, io.EOF):
		return nil, &domain.SyntaxError{Message: err.Error()}
	}

	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, &domain.SchemaValidationError{Expected: "a mapping", Found: "an empty document"}
	}
	return doc.Content[0], nil
}

// checkDuplicateKeys walks the whole tree and fails on the first mapping that
// repeats a key.
func checkDuplicateKeys(n *yaml.Node, path string) error {
	switch n.Kind {
	case yaml.MappingNode:
		first := make(map[string][2]int, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if pos, dup := first[k.Value]; dup {
				return &domain.DuplicateKeyError{
					Key:         k.Value,
					Path:        path,
					Line:        k.Line,
					Column:      k.Column,
					FirstLine:   pos[0],
					FirstColumn: pos[1],
				}
			}
			first[k.Value] = [2]int{k.Line, k.Column}
			if err := checkDuplicateKeys(v, joinPath(path, k.Value)); err != nil {
				return err
			}
		}
	case yaml.SequenceNode:
		for i, c := range n.Content {
			if err := checkDuplicateKeys(c, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	}
	return nil
}
