package semantic

import (
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"semval/internal/domain"
)

// Kind is the shape a schema field accepts.
type Kind int

// Field kinds.
const (
	KindString Kind = iota
	KindInt
	KindBool
	KindList
	KindMap
)

// Field describes one node of the document schema.
type Field struct {
	Name     string
	Kind     Kind
	Required bool
	Enum     []string // KindString only; nil means any text
	Item     *Field   // KindList element schema
	Fields   []*Field // KindMap keys, in declaration order
}

func (f *Field) lookup(key string) *Field {
	for _, c := range f.Fields {
		if c.Name == key {
			return c
		}
	}
	return nil
}

func (f *Field) keyNames() []string {
	names := make([]string, len(f.Fields))
	for i, c := range f.Fields {
		names[i] = c.Name
	}
	return names
}

func str(name string) *Field { return &Field{Name: name, Kind: KindString} }
func requiredStr(name string) *Field { return &Field{Name: name, Kind: KindString, Required: true} }
func strList(name string) *Field { return &Field{Name: name, Kind: KindList, Item: &Field{Kind: KindString}} }
func enum(name string, values []string) *Field {
	return &Field{Name: name, Kind: KindString, Enum: values}
}

// Schema is the strict schema of a semantic model document.
var Schema = &Field{
	Kind: KindMap,
	Fields: []*Field{
		requiredStr("name"),
		str("description"),
		{Name: "tables", Kind: KindList, Required: true, Item: tableSchema},
		{Name: "verified_queries", Kind: KindList, Item: verifiedQuerySchema},
	},
}

var tableSchema = &Field{
	Kind: KindMap,
	Fields: []*Field{
		requiredStr("name"),
		strList("synonyms"),
		str("description"),
		{Name: "base_table", Kind: KindMap, Required: true, Fields: []*Field{
			requiredStr("database"),
			requiredStr("schema"),
			requiredStr("table"),
		}},
		{Name: "columns", Kind: KindList, Required: true, Item: columnSchema},
		{Name: "filters", Kind: KindList, Item: filterSchema},
	},
}

var columnSchema = &Field{
	Kind: KindMap,
	Fields: []*Field{
		requiredStr("name"),
		strList("synonyms"),
		str("description"),
		str("expr"),
		str("data_type"),
		enum("kind", domain.ColumnKinds()),
		{Name: "unique", Kind: KindBool},
		enum("default_aggregation", domain.AggregationTypes()),
		strList("sample_values"),
	},
}

var filterSchema = &Field{
	Kind: KindMap,
	Fields: []*Field{
		requiredStr("name"),
		strList("synonyms"),
		str("description"),
		requiredStr("expr"),
	},
}

var verifiedQuerySchema = &Field{
	Kind: KindMap,
	Fields: []*Field{
		requiredStr("name"),
		requiredStr("question"),
		requiredStr("sql"),
		{Name: "verified_at", Kind: KindInt},
		str("verified_by"),
		{Name: "use_as_onboarding_question", Kind: KindBool},
	},
}

// validateNode checks node against f, recursing into mappings and sequences.
// It reports the first violation found in document order.
func validateNode(node *yaml.Node, f *Field, path string) error {
	if node.Kind == yaml.AliasNode {
		return schemaErr(node, path, "a value", "an alias")
	}

	switch f.Kind {
	case KindString:
		if node.Kind != yaml.ScalarNode || (f.Required && node.Tag == "!!null") {
			return schemaErr(node, path, "a string", describe(node))
		}
		if f.Enum != nil && !slices.Contains(f.Enum, node.Value) {
			return schemaErr(node, path, "one of: "+strings.Join(f.Enum, ", "), fmt.Sprintf("arbitrary text %q", node.Value))
		}
	case KindInt:
		if node.Kind != yaml.ScalarNode || node.Tag != "!!int" {
			return schemaErr(node, path, "an integer", describe(node))
		}
	case KindBool:
		if node.Kind != yaml.ScalarNode || node.Tag != "!!bool" {
			return schemaErr(node, path, "a boolean", describe(node))
		}
	case KindList:
		if node.Kind != yaml.SequenceNode {
			return schemaErr(node, path, "a sequence", describe(node))
		}
		for i, item := range node.Content {
			if err := validateNode(item, f.Item, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case KindMap:
		return validateMapping(node, f, path)
	}
	return nil
}

func validateMapping(node *yaml.Node, f *Field, path string) error {
	if node.Kind != yaml.MappingNode {
		return schemaErr(node, path, "a mapping", describe(node))
	}

	seen := make(map[string]bool, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		child := f.lookup(k.Value)
		if k.Kind != yaml.ScalarNode || child == nil {
			return schemaErr(k, path, "one of the keys: "+strings.Join(f.keyNames(), ", "), fmt.Sprintf("unexpected key %q", k.Value))
		}
		seen[k.Value] = true
		if err := validateNode(v, child, joinPath(path, k.Value)); err != nil {
			return err
		}
	}

	for _, c := range f.Fields {
		if c.Required && !seen[c.Name] {
			return schemaErr(node, path, fmt.Sprintf("required key %q", c.Name), "nothing")
		}
	}
	return nil
}

func schemaErr(node *yaml.Node, path, expected, found string) *domain.SchemaValidationError {
	return &domain.SchemaValidationError{
		Path:     path,
		Line:     node.Line,
		Column:   node.Column,
		Expected: expected,
		Found:    found,
	}
}

func describe(node *yaml.Node) string {
	switch node.Kind {
	case yaml.MappingNode:
		return "a mapping"
	case yaml.SequenceNode:
		return "a sequence"
	case yaml.AliasNode:
		return "an alias"
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return "a blank value"
		}
		return fmt.Sprintf("arbitrary text %q", node.Value)
	default:
		return "an unexpected node"
	}
}

func joinPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}
