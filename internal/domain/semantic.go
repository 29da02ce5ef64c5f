package domain

import "strings"

// AggregationType is the default aggregation applied to a column.
type AggregationType string

// Aggregation tokens, in the order they are reported to users.
const (
	AggregationUnknown       AggregationType = "aggregation_type_unknown"
	AggregationSum           AggregationType = "sum"
	AggregationAvg           AggregationType = "avg"
	AggregationMedian        AggregationType = "median"
	AggregationMin           AggregationType = "min"
	AggregationMax           AggregationType = "max"
	AggregationCount         AggregationType = "count"
	AggregationCountDistinct AggregationType = "count_distinct"
)

// AggregationTypes returns every valid aggregation token in declaration order.
func AggregationTypes() []string {
	return []string{
		string(AggregationUnknown),
		string(AggregationSum),
		string(AggregationAvg),
		string(AggregationMedian),
		string(AggregationMin),
		string(AggregationMax),
		string(AggregationCount),
		string(AggregationCountDistinct),
	}
}

// ColumnKind classifies how a column participates in generated queries.
type ColumnKind string

// Column kind tokens.
const (
	ColumnKindUnknown       ColumnKind = "column_kind_unknown"
	ColumnKindDimension     ColumnKind = "dimension"
	ColumnKindTimeDimension ColumnKind = "time_dimension"
	ColumnKindMeasure       ColumnKind = "measure"
)

// ColumnKinds returns every valid column kind token in declaration order.
func ColumnKinds() []string {
	return []string{
		string(ColumnKindUnknown),
		string(ColumnKindDimension),
		string(ColumnKindTimeDimension),
		string(ColumnKindMeasure),
	}
}

// SemanticModel is the root of a semantic model document.
type SemanticModel struct {
	Name            string          `yaml:"name" json:"name"`
	Description     string          `yaml:"description,omitempty" json:"description,omitempty"`
	Tables          []LogicalTable  `yaml:"tables" json:"tables"`
	VerifiedQueries []VerifiedQuery `yaml:"verified_queries,omitempty" json:"verified_queries,omitempty"`
}

// LogicalTable is a named view over one physical warehouse table.
type LogicalTable struct {
	Name        string              `yaml:"name" json:"name"`
	Synonyms    []string            `yaml:"synonyms,omitempty" json:"synonyms,omitempty"`
	Description string              `yaml:"description,omitempty" json:"description,omitempty"`
	BaseTable   FullyQualifiedTable `yaml:"base_table" json:"base_table"`
	Columns     []Column            `yaml:"columns" json:"columns"`
	Filters     []NamedFilter       `yaml:"filters,omitempty" json:"filters,omitempty"`
}

// FullyQualifiedTable references a physical table as database.schema.table.
type FullyQualifiedTable struct {
	Database string `yaml:"database" json:"database"`
	Schema   string `yaml:"schema" json:"schema"`
	Table    string `yaml:"table" json:"table"`
}

// String returns the dotted three-part name.
func (t FullyQualifiedTable) String() string {
	return strings.Join([]string{t.Database, t.Schema, t.Table}, ".")
}

// Column is one curated column of a logical table.
type Column struct {
	Name               string          `yaml:"name" json:"name"`
	Synonyms           []string        `yaml:"synonyms,omitempty" json:"synonyms,omitempty"`
	Description        string          `yaml:"description,omitempty" json:"description,omitempty"`
	Expr               string          `yaml:"expr,omitempty" json:"expr,omitempty"`
	DataType           string          `yaml:"data_type,omitempty" json:"data_type,omitempty"`
	Kind               ColumnKind      `yaml:"kind,omitempty" json:"kind,omitempty"`
	Unique             bool            `yaml:"unique,omitempty" json:"unique,omitempty"`
	DefaultAggregation AggregationType `yaml:"default_aggregation,omitempty" json:"default_aggregation,omitempty"`
	SampleValues       []string        `yaml:"sample_values,omitempty" json:"sample_values,omitempty"`
}

// NamedFilter is a reusable predicate over a logical table.
type NamedFilter struct {
	Name        string   `yaml:"name" json:"name"`
	Synonyms    []string `yaml:"synonyms,omitempty" json:"synonyms,omitempty"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Expr        string   `yaml:"expr" json:"expr"`
}

// VerifiedQuery is a question/SQL pair vetted by a model owner. Verified
// queries do not count against the model size ceiling.
type VerifiedQuery struct {
	Name                    string `yaml:"name" json:"name"`
	Question                string `yaml:"question" json:"question"`
	SQL                     string `yaml:"sql" json:"sql"`
	VerifiedAt              int64  `yaml:"verified_at,omitempty" json:"verified_at,omitempty"`
	VerifiedBy              string `yaml:"verified_by,omitempty" json:"verified_by,omitempty"`
	UseAsOnboardingQuestion bool   `yaml:"use_as_onboarding_question,omitempty" json:"use_as_onboarding_question,omitempty"`
}
