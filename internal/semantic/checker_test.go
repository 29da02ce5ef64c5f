package semantic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semval/internal/domain"
)

func validModel() *domain.SemanticModel {
	return &domain.SemanticModel{
		Name: "m",
		Tables: []domain.LogicalTable{
			{
				Name:      "ALIAS",
				BaseTable: domain.FullyQualifiedTable{Database: "D", Schema: "S", Table: "ALIAS"},
				Columns: []domain.Column{
					{Name: "ALIAS", DataType: "TEXT", Kind: domain.ColumnKindDimension},
					{Name: "ZIP_CODE", DataType: "NUMBER", Kind: domain.ColumnKindMeasure, DefaultAggregation: domain.AggregationSum},
				},
			},
		},
	}
}

func TestIsObjectDatatype(t *testing.T) {
	tests := []struct {
		dataType string
		want     bool
	}{
		{"OBJECT", true},
		{"variant", true},
		{"ARRAY", true},
		{"MAP(VARCHAR, INTEGER)", true},
		{"STRUCT(a INTEGER, b VARCHAR)", true},
		{"ARRAY<INT>", true},
		{"INTEGER[]", true},
		{"VARCHAR[3]", true},
		{"TEXT", false},
		{"NUMBER(38,0)", false},
		{"DECIMAL(10, 2)", false},
		{"TIMESTAMP_NTZ", false},
		{"JSON", false},
		{"JSONB", false},
		{"_INT4", true},
		{"_text", true},
		{"RECORD", true},
		{"INT4", false},
		{"", false},
	}

	for _, tc := range tests {
		t.Run(tc.dataType, func(t *testing.T) {
			assert.Equal(t, tc.want, IsObjectDatatype(tc.dataType))
		})
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(m *domain.SemanticModel)
		wantKind    string
		errContains string
	}{
		{
			name:   "valid",
			mutate: func(*domain.SemanticModel) {},
		},
		{
			name: "object datatype",
			mutate: func(m *domain.SemanticModel) {
				m.Tables[0].Columns[1].DataType = "OBJECT"
			},
			wantKind: domain.KindUnsupportedDatatype,
			errContains: "We do not support object datatypes in the semantic model. Col ZIP_CODE has data type OBJECT. " +
				"Please remove this column from your semantic model or flatten it to non-object type.",
		},
		{
			name:        "no tables",
			mutate:      func(m *domain.SemanticModel) { m.Tables = nil },
			wantKind:    domain.KindConstraint,
			errContains: "at least one logical table",
		},
		{
			name: "duplicate table names",
			mutate: func(m *domain.SemanticModel) {
				dup := m.Tables[0]
				dup.Name = "alias"
				m.Tables = append(m.Tables, dup)
			},
			wantKind:    domain.KindConstraint,
			errContains: `logical table name "alias" is used more than once`,
		},
		{
			name: "duplicate column names",
			mutate: func(m *domain.SemanticModel) {
				m.Tables[0].Columns[1].Name = "ALIAS"
			},
			wantKind:    domain.KindConstraint,
			errContains: `column name "ALIAS" is used more than once`,
		},
		{
			name:        "no columns",
			mutate:      func(m *domain.SemanticModel) { m.Tables[0].Columns = nil },
			wantKind:    domain.KindConstraint,
			errContains: "has no columns",
		},
		{
			name:        "empty base table part",
			mutate:      func(m *domain.SemanticModel) { m.Tables[0].BaseTable.Schema = "" },
			wantKind:    domain.KindConstraint,
			errContains: "must name a database, schema and table",
		},
		{
			name:        "missing data type",
			mutate:      func(m *domain.SemanticModel) { m.Tables[0].Columns[0].DataType = "" },
			wantKind:    domain.KindConstraint,
			errContains: "col ALIAS that does not have the `data_type` field",
		},
		{
			name: "aggregation on dimension",
			mutate: func(m *domain.SemanticModel) {
				m.Tables[0].Columns[0].DefaultAggregation = domain.AggregationCount
			},
			wantKind:    domain.KindConstraint,
			errContains: "only allowed on measures",
		},
		{
			name: "unknown aggregation on dimension is fine",
			mutate: func(m *domain.SemanticModel) {
				m.Tables[0].Columns[0].DefaultAggregation = domain.AggregationUnknown
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := validModel()
			tc.mutate(m)
			err := Check(m)
			if tc.errContains == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tc.wantKind, domain.ErrorKind(err))
			assert.Contains(t, err.Error(), tc.errContains)
		})
	}
}

func TestCheck_FirstViolationWins(t *testing.T) {
	m := validModel()
	m.Tables[0].Columns[0].DataType = "VARIANT"
	m.Tables[0].Columns[1].DataType = "OBJECT"

	err := Check(m)
	var dtErr *domain.UnsupportedDatatypeError
	require.ErrorAs(t, err, &dtErr)
	assert.Equal(t, "ALIAS", dtErr.Column)
	assert.Equal(t, "VARIANT", dtErr.DataType)
}
