package semantic

import (
	"fmt"
	"strings"

	"semval/internal/domain"
)

// objectDatatypes are composite types a semantic model cannot expose.
var objectDatatypes = map[string]bool{
	"VARIANT": true,
	"OBJECT":  true,
	"ARRAY":   true,
	"MAP":     true,
	"STRUCT":  true,
	"LIST":    true,
	"UNION":   true,
	"RECORD":  true,
}

// IsObjectDatatype reports whether dataType names a composite type. Parameterised
// spellings such as STRUCT(a INT), MAP(VARCHAR, INT) and INTEGER[] count too, as
// do Postgres array names like _INT4. JSON and JSONB are scalar text documents
// and stay allowed.
func IsObjectDatatype(dataType string) bool {
	t := strings.ToUpper(strings.TrimSpace(dataType))
	if t == "" {
		return false
	}
	if strings.HasSuffix(t, "]") || strings.HasPrefix(t, "_") {
		return true
	}
	if i := strings.IndexAny(t, "(<"); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	return objectDatatypes[t]
}

// CheckResolvedDatatype applies the object-datatype rule to one column.
func CheckResolvedDatatype(column, dataType string) error {
	if IsObjectDatatype(dataType) {
		return &domain.UnsupportedDatatypeError{Column: column, DataType: dataType}
	}
	return nil
}

// Check enforces the semantic rules the schema cannot express. It stops at the
// first violation in document order.
func Check(model *domain.SemanticModel) error {
	if len(model.Tables) == 0 {
		return domain.ErrConstraint("tables", "a semantic model needs at least one logical table")
	}

	tableNames := make(map[string]bool, len(model.Tables))
	for i := range model.Tables {
		t := &model.Tables[i]
		path := fmt.Sprintf("tables[%d]", i)

		key := strings.ToUpper(t.Name)
		if tableNames[key] {
			return domain.ErrConstraint(path, "logical table name %q is used more than once", t.Name)
		}
		tableNames[key] = true

		if err := checkTable(t, path); err != nil {
			return err
		}
	}
	return nil
}

func checkTable(t *domain.LogicalTable, path string) error {
	if strings.TrimSpace(t.Name) == "" {
		return domain.ErrConstraint(path+".name", "logical table name must not be empty")
	}
	bt := t.BaseTable
	if bt.Database == "" || bt.Schema == "" || bt.Table == "" {
		return domain.ErrConstraint(path+".base_table",
			"base table of %s must name a database, schema and table", t.Name)
	}
	if len(t.Columns) == 0 {
		return domain.ErrConstraint(path+".columns", "logical table %s has no columns", t.Name)
	}

	columnNames := make(map[string]bool, len(t.Columns))
	for j := range t.Columns {
		c := &t.Columns[j]
		cpath := fmt.Sprintf("%s.columns[%d]", path, j)

		key := strings.ToUpper(c.Name)
		if columnNames[key] {
			return domain.ErrConstraint(cpath, "column name %q is used more than once in logical table %s", c.Name, t.Name)
		}
		columnNames[key] = true

		if err := checkColumn(c, cpath); err != nil {
			return err
		}
	}
	return nil
}

func checkColumn(c *domain.Column, path string) error {
	if strings.TrimSpace(c.Name) == "" {
		return domain.ErrConstraint(path+".name", "column name must not be empty")
	}
	if strings.TrimSpace(c.DataType) == "" {
		return domain.ErrConstraint(path,
			"Your semantic model contains a col %s that does not have the `data_type` field. Please add.", c.Name)
	}
	if err := CheckResolvedDatatype(c.Name, c.DataType); err != nil {
		return err
	}
	if c.DefaultAggregation != "" && c.DefaultAggregation != domain.AggregationUnknown {
		switch c.Kind {
		case "", domain.ColumnKindUnknown, domain.ColumnKindMeasure:
		default:
			return domain.ErrConstraint(path+".default_aggregation",
				"column %s has kind %s; default_aggregation is only allowed on measures", c.Name, c.Kind)
		}
	}
	return nil
}
