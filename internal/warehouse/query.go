package warehouse

import (
	"fmt"
	"strings"

	"semval/internal/domain"
)

// VerificationQuery builds the LIMIT 1 query that proves table resolves in the
// warehouse:
//
//	WITH __<NAME> AS (SELECT <cols> FROM <db>.<schema>.<table>) SELECT * FROM __<NAME> LIMIT 1
//
// Each column selects its expr (or its name when expr is empty), aliased to the
// column name only when the two differ beyond letter case.
func VerificationQuery(table domain.LogicalTable) string {
	items := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		expr := strings.TrimSpace(c.Expr)
		switch {
		case expr == "" || strings.EqualFold(expr, c.Name):
			items[i] = c.Name
		default:
			items[i] = expr + " AS " + c.Name
		}
	}
	return fmt.Sprintf("WITH __%s AS (SELECT %s FROM %s) SELECT * FROM __%s LIMIT 1",
		table.Name, strings.Join(items, ", "), table.BaseTable, table.Name)
}
