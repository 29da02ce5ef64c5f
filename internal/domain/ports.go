package domain

import "context"

// QueryExecutor runs a statement against a warehouse and returns its rows.
// Implemented by warehouse.SQLConnector.
type QueryExecutor interface {
	Execute(ctx context.Context, query string) (*ResultSet, error)
	Close() error
}

// ResultColumn describes one column of a result set as reported by the warehouse.
type ResultColumn struct {
	Name         string
	DatabaseType string
}

// ResultSet holds the columns and rows returned by a query.
type ResultSet struct {
	Columns []ResultColumn
	Rows    [][]any
}
