package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver
	_ "github.com/mattn/go-sqlite3"    // register sqlite3 driver

	"semval/internal/domain"
)

// ConnectorFactory opens a query executor for a target account.
type ConnectorFactory interface {
	Open(ctx context.Context, account string) (domain.QueryExecutor, error)
}

// Compile-time checks.
var (
	_ ConnectorFactory     = (*Registry)(nil)
	_ domain.QueryExecutor = (*SQLConnector)(nil)
)

// Registry resolves account identifiers to database/sql connections.
type Registry struct {
	accounts map[string]Account
	logger   *slog.Logger
}

// NewRegistry creates a Registry over the given accounts.
func NewRegistry(accounts map[string]Account, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{accounts: accounts, logger: logger}
}

// Accounts returns the known account identifiers, sorted.
func (r *Registry) Accounts() []string {
	names := make([]string, 0, len(r.accounts))
	for name := range r.accounts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open connects to account. The caller owns the returned executor and must Close it.
func (r *Registry) Open(ctx context.Context, account string) (domain.QueryExecutor, error) {
	acct, ok := r.accounts[account]
	if !ok {
		return nil, fmt.Errorf("unknown warehouse account %q (known: %s)", account, strings.Join(r.Accounts(), ", "))
	}
	return OpenSQL(ctx, account, acct, r.logger)
}

// SQLConnector executes verification queries over a *sql.DB.
type SQLConnector struct {
	db      *sql.DB
	account string
	timeout time.Duration
	logger  *slog.Logger
}

// OpenSQL opens, pings and initialises a connection for acct.
func OpenSQL(ctx context.Context, name string, acct Account, logger *slog.Logger) (*SQLConnector, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open(acct.Driver, acct.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", acct.Driver, err)
	}

	maxOpen := acct.MaxOpenConns
	if maxOpen == 0 && acct.Driver == DriverDuckDB {
		// ATTACH and SET in init statements are connection-scoped.
		maxOpen = 1
	}
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", acct.Driver, err)
	}
	for _, stmt := range acct.Init {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init statement %q: %w", stmt, err)
		}
	}

	logger.Debug("warehouse connection opened", "account", name, "driver", acct.Driver)
	return &SQLConnector{db: db, account: name, timeout: acct.QueryTimeout, logger: logger}, nil
}

// NewSQLConnector wraps an already-open database.
func NewSQLConnector(db *sql.DB, account string, logger *slog.Logger) *SQLConnector {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLConnector{db: db, account: account, logger: logger}
}

// Execute runs query and returns all of its rows together with the column
// types the driver reports.
func (c *SQLConnector) Execute(ctx context.Context, query string) (*domain.ResultSet, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("column types: %w", err)
	}
	rs := &domain.ResultSet{Columns: make([]domain.ResultColumn, len(colTypes))}
	for i, ct := range colTypes {
		rs.Columns[i] = domain.ResultColumn{Name: ct.Name(), DatabaseType: ct.DatabaseTypeName()}
	}

	for rows.Next() {
		values := make([]any, len(colTypes))
		ptrs := make([]any, len(colTypes))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		rs.Rows = append(rs.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	c.logger.Debug("query executed", "account", c.account, "rows", len(rs.Rows))
	return rs, nil
}

// Close releases the underlying connection pool.
func (c *SQLConnector) Close() error {
	return c.db.Close()
}
