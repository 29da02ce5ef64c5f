// Package warehouse connects to the data warehouse named by a target account
// and cross-checks logical tables against it.
package warehouse

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Supported database/sql driver names.
const (
	DriverDuckDB   = "duckdb"
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// Account describes how to reach one warehouse account.
type Account struct {
	Driver       string        `yaml:"driver" validate:"required,oneof=duckdb sqlite3 pgx"`
	DSN          string        `yaml:"dsn" validate:"required_if=Driver pgx"`
	Init         []string      `yaml:"init"`
	QueryTimeout time.Duration `yaml:"query_timeout" validate:"gte=0"`
	MaxOpenConns int           `yaml:"max_open_conns" validate:"gte=0"`
}

type accountsFile struct {
	Accounts map[string]Account `yaml:"accounts"`
}

var accountValidator = validator.New()

// LoadAccounts reads the accounts file at path.
func LoadAccounts(path string) (map[string]Account, error) {
	data, err := os.ReadFile(path) //nolint:gosec // intentional: reading user-specified config file
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	accounts, err := ParseAccounts(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return accounts, nil
}

// ParseAccounts decodes an accounts document. Unknown fields are rejected.
func ParseAccounts(data []byte) (map[string]Account, error) {
	var doc accountsFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	for name, acct := range doc.Accounts {
		if err := accountValidator.Struct(acct); err != nil {
			return nil, fmt.Errorf("account %q: %w", name, err)
		}
	}
	if doc.Accounts == nil {
		doc.Accounts = map[string]Account{}
	}
	return doc.Accounts, nil
}
