// Package domain defines the semantic model types, the warehouse port, and the
// error taxonomy shared by the validation pipeline.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationErrorPrefix starts every semantic or warehouse-level failure message.
const ValidationErrorPrefix = "Unable to validate your semantic model. Error = "

// SyntaxError indicates the document is not well-formed YAML.
type SyntaxError struct {
	Message string
}

func (e *SyntaxError) Error() string { return e.Message }

// DuplicateKeyError indicates a mapping defines the same key twice.
type DuplicateKeyError struct {
	Key         string
	Path        string
	Line        int
	Column      int
	FirstLine   int
	FirstColumn int
}

func (e *DuplicateKeyError) Error() string {
	where := e.Path
	if where == "" {
		where = "document root"
	}
	return fmt.Sprintf("duplicate key %q in %s at line %d, column %d (first defined at line %d, column %d)",
		e.Key, where, e.Line, e.Column, e.FirstLine, e.FirstColumn)
}

// SchemaValidationError indicates a value violates the declared document schema:
// an unknown or missing field, a wrongly shaped value, or an enum value outside
// its allowed set.
type SchemaValidationError struct {
	Path     string
	Line     int
	Column   int
	Expected string
	Found    string
}

func (e *SchemaValidationError) Error() string {
	var b strings.Builder
	if e.Path != "" {
		b.WriteString(e.Path)
		b.WriteString(": ")
	}
	fmt.Fprintf(&b, "when expecting %s, found %s", e.Expected, e.Found)
	if e.Line > 0 {
		fmt.Fprintf(&b, " (line %d, column %d)", e.Line, e.Column)
	}
	return b.String()
}

// SizeLimitError indicates the serialized model exceeds the context ceiling.
type SizeLimitError struct {
	Size   int
	Excess int
}

func (e *SizeLimitError) Error() string {
	return fmt.Sprintf("Your semantic model is too large. "+
		"Passed size is %d characters. "+
		"We need you to remove %d characters in your semantic model. Please check: \n"+
		" (1) If you have long descriptions that can be truncated. \n"+
		" (2) If you can remove some columns that are not used within your tables. \n"+
		" (3) If you have extra tables you do not need.", e.Size, e.Excess)
}

// UnsupportedDatatypeError indicates a column has a composite/object datatype.
type UnsupportedDatatypeError struct {
	Column   string
	DataType string
}

func (e *UnsupportedDatatypeError) Error() string {
	return fmt.Sprintf("We do not support object datatypes in the semantic model. "+
		"Col %s has data type %s. "+
		"Please remove this column from your semantic model or flatten it to non-object type.",
		e.Column, e.DataType)
}

// ConstraintError indicates a semantic rule other than the datatype allow-list
// was violated (uniqueness, required semantic fields).
type ConstraintError struct {
	Path    string
	Message string
}

func (e *ConstraintError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ErrConstraint creates a ConstraintError with a formatted message.
func ErrConstraint(path, format string, args ...any) *ConstraintError {
	return &ConstraintError{Path: path, Message: fmt.Sprintf(format, args...)}
}

// QueryExecutionError indicates a verification query could not be parsed or
// was rejected by the warehouse.
type QueryExecutionError struct {
	Table      string
	Query      string
	Unparsable bool
	Err        error
}

func (e *QueryExecutionError) Error() string {
	switch {
	case e.Unparsable:
		return fmt.Sprintf("Unable to parse sql statement. Logical table %s: %v. Query: %s", e.Table, e.Err, e.Query)
	case e.Table == "":
		return e.Err.Error()
	default:
		return fmt.Sprintf("Verification query for logical table %s failed: %v", e.Table, e.Err)
	}
}

func (e *QueryExecutionError) Unwrap() error { return e.Err }

// ModelValidationError carries a semantic or warehouse-level failure with the
// user-facing prefix. Parser-level errors are never wrapped in it.
type ModelValidationError struct {
	Err error
}

func (e *ModelValidationError) Error() string { return ValidationErrorPrefix + e.Err.Error() }

func (e *ModelValidationError) Unwrap() error { return e.Err }

// Error kinds reported by ErrorKind.
const (
	KindSyntax              = "syntax"
	KindDuplicateKey        = "duplicate_key"
	KindSchema              = "schema"
	KindSizeLimit           = "size_limit"
	KindUnsupportedDatatype = "unsupported_datatype"
	KindConstraint          = "constraint"
	KindQueryExecution      = "query_execution"
	KindInternal            = "internal"
)

// ErrorKind classifies err into one of the Kind* constants.
func ErrorKind(err error) string {
	var (
		syntaxErr *SyntaxError
		dupErr    *DuplicateKeyError
		schemaErr *SchemaValidationError
		sizeErr   *SizeLimitError
		dtypeErr  *UnsupportedDatatypeError
		consErr   *ConstraintError
		queryErr  *QueryExecutionError
	)
	switch {
	case errors.As(err, &syntaxErr):
		return KindSyntax
	case errors.As(err, &dupErr):
		return KindDuplicateKey
	case errors.As(err, &schemaErr):
		return KindSchema
	case errors.As(err, &sizeErr):
		return KindSizeLimit
	case errors.As(err, &dtypeErr):
		return KindUnsupportedDatatype
	case errors.As(err, &consErr):
		return KindConstraint
	case errors.As(err, &queryErr):
		return KindQueryExecution
	default:
		return KindInternal
	}
}
