package importer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/meudinheiro/meudinheiro/internal/schema"
)

var (
	// ErrAccountNotFound is returned when the target account does not exist.
	// Nothing is written.
	ErrAccountNotFound = errors.New("account not found")
	// ErrPersistence wraps a store failure that aborted the run. Rows written
	// before it stay committed.
	ErrPersistence = errors.New("persistence failure")
)

// SchemaError reports a table whose columns could not be mapped. Nothing is
// written.
type SchemaError struct {
	Mapping schema.Mapping
	Empty   bool
}

func (e *SchemaError) Error() string {
	if e.Empty {
		return "table has no data rows"
	}
	return fmt.Sprintf("cannot infer columns: missing %s (%s)", strings.Join(e.Missing(), ", "), e.Mapping)
}

// Missing lists the unresolved roles. An empty table resolves none.
func (e *SchemaError) Missing() []string {
	if e.Empty {
		return []string{schema.RoleDate, schema.RoleAmount, schema.RoleDescription}
	}
	return e.Mapping.Missing()
}

// RowError reports a row whose date or amount could not be parsed. Line is
// the 1-based line in the source file, counting the header.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }
