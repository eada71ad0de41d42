// Package remote adapts the sync engine to a remote tabular store.
//
// The store is reached through the Tabular interface: generic row-level
// select/upsert/update/delete with equality predicates. Store wraps a Tabular
// with the schema mapping so callers only ever speak logical field names.
package remote

import (
	"context"
	"errors"
)

var (
	// ErrUnknownColumn marks a select/filter that referenced a column the
	// remote table does not have. Schema probing relies on it.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrMissingID is returned before any remote call when a required
	// identifier argument is empty.
	ErrMissingID = errors.New("missing required id")
)

// Row is a dynamically-shaped remote row keyed by physical column name.
type Row map[string]any

// SelectQuery restricts a tabular select.
type SelectQuery struct {
	// Columns to return; empty selects all columns.
	Columns []string

	// Eq holds column = value equality predicates, all ANDed.
	Eq map[string]any

	// OrderBy sorts by one column when non-empty.
	OrderBy    string
	Descending bool

	// Limit caps the result count when > 0.
	Limit int
}

// Tabular is the minimal surface the engine needs from the remote store.
type Tabular interface {
	// Select returns matching rows. Referencing a missing column yields an
	// error wrapping ErrUnknownColumn.
	Select(ctx context.Context, table string, q SelectQuery) ([]Row, error)

	// Upsert inserts or fully overwrites a row by primary key.
	Upsert(ctx context.Context, table string, row Row) error

	// Insert adds a new row, failing on a primary key conflict.
	Insert(ctx context.Context, table string, row Row) error

	// Update sets the given columns on all rows where column = value.
	Update(ctx context.Context, table string, set Row, column string, value any) error

	// Delete removes all rows where column = value and reports how many
	// rows were removed.
	Delete(ctx context.Context, table string, column string, value any) (int, error)
}
