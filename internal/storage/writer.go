package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/devblac/logsync/internal/spec"
)

// standardColumns are filled from the log position, never from decoded fields.
var standardColumns = map[string]struct{}{
	"id":               {},
	"block_number":     {},
	"block_timestamp":  {},
	"transaction_hash": {},
	"log_index":        {},
}

// DataColumns lists the columns that receive decoded field values, in table order.
func DataColumns(table spec.TableSchema) []string {
	var out []string
	for _, c := range table.ColumnNames() {
		if _, std := standardColumns[c]; !std {
			out = append(out, c)
		}
	}
	return out
}

// Row is one decoded log ready for insertion.
type Row struct {
	BlockNumber    uint64
	BlockTimestamp uint64
	TxHash         string
	LogIndex       uint
	Values         []any
}

// BuildInsert renders an idempotent insert for row against the live table
// layout. Decoded values map positionally onto the non-standard columns;
// columns beyond the decoded values are left to their defaults.
func BuildInsert(d Dialect, table spec.TableSchema, row Row) (string, []any) {
	cols := []string{"block_number", "block_timestamp", "transaction_hash", "log_index"}
	args := []any{int64(row.BlockNumber), int64(row.BlockTimestamp), row.TxHash, int64(row.LogIndex)}

	for i, c := range DataColumns(table) {
		if i >= len(row.Values) {
			break
		}
		cols = append(cols, c)
		args = append(args, row.Values[i])
	}

	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	for n, c := range cols {
		quoted[n] = QuoteIdent(c)
		marks[n] = d.Placeholder(n + 1)
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT DO NOTHING",
		QuoteIdent(table.Name), strings.Join(quoted, ", "), strings.Join(marks, ", "))
	return q, args
}

// Writer inserts decoded rows into the tables named by the schema.
type Writer struct {
	store  *Store
	schema *spec.Schema
}

// NewWriter binds a store to the authoritative schema.
func NewWriter(store *Store, schema *spec.Schema) *Writer {
	return &Writer{store: store, schema: schema}
}

// HasTable reports whether the schema knows table.
func (w *Writer) HasTable(table string) bool {
	_, ok := w.schema.Table(table)
	return ok
}

// Write inserts row into table. inserted is false when the row already existed.
func (w *Writer) Write(ctx context.Context, table string, row Row) (inserted bool, err error) {
	ts, ok := w.schema.Table(table)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrMissingTable, table)
	}
	if ts.Name == "" {
		ts.Name = table
	}
	q, args := BuildInsert(w.store.dialect, ts, row)
	res, err := w.store.db.ExecContext(ctx, q, args...)
	if err != nil {
		return false, fmt.Errorf("insert into %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return true, nil
	}
	return n > 0, nil
}
