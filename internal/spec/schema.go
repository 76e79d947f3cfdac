package spec

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Schema is the migrated table state. It is owned by the migration engine and
// reflects manual or migrated changes the generated specs know nothing about.
type Schema struct {
	Tables    map[string]TableSchema `json:"tables"`
	Timestamp string                 `json:"timestamp"`
}

// TableSchema lists a live table's columns in insertion order.
type TableSchema struct {
	Name    string        `json:"name"`
	Source  TableSource   `json:"source"`
	Columns []Column      `json:"columns"`
	Indexes []IndexSchema `json:"indexes"`
}

// TableSource records which contract/spec produced a table.
type TableSource struct {
	ContractName string `json:"contract_name"`
	SpecName     string `json:"spec_name"`
}

type IndexSchema struct {
	Name       string `json:"name"`
	Definition string `json:"definition"`
}

// LoadSchema reads the schema state file. A missing file yields an empty schema.
func LoadSchema(path string) (*Schema, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Schema{Tables: map[string]TableSchema{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read schema state: %w", err)
	}
	var s Schema
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse schema state: %w", err)
	}
	if s.Tables == nil {
		s.Tables = map[string]TableSchema{}
	}
	return &s, nil
}

// Table looks up a table by name.
func (s *Schema) Table(name string) (TableSchema, bool) {
	if s == nil {
		return TableSchema{}, false
	}
	t, ok := s.Tables[name]
	return t, ok
}

// ColumnNames returns the column names in order.
func (t TableSchema) ColumnNames() []string {
	out := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		out = append(out, c.Name)
	}
	return out
}
