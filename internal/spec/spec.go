// Package spec loads the event specifications and the authoritative table schema
// produced by the upstream generation and migration steps. Everything here is
// read-only input for the sync engine.
package spec

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/devblac/logsync/internal/config"
)

// ErrSpecNotFound is returned when a referenced spec file does not exist.
var ErrSpecNotFound = errors.New("spec file not found")

// Field is one declared event parameter.
type Field struct {
	Name         string `json:"name"`
	SolidityType string `json:"solidity_type"`
	Indexed      bool   `json:"indexed"`
}

// Specification describes one event stream to be indexed into one table.
type Specification struct {
	ContractName    string  `json:"-"`
	SpecName        string  `json:"-"`
	Chain           string  `json:"chain"`
	ContractAddress string  `json:"contract_address"`
	StartBlock      uint64  `json:"start_block"`
	EventName       string  `json:"event_name"`
	EventSignature  string  `json:"event_signature"`
	Fields          []Field `json:"indexed_fields"`
	Table           Table   `json:"table_schema"`
	Description     string  `json:"description,omitempty"`
}

// Table is the table shape the generator proposed. The engine never builds inserts
// from it; the migrated schema state is authoritative.
type Table struct {
	Name    string   `json:"table_name"`
	Columns []Column `json:"columns"`
}

// Column is a generated column definition.
type Column struct {
	Name string `json:"name"`
	Type string `json:"column_type"`
}

// TableName is the target table of s.
func (s Specification) TableName() string {
	return s.Table.Name
}

// ID is a stable human readable identifier, contract/spec.
func (s Specification) ID() string {
	return s.ContractName + "/" + s.SpecName
}

// Validate checks the fields the engine relies on.
func (s Specification) Validate() error {
	if s.Chain == "" {
		return errors.New("chain is required")
	}
	if s.EventSignature == "" {
		return errors.New("event_signature is required")
	}
	if !strings.Contains(s.EventSignature, "(") || !strings.HasSuffix(s.EventSignature, ")") {
		return fmt.Errorf("event_signature %q is not canonical", s.EventSignature)
	}
	if s.Table.Name == "" {
		return errors.New("table_schema.table_name is required")
	}
	for i, f := range s.Fields {
		if f.Name == "" || f.SolidityType == "" {
			return fmt.Errorf("field %d: name and solidity_type are required", i)
		}
	}
	return nil
}

// Filter restricts loading to one contract and optionally one of its specs.
type Filter struct {
	Contract string
	Spec     string
}

func (f Filter) match(contract, spec string) bool {
	if f.Contract != "" && f.Contract != contract {
		return false
	}
	if f.Spec != "" && f.Spec != spec {
		return false
	}
	return true
}

// Path returns the on-disk location of a spec file.
func Path(dir, contract, spec string) string {
	return filepath.Join(dir, contract, spec+".json")
}

// LoadFile reads one spec file.
func LoadFile(path string) (Specification, error) {
	var s Specification
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, fmt.Errorf("%w: %s", ErrSpecNotFound, path)
	}
	if err != nil {
		return s, fmt.Errorf("read spec %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return s, fmt.Errorf("parse spec %s: %w", path, err)
	}
	return s, nil
}

// LoadAll reads every spec referenced by the configured contracts, in config order.
func LoadAll(cfg *config.Config, filter Filter) ([]Specification, error) {
	if filter.Spec != "" && filter.Contract == "" {
		return nil, errors.New("spec filter requires a contract filter")
	}

	var out []Specification
	for _, ct := range cfg.Contracts {
		for _, sf := range ct.Specs {
			if !filter.match(ct.Name, sf.Name) {
				continue
			}
			s, err := LoadFile(Path(cfg.Paths.SpecsDir, ct.Name, sf.Name))
			if err != nil {
				return nil, err
			}
			s.ContractName = ct.Name
			s.SpecName = sf.Name
			if s.Chain == "" {
				s.Chain = ct.Chain
			}
			if s.ContractAddress == "" {
				s.ContractAddress = ct.Address
			}
			// A start block in the config wins over the generated one.
			if sf.StartBlock != 0 {
				s.StartBlock = sf.StartBlock
			}
			if err := s.Validate(); err != nil {
				return nil, fmt.Errorf("spec %s: %w", s.ID(), err)
			}
			out = append(out, s)
		}
	}
	if len(out) == 0 && filter.Contract != "" {
		return nil, fmt.Errorf("no specs match contract=%q spec=%q", filter.Contract, filter.Spec)
	}
	return out, nil
}
