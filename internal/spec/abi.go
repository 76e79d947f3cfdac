package spec

import (
	"bytes"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// LoadABI parses a contract ABI JSON file.
func LoadABI(path string) (*abi.ABI, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read abi %s: %w", path, err)
	}
	a, err := abi.JSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse abi %s: %w", path, err)
	}
	return &a, nil
}

// FindEvent searches an ABI for an event with the given canonical signature.
func FindEvent(a *abi.ABI, signature string) (*abi.Event, bool) {
	if a == nil {
		return nil, false
	}
	for _, ev := range a.Events {
		if ev.Sig == signature {
			ev := ev
			return &ev, true
		}
	}
	return nil, false
}

// CheckABI verifies that s's event exists in the ABI and that the
// declared fields agree with it in order, type and indexed flag.
func CheckABI(s Specification, a *abi.ABI) error {
	ev, ok := FindEvent(a, s.EventSignature)
	if !ok {
		return fmt.Errorf("event %s not found in abi", s.EventSignature)
	}
	if len(ev.Inputs) != len(s.Fields) {
		return fmt.Errorf("event %s has %d inputs, spec declares %d fields", s.EventSignature, len(ev.Inputs), len(s.Fields))
	}
	for i, in := range ev.Inputs {
		f := s.Fields[i]
		if in.Type.String() != f.SolidityType {
			return fmt.Errorf("field %s: abi type %s, spec type %s", f.Name, in.Type.String(), f.SolidityType)
		}
		if in.Indexed != f.Indexed {
			return fmt.Errorf("field %s: abi indexed=%v, spec indexed=%v", f.Name, in.Indexed, f.Indexed)
		}
	}
	return nil
}
