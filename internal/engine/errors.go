package engine

import (
	"errors"

	"github.com/devblac/logsync/internal/source/evm"
	"github.com/devblac/logsync/internal/spec"
	"github.com/devblac/logsync/internal/storage"
)

// ErrUnknownChain is returned when a specification names a chain with no configured endpoint.
var ErrUnknownChain = errors.New("unknown chain")

// IsConfigError reports whether err means the specifications, schema and
// environment disagree. Retrying such a pass cannot succeed.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrUnknownChain) ||
		errors.Is(err, storage.ErrMissingTable) ||
		errors.Is(err, evm.ErrInvalidAddress) ||
		errors.Is(err, spec.ErrSpecNotFound)
}
