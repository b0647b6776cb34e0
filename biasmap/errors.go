package biasmap

import "errors"

var (
	// ErrValidation rejects a malformed template before any work is done.
	ErrValidation = errors.New("invalid template")
	// ErrOracleContract reports an oracle answer outside the two-label contract.
	ErrOracleContract = errors.New("oracle contract violated")
	// ErrOracleUnavailable wraps a failed or timed out oracle call.
	ErrOracleUnavailable = errors.New("oracle unavailable")
	// ErrCatalogUnavailable is fatal: nothing can be scored without regions.
	ErrCatalogUnavailable = errors.New("region catalog unavailable")
)
