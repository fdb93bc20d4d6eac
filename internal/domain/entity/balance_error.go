package entity

import "errors"

// Failure taxonomy for the balance pipeline. Startup fetch failures wrap one
// of these sentinels; upstream subscription errors are passed through
// verbatim.
var (
	// ErrAccountMissing: the wallet-list fetch failed or returned nothing usable.
	ErrAccountMissing = errors.New("wallet accounts missing")
	// ErrChainsMissing: the chain-asset metadata fetch failed.
	ErrChainsMissing = errors.New("chain assets missing")
	// ErrInternal: any other unexpected fault in the aggregation pipeline.
	ErrInternal = errors.New("internal balance pipeline error")
)
