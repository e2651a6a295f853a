package model

import "github.com/m-mizutani/goerr/v2"

// Catalog errors. Callers classify them with errors.Is.
var (
	// ErrInvalidEmbedding is returned for a wrong dimension, a zero norm or a
	// non-finite component. State is never mutated when it is returned.
	ErrInvalidEmbedding = goerr.New("invalid embedding", goerr.ID("invalid_embedding"))

	// ErrInvalidBottleID is returned for an empty or malformed bottle ID
	ErrInvalidBottleID = goerr.New("invalid bottle ID", goerr.ID("invalid_bottle_id"))

	// ErrInvalidQuery is returned for a non-positive top-k
	ErrInvalidQuery = goerr.New("invalid query", goerr.ID("invalid_query"))

	// ErrNotFound is an expected absence and must not be logged as an error
	ErrNotFound = goerr.New("bottle not found", goerr.ID("not_found"))

	// ErrCorruptCatalog means persisted artifacts failed to parse or reconcile.
	// A process must not serve when Load returns it.
	ErrCorruptCatalog = goerr.New("corrupt catalog", goerr.ID("corrupt_catalog"))

	// ErrInternalInconsistency means the index returned an ID that the store
	// does not hold. It aborts the query, never the process.
	ErrInternalInconsistency = goerr.New("catalog index and store are inconsistent", goerr.ID("internal_inconsistency"))
)

// Context keys for error values
const (
	BottleIDKey  = "bottle_id"
	DimensionKey = "dimension"
	ExpectedKey  = "expected"
	TopKKey      = "top_k"
	ArtifactKey  = "artifact"
)
