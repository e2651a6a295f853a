package interfaces

import "context"

// ArtifactStore persists named catalog artifacts (metadata and vector files).
//
// Put must replace the named artifact atomically: a concurrent or later Get
// observes either the previous content or the new content in full, never a
// partial write. Get returns an error wrapping model.ErrNotFound when the
// artifact does not exist. Implementations must be safe for concurrent use.
type ArtifactStore interface {
	// Get returns the full content of the named artifact
	Get(ctx context.Context, name string) ([]byte, error)

	// Put atomically replaces the named artifact with data
	Put(ctx context.Context, name string, data []byte) error

	// Delete removes the named artifact. Deleting a missing artifact is not an error.
	Delete(ctx context.Context, name string) error

	// Exists reports whether the named artifact exists
	Exists(ctx context.Context, name string) (bool, error)
}
