package interfaces

import "context"

// FeatureExtractor turns an encoded image into an embedding. It is expected
// to be deterministic for a given image and model version, and to return a
// vector of the catalog dimension. The catalog normalizes the result again,
// so callers do not rely on the extractor for unit length.
type FeatureExtractor interface {
	Embed(ctx context.Context, image []byte) ([]float32, error)
}
