package model

import (
	"math"

	"github.com/m-mizutani/goerr/v2"
)

// DefaultEmbeddingDimension is the output size of CLIP ViT-B/32 image features
const DefaultEmbeddingDimension = 512

// UnitTolerance is the allowed deviation of a stored embedding's L2 norm from 1
const UnitTolerance = 1e-5

// Norm returns the L2 norm of v computed in float64
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		f := float64(x)
		sum += f * f
	}
	return math.Sqrt(sum)
}

// ValidateEmbedding checks that v has exactly dim finite components and a
// non-zero norm.
func ValidateEmbedding(v []float32, dim int) error {
	if dim <= 0 {
		return goerr.Wrap(ErrInvalidEmbedding, "catalog dimension must be positive", goerr.V(DimensionKey, dim))
	}
	if len(v) != dim {
		return goerr.Wrap(ErrInvalidEmbedding, "embedding dimension mismatch",
			goerr.V(DimensionKey, len(v)),
			goerr.V(ExpectedKey, dim),
		)
	}
	for i, x := range v {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return goerr.Wrap(ErrInvalidEmbedding, "embedding has a non-finite component", goerr.V("position", i))
		}
	}
	if Norm(v) == 0 {
		return goerr.Wrap(ErrInvalidEmbedding, "embedding has zero norm")
	}
	return nil
}

// NormalizeEmbedding validates v and returns a unit-length copy. The input
// slice is never modified.
func NormalizeEmbedding(v []float32, dim int) ([]float32, error) {
	if err := ValidateEmbedding(v, dim); err != nil {
		return nil, err
	}

	n := Norm(v)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / n)
	}
	return out, nil
}

// IsUnit reports whether v has an L2 norm of 1 within UnitTolerance
func IsUnit(v []float32) bool {
	return math.Abs(Norm(v)-1) <= UnitTolerance
}
