package persistence

// Codec internals exported for testing
var (
	EncodeVectors = encodeVectors
	DecodeVectors = decodeVectors
)

type VectorEntry = vectorEntry
