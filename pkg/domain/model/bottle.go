package model

import (
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/m-mizutani/goerr/v2"
)

// BottleID is the stable catalog identifier of a bottle. It is derived from
// the source image filename at ingestion and never reused.
type BottleID string

// Validate checks if the BottleID is usable as a catalog key
func (id BottleID) Validate() error {
	if id == "" {
		return goerr.Wrap(ErrInvalidBottleID, "bottle ID cannot be empty")
	}
	// IDs are persisted as JSON strings, which cannot carry arbitrary bytes
	if !utf8.ValidString(string(id)) {
		return goerr.Wrap(ErrInvalidBottleID, "bottle ID is not valid UTF-8", goerr.V(BottleIDKey, []byte(id)))
	}
	for _, r := range string(id) {
		if unicode.IsControl(r) {
			return goerr.Wrap(ErrInvalidBottleID, "bottle ID contains a control character", goerr.V(BottleIDKey, string(id)))
		}
	}
	return nil
}

// String returns the string representation of BottleID
func (id BottleID) String() string {
	return string(id)
}

// BottleRecord is one catalog entry. Embedding is always unit-normalized.
// Records are replaced as a whole and never mutated in place.
type BottleRecord struct {
	ID        BottleID
	Name      string
	ImageURL  string // optional
	Embedding []float32
}

// NewBottleRecord validates the input and returns a record holding a
// normalized copy of embedding.
func NewBottleRecord(id BottleID, name string, embedding []float32, imageURL string, dim int) (*BottleRecord, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	normalized, err := NormalizeEmbedding(embedding, dim)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build bottle record", goerr.V(BottleIDKey, id))
	}

	return &BottleRecord{
		ID:        id,
		Name:      name,
		ImageURL:  imageURL,
		Embedding: normalized,
	}, nil
}

// Clone returns a deep copy of the record
func (r *BottleRecord) Clone() *BottleRecord {
	if r == nil {
		return nil
	}
	copied := *r
	if r.Embedding != nil {
		copied.Embedding = make([]float32, len(r.Embedding))
		copy(copied.Embedding, r.Embedding)
	}
	return &copied
}

// BottleIDFromPath derives the catalog ID from an image path: the basename
// without its extension.
func BottleIDFromPath(path string) BottleID {
	base := filepath.Base(path)
	return BottleID(strings.TrimSuffix(base, filepath.Ext(base)))
}

// BottleNameFromPath derives a display name from an image path, e.g.
// "data/glenfiddich_12-year.jpg" becomes "glenfiddich 12 year".
func BottleNameFromPath(path string) string {
	name := string(BottleIDFromPath(path))
	return strings.NewReplacer("_", " ", "-", " ").Replace(name)
}

// ImageURLFromPath returns the display image reference served next to the
// catalog for an ingested image.
func ImageURLFromPath(path string) string {
	return "images/" + filepath.Base(path)
}
