// Package persistence saves the catalog to an ArtifactStore and loads it
// back.
//
// A save writes two artifacts: a binary vector file and a JSON metadata file.
// The vector file is written first and the metadata file last, each replaced
// atomically by the store. The metadata carries the generation and checksum
// of its vector file, so a save interrupted between the two writes leaves a
// pair that Load rejects as corrupt instead of serving a mixed catalog.
package persistence

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/bottlematch/pkg/domain/interfaces"
	"github.com/secmon-lab/bottlematch/pkg/domain/model"
	"github.com/secmon-lab/bottlematch/pkg/service/catalog"
	"github.com/secmon-lab/bottlematch/pkg/utils/logging"
)

// Default artifact names
const (
	DefaultMetadataName = "metadata.json"
	DefaultVectorsName  = "embeddings.bin"
)

// Persister saves and loads catalogs
type Persister struct {
	store        interfaces.ArtifactStore
	metadataName string
	vectorsName  string
	catalogOpts  []catalog.Option
	now          func() time.Time
}

// Option is a functional option for Persister configuration
type Option func(*Persister)

// WithArtifactNames overrides the metadata and vector artifact names
func WithArtifactNames(metadata, vectors string) Option {
	return func(p *Persister) {
		p.metadataName = metadata
		p.vectorsName = vectors
	}
}

// WithCatalogOptions sets the options used for catalogs built by Load
func WithCatalogOptions(opts ...catalog.Option) Option {
	return func(p *Persister) {
		p.catalogOpts = append(p.catalogOpts, opts...)
	}
}

// WithClock replaces the clock used for the saved_at field
func WithClock(now func() time.Time) Option {
	return func(p *Persister) {
		p.now = now
	}
}

// New creates a Persister on top of store
func New(store interfaces.ArtifactStore, opts ...Option) *Persister {
	p := &Persister{
		store:        store,
		metadataName: DefaultMetadataName,
		vectorsName:  DefaultVectorsName,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Save writes the current snapshot of c
func (p *Persister) Save(ctx context.Context, c *catalog.Catalog) error {
	return p.SaveSnapshot(ctx, c.Snapshot())
}

// SaveSnapshot writes snap. Vectors are written before metadata.
func (p *Persister) SaveSnapshot(ctx context.Context, snap *catalog.Snapshot) error {
	gen := uuid.New()
	entries := make([]vectorEntry, 0, snap.Len())
	records := make([]metadataRecord, 0, snap.Len())

	for i, rec := range snap.List() {
		entries = append(entries, vectorEntry{ID: rec.ID, Embedding: rec.Embedding})
		records = append(records, metadataRecord{
			Index:    i,
			ID:       string(rec.ID),
			Name:     rec.Name,
			ImageURL: rec.ImageURL,
		})
	}

	vectors, sum := encodeVectors(gen, snap.Dimension(), entries)
	metadata, err := encodeMetadata(&metadataFile{
		Version:      metadataFormatVersion,
		Generation:   gen.String(),
		Dimension:    snap.Dimension(),
		Count:        len(records),
		VectorsCRC32: sum,
		SavedAt:      p.now().UTC(),
		Records:      records,
	})
	if err != nil {
		return err
	}

	if err := p.store.Put(ctx, p.vectorsName, vectors); err != nil {
		return goerr.Wrap(err, "failed to write vector artifact", goerr.V(model.ArtifactKey, p.vectorsName))
	}
	if err := p.store.Put(ctx, p.metadataName, metadata); err != nil {
		return goerr.Wrap(err, "failed to write metadata artifact", goerr.V(model.ArtifactKey, p.metadataName))
	}

	logging.From(ctx).Info("catalog saved",
		"generation", gen.String(),
		"count", len(records),
		"dimension", snap.Dimension(),
	)
	return nil
}

// Load reads both artifacts, reconciles them and returns a catalog with a
// rebuilt similarity index. When neither artifact exists the result is an
// empty catalog of dimension dim. A positive dim must match the stored
// dimension; zero accepts whatever was saved. Every read, parse or
// reconciliation failure is returned as ErrCorruptCatalog.
func (p *Persister) Load(ctx context.Context, dim int) (*catalog.Catalog, error) {
	metaData, metaErr := p.store.Get(ctx, p.metadataName)
	if metaErr != nil && !errors.Is(metaErr, model.ErrNotFound) {
		return nil, corrupt("failed to read metadata artifact", metaErr, goerr.V(model.ArtifactKey, p.metadataName))
	}

	if errors.Is(metaErr, model.ErrNotFound) {
		exists, err := p.store.Exists(ctx, p.vectorsName)
		if err != nil {
			return nil, corrupt("failed to check vector artifact", err, goerr.V(model.ArtifactKey, p.vectorsName))
		}
		if exists {
			return nil, corrupt("vector artifact exists without metadata", nil, goerr.V(model.ArtifactKey, p.vectorsName))
		}

		if dim <= 0 {
			dim = model.DefaultEmbeddingDimension
		}
		logging.From(ctx).Info("no saved catalog found, starting empty", "dimension", dim)
		return catalog.New(dim, p.catalogOpts...)
	}

	vecData, err := p.store.Get(ctx, p.vectorsName)
	if err != nil {
		return nil, corrupt("failed to read vector artifact", err, goerr.V(model.ArtifactKey, p.vectorsName))
	}

	meta, err := decodeMetadata(metaData)
	if err != nil {
		return nil, corrupt("failed to decode metadata artifact", err)
	}
	vecs, err := decodeVectors(vecData)
	if err != nil {
		return nil, corrupt("failed to decode vector artifact", err)
	}

	records, err := reconcile(meta, vecs)
	if err != nil {
		return nil, err
	}

	if dim > 0 && dim != vecs.Dimension {
		return nil, corrupt("saved catalog dimension differs from configured dimension", nil,
			goerr.V(model.DimensionKey, vecs.Dimension),
			goerr.V(model.ExpectedKey, dim),
		)
	}

	c, err := catalog.New(vecs.Dimension, p.catalogOpts...)
	if err != nil {
		return nil, corrupt("invalid saved dimension", err)
	}
	if err := c.Rebuild(records); err != nil {
		return nil, corrupt("failed to rebuild catalog", err)
	}

	logging.From(ctx).Info("catalog loaded",
		"generation", meta.Generation,
		"count", c.Size(),
		"dimension", c.Dimension(),
	)
	return c, nil
}

// reconcile joins metadata and vectors by ID and returns records in
// insertion order
func reconcile(meta *metadataFile, vecs *vectorFile) ([]*model.BottleRecord, error) {
	if meta.Generation != vecs.Generation.String() {
		return nil, corrupt("metadata and vector artifacts come from different saves", nil,
			goerr.V("metadata_generation", meta.Generation),
			goerr.V("vectors_generation", vecs.Generation.String()),
		)
	}
	if meta.VectorsCRC32 != vecs.Checksum {
		return nil, corrupt("metadata does not match vector checksum", nil)
	}
	if meta.Dimension != vecs.Dimension {
		return nil, corrupt("metadata and vector dimensions differ", nil,
			goerr.V(model.DimensionKey, vecs.Dimension),
			goerr.V(model.ExpectedKey, meta.Dimension),
		)
	}
	if meta.Count != len(meta.Records) || meta.Count != len(vecs.Entries) {
		return nil, corrupt("record counts differ", nil,
			goerr.V("metadata_count", meta.Count),
			goerr.V("metadata_records", len(meta.Records)),
			goerr.V("vector_entries", len(vecs.Entries)),
		)
	}

	embeddings := make(map[model.BottleID][]float32, len(vecs.Entries))
	for _, e := range vecs.Entries {
		if _, dup := embeddings[e.ID]; dup {
			return nil, corrupt("duplicate id in vector artifact", nil, goerr.V(model.BottleIDKey, e.ID))
		}
		embeddings[e.ID] = e.Embedding
	}

	ordered := make([]metadataRecord, len(meta.Records))
	copy(ordered, meta.Records)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	seen := make(map[model.BottleID]struct{}, len(ordered))
	records := make([]*model.BottleRecord, 0, len(ordered))
	for i, r := range ordered {
		id := model.BottleID(r.ID)
		if r.Index != i {
			return nil, corrupt("metadata insertion indexes are not contiguous", nil,
				goerr.V(model.BottleIDKey, id), goerr.V("index", r.Index))
		}
		if _, dup := seen[id]; dup {
			return nil, corrupt("duplicate id in metadata artifact", nil, goerr.V(model.BottleIDKey, id))
		}
		seen[id] = struct{}{}

		emb, ok := embeddings[id]
		if !ok {
			return nil, corrupt("metadata references an id without embedding", nil, goerr.V(model.BottleIDKey, id))
		}
		records = append(records, &model.BottleRecord{
			ID:        id,
			Name:      r.Name,
			ImageURL:  r.ImageURL,
			Embedding: emb,
		})
	}

	for id := range embeddings {
		if _, ok := seen[id]; !ok {
			return nil, corrupt("vector artifact holds an id without metadata", nil, goerr.V(model.BottleIDKey, id))
		}
	}

	return records, nil
}

// corrupt classifies a load failure as ErrCorruptCatalog. The cause stays in
// the chain with its own values.
func corrupt(msg string, cause error, values ...goerr.Option) error {
	if cause == nil {
		return goerr.Wrap(model.ErrCorruptCatalog, msg, values...)
	}
	return goerr.Wrap(model.ErrCorruptCatalog.Wrap(cause), msg, values...)
}
