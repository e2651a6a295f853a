// Package catalog holds the bottle catalog: the embedding store and the
// similarity index over it.
//
// The store and the index live together in an immutable Snapshot. Readers
// take the current snapshot with a single atomic load and never lock. Writers
// are serialized by a mutex, apply their change to a copy of the current
// snapshot and publish it with an atomic swap, so no reader can observe a
// record without its index entry or the other way around.
package catalog

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/bottlematch/pkg/domain/model"
	"github.com/secmon-lab/bottlematch/pkg/service/index"
)

// Catalog is the long-lived, explicitly constructed catalog handle
type Catalog struct {
	dim       int
	indexOpts []index.Option

	writeMu sync.Mutex
	current atomic.Pointer[Snapshot]
}

// Option is a functional option for Catalog configuration
type Option func(*Catalog)

// WithIndexOptions passes options to every similarity index the catalog builds
func WithIndexOptions(opts ...index.Option) Option {
	return func(c *Catalog) {
		c.indexOpts = append(c.indexOpts, opts...)
	}
}

// New creates an empty catalog whose embeddings have dimension dim
func New(dim int, opts ...Option) (*Catalog, error) {
	if dim <= 0 {
		return nil, goerr.Wrap(model.ErrInvalidEmbedding, "catalog dimension must be positive", goerr.V(model.DimensionKey, dim))
	}

	c := &Catalog{dim: dim}
	for _, opt := range opts {
		opt(c)
	}
	c.current.Store(newSnapshot(index.New(dim, c.indexOpts...)))
	return c, nil
}

// Dimension returns the fixed embedding dimension of the catalog
func (c *Catalog) Dimension() int {
	return c.dim
}

// Snapshot returns the current consistent view of the catalog. It stays
// valid and unchanged even if the catalog is updated afterwards.
func (c *Catalog) Snapshot() *Snapshot {
	return c.current.Load()
}

// Get returns a copy of the record for id, or an error wrapping ErrNotFound
func (c *Catalog) Get(id model.BottleID) (*model.BottleRecord, error) {
	return c.Snapshot().Get(id)
}

// ListAll returns copies of all records in insertion order
func (c *Catalog) ListAll() []*model.BottleRecord {
	return c.Snapshot().List()
}

// Size returns the number of records
func (c *Catalog) Size() int {
	return c.Snapshot().Len()
}

// Query runs a top-k similarity query against the current snapshot
func (c *Catalog) Query(ctx context.Context, embedding []float32, k int) ([]index.Hit, error) {
	return c.Snapshot().Query(ctx, embedding, k)
}

// Upsert inserts a record or replaces the record with the same ID. The
// embedding is validated and normalized before any state changes. A replaced
// record keeps its insertion position.
func (c *Catalog) Upsert(id model.BottleID, name string, embedding []float32, imageURL string) error {
	rec, err := model.NewBottleRecord(id, name, embedding, imageURL, c.dim)
	if err != nil {
		return err
	}
	return c.UpsertRecords(rec)
}

// UpsertRecords applies several upserts and publishes them as one snapshot.
// Records are validated first; if any is invalid nothing is applied.
func (c *Catalog) UpsertRecords(records ...*model.BottleRecord) error {
	prepared := make([]*model.BottleRecord, len(records))
	for i, rec := range records {
		if rec == nil {
			return goerr.New("nil bottle record", goerr.V("position", i))
		}
		if err := rec.ID.Validate(); err != nil {
			return err
		}
		normalized, err := model.NormalizeEmbedding(rec.Embedding, c.dim)
		if err != nil {
			return goerr.Wrap(err, "invalid bottle record", goerr.V(model.BottleIDKey, rec.ID))
		}
		prepared[i] = &model.BottleRecord{
			ID:        rec.ID,
			Name:      rec.Name,
			ImageURL:  rec.ImageURL,
			Embedding: normalized,
		}
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	next := c.current.Load().clone()
	for _, rec := range prepared {
		if err := next.put(rec); err != nil {
			return err
		}
	}
	c.current.Store(next)
	return nil
}

// Delete removes the record for id. It returns an error wrapping ErrNotFound
// if there is no such record.
func (c *Catalog) Delete(id model.BottleID) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	cur := c.current.Load()
	if _, ok := cur.pos[id]; !ok {
		return goerr.Wrap(model.ErrNotFound, "bottle not found", goerr.V(model.BottleIDKey, id))
	}

	next := cur.clone()
	next.remove(id)
	c.current.Store(next)
	return nil
}

// Rebuild replaces the whole catalog with records, in the given order, and
// rebuilds the similarity index from scratch. Used after loading persisted
// artifacts.
func (c *Catalog) Rebuild(records []*model.BottleRecord) error {
	next := newSnapshot(index.New(c.dim, c.indexOpts...))
	ids := make([]model.BottleID, len(records))
	vecs := make([][]float32, len(records))

	for i, rec := range records {
		if rec == nil {
			return goerr.New("nil bottle record", goerr.V("position", i))
		}
		if err := rec.ID.Validate(); err != nil {
			return err
		}
		if _, dup := next.pos[rec.ID]; dup {
			return goerr.New("duplicate bottle ID", goerr.V(model.BottleIDKey, rec.ID))
		}
		normalized, err := model.NormalizeEmbedding(rec.Embedding, c.dim)
		if err != nil {
			return goerr.Wrap(err, "invalid bottle record", goerr.V(model.BottleIDKey, rec.ID))
		}

		stored := &model.BottleRecord{ID: rec.ID, Name: rec.Name, ImageURL: rec.ImageURL, Embedding: normalized}
		next.pos[rec.ID] = len(next.records)
		next.records = append(next.records, stored)
		ids[i] = rec.ID
		vecs[i] = normalized
	}

	if err := next.index.Rebuild(ids, vecs); err != nil {
		return goerr.Wrap(err, "failed to rebuild similarity index")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.current.Store(next)
	return nil
}
