package catalog

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/bottlematch/pkg/domain/model"
	"github.com/secmon-lab/bottlematch/pkg/service/index"
)

// Snapshot is an immutable, self-consistent view of the catalog. Every
// record has exactly one index entry and every index entry has a record.
type Snapshot struct {
	records []*model.BottleRecord
	pos     map[model.BottleID]int
	index   *index.Index
}

func newSnapshot(idx *index.Index) *Snapshot {
	return &Snapshot{
		pos:   make(map[model.BottleID]int),
		index: idx,
	}
}

// Dimension returns the embedding dimension
func (s *Snapshot) Dimension() int {
	return s.index.Dimension()
}

// Len returns the number of records
func (s *Snapshot) Len() int {
	return len(s.records)
}

// Get returns a copy of the record for id
func (s *Snapshot) Get(id model.BottleID) (*model.BottleRecord, error) {
	p, ok := s.pos[id]
	if !ok {
		return nil, goerr.Wrap(model.ErrNotFound, "bottle not found", goerr.V(model.BottleIDKey, id))
	}
	return s.records[p].Clone(), nil
}

// List returns copies of all records in insertion order
func (s *Snapshot) List() []*model.BottleRecord {
	out := make([]*model.BottleRecord, len(s.records))
	for i, rec := range s.records {
		out[i] = rec.Clone()
	}
	return out
}

// Each calls fn for every record in insertion order without copying. fn must
// not modify the record. Iteration stops at the first error.
func (s *Snapshot) Each(fn func(i int, rec *model.BottleRecord) error) error {
	for i, rec := range s.records {
		if err := fn(i, rec); err != nil {
			return err
		}
	}
	return nil
}

// Query runs a top-k similarity query. embedding must be unit-normalized.
func (s *Snapshot) Query(ctx context.Context, embedding []float32, k int) ([]index.Hit, error) {
	return s.index.Query(ctx, embedding, k)
}

func (s *Snapshot) clone() *Snapshot {
	pos := make(map[model.BottleID]int, len(s.pos))
	for id, p := range s.pos {
		pos[id] = p
	}
	return &Snapshot{
		records: append([]*model.BottleRecord(nil), s.records...),
		pos:     pos,
		index:   s.index.Clone(),
	}
}

// put writes rec to both the store and the index of an unpublished snapshot
func (s *Snapshot) put(rec *model.BottleRecord) error {
	if err := s.index.Add(rec.ID, rec.Embedding); err != nil {
		return goerr.Wrap(err, "failed to index bottle", goerr.V(model.BottleIDKey, rec.ID))
	}
	if p, ok := s.pos[rec.ID]; ok {
		s.records[p] = rec
		return nil
	}
	s.pos[rec.ID] = len(s.records)
	s.records = append(s.records, rec)
	return nil
}

func (s *Snapshot) remove(id model.BottleID) {
	p, ok := s.pos[id]
	if !ok {
		return
	}
	s.index.Remove(id)
	s.records = append(s.records[:p:p], s.records[p+1:]...)
	delete(s.pos, id)
	for i := p; i < len(s.records); i++ {
		s.pos[s.records[i].ID] = i
	}
}
