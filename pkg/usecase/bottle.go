package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/bottlematch/pkg/domain/model"
	"github.com/secmon-lab/bottlematch/pkg/utils/errutil"
	"github.com/secmon-lab/bottlematch/pkg/utils/logging"
)

// ListBottles returns all catalog records in insertion order
func (uc *UseCases) ListBottles(ctx context.Context) []*model.BottleRecord {
	return uc.catalog.ListAll()
}

// GetBottle returns one record. A missing id yields an error wrapping
// model.ErrNotFound.
func (uc *UseCases) GetBottle(ctx context.Context, id model.BottleID) (*model.BottleRecord, error) {
	return uc.catalog.Get(id)
}

// DeleteBottle removes a record and saves the catalog when a persister is
// configured
func (uc *UseCases) DeleteBottle(ctx context.Context, id model.BottleID) error {
	if err := uc.catalog.Delete(id); err != nil {
		return err
	}
	logging.From(ctx).Info("bottle deleted", "bottle_id", id)

	if uc.persister == nil {
		return nil
	}
	if err := uc.Save(ctx); err != nil {
		return goerr.Wrap(err, "failed to save catalog after delete", goerr.V(model.BottleIDKey, id))
	}
	return nil
}

// VerifyReport summarizes a catalog consistency check
type VerifyReport struct {
	Count     int
	Dimension int
	// Shadowed lists bottles whose own embedding ranks another bottle first,
	// i.e. exact duplicates of an earlier record
	Shadowed []model.BottleID
}

// Verify checks that every record is unit length and retrievable by its own
// embedding
func (uc *UseCases) Verify(ctx context.Context) (*VerifyReport, error) {
	snap := uc.catalog.Snapshot()
	report := &VerifyReport{Count: snap.Len(), Dimension: snap.Dimension()}

	err := snap.Each(func(i int, rec *model.BottleRecord) error {
		if !model.IsUnit(rec.Embedding) {
			return goerr.Wrap(model.ErrInvalidEmbedding, "stored embedding is not unit length",
				goerr.V(model.BottleIDKey, rec.ID), goerr.V("norm", model.Norm(rec.Embedding)))
		}

		hits, err := snap.Query(ctx, rec.Embedding, 1)
		if err != nil {
			return err
		}
		if len(hits) == 0 {
			return goerr.Wrap(model.ErrInternalInconsistency, "record is not indexed", goerr.V(model.BottleIDKey, rec.ID))
		}
		if hits[0].ID != rec.ID {
			report.Shadowed = append(report.Shadowed, rec.ID)
		}
		if _, err := snap.Get(hits[0].ID); err != nil {
			return goerr.Wrap(model.ErrInternalInconsistency, "index returned an id missing from the store",
				goerr.V(model.BottleIDKey, hits[0].ID))
		}
		return nil
	})
	if err != nil {
		return nil, errutil.Handle(ctx, err, "catalog verification failed")
	}
	return report, nil
}
