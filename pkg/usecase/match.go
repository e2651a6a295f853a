package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/bottlematch/pkg/domain/model"
	"github.com/secmon-lab/bottlematch/pkg/service/index"
	"github.com/secmon-lab/bottlematch/pkg/utils/errutil"
	"github.com/secmon-lab/bottlematch/pkg/utils/logging"
)

// catalogView is the read side of one catalog snapshot
type catalogView interface {
	Dimension() int
	Len() int
	Query(ctx context.Context, embedding []float32, k int) ([]index.Hit, error)
	Get(id model.BottleID) (*model.BottleRecord, error)
}

// FindMatches returns the topK catalog bottles most similar to embedding.
// topK must be positive. The embedding does not need to be unit length.
func (uc *UseCases) FindMatches(ctx context.Context, embedding []float32, topK int) (*model.MatchResult, error) {
	// one snapshot serves both the index query and the record lookups
	return findMatches(ctx, uc.catalog.Snapshot(), embedding, topK)
}

// FindMatchesDefault is FindMatches with the configured default topK
func (uc *UseCases) FindMatchesDefault(ctx context.Context, embedding []float32) (*model.MatchResult, error) {
	return uc.FindMatches(ctx, embedding, uc.topK)
}

// MatchImage embeds image with the configured extractor and matches it
func (uc *UseCases) MatchImage(ctx context.Context, image []byte, topK int) (*model.MatchResult, error) {
	if uc.extractor == nil {
		return nil, goerr.Wrap(ErrExtractorNotConfigured, "cannot embed images")
	}
	start := time.Now()

	embedding, err := uc.extractor.Embed(ctx, image)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed query image")
	}

	result, err := uc.FindMatches(ctx, embedding, topK)
	if err != nil {
		return nil, err
	}
	result.ProcessingTime = time.Since(start)
	return result, nil
}

func findMatches(ctx context.Context, view catalogView, embedding []float32, topK int) (*model.MatchResult, error) {
	start := time.Now()

	if topK <= 0 {
		return nil, goerr.Wrap(model.ErrInvalidQuery, "top_k must be positive", goerr.V(model.TopKKey, topK))
	}

	query, err := model.NormalizeEmbedding(embedding, view.Dimension())
	if err != nil {
		return nil, goerr.Wrap(err, "invalid query embedding")
	}

	hits, err := view.Query(ctx, query, topK)
	if err != nil {
		return nil, goerr.Wrap(err, "similarity query failed", goerr.V(model.TopKKey, topK))
	}

	matches := make([]model.Match, 0, len(hits))
	for _, hit := range hits {
		rec, err := view.Get(hit.ID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				err = goerr.Wrap(model.ErrInternalInconsistency, "index returned an id missing from the store",
					goerr.V(model.BottleIDKey, hit.ID),
					goerr.V("catalog_size", view.Len()),
				)
			}
			return nil, errutil.Handle(ctx, err, "failed to resolve match")
		}

		matches = append(matches, model.Match{
			ID:         rec.ID,
			Name:       rec.Name,
			Confidence: model.Confidence(hit.Score),
			ImageURL:   rec.ImageURL,
		})
	}

	result := &model.MatchResult{
		Matches:        matches,
		ProcessingTime: time.Since(start),
	}
	logging.From(ctx).Debug("matches found",
		"top_k", topK,
		"matches", len(matches),
		"processing_time_ms", result.ProcessingTimeMS(),
	)
	return result, nil
}
