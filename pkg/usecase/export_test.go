package usecase

import (
	"context"

	"github.com/secmon-lab/bottlematch/pkg/domain/model"
	"github.com/secmon-lab/bottlematch/pkg/service/index"
)

// CatalogView is exported for testing
type CatalogView interface {
	Dimension() int
	Len() int
	Query(ctx context.Context, embedding []float32, k int) ([]index.Hit, error)
	Get(id model.BottleID) (*model.BottleRecord, error)
}

// FindMatchesIn runs the match engine against an arbitrary view
func FindMatchesIn(ctx context.Context, view CatalogView, embedding []float32, topK int) (*model.MatchResult, error) {
	return findMatches(ctx, view, embedding, topK)
}
