package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/bottlematch/pkg/domain/interfaces"
	"github.com/secmon-lab/bottlematch/pkg/domain/model"
	"github.com/secmon-lab/bottlematch/pkg/service/catalog"
	"github.com/secmon-lab/bottlematch/pkg/service/persistence"
)

// DefaultIngestConcurrency bounds parallel extractor calls during ingestion
const DefaultIngestConcurrency = 4

type UseCases struct {
	catalog     *catalog.Catalog
	persister   *persistence.Persister
	extractor   interfaces.FeatureExtractor
	manifest    model.Manifest
	topK        int
	concurrency int
}

type Option func(*UseCases)

// WithPersister enables Save and the saving write paths
func WithPersister(p *persistence.Persister) Option {
	return func(uc *UseCases) {
		uc.persister = p
	}
}

// WithExtractor sets the collaborator that embeds images
func WithExtractor(ext interfaces.FeatureExtractor) Option {
	return func(uc *UseCases) {
		uc.extractor = ext
	}
}

// WithManifest sets display overrides applied during ingestion
func WithManifest(m model.Manifest) Option {
	return func(uc *UseCases) {
		uc.manifest = m
	}
}

// WithDefaultTopK sets the match count used by FindMatchesDefault
func WithDefaultTopK(k int) Option {
	return func(uc *UseCases) {
		if k > 0 {
			uc.topK = k
		}
	}
}

// WithIngestConcurrency sets how many images are embedded at once
func WithIngestConcurrency(n int) Option {
	return func(uc *UseCases) {
		if n > 0 {
			uc.concurrency = n
		}
	}
}

func New(c *catalog.Catalog, opts ...Option) *UseCases {
	uc := &UseCases{
		catalog:     c,
		topK:        model.DefaultTopK,
		concurrency: DefaultIngestConcurrency,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// DefaultTopK returns the match count used when the caller does not pick one
func (uc *UseCases) DefaultTopK() int {
	return uc.topK
}

// Catalog returns the catalog served by the use cases
func (uc *UseCases) Catalog() *catalog.Catalog {
	return uc.catalog
}

// Save persists the current catalog snapshot
func (uc *UseCases) Save(ctx context.Context) error {
	if uc.persister == nil {
		return goerr.Wrap(ErrPersisterNotConfigured, "cannot save catalog")
	}
	return uc.persister.Save(ctx, uc.catalog)
}
