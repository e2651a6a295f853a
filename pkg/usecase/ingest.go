package usecase

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/bottlematch/pkg/domain/model"
	"github.com/secmon-lab/bottlematch/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
}

// IngestFailure is an image that could not be added to the catalog
type IngestFailure struct {
	Path string
	Err  error
}

// IngestResult reports what an ingestion run did
type IngestResult struct {
	Ingested []model.BottleID
	Failed   []IngestFailure
}

// DiscoverImages returns the image files directly inside dir, sorted by path
func DiscoverImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read image directory", goerr.V("dir", dir))
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := imageExtensions[strings.ToLower(filepath.Ext(e.Name()))]; ok {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// Ingest embeds every image in dir and upserts the results in path order.
// An image that cannot be read, embedded or validated is logged and skipped.
// The catalog is saved once at the end when a persister is configured.
func (uc *UseCases) Ingest(ctx context.Context, dir string) (*IngestResult, error) {
	if uc.extractor == nil {
		return nil, goerr.Wrap(ErrExtractorNotConfigured, "cannot embed images")
	}

	paths, err := DiscoverImages(dir)
	if err != nil {
		return nil, err
	}
	logger := logging.From(ctx)
	logger.Info("ingesting images", "dir", dir, "count", len(paths))

	records := make([]*model.BottleRecord, len(paths))
	failures := make([]error, len(paths))
	dim := uc.catalog.Dimension()

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(uc.concurrency)
	for i, path := range paths {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			records[i], failures[i] = uc.embedImage(egCtx, path, dim)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, goerr.Wrap(err, "ingestion interrupted", goerr.V("dir", dir))
	}

	result := &IngestResult{}
	batch := make([]*model.BottleRecord, 0, len(records))
	for i, rec := range records {
		if failures[i] != nil {
			logger.Warn("skipping image", "path", paths[i], "error", failures[i])
			result.Failed = append(result.Failed, IngestFailure{Path: paths[i], Err: failures[i]})
			continue
		}
		batch = append(batch, rec)
		result.Ingested = append(result.Ingested, rec.ID)
	}

	if err := uc.catalog.UpsertRecords(batch...); err != nil {
		return nil, goerr.Wrap(err, "failed to apply ingested records")
	}
	logger.Info("images ingested",
		"ingested", len(result.Ingested),
		"failed", len(result.Failed),
		"catalog_size", uc.catalog.Size(),
	)

	if uc.persister != nil {
		if err := uc.Save(ctx); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (uc *UseCases) embedImage(ctx context.Context, path string, dim int) (*model.BottleRecord, error) {
	// #nosec G304 - path comes from the ingestion directory listing
	image, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read image", goerr.V("path", path))
	}

	embedding, err := uc.extractor.Embed(ctx, image)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed image", goerr.V("path", path))
	}

	id, name, imageURL := uc.manifest.Resolve(path)
	rec, err := model.NewBottleRecord(id, name, embedding, imageURL, dim)
	if err != nil {
		return nil, goerr.Wrap(err, "cannot build bottle record from image", goerr.V("path", path))
	}
	return rec, nil
}
