package usecase_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/bottlematch/pkg/domain/mock"
	"github.com/secmon-lab/bottlematch/pkg/domain/model"
	"github.com/secmon-lab/bottlematch/pkg/repository/memory"
	"github.com/secmon-lab/bottlematch/pkg/service/persistence"
	"github.com/secmon-lab/bottlematch/pkg/usecase"
)

func writeImages(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		gt.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600)).Required()
	}
	return dir
}

// embedByContent returns the vector registered for the image content
func embedByContent(vectors map[string][]float32) *mock.FeatureExtractorMock {
	return &mock.FeatureExtractorMock{
		EmbedFunc: func(ctx context.Context, image []byte) ([]float32, error) {
			v, ok := vectors[string(image)]
			if !ok {
				return nil, errors.New("model failed on image")
			}
			return v, nil
		},
	}
}

func TestDiscoverImages(t *testing.T) {
	dir := writeImages(t, map[string]string{
		"b.JPG":     "1",
		"a.png":     "2",
		"c.jpeg":    "3",
		"notes.txt": "4",
		"d.gif":     "5",
		".DS_Store": "6",
		"e.Jpeg":    "7",
	})
	gt.NoError(t, os.Mkdir(filepath.Join(dir, "nested.jpg"), 0o750)).Required()

	paths, err := usecase.DiscoverImages(dir)
	gt.NoError(t, err).Required()

	var names []string
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	gt.Value(t, names).Equal([]string{"a.png", "b.JPG", "c.jpeg", "e.Jpeg"})
}

func TestDiscoverImagesMissingDir(t *testing.T) {
	_, err := usecase.DiscoverImages(filepath.Join(t.TempDir(), "missing"))
	gt.Error(t, err)
}

func TestIngest(t *testing.T) {
	dir := writeImages(t, map[string]string{
		"glenfiddich_12-year.jpg": "glen",
		"ardbeg_10.png":           "ardbeg",
		"broken.jpg":              "broken",
		"zero.jpg":                "zero",
		"macallan.jpeg":           "macallan",
	})
	ext := embedByContent(map[string][]float32{
		"glen":     {1, 0, 0},
		"ardbeg":   {0, 2, 0},
		"macallan": {0, 0, 5},
		"zero":     {0, 0, 0},
	})

	store := memory.New()
	c := newCatalog(t, 3)
	uc := usecase.New(c,
		usecase.WithExtractor(ext),
		usecase.WithPersister(persistence.New(store)),
		usecase.WithManifest(model.Manifest{"ardbeg_10": {Name: "Ardbeg 10 Years Old"}}),
		usecase.WithIngestConcurrency(2),
	)

	result, err := uc.Ingest(context.Background(), dir)
	gt.NoError(t, err).Required()

	gt.Value(t, result.Ingested).Equal([]model.BottleID{"ardbeg_10", "glenfiddich_12-year", "macallan"})
	gt.Array(t, result.Failed).Length(2).Required()
	gt.String(t, filepath.Base(result.Failed[0].Path)).Equal("broken.jpg")
	gt.String(t, filepath.Base(result.Failed[1].Path)).Equal("zero.jpg")
	gt.Error(t, result.Failed[1].Err).Is(model.ErrInvalidEmbedding)
	gt.Array(t, ext.EmbedCalls()).Length(5)

	records := c.ListAll()
	gt.Array(t, records).Length(3).Required()
	gt.Value(t, records[0].Name).Equal("Ardbeg 10 Years Old")
	gt.Value(t, records[0].ImageURL).Equal("images/ardbeg_10.png")
	gt.Value(t, records[1].Name).Equal("glenfiddich 12 year")
	gt.Value(t, records[1].ImageURL).Equal("images/glenfiddich_12-year.jpg")
	gt.Bool(t, model.IsUnit(records[0].Embedding)).True()

	// saved once at the end
	loaded, err := persistence.New(store).Load(context.Background(), 3)
	gt.NoError(t, err).Required()
	gt.Value(t, loaded.ListAll()).Equal(records)
}

func TestIngestReplacesExistingBottle(t *testing.T) {
	dir := writeImages(t, map[string]string{"ardbeg_10.jpg": "new"})
	c := newCatalog(t, 2)
	gt.NoError(t, c.Upsert("old", "Old", []float32{1, 0}, "")).Required()
	gt.NoError(t, c.Upsert("ardbeg_10", "stale", []float32{1, 0}, "")).Required()

	uc := usecase.New(c, usecase.WithExtractor(embedByContent(map[string][]float32{"new": {0, 1}})))
	_, err := uc.Ingest(context.Background(), dir)
	gt.NoError(t, err).Required()

	gt.Value(t, c.Size()).Equal(2)
	rec, err := c.Get("ardbeg_10")
	gt.NoError(t, err).Required()
	gt.Value(t, rec.Name).Equal("ardbeg 10")
	gt.Value(t, rec.Embedding).Equal([]float32{0, 1})
	gt.Value(t, c.ListAll()[1].ID).Equal(model.BottleID("ardbeg_10"))
}

func TestIngestSkipsNonUTF8Filename(t *testing.T) {
	dir := writeImages(t, map[string]string{
		"caf\xe9.jpg":  "cafe",
		"talisker.jpg": "talisker",
	})
	ext := embedByContent(map[string][]float32{
		"cafe":     {1, 0},
		"talisker": {0, 1},
	})
	store := memory.New()
	c := newCatalog(t, 2)
	uc := usecase.New(c, usecase.WithExtractor(ext), usecase.WithPersister(persistence.New(store)))

	result, err := uc.Ingest(context.Background(), dir)
	gt.NoError(t, err).Required()
	gt.Value(t, result.Ingested).Equal([]model.BottleID{"talisker"})
	gt.Array(t, result.Failed).Length(1).Required()
	gt.Error(t, result.Failed[0].Err).Is(model.ErrInvalidBottleID)

	loaded, err := persistence.New(store).Load(context.Background(), 2)
	gt.NoError(t, err).Required()
	gt.Value(t, loaded.Size()).Equal(1)
}

func TestIngestRequiresExtractor(t *testing.T) {
	_, err := usecase.New(newCatalog(t, 2)).Ingest(context.Background(), t.TempDir())
	gt.Error(t, err).Is(usecase.ErrExtractorNotConfigured)
}

func TestIngestBoundsConcurrency(t *testing.T) {
	files := map[string]string{}
	vectors := map[string][]float32{}
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		files[name+".jpg"] = name
		vectors[name] = []float32{1, 1}
	}
	dir := writeImages(t, files)

	var inFlight, peak atomic.Int32
	ext := &mock.FeatureExtractorMock{
		EmbedFunc: func(ctx context.Context, image []byte) ([]float32, error) {
			n := inFlight.Add(1)
			defer inFlight.Add(-1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			return vectors[string(image)], nil
		},
	}

	c := newCatalog(t, 2)
	_, err := usecase.New(c, usecase.WithExtractor(ext), usecase.WithIngestConcurrency(3)).Ingest(context.Background(), dir)
	gt.NoError(t, err).Required()
	gt.Value(t, c.Size()).Equal(8)
	gt.Bool(t, peak.Load() <= 3).True()
}

func TestIngestCancelled(t *testing.T) {
	dir := writeImages(t, map[string]string{"a.jpg": "a"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newCatalog(t, 2)
	uc := usecase.New(c, usecase.WithExtractor(embedByContent(map[string][]float32{"a": {1, 0}})))
	_, err := uc.Ingest(ctx, dir)
	gt.Error(t, err)
	gt.Value(t, c.Size()).Equal(0)
}

func TestIngestEmptyDirectory(t *testing.T) {
	store := memory.New()
	c := newCatalog(t, 2)
	uc := usecase.New(c,
		usecase.WithExtractor(embedByContent(nil)),
		usecase.WithPersister(persistence.New(store)),
	)

	result, err := uc.Ingest(context.Background(), t.TempDir())
	gt.NoError(t, err).Required()
	gt.Array(t, result.Ingested).Length(0)

	exists, err := store.Exists(context.Background(), persistence.DefaultMetadataName)
	gt.NoError(t, err).Required()
	gt.Bool(t, exists).True()
}

