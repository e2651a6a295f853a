package config

import (
	"log/slog"

	"github.com/secmon-lab/bottlematch/pkg/domain/model"
	"github.com/secmon-lab/bottlematch/pkg/service/catalog"
	"github.com/secmon-lab/bottlematch/pkg/service/index"
	"github.com/urfave/cli/v3"
)

// Catalog holds CLI flags for the catalog and its similarity index
type Catalog struct {
	dimension         int
	topK              int
	parallelThreshold int
	workers           int
}

// Flags returns CLI flags for catalog configuration
func (x *Catalog) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:        "dimension",
			Category:    "Catalog",
			Usage:       "Embedding dimension; must match the feature extractor model",
			Value:       model.DefaultEmbeddingDimension,
			Sources:     cli.EnvVars("BOTTLEMATCH_DIMENSION"),
			Destination: &x.dimension,
		},
		&cli.IntFlag{
			Name:        "top-k",
			Category:    "Catalog",
			Usage:       "Number of matches returned by default",
			Value:       model.DefaultTopK,
			Sources:     cli.EnvVars("BOTTLEMATCH_TOP_K"),
			Destination: &x.topK,
		},
		&cli.IntFlag{
			Name:        "parallel-threshold",
			Category:    "Catalog",
			Usage:       "Catalog size from which queries scan in parallel (0 disables)",
			Value:       index.DefaultParallelThreshold,
			Sources:     cli.EnvVars("BOTTLEMATCH_PARALLEL_THRESHOLD"),
			Destination: &x.parallelThreshold,
		},
		&cli.IntFlag{
			Name:        "search-workers",
			Category:    "Catalog",
			Usage:       "Goroutines used by a parallel scan (0 uses GOMAXPROCS)",
			Sources:     cli.EnvVars("BOTTLEMATCH_SEARCH_WORKERS"),
			Destination: &x.workers,
		},
	}
}

// Dimension returns the configured embedding dimension
func (x *Catalog) Dimension() int {
	return x.dimension
}

// TopK returns the configured default match count
func (x *Catalog) TopK() int {
	return x.topK
}

// LogValue implements slog.LogValuer
func (x Catalog) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("dimension", x.dimension),
		slog.Int("top_k", x.topK),
		slog.Int("parallel_threshold", x.parallelThreshold),
		slog.Int("search_workers", x.workers),
	)
}

// Options returns the catalog options derived from the flags
func (x *Catalog) Options() []catalog.Option {
	opts := []index.Option{index.WithParallelThreshold(x.parallelThreshold)}
	if x.workers > 0 {
		opts = append(opts, index.WithWorkers(x.workers))
	}
	return []catalog.Option{catalog.WithIndexOptions(opts...)}
}
