package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/bottlematch/pkg/cli/config"
	"github.com/secmon-lab/bottlematch/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdIngest() *cli.Command {
	var storageCfg config.Storage
	var catalogCfg config.Catalog
	var extractorCfg config.Extractor
	var manifestCfg config.Manifest

	var flags []cli.Flag
	flags = append(flags, storageCfg.Flags()...)
	flags = append(flags, catalogCfg.Flags()...)
	flags = append(flags, extractorCfg.Flags()...)
	flags = append(flags, manifestCfg.Flags()...)

	return &cli.Command{
		Name:      "ingest",
		Usage:     "Embed every .jpg/.jpeg/.png image in a directory and add it to the catalog",
		ArgsUsage: "<image-dir>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() != 1 {
				return goerr.New("exactly one image directory is required")
			}
			dir := c.Args().First()

			ext, err := extractorCfg.Required()
			if err != nil {
				return err
			}
			manifest, err := manifestCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load manifest")
			}

			loaded, err := loadCatalog(ctx, &storageCfg, &catalogCfg)
			if err != nil {
				return err
			}
			defer loaded.close()

			uc := usecase.New(loaded.catalog,
				usecase.WithPersister(loaded.persister),
				usecase.WithExtractor(ext),
				usecase.WithManifest(manifest),
				usecase.WithIngestConcurrency(extractorCfg.Concurrency()),
			)

			result, err := uc.Ingest(ctx, dir)
			if err != nil {
				return goerr.Wrap(err, "ingestion failed", goerr.V("dir", dir))
			}

			w := c.Root().Writer
			_, _ = color.New(color.FgGreen).Fprintf(w, "ingested %d image(s)", len(result.Ingested))
			_, _ = fmt.Fprintf(w, ", catalog now holds %d bottle(s)\n", loaded.catalog.Size())
			for _, f := range result.Failed {
				_, _ = color.New(color.FgYellow).Fprintf(w, "skipped %s: %v\n", f.Path, f.Err)
			}
			return nil
		},
	}
}
