package cli

import (
	"context"
	"io"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/bottlematch/pkg/cli/config"
	"github.com/secmon-lab/bottlematch/pkg/usecase"
	"github.com/secmon-lab/bottlematch/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdImport() *cli.Command {
	var storageCfg config.Storage
	var catalogCfg config.Catalog

	var flags []cli.Flag
	flags = append(flags, storageCfg.Flags()...)
	flags = append(flags, catalogCfg.Flags()...)

	return &cli.Command{
		Name:      "import",
		Usage:     `Add precomputed embeddings from JSON Lines of {"id","name","image_url","embedding"}`,
		ArgsUsage: "<file.jsonl|->",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() != 1 {
				return goerr.New("exactly one input file is required")
			}

			var r io.Reader = os.Stdin
			if path := c.Args().First(); path != "-" {
				// #nosec G304 - path is provided by CLI argument
				f, err := os.Open(path)
				if err != nil {
					return goerr.Wrap(err, "failed to open import file", goerr.V("path", path))
				}
				defer safe.Close(ctx, f)
				r = f
			}

			loaded, err := loadCatalog(ctx, &storageCfg, &catalogCfg)
			if err != nil {
				return err
			}
			defer loaded.close()

			uc := usecase.New(loaded.catalog, usecase.WithPersister(loaded.persister))
			n, err := uc.Import(ctx, r)
			if err != nil {
				return err
			}
			return printf(c, "imported %d record(s), catalog now holds %d bottle(s)\n", n, loaded.catalog.Size())
		},
	}
}
