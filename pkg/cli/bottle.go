package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/bottlematch/pkg/cli/config"
	"github.com/secmon-lab/bottlematch/pkg/domain/model"
	"github.com/secmon-lab/bottlematch/pkg/usecase"
	"github.com/urfave/cli/v3"
)

type bottleOutput struct {
	ID       model.BottleID `json:"id"`
	Name     string         `json:"name"`
	ImageURL string         `json:"image_url,omitempty"`
}

func cmdList() *cli.Command {
	var storageCfg config.Storage
	var catalogCfg config.Catalog
	var asJSON bool

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "Print the catalog as JSON",
			Destination: &asJSON,
		},
	}
	flags = append(flags, storageCfg.Flags()...)
	flags = append(flags, catalogCfg.Flags()...)

	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List catalog bottles in insertion order",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			loaded, err := loadCatalog(ctx, &storageCfg, &catalogCfg)
			if err != nil {
				return err
			}
			defer loaded.close()

			records := usecase.New(loaded.catalog).ListBottles(ctx)
			out := make([]bottleOutput, len(records))
			for i, rec := range records {
				out[i] = bottleOutput{ID: rec.ID, Name: rec.Name, ImageURL: rec.ImageURL}
			}

			w := c.Root().Writer
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{"bottles": out, "total": len(out)})
			}

			id := color.New(color.FgCyan)
			for _, b := range out {
				_, _ = id.Fprint(w, b.ID)
				_, _ = fmt.Fprintf(w, "\t%s\t%s\n", b.Name, b.ImageURL)
			}
			_, err = fmt.Fprintf(w, "%d bottle(s)\n", len(out))
			return err
		},
	}
}

func cmdDelete() *cli.Command {
	var storageCfg config.Storage
	var catalogCfg config.Catalog

	var flags []cli.Flag
	flags = append(flags, storageCfg.Flags()...)
	flags = append(flags, catalogCfg.Flags()...)

	return &cli.Command{
		Name:      "delete",
		Aliases:   []string{"rm"},
		Usage:     "Remove bottles from the catalog",
		ArgsUsage: "<id>...",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() == 0 {
				return goerr.New("at least one bottle ID is required")
			}

			loaded, err := loadCatalog(ctx, &storageCfg, &catalogCfg)
			if err != nil {
				return err
			}
			defer loaded.close()

			uc := usecase.New(loaded.catalog, usecase.WithPersister(loaded.persister))
			for _, id := range c.Args().Slice() {
				if err := uc.DeleteBottle(ctx, model.BottleID(id)); err != nil {
					return err
				}
				if err := printf(c, "deleted %s\n", id); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func cmdVerify() *cli.Command {
	var storageCfg config.Storage
	var catalogCfg config.Catalog

	var flags []cli.Flag
	flags = append(flags, storageCfg.Flags()...)
	flags = append(flags, catalogCfg.Flags()...)

	return &cli.Command{
		Name:  "verify",
		Usage: "Load the catalog, reconcile its artifacts and check every record",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			loaded, err := loadCatalog(ctx, &storageCfg, &catalogCfg)
			if err != nil {
				return err
			}
			defer loaded.close()

			report, err := usecase.New(loaded.catalog).Verify(ctx)
			if err != nil {
				return err
			}

			w := c.Root().Writer
			_, _ = color.New(color.FgGreen).Fprint(w, "catalog OK")
			_, _ = fmt.Fprintf(w, ": %d bottle(s), dimension %d\n", report.Count, report.Dimension)
			for _, id := range report.Shadowed {
				_, _ = color.New(color.FgYellow).Fprintf(w, "duplicate embedding: %s is shadowed by an earlier bottle\n", id)
			}
			return nil
		},
	}
}

func printf(c *cli.Command, format string, args ...any) error {
	_, err := fmt.Fprintf(c.Root().Writer, format, args...)
	return err
}
