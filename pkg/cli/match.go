package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/bottlematch/pkg/cli/config"
	"github.com/secmon-lab/bottlematch/pkg/domain/model"
	"github.com/secmon-lab/bottlematch/pkg/usecase"
	"github.com/urfave/cli/v3"
)

type matchOutput struct {
	Matches          []model.Match `json:"matches"`
	ProcessingTimeMS float64       `json:"processing_time_ms"`
}

func cmdMatch() *cli.Command {
	var storageCfg config.Storage
	var catalogCfg config.Catalog
	var extractorCfg config.Extractor
	var embeddingPath string
	var topK int
	var asJSON bool

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "embedding",
			Aliases:     []string{"e"},
			Usage:       "Match a JSON array embedding from this file (- for stdin) instead of an image",
			Destination: &embeddingPath,
		},
		&cli.IntFlag{
			Name:        "k",
			Usage:       "Number of matches (defaults to --top-k)",
			Destination: &topK,
		},
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "Print the result as JSON",
			Destination: &asJSON,
		},
	}
	flags = append(flags, storageCfg.Flags()...)
	flags = append(flags, catalogCfg.Flags()...)
	flags = append(flags, extractorCfg.Flags()...)

	return &cli.Command{
		Name:      "match",
		Usage:     "Identify the catalog bottles most similar to an image or embedding",
		ArgsUsage: "[image]",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			loaded, err := loadCatalog(ctx, &storageCfg, &catalogCfg)
			if err != nil {
				return err
			}
			defer loaded.close()

			opts := []usecase.Option{usecase.WithDefaultTopK(catalogCfg.TopK())}
			if !c.IsSet("k") {
				topK = catalogCfg.TopK()
			}
			var result *model.MatchResult

			switch {
			case embeddingPath != "":
				embedding, err := readEmbedding(embeddingPath)
				if err != nil {
					return err
				}
				result, err = usecase.New(loaded.catalog, opts...).FindMatches(ctx, embedding, topK)
				if err != nil {
					return err
				}

			case c.Args().Len() == 1:
				ext, err := extractorCfg.Required()
				if err != nil {
					return err
				}
				// #nosec G304 - path is provided by CLI argument
				image, err := os.ReadFile(c.Args().First())
				if err != nil {
					return goerr.Wrap(err, "failed to read query image", goerr.V("path", c.Args().First()))
				}
				opts = append(opts, usecase.WithExtractor(ext))
				result, err = usecase.New(loaded.catalog, opts...).MatchImage(ctx, image, topK)
				if err != nil {
					return err
				}

			default:
				return goerr.New("either an image argument or --embedding is required")
			}

			w := c.Root().Writer
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(matchOutput{Matches: result.Matches, ProcessingTimeMS: result.ProcessingTimeMS()})
			}
			return renderMatches(w, result)
		},
	}
}

func readEmbedding(path string) ([]float32, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		// #nosec G304 - path is provided by CLI argument
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read embedding", goerr.V("path", path))
	}

	var embedding []float32
	if err := json.Unmarshal(data, &embedding); err != nil {
		return nil, goerr.Wrap(model.ErrInvalidEmbedding.Wrap(err), "embedding must be a JSON array of numbers",
			goerr.V("path", path))
	}
	return embedding, nil
}

func renderMatches(w io.Writer, result *model.MatchResult) error {
	if len(result.Matches) == 0 {
		_, err := fmt.Fprintln(w, "no matches: the catalog is empty")
		return err
	}

	rank := color.New(color.Bold)
	for i, m := range result.Matches {
		_, _ = rank.Fprintf(w, "%d. ", i+1)
		_, _ = confidenceColor(m.Confidence).Fprintf(w, "%5.1f%%", m.Confidence*100)
		_, _ = fmt.Fprintf(w, "  %s (%s)", m.Name, m.ID)
		if m.ImageURL != "" {
			_, _ = color.New(color.Faint).Fprintf(w, "  %s", m.ImageURL)
		}
		_, _ = fmt.Fprintln(w)
	}
	_, err := color.New(color.Faint).Fprintf(w, "processed in %.2f ms\n", result.ProcessingTimeMS())
	return err
}

func confidenceColor(confidence float64) *color.Color {
	switch {
	case confidence >= 0.9:
		return color.New(color.FgGreen, color.Bold)
	case confidence >= 0.75:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}
