package config

import (
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/bottlematch/pkg/service/extractor"
	"github.com/urfave/cli/v3"
)

// Extractor holds CLI flags for the remote feature extraction service
type Extractor struct {
	url         string
	timeout     time.Duration
	rps         float64
	burst       int
	concurrency int
}

// Flags returns CLI flags for extractor configuration
func (x *Extractor) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "extractor-url",
			Category:    "Extractor",
			Usage:       "Endpoint that turns a POSTed image into {\"embedding\":[...]}",
			Sources:     cli.EnvVars("BOTTLEMATCH_EXTRACTOR_URL"),
			Destination: &x.url,
		},
		&cli.DurationFlag{
			Name:        "extractor-timeout",
			Category:    "Extractor",
			Usage:       "Timeout of one extractor request",
			Value:       extractor.DefaultTimeout,
			Sources:     cli.EnvVars("BOTTLEMATCH_EXTRACTOR_TIMEOUT"),
			Destination: &x.timeout,
		},
		&cli.FloatFlag{
			Name:        "extractor-rps",
			Category:    "Extractor",
			Usage:       "Maximum extractor requests per second (0 is unlimited)",
			Sources:     cli.EnvVars("BOTTLEMATCH_EXTRACTOR_RPS"),
			Destination: &x.rps,
		},
		&cli.IntFlag{
			Name:        "extractor-burst",
			Category:    "Extractor",
			Usage:       "Request burst allowed above extractor-rps",
			Value:       1,
			Sources:     cli.EnvVars("BOTTLEMATCH_EXTRACTOR_BURST"),
			Destination: &x.burst,
		},
		&cli.IntFlag{
			Name:        "ingest-concurrency",
			Category:    "Extractor",
			Usage:       "Images embedded in parallel during ingestion",
			Value:       4,
			Sources:     cli.EnvVars("BOTTLEMATCH_INGEST_CONCURRENCY"),
			Destination: &x.concurrency,
		},
	}
}

// Concurrency returns the ingestion parallelism
func (x *Extractor) Concurrency() int {
	return x.concurrency
}

// LogValue implements slog.LogValuer
func (x Extractor) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("url", x.url),
		slog.Duration("timeout", x.timeout),
		slog.Float64("rps", x.rps),
		slog.Int("burst", x.burst),
		slog.Int("concurrency", x.concurrency),
	)
}

// Configure creates the extractor client. Returns nil if no URL is
// configured; commands that need one report the error themselves.
func (x *Extractor) Configure() (*extractor.Client, error) {
	if x.url == "" {
		return nil, nil
	}

	client, err := extractor.New(x.url,
		extractor.WithTimeout(x.timeout),
		extractor.WithRateLimit(x.rps, x.burst),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create extractor client")
	}
	return client, nil
}

// Required is Configure for commands that cannot work without an extractor
func (x *Extractor) Required() (*extractor.Client, error) {
	client, err := x.Configure()
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, goerr.New("extractor-url is required for this command")
	}
	return client, nil
}
