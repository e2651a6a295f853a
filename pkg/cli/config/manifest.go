package config

import (
	"log/slog"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/bottlematch/pkg/domain/model"
	"github.com/urfave/cli/v3"
)

// Manifest holds the CLI flag pointing at a TOML name manifest:
//
//	[bottles.glenfiddich_12]
//	name = "Glenfiddich 12 Year Old"
//	image_url = "https://cdn.example.com/glenfiddich_12.jpg"
type Manifest struct {
	path string
}

type manifestFile struct {
	Bottles map[string]model.ManifestEntry `toml:"bottles"`
}

// Flags returns CLI flags for manifest configuration
func (x *Manifest) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "manifest",
			Aliases:     []string{"m"},
			Category:    "Ingestion",
			Usage:       "TOML file overriding bottle names and image URLs by ID",
			Sources:     cli.EnvVars("BOTTLEMATCH_MANIFEST"),
			Destination: &x.path,
		},
	}
}

// LogValue implements slog.LogValuer
func (x Manifest) LogValue() slog.Value {
	return slog.StringValue(x.path)
}

// Configure loads the manifest. Returns nil if no path is configured.
func (x *Manifest) Configure() (model.Manifest, error) {
	if x.path == "" {
		return nil, nil
	}
	return LoadManifest(x.path)
}

// LoadManifest loads and validates a TOML manifest file
func LoadManifest(path string) (model.Manifest, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read manifest file", goerr.V(ConfigPathKey, path))
	}

	var file manifestFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig.Wrap(err), "failed to parse TOML manifest",
			goerr.V(ConfigPathKey, path))
	}

	manifest := make(model.Manifest, len(file.Bottles))
	for id, entry := range file.Bottles {
		bottleID := model.BottleID(id)
		if err := bottleID.Validate(); err != nil {
			return nil, goerr.Wrap(ErrInvalidConfig, "invalid bottle ID in manifest",
				goerr.V(ConfigPathKey, path), goerr.V(model.BottleIDKey, id))
		}
		manifest[bottleID] = entry
	}
	return manifest, nil
}
