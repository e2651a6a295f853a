package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/bottlematch/pkg/cli/config"
	"github.com/secmon-lab/bottlematch/pkg/domain/model"
)

func TestLoadManifest(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    model.Manifest
		wantErr error
	}{
		{
			name: "names and image urls",
			content: `
[bottles.glenfiddich_12]
name = "Glenfiddich 12 Year Old"

[bottles."ardbeg-10"]
name = "Ardbeg 10"
image_url = "https://cdn.example.com/ardbeg.png"
`,
			want: model.Manifest{
				"glenfiddich_12": {Name: "Glenfiddich 12 Year Old"},
				"ardbeg-10":      {Name: "Ardbeg 10", ImageURL: "https://cdn.example.com/ardbeg.png"},
			},
		},
		{
			name:    "empty file",
			content: "",
			want:    model.Manifest{},
		},
		{
			name:    "broken toml",
			content: "[bottles.x\nname = 1",
			wantErr: config.ErrInvalidConfig,
		},
		{
			name:    "wrong value type",
			content: "[bottles.x]\nname = 1\n",
			wantErr: config.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "manifest.toml")
			gt.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600)).Required()

			got, err := config.LoadManifest(path)
			if tt.wantErr != nil {
				gt.Error(t, err).Is(tt.wantErr)
				return
			}
			gt.NoError(t, err).Required()
			gt.Value(t, got).Equal(tt.want)
		})
	}
}

func TestLoadManifestMissingFile(t *testing.T) {
	_, err := config.LoadManifest(filepath.Join(t.TempDir(), "missing.toml"))
	gt.Error(t, err)
}

func TestManifestConfigureWithoutPath(t *testing.T) {
	m, err := config.NewManifestForTest("").Configure()
	gt.NoError(t, err).Required()
	gt.Value(t, m).Nil()
}
