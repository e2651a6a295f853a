package config_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/bottlematch/pkg/cli/config"
	"github.com/secmon-lab/bottlematch/pkg/repository/filesystem"
	"github.com/secmon-lab/bottlematch/pkg/repository/memory"
)

func TestStorage_Configure(t *testing.T) {
	ctx := context.Background()

	t.Run("filesystem backend", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "catalog")
		store, closer, err := config.NewStorageForTest(config.BackendFilesystem, dir).Configure(ctx)
		gt.NoError(t, err).Required()
		defer closer()

		fsStore, ok := store.(*filesystem.ArtifactStore)
		gt.Bool(t, ok).True()
		gt.Value(t, fsStore.Root()).Equal(dir)
	})

	t.Run("filesystem backend requires a directory", func(t *testing.T) {
		_, _, err := config.NewStorageForTest(config.BackendFilesystem, "").Configure(ctx)
		gt.Error(t, err)
	})

	t.Run("memory backend", func(t *testing.T) {
		store, closer, err := config.NewStorageForTest(config.BackendMemory, "").Configure(ctx)
		gt.NoError(t, err).Required()
		defer closer()

		_, ok := store.(*memory.ArtifactStore)
		gt.Bool(t, ok).True()
	})

	t.Run("gcs backend requires a bucket", func(t *testing.T) {
		_, _, err := config.NewStorageForTest(config.BackendGCS, "").Configure(ctx)
		gt.Error(t, err)
	})

	t.Run("s3 backend requires an endpoint", func(t *testing.T) {
		_, _, err := config.NewStorageForTest(config.BackendS3, "").Configure(ctx)
		gt.Error(t, err)
	})

	t.Run("firestore backend requires a project", func(t *testing.T) {
		_, _, err := config.NewStorageForTest(config.BackendFirestore, "").Configure(ctx)
		gt.Error(t, err)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, _, err := config.NewStorageForTest("sqlite", "").Configure(ctx)
		gt.Error(t, err)
	})

	t.Run("returns flags", func(t *testing.T) {
		var cfg config.Storage
		gt.Value(t, len(cfg.Flags())).Equal(14)
	})
}
