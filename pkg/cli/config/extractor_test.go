package config_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/bottlematch/pkg/cli/config"
)

func TestExtractor_Configure(t *testing.T) {
	t.Run("returns nil client when url is empty", func(t *testing.T) {
		client, err := config.NewExtractorForTest("", time.Second).Configure()
		gt.NoError(t, err).Required()
		gt.Value(t, client).Nil()
	})

	t.Run("required fails when url is empty", func(t *testing.T) {
		_, err := config.NewExtractorForTest("", time.Second).Required()
		gt.Error(t, err)
	})

	t.Run("creates client", func(t *testing.T) {
		client, err := config.NewExtractorForTest("http://localhost:8080/embed", time.Second).Required()
		gt.NoError(t, err).Required()
		gt.Value(t, client).NotNil()
	})
}

func TestCatalog_Options(t *testing.T) {
	cfg := config.NewCatalogForTest(512, 3, 0, 4)
	gt.Value(t, cfg.Dimension()).Equal(512)
	gt.Value(t, cfg.TopK()).Equal(3)
	gt.Array(t, cfg.Options()).Length(1)
}
