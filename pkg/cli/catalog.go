package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/bottlematch/pkg/cli/config"
	"github.com/secmon-lab/bottlematch/pkg/service/catalog"
	"github.com/secmon-lab/bottlematch/pkg/service/persistence"
	"github.com/secmon-lab/bottlematch/pkg/utils/errutil"
	"github.com/secmon-lab/bottlematch/pkg/utils/logging"
)

// loadedCatalog is a catalog read from the configured storage together with
// the persister that saves it back
type loadedCatalog struct {
	catalog   *catalog.Catalog
	persister *persistence.Persister
	close     func()
}

func loadCatalog(ctx context.Context, storageCfg *config.Storage, catalogCfg *config.Catalog) (*loadedCatalog, error) {
	store, closer, err := storageCfg.Configure(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize catalog storage")
	}

	persister := persistence.New(store, persistence.WithCatalogOptions(catalogCfg.Options()...))
	c, err := persister.Load(ctx, catalogCfg.Dimension())
	if err != nil {
		closer()
		// a corrupt catalog must stop the process before it serves anything
		return nil, errutil.Handle(ctx, err, "failed to load catalog")
	}

	logging.From(ctx).Info("Catalog ready",
		"storage", storageCfg,
		"catalog", catalogCfg,
		"size", c.Size(),
	)
	return &loadedCatalog{catalog: c, persister: persister, close: closer}, nil
}
