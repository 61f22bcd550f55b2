package engine

import (
	"fmt"
	"log/slog"

	"github.com/tosin2013/docdrift/internal/config"
	"github.com/tosin2013/docdrift/internal/snapshot"
)

// OpenStore opens the snapshot store selected by cfg under projectRoot.
// Callers close it through Engine.Close.
func OpenStore(cfg config.Config, projectRoot string, logger *slog.Logger) (snapshot.Store, error) {
	path := cfg.SnapshotPath(projectRoot)
	switch cfg.Store {
	case config.StoreDir:
		return snapshot.NewDirStore(path), nil
	case config.StoreBadger:
		bc := snapshot.DefaultBadgerConfig(path)
		bc.Logger = logger
		store, err := snapshot.OpenBadger(bc)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown snapshot store %q", cfg.Store)
	}
}
