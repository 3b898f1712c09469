package main

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/srand/jolt/testqueue/pkg/history"
	"github.com/srand/jolt/testqueue/pkg/log"
)

type HistoryConfig struct {
	// Storage type: "memory" or "disk"
	StorageType string `mapstructure:"storage"`
	// Directory of the history journal (for disk storage)
	Path string `mapstructure:"path"`
}

// Creates the configured test history storage.
// The returned function closes the storage.
func (c *HistoryConfig) CreateStorage() (history.Storage, func() error, error) {
	switch c.StorageType {
	case "disk":
		if c.Path == "" {
			return nil, nil, fmt.Errorf("no path configured for history disk storage")
		}

		os := afero.NewOsFs()
		if err := os.MkdirAll(c.Path, 0777); err != nil {
			return nil, nil, err
		}

		storage, err := history.NewJournalStorage(afero.NewBasePathFs(os, c.Path))
		if err != nil {
			return nil, nil, err
		}

		log.Info("Test history stored in", c.Path)
		return storage, storage.Close, nil

	case "", "memory":
		log.Info("Test history stored in memory")
		return history.NewMemoryStorage(), func() error { return nil }, nil

	default:
		return nil, nil, fmt.Errorf("invalid history storage type configured: %s", c.StorageType)
	}
}

func (c *HistoryConfig) SetDefaults() {
	if c.StorageType == "" {
		c.StorageType = "memory"
	}
}

func (c *HistoryConfig) LogValues() {
	log.Infof("  History configuration:")
	log.Infof("    storage = %s", c.StorageType)
	if c.StorageType == "disk" {
		log.Infof("    path = %s", c.Path)
	}
}
