// Package stratadb bundles the storage substrate of an embedded database
// engine: block-granular file access and a write-ahead log, opened and shut
// down as one unit.
package stratadb

import (
	"go.uber.org/zap"

	"github.com/stratadb/stratadb/common"
	"github.com/stratadb/stratadb/storage"
	"github.com/stratadb/stratadb/telemetry"
	"github.com/stratadb/stratadb/wal"
)

// DB is the top-level container for the storage engine.
type DB struct {
	Config      common.Config
	FileManager *storage.FileManager
	LogManager  *wal.LogManager

	log *zap.Logger
}

// Open builds the engine under cfg.DatabaseName, creating the directory tree
// on first use and recovering the append position of the write-ahead log
// from disk on a restart. A nil logger disables logging and a nil telemetry
// handle disables metrics.
func Open(cfg common.Config, log *zap.Logger, tel *telemetry.Telemetry) (*DB, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	meter := tel.Meter()
	storageMetrics, err := telemetry.NewStorageMetrics(meter)
	if err != nil {
		return nil, err
	}
	logMetrics, err := telemetry.NewLogMetrics(meter)
	if err != nil {
		return nil, err
	}

	fileManager, err := storage.NewFileManager(cfg, log, storageMetrics)
	if err != nil {
		return nil, err
	}
	logManager, err := wal.NewLogManager(fileManager, cfg, log, logMetrics)
	if err != nil {
		fileManager.Close()
		return nil, err
	}

	log.Info("database opened",
		zap.String("database", cfg.DatabaseName),
		zap.Int("block_size", cfg.BlockSize))

	return &DB{
		Config:      cfg,
		FileManager: fileManager,
		LogManager:  logManager,
		log:         log,
	}, nil
}

// Close flushes the write-ahead log and releases every open file handle.
// Both steps run even if the first fails; the first error wins.
func (db *DB) Close() error {
	err := db.LogManager.Close()
	if cerr := db.FileManager.Close(); err == nil {
		err = cerr
	}
	db.log.Info("database closed", zap.String("database", db.Config.DatabaseName))
	return err
}
