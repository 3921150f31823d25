// Package wal implements the write-ahead log: an append-only sequence of
// opaque records packed into fixed-size blocks, durable on flush, and
// readable newest-to-oldest for recovery.
package wal

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/stratadb/stratadb/common"
	"github.com/stratadb/stratadb/storage"
	"github.com/stratadb/stratadb/telemetry"
)

// LSN is a log sequence number. LSNs are process-local: they restart at zero
// on every boot and order appends within one run. Records do not carry them
// on disk; durable ordering is positional (block number descending, in-block
// offset ascending from the boundary).
type LSN int64

// boundaryBytes is the width of the boundary field at offset 0 of every log
// block. The boundary holds the offset of the most recently appended record;
// boundary == blockSize denotes an empty block.
const boundaryBytes = storage.Int32Bytes

// LogManager owns the single live page of the highest-numbered log block and
// packs records into it from the end toward the front. Appends are buffered
// in memory; a block rollover, an explicit Flush, or Close makes them
// durable. A record appended but never flushed is lost on a crash, which is
// the deliberate volume-driven durability policy of this layer.
//
// All methods are safe for concurrent use: one mutex covers the whole
// read-boundary, place-record, commit sequence.
type LogManager struct {
	store   storage.BlockStore
	logFile string
	log     *zap.Logger
	metrics *telemetry.LogMetrics

	mu             sync.Mutex
	page           *storage.Page
	currentBlock   int32
	latestLSN      LSN
	lastFlushedLSN LSN
}

// NewLogManager creates the log directory inside the database directory and
// restores the append state from the end of the log file: an empty file
// starts fresh at block 0, otherwise the highest block is read back and its
// boundary adopted, so a restarted process resumes filling a partial block
// without leaving a gap.
func NewLogManager(store storage.BlockStore, cfg common.Config, log *zap.Logger, metrics *telemetry.LogMetrics) (*LogManager, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	logDir := filepath.Join(cfg.DatabaseName, cfg.LogDirectoryName)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, common.StrataError{
			Code:      common.StorageIOError,
			ErrString: fmt.Sprintf("failed to create log directory %s", logDir),
			Err:       err,
		}
	}

	lm := &LogManager{
		store:   store,
		logFile: filepath.Join(cfg.LogDirectoryName, cfg.LogFileName),
		log:     log,
		metrics: metrics,
		page:    store.NewPage(),
	}

	blocks, err := store.BlockCount(lm.logFile)
	if err != nil {
		return nil, err
	}
	if blocks == 0 {
		// Fresh log. The empty block exists only in memory until the first
		// flush writes it.
		lm.currentBlock = 0
		lm.page.SetInt32(0, int32(store.BlockSize()))
	} else {
		lm.currentBlock = blocks - 1
		blk := storage.BlockID{FileName: lm.logFile, Number: lm.currentBlock}
		if _, err := store.Read(blk, lm.page); err != nil {
			return nil, err
		}
	}
	log.Debug("log state restored",
		zap.Int32("block", lm.currentBlock),
		zap.Int32("boundary", lm.page.GetInt32(0)),
		zap.String("file", lm.logFile))

	return lm, nil
}

// Append places the record in the live page and returns its LSN. The record
// is not durable yet; call Flush with the returned LSN (or Close) when it
// must be. If the live block lacks room, the page is flushed and a fresh
// block started, so earlier records become durable as a side effect.
//
// Records are packed from the end of the block toward the front: the most
// recent record starts at the boundary kept at offset 0.
func (lm *LogManager) Append(record []byte) (LSN, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	blockSize := lm.store.BlockSize()
	need := len(record) + storage.Int32Bytes
	// Even an empty block must hold the boundary field, the length prefix
	// and the payload. Anything bigger can never be stored, so fail before
	// touching the disk.
	if need+boundaryBytes > blockSize {
		return 0, common.StrataError{
			Code:      common.LogRecordTooLarge,
			ErrString: fmt.Sprintf("record of %d bytes cannot fit a block of %d bytes", len(record), blockSize),
		}
	}

	boundary := int(lm.page.GetInt32(0))
	candidate := boundary - need
	if candidate < boundaryBytes {
		// No room in this block (a start below 4 would overlap the boundary
		// field itself). Flush and roll to a fresh block; the capacity guard
		// above guarantees the record fits there.
		if err := lm.flush(); err != nil {
			return 0, err
		}
		lm.currentBlock++
		lm.page.Clear()
		lm.page.SetInt32(0, int32(blockSize))
		lm.metrics.ObserveRollover()
		lm.log.Debug("log rolled over to a fresh block", zap.Int32("block", lm.currentBlock))
		candidate = blockSize - need
	}

	lm.page.SetBytes(candidate, record)
	lm.page.SetInt32(0, int32(candidate))
	lm.latestLSN++
	lm.metrics.ObserveAppend()
	return lm.latestLSN, nil
}

// Flush ensures the record with the given LSN is durable. The whole live
// page is written, so every record appended so far becomes durable with it.
// An LSN below the last flush is already on disk and returns immediately.
func (lm *LogManager) Flush(lsn LSN) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if lsn >= lm.lastFlushedLSN {
		return lm.flush()
	}
	return nil
}

// Close flushes the live page one final time. The underlying file handle
// belongs to the file manager and stays open until its own Close.
func (lm *LogManager) Close() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.flush()
}

// LatestLSN reports the LSN of the most recent append, 0 if none happened
// this run.
func (lm *LogManager) LatestLSN() LSN {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.latestLSN
}

// Iterator opens the current on-disk state of the log for newest-to-oldest
// traversal. It does not flush first: records still sitting in the live page
// stay invisible until a rollover, Flush or Close writes them.
func (lm *LogManager) Iterator() (*LogIterator, error) {
	return newLogIterator(lm.store, lm.logFile)
}

// flush writes the live page to its block. Callers hold mu.
func (lm *LogManager) flush() error {
	blk := storage.BlockID{FileName: lm.logFile, Number: lm.currentBlock}
	if _, err := lm.store.Write(blk, lm.page); err != nil {
		return err
	}
	lm.lastFlushedLSN = lm.latestLSN
	lm.metrics.ObserveFlush()
	return nil
}
