package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"

	"github.com/stratadb/stratadb/common"
	"github.com/stratadb/stratadb/telemetry"
)

// FileManager performs block-granular I/O against the files of one database
// directory. File handles are opened lazily on first reference and kept open
// for the manager's lifetime; Close is the explicit shutdown hook that
// releases them.
//
// Files are opened with O_SYNC, so every Write is durable before it returns.
// The log manager's flush contract depends on that: a flushed block must be
// visible to a subsequent read with no page-cache delay.
type FileManager struct {
	cfg     common.Config
	log     *zap.Logger
	metrics *telemetry.StorageMetrics

	// mu serializes Read, Write, Append and Close; each call is one
	// indivisible unit of work. BlockCount and NewPage stay outside it.
	mu    sync.Mutex
	files *xsync.MapOf[string, *os.File]
}

// NewFileManager creates the database directory if needed and returns a
// manager with an empty handle cache. A nil logger or metrics disables that
// concern without changing behavior.
func NewFileManager(cfg common.Config, log *zap.Logger, metrics *telemetry.StorageMetrics) (*FileManager, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	if err := os.MkdirAll(cfg.DatabaseName, 0755); err != nil {
		return nil, common.StrataError{
			Code:      common.StorageIOError,
			ErrString: fmt.Sprintf("failed to create database directory %s", cfg.DatabaseName),
			Err:       err,
		}
	}
	log.Debug("database directory ready",
		zap.String("path", cfg.DatabaseName),
		zap.Int("blockSize", cfg.BlockSize))

	return &FileManager{
		cfg:     cfg,
		log:     log,
		metrics: metrics,
		files:   xsync.NewMapOf[string, *os.File](),
	}, nil
}

// file retrieves or opens the handle for fileName.
//
// It maintains a cache of open files to ensure only one handle exists per
// physical file, no matter how many goroutines race on the first reference.
func (fm *FileManager) file(fileName string) (*os.File, error) {
	if f, ok := fm.files.Load(fileName); ok {
		return f, nil
	}

	path := filepath.Join(fm.cfg.DatabaseName, fileName)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_SYNC, 0666)
	if err != nil {
		return nil, common.StrataError{
			Code:      common.StorageIOError,
			ErrString: fmt.Sprintf("failed to open database file %s", fileName),
			Err:       err,
		}
	}

	actual, loaded := fm.files.LoadOrStore(fileName, f)
	if loaded {
		// Lost the race. Another goroutine opened the file and inserted it
		// first; close our handle and use theirs.
		_ = f.Close()
		return actual, nil
	}

	fm.log.Debug("opened database file", zap.String("file", fileName))
	return f, nil
}

func (fm *FileManager) offset(blk BlockID) int64 {
	return int64(blk.Number) * int64(fm.cfg.BlockSize)
}

// Read transfers the block's bytes into p's buffer and reports how many were
// transferred. A read at or past end-of-file returns (0, nil): the block does
// not exist yet, which callers must treat as an empty block, not a failure.
func (fm *FileManager) Read(blk BlockID, p *Page) (int, error) {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	f, err := fm.file(blk.FileName)
	if err != nil {
		return 0, err
	}

	n, err := f.ReadAt(p.Contents(), fm.offset(blk))
	if err != nil && !errors.Is(err, io.EOF) {
		return n, common.StrataError{
			Code:      common.StorageIOError,
			ErrString: fmt.Sprintf("failed to read %s", blk),
			Err:       err,
		}
	}
	fm.metrics.ObserveRead(n)
	return n, nil
}

// Write transfers p's full buffer to the block and reports bytes written.
// The write is synchronous: once Write returns, the block is durable.
func (fm *FileManager) Write(blk BlockID, p *Page) (int, error) {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	f, err := fm.file(blk.FileName)
	if err != nil {
		return 0, err
	}

	n, err := f.WriteAt(p.Contents(), fm.offset(blk))
	if err != nil {
		return n, common.StrataError{
			Code:      common.StorageIOError,
			ErrString: fmt.Sprintf("failed to write %s", blk),
			Err:       err,
		}
	}
	fm.metrics.ObserveWrite(n)
	return n, nil
}

// Append extends the file by one zeroed block and returns its BlockID. This
// is the allocation primitive a buffer pool uses to grow a table file.
func (fm *FileManager) Append(fileName string) (BlockID, error) {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	f, err := fm.file(fileName)
	if err != nil {
		return BlockID{}, err
	}

	stat, err := f.Stat()
	if err != nil {
		return BlockID{}, common.StrataError{
			Code:      common.StorageIOError,
			ErrString: fmt.Sprintf("failed to stat database file %s", fileName),
			Err:       err,
		}
	}

	blk := BlockID{FileName: fileName, Number: int32(stat.Size() / int64(fm.cfg.BlockSize))}
	if _, err := f.WriteAt(make([]byte, fm.cfg.BlockSize), fm.offset(blk)); err != nil {
		return BlockID{}, common.StrataError{
			Code:      common.StorageIOError,
			ErrString: fmt.Sprintf("failed to append %s", blk),
			Err:       err,
		}
	}
	fm.metrics.ObserveAllocation()
	return blk, nil
}

// BlockCount reports how many whole blocks the file holds. Referencing a file
// for the first time creates it, so a fresh file reports 0.
func (fm *FileManager) BlockCount(fileName string) (int32, error) {
	f, err := fm.file(fileName)
	if err != nil {
		return 0, err
	}
	stat, err := f.Stat()
	if err != nil {
		return 0, common.StrataError{
			Code:      common.StorageIOError,
			ErrString: fmt.Sprintf("failed to stat database file %s", fileName),
			Err:       err,
		}
	}
	return int32(stat.Size() / int64(fm.cfg.BlockSize)), nil
}

// NewPage allocates an I/O-backed page of exactly one block, carrying the
// manager's charset.
func (fm *FileManager) NewPage() *Page {
	return NewPage(fm.cfg.BlockSize, fm.cfg.Charset)
}

// BlockSize is the size in bytes of every block this manager reads and
// writes.
func (fm *FileManager) BlockSize() int {
	return fm.cfg.BlockSize
}

// DatabasePath is the directory all file names resolve under.
func (fm *FileManager) DatabasePath() string {
	return fm.cfg.DatabaseName
}

// Close releases every cached handle and empties the cache. The first close
// failure is reported; the rest are still attempted. Callers must ensure no
// reads or writes are in flight.
func (fm *FileManager) Close() error {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	var firstErr error
	fm.files.Range(func(fileName string, f *os.File) bool {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = common.StrataError{
				Code:      common.StorageIOError,
				ErrString: fmt.Sprintf("failed to close database file %s", fileName),
				Err:       err,
			}
		}
		return true
	})
	fm.files.Clear()
	return firstErr
}
