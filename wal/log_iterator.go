package wal

import (
	"fmt"

	"github.com/stratadb/stratadb/common"
	"github.com/stratadb/stratadb/storage"
)

// LogIterator walks the durable log records in reverse-chronological order:
// newest block first, and within each block from the boundary forward, which
// is newest record first. It reads only what is on disk, one block at a
// time, so records still buffered in the log manager's live page do not
// appear.
//
// Usage follows the scanner shape:
//
//	it, err := lm.Iterator()
//	...
//	for it.Next() {
//	    rec := it.Record()
//	    ...
//	}
//	if err := it.Error(); err != nil {
//	    ...
//	}
type LogIterator struct {
	store   storage.BlockStore
	logFile string
	page    *storage.Page
	block   int32
	pos     int
	rec     []byte
	err     error
}

// newLogIterator positions the iterator at the boundary of the highest
// log block. An empty log file yields an iterator that is exhausted
// immediately.
func newLogIterator(store storage.BlockStore, logFile string) (*LogIterator, error) {
	blocks, err := store.BlockCount(logFile)
	if err != nil {
		return nil, err
	}
	it := &LogIterator{
		store:   store,
		logFile: logFile,
		page:    store.NewPage(),
	}
	if blocks == 0 {
		it.block = -1
		return it, nil
	}
	it.block = blocks - 1
	if err := it.load(); err != nil {
		return nil, err
	}
	return it, nil
}

// Next advances to the next record. It returns false when the oldest record
// has been produced or an error stopped the iteration; Error tells the two
// apart. A block whose records are spent (or a trailing block that was
// flushed empty) makes Next step down to the block below it.
func (it *LogIterator) Next() bool {
	if it.err != nil || it.block < 0 {
		return false
	}
	for it.pos >= it.page.Capacity() {
		if it.block == 0 {
			it.block = -1
			return false
		}
		it.block--
		if err := it.load(); err != nil {
			it.err = err
			return false
		}
	}
	if it.pos+storage.Int32Bytes > it.page.Capacity() {
		it.err = common.StrataError{
			Code:      common.CorruptLogError,
			ErrString: fmt.Sprintf("record prefix at offset %d overruns block %d of %s", it.pos, it.block, it.logFile),
		}
		return false
	}
	n := int(it.page.GetInt32(it.pos))
	if n < 0 || it.pos+storage.Int32Bytes+n > it.page.Capacity() {
		it.err = common.StrataError{
			Code:      common.CorruptLogError,
			ErrString: fmt.Sprintf("record of %d bytes at offset %d overruns block %d of %s", n, it.pos, it.block, it.logFile),
		}
		return false
	}
	it.rec = it.page.GetBytes(it.pos)
	it.pos = it.page.Position()
	return true
}

// Record returns the record produced by the last successful Next. The slice
// is a copy and stays valid across further calls.
func (it *LogIterator) Record() []byte {
	return it.rec
}

// Error reports the failure that ended iteration early, nil after a clean
// exhaustion.
func (it *LogIterator) Error() error {
	return it.err
}

// load reads the current block and rests the cursor on its boundary.
func (it *LogIterator) load() error {
	blk := storage.BlockID{FileName: it.logFile, Number: it.block}
	if _, err := it.store.Read(blk, it.page); err != nil {
		return err
	}
	boundary := int(it.page.GetInt32(0))
	if boundary < boundaryBytes || boundary > it.page.Capacity() {
		return common.StrataError{
			Code:      common.CorruptLogError,
			ErrString: fmt.Sprintf("boundary %d out of range in block %d of %s", boundary, it.block, it.logFile),
		}
	}
	it.pos = boundary
	return nil
}
