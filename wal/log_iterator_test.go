package wal

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratadb/stratadb/common"
	"github.com/stratadb/stratadb/storage"
)

func TestLogIterator_WalksBlocksNewestToOldest(t *testing.T) {
	lm, fm := newTestLog(t, filepath.Join(t.TempDir(), "strata_test"), 32)

	// Each record occupies 10 bytes with its prefix, so two fit per block
	// and the seventh lands alone in block 3.
	const records = 7
	for i := 0; i < records; i++ {
		_, err := lm.Append([]byte(fmt.Sprintf("rec-%02d", i)))
		require.NoError(t, err)
	}
	require.NoError(t, lm.Close())

	blocks, err := fm.BlockCount(lm.logFile)
	require.NoError(t, err)
	assert.Equal(t, int32(4), blocks)

	got := collectRecords(t, lm)
	require.Len(t, got, records)
	for i, rec := range got {
		assert.Equal(t, fmt.Sprintf("rec-%02d", records-1-i), rec)
	}
}

func TestLogIterator_RecordIsACopy(t *testing.T) {
	lm, _ := newTestLog(t, filepath.Join(t.TempDir(), "strata_test"), 64)

	lsn, err := lm.Append([]byte("stable"))
	require.NoError(t, err)
	require.NoError(t, lm.Flush(lsn))

	it, err := lm.Iterator()
	require.NoError(t, err)
	require.True(t, it.Next())
	it.Record()[0] = 'X'

	assert.Equal(t, []string{"stable"}, collectRecords(t, lm))
}

func TestLogIterator_CorruptBoundaryFailsConstruction(t *testing.T) {
	lm, fm := newTestLog(t, filepath.Join(t.TempDir(), "strata_test"), 64)

	lsn, err := lm.Append([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, lm.Flush(lsn))

	// Rewrite the boundary with a value below the minimum.
	page := fm.NewPage()
	blk := storage.BlockID{FileName: lm.logFile, Number: 0}
	_, err = fm.Read(blk, page)
	require.NoError(t, err)
	page.SetInt32(0, 2)
	_, err = fm.Write(blk, page)
	require.NoError(t, err)

	_, err = lm.Iterator()
	var serr common.StrataError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, common.CorruptLogError, serr.Code)
}

func TestLogIterator_CorruptLowerBlockSurfacesViaError(t *testing.T) {
	lm, fm := newTestLog(t, filepath.Join(t.TempDir(), "strata_test"), 20)

	_, err := lm.Append([]byte("AAAAAAAAAA"))
	require.NoError(t, err)
	_, err = lm.Append([]byte("BBBBBBBBBB")) // rolls over, flushing block 0
	require.NoError(t, err)
	require.NoError(t, lm.Close())

	// Wreck block 0's boundary; block 1 stays readable.
	page := fm.NewPage()
	blk := storage.BlockID{FileName: lm.logFile, Number: 0}
	_, err = fm.Read(blk, page)
	require.NoError(t, err)
	page.SetInt32(0, 21) // past the block end
	_, err = fm.Write(blk, page)
	require.NoError(t, err)

	it, err := lm.Iterator()
	require.NoError(t, err)
	require.True(t, it.Next())
	assert.Equal(t, "BBBBBBBBBB", string(it.Record()))

	assert.False(t, it.Next())
	var serr common.StrataError
	require.ErrorAs(t, it.Error(), &serr)
	assert.Equal(t, common.CorruptLogError, serr.Code)
}

func TestLogIterator_CorruptRecordLengthStopsIteration(t *testing.T) {
	lm, fm := newTestLog(t, filepath.Join(t.TempDir(), "strata_test"), 64)

	lsn, err := lm.Append([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, lm.Flush(lsn))

	// Blow up the length prefix of the newest record.
	page := fm.NewPage()
	blk := storage.BlockID{FileName: lm.logFile, Number: 0}
	_, err = fm.Read(blk, page)
	require.NoError(t, err)
	boundary := page.GetInt32(0)
	page.SetInt32(int(boundary), 1000)
	_, err = fm.Write(blk, page)
	require.NoError(t, err)

	it, err := lm.Iterator()
	require.NoError(t, err)
	assert.False(t, it.Next())
	var serr common.StrataError
	require.ErrorAs(t, it.Error(), &serr)
	assert.Equal(t, common.CorruptLogError, serr.Code)
}
