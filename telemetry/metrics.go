package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/metric"
)

// StorageMetrics holds the metric instruments for the block file layer.
type StorageMetrics struct {
	BlockReads      metric.Int64Counter
	BlockWrites     metric.Int64Counter
	BytesRead       metric.Int64Counter
	BytesWritten    metric.Int64Counter
	BlocksAllocated metric.Int64Counter
}

// NewStorageMetrics creates and registers all the instruments for the block
// file layer.
func NewStorageMetrics(meter metric.Meter) (*StorageMetrics, error) {
	blockReads, err := meter.Int64Counter(
		"stratadb.storage.block_reads_total",
		metric.WithDescription("Total number of block reads."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	blockWrites, err := meter.Int64Counter(
		"stratadb.storage.block_writes_total",
		metric.WithDescription("Total number of block writes."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	bytesRead, err := meter.Int64Counter(
		"stratadb.storage.read_bytes_total",
		metric.WithDescription("Total bytes transferred from disk into pages."),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	bytesWritten, err := meter.Int64Counter(
		"stratadb.storage.written_bytes_total",
		metric.WithDescription("Total bytes transferred from pages to disk."),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	blocksAllocated, err := meter.Int64Counter(
		"stratadb.storage.blocks_allocated_total",
		metric.WithDescription("Total number of blocks appended to files."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	return &StorageMetrics{
		BlockReads:      blockReads,
		BlockWrites:     blockWrites,
		BytesRead:       bytesRead,
		BytesWritten:    bytesWritten,
		BlocksAllocated: blocksAllocated,
	}, nil
}

// ObserveRead records one block read that transferred n bytes. Safe on a nil
// receiver so callers without telemetry pay a single branch.
func (m *StorageMetrics) ObserveRead(n int) {
	if m == nil {
		return
	}
	ctx := context.Background()
	m.BlockReads.Add(ctx, 1)
	m.BytesRead.Add(ctx, int64(n))
}

// ObserveWrite records one block write that transferred n bytes.
func (m *StorageMetrics) ObserveWrite(n int) {
	if m == nil {
		return
	}
	ctx := context.Background()
	m.BlockWrites.Add(ctx, 1)
	m.BytesWritten.Add(ctx, int64(n))
}

// ObserveAllocation records one block appended to a file.
func (m *StorageMetrics) ObserveAllocation() {
	if m == nil {
		return
	}
	m.BlocksAllocated.Add(context.Background(), 1)
}

// LogMetrics holds the metric instruments for the write-ahead log.
type LogMetrics struct {
	RecordsAppended metric.Int64Counter
	PagesFlushed    metric.Int64Counter
	BlockRollovers  metric.Int64Counter
}

// NewLogMetrics creates and registers all the instruments for the
// write-ahead log.
func NewLogMetrics(meter metric.Meter) (*LogMetrics, error) {
	recordsAppended, err := meter.Int64Counter(
		"stratadb.wal.records_appended_total",
		metric.WithDescription("Total number of records appended to the log."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	pagesFlushed, err := meter.Int64Counter(
		"stratadb.wal.pages_flushed_total",
		metric.WithDescription("Total number of log page flushes to disk."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	blockRollovers, err := meter.Int64Counter(
		"stratadb.wal.block_rollovers_total",
		metric.WithDescription("Total number of times appends advanced to a fresh log block."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	return &LogMetrics{
		RecordsAppended: recordsAppended,
		PagesFlushed:    pagesFlushed,
		BlockRollovers:  blockRollovers,
	}, nil
}

// ObserveAppend records one appended log record.
func (m *LogMetrics) ObserveAppend() {
	if m == nil {
		return
	}
	m.RecordsAppended.Add(context.Background(), 1)
}

// ObserveFlush records one log page flush.
func (m *LogMetrics) ObserveFlush() {
	if m == nil {
		return
	}
	m.PagesFlushed.Add(context.Background(), 1)
}

// ObserveRollover records one advance to a fresh log block.
func (m *LogMetrics) ObserveRollover() {
	if m == nil {
		return
	}
	m.BlockRollovers.Add(context.Background(), 1)
}
