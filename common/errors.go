package common

import "fmt"

type StrataErrorCode int

const (
	// ConfigError indicates a required configuration value is missing or
	// invalid, such as an unset database name or a block size too small to
	// hold a log boundary and one record prefix.
	ConfigError StrataErrorCode = iota
	// StorageIOError wraps a failed directory, file, read or write operation.
	// These are never retried; the first failure surfaces to the caller.
	StorageIOError
	// LogRecordTooLarge indicates a record that can never be stored: its
	// payload plus the 4-byte length prefix and the 4-byte block boundary
	// exceed the block size, so even an empty block could not hold it.
	LogRecordTooLarge
	// CorruptLogError indicates an on-disk log block whose boundary or
	// record length field falls outside the block. Iteration stops at the
	// first corrupt block.
	CorruptLogError
)

func (ec StrataErrorCode) String() string {
	switch ec {
	case ConfigError:
		return "ConfigError"
	case StorageIOError:
		return "StorageIOError"
	case LogRecordTooLarge:
		return "LogRecordTooLarge"
	case CorruptLogError:
		return "CorruptLogError"
	}
	return "unknown"
}

// StrataError is the custom error type for the storage engine.
// It pairs a StrataErrorCode with a detailed message and, for I/O failures,
// the underlying cause.
//
// By implementing the built-in 'error' interface it integrates with Go's
// error handling, while the code gives callers enough metadata to tell a
// fatal configuration mistake from a disk fault. Unwrap exposes the cause so
// errors.Is still reaches sentinel values like os.ErrNotExist.
type StrataError struct {
	Code      StrataErrorCode
	ErrString string
	Err       error
}

func (e StrataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("err: %s; msg: %s: %v", e.Code.String(), e.ErrString, e.Err)
	}
	return fmt.Sprintf("err: %s; msg: %s", e.Code.String(), e.ErrString)
}

func (e StrataError) Unwrap() error {
	return e.Err
}
