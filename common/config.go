package common

import (
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

const (
	// DefaultBlockSize is the size in bytes of every disk block unless the
	// configuration overrides it.
	DefaultBlockSize = 4096

	// MinBlockSize is the smallest workable block: a 4-byte log boundary, a
	// 4-byte record length prefix, and at least 4 bytes of payload room.
	MinBlockSize = 12

	DefaultLogDirectoryName = "log"
	DefaultLogFileName      = "db_log"
)

// Config carries every tunable the storage layer reads. It is built once at
// startup and passed down by value; components keep their own copy and never
// mutate it, so sharing across goroutines needs no synchronization.
type Config struct {
	// DatabaseName is the directory holding all database files. Required.
	DatabaseName string

	// BlockSize is the size of every disk block in bytes. All files are flat
	// sequences of blocks of this size; changing it on an existing database
	// makes the old files unreadable.
	BlockSize int

	// Charset encodes strings stored in pages. Any golang.org/x/text
	// encoding works; unmappable runes are substituted, never rejected.
	Charset encoding.Encoding

	// LogDirectoryName and LogFileName locate the write-ahead log inside the
	// database directory.
	LogDirectoryName string
	LogFileName      string
}

// DefaultConfig returns a Config for the named database with every other
// field at its default.
func DefaultConfig(databaseName string) Config {
	return Config{DatabaseName: databaseName}.WithDefaults()
}

// WithDefaults returns a copy with zero-valued fields replaced by defaults.
// DatabaseName has no default; Validate rejects it when empty.
func (c Config) WithDefaults() Config {
	if c.BlockSize == 0 {
		c.BlockSize = DefaultBlockSize
	}
	if c.Charset == nil {
		c.Charset = unicode.UTF8
	}
	if c.LogDirectoryName == "" {
		c.LogDirectoryName = DefaultLogDirectoryName
	}
	if c.LogFileName == "" {
		c.LogFileName = DefaultLogFileName
	}
	return c
}

// Validate reports the first fatal configuration error, if any.
func (c Config) Validate() error {
	if c.DatabaseName == "" {
		return StrataError{Code: ConfigError, ErrString: "database name is not set"}
	}
	if c.BlockSize < MinBlockSize {
		return StrataError{
			Code:      ConfigError,
			ErrString: fmt.Sprintf("block size %d is below the minimum of %d", c.BlockSize, MinBlockSize),
		}
	}
	if c.Charset == nil {
		return StrataError{Code: ConfigError, ErrString: "charset is not set"}
	}
	if c.LogDirectoryName == "" || c.LogFileName == "" {
		return StrataError{Code: ConfigError, ErrString: "log directory or file name is not set"}
	}
	return nil
}
