// Package storage provides the block, page and file primitives every other
// part of the engine builds on: fixed-size blocks addressed by file name and
// number, typed in-memory pages mirroring one block, and the file manager
// performing block-granular I/O.
package storage

import "fmt"

// BlockID identifies a fixed-size block within a named database file.
// It is a plain comparable value: two BlockIDs with equal fields denote the
// same physical block, and it can be used directly as a map key. FileName is
// relative to the database directory; Number is zero-based and must be
// non-negative.
type BlockID struct {
	FileName string
	Number   int32
}

func (b BlockID) String() string {
	return fmt.Sprintf("Block(%s, %d)", b.FileName, b.Number)
}
