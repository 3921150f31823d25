package storage

import (
	"encoding/binary"
	"math"

	"golang.org/x/text/encoding"

	"github.com/stratadb/stratadb/common"
)

// Int32Bytes is the width of the length prefix in front of every
// variable-length blob, and of the boundary field in a log block.
const Int32Bytes = 4

// Page is an addressable byte buffer mirroring one disk block, or wrapping an
// arbitrary caller-supplied buffer. It offers two fixed-width access families
// (absolute by offset, and relative at a cursor) plus length-prefixed
// variable-length blobs. Keeping the families separate means absolute access
// can never corrupt the cursor of a relative scan.
//
// A Page is not safe for concurrent use; ownership is single-writer by
// convention (the log manager owns its live page, the file manager hands out
// fresh ones).
//
// Offsets are the caller's bookkeeping. Any access outside the buffer is a
// programmer error and panics; reading a region that was never written
// consistently yields undefined contents, not an error.
type Page struct {
	buf []byte
	pos int
	enc encoding.Encoding
}

// NewPage allocates an I/O-backed page of exactly blockSize bytes. Strings
// stored in the page are encoded with enc.
func NewPage(blockSize int, enc encoding.Encoding) *Page {
	common.Assert(blockSize > 0, "page capacity must be positive, got %d", blockSize)
	return &Page{buf: make([]byte, blockSize), enc: enc}
}

// NewPageFromBytes wraps an existing buffer without copying; mutations are
// visible through the caller's slice. Used wherever a block-size-independent
// buffer is needed.
func NewPageFromBytes(b []byte, enc encoding.Encoding) *Page {
	return &Page{buf: b, enc: enc}
}

// bounds panics unless [off, off+width) lies inside the buffer.
func (p *Page) bounds(off, width int) {
	common.Assert(off >= 0 && width >= 0 && off+width <= len(p.buf),
		"page access out of bounds: offset %d width %d capacity %d", off, width, len(p.buf))
}

// Absolute fixed-width accessors. None of these move the cursor.

func (p *Page) GetInt8(off int) int8 {
	p.bounds(off, 1)
	return int8(p.buf[off])
}

func (p *Page) SetInt8(off int, v int8) {
	p.bounds(off, 1)
	p.buf[off] = byte(v)
}

func (p *Page) GetInt16(off int) int16 {
	p.bounds(off, 2)
	return int16(binary.LittleEndian.Uint16(p.buf[off:]))
}

func (p *Page) SetInt16(off int, v int16) {
	p.bounds(off, 2)
	binary.LittleEndian.PutUint16(p.buf[off:], uint16(v))
}

func (p *Page) GetInt32(off int) int32 {
	p.bounds(off, 4)
	return int32(binary.LittleEndian.Uint32(p.buf[off:]))
}

func (p *Page) SetInt32(off int, v int32) {
	p.bounds(off, 4)
	binary.LittleEndian.PutUint32(p.buf[off:], uint32(v))
}

func (p *Page) GetInt64(off int) int64 {
	p.bounds(off, 8)
	return int64(binary.LittleEndian.Uint64(p.buf[off:]))
}

func (p *Page) SetInt64(off int, v int64) {
	p.bounds(off, 8)
	binary.LittleEndian.PutUint64(p.buf[off:], uint64(v))
}

func (p *Page) GetFloat32(off int) float32 {
	p.bounds(off, 4)
	return math.Float32frombits(binary.LittleEndian.Uint32(p.buf[off:]))
}

func (p *Page) SetFloat32(off int, v float32) {
	p.bounds(off, 4)
	binary.LittleEndian.PutUint32(p.buf[off:], math.Float32bits(v))
}

func (p *Page) GetFloat64(off int) float64 {
	p.bounds(off, 8)
	return math.Float64frombits(binary.LittleEndian.Uint64(p.buf[off:]))
}

func (p *Page) SetFloat64(off int, v float64) {
	p.bounds(off, 8)
	binary.LittleEndian.PutUint64(p.buf[off:], math.Float64bits(v))
}

// GetChar reads one UTF-16 code unit.
func (p *Page) GetChar(off int) rune {
	p.bounds(off, 2)
	return rune(binary.LittleEndian.Uint16(p.buf[off:]))
}

// SetChar stores one UTF-16 code unit. Runes beyond the basic multilingual
// plane do not fit in a single unit and are a programmer error.
func (p *Page) SetChar(off int, c rune) {
	common.Assert(c >= 0 && c <= 0xFFFF, "rune %U does not fit in a single UTF-16 code unit", c)
	p.bounds(off, 2)
	binary.LittleEndian.PutUint16(p.buf[off:], uint16(c))
}

// Relative fixed-width accessors. Each reads or writes at the cursor and
// advances it by the field width.

func (p *Page) ReadInt8() int8 {
	v := p.GetInt8(p.pos)
	p.pos++
	return v
}

func (p *Page) WriteInt8(v int8) {
	p.SetInt8(p.pos, v)
	p.pos++
}

func (p *Page) ReadInt16() int16 {
	v := p.GetInt16(p.pos)
	p.pos += 2
	return v
}

func (p *Page) WriteInt16(v int16) {
	p.SetInt16(p.pos, v)
	p.pos += 2
}

func (p *Page) ReadInt32() int32 {
	v := p.GetInt32(p.pos)
	p.pos += 4
	return v
}

func (p *Page) WriteInt32(v int32) {
	p.SetInt32(p.pos, v)
	p.pos += 4
}

func (p *Page) ReadInt64() int64 {
	v := p.GetInt64(p.pos)
	p.pos += 8
	return v
}

func (p *Page) WriteInt64(v int64) {
	p.SetInt64(p.pos, v)
	p.pos += 8
}

func (p *Page) ReadFloat32() float32 {
	v := p.GetFloat32(p.pos)
	p.pos += 4
	return v
}

func (p *Page) WriteFloat32(v float32) {
	p.SetFloat32(p.pos, v)
	p.pos += 4
}

func (p *Page) ReadFloat64() float64 {
	v := p.GetFloat64(p.pos)
	p.pos += 8
	return v
}

func (p *Page) WriteFloat64(v float64) {
	p.SetFloat64(p.pos, v)
	p.pos += 8
}

func (p *Page) ReadChar() rune {
	v := p.GetChar(p.pos)
	p.pos += 2
	return v
}

func (p *Page) WriteChar(c rune) {
	p.SetChar(p.pos, c)
	p.pos += 2
}

// Variable-length blobs. These are absolute-by-offset but cursor-mutating:
// the offset is the start of a self-describing [4-byte length][bytes] region,
// and the cursor lands just past it so adjacent blobs can be chained.

// SetBytes writes b as a length-prefixed blob starting at off.
func (p *Page) SetBytes(off int, b []byte) {
	p.bounds(off, Int32Bytes+len(b))
	binary.LittleEndian.PutUint32(p.buf[off:], uint32(len(b)))
	copy(p.buf[off+Int32Bytes:], b)
	p.pos = off + Int32Bytes + len(b)
}

// GetBytes reads the length-prefixed blob starting at off. The result is a
// fresh copy, safe to retain after the page is reused.
func (p *Page) GetBytes(off int) []byte {
	p.bounds(off, Int32Bytes)
	n := int(int32(binary.LittleEndian.Uint32(p.buf[off:])))
	common.Assert(n >= 0, "negative blob length %d at offset %d", n, off)
	p.bounds(off+Int32Bytes, n)
	b := make([]byte, n)
	copy(b, p.buf[off+Int32Bytes:])
	p.pos = off + Int32Bytes + n
	return b
}

// SetString encodes s with the page's charset and stores it as a blob at off.
// Unmappable runes are substituted with the charset's replacement, so the
// operation itself cannot fail.
func (p *Page) SetString(off int, s string) {
	enc := encoding.ReplaceUnsupported(p.enc.NewEncoder())
	b, err := enc.Bytes([]byte(s))
	common.Assert(err == nil, "charset encoding failed: %v", err)
	p.SetBytes(off, b)
}

// GetString reads the blob at off and decodes it with the page's charset.
func (p *Page) GetString(off int) string {
	b, err := p.enc.NewDecoder().Bytes(p.GetBytes(off))
	common.Assert(err == nil, "charset decoding failed: %v", err)
	return string(b)
}

// Contents resets the cursor and exposes the full backing buffer for raw I/O.
// The slice aliases the page; it is not a copy.
func (p *Page) Contents() []byte {
	p.pos = 0
	return p.buf
}

// Clear zeroes the buffer and resets the cursor, readying the page for a
// fresh block.
func (p *Page) Clear() {
	clear(p.buf)
	p.pos = 0
}

// Position reports the cursor. Directly after a blob operation at offset i it
// equals i + 4 + blobLength, the next free offset for an adjacent blob.
func (p *Page) Position() int {
	return p.pos
}

// Capacity reports the buffer length in bytes.
func (p *Page) Capacity() int {
	return len(p.buf)
}
