package storage

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

func newTestPage(size int) *Page {
	return NewPage(size, unicode.UTF8)
}

func TestPage_IntRoundTrips(t *testing.T) {
	p := newTestPage(256)

	p.SetInt8(3, -12)
	p.SetInt16(10, -31000)
	p.SetInt32(100, 80)
	p.SetInt32(104, 999)
	p.SetInt64(64, -1234567890123456789)

	assert.Equal(t, int8(-12), p.GetInt8(3))
	assert.Equal(t, int16(-31000), p.GetInt16(10))
	assert.Equal(t, int32(80), p.GetInt32(100))
	assert.Equal(t, int32(999), p.GetInt32(104), "adjacent ints must not clobber each other")
	assert.Equal(t, int64(-1234567890123456789), p.GetInt64(64))

	// Absolute accessors never touch the cursor.
	assert.Equal(t, 0, p.Position())
}

func TestPage_FloatRoundTrips(t *testing.T) {
	p := newTestPage(64)

	p.SetFloat32(0, 3.25)
	p.SetFloat64(8, -2.718281828459045)

	assert.Equal(t, float32(3.25), p.GetFloat32(0))
	assert.Equal(t, -2.718281828459045, p.GetFloat64(8))
}

func TestPage_CharRoundTrip(t *testing.T) {
	p := newTestPage(16)

	p.SetChar(0, 'A')
	p.SetChar(2, 'λ')
	p.SetChar(4, '世')

	assert.Equal(t, 'A', p.GetChar(0))
	assert.Equal(t, 'λ', p.GetChar(2))
	assert.Equal(t, '世', p.GetChar(4))

	// Astral runes need two UTF-16 code units and are rejected.
	assert.Panics(t, func() { p.SetChar(6, '\U0001F600') })
}

func TestPage_RelativeCursor(t *testing.T) {
	p := newTestPage(64)

	p.WriteInt32(7)
	p.WriteInt64(1 << 40)
	p.WriteInt16(-3)
	p.WriteInt8(125)
	p.WriteFloat64(1.5)
	p.WriteChar('x')
	assert.Equal(t, 4+8+2+1+8+2, p.Position())

	// Contents rewinds the cursor; reading back yields the same sequence.
	p.Contents()
	assert.Equal(t, 0, p.Position())
	assert.Equal(t, int32(7), p.ReadInt32())
	assert.Equal(t, int64(1<<40), p.ReadInt64())
	assert.Equal(t, int16(-3), p.ReadInt16())
	assert.Equal(t, int8(125), p.ReadInt8())
	assert.Equal(t, 1.5, p.ReadFloat64())
	assert.Equal(t, 'x', p.ReadChar())
}

func TestPage_StringRoundTrip(t *testing.T) {
	p := newTestPage(128)
	s := "héllo wörld"

	p.SetString(0, s)
	// The next free offset after a blob at i is i + 4 + encoded length.
	next := p.Position()
	assert.Equal(t, Int32Bytes+len(s), next)
	assert.Equal(t, s, p.GetString(0))
	assert.Equal(t, next, p.Position())

	// An adjacent blob at the reported offset leaves the first one intact.
	p.SetString(next, "second")
	assert.Equal(t, s, p.GetString(0))
	assert.Equal(t, "second", p.GetString(next))
}

func TestPage_StringCharsets(t *testing.T) {
	// ISO 8859-1 stores one byte per rune.
	p := NewPage(64, charmap.ISO8859_1)
	p.SetString(0, "grüße")
	assert.Equal(t, Int32Bytes+5, p.Position())
	assert.Equal(t, "grüße", p.GetString(0))

	// Unmappable runes degrade to substitution bytes instead of failing.
	p.SetString(0, "日本")
	assert.Len(t, p.GetString(0), 2)

	// UTF-16 stores two bytes per BMP rune.
	utf16 := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	q := NewPage(64, utf16)
	q.SetString(0, "héllo")
	assert.Equal(t, Int32Bytes+10, q.Position())
	assert.Equal(t, "héllo", q.GetString(0))
}

func TestPage_BytesRoundTrip(t *testing.T) {
	p := newTestPage(64)
	blob := []byte{0xDE, 0xAD, 0xBE, 0xEF}

	p.SetBytes(8, blob)
	assert.Equal(t, 8+Int32Bytes+4, p.Position())

	got := p.GetBytes(8)
	assert.Equal(t, blob, got)

	// GetBytes returns a copy: mutating it must not reach the page.
	got[0] = 0x00
	assert.Equal(t, blob, p.GetBytes(8))

	// Zero-length blobs round-trip too.
	p.SetBytes(32, nil)
	assert.Empty(t, p.GetBytes(32))
	assert.Equal(t, 32+Int32Bytes, p.Position())
}

func TestPage_WrappedBuffer(t *testing.T) {
	buf := make([]byte, 32)
	p := NewPageFromBytes(buf, unicode.UTF8)
	assert.Equal(t, 32, p.Capacity())

	p.SetInt32(0, 7)
	// The page wraps the caller's memory, not a copy.
	assert.Equal(t, uint32(7), binary.LittleEndian.Uint32(buf))

	buf[4] = 0x2A
	assert.Equal(t, int8(0x2A), p.GetInt8(4))
}

func TestPage_ContentsAndClear(t *testing.T) {
	p := newTestPage(32)
	p.SetInt32(0, 42)
	p.WriteInt64(9)

	raw := p.Contents()
	require.Len(t, raw, 32)
	assert.Equal(t, 0, p.Position(), "Contents must rewind the cursor")

	// Contents aliases the buffer.
	raw[0] = 0xFF
	assert.Equal(t, int8(-1), p.GetInt8(0))

	p.Clear()
	assert.Equal(t, 0, p.Position())
	assert.Equal(t, int32(0), p.GetInt32(0))
	assert.Equal(t, int64(0), p.GetInt64(8))
}

func TestPage_OutOfBoundsPanics(t *testing.T) {
	p := newTestPage(16)

	assert.Panics(t, func() { p.GetInt32(14) })
	assert.Panics(t, func() { p.SetInt64(12, 1) })
	assert.Panics(t, func() { p.GetInt8(16) })
	assert.Panics(t, func() { p.SetInt16(-1, 0) })
	assert.Panics(t, func() { p.SetBytes(0, make([]byte, 13)) })
	assert.Panics(t, func() {
		// A length field pointing past the buffer is caught before the copy.
		p.SetInt32(0, 1000)
		p.GetBytes(0)
	})
}
