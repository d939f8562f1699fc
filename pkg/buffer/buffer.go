// Package buffer implements the fixed-length, cursor-addressed binary
// buffer that every rompatch codec reads and writes through: structured
// unsigned-integer access in selectable endianness, ASCII string helpers,
// slicing, byte copies, and range hashing via pkg/hashkit.
package buffer

import (
	"github.com/hansbonini/rompatch/pkg/common"
	"github.com/hansbonini/rompatch/pkg/hashkit"
)

// Endianness selects the byte order used by the structured read/write
// operations. The zero value is BigEndian.
type Endianness int

const (
	BigEndian Endianness = iota
	LittleEndian
)

// Buffer is a fixed-length mutable byte buffer with an instance-local
// cursor. It is not safe for concurrent use — pass it by reference within
// a single goroutine, the same convention the codecs rely on.
type Buffer struct {
	data     []byte
	cursor   int
	stack    []int
	endian   Endianness
	name     string
	fileType string
}

// NewFromBytes wraps an existing byte slice. The slice is taken by
// reference; callers that need an independent copy should Slice() it.
func NewFromBytes(data []byte) *Buffer {
	return &Buffer{data: data, endian: BigEndian}
}

// NewOfSize allocates a zero-filled buffer of the given length.
func NewOfSize(size int) *Buffer {
	return &Buffer{data: make([]byte, size), endian: BigEndian}
}

// SetEndian changes the endianness used by subsequent structured
// read/write calls.
func (b *Buffer) SetEndian(e Endianness) { b.endian = e }

// Endian reports the buffer's current endianness.
func (b *Buffer) Endian() Endianness { return b.endian }

// SetName sets the buffer's display name (used only for diagnostics).
func (b *Buffer) SetName(name string) { b.name = name }

// Name returns the buffer's display name.
func (b *Buffer) Name() string { return b.name }

// SetFileType sets the buffer's file-type tag, consulted by the header
// policy in pkg/patcher to match a ROM extension to a header table entry.
func (b *Buffer) SetFileType(ft string) { b.fileType = ft }

// FileType returns the buffer's file-type tag.
func (b *Buffer) FileType() string { return b.fileType }

// Bytes returns the buffer's underlying byte slice. Mutating it bypasses
// the cursor and bounds checks; prefer the structured accessors.
func (b *Buffer) Bytes() []byte { return b.data }

// FileSize returns the total length of the buffer.
func (b *Buffer) FileSize() int { return len(b.data) }

// Cursor returns the current cursor position.
func (b *Buffer) Cursor() int { return b.cursor }

// Seek moves the cursor to an absolute position. It does not validate the
// position against FileSize; out-of-range cursors simply fail the next
// structured access.
func (b *Buffer) Seek(pos int) { b.cursor = pos }

// Skip advances the cursor by n bytes (n may be negative).
func (b *Buffer) Skip(n int) { b.cursor += n }

// IsEOF reports whether the cursor has reached the end of the buffer.
func (b *Buffer) IsEOF() bool { return b.cursor >= len(b.data) }

// PushCursor saves the current cursor position on an internal stack.
func (b *Buffer) PushCursor() { b.stack = append(b.stack, b.cursor) }

// PopCursor restores the most recently pushed cursor position. It is a
// no-op if the stack is empty.
func (b *Buffer) PopCursor() {
	if len(b.stack) == 0 {
		return
	}
	n := len(b.stack) - 1
	b.cursor = b.stack[n]
	b.stack = b.stack[:n]
}

func (b *Buffer) checkRange(offset, width int) error {
	if offset < 0 || width < 0 {
		return common.NewError(common.KindOutOfBounds, "negative offset or width")
	}
	if offset+width > len(b.data) {
		return common.NewError(common.KindEndOfFile, "access past end of buffer")
	}
	return nil
}

// readWidth reads width bytes at the cursor honoring the buffer's
// endianness, without advancing the cursor on failure.
func (b *Buffer) readWidth(width int) (uint32, error) {
	if err := b.checkRange(b.cursor, width); err != nil {
		return 0, err
	}
	var v uint32
	if b.endian == BigEndian {
		for i := 0; i < width; i++ {
			v = (v << 8) | uint32(b.data[b.cursor+i])
		}
	} else {
		for i := width - 1; i >= 0; i-- {
			v = (v << 8) | uint32(b.data[b.cursor+i])
		}
	}
	b.cursor += width
	return v, nil
}

// ReadU8 reads a single byte and advances the cursor.
func (b *Buffer) ReadU8() (uint8, error) {
	v, err := b.readWidth(1)
	return uint8(v), err
}

// ReadU16 reads a 16-bit unsigned integer honoring the buffer's
// endianness.
func (b *Buffer) ReadU16() (uint16, error) {
	v, err := b.readWidth(2)
	return uint16(v), err
}

// ReadU24 reads a 24-bit unsigned integer honoring the buffer's
// endianness.
func (b *Buffer) ReadU24() (uint32, error) {
	return b.readWidth(3)
}

// ReadU32 reads a 32-bit unsigned integer honoring the buffer's
// endianness.
func (b *Buffer) ReadU32() (uint32, error) {
	return b.readWidth(4)
}

func (b *Buffer) writeWidth(v uint32, width int) error {
	if err := b.checkRange(b.cursor, width); err != nil {
		return err
	}
	if b.endian == BigEndian {
		for i := width - 1; i >= 0; i-- {
			b.data[b.cursor+i] = byte(v)
			v >>= 8
		}
	} else {
		for i := 0; i < width; i++ {
			b.data[b.cursor+i] = byte(v)
			v >>= 8
		}
	}
	b.cursor += width
	return nil
}

// WriteU8 writes a single byte and advances the cursor.
func (b *Buffer) WriteU8(v uint8) error { return b.writeWidth(uint32(v), 1) }

// WriteU16 writes a 16-bit unsigned integer honoring the buffer's
// endianness.
func (b *Buffer) WriteU16(v uint16) error { return b.writeWidth(uint32(v), 2) }

// WriteU24 writes a 24-bit unsigned integer honoring the buffer's
// endianness. Only the low 24 bits of v are written; any higher bits are
// silently dropped.
func (b *Buffer) WriteU24(v uint32) error { return b.writeWidth(v, 3) }

// WriteU32 writes a 32-bit unsigned integer honoring the buffer's
// endianness.
func (b *Buffer) WriteU32(v uint32) error { return b.writeWidth(v, 4) }

// WriteBytes copies data verbatim at the cursor and advances by len(data).
func (b *Buffer) WriteBytes(data []byte) error {
	if err := b.checkRange(b.cursor, len(data)); err != nil {
		return err
	}
	copy(b.data[b.cursor:], data)
	b.cursor += len(data)
	return nil
}

// WriteString writes s as ASCII bytes. When length is non-negative it pads
// with zero bytes (or truncates s) to exactly that many bytes; when
// negative it writes len(s) bytes.
func (b *Buffer) WriteString(s string, length int) error {
	if length < 0 {
		length = len(s)
	}
	if err := b.checkRange(b.cursor, length); err != nil {
		return err
	}
	n := copy(b.data[b.cursor:b.cursor+length], s)
	for i := n; i < length; i++ {
		b.data[b.cursor+i] = 0
	}
	b.cursor += length
	return nil
}

// ReadBytes reads n raw bytes and advances the cursor by n.
func (b *Buffer) ReadBytes(n int) ([]byte, error) {
	if err := b.checkRange(b.cursor, n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b.data[b.cursor:b.cursor+n])
	b.cursor += n
	return out, nil
}

// ReadString reads n bytes as ASCII, truncating the returned string at the
// first zero byte. The cursor still advances by the full n regardless of
// where the truncation happened.
func (b *Buffer) ReadString(n int) (string, error) {
	raw, err := b.ReadBytes(n)
	if err != nil {
		return "", err
	}
	for i, c := range raw {
		if c == 0 {
			return string(raw[:i]), nil
		}
	}
	return string(raw), nil
}

// Slice allocates a freshly-owned buffer containing
// data[offset : offset+length]. When length is negative it extends to the
// end of the source. The new buffer inherits the source's endianness but
// not its name.
func (b *Buffer) Slice(offset, length int) (*Buffer, error) {
	if length < 0 {
		length = len(b.data) - offset
	}
	if err := b.checkRange(offset, length); err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, b.data[offset:offset+length])
	return &Buffer{data: out, endian: b.endian}, nil
}

// CopyTo copies length bytes from this buffer starting at srcOff into
// target starting at tgtOff. The two buffers are assumed distinct; no
// overlap handling is performed.
func (b *Buffer) CopyTo(target *Buffer, srcOff, length, tgtOff int) error {
	if err := b.checkRange(srcOff, length); err != nil {
		return err
	}
	if err := target.checkRange(tgtOff, length); err != nil {
		return err
	}
	copy(target.data[tgtOff:tgtOff+length], b.data[srcOff:srcOff+length])
	return nil
}

func (b *Buffer) hashRange(start, length int) (int, int) {
	if length < 0 {
		length = len(b.data) - start
	}
	return start, length
}

// CRC32 hashes data[start : start+length] (length<0 means "to the end").
func (b *Buffer) CRC32(start, length int) uint32 {
	s, l := b.hashRange(start, length)
	return hashkit.CRC32(b.data, s, l)
}

// Adler32 hashes data[start : start+length] (length<0 means "to the end").
func (b *Buffer) Adler32(start, length int) uint32 {
	s, l := b.hashRange(start, length)
	return hashkit.Adler32(b.data, s, l)
}

// CRC16 hashes data[start : start+length] (length<0 means "to the end").
func (b *Buffer) CRC16(start, length int) uint16 {
	s, l := b.hashRange(start, length)
	return hashkit.CRC16(b.data, s, l)
}

// SHA1 hashes data[start : start+length] (length<0 means "to the end").
func (b *Buffer) SHA1(start, length int) [20]byte {
	s, l := b.hashRange(start, length)
	return hashkit.SHA1(b.data, s, l)
}

// MD5 hashes data[start : start+length] (length<0 means "to the end").
func (b *Buffer) MD5(start, length int) [16]byte {
	s, l := b.hashRange(start, length)
	return hashkit.MD5(b.data, s, l)
}
