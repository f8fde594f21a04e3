// Package checksum generates and transports the per-block checksum list that
// describes a basis file: a weak rolling checksum and a strong digest for each
// fixed-size block.
package checksum

import (
	"errors"
	"fmt"
	"math"
)

const (
	// DefaultBlockLength is the block length used unless overridden.
	DefaultBlockLength = 700

	minAutoBlockLength = DefaultBlockLength
	maxAutoBlockLength = 128 * 1024
)

var (
	// ErrInvalidBlockLength is returned for a block length that is not positive.
	ErrInvalidBlockLength = errors.New("block length must be positive")

	// ErrBadHeader is returned when a received list header violates the
	// count/block length/remainder invariants.
	ErrBadHeader = errors.New("invalid checksum list header")
)

// Entry describes one block of a basis file.
type Entry struct {
	Offset int64
	Length int
	Index  int
	Weak   uint32
	Strong Strong
}

// List is the ordered checksum list of a basis file. Every entry has length
// BlockLength except the last, which has length Remainder when that is
// non-zero.
type List struct {
	Entries     []Entry
	TotalLength int64
	BlockLength int
	Remainder   int
}

// Header is the part of a List sent ahead of the entries. Entry offsets,
// lengths and indices are derived from it positionally.
type Header struct {
	Count       int
	BlockLength int
	Remainder   int
}

// Count returns the number of blocks.
func (l *List) Count() int { return len(l.Entries) }

// Header returns the list's header.
func (l *List) Header() Header {
	return Header{Count: len(l.Entries), BlockLength: l.BlockLength, Remainder: l.Remainder}
}

// Empty returns a list with no blocks. A receiver sends it when it has no
// basis file, so every byte of the new file travels as a literal.
func Empty(blockLength int) *List {
	return &List{BlockLength: blockLength}
}

// Generate splits buf into blocks of blockLength bytes, the last possibly
// shorter, and checksums each one. A zero-length buf yields an empty list.
func Generate(buf []byte, blockLength int) (*List, error) {
	if blockLength <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBlockLength, blockLength)
	}

	count := (len(buf) + blockLength - 1) / blockLength
	l := &List{
		Entries:     make([]Entry, 0, count),
		TotalLength: int64(len(buf)),
		BlockLength: blockLength,
		Remainder:   len(buf) % blockLength,
	}

	h := NewStrongHasher()
	for offset, i := 0, 0; offset < len(buf); i++ {
		n := min(blockLength, len(buf)-offset)
		block := buf[offset : offset+n]
		l.Entries = append(l.Entries, Entry{
			Offset: int64(offset),
			Length: n,
			Index:  i,
			Weak:   Weak(block),
			Strong: h.Sum(block),
		})
		offset += n
	}
	return l, nil
}

// ChooseBlockLength picks a block length for a file of the given size:
// sqrt(size) clamped to [700, 128 KiB].
func ChooseBlockLength(size int64) int {
	bs := int(math.Sqrt(float64(size)))
	if bs < minAutoBlockLength {
		bs = minAutoBlockLength
	}
	if bs > maxAutoBlockLength {
		bs = maxAutoBlockLength
	}
	return bs
}

// Validate checks the header invariants.
func (h Header) Validate() error {
	switch {
	case h.Count < 0:
		return fmt.Errorf("%w: negative count %d", ErrBadHeader, h.Count)
	case h.Count == 0 && h.Remainder != 0:
		return fmt.Errorf("%w: remainder %d without blocks", ErrBadHeader, h.Remainder)
	case h.Count > 0 && h.BlockLength <= 0:
		return fmt.Errorf("%w: block length %d", ErrBadHeader, h.BlockLength)
	case h.Count > 0 && (h.Remainder < 0 || h.Remainder >= h.BlockLength):
		return fmt.Errorf("%w: remainder %d with block length %d", ErrBadHeader, h.Remainder, h.BlockLength)
	}
	return nil
}

// TotalLength returns the length of the file the header describes.
func (h Header) TotalLength() int64 {
	if h.Count == 0 {
		return 0
	}
	full := int64(h.Count) * int64(h.BlockLength)
	if h.Remainder == 0 {
		return full
	}
	return full - int64(h.BlockLength) + int64(h.Remainder)
}

// BlockLengthAt returns the length of block i.
func (h Header) BlockLengthAt(i int) int {
	if i == h.Count-1 && h.Remainder != 0 {
		return h.Remainder
	}
	return h.BlockLength
}

// Layout returns a list whose entries carry offsets, lengths and indices but
// no checksums. It is what a reconstructor needs to resolve block references.
func (h Header) Layout() *List {
	l := &List{
		Entries:     make([]Entry, h.Count),
		TotalLength: h.TotalLength(),
		BlockLength: h.BlockLength,
		Remainder:   h.Remainder,
	}
	var offset int64
	for i := range l.Entries {
		n := h.BlockLengthAt(i)
		l.Entries[i] = Entry{Offset: offset, Length: n, Index: i}
		offset += int64(n)
	}
	return l
}
