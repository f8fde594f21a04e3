package checksum

import (
	"fmt"
	"math"

	"github.com/bamsammich/deltasync/internal/wire"
)

// entryAllocHint bounds the up-front allocation for a received list so a
// corrupt count fails with a short read instead of a huge allocation.
const entryAllocHint = 4096

// WriteHeader writes count, block length and remainder.
func WriteHeader(w *wire.Writer, h Header) error {
	if h.Count > math.MaxInt32 || h.BlockLength > math.MaxInt32 {
		return fmt.Errorf("%w: count %d block length %d do not fit the wire", ErrBadHeader, h.Count, h.BlockLength)
	}
	for _, v := range [...]int{h.Count, h.BlockLength, h.Remainder} {
		if err := w.WriteInt(int32(v)); err != nil { //nolint:gosec // G115: bounded above
			return err
		}
	}
	return nil
}

// ReadHeader reads and validates a header.
func ReadHeader(r *wire.Reader) (Header, error) {
	var vals [3]int32
	for i := range vals {
		v, err := r.ReadInt()
		if err != nil {
			return Header{}, fmt.Errorf("read checksum header: %w", err)
		}
		vals[i] = v
	}
	h := Header{Count: int(vals[0]), BlockLength: int(vals[1]), Remainder: int(vals[2])}
	if err := h.Validate(); err != nil {
		return Header{}, err
	}
	return h, nil
}

// WriteList sends a checksum list: the header, then the weak and strong
// checksum of every entry, then a flush.
func WriteList(w *wire.Writer, l *List) error {
	if err := WriteHeader(w, l.Header()); err != nil {
		return fmt.Errorf("write checksum header: %w", err)
	}
	for i := range l.Entries {
		e := &l.Entries[i]
		if err := w.WriteInt(int32(e.Weak)); err != nil { //nolint:gosec // G115: bit pattern is the value
			return fmt.Errorf("write block %d: %w", i, err)
		}
		if err := w.WriteBuf(e.Strong[:]); err != nil {
			return fmt.Errorf("write block %d: %w", i, err)
		}
	}
	return w.Flush()
}

// WriteEmptyList sends a list with no blocks.
func WriteEmptyList(w *wire.Writer, blockLength int) error {
	return WriteList(w, Empty(blockLength))
}

// ReadList receives a checksum list written by WriteList. Offsets, lengths
// and indices are derived from the entry positions.
func ReadList(r *wire.Reader) (*List, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}

	l := &List{
		Entries:     make([]Entry, 0, min(h.Count, entryAllocHint)),
		TotalLength: h.TotalLength(),
		BlockLength: h.BlockLength,
		Remainder:   h.Remainder,
	}
	var offset int64
	for i := range h.Count {
		e := Entry{Offset: offset, Length: h.BlockLengthAt(i), Index: i}
		weak, err := r.ReadInt()
		if err != nil {
			return nil, fmt.Errorf("read block %d: %w", i, err)
		}
		e.Weak = uint32(weak) //nolint:gosec // G115: bit pattern is the value
		if err := r.ReadBuf(e.Strong[:]); err != nil {
			return nil, fmt.Errorf("read block %d: %w", i, err)
		}
		l.Entries = append(l.Entries, e)
		offset += int64(e.Length)
	}
	return l, nil
}
