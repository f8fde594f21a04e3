// Package wire implements the fixed-width integer and raw buffer framing used
// on a deltasync stream. Every integer is a 4-byte little-endian field; buffers
// are written raw with their length communicated separately.
package wire

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
)

// IntSize is the width of an integer field on the wire.
const IntSize = 4

// ByteOrder is the byte order of every integer on the wire.
var ByteOrder = binary.LittleEndian

// ErrShortRead is returned when the stream ends before the requested number of
// bytes arrived. It is a fatal transport fault; the session cannot continue.
var ErrShortRead = errors.New("short read")

// Writer encodes integers and buffers onto a byte stream.
type Writer struct {
	w       *bufio.Writer
	written atomic.Int64
	scratch [8]byte
}

// NewWriter wraps w. Output is buffered until Flush.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriterSize(w, 64*1024)}
}

// WriteInt writes x as a 4-byte field.
func (w *Writer) WriteInt(x int32) error {
	ByteOrder.PutUint32(w.scratch[:IntSize], uint32(x)) //nolint:gosec // G115: two's complement reinterpretation
	if _, err := w.w.Write(w.scratch[:IntSize]); err != nil {
		return fmt.Errorf("write int: %w", err)
	}
	w.written.Add(IntSize)
	return nil
}

// WriteLong writes x as two 4-byte fields, low half first.
func (w *Writer) WriteLong(x int64) error {
	ByteOrder.PutUint64(w.scratch[:], uint64(x)) //nolint:gosec // G115: two's complement reinterpretation
	if _, err := w.w.Write(w.scratch[:]); err != nil {
		return fmt.Errorf("write long: %w", err)
	}
	w.written.Add(8)
	return nil
}

// WriteBuf writes p verbatim.
func (w *Writer) WriteBuf(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if _, err := w.w.Write(p); err != nil {
		return fmt.Errorf("write buf: %w", err)
	}
	w.written.Add(int64(len(p)))
	return nil
}

// Flush pushes buffered bytes to the underlying stream.
func (w *Writer) Flush() error {
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// Written returns the number of bytes handed to the writer so far.
func (w *Writer) Written() int64 { return w.written.Load() }

// Reader decodes integers and buffers from a byte stream.
type Reader struct {
	r       io.Reader
	read    atomic.Int64
	scratch [8]byte
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// ReadInt reads one 4-byte field.
func (r *Reader) ReadInt() (int32, error) {
	if err := r.fill(r.scratch[:IntSize]); err != nil {
		return 0, fmt.Errorf("read int: %w", err)
	}
	return int32(ByteOrder.Uint32(r.scratch[:IntSize])), nil //nolint:gosec // G115: two's complement reinterpretation
}

// ReadLong reads a value written by WriteLong.
func (r *Reader) ReadLong() (int64, error) {
	if err := r.fill(r.scratch[:]); err != nil {
		return 0, fmt.Errorf("read long: %w", err)
	}
	return int64(ByteOrder.Uint64(r.scratch[:])), nil //nolint:gosec // G115: two's complement reinterpretation
}

// ReadBuf fills p completely from the stream.
func (r *Reader) ReadBuf(p []byte) error {
	if err := r.fill(p); err != nil {
		return fmt.Errorf("read buf: %w", err)
	}
	return nil
}

// BytesRead returns the number of bytes consumed so far.
func (r *Reader) BytesRead() int64 { return r.read.Load() }

func (r *Reader) fill(p []byte) error {
	n, err := io.ReadFull(r.r, p)
	r.read.Add(int64(n))
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: got %d of %d bytes", ErrShortRead, n, len(p))
	}
	return fmt.Errorf("%w: got %d of %d bytes: %w", ErrShortRead, n, len(p), err)
}
