package delta

import (
	"fmt"
	"math"

	"github.com/bamsammich/deltasync/internal/wire"
)

// MaxLiteralChunk bounds the literal bytes Decode hands to a sink at once.
// Longer literals are delivered in several calls.
const MaxLiteralChunk = 256 * 1024

// Encoder writes an instruction stream to the wire: a positive int n followed
// by n literal bytes, -(k+1) for a copy of block k, and 0 at the end.
type Encoder struct {
	w *wire.Writer
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w *wire.Writer) *Encoder {
	return &Encoder{w: w}
}

func (e *Encoder) Literal(p []byte) error {
	for len(p) > 0 {
		n := min(len(p), math.MaxInt32)
		if err := e.w.WriteInt(int32(n)); err != nil { //nolint:gosec // G115: bounded above
			return err
		}
		if err := e.w.WriteBuf(p[:n]); err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

func (e *Encoder) CopyBlock(index int) error {
	if index < 0 || index >= math.MaxInt32 {
		return fmt.Errorf("%w: %d", ErrBadBlockIndex, index)
	}
	return e.w.WriteInt(int32(-(index + 1))) //nolint:gosec // G115: bounded above
}

func (e *Encoder) Flush() error { return e.w.Flush() }

func (e *Encoder) End() error {
	if err := e.w.WriteInt(0); err != nil {
		return err
	}
	return e.w.Flush()
}

// Decode reads one instruction stream from r up to and including its end
// marker and drives sink with it. Literal bytes are read straight from the
// stream in chunks of at most MaxLiteralChunk.
func Decode(r *wire.Reader, sink Sink) error {
	var buf []byte
	for {
		v, err := r.ReadInt()
		if err != nil {
			return fmt.Errorf("read instruction: %w", err)
		}

		switch {
		case v == 0:
			return sink.End()
		case v > 0:
			for remaining := int(v); remaining > 0; {
				n := min(remaining, MaxLiteralChunk)
				if cap(buf) < n {
					buf = make([]byte, n)
				}
				chunk := buf[:n]
				if err := r.ReadBuf(chunk); err != nil {
					return fmt.Errorf("read literal: %w", err)
				}
				if err := sink.Literal(chunk); err != nil {
					return err
				}
				remaining -= n
			}
		default:
			if err := sink.CopyBlock(int(-(int64(v) + 1))); err != nil {
				return err
			}
		}
	}
}
