package delta

import (
	"errors"
	"fmt"
	"io"

	"github.com/bamsammich/deltasync/internal/checksum"
)

var (
	// ErrBadBlockIndex is returned for a copy of a block the checksum list
	// does not contain.
	ErrBadBlockIndex = errors.New("block index out of range")

	// ErrBlockOutOfRange is returned when a referenced block extends past the
	// end of the basis bytes, i.e. the basis changed after it was checksummed.
	ErrBlockOutOfRange = errors.New("block extends past end of basis")
)

type flusher interface {
	Flush() error
}

// Reconstructor is a Sink that writes the new data: literals verbatim, and
// for each copy the basis bytes of the referenced block, using the block's
// recorded length so a short final block copies only its own bytes.
type Reconstructor struct {
	basis   []byte
	sums    *checksum.List
	w       io.Writer
	written int64
}

// NewReconstructor returns a Reconstructor resolving blocks of sums against
// basis and appending to w.
func NewReconstructor(basis []byte, sums *checksum.List, w io.Writer) *Reconstructor {
	return &Reconstructor{basis: basis, sums: sums, w: w}
}

func (r *Reconstructor) Literal(p []byte) error {
	return r.write(p)
}

func (r *Reconstructor) CopyBlock(index int) error {
	if index < 0 || index >= len(r.sums.Entries) {
		return fmt.Errorf("%w: %d of %d", ErrBadBlockIndex, index, len(r.sums.Entries))
	}
	e := r.sums.Entries[index]
	end := e.Offset + int64(e.Length)
	if e.Offset < 0 || end > int64(len(r.basis)) {
		return fmt.Errorf("%w: block %d ends at %d, basis is %d bytes",
			ErrBlockOutOfRange, index, end, len(r.basis))
	}
	return r.write(r.basis[e.Offset:end])
}

func (r *Reconstructor) Flush() error {
	if f, ok := r.w.(flusher); ok {
		return f.Flush()
	}
	return nil
}

func (r *Reconstructor) End() error {
	return r.Flush()
}

// Written returns the number of bytes reconstructed so far.
func (r *Reconstructor) Written() int64 { return r.written }

func (r *Reconstructor) write(p []byte) error {
	n, err := r.w.Write(p)
	r.written += int64(n)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
