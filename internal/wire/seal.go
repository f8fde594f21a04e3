package wire

import (
	"errors"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
)

// TrailerSize is the size of the xxHash64 trailer appended to sealed files.
const TrailerSize = 8

// ErrCorrupt is returned when a sealed file's trailer does not match its body.
var ErrCorrupt = errors.New("sealed file is corrupt")

// SealWriter passes writes through to w while hashing them, so that a
// signature or delta stored on disk can be checked before it is applied.
type SealWriter struct {
	w      io.Writer
	digest *xxhash.Digest
}

// NewSealWriter returns a SealWriter writing to w.
func NewSealWriter(w io.Writer) *SealWriter {
	return &SealWriter{w: w, digest: xxhash.New()}
}

func (s *SealWriter) Write(p []byte) (int, error) {
	n, err := s.w.Write(p)
	_, _ = s.digest.Write(p[:n]) //nolint:errcheck // xxhash.Digest.Write never fails
	return n, err
}

// Seal appends the trailer. Nothing may be written afterwards.
func (s *SealWriter) Seal() error {
	var trailer [TrailerSize]byte
	ByteOrder.PutUint64(trailer[:], s.digest.Sum64())
	if _, err := s.w.Write(trailer[:]); err != nil {
		return fmt.Errorf("write trailer: %w", err)
	}
	return nil
}

// OpenSealed verifies the trailer of a sealed file of the given size and
// returns a reader over its body.
func OpenSealed(r io.ReaderAt, size int64) (*io.SectionReader, error) {
	if size < TrailerSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the trailer", ErrCorrupt, size)
	}
	bodySize := size - TrailerSize

	var trailer [TrailerSize]byte
	if _, err := r.ReadAt(trailer[:], bodySize); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read trailer: %w", err)
	}

	d := xxhash.New()
	if _, err := io.Copy(d, io.NewSectionReader(r, 0, bodySize)); err != nil {
		return nil, fmt.Errorf("hash body: %w", err)
	}
	if d.Sum64() != ByteOrder.Uint64(trailer[:]) {
		return nil, ErrCorrupt
	}
	return io.NewSectionReader(r, 0, bodySize), nil
}
