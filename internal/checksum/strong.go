package checksum

import (
	"fmt"

	"github.com/zeebo/blake3"
)

// StrongSize is the length of a strong block checksum in bytes.
const StrongSize = 16

// Strong is a block's strong checksum: the first 16 bytes of a keyed BLAKE3
// digest. It only confirms weak checksum candidates; collision probability is
// what matters, not preimage resistance.
type Strong [StrongSize]byte

// strongKey is fixed for the protocol so both ends agree without a handshake.
var strongKey = blake3.Sum256([]byte("deltasync block checksum v1"))

// StrongHasher computes strong checksums, reusing one keyed hasher.
// It is not safe for concurrent use.
type StrongHasher struct {
	h       *blake3.Hasher
	scratch [32]byte
}

// NewStrongHasher returns a hasher keyed with the protocol key.
func NewStrongHasher() *StrongHasher {
	h, err := blake3.NewKeyed(strongKey[:])
	if err != nil {
		// Only possible with a key that is not 32 bytes.
		panic(fmt.Sprintf("blake3 keyed hasher: %v", err))
	}
	return &StrongHasher{h: h}
}

// Sum returns the strong checksum of p.
func (s *StrongHasher) Sum(p []byte) Strong {
	s.h.Reset()
	_, _ = s.h.Write(p) //nolint:errcheck // blake3.Hasher.Write never fails
	var out Strong
	copy(out[:], s.h.Sum(s.scratch[:0]))
	return out
}

// StrongSum is a convenience for one-off strong checksums.
func StrongSum(p []byte) Strong {
	return NewStrongHasher().Sum(p)
}
