package checksum

// Weak returns the 32-bit rolling checksum of p: s1 is the sum of the bytes,
// s2 the sum of the running s1 values, packed as s1 in the low half and s2 in
// the high half.
func Weak(p []byte) uint32 {
	r := NewRolling(p)
	return r.Sum()
}

// Rolling is the weak checksum of a window that can slide one byte at a time
// in constant time.
type Rolling struct {
	s1 uint32
	s2 uint32
	k  int
}

// NewRolling computes the checksum of window from scratch.
func NewRolling(window []byte) Rolling {
	var s1, s2 uint32
	for _, b := range window {
		s1 += uint32(b)
		s2 += s1
	}
	return Rolling{s1: s1, s2: s2, k: len(window)}
}

// Sum returns the packed 32-bit checksum of the current window.
func (r *Rolling) Sum() uint32 {
	return r.s1&0xFFFF | r.s2<<16
}

// Tag returns the 16-bit fold of the checksum, (s1 + s2) mod 2^16.
func (r *Rolling) Tag() uint16 {
	return uint16(r.s1 + r.s2) //nolint:gosec // G115: truncation is the fold
}

// Roll drops out from the front of the window and appends in at the back.
// The window length is unchanged.
func (r *Rolling) Roll(out, in byte) {
	r.s1 += uint32(in) - uint32(out)
	r.s2 += r.s1 - uint32(r.k)*uint32(out) //nolint:gosec // G115: window length fits in 32 bits
}

// Shrink drops out from the front of the window without appending, used when
// the window reaches the end of the data.
func (r *Rolling) Shrink(out byte) {
	r.s1 -= uint32(out)
	r.s2 -= uint32(r.k) * uint32(out) //nolint:gosec // G115: window length fits in 32 bits
	r.k--
}
