package units

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const autoBlockSize = "auto"

// BlockSize is a block length that is either fixed or chosen per file from
// the file's size. The zero value means auto. It implements pflag.Value.
type BlockSize struct {
	n int
}

// FixedBlockSize returns a BlockSize of n bytes.
func FixedBlockSize(n int) BlockSize { return BlockSize{n: n} }

// Auto reports whether the block length is chosen per file.
func (b BlockSize) Auto() bool { return b.n == 0 }

// Bytes returns the fixed block length, or 0 for auto.
func (b BlockSize) Bytes() int { return b.n }

// Resolve returns the block length for a file of the given size, calling
// choose when the length is not fixed.
func (b BlockSize) Resolve(size int64, choose func(int64) int) int {
	if b.Auto() {
		return choose(size)
	}
	return b.n
}

func (b *BlockSize) String() string {
	if b.Auto() {
		return autoBlockSize
	}
	return strconv.Itoa(b.n)
}

// Set parses "auto" or a positive size such as 700, 4K or 1M.
func (b *BlockSize) Set(s string) error {
	if strings.EqualFold(strings.TrimSpace(s), autoBlockSize) {
		b.n = 0
		return nil
	}
	n, err := ParseSize(s)
	if err != nil {
		return err
	}
	if n <= 0 || n > math.MaxInt32 {
		return fmt.Errorf("%w: block size %q out of range", ErrInvalidSize, s)
	}
	b.n = int(n)
	return nil
}

func (*BlockSize) Type() string { return "size" }
