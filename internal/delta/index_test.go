package delta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/deltasync/internal/checksum"
)

func TestTag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		weak uint32
		want uint16
	}{
		{0, 0},
		{0x00010002, 3},
		{0xFFFF0001, 0},
		{0xFFFFFFFF, 0xFFFE},
		{0x12345678, 0x68AC},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Tag(tt.weak), "weak=%08x", tt.weak)
	}
}

func listWithWeaks(weaks ...uint32) *checksum.List {
	l := &checksum.List{BlockLength: 4}
	for i, w := range weaks {
		l.Entries = append(l.Entries, checksum.Entry{Offset: int64(i * 4), Length: 4, Index: i, Weak: w})
	}
	l.TotalLength = int64(len(weaks) * 4)
	return l
}

func TestBuildIndexBuckets(t *testing.T) {
	t.Parallel()

	// Entries 0, 2 and 3 share tag 3; entry 1 has tag 7.
	l := listWithWeaks(0x00010002, 0x00000007, 0x00020001, 0x00000003)
	x := BuildIndex(l)
	require.Len(t, x.targets, 4)

	pos, ok := x.Lookup(3)
	require.True(t, ok)
	assert.Equal(t, 0, pos, "bucket must point at its lowest sorted position")

	pos, ok = x.Lookup(7)
	require.True(t, ok)
	assert.Equal(t, 3, pos)

	_, ok = x.Lookup(5)
	assert.False(t, ok)

	var got []int
	x.Candidates(3, func(i int) bool {
		got = append(got, i)
		return true
	})
	assert.Equal(t, []int{0, 2, 3}, got, "equal tags keep list order")
}

func TestCandidatesStopsEarly(t *testing.T) {
	t.Parallel()

	x := BuildIndex(listWithWeaks(3, 3, 3))
	var calls int
	x.Candidates(3, func(int) bool {
		calls++
		return false
	})
	assert.Equal(t, 1, calls)
}

func TestCandidatesAbsentTag(t *testing.T) {
	t.Parallel()

	x := BuildIndex(listWithWeaks(1))
	x.Candidates(99, func(int) bool {
		t.Fatal("no candidates expected")
		return true
	})
}

func TestBuildIndexEmpty(t *testing.T) {
	t.Parallel()

	x := BuildIndex(&checksum.List{BlockLength: 4})
	assert.Empty(t, x.targets)
	for _, tag := range []uint16{0, 1, 0xFFFF} {
		_, ok := x.Lookup(tag)
		assert.False(t, ok)
	}
}
