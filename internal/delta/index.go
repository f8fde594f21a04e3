// Package delta finds the blocks of a basis file inside new data and encodes
// the new data as an instruction stream of block copies and literal runs, then
// reconstructs the new data from that stream and the basis.
package delta

import (
	"sort"

	"github.com/bamsammich/deltasync/internal/checksum"
)

// TableSize is the number of tag buckets.
const TableSize = 1 << 16

const absent = -1

// Tag folds a weak checksum to 16 bits for bucketing.
func Tag(weak uint32) uint16 {
	return uint16((weak >> 16) + (weak & 0xFFFF)) //nolint:gosec // G115: truncation is the fold
}

type target struct {
	tag   uint16
	index int
}

// Index buckets the entries of a checksum list by tag. It is built once per
// list and read-only afterwards.
type Index struct {
	table   []int32
	targets []target
}

// BuildIndex indexes every entry of l.
func BuildIndex(l *checksum.List) *Index {
	x := &Index{
		table:   make([]int32, TableSize),
		targets: make([]target, len(l.Entries)),
	}
	for i := range l.Entries {
		x.targets[i] = target{tag: Tag(l.Entries[i].Weak), index: i}
	}
	sort.SliceStable(x.targets, func(a, b int) bool {
		return x.targets[a].tag < x.targets[b].tag
	})

	for i := range x.table {
		x.table[i] = absent
	}
	// Walk backwards so each bucket ends up pointing at its lowest position.
	for i := len(x.targets) - 1; i >= 0; i-- {
		x.table[x.targets[i].tag] = int32(i) //nolint:gosec // G115: block count fits the wire's int32
	}
	return x
}

// Lookup returns the first position in the sorted target array with tag t.
func (x *Index) Lookup(t uint16) (int, bool) {
	pos := x.table[t]
	if pos == absent {
		return 0, false
	}
	return int(pos), true
}

// Candidates calls fn with the list index of every entry tagged t, in sorted
// order, until fn returns false.
func (x *Index) Candidates(t uint16, fn func(index int) bool) {
	pos, ok := x.Lookup(t)
	if !ok {
		return
	}
	for ; pos < len(x.targets) && x.targets[pos].tag == t; pos++ {
		if !fn(x.targets[pos].index) {
			return
		}
	}
}
