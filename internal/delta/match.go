package delta

import (
	"fmt"

	"github.com/bamsammich/deltasync/internal/checksum"
)

// MatchStats counts what happened during one matching pass.
type MatchStats struct {
	TagHits      int
	FalseAlarms  int
	Matches      int
	LiteralBytes int64
	MatchedBytes int64
}

// Matcher finds the blocks of one checksum list inside new data. All state of
// a pass lives here; a Matcher must not be shared between goroutines.
type Matcher struct {
	sums      *checksum.List
	index     *Index
	strong    *checksum.StrongHasher
	lastMatch int
	stats     MatchStats
}

// NewMatcher indexes sums for matching.
func NewMatcher(sums *checksum.List) *Matcher {
	m := &Matcher{sums: sums, strong: checksum.NewStrongHasher()}
	if sums.Count() > 0 {
		m.index = BuildIndex(sums)
	}
	return m
}

// Match slides a window over data and writes the instruction stream that
// turns the basis into data to sink, ending with End. Every byte of data is
// covered exactly once, by a literal or by a copied block.
func (m *Matcher) Match(data []byte, sink Sink) (MatchStats, error) {
	m.lastMatch = 0
	m.stats = MatchStats{}

	if err := m.sums.Header().Validate(); err != nil {
		return m.stats, err
	}

	if len(data) > 0 && m.sums.Count() > 0 {
		if err := m.search(data, sink); err != nil {
			return m.stats, err
		}
	}

	if _, err := m.literal(data, len(data), sink); err != nil {
		return m.stats, err
	}
	if err := sink.End(); err != nil {
		return m.stats, fmt.Errorf("end instruction stream: %w", err)
	}
	return m.stats, nil
}

//nolint:revive // cognitive-complexity: rolling search with candidate verification
func (m *Matcher) search(data []byte, sink Sink) error {
	n := m.sums.BlockLength
	entries := m.sums.Entries
	// A window can only match while the shortest block (the last) still fits.
	last := len(data) - entries[len(entries)-1].Length

	k := min(n, len(data))
	roll := checksum.NewRolling(data[:k])

	for offset := 0; offset <= last; offset++ {
		tag := roll.Tag()
		if _, ok := m.index.Lookup(tag); ok {
			m.stats.TagHits++
			weak := roll.Sum()

			var (
				hit        *checksum.Entry
				strong     checksum.Strong
				haveStrong bool
			)
			m.index.Candidates(tag, func(i int) bool {
				e := &entries[i]
				if e.Weak != weak || e.Length != k {
					return true
				}
				if !haveStrong {
					strong = m.strong.Sum(data[offset : offset+k])
					haveStrong = true
				}
				if strong != e.Strong {
					m.stats.FalseAlarms++
					return true
				}
				hit = e
				return false
			})

			if hit != nil {
				if err := m.matched(data, offset, hit, sink); err != nil {
					return err
				}
				// Park the window on the block's last byte; the slide below
				// moves it to the first byte after the block.
				offset += hit.Length - 1
				k = min(n, len(data)-offset)
				roll = checksum.NewRolling(data[offset : offset+k])
			}
		}

		if offset+k < len(data) {
			roll.Roll(data[offset], data[offset+k])
		} else {
			roll.Shrink(data[offset])
			k--
		}
	}
	return nil
}

// matched emits the literal run ahead of a confirmed match, then the copy.
func (m *Matcher) matched(data []byte, offset int, e *checksum.Entry, sink Sink) error {
	emitted, err := m.literal(data, offset, sink)
	if err != nil {
		return err
	}
	if err := sink.CopyBlock(e.Index); err != nil {
		return fmt.Errorf("emit block %d: %w", e.Index, err)
	}
	m.lastMatch = offset + e.Length
	m.stats.Matches++
	m.stats.MatchedBytes += int64(e.Length)
	if emitted {
		if err := sink.Flush(); err != nil {
			return fmt.Errorf("flush: %w", err)
		}
	}
	return nil
}

// literal emits data[lastMatch:end] if it is not empty.
func (m *Matcher) literal(data []byte, end int, sink Sink) (bool, error) {
	n := end - m.lastMatch
	if n <= 0 {
		return false, nil
	}
	if err := sink.Literal(data[m.lastMatch:end]); err != nil {
		return false, fmt.Errorf("emit literal of %d bytes: %w", n, err)
	}
	m.stats.LiteralBytes += int64(n)
	return true, nil
}

// Match is a convenience for a single pass: index sums and match data.
func Match(data []byte, sums *checksum.List, sink Sink) (MatchStats, error) {
	return NewMatcher(sums).Match(data, sink)
}
