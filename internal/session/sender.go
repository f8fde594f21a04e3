package session

import (
	"context"
	"fmt"
	"io"

	"github.com/bamsammich/deltasync/internal/checksum"
	"github.com/bamsammich/deltasync/internal/delta"
	"github.com/bamsammich/deltasync/internal/event"
	"github.com/bamsammich/deltasync/internal/platform"
	"github.com/bamsammich/deltasync/internal/stats"
	"github.com/bamsammich/deltasync/internal/wire"
)

// SenderConfig configures the sending role.
type SenderConfig struct {
	Options

	// Sources are the new versions of the files, addressed by file index.
	Sources []string

	// BWLimit caps the bytes per second written to the stream. Zero means
	// unlimited.
	BWLimit int64
}

// Sender answers checksum lists with instruction streams.
type Sender struct {
	cfg SenderConfig
}

// NewSender returns a Sender for cfg.
func NewSender(cfg SenderConfig) *Sender {
	cfg.stats()
	return &Sender{cfg: cfg}
}

// Stats returns the sender's collector.
func (s *Sender) Stats() *stats.Collector { return s.cfg.Stats }

// Run serves one session on conn and returns the report it sent. If conn is
// an io.Closer it is closed when ctx is canceled.
func (s *Sender) Run(ctx context.Context, conn io.ReadWriter) (stats.Report, error) {
	if c, ok := conn.(io.Closer); ok {
		stop := context.AfterFunc(ctx, func() { _ = c.Close() }) //nolint:errcheck // unblock only
		defer stop()
	}

	var out io.Writer = conn
	if s.cfg.BWLimit > 0 {
		out = wire.NewRateLimitedWriter(ctx, conn, wire.NewBWLimiter(s.cfg.BWLimit))
	}
	r := wire.NewReader(conn)
	w := wire.NewWriter(out)
	log := s.cfg.logger()

	event.Emit(ctx, s.cfg.Events, event.Event{Type: event.SessionStarted, Size: int64(len(s.cfg.Sources))})

	prev := -1
	for {
		v, err := r.ReadInt()
		if err != nil {
			return stats.Report{}, abort(ctx, fmt.Errorf("read file index: %w", err))
		}
		if v == endOfFiles {
			break
		}
		idx := int(v)
		if idx < 0 || idx >= len(s.cfg.Sources) || idx <= prev {
			return stats.Report{}, abort(ctx,
				fmt.Errorf("%w: %d (previous %d, %d files)", ErrBadFileIndex, idx, prev, len(s.cfg.Sources)))
		}
		prev = idx

		if err := s.sendFile(ctx, r, w, idx); err != nil {
			event.Emit(ctx, s.cfg.Events, event.Event{
				Type: event.FileFailed, Path: s.cfg.Sources[idx], Index: idx, Error: err,
			})
			return stats.Report{}, abort(ctx, err)
		}
	}

	if err := w.WriteInt(endOfFiles); err != nil {
		return stats.Report{}, abort(ctx, err)
	}

	// The report covers everything before it.
	c := s.cfg.Stats
	c.AddBytesRead(r.BytesRead())
	c.AddBytesWritten(w.Written())
	report := c.Snapshot().Report()
	for _, v := range [...]int64{report.BytesRead, report.BytesWritten, report.TotalSize} {
		if err := w.WriteLong(v); err != nil {
			return stats.Report{}, abort(ctx, fmt.Errorf("write report: %w", err))
		}
	}
	if err := w.Flush(); err != nil {
		return stats.Report{}, abort(ctx, fmt.Errorf("write report: %w", err))
	}

	log.Debug("sender finished",
		"bytes_read", report.BytesRead,
		"bytes_written", report.BytesWritten,
		"total_size", report.TotalSize,
	)
	event.Emit(ctx, s.cfg.Events, event.Event{Type: event.SessionComplete, Size: report.TotalSize})
	return report, nil
}

func (s *Sender) sendFile(ctx context.Context, r *wire.Reader, w *wire.Writer, idx int) error {
	path := s.cfg.Sources[idx]
	log := s.cfg.logger().With("path", path, "index", idx)

	sums, err := checksum.ReadList(r)
	if err != nil {
		return fmt.Errorf("read checksums for %s: %w", path, err)
	}

	event.Emit(ctx, s.cfg.Events, event.Event{
		Type: event.FileStarted, Path: path, Index: idx, Blocks: sums.Count(),
	})

	m, err := platform.Map(path)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer m.Close()

	if err := w.WriteInt(int32(idx)); err != nil { //nolint:gosec // G115: read from an int32 field
		return err
	}
	if err := checksum.WriteHeader(w, sums.Header()); err != nil {
		return err
	}
	st, err := delta.NewMatcher(sums).Match(m.Data(), delta.NewEncoder(w))
	if err != nil {
		return fmt.Errorf("match %s: %w", path, err)
	}

	c := s.cfg.Stats
	c.AddTotalSize(int64(m.Len()))
	c.AddLiteralBytes(st.LiteralBytes)
	c.AddMatchedBytes(st.MatchedBytes)
	c.AddMatchedBlocks(int64(st.Matches))
	c.AddTagHits(int64(st.TagHits))
	c.AddFalseAlarms(int64(st.FalseAlarms))

	log.Debug("matched",
		"size", m.Len(),
		"blocks", sums.Count(),
		"block_length", sums.BlockLength,
		"matches", st.Matches,
		"literal_bytes", st.LiteralBytes,
		"tag_hits", st.TagHits,
		"false_alarms", st.FalseAlarms,
	)
	event.Emit(ctx, s.cfg.Events, event.Event{
		Type:    event.FileMatched,
		Path:    path,
		Index:   idx,
		Size:    int64(m.Len()),
		Blocks:  st.Matches,
		Literal: st.LiteralBytes,
	})
	return nil
}
