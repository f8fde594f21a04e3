package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"sync"

	"github.com/bamsammich/deltasync/internal/checksum"
	"github.com/bamsammich/deltasync/internal/delta"
	"github.com/bamsammich/deltasync/internal/event"
	"github.com/bamsammich/deltasync/internal/platform"
	"github.com/bamsammich/deltasync/internal/stats"
	"github.com/bamsammich/deltasync/internal/units"
	"github.com/bamsammich/deltasync/internal/wire"
)

const (
	// pendingWindow bounds how many basis files the generator keeps mapped
	// ahead of the reconstructor.
	pendingWindow = 8

	// DefaultBackupSuffix is appended to a replaced file's name when backups
	// are enabled and no suffix is configured.
	DefaultBackupSuffix = "~"

	outputBufferSize = 256 * 1024
)

// ReceiverConfig configures the receiving role.
type ReceiverConfig struct {
	Options

	// Destinations are the files to bring up to date, addressed by file
	// index. A destination that does not exist yet is created.
	Destinations []string

	// BlockSize selects the checksum block length. The zero value picks one
	// per file from its size.
	BlockSize units.BlockSize

	// Backup keeps the replaced version of each file as name+BackupSuffix.
	Backup       bool
	BackupSuffix string
}

// Receiver generates checksum lists for its destinations and reconstructs
// them from the sender's instruction streams.
type Receiver struct {
	cfg ReceiverConfig
}

// NewReceiver returns a Receiver for cfg.
func NewReceiver(cfg ReceiverConfig) *Receiver {
	cfg.stats()
	if cfg.BackupSuffix == "" {
		cfg.BackupSuffix = DefaultBackupSuffix
	}
	return &Receiver{cfg: cfg}
}

// Stats returns the receiver's collector.
func (r *Receiver) Stats() *stats.Collector { return r.cfg.Stats }

// basisFile is a destination's current contents, mapped for the lifetime of
// its reconstruction, together with the list sent for it.
type basisFile struct {
	index   int
	path    string
	mapping *platform.Mapping // nil when the file does not exist
	mode    fs.FileMode
	sums    *checksum.List
}

func (b *basisFile) data() []byte {
	if b.mapping == nil {
		return nil
	}
	return b.mapping.Data()
}

func (b *basisFile) close() {
	if b.mapping != nil {
		_ = b.mapping.Close() //nolint:errcheck // read-only mapping
	}
}

// Run drives one session on conn and returns the sender's report. The
// generator and the reconstructor run concurrently; the first error closes
// conn so the other side unblocks.
func (r *Receiver) Run(ctx context.Context, conn io.ReadWriteCloser) (stats.Report, error) {
	f := &failer{closer: conn, done: make(chan struct{})}
	stop := context.AfterFunc(ctx, func() { f.fail(ctx.Err()) })
	defer stop()

	pending := make(chan *basisFile, pendingWindow)

	var (
		wg     sync.WaitGroup
		report stats.Report
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer close(pending)
		f.fail(r.generate(ctx, conn, pending, f.done))
	}()
	go func() {
		defer wg.Done()
		rep, err := r.reconstructAll(ctx, conn, pending)
		if err != nil {
			f.fail(err)
			return
		}
		report = rep
	}()
	wg.Wait()
	stop()

	for b := range pending {
		b.close()
	}
	if err := f.result(); err != nil {
		return stats.Report{}, abort(ctx, err)
	}
	event.Emit(ctx, r.cfg.Events, event.Event{Type: event.SessionComplete, Size: report.TotalSize})
	return report, nil
}

// generate sends the file index and checksum list of every destination,
// then the end marker. Each basis is handed to the reconstructor before its
// list goes out.
func (r *Receiver) generate(ctx context.Context, conn io.Writer, pending chan<- *basisFile, done <-chan struct{}) error {
	w := wire.NewWriter(conn)
	log := r.cfg.logger()

	if len(r.cfg.Destinations) > math.MaxInt32 {
		return fmt.Errorf("%w: %d files do not fit the wire", ErrBadFileIndex, len(r.cfg.Destinations))
	}

	for i, dst := range r.cfg.Destinations {
		b, err := r.openBasis(ctx, i, dst)
		if err != nil {
			return err
		}

		select {
		case pending <- b:
		case <-done:
			b.close()
			return nil
		}

		if err := w.WriteInt(int32(i)); err != nil { //nolint:gosec // G115: bounded above
			return err
		}
		if b.mapping == nil {
			err = checksum.WriteEmptyList(w, b.sums.BlockLength)
		} else {
			err = checksum.WriteList(w, b.sums)
		}
		if err != nil {
			return fmt.Errorf("send checksums for %s: %w", dst, err)
		}

		log.Debug("checksums sent",
			"path", dst,
			"index", i,
			"blocks", b.sums.Count(),
			"block_length", b.sums.BlockLength,
		)
		event.Emit(ctx, r.cfg.Events, event.Event{
			Type: event.SumsSent, Path: dst, Index: i, Size: b.sums.TotalLength, Blocks: b.sums.Count(),
		})
	}

	if err := w.WriteInt(endOfFiles); err != nil {
		return err
	}
	return w.Flush()
}

// openBasis maps dst and checksums it. A basis that is missing or cannot be
// read yields an empty list, so every byte of the new file arrives as a
// literal.
func (r *Receiver) openBasis(ctx context.Context, index int, dst string) (*basisFile, error) {
	b := &basisFile{index: index, path: dst, mode: 0o644}

	fi, err := os.Stat(dst)
	if errors.Is(err, fs.ErrNotExist) {
		return r.noBasis(ctx, b, nil), nil
	}
	if err != nil {
		return r.noBasis(ctx, b, fmt.Errorf("stat basis: %w", err)), nil
	}
	b.mode = fi.Mode().Perm()

	m, err := platform.Map(dst)
	if err != nil {
		return r.noBasis(ctx, b, fmt.Errorf("open basis: %w", err)), nil
	}
	sums, err := checksum.Generate(m.Data(), r.cfg.BlockSize.Resolve(int64(m.Len()), checksum.ChooseBlockLength))
	if err != nil {
		_ = m.Close() //nolint:errcheck // read-only mapping
		return nil, fmt.Errorf("checksum %s: %w", dst, err)
	}
	b.mapping = m
	b.sums = sums
	return b, nil
}

// noBasis gives b an empty list. cause is nil for a basis that does not exist.
func (r *Receiver) noBasis(ctx context.Context, b *basisFile, cause error) *basisFile {
	b.sums = checksum.Empty(r.cfg.BlockSize.Resolve(0, checksum.ChooseBlockLength))
	r.cfg.Stats.AddBasisMissing(1)
	if cause != nil {
		r.cfg.logger().Warn("basis unreadable, sending whole file", "path", b.path, "error", cause)
	} else {
		r.cfg.logger().Info("no basis file, sending whole file", "path", b.path)
	}
	event.Emit(ctx, r.cfg.Events, event.Event{
		Type: event.BasisMissing, Path: b.path, Index: b.index, Error: cause,
	})
	return b
}

// reconstructAll reads one answer per pending file, then the end marker and
// the sender's report.
func (r *Receiver) reconstructAll(ctx context.Context, conn io.Reader, pending <-chan *basisFile) (stats.Report, error) {
	rd := wire.NewReader(conn)

	for {
		v, err := rd.ReadInt()
		if err != nil {
			return stats.Report{}, fmt.Errorf("read file index: %w", err)
		}
		if v == endOfFiles {
			break
		}

		b, ok := <-pending
		if !ok {
			return stats.Report{}, fmt.Errorf("%w: %d was never requested", ErrBadFileIndex, v)
		}
		if int(v) != b.index {
			b.close()
			return stats.Report{}, fmt.Errorf("%w: got %d, expected %d", ErrBadFileIndex, v, b.index)
		}

		err = r.receiveFile(ctx, rd, b)
		b.close()
		if err != nil {
			r.cfg.Stats.AddFilesFailed(1)
			event.Emit(ctx, r.cfg.Events, event.Event{
				Type: event.FileFailed, Path: b.path, Index: b.index, Error: err,
			})
			return stats.Report{}, err
		}
	}

	if b, ok := <-pending; ok {
		b.close()
		return stats.Report{}, fmt.Errorf("%w: sender ended before file %d", ErrBadFileIndex, b.index)
	}

	var vals [3]int64
	for i := range vals {
		v, err := rd.ReadLong()
		if err != nil {
			return stats.Report{}, fmt.Errorf("read report: %w", err)
		}
		vals[i] = v
	}
	return stats.Report{BytesRead: vals[0], BytesWritten: vals[1], TotalSize: vals[2]}, nil
}

// receiveFile checks the header echo, reconstructs into a temporary file
// next to the destination and installs it.
func (r *Receiver) receiveFile(ctx context.Context, rd *wire.Reader, b *basisFile) error {
	h, err := checksum.ReadHeader(rd)
	if err != nil {
		return fmt.Errorf("read header echo for %s: %w", b.path, err)
	}
	if want := b.sums.Header(); h != want {
		return fmt.Errorf("%w for %s: got %+v, sent %+v", ErrHeaderMismatch, b.path, h, want)
	}

	tmp, err := createTemp(b.path, b.mode)
	if err != nil {
		return err
	}
	defer tmp.discard()

	bw := bufio.NewWriterSize(tmp.f, outputBufferSize)
	rec := delta.NewReconstructor(b.data(), b.sums, bw)
	if err := delta.Decode(rd, rec); err != nil {
		return fmt.Errorf("reconstruct %s: %w", b.path, err)
	}

	backup, err := tmp.install(r.cfg.Backup, r.cfg.BackupSuffix, b.mapping != nil)
	if err != nil {
		return err
	}
	if backup != "" {
		event.Emit(ctx, r.cfg.Events, event.Event{Type: event.BackupCreated, Path: backup, Index: b.index})
	}

	r.cfg.Stats.AddFilesTransferred(1)
	r.cfg.logger().Debug("reconstructed", "path", b.path, "size", rec.Written())
	event.Emit(ctx, r.cfg.Events, event.Event{
		Type: event.FileReconstructed, Path: b.path, Index: b.index, Size: rec.Written(),
	})
	return nil
}
