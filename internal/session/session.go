// Package session runs the two roles of a transfer over one duplex stream.
//
// The receiver owns the old versions of the files. Its generator sends, per
// file, the file index and the checksum list of the current contents, then -1.
// The sender owns the new versions. For every index it receives it replies
// with the index, an echo of the list header and the instruction stream; after
// the receiver's -1 it sends -1 and a report of the bytes it moved. The
// receiver's reconstructor applies each instruction stream to the old
// contents and installs the result in place of the old file.
//
// Files on one stream are handled strictly one after another.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/bamsammich/deltasync/internal/event"
	"github.com/bamsammich/deltasync/internal/stats"
)

// endOfFiles terminates the per-file sections in both directions.
const endOfFiles = -1

var (
	// ErrBadFileIndex is returned when a peer names a file that is out of
	// range or out of order.
	ErrBadFileIndex = errors.New("bad file index")

	// ErrHeaderMismatch is returned when the sender's header echo differs from
	// the checksum list the receiver sent for that file.
	ErrHeaderMismatch = errors.New("checksum header echo does not match")
)

// Options are shared by both roles. Zero values are usable: nil Stats and
// Events disable counting and progress, a nil Logger uses slog.Default.
type Options struct {
	Stats  *stats.Collector
	Events chan<- event.Event
	Logger *slog.Logger
}

func (o *Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o *Options) stats() *stats.Collector {
	if o.Stats == nil {
		o.Stats = stats.NewCollector()
	}
	return o.Stats
}

// failer records the first error of a group of goroutines sharing a stream
// and closes the stream so the others unblock. done is closed on failure.
type failer struct {
	once   sync.Once
	closer io.Closer
	done   chan struct{}
	err    error
}

func (f *failer) fail(err error) {
	if err == nil {
		return
	}
	f.once.Do(func() {
		f.err = err
		if f.done != nil {
			close(f.done)
		}
		if f.closer != nil {
			_ = f.closer.Close() //nolint:errcheck // unblocking the peer is all that matters here
		}
	})
}

// result returns the recorded error. No failure is recorded after the first
// call.
func (f *failer) result() error {
	f.once.Do(func() {})
	return f.err
}

// abort prefers the context error when cancellation caused err.
func abort(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		return fmt.Errorf("%w (%w)", ctxErr, err)
	}
	return err
}
