package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/bamsammich/deltasync/internal/event"
	"github.com/bamsammich/deltasync/internal/stats"
)

const progressEvery = 5 // ticks between progress lines

// plainPresenter outputs one line per reconstructed file to stdout, and
// periodic progress to stderr in verbose mode.
type plainPresenter struct {
	w       io.Writer
	errW    io.Writer
	stats   *stats.Collector
	dstRoot string
	verbose bool
	styles  styles
}

func (p *plainPresenter) Run(events <-chan Event) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var ticks int
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			p.handleEvent(ev)
		case <-ticker.C:
			p.stats.Tick()
			ticks++
			if p.verbose && ticks%progressEvery == 0 {
				p.printProgress()
			}
		}
	}
}

func (p *plainPresenter) handleEvent(ev Event) {
	path := p.styles.path.Render(StripRoot(p.dstRoot, ev.Path))
	switch ev.Type {
	case event.FileReconstructed:
		fmt.Fprintf(p.w, "%s  %s\n", path, FormatBytes(ev.Size))
	case event.FileFailed:
		errMsg := "error"
		if ev.Error != nil {
			errMsg = ev.Error.Error()
		}
		fmt.Fprintf(p.w, "%s  %s\n", path, p.styles.bad.Render(errMsg))
	case event.BasisMissing:
		switch {
		case ev.Error != nil:
			fmt.Fprintf(p.w, "%s  %s\n", path, p.styles.bad.Render("unreadable basis, sending whole file"))
		case p.verbose:
			fmt.Fprintf(p.w, "%s  new file\n", path)
		}
	case event.BackupCreated:
		if p.verbose {
			fmt.Fprintf(p.w, "backup: %s\n", path)
		}
	case event.VerifyFailed:
		fmt.Fprintf(p.w, "%s %s\n", p.styles.bad.Render("MISMATCH:"), path)
	case event.VerifyOK:
		if p.verbose {
			fmt.Fprintf(p.w, "%s %s\n", p.styles.good.Render("verified:"), path)
		}
	}
}

func (p *plainPresenter) printProgress() {
	snap := p.stats.Snapshot()
	fmt.Fprintf(p.errW, "progress: %s files %s processed %s\n",
		FormatCount(snap.FilesTransferred),
		FormatBytes(snap.LiteralBytes+snap.MatchedBytes),
		FormatRate(p.stats.RollingSpeed(progressEvery)),
	)
}

func (p *plainPresenter) Summary() string {
	return CompletionSummary(p.stats.Snapshot())
}
