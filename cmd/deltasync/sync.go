package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bamsammich/deltasync/internal/checksum"
	"github.com/bamsammich/deltasync/internal/config"
	"github.com/bamsammich/deltasync/internal/event"
	"github.com/bamsammich/deltasync/internal/session"
	"github.com/bamsammich/deltasync/internal/stats"
	"github.com/bamsammich/deltasync/internal/ui"
	"github.com/bamsammich/deltasync/internal/units"
)

type syncOptions struct {
	blockSize units.BlockSize
	bwLimit   string
	backup    bool
	suffix    string
	verify    bool
	checksum  bool
}

func (a *app) newSyncCmd() *cobra.Command {
	opts := syncOptions{
		blockSize: units.FixedBlockSize(checksum.DefaultBlockLength),
		suffix:    session.DefaultBackupSuffix,
	}

	cmd := &cobra.Command{
		Use:   "sync [flags] <source>... <destination>",
		Short: "Update destination files from their sources using delta transfer",
		Long: `Update destination files from their sources using delta transfer.

With one source, the destination is a file, or an existing directory the
source is placed in. With several sources the destination must be an
existing directory.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyConfigDefaults(cmd, a.cfg.Defaults, &opts); err != nil {
				return err
			}
			return a.runSync(cmd.Context(), args, opts)
		},
	}

	f := cmd.Flags()
	f.Var(&opts.blockSize, "block-size", `checksum block length (e.g. 700, 4K, or "auto")`)
	f.StringVar(&opts.bwLimit, "bwlimit", "", "bandwidth limit (e.g. 100M, 1G)")
	f.BoolVar(&opts.backup, "backup", false, "keep the replaced version of each file")
	f.StringVar(&opts.suffix, "suffix", session.DefaultBackupSuffix, "backup suffix")
	f.BoolVar(&opts.verify, "verify", false, "verify checksums after transfer (BLAKE3)")
	f.BoolVarP(&opts.checksum, "checksum", "c", false, "skip files whose destination already has the same size and checksum")
	return cmd
}

// applyConfigDefaults applies config file defaults for flags not explicitly set on the CLI.
func applyConfigDefaults(cmd *cobra.Command, defaults config.DefaultsConfig, opts *syncOptions) error {
	flags := cmd.Flags()
	if !flags.Changed("block-size") && defaults.BlockSize != nil {
		if err := opts.blockSize.Set(*defaults.BlockSize); err != nil {
			return fmt.Errorf("config block_size: %w", err)
		}
	}
	if !flags.Changed("bwlimit") && defaults.BWLimit != nil {
		opts.bwLimit = *defaults.BWLimit
	}
	if !flags.Changed("backup") && defaults.Backup != nil {
		opts.backup = *defaults.Backup
	}
	if !flags.Changed("suffix") && defaults.Suffix != nil {
		opts.suffix = *defaults.Suffix
	}
	if !flags.Changed("verify") && defaults.Verify != nil {
		opts.verify = *defaults.Verify
	}
	return nil
}

// resolveTargets maps the positional arguments to source and destination
// file lists of equal length.
func resolveTargets(args []string) (srcs, dsts []string, err error) {
	srcs = args[:len(args)-1]
	dst := args[len(args)-1]

	for _, src := range srcs {
		fi, err := os.Stat(src)
		if err != nil {
			return nil, nil, fmt.Errorf("source: %w", err)
		}
		if !fi.Mode().IsRegular() {
			return nil, nil, fmt.Errorf("source %s: not a regular file", src)
		}
	}

	dstIsDir := false
	if fi, err := os.Stat(dst); err == nil && fi.IsDir() {
		dstIsDir = true
	}
	if len(srcs) > 1 && !dstIsDir {
		return nil, nil, fmt.Errorf("destination %s: must be an existing directory for %d sources", dst, len(srcs))
	}
	if !dstIsDir {
		return srcs, []string{dst}, nil
	}

	seen := make(map[string]string, len(srcs))
	for _, src := range srcs {
		target := filepath.Join(dst, filepath.Base(src))
		if prev, ok := seen[target]; ok {
			return nil, nil, fmt.Errorf("sources %s and %s both map to %s", prev, src, target)
		}
		seen[target] = src
		dsts = append(dsts, target)
	}
	return srcs, dsts, nil
}

// skipUpToDate drops the pairs whose destination already has the source's
// size and BLAKE3 digest.
func skipUpToDate(log *slog.Logger, srcs, dsts []string) (keptSrcs, keptDsts []string, err error) {
	for i := range srcs {
		same, err := sameContent(srcs[i], dsts[i])
		if err != nil {
			return nil, nil, err
		}
		if same {
			log.Info("up to date", "path", dsts[i])
			continue
		}
		keptSrcs = append(keptSrcs, srcs[i])
		keptDsts = append(keptDsts, dsts[i])
	}
	return keptSrcs, keptDsts, nil
}

// sameContent reports whether dst is a regular file with the same content as
// src. A dst that cannot be read is never the same; the transfer handles it.
func sameContent(src, dst string) (bool, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false, fmt.Errorf("source: %w", err)
	}
	dstInfo, err := os.Stat(dst)
	if err != nil || !dstInfo.Mode().IsRegular() || dstInfo.Size() != srcInfo.Size() {
		return false, nil
	}
	srcSum, err := checksum.FileDigest(src)
	if err != nil {
		return false, fmt.Errorf("checksum source %s: %w", src, err)
	}
	dstSum, err := checksum.FileDigest(dst)
	if err != nil {
		return false, nil //nolint:nilerr // unreadable destinations are transferred
	}
	return srcSum == dstSum, nil
}

//nolint:revive // cognitive-complexity: wires both roles, presenter and report
func (a *app) runSync(ctx context.Context, args []string, opts syncOptions) error {
	srcs, dsts, err := resolveTargets(args)
	if err != nil {
		return err
	}
	if opts.checksum {
		srcs, dsts, err = skipUpToDate(a.logger, srcs, dsts)
		if err != nil {
			return err
		}
	}

	var bwLimit int64
	if opts.bwLimit != "" {
		bwLimit, err = units.ParseSize(opts.bwLimit)
		if err != nil {
			return fmt.Errorf("invalid --bwlimit: %w", err)
		}
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector := stats.NewCollector()
	events := make(chan event.Event, 256)

	presenterEvents := (<-chan event.Event)(events)
	if a.logFile != "" {
		presenterEvents = a.teeEvents(events)
	}

	isTTY := isTerminal(a.stdout)
	theme := ui.DefaultTheme().WithOverrides(a.cfg.Theme)
	presenter := ui.NewPresenter(ui.Config{
		Writer:    a.stdout,
		ErrWriter: a.stderr,
		Stats:     collector,
		DstRoot:   args[len(args)-1],
		Theme:     theme,
		IsTTY:     isTTY,
		Quiet:     a.quiet,
		Verbose:   a.verbose,
	})

	var presenterErr error
	var presenterWg sync.WaitGroup
	presenterWg.Add(1)
	go func() {
		defer presenterWg.Done()
		presenterErr = presenter.Run(presenterEvents)
	}()

	a.logger.Debug("starting sync",
		"sources", srcs,
		"destinations", dsts,
		"block_size", opts.blockSize.String(),
		"bwlimit", bwLimit,
	)

	sessionOpts := session.Options{Stats: collector, Events: events, Logger: a.logger}
	report, err := runRoles(ctx,
		session.NewReceiver(session.ReceiverConfig{
			Options:      sessionOpts,
			Destinations: dsts,
			BlockSize:    opts.blockSize,
			Backup:       opts.backup,
			BackupSuffix: opts.suffix,
		}),
		session.NewSender(session.SenderConfig{
			Options: sessionOpts,
			Sources: srcs,
			BWLimit: bwLimit,
		}),
	)

	var verifyResult session.VerifyResult
	if err == nil && opts.verify {
		pairs := make([]session.Pair, len(srcs))
		for i := range srcs {
			pairs[i] = session.Pair{Src: srcs[i], Dst: dsts[i]}
		}
		verifyResult = session.Verify(ctx, pairs, 0, events)
	}

	stop()
	close(events)
	presenterWg.Wait()
	if presenterErr != nil {
		fmt.Fprintf(a.stderr, "presenter: %v\n", presenterErr)
	}

	if err != nil {
		a.logger.Error("sync failed", "error", err)
		return &exitError{code: 1}
	}

	if !a.quiet {
		fmt.Fprintln(a.stdout, ui.RenderReport(report, collector.Elapsed(), theme, isTTY))
		if summary := presenter.Summary(); summary != "" {
			fmt.Fprintln(a.stderr, summary)
		}
	}

	if verifyResult.Failed > 0 {
		for _, ve := range verifyResult.Errors {
			a.logger.Error("verify failed", "path", ve.Path, "src", ve.SrcHash, "dst", ve.DstHash, "error", ve.Err)
		}
		return &exitError{code: 1}
	}
	return nil
}

// runRoles runs the receiver in the foreground and the sender against it
// over an in-process pipe.
func runRoles(ctx context.Context, recv *session.Receiver, send *session.Sender) (stats.Report, error) {
	recvConn, sendConn := net.Pipe()

	var sendErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, sendErr = send.Run(ctx, sendConn)
		if sendErr != nil {
			_ = sendConn.Close() //nolint:errcheck // unblocks the receiver
		}
	}()

	report, recvErr := recv.Run(ctx, recvConn)
	_ = recvConn.Close() //nolint:errcheck // in-process pipe
	<-done
	_ = sendConn.Close() //nolint:errcheck // in-process pipe

	// The sender's error names the cause; the receiver then only sees the
	// closed pipe.
	if sendErr != nil {
		return stats.Report{}, errors.Join(sendErr, recvErr)
	}
	return report, recvErr
}

// teeEvents logs every event before forwarding it to the presenter.
func (a *app) teeEvents(events <-chan event.Event) <-chan event.Event {
	teed := make(chan event.Event, 256)
	go func() {
		for ev := range events {
			event.Log(context.Background(), a.logger, ev)
			teed <- ev
		}
		close(teed)
	}()
	return teed
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && ui.IsTTY(f.Fd())
}
