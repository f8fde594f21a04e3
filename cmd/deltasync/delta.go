package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bamsammich/deltasync/internal/checksum"
	"github.com/bamsammich/deltasync/internal/delta"
	"github.com/bamsammich/deltasync/internal/platform"
	"github.com/bamsammich/deltasync/internal/stats"
	"github.com/bamsammich/deltasync/internal/wire"
)

func (a *app) newDeltaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delta <signature-file> <new-file> <delta-file>",
		Short: "Write the instructions that turn a signed basis into a new file",
		Args:  cobra.ExactArgs(3),
		RunE: func(_ *cobra.Command, args []string) error {
			return a.runDelta(args[0], args[1], args[2])
		},
	}
}

func (a *app) runDelta(sigPath, newPath, deltaPath string) error {
	r, closer, err := openSealed(sigPath)
	if err != nil {
		return err
	}
	sums, err := checksum.ReadList(r)
	_ = closer.Close() //nolint:errcheck // read-only
	if err != nil {
		return fmt.Errorf("read signature %s: %w", sigPath, err)
	}

	m, err := platform.Map(newPath)
	if err != nil {
		return fmt.Errorf("open new file: %w", err)
	}
	defer m.Close()

	var st delta.MatchStats
	if err := writeSealed(deltaPath, func(w *wire.Writer) error {
		if err := checksum.WriteHeader(w, sums.Header()); err != nil {
			return err
		}
		st, err = delta.NewMatcher(sums).Match(m.Data(), delta.NewEncoder(w))
		return err
	}); err != nil {
		return err
	}

	a.logger.Info("delta written",
		"new", newPath,
		"delta", deltaPath,
		"size", m.Len(),
		"matches", st.Matches,
		"literal", stats.FormatBytes(st.LiteralBytes),
		"matched", stats.FormatBytes(st.MatchedBytes),
	)
	a.logger.Debug("match details", "tag_hits", st.TagHits, "false_alarms", st.FalseAlarms)
	return nil
}
