package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bamsammich/deltasync/internal/checksum"
	"github.com/bamsammich/deltasync/internal/platform"
	"github.com/bamsammich/deltasync/internal/units"
	"github.com/bamsammich/deltasync/internal/wire"
)

func (a *app) newSignatureCmd() *cobra.Command {
	blockSize := units.FixedBlockSize(checksum.DefaultBlockLength)

	cmd := &cobra.Command{
		Use:   "signature [flags] <basis> <signature-file>",
		Short: "Write the checksum list of a basis file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("block-size") && a.cfg.Defaults.BlockSize != nil {
				if err := blockSize.Set(*a.cfg.Defaults.BlockSize); err != nil {
					return fmt.Errorf("config block_size: %w", err)
				}
			}
			return a.runSignature(args[0], args[1], blockSize)
		},
	}
	cmd.Flags().Var(&blockSize, "block-size", `checksum block length (e.g. 700, 4K, or "auto")`)
	return cmd
}

func (a *app) runSignature(basisPath, sigPath string, blockSize units.BlockSize) error {
	m, err := platform.Map(basisPath)
	if err != nil {
		return fmt.Errorf("open basis: %w", err)
	}
	defer m.Close()

	sums, err := checksum.Generate(m.Data(), blockSize.Resolve(int64(m.Len()), checksum.ChooseBlockLength))
	if err != nil {
		return fmt.Errorf("checksum %s: %w", basisPath, err)
	}
	if err := writeSealed(sigPath, func(w *wire.Writer) error {
		return checksum.WriteList(w, sums)
	}); err != nil {
		return err
	}

	a.logger.Info("signature written",
		"basis", basisPath,
		"signature", sigPath,
		"blocks", sums.Count(),
		"block_length", sums.BlockLength,
	)
	return nil
}
