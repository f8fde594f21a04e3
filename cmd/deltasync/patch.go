package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bamsammich/deltasync/internal/checksum"
	"github.com/bamsammich/deltasync/internal/delta"
	"github.com/bamsammich/deltasync/internal/platform"
)

func (a *app) newPatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "patch <basis> <delta-file> <new-file>",
		Short: "Rebuild a new file from its basis and a delta",
		Long: `Rebuild a new file from its basis and a delta.

The new file may be the basis itself; it is replaced only once the rebuild
has succeeded.`,
		Args: cobra.ExactArgs(3),
		RunE: func(_ *cobra.Command, args []string) error {
			return a.runPatch(args[0], args[1], args[2])
		},
	}
}

func (a *app) runPatch(basisPath, deltaPath, newPath string) (err error) {
	r, closer, err := openSealed(deltaPath)
	if err != nil {
		return err
	}
	defer closer.Close()

	h, err := checksum.ReadHeader(r)
	if err != nil {
		return fmt.Errorf("read delta header %s: %w", deltaPath, err)
	}

	m, err := platform.Map(basisPath)
	if err != nil {
		return fmt.Errorf("open basis: %w", err)
	}
	defer m.Close()
	if int64(m.Len()) != h.TotalLength() {
		return fmt.Errorf("basis %s is %d bytes, delta was made against %d",
			basisPath, m.Len(), h.TotalLength())
	}

	out, err := os.CreateTemp(filepath.Dir(newPath), "."+filepath.Base(newPath)+".*.deltasync-tmp")
	if err != nil {
		return fmt.Errorf("create tmp: %w", err)
	}
	defer func() {
		if err != nil {
			_ = out.Close()           //nolint:errcheck // already failing
			_ = os.Remove(out.Name()) //nolint:errcheck // best effort
		}
	}()

	if fi, statErr := os.Stat(basisPath); statErr == nil {
		if err := out.Chmod(fi.Mode().Perm()); err != nil {
			return fmt.Errorf("chmod tmp: %w", err)
		}
	}

	rec := delta.NewReconstructor(m.Data(), h.Layout(), bufio.NewWriterSize(out, 256*1024))
	if err := delta.Decode(r, rec); err != nil {
		return fmt.Errorf("apply %s: %w", deltaPath, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close tmp: %w", err)
	}
	if err := os.Rename(out.Name(), newPath); err != nil {
		return fmt.Errorf("rename: %w", err)
	}

	a.logger.Info("patched", "basis", basisPath, "delta", deltaPath, "new", newPath, "size", rec.Written())
	return nil
}
