package ui

import (
	"fmt"

	"github.com/bamsammich/deltasync/internal/stats"
)

// CompletionSummary builds a final summary line from a snapshot.
// Format: done ✓  files 3  size 2.1 MiB  literal 12.0 KiB  matched 2.1 MiB  time 0s  errors 0
func CompletionSummary(snap stats.Snapshot) string {
	icon := "✓"
	if snap.FilesFailed > 0 {
		icon = "✗"
	}

	base := fmt.Sprintf("done %s  files %s  size %s  literal %s  matched %s  time %s",
		icon,
		FormatCount(snap.FilesTransferred),
		FormatBytes(snap.TotalSize),
		FormatBytes(snap.LiteralBytes),
		FormatBytes(snap.MatchedBytes),
		FormatDuration(snap.Elapsed),
	)
	if snap.BasisMissing > 0 {
		base += fmt.Sprintf("  new %s", FormatCount(snap.BasisMissing))
	}
	return base + fmt.Sprintf("  errors %d", snap.FilesFailed)
}
