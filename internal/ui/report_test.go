package ui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bamsammich/deltasync/internal/config"
	"github.com/bamsammich/deltasync/internal/stats"
)

func TestRenderReportPlain(t *testing.T) {
	r := stats.Report{BytesRead: 400, BytesWritten: 600, TotalSize: 10000}
	got := RenderReport(r, 2*time.Second, DefaultTheme(), false)

	want := "wrote 600 bytes  read 400 bytes  500.00 bytes/sec\n" +
		"total size is 10000  speedup is 10.00"
	assert.Equal(t, want, got)
}

func TestRenderReportStyledKeepsNumbers(t *testing.T) {
	r := stats.Report{BytesRead: 1, BytesWritten: 2, TotalSize: 3}
	got := RenderReport(r, time.Second, DefaultTheme(), true)

	for _, s := range []string{"wrote", "read", "total size is", "speedup is", "1.00"} {
		assert.Contains(t, got, s)
	}
}

func TestRenderReportNothingMoved(t *testing.T) {
	got := RenderReport(stats.Report{}, 0, Theme{}, false)
	assert.Contains(t, got, "0.00 bytes/sec")
	assert.Contains(t, got, "speedup is 0.00")
}

func TestCompletionSummary(t *testing.T) {
	got := CompletionSummary(stats.Snapshot{
		FilesTransferred: 3,
		FilesFailed:      1,
		BasisMissing:     1,
		TotalSize:        2048,
		LiteralBytes:     1024,
		MatchedBytes:     1024,
		Elapsed:          65 * time.Second,
	})
	assert.Equal(t,
		"done ✗  files 3  size 2.0 KiB  literal 1.0 KiB  matched 1.0 KiB  time 1m 05s  new 1  errors 1",
		got)
}

func TestThemeOverrides(t *testing.T) {
	accent := "#123456"
	bad := "#ff0000"
	th := DefaultTheme().WithOverrides(config.ThemeConfig{Accent: &accent, Bad: &bad})

	assert.Equal(t, "#123456", string(th.Accent))
	assert.Equal(t, "#ff0000", string(th.Bad))
	assert.Equal(t, DefaultTheme().Good, th.Good)
}
