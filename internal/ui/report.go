package ui

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bamsammich/deltasync/internal/stats"
)

// RenderReport formats the end-of-session transfer report:
//
//	wrote 1234 bytes  read 567 bytes  1801.00 bytes/sec
//	total size is 100000  speedup is 55.52
//
// Numbers are highlighted with theme when styled is set.
func RenderReport(r stats.Report, elapsed time.Duration, theme Theme, styled bool) string {
	st := plainStyles()
	if styled {
		st = theme.styles()
	}
	num := func(v int64) string { return st.number.Render(strconv.FormatInt(v, 10)) }
	flt := func(v float64) string { return st.number.Render(fmt.Sprintf("%.2f", v)) }

	return fmt.Sprintf("%s %s %s  %s %s %s  %s %s\n%s %s  %s %s",
		st.label.Render("wrote"), num(r.BytesWritten), st.label.Render("bytes"),
		st.label.Render("read"), num(r.BytesRead), st.label.Render("bytes"),
		flt(r.Rate(elapsed)), st.label.Render("bytes/sec"),
		st.label.Render("total size is"), num(r.TotalSize),
		st.label.Render("speedup is"), flt(r.Speedup()),
	)
}
