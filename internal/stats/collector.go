package stats

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const ringSize = 60

// Collector tracks transfer statistics using lock-free atomic counters. One
// Collector belongs to one session; nothing here is process-wide.
type Collector struct {
	bytesRead        atomic.Int64
	bytesWritten     atomic.Int64
	literalBytes     atomic.Int64
	matchedBytes     atomic.Int64
	matchedBlocks    atomic.Int64
	tagHits          atomic.Int64
	falseAlarms      atomic.Int64
	filesTransferred atomic.Int64
	filesFailed      atomic.Int64
	basisMissing     atomic.Int64
	totalSize        atomic.Int64
	startTime        time.Time

	// Ring buffer of processed bytes per tick, written only by Tick.
	mu         sync.Mutex
	throughput [ringSize]int64
	ringIdx    int
	ringCount  int
	lastBytes  int64
}

// NewCollector creates a Collector with startTime set to now.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	BytesRead        int64
	BytesWritten     int64
	LiteralBytes     int64
	MatchedBytes     int64
	MatchedBlocks    int64
	TagHits          int64
	FalseAlarms      int64
	FilesTransferred int64
	FilesFailed      int64
	BasisMissing     int64
	TotalSize        int64
	Elapsed          time.Duration
}

func (c *Collector) AddBytesRead(n int64)        { c.bytesRead.Add(n) }
func (c *Collector) AddBytesWritten(n int64)     { c.bytesWritten.Add(n) }
func (c *Collector) AddLiteralBytes(n int64)     { c.literalBytes.Add(n) }
func (c *Collector) AddMatchedBytes(n int64)     { c.matchedBytes.Add(n) }
func (c *Collector) AddMatchedBlocks(n int64)    { c.matchedBlocks.Add(n) }
func (c *Collector) AddTagHits(n int64)          { c.tagHits.Add(n) }
func (c *Collector) AddFalseAlarms(n int64)      { c.falseAlarms.Add(n) }
func (c *Collector) AddFilesTransferred(n int64) { c.filesTransferred.Add(n) }
func (c *Collector) AddFilesFailed(n int64)      { c.filesFailed.Add(n) }
func (c *Collector) AddBasisMissing(n int64)     { c.basisMissing.Add(n) }
func (c *Collector) AddTotalSize(n int64)        { c.totalSize.Add(n) }

// Snapshot returns a point-in-time read of all counters.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		BytesRead:        c.bytesRead.Load(),
		BytesWritten:     c.bytesWritten.Load(),
		LiteralBytes:     c.literalBytes.Load(),
		MatchedBytes:     c.matchedBytes.Load(),
		MatchedBlocks:    c.matchedBlocks.Load(),
		TagHits:          c.tagHits.Load(),
		FalseAlarms:      c.falseAlarms.Load(),
		FilesTransferred: c.filesTransferred.Load(),
		FilesFailed:      c.filesFailed.Load(),
		BasisMissing:     c.basisMissing.Load(),
		TotalSize:        c.totalSize.Load(),
		Elapsed:          c.Elapsed(),
	}
}

// Tick records the bytes processed (literal plus matched) since the previous
// tick into the ring buffer. Called once per second by the progress reporter.
func (c *Collector) Tick() {
	current := c.literalBytes.Load() + c.matchedBytes.Load()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.throughput[c.ringIdx] = current - c.lastBytes
	c.lastBytes = current
	c.ringIdx = (c.ringIdx + 1) % ringSize
	if c.ringCount < ringSize {
		c.ringCount++
	}
}

// RollingSpeed returns average bytes/sec over the last n seconds of samples.
func (c *Collector) RollingSpeed(seconds int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := min(seconds, c.ringCount)
	if count <= 0 {
		return 0
	}
	var sum int64
	for i := range count {
		idx := (c.ringIdx - 1 - i + ringSize) % ringSize
		sum += c.throughput[idx]
	}
	return float64(sum) / float64(count)
}

// Elapsed returns time since collector creation.
func (c *Collector) Elapsed() time.Duration {
	return time.Since(c.startTime)
}

func (s Snapshot) String() string {
	return fmt.Sprintf(
		"files=%d failed=%d missing=%d literal=%d matched=%d blocks=%d hits=%d false_alarms=%d",
		s.FilesTransferred, s.FilesFailed, s.BasisMissing, s.LiteralBytes,
		s.MatchedBytes, s.MatchedBlocks, s.TagHits, s.FalseAlarms,
	)
}

// Report returns the sender-side summary carried at the end of a session.
func (s Snapshot) Report() Report {
	return Report{BytesRead: s.BytesRead, BytesWritten: s.BytesWritten, TotalSize: s.TotalSize}
}

// Report is the end-of-session summary: the bytes the sender read from and
// wrote to the stream, and the total size of the files it transferred.
type Report struct {
	BytesRead    int64
	BytesWritten int64
	TotalSize    int64
}

// Speedup is the ratio of the data transferred to the bytes that crossed
// the stream. It is 0 when nothing crossed.
func (r Report) Speedup() float64 {
	moved := r.BytesRead + r.BytesWritten
	if moved <= 0 {
		return 0
	}
	return float64(r.TotalSize) / float64(moved)
}

// Rate returns the stream bytes per second over elapsed.
func (r Report) Rate(elapsed time.Duration) float64 {
	secs := elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(r.BytesRead+r.BytesWritten) / secs
}

// FormatBytes returns a human-readable byte count.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
