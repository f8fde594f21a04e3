package wire

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// NewBWLimiter creates a rate.Limiter that caps stream throughput to
// bytesPerSec. The burst is 64 KiB, one buffered Writer flush, so a flush is
// never rejected for exceeding the burst.
func NewBWLimiter(bytesPerSec int64) *rate.Limiter {
	burst := 64 * 1024
	if bytesPerSec < int64(burst) {
		burst = int(bytesPerSec)
	}
	return rate.NewLimiter(rate.Limit(bytesPerSec), burst)
}

// rateLimitedWriter wraps an io.Writer and enforces a shared rate limit.
type rateLimitedWriter struct {
	w       io.Writer
	limiter *rate.Limiter
	ctx     context.Context
}

// NewRateLimitedWriter wraps w so that writes are throttled by limiter.
// Writes larger than the limiter's burst are split.
func NewRateLimitedWriter(ctx context.Context, w io.Writer, limiter *rate.Limiter) io.Writer {
	return &rateLimitedWriter{w: w, limiter: limiter, ctx: ctx}
}

func (rw *rateLimitedWriter) Write(p []byte) (int, error) {
	var total int
	burst := rw.limiter.Burst()
	for len(p) > 0 {
		chunk := p
		if burst > 0 && len(chunk) > burst {
			chunk = chunk[:burst]
		}
		if err := rw.limiter.WaitN(rw.ctx, len(chunk)); err != nil {
			return total, err
		}
		n, err := rw.w.Write(chunk)
		total += n
		if err != nil {
			return total, err
		}
		p = p[n:]
	}
	return total, nil
}
