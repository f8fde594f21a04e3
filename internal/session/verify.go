package session

import (
	"context"
	"sync"

	"github.com/bamsammich/deltasync/internal/checksum"
	"github.com/bamsammich/deltasync/internal/event"
)

// Pair is a source file and the destination it was transferred to.
type Pair struct {
	Src string
	Dst string
}

// VerifyResult holds the outcome of a verification pass.
type VerifyResult struct {
	Verified int64
	Failed   int64
	Errors   []VerifyError
}

// VerifyError records a single digest mismatch or unreadable file.
type VerifyError struct {
	Path    string
	SrcHash string
	DstHash string
	Err     error
}

// Verify compares the BLAKE3 digest of every pair's source and destination,
// fanning out to workers goroutines.
func Verify(ctx context.Context, pairs []Pair, workers int, events chan<- event.Event) VerifyResult {
	if workers <= 0 {
		workers = 4
	}

	taskCh := make(chan Pair, workers*2)
	var (
		mu     sync.Mutex
		result VerifyResult
		wg     sync.WaitGroup
	)

	fail := func(ve VerifyError) {
		mu.Lock()
		result.Failed++
		result.Errors = append(result.Errors, ve)
		mu.Unlock()
		event.Emit(ctx, events, event.Event{Type: event.VerifyFailed, Path: ve.Path, Error: ve.Err})
	}

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range taskCh {
				if ctx.Err() != nil {
					return
				}

				srcHash, err := checksum.FileDigest(p.Src)
				if err != nil {
					fail(VerifyError{Path: p.Dst, SrcHash: "error", DstHash: "n/a", Err: err})
					continue
				}
				dstHash, err := checksum.FileDigest(p.Dst)
				if err != nil {
					fail(VerifyError{Path: p.Dst, SrcHash: srcHash, DstHash: "error", Err: err})
					continue
				}
				if srcHash != dstHash {
					fail(VerifyError{Path: p.Dst, SrcHash: srcHash, DstHash: dstHash})
					continue
				}

				mu.Lock()
				result.Verified++
				mu.Unlock()
				event.Emit(ctx, events, event.Event{Type: event.VerifyOK, Path: p.Dst})
			}
		}()
	}

feed:
	for _, p := range pairs {
		select {
		case <-ctx.Done():
			break feed
		case taskCh <- p:
		}
	}
	close(taskCh)
	wg.Wait()

	return result
}
