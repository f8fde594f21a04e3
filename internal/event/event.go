package event

import (
	"context"
	"log/slog"
	"time"
)

// Type identifies the kind of event.
type Type int

const (
	SessionStarted Type = iota + 1
	SumsSent
	BasisMissing
	FileStarted
	FileMatched
	FileReconstructed
	FileFailed
	BackupCreated
	VerifyOK
	VerifyFailed
	SessionComplete
)

var typeNames = [...]string{
	SessionStarted:    "SessionStarted",
	SumsSent:          "SumsSent",
	BasisMissing:      "BasisMissing",
	FileStarted:       "FileStarted",
	FileMatched:       "FileMatched",
	FileReconstructed: "FileReconstructed",
	FileFailed:        "FileFailed",
	BackupCreated:     "BackupCreated",
	VerifyOK:          "VerifyOK",
	VerifyFailed:      "VerifyFailed",
	SessionComplete:   "SessionComplete",
}

func (t Type) String() string {
	if t > 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Event is a single progress event from a session role.
type Event struct {
	Type      Type
	Timestamp time.Time
	Path      string // destination or source path
	Index     int    // file index within the session
	Size      int64  // file size or bytes reconstructed
	Blocks    int    // checksum count or matched blocks
	Literal   int64  // literal bytes (FileMatched)
	Error     error
}

// Emit sends ev on ch with its timestamp set. A nil channel drops the event.
func Emit(ctx context.Context, ch chan<- Event, ev Event) {
	if ch == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	select {
	case ch <- ev:
	case <-ctx.Done():
	}
}

// Log writes ev to logger as one structured record.
func Log(ctx context.Context, logger *slog.Logger, ev Event) {
	level := slog.LevelInfo
	attrs := []slog.Attr{
		slog.String("type", ev.Type.String()),
		slog.String("path", ev.Path),
		slog.Int("index", ev.Index),
		slog.Int64("size", ev.Size),
	}
	if ev.Blocks != 0 {
		attrs = append(attrs, slog.Int("blocks", ev.Blocks))
	}
	if ev.Literal != 0 {
		attrs = append(attrs, slog.Int64("literal", ev.Literal))
	}
	if ev.Error != nil {
		level = slog.LevelWarn
		attrs = append(attrs, slog.String("error", ev.Error.Error()))
	}
	logger.LogAttrs(ctx, level, "deltasync.event", attrs...)
}
