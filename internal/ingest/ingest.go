package ingest

import (
	"context"
	"log/slog"
	"time"

	"roadindexer/internal/model"
)

// Processor is what the synchronous REST path needs from the engine.
type Processor interface {
	ProcessSample(ctx context.Context, s model.Sample) model.Outcome
}

func SendNonBlocking(ctx context.Context, out chan<- model.Sample, s model.Sample, logger *slog.Logger) bool {
	select {
	case out <- s:
		return true
	case <-ctx.Done():
		return false
	default:
		if logger != nil {
			logger.Warn("sample channel full, dropping sample", "device_id", s.DeviceID, "timestamp", s.Timestamp)
		}
		return false
	}
}

func BackoffSleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		d = 200 * time.Millisecond
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
