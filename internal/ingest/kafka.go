package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"roadindexer/internal/config"
	"roadindexer/internal/model"
	"roadindexer/internal/normalize"
)

func StartKafka(ctx context.Context, cfg *config.Manager, out chan<- model.Sample, logger *slog.Logger) {
	current := cfg.Get().Ingest.Kafka
	if !current.Enabled {
		if logger != nil {
			logger.Info("kafka ingest disabled")
		}
		return
	}
	if logger != nil {
		logger.Info("kafka ingest enabled", "brokers", current.Brokers, "topic", current.Topic, "group_id", current.GroupID)
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  current.Brokers,
		Topic:    current.Topic,
		GroupID:  current.GroupID,
		MinBytes: 1e3,
		MaxBytes: 10e6,
	})
	go func() {
		defer reader.Close()
		for {
			m, err := reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if logger != nil {
					logger.Warn("kafka read error", "err", err)
				}
				if !BackoffSleep(ctx, time.Second) {
					return
				}
				continue
			}
			var payload normalize.SamplePayload
			if err := json.Unmarshal(m.Value, &payload); err != nil {
				if logger != nil {
					logger.Warn("kafka decode error", "err", err)
				}
				continue
			}
			sample, err := normalize.Normalize(payload, cfg.Get())
			if err != nil {
				if logger != nil {
					logger.Warn("kafka normalize error", "err", err)
				}
				continue
			}
			sample.Source = "kafka"
			SendNonBlocking(ctx, out, sample, logger)
		}
	}()
}
