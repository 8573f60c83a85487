package clickhouse

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/tierwatch-backend/internal/model"
	"github.com/goodnatureofminers/tierwatch-backend/pkg/batcher"
)

type resolutionWriter interface {
	InsertTierResolutions(ctx context.Context, resolutions []model.TierResolution) error
}

// SinkConfig bounds the export batches.
type SinkConfig struct {
	FlushSize     int
	FlushInterval time.Duration
	FlushRPS      int
}

// DefaultSinkConfig returns batch sizes suited for a single resolver run.
func DefaultSinkConfig() SinkConfig {
	return SinkConfig{
		FlushSize:     500,
		FlushInterval: 2 * time.Second,
		FlushRPS:      10,
	}
}

// ResolutionSink buffers resolutions and writes them in batches.
type ResolutionSink struct {
	batcher *batcher.Batcher[model.TierResolution]
}

// NewResolutionSink builds a sink over writer. Start must be called before Add.
func NewResolutionSink(logger *zap.Logger, writer resolutionWriter, cfg SinkConfig) *ResolutionSink {
	return &ResolutionSink{
		batcher: batcher.New(
			logger.Named("resolution_sink"),
			writer.InsertTierResolutions,
			cfg.FlushSize,
			cfg.FlushInterval,
			cfg.FlushRPS,
		),
	}
}

func (s *ResolutionSink) Start(ctx context.Context) {
	s.batcher.Start(ctx)
}

// Stop flushes buffered rows and waits for the writer.
func (s *ResolutionSink) Stop() {
	s.batcher.Stop()
}

func (s *ResolutionSink) Add(ctx context.Context, res model.TierResolution) error {
	return s.batcher.Add(ctx, res)
}

// Failed returns the number of resolutions lost to failed flushes.
func (s *ResolutionSink) Failed() int64 {
	return s.batcher.Failed()
}
