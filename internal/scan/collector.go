package scan

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/ratelimit"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/tierwatch-backend/internal/model"
)

// Collector gathers every log in a block range, oldest first.
type Collector struct {
	fetcher *fetcher
	logger  *zap.Logger
}

// NewCollector constructs a Collector sharing the chunk fetching rules of Scanner.
func NewCollector(logger *zap.Logger, logs LogRetrieval, limiter ratelimit.Limiter, metrics Metrics, cfg Config) (*Collector, error) {
	f, err := newFetcher(logger, logs, limiter, metrics, cfg)
	if err != nil {
		return nil, err
	}
	return &Collector{fetcher: f, logger: logger}, nil
}

// Collect returns the logs of [from, to] sorted by block and log index. When
// topic0 is not empty only logs whose first topic matches it are kept.
func (c *Collector) Collect(ctx context.Context, from, to uint64, topic0 string) ([]model.LogRecord, error) {
	topic0 = strings.ToLower(topic0)

	var out []model.LogRecord
	err := c.fetcher.walk(ctx, from, to, 0, false, func(logs []model.LogRecord) bool {
		for _, l := range logs {
			if topic0 != "" && (len(l.Topics) == 0 || strings.ToLower(l.Topics[0]) != topic0) {
				continue
			}
			out = append(out, l)
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[j].Newer(out[i])
	})
	c.logger.Info("collected logs",
		zap.Uint64("from", from),
		zap.Uint64("to", to),
		zap.String("topic0", topic0),
		zap.Int("logs", len(out)))
	return out, nil
}

// CollectByTopic walks [from, to] once and returns the logs of each topic0,
// each slice sorted by block and log index. Logs of other topics are dropped.
func (c *Collector) CollectByTopic(ctx context.Context, from, to uint64, topic0s ...string) (map[string][]model.LogRecord, error) {
	logs, err := c.Collect(ctx, from, to, "")
	if err != nil {
		return nil, err
	}

	out := make(map[string][]model.LogRecord, len(topic0s))
	for _, t := range topic0s {
		out[strings.ToLower(t)] = []model.LogRecord{}
	}
	for _, l := range logs {
		if len(l.Topics) == 0 {
			continue
		}
		key := strings.ToLower(l.Topics[0])
		if bucket, ok := out[key]; ok {
			out[key] = append(bucket, l)
		}
	}
	return out, nil
}
