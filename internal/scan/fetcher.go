// Package scan walks block ranges through a LogRetrieval in throttled, retried chunks.
package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/tierwatch-backend/internal/clock"
	"github.com/goodnatureofminers/tierwatch-backend/internal/model"
)

// Config controls chunking, throttling and retries of log retrieval.
type Config struct {
	// ChunkSize is the default number of blocks per request.
	ChunkSize uint64
	// MinChunkSize is the smallest chunk a failing range is halved down to.
	MinChunkSize uint64
	// RequestsPerSecond bounds GetLogs calls across all scans sharing a limiter.
	RequestsPerSecond int
	// Retries is the number of retries per chunk before halving.
	Retries      uint64
	RetryInitial time.Duration
	RetryMax     time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize:         2000,
		MinChunkSize:      250,
		RequestsPerSecond: 5,
		Retries:           3,
		RetryInitial:      500 * time.Millisecond,
		RetryMax:          5 * time.Second,
	}
}

// Validate reports configuration values that cannot be used.
func (c Config) Validate() error {
	switch {
	case c.ChunkSize == 0:
		return errors.New("chunk size must be positive")
	case c.MinChunkSize == 0:
		return errors.New("min chunk size must be positive")
	case c.MinChunkSize > c.ChunkSize:
		return fmt.Errorf("min chunk size %d exceeds chunk size %d", c.MinChunkSize, c.ChunkSize)
	case c.RequestsPerSecond <= 0:
		return errors.New("requests per second must be positive")
	}
	return nil
}

type blockRange struct {
	from, to uint64
}

func (r blockRange) size() uint64 {
	return r.to - r.from + 1
}

// halves splits r into its older and newer half.
func (r blockRange) halves() (older, newer blockRange) {
	mid := r.from + r.size()/2
	return blockRange{from: r.from, to: mid - 1}, blockRange{from: mid, to: r.to}
}

// chunks splits [from, to] into ranges of at most size blocks aligned to
// from, oldest first.
func chunks(from, to, size uint64) []blockRange {
	var out []blockRange
	for lo := from; ; {
		hi := to
		if to-lo+1 > size {
			hi = lo + size - 1
		}
		out = append(out, blockRange{from: lo, to: hi})
		if hi == to {
			return out
		}
		lo = hi + 1
	}
}

// chunksDesc splits [from, to] into ranges of at most size blocks aligned to
// to, newest first.
func chunksDesc(from, to, size uint64) []blockRange {
	var out []blockRange
	for hi := to; ; {
		lo := from
		if hi-from+1 > size {
			lo = hi - size + 1
		}
		out = append(out, blockRange{from: lo, to: hi})
		if lo == from {
			return out
		}
		hi = lo - 1
	}
}

func reversed(rs []blockRange) []blockRange {
	for i, j := 0, len(rs)-1; i < j; i, j = i+1, j-1 {
		rs[i], rs[j] = rs[j], rs[i]
	}
	return rs
}

type fetcher struct {
	logs    LogRetrieval
	limiter ratelimit.Limiter
	cfg     Config
	metrics Metrics
	logger  *zap.Logger
}

func newFetcher(logger *zap.Logger, logs LogRetrieval, limiter ratelimit.Limiter, metrics Metrics, cfg Config) (*fetcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if limiter == nil {
		limiter = ratelimit.New(cfg.RequestsPerSecond)
	}
	return &fetcher{
		logs:    logs,
		limiter: limiter,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
	}, nil
}

// fetch retrieves one range, retrying transient failures with exponential backoff.
func (f *fetcher) fetch(ctx context.Context, r blockRange) ([]model.LogRecord, error) {
	started := time.Now()

	var logs []model.LogRecord
	op := func() error {
		f.limiter.Take()
		var err error
		logs, err = f.logs.GetLogs(ctx, r.from, r.to)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}
	policy := backoff.WithContext(clock.NewBackoff(f.cfg.RetryInitial, f.cfg.RetryMax, f.cfg.Retries), ctx)
	err := backoff.RetryNotify(op, policy, func(err error, next time.Duration) {
		f.logger.Warn("get logs failed, retrying",
			zap.Uint64("from", r.from),
			zap.Uint64("to", r.to),
			zap.Duration("next", next),
			zap.Error(err))
	})
	f.metrics.ObserveChunk(err, len(logs), started)
	return logs, err
}

// walk visits [from, to] chunk by chunk until visit returns false. A range that
// keeps failing is halved down to MinChunkSize; the half that comes first in
// walking order is fetched first. A failure at the minimum size, or
// cancellation, ends the walk with a *model.ScanError.
func (f *fetcher) walk(ctx context.Context, from, to, size uint64, newestFirst bool, visit func([]model.LogRecord) bool) error {
	if size == 0 {
		size = f.cfg.ChunkSize
	}
	if from > to {
		return nil
	}

	// pending is a stack; the next range to fetch is at the end.
	var pending []blockRange
	if newestFirst {
		pending = reversed(chunksDesc(from, to, size))
	} else {
		pending = reversed(chunks(from, to, size))
	}

	for len(pending) > 0 {
		r := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		if err := ctx.Err(); err != nil {
			return &model.ScanError{From: r.from, To: r.to, Err: err}
		}

		logs, err := f.fetch(ctx, r)
		if err != nil {
			if ctx.Err() != nil || r.size() <= f.cfg.MinChunkSize || r.size() < 2 {
				return &model.ScanError{From: r.from, To: r.to, Err: err}
			}
			older, newer := r.halves()
			f.metrics.ObserveSplit()
			f.logger.Info("halving failing chunk",
				zap.Uint64("from", r.from),
				zap.Uint64("to", r.to),
				zap.Error(err))
			if newestFirst {
				pending = append(pending, older, newer)
			} else {
				pending = append(pending, newer, older)
			}
			continue
		}

		if !visit(logs) {
			return nil
		}
	}
	return nil
}
