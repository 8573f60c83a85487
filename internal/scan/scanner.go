package scan

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/ratelimit"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/tierwatch-backend/internal/decode"
	"github.com/goodnatureofminers/tierwatch-backend/internal/model"
)

// Result is the outcome of a completed scan.
type Result struct {
	Found     bool
	Reason    model.Reason
	Inference decode.Inference
	Block     uint64
	TxHash    string
	LogIndex  uint
	// Evaluated is the number of logs that reached the inference engine.
	Evaluated int
}

// Err maps an unsuccessful result to ErrDecodeAmbiguous or ErrScanExhausted.
func (r Result) Err() error {
	switch {
	case r.Found:
		return nil
	case r.Reason == model.ReasonAmbiguous:
		return model.ErrDecodeAmbiguous
	default:
		return model.ErrScanExhausted
	}
}

// Scanner searches backward from an anchor block for the first log that
// decodes to a known tier for an identifier.
type Scanner struct {
	fetcher *fetcher
	engine  Engine
	metrics Metrics
	logger  *zap.Logger
}

// NewScanner constructs a Scanner. limiter may be nil, in which case one is
// created from cfg.RequestsPerSecond; pass a shared limiter when several
// scanners hit the same endpoint.
func NewScanner(logger *zap.Logger, logs LogRetrieval, engine Engine, limiter ratelimit.Limiter, metrics Metrics, cfg Config) (*Scanner, error) {
	f, err := newFetcher(logger, logs, limiter, metrics, cfg)
	if err != nil {
		return nil, err
	}
	return &Scanner{
		fetcher: f,
		engine:  engine,
		metrics: metrics,
		logger:  logger,
	}, nil
}

// Scan walks the cursor range newest chunk first and, inside each chunk,
// newest log first. The first log yielding a known tier ends the scan.
// Running out of range is reported in the Result, not as an error; retrieval
// failures and cancellation return a *model.ScanError.
func (s *Scanner) Scan(ctx context.Context, cursor model.ScanCursor, id model.Identifier) (Result, error) {
	started := time.Now()
	from, to, ok := cursor.Range()
	target := id.Word()

	res := Result{Reason: model.ReasonExhausted}
	if !ok {
		s.metrics.ObserveScan(string(res.Reason), 0, started)
		return res, nil
	}
	ambiguous := false

	err := s.fetcher.walk(ctx, from, to, cursor.ChunkSize, true, func(logs []model.LogRecord) bool {
		sort.SliceStable(logs, func(i, j int) bool {
			return logs[i].Newer(logs[j])
		})
		for _, l := range logs {
			words := decode.Words(l)
			positions := decode.Locate(words, target)
			if len(positions) == 0 {
				continue
			}

			res.Evaluated++
			inf := s.engine.Infer(words, positions)
			if inf.Tier.Known() {
				res.Found = true
				res.Reason = inf.Reason
				res.Inference = inf
				res.Block = l.BlockNumber
				res.TxHash = l.TxHash
				res.LogIndex = l.LogIndex
				return false
			}
			if errors.Is(inf.Err(), model.ErrDecodeAmbiguous) {
				ambiguous = true
			}
		}
		return true
	})
	if err != nil {
		s.metrics.ObserveScan(string(model.ReasonScanError), res.Evaluated, started)
		return Result{Reason: model.ReasonScanError, Evaluated: res.Evaluated}, err
	}

	if !res.Found && ambiguous {
		res.Reason = model.ReasonAmbiguous
	}
	s.metrics.ObserveScan(string(res.Reason), res.Evaluated, started)
	s.logger.Debug("scan finished",
		zap.Uint64("identifier", uint64(id)),
		zap.Uint64("from", from),
		zap.Uint64("to", to),
		zap.Bool("found", res.Found),
		zap.String("reason", string(res.Reason)),
		zap.Int("evaluated", res.Evaluated))
	return res, nil
}
