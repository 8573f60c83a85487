// Package resolver pages win events and resolves the tier of every tournament they reference.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/tierwatch-backend/internal/cache"
	"github.com/goodnatureofminers/tierwatch-backend/internal/clock"
	"github.com/goodnatureofminers/tierwatch-backend/internal/model"
	"github.com/goodnatureofminers/tierwatch-backend/internal/scan"
	"github.com/goodnatureofminers/tierwatch-backend/pkg/workerpool"
)

// Config controls paging, fan-out and the scan policy.
type Config struct {
	PageSize int
	// MaxPages stops paging early; 0 pages until a short page.
	MaxPages    int
	PageRetries uint64
	Workers     int

	LookbackBlocks uint64
	ChunkSize      uint64
	// LookbackGrowth multiplies the lookback after an exhausted scan.
	LookbackGrowth uint64
	ExpandAttempts int
	ScanRetries    uint64

	RetryInitial time.Duration
	RetryMax     time.Duration

	// UseCache reuses cached unknown tiers of the current version. Known
	// tiers of the current version are always reused.
	UseCache      bool
	DecodeVersion string
}

// DefaultConfig returns the production defaults. DecodeVersion must still be set.
func DefaultConfig() Config {
	return Config{
		PageSize:       1000,
		PageRetries:    5,
		Workers:        4,
		LookbackBlocks: 20_000,
		ChunkSize:      2_000,
		LookbackGrowth: 4,
		ExpandAttempts: 2,
		ScanRetries:    2,
		RetryInitial:   time.Second,
		RetryMax:       30 * time.Second,
		UseCache:       true,
	}
}

// Validate reports configuration values that cannot be used.
func (c Config) Validate() error {
	switch {
	case c.PageSize <= 0:
		return errors.New("page size must be positive")
	case c.Workers <= 0:
		return errors.New("workers must be positive")
	case c.LookbackBlocks == 0:
		return errors.New("lookback must be positive")
	case c.LookbackGrowth < 2 && c.ExpandAttempts > 0:
		return errors.New("lookback growth must be at least 2 when expanding")
	case c.ExpandAttempts < 0:
		return errors.New("expand attempts must not be negative")
	case c.DecodeVersion == "" || c.DecodeVersion == model.UnknownVersion:
		return fmt.Errorf("invalid decode version %q", c.DecodeVersion)
	}
	return nil
}

// Target is one identifier to resolve with the earliest block it was seen in.
type Target struct {
	Identifier model.Identifier
	Anchor     uint64
	Events     int
}

// Report is the outcome of Run: one resolution per identifier, sorted by identifier.
type Report struct {
	Resolutions []model.TierResolution
	Stats       model.RunStats
}

// Service is the orchestrator tying the pager, scanner and cache together.
type Service struct {
	pager   Pager
	scanner Scanner
	cache   Cache
	sink    Sink
	metrics Metrics
	logger  *zap.Logger
	cfg     Config

	sleep clock.SleepFunc
	now   func() time.Time
}

// NewService builds the orchestrator. sink is optional.
func NewService(
	pager Pager,
	scanner Scanner,
	cache Cache,
	sink Sink,
	metrics Metrics,
	logger *zap.Logger,
	cfg Config,
) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Service{
		pager:   pager,
		scanner: scanner,
		cache:   cache,
		sink:    sink,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		sleep:   clock.SleepWithContext,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// Run pages all event summaries, groups them by identifier and resolves every
// identifier. Paging failures abort the run. Cancellation during resolution
// still returns a report where unfinished identifiers carry the context error.
func (s *Service) Run(ctx context.Context) (Report, error) {
	summaries, pages, err := s.collect(ctx)
	if err != nil {
		return Report{}, err
	}

	targets := Group(summaries)
	s.logger.Info("resolving identifiers",
		zap.Int("summaries", len(summaries)),
		zap.Int("identifiers", len(targets)),
		zap.Int("workers", s.cfg.Workers))

	results, errs := workerpool.Map(ctx, s.cfg.Workers, targets, func(ctx context.Context, t Target) (outcome, error) {
		res, hit, err := s.resolveTier(ctx, t.Identifier, t.Anchor)
		return outcome{res: res, hit: hit}, err
	})

	report := Report{
		Resolutions: make([]model.TierResolution, 0, len(targets)),
		Stats: model.RunStats{
			Pages:       pages,
			Summaries:   len(summaries),
			Identifiers: len(targets),
		},
	}
	for i, t := range targets {
		res := results[i].res
		if results[i].hit {
			report.Stats.CacheHits++
		}
		if errs[i] != nil {
			s.logger.Warn("identifier not resolved",
				zap.Uint64("identifier", uint64(t.Identifier)),
				zap.Error(errs[i]))
			if res.DecodeVersion == "" {
				res = s.failed(t.Identifier, errs[i])
			}
		}
		switch {
		case res.Tier.Known():
			report.Stats.Resolved++
		case res.Error != nil:
			report.Stats.ScanErrors++
		default:
			report.Stats.Unknown++
		}
		report.Resolutions = append(report.Resolutions, res)
	}

	s.export(ctx, report.Resolutions)

	s.logger.Info("run finished",
		zap.Int("identifiers", report.Stats.Identifiers),
		zap.Int("resolved", report.Stats.Resolved),
		zap.Int("unknown", report.Stats.Unknown),
		zap.Int("scan_errors", report.Stats.ScanErrors))
	return report, ctx.Err()
}

func (s *Service) export(ctx context.Context, resolutions []model.TierResolution) {
	if s.sink == nil {
		return
	}
	for _, res := range resolutions {
		if err := s.sink.Add(ctx, res); err != nil {
			s.logger.Warn("export stopped", zap.Error(err))
			return
		}
	}
}

// collect pages until a short page, retrying each page with backoff.
func (s *Service) collect(ctx context.Context) ([]model.EventSummary, int, error) {
	var out []model.EventSummary
	pages := 0
	for skip := 0; ; {
		page, err := s.page(ctx, skip)
		if err != nil {
			return nil, pages, err
		}
		pages++
		out = append(out, page...)
		skip += len(page)

		if len(page) < s.cfg.PageSize {
			return out, pages, nil
		}
		if s.cfg.MaxPages > 0 && pages >= s.cfg.MaxPages {
			s.logger.Info("page limit reached", zap.Int("pages", pages))
			return out, pages, nil
		}
	}
}

func (s *Service) page(ctx context.Context, skip int) ([]model.EventSummary, error) {
	policy := clock.NewBackoff(s.cfg.RetryInitial, s.cfg.RetryMax, s.cfg.PageRetries)
	for {
		started := time.Now()
		page, err := s.pager.Page(ctx, s.cfg.PageSize, skip)
		s.metrics.ObservePage(err, started)
		if err == nil {
			return page, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		s.logger.Warn("page failed, retrying", zap.Int("skip", skip), zap.Error(err))
		if werr := clock.Wait(ctx, s.sleep, policy); werr != nil {
			if errors.Is(werr, clock.ErrBackoffStopped) {
				return nil, fmt.Errorf("page skip=%d: %w", skip, err)
			}
			return nil, werr
		}
	}
}

// Group collapses summaries into one target per identifier anchored at the
// earliest block, sorted by identifier.
func Group(summaries []model.EventSummary) []Target {
	byID := make(map[model.Identifier]*Target)
	for _, e := range summaries {
		t, ok := byID[e.Identifier]
		if !ok {
			byID[e.Identifier] = &Target{Identifier: e.Identifier, Anchor: e.BlockNumber, Events: 1}
			continue
		}
		t.Events++
		if e.BlockNumber < t.Anchor {
			t.Anchor = e.BlockNumber
		}
	}

	out := make([]Target, 0, len(byID))
	for _, t := range byID {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Identifier < out[j].Identifier
	})
	return out
}

type outcome struct {
	res model.TierResolution
	hit bool
}

// ResolveTier returns the cached resolution for id or scans backward from
// anchor. Decided outcomes are cached before returning; transport failures
// are reported as unknown with reason scan-error and never cached.
func (s *Service) ResolveTier(ctx context.Context, id model.Identifier, anchor uint64) (model.TierResolution, error) {
	res, _, err := s.resolveTier(ctx, id, anchor)
	return res, err
}

func (s *Service) resolveTier(ctx context.Context, id model.Identifier, anchor uint64) (model.TierResolution, bool, error) {
	started := time.Now()

	cached, status := s.cache.Lookup(id)
	if status == cache.StatusHit && (cached.Tier.Known() || s.cfg.UseCache) {
		s.metrics.ObserveCache(string(cache.StatusHit))
		return cached, true, nil
	}
	if status == cache.StatusHit {
		// cached unknown, re-resolved because UseCache is off
		s.metrics.ObserveCache("bypass")
	} else {
		s.metrics.ObserveCache(string(status))
	}

	res, err := s.resolve(ctx, id, anchor)
	s.metrics.ObserveResolution(res.Tier.String(), string(res.Reason), started)
	if err != nil {
		return res, false, err
	}

	if res.Cacheable() {
		if err := s.cache.Put(id, res); err != nil {
			return res, false, fmt.Errorf("cache identifier %d: %w", id, err)
		}
	}
	return res, false, nil
}

func (s *Service) resolve(ctx context.Context, id model.Identifier, anchor uint64) (model.TierResolution, error) {
	lookback := s.cfg.LookbackBlocks
	var skip uint64
	reason := model.ReasonExhausted

	for attempt := 0; ; attempt++ {
		cursor := model.ScanCursor{AnchorBlock: anchor, LookbackBlocks: lookback, SkipBlocks: skip, ChunkSize: s.cfg.ChunkSize}
		result, err := s.scanWithRetry(ctx, cursor, id)
		if err != nil {
			res := s.failed(id, err)
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			s.logger.Warn("scan failed",
				zap.Uint64("identifier", uint64(id)),
				zap.Uint64("anchor", anchor),
				zap.Error(err))
			return res, nil
		}

		if result.Found {
			block := result.Block
			s.logger.Debug("tier resolved",
				zap.Uint64("identifier", uint64(id)),
				zap.String("tier", result.Inference.Tier.String()),
				zap.Uint64("block", block),
				zap.String("method", string(result.Inference.Method)))
			return model.TierResolution{
				Identifier:    id,
				Tier:          result.Inference.Tier,
				MatchedBlock:  &block,
				Method:        result.Inference.Method,
				DecodeVersion: s.cfg.DecodeVersion,
				ResolvedAt:    s.now(),
				Reason:        result.Inference.Reason,
			}, nil
		}

		if result.Reason == model.ReasonAmbiguous {
			reason = model.ReasonAmbiguous
		}
		// The window already reaches genesis or the expansion budget is spent.
		if lookback >= anchor || attempt >= s.cfg.ExpandAttempts {
			s.logger.Debug("tier undecided",
				zap.Uint64("identifier", uint64(id)),
				zap.Uint64("lookback", lookback),
				zap.Error(result.Err()))
			break
		}
		// [anchor-lookback, anchor] came back empty; only the older blocks remain.
		skip = lookback + 1
		lookback *= s.cfg.LookbackGrowth
		s.logger.Debug("expanding lookback",
			zap.Uint64("identifier", uint64(id)),
			zap.Uint64("lookback", lookback))
	}

	return model.TierResolution{
		Identifier:    id,
		Tier:          model.TierUnknown,
		Method:        model.MethodNone,
		DecodeVersion: s.cfg.DecodeVersion,
		ResolvedAt:    s.now(),
		Reason:        reason,
	}, nil
}

// scanWithRetry retries scans that failed with a *model.ScanError.
func (s *Service) scanWithRetry(ctx context.Context, cursor model.ScanCursor, id model.Identifier) (scan.Result, error) {
	policy := clock.NewBackoff(s.cfg.RetryInitial, s.cfg.RetryMax, s.cfg.ScanRetries)
	for {
		result, err := s.scanner.Scan(ctx, cursor, id)
		if err == nil || !model.IsScanError(err) || ctx.Err() != nil {
			return result, err
		}
		if werr := clock.Wait(ctx, s.sleep, policy); werr != nil {
			return result, err
		}
		s.logger.Info("retrying scan", zap.Uint64("identifier", uint64(id)), zap.Error(err))
	}
}

func (s *Service) failed(id model.Identifier, err error) model.TierResolution {
	msg := err.Error()
	return model.TierResolution{
		Identifier:    id,
		Tier:          model.TierUnknown,
		Method:        model.MethodNone,
		DecodeVersion: s.cfg.DecodeVersion,
		ResolvedAt:    s.now(),
		Error:         &msg,
		Reason:        model.ReasonScanError,
	}
}
