package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/tierwatch-backend/internal/artifact"
	"github.com/goodnatureofminers/tierwatch-backend/internal/cache"
	"github.com/goodnatureofminers/tierwatch-backend/internal/decode"
	"github.com/goodnatureofminers/tierwatch-backend/internal/evm"
	"github.com/goodnatureofminers/tierwatch-backend/internal/metrics"
	"github.com/goodnatureofminers/tierwatch-backend/internal/model"
	"github.com/goodnatureofminers/tierwatch-backend/internal/repository/clickhouse"
	"github.com/goodnatureofminers/tierwatch-backend/internal/scan"
	"github.com/goodnatureofminers/tierwatch-backend/internal/service/resolver"
	"github.com/goodnatureofminers/tierwatch-backend/internal/subgraph"
)

type config struct {
	RPCURL          string        `long:"rpc-url" env:"TIER_RESOLVER_RPC_URL" description:"EVM JSON-RPC URL" required:"true"`
	Chain           string        `long:"chain" env:"TIER_RESOLVER_CHAIN" description:"chain label for metrics" default:"polygon"`
	Contract        string        `long:"contract" env:"TIER_RESOLVER_CONTRACT" description:"tournament contract address" required:"true"`
	SubgraphURL     string        `long:"subgraph-url" env:"TIER_RESOLVER_SUBGRAPH_URL" description:"GraphQL endpoint with win events" required:"true"`
	SubgraphEntity  string        `long:"subgraph-entity" env:"TIER_RESOLVER_SUBGRAPH_ENTITY" description:"entity collection to page" default:"tournamentWins"`
	IdentifierField string        `long:"identifier-field" env:"TIER_RESOLVER_IDENTIFIER_FIELD" description:"entity field holding the tournament id" default:"tournamentId"`
	CachePath       string        `long:"cache-path" env:"TIER_RESOLVER_CACHE_PATH" description:"tier cache file" default:"data/tier-cache.json"`
	ReportPath      string        `long:"report-path" env:"TIER_RESOLVER_REPORT_PATH" description:"report output file" default:"data/tier-report.json"`
	UseCache        bool          `long:"use-cache" env:"TIER_RESOLVER_USE_CACHE" description:"reuse cached unknown tiers of the current decode version"`
	PageSize        int           `long:"page-size" env:"TIER_RESOLVER_PAGE_SIZE" description:"subgraph page size" default:"1000"`
	MaxPages        int           `long:"max-pages" env:"TIER_RESOLVER_MAX_PAGES" description:"stop paging after this many pages, 0 for all" default:"0"`
	Workers         int           `long:"workers" env:"TIER_RESOLVER_WORKERS" description:"concurrent identifier resolutions" default:"4"`
	Lookback        uint64        `long:"lookback" env:"TIER_RESOLVER_LOOKBACK" description:"initial lookback in blocks" default:"20000"`
	ChunkSize       uint64        `long:"chunk-size" env:"TIER_RESOLVER_CHUNK_SIZE" description:"blocks per eth_getLogs call" default:"2000"`
	MinChunkSize    uint64        `long:"min-chunk-size" env:"TIER_RESOLVER_MIN_CHUNK_SIZE" description:"smallest chunk after halving" default:"250"`
	RPS             int           `long:"rps" env:"TIER_RESOLVER_RPS" description:"eth_getLogs calls per second" default:"5"`
	ExpandAttempts  int           `long:"expand-attempts" env:"TIER_RESOLVER_EXPAND_ATTEMPTS" description:"lookback expansions after an exhausted scan" default:"2"`
	DecodeWindow    int           `long:"decode-window" env:"TIER_RESOLVER_DECODE_WINDOW" description:"words inspected on each side of the identifier" default:"40"`
	DecodeSpan      int           `long:"decode-span" env:"TIER_RESOLVER_DECODE_SPAN" description:"max words between min and max candidates" default:"14"`
	DecodeMaxDrift  uint64        `long:"decode-max-drift" env:"TIER_RESOLVER_DECODE_MAX_DRIFT" description:"max difference between bracket max and min" default:"4"`
	DecodeMinCeil   uint64        `long:"decode-min-ceiling" env:"TIER_RESOLVER_DECODE_MIN_CEILING" description:"largest value accepted as a bracket min" default:"30"`
	DecodeSafeCeil  uint64        `long:"decode-safe-ceiling" env:"TIER_RESOLVER_DECODE_SAFE_CEILING" description:"largest value treated as a small integer" default:"10000"`
	DecodePenalty   int           `long:"decode-distance-penalty" env:"TIER_RESOLVER_DECODE_DISTANCE_PENALTY" description:"score penalty per word between min and identifier" default:"80"`
	DecodeBonus     int           `long:"decode-exact-bonus" env:"TIER_RESOLVER_DECODE_EXACT_BONUS" description:"score bonus when min equals max" default:"25"`
	ExportCache     bool          `long:"export-cache" env:"TIER_RESOLVER_EXPORT_CACHE" description:"also export every cached resolution to ClickHouse"`
	ClickhouseDSN   string        `long:"clickhouse-dsn" env:"TIER_RESOLVER_CLICKHOUSE_DSN" description:"optional ClickHouse DSN for exporting resolutions"`
	HTTPTimeout     time.Duration `long:"http-timeout" env:"TIER_RESOLVER_HTTP_TIMEOUT" description:"subgraph request timeout" default:"15s"`
	MetricsAddr     string        `long:"metrics-addr" env:"TIER_RESOLVER_METRICS_ADDR" description:"address for metrics server" default:":2112"`
}

func main() {
	cfg := config{}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()

	if _, err := flags.ParseArgs(&cfg, os.Args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		logger.Fatal("failed to parse flags", zap.Error(err))
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("tier resolver failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config, logger *zap.Logger) error {
	startMetricsServer(ctx, cfg.MetricsAddr, logger)

	engine, err := decode.NewEngine(decodeConfig(cfg))
	if err != nil {
		return fmt.Errorf("init decode engine: %w", err)
	}
	version := engine.Version()
	logger.Info("decode engine ready", zap.String("decode_version", version))

	client, err := evm.Dial(ctx, cfg.RPCURL, cfg.Contract, metrics.NewRPCClient(cfg.Chain))
	if err != nil {
		return fmt.Errorf("init evm client: %w", err)
	}
	defer client.Close()

	scanCfg := scan.DefaultConfig()
	scanCfg.ChunkSize = cfg.ChunkSize
	scanCfg.MinChunkSize = cfg.MinChunkSize
	scanCfg.RequestsPerSecond = cfg.RPS
	scanner, err := scan.NewScanner(
		logger.Named("scanner"),
		client,
		engine,
		ratelimit.New(cfg.RPS),
		metrics.NewScanner(),
		scanCfg,
	)
	if err != nil {
		return fmt.Errorf("init scanner: %w", err)
	}

	tierCache, err := cache.Open(logger.Named("cache"), cfg.CachePath, version, metrics.NewCache())
	if err != nil {
		return fmt.Errorf("open tier cache: %w", err)
	}
	logger.Info("tier cache loaded", zap.String("path", cfg.CachePath), zap.Int("entries", tierCache.Len()))

	pagerCfg := subgraph.DefaultConfig()
	pagerCfg.URL = cfg.SubgraphURL
	pagerCfg.Entity = cfg.SubgraphEntity
	pagerCfg.Fields.Identifier = cfg.IdentifierField
	pagerCfg.Timeout = cfg.HTTPTimeout
	pager, err := subgraph.NewPager(pagerCfg)
	if err != nil {
		return fmt.Errorf("init subgraph pager: %w", err)
	}

	var (
		sink    resolver.Sink
		export  *clickhouse.ResolutionSink
		repo    *clickhouse.Repository
		sinkCtx = context.WithoutCancel(ctx)
	)
	if cfg.ClickhouseDSN != "" {
		repo, err = clickhouse.NewRepository(cfg.ClickhouseDSN, metrics.NewClickhouseRepository())
		if err != nil {
			return fmt.Errorf("init repository: %w", err)
		}
		defer func() {
			_ = repo.Close()
		}()
		export = clickhouse.NewResolutionSink(logger, repo, clickhouse.DefaultSinkConfig())
		export.Start(sinkCtx)
		sink = export
	}
	if export != nil && cfg.ExportCache {
		n, err := exportCached(sinkCtx, export, tierCache.All())
		if err != nil {
			return fmt.Errorf("export cached resolutions: %w", err)
		}
		logger.Info("cached resolutions queued", zap.Int("count", n))
	}

	svcCfg := resolver.DefaultConfig()
	svcCfg.PageSize = cfg.PageSize
	svcCfg.MaxPages = cfg.MaxPages
	svcCfg.Workers = cfg.Workers
	svcCfg.LookbackBlocks = cfg.Lookback
	svcCfg.ChunkSize = cfg.ChunkSize
	svcCfg.ExpandAttempts = cfg.ExpandAttempts
	svcCfg.UseCache = cfg.UseCache
	svcCfg.DecodeVersion = version

	svc, err := resolver.NewService(
		pager,
		scanner,
		tierCache,
		sink,
		metrics.NewResolver(),
		logger.Named("resolver"),
		svcCfg,
	)
	if err != nil {
		return fmt.Errorf("init resolver: %w", err)
	}

	report, runErr := svc.Run(ctx)
	if export != nil {
		export.Stop()
		if failed := export.Failed(); failed > 0 {
			logger.Warn("resolutions not exported", zap.Int64("failed", failed))
		}
	}
	if runErr != nil && report.Resolutions == nil {
		return fmt.Errorf("resolve tiers: %w", runErr)
	}

	if err := artifact.WriteReport(cfg.ReportPath, artifact.ReportDocument{
		GeneratedAt:   time.Now().UTC(),
		DecodeVersion: version,
		Stats:         report.Stats,
		Resolutions:   report.Resolutions,
	}); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	logger.Info("report written",
		zap.String("path", cfg.ReportPath),
		zap.Int("identifiers", report.Stats.Identifiers),
		zap.Int("resolved", report.Stats.Resolved),
		zap.Int("unknown", report.Stats.Unknown),
		zap.Int("scan_errors", report.Stats.ScanErrors),
		zap.Int("cache_hits", report.Stats.CacheHits))

	if repo != nil && runErr == nil {
		counts, err := repo.TierCounts(sinkCtx, version)
		if err != nil {
			logger.Warn("tier counts unavailable", zap.Error(err))
		} else {
			logger.Info("exported tier counts",
				zap.Uint64("tier_10", counts[model.Tier10]),
				zap.Uint64("tier_20", counts[model.Tier20]),
				zap.Uint64("unknown", counts[model.TierUnknown]))
		}
	}
	return runErr
}

func decodeConfig(cfg config) decode.Config {
	return decode.Config{
		Window:          cfg.DecodeWindow,
		Span:            cfg.DecodeSpan,
		MaxDrift:        cfg.DecodeMaxDrift,
		MinCeiling:      cfg.DecodeMinCeil,
		SafeCeiling:     cfg.DecodeSafeCeil,
		DistancePenalty: cfg.DecodePenalty,
		ExactBonus:      cfg.DecodeBonus,
	}
}

// exportCached queues cache entries of every decode version. Failed entries
// are skipped; they never carry a tier worth exporting.
func exportCached(ctx context.Context, sink resolver.Sink, entries []model.TierResolution) (int, error) {
	n := 0
	for _, res := range entries {
		if res.Error != nil {
			continue
		}
		if err := sink.Add(ctx, res); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func startMetricsServer(ctx context.Context, addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("starting metrics server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown metrics server", zap.Error(err))
		}
	}()
}
