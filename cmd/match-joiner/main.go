package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/tierwatch-backend/internal/artifact"
	"github.com/goodnatureofminers/tierwatch-backend/internal/evm"
	"github.com/goodnatureofminers/tierwatch-backend/internal/join"
	"github.com/goodnatureofminers/tierwatch-backend/internal/metrics"
	"github.com/goodnatureofminers/tierwatch-backend/internal/repository/clickhouse"
	"github.com/goodnatureofminers/tierwatch-backend/internal/scan"
)

type config struct {
	RPCURL        string `long:"rpc-url" env:"MATCH_JOINER_RPC_URL" description:"EVM JSON-RPC URL" required:"true"`
	Chain         string `long:"chain" env:"MATCH_JOINER_CHAIN" description:"chain label for metrics" default:"polygon"`
	Contract      string `long:"contract" env:"MATCH_JOINER_CONTRACT" description:"match contract address" required:"true"`
	MatchTopic0   string `long:"match-topic0" env:"MATCH_JOINER_MATCH_TOPIC0" description:"event signature hash of match logs" required:"true"`
	HintTopic0    string `long:"hint-topic0" env:"MATCH_JOINER_HINT_TOPIC0" description:"event signature hash of winner-hint logs" required:"true"`
	FromBlock     uint64 `long:"from-block" env:"MATCH_JOINER_FROM_BLOCK" description:"first block of the range" required:"true"`
	ToBlock       uint64 `long:"to-block" env:"MATCH_JOINER_TO_BLOCK" description:"last block of the range, 0 for the current head" default:"0"`
	ChunkSize     uint64 `long:"chunk-size" env:"MATCH_JOINER_CHUNK_SIZE" description:"blocks per eth_getLogs call" default:"2000"`
	MinChunkSize  uint64 `long:"min-chunk-size" env:"MATCH_JOINER_MIN_CHUNK_SIZE" description:"smallest chunk after halving" default:"250"`
	RPS           int    `long:"rps" env:"MATCH_JOINER_RPS" description:"eth_getLogs calls per second" default:"5"`
	MatchID       int    `long:"match-id-index" env:"MATCH_JOINER_MATCH_ID_INDEX" description:"word index of the match id" default:"1"`
	MatchPlayerA  int    `long:"match-player-a-index" env:"MATCH_JOINER_MATCH_PLAYER_A_INDEX" description:"word index of player A" default:"2"`
	MatchPlayerB  int    `long:"match-player-b-index" env:"MATCH_JOINER_MATCH_PLAYER_B_INDEX" description:"word index of player B" default:"3"`
	MatchResult   int    `long:"match-result-index" env:"MATCH_JOINER_MATCH_RESULT_INDEX" description:"word index of the result code, -1 if absent" default:"4"`
	HintID        int    `long:"hint-id-index" env:"MATCH_JOINER_HINT_ID_INDEX" description:"word index of the hinted match id" default:"1"`
	HintWinner    int    `long:"hint-winner-index" env:"MATCH_JOINER_HINT_WINNER_INDEX" description:"word index of the hinted winner" default:"2"`
	HintFlag      int    `long:"hint-flag-index" env:"MATCH_JOINER_HINT_FLAG_INDEX" description:"word index of the confirmation flag, -1 if absent" default:"3"`
	Confirmed     uint64 `long:"confirmed-flag" env:"MATCH_JOINER_CONFIRMED_FLAG" description:"flag value of confirmed hints" default:"1"`
	OutputPath    string `long:"output-path" env:"MATCH_JOINER_OUTPUT_PATH" description:"match records output file" default:"data/match-records.json"`
	ClickhouseDSN string `long:"clickhouse-dsn" env:"MATCH_JOINER_CLICKHOUSE_DSN" description:"optional ClickHouse DSN for exporting match records"`
	MetricsAddr   string `long:"metrics-addr" env:"MATCH_JOINER_METRICS_ADDR" description:"address for metrics server" default:":2113"`
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
		logger.Fatal("match joiner failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config, logger *zap.Logger) error {
	startMetricsServer(ctx, cfg.MetricsAddr, logger)

	joiner, err := join.NewJoiner(logger.Named("joiner"), metrics.NewJoiner(), join.Config{
		Match: join.MatchLayout{
			ID:         cfg.MatchID,
			PlayerA:    cfg.MatchPlayerA,
			PlayerB:    cfg.MatchPlayerB,
			ResultCode: cfg.MatchResult,
		},
		Hint: join.HintLayout{
			ID:     cfg.HintID,
			Winner: cfg.HintWinner,
			Flag:   cfg.HintFlag,
		},
		Confirmed: cfg.Confirmed,
	})
	if err != nil {
		return fmt.Errorf("init joiner: %w", err)
	}

	client, err := evm.Dial(ctx, cfg.RPCURL, cfg.Contract, metrics.NewRPCClient(cfg.Chain), cfg.MatchTopic0, cfg.HintTopic0)
	if err != nil {
		return fmt.Errorf("init evm client: %w", err)
	}
	defer client.Close()

	to := cfg.ToBlock
	if to == 0 {
		if to, err = client.LatestBlock(ctx); err != nil {
			return fmt.Errorf("latest block: %w", err)
		}
	}
	if cfg.FromBlock > to {
		return fmt.Errorf("from block %d is after to block %d", cfg.FromBlock, to)
	}

	scanCfg := scan.DefaultConfig()
	scanCfg.ChunkSize = cfg.ChunkSize
	scanCfg.MinChunkSize = cfg.MinChunkSize
	scanCfg.RequestsPerSecond = cfg.RPS
	collector, err := scan.NewCollector(logger.Named("collector"), client, ratelimit.New(cfg.RPS), metrics.NewScanner(), scanCfg)
	if err != nil {
		return fmt.Errorf("init collector: %w", err)
	}

	byTopic, err := collector.CollectByTopic(ctx, cfg.FromBlock, to, cfg.MatchTopic0, cfg.HintTopic0)
	if err != nil {
		return fmt.Errorf("collect logs: %w", err)
	}

	records, stats := joiner.JoinMatches(
		byTopic[strings.ToLower(cfg.MatchTopic0)],
		byTopic[strings.ToLower(cfg.HintTopic0)],
	)

	if err := artifact.WriteMatches(cfg.OutputPath, artifact.MatchDocument{
		GeneratedAt: time.Now().UTC(),
		FromBlock:   cfg.FromBlock,
		ToBlock:     to,
		Stats:       stats,
		Records:     records,
	}); err != nil {
		return fmt.Errorf("write match records: %w", err)
	}
	logger.Info("match records written",
		zap.String("path", cfg.OutputPath),
		zap.Uint64("from_block", cfg.FromBlock),
		zap.Uint64("to_block", to),
		zap.Int("matches", stats.Matches))

	if cfg.ClickhouseDSN == "" {
		return nil
	}
	repo, err := clickhouse.NewRepository(cfg.ClickhouseDSN, metrics.NewClickhouseRepository())
	if err != nil {
		return fmt.Errorf("init repository: %w", err)
	}
	defer func() {
		_ = repo.Close()
	}()
	if err := repo.InsertMatchRecords(ctx, records); err != nil {
		return fmt.Errorf("export match records: %w", err)
	}
	return nil
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
