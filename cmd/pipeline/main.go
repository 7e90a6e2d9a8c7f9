// Command pipeline runs the full discovery-to-trading loop: the launch
// feed, the staged enrichment workers, the paper trader, optional copy
// trading, and the periodic sweeps.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"memescope/internal/config"
	"memescope/internal/discovery"
	"memescope/internal/enrichment"
	"memescope/internal/observability"
	"memescope/internal/providers"
	"memescope/internal/solana"
	"memescope/internal/storage"
	chstore "memescope/internal/storage/clickhouse"
	"memescope/internal/storage/memory"
	"memescope/internal/storage/migrations"
	pgstore "memescope/internal/storage/postgres"
	"memescope/internal/trading"
	"memescope/internal/wallets"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("store setup failed")
	}
	defer cleanup()

	queue := createQueue(cfg, log)
	metrics := observability.NewMetrics("memescope")

	rpc := solana.NewHTTPClient(cfg.RPCEndpoint)
	prov := enrichment.Providers{
		MintRPC:   providers.NewMintParser(rpc, log),
		SwapQuote: providers.Unavailable{},
		Data:      providers.Unavailable{},
	}

	tradeCfg := trading.DefaultConfig()
	tradeCfg.Close.TimeoutHours = cfg.StalePositionMaxAge.Hours()
	tradeCfg.SOLPriceUSD = cfg.SOLPriceUSD

	var paper *trading.PaperTrader
	if cfg.PaperTrading {
		paper = trading.NewPaperTrader(stores.positions, stores.trades, tradeCfg, log).WithMetrics(metrics)
	}

	errCh := make(chan error, 4)

	var copier *trading.CopyTrader
	if cfg.CopyTrading {
		var err error
		copier, err = startCopyTrading(ctx, cfg, stores, tradeCfg, rpc, metrics, errCh, log)
		if err != nil {
			log.Fatal().Err(err).Msg("copy trading setup failed")
		}
	}

	worker := enrichment.NewWorker(queue, enrichment.Stores{
		Tokens:     stores.tokens,
		Snapshots:  stores.snapshots,
		Security:   stores.security,
		Outcomes:   stores.outcomes,
		Creators:   stores.creators,
		Signals:    stores.signals,
		Timeseries: stores.timeseries,
	}, prov, paper, nil, copier, metrics, enrichment.WorkerConfig{
		Workers:     cfg.Workers,
		SOLPriceUSD: cfg.SOLPriceUSD,
	}, log)

	go func() {
		if err := worker.Run(ctx); err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("enrichment: %w", err)
		}
	}()

	if cfg.FeedEndpoint != "" {
		feed := discovery.NewFeed(cfg.FeedEndpoint, worker.OnDiscovery, discovery.DefaultFeedConfig(), log)
		go func() {
			if err := feed.Run(ctx); err != nil && err != context.Canceled {
				errCh <- fmt.Errorf("discovery feed: %w", err)
			}
		}()
	} else {
		log.Warn().Msg("discovery feed disabled, no tokens will be ingested")
	}

	sweeps := startSweeps(ctx, cfg, stores, paper, copier, log)
	defer sweeps.Stop()

	go serveHTTP(cfg.MetricsAddr, queue, log)

	done := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()

		select {
		case sig := <-sigCh:
			log.Warn().Str("signal", sig.String()).Msg("forcing immediate shutdown")
			os.Exit(1)
		case <-time.After(30 * time.Second):
			log.Warn().Msg("graceful shutdown timed out, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		log.Error().Err(err).Msg("component failed")
		cancel()
	}

	close(done)
	log.Info().Msg("shutdown complete")
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
}

// allStores bundles every persistence dependency of the process.
type allStores struct {
	tokens     storage.TokenStore
	snapshots  storage.SnapshotStore
	security   storage.SecurityStore
	outcomes   storage.OutcomeStore
	creators   storage.CreatorStore
	signals    storage.SignalStore
	trades     storage.TradeStore
	positions  storage.PositionStore
	wallets    storage.WalletStore
	timeseries storage.SnapshotTimeseriesStore // nil without ClickHouse
}

// createStores connects Postgres and ClickHouse and runs migrations. An
// empty Postgres DSN selects the in-memory stores; an empty ClickHouse
// DSN just skips the analytic mirror.
func createStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*allStores, func(), error) {
	if cfg.PostgresDSN == "" {
		log.Warn().Msg("no postgres DSN, using in-memory stores")
		return &allStores{
			tokens:    memory.NewTokenStore(),
			snapshots: memory.NewSnapshotStore(),
			security:  memory.NewSecurityStore(),
			outcomes:  memory.NewOutcomeStore(),
			creators:  memory.NewCreatorStore(),
			signals:   memory.NewSignalStore(),
			trades:    memory.NewTradeStore(),
			positions: memory.NewPositionStore(),
			wallets:   memory.NewWalletStore(),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	stores := &allStores{
		tokens:    pgstore.NewTokenStore(pool),
		snapshots: pgstore.NewSnapshotStore(pool),
		security:  pgstore.NewSecurityStore(pool),
		outcomes:  pgstore.NewOutcomeStore(pool),
		creators:  pgstore.NewCreatorStore(pool),
		signals:   pgstore.NewSignalStore(pool),
		trades:    pgstore.NewTradeStore(pool),
		positions: pgstore.NewPositionStore(pool),
		wallets:   pgstore.NewWalletStore(pool),
	}

	var chConn *chstore.Conn
	if cfg.ClickhouseDSN != "" {
		chConn, err = migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		stores.timeseries = chstore.NewSnapshotTimeseriesStore(chConn)
	}

	cleanup := func() {
		if chConn != nil {
			chConn.Close()
		}
		pool.Close()
	}
	return stores, cleanup, nil
}

func createQueue(cfg *config.Config, log zerolog.Logger) enrichment.Queue {
	if cfg.RedisAddr == "" {
		log.Warn().Msg("no redis address, using in-memory queue")
		return enrichment.NewMemoryQueue()
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	return enrichment.NewRedisQueue(rdb, log)
}

// startCopyTrading loads the tracked wallets, connects the websocket
// and starts the watcher feeding the copy trader. Returns the copier so
// the worker can run its positions through the close decider. Mirrored
// trades stay on paper until real execution is wired in.
func startCopyTrading(ctx context.Context, cfg *config.Config, stores *allStores, tradeCfg trading.Config, rpc *solana.HTTPClient, metrics *observability.Metrics, errCh chan<- error, log zerolog.Logger) (*trading.CopyTrader, error) {
	tracked, err := stores.wallets.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tracked wallets: %w", err)
	}
	if len(tracked) == 0 {
		log.Warn().Msg("copy trading enabled but no tracked wallets configured")
		return nil, nil
	}

	registry := wallets.NewRegistry()
	registry.Replace(tracked)

	ws, err := solana.NewWSClient(ctx, cfg.WSEndpoint, log)
	if err != nil {
		return nil, fmt.Errorf("connect websocket: %w", err)
	}

	parser := providers.NewRPCTxParser(rpc, log)
	copier := trading.NewCopyTrader(parser, registry, stores.tokens, stores.positions, stores.trades, tradeCfg, true, log).WithMetrics(metrics)
	watcher := solana.NewWalletWatcher(ws, copier.OnWalletEvent, log)

	addresses := registry.Addresses()
	log.Info().Int("wallets", len(addresses)).Msg("copy trading started")

	go func() {
		defer ws.Close()
		if err := watcher.Run(ctx, addresses); err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("wallet watcher: %w", err)
		}
	}()
	return copier, nil
}

// startSweeps schedules the periodic maintenance jobs: signal decay and
// the stale position closeouts.
func startSweeps(ctx context.Context, cfg *config.Config, stores *allStores, paper *trading.PaperTrader, copier *trading.CopyTrader, log zerolog.Logger) *cron.Cron {
	c := cron.New()

	c.AddFunc("@every 5m", func() {
		cutoff := time.Now().Add(-cfg.SignalDecayWindow).UnixMilli()
		n, err := stores.signals.ExpireOlderThan(ctx, cutoff)
		if err != nil {
			log.Error().Err(err).Msg("signal decay sweep failed")
			return
		}
		if n > 0 {
			log.Info().Int("expired", n).Msg("decayed stale signals")
		}
	})

	if paper != nil {
		c.AddFunc("@every 10m", func() {
			n, err := paper.SweepStale(ctx)
			if err != nil {
				log.Error().Err(err).Msg("stale position sweep failed")
				return
			}
			if n > 0 {
				log.Info().Int("closed", n).Msg("closed stale paper positions")
			}
		})
	}

	if copier != nil {
		c.AddFunc("@every 10m", func() {
			n, err := copier.SweepStale(ctx)
			if err != nil {
				log.Error().Err(err).Msg("stale copy position sweep failed")
				return
			}
			if n > 0 {
				log.Info().Int("closed", n).Msg("closed stale copy positions")
			}
		})
	}

	c.Start()
	return c
}

// serveHTTP exposes health, metrics and a small status endpoint.
func serveHTTP(addr string, queue enrichment.Queue, log zerolog.Logger) {
	start := time.Now()
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	mux.Handle("/metrics", observability.Handler())

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		queued, _ := queue.Size(r.Context())
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"uptime_seconds": int64(time.Since(start).Seconds()),
			"queued_tasks":   queued,
		})
	})

	log.Info().Str("addr", addr).Msg("http server listening")
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("http server failed")
	}
}
