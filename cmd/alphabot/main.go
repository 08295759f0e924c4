package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xDyN/AlphaBot/internal/api"
	"github.com/xDyN/AlphaBot/internal/capture"
	"github.com/xDyN/AlphaBot/internal/clock"
	"github.com/xDyN/AlphaBot/internal/config"
	"github.com/xDyN/AlphaBot/internal/events"
	"github.com/xDyN/AlphaBot/internal/feed"
	"github.com/xDyN/AlphaBot/internal/fort"
	"github.com/xDyN/AlphaBot/internal/gamedata"
	"github.com/xDyN/AlphaBot/internal/inventory"
	"github.com/xDyN/AlphaBot/internal/metrics"
	"github.com/xDyN/AlphaBot/internal/movement"
	"github.com/xDyN/AlphaBot/internal/orchestrator"
	"github.com/xDyN/AlphaBot/internal/position"
	"github.com/xDyN/AlphaBot/internal/protocol"
	"github.com/xDyN/AlphaBot/internal/quota"
	"github.com/xDyN/AlphaBot/internal/snipe"
	"github.com/xDyN/AlphaBot/internal/storage"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "alphabot",
	Short: "AlphaBot - unattended player for a location-based creature game",
	Long: `AlphaBot logs in, walks to nearby forts, spins them, captures creatures
reported by a spawn feed and keeps the bag within the configured limits.

It runs until interrupted. Configuration is read from --config, or from
./configs/config.toml, or from ~/.alphabot/config.toml, and is reloaded
when the file changes.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to config.toml")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "alphabot: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	if err := config.LoadEnvFile(".env"); err != nil {
		return err
	}
	path, err := config.Discover(configPath)
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger = logger.With(zap.String("run_id", uuid.NewString()))
	defer func() { _ = logger.Sync() }()
	logger.Info("AlphaBot starting", zap.String("config", path), zap.String("account", cfg.Username))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return err
	}
	dbConfig := storage.DefaultConfig(dbPath)
	dbConfig.AutoMigrate = true
	db, err := storage.Open(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	tables, err := gamedata.Default()
	if err != nil {
		return err
	}

	stats := metrics.NewSessionStats()
	dispatcher := events.NewEventDispatcher(logger)
	dispatcher.Register(events.NewLoggingObserver(logger))
	dispatcher.Register(events.NewMetricsObserver(stats))

	gatewayTimeout, err := cfg.GatewayTimeout()
	if err != nil {
		return err
	}
	clk := clock.New()
	gatewayConfig := protocol.DefaultGatewayConfig(cfg.Gateway.URL)
	gatewayConfig.Timeout = gatewayTimeout
	gatewayConfig.Clock = clk
	feedConfig := feed.DefaultConfig(cfg.FeedURL)
	feedConfig.Clock = clk

	watcher := config.NewWatcher(path, cfg, logger)
	tracker := quota.NewTracker(db, clk)
	positions := position.NewStore(db)
	walker := movement.NewWalker(clk, positions, logger)
	invManager := inventory.NewManager(clk, tables, logger)
	engine := capture.NewEngine(clk, rand.New(rand.NewSource(time.Now().UnixNano())), tables, dispatcher, logger)
	forts := fort.NewHandler(clk, walker, invManager, tracker, tables, dispatcher, logger)
	sniper := snipe.NewCoordinator(clk, feed.NewClient(feedConfig), tracker, engine, walker, invManager, tables, logger)
	if cfg.FeedURL == "" {
		logger.Warn("feed_url is not set, sniping is disabled")
	}

	orch := orchestrator.New(orchestrator.Deps{
		Clock:      clk,
		Dial:       protocol.NewGatewayFactory(gatewayConfig, stats),
		Config:     watcher,
		Positions:  positions,
		Walker:     walker,
		Forts:      forts,
		Sniper:     sniper,
		Throws:     engine,
		Inventory:  invManager,
		Quota:      tracker,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return orch.Run(gctx) })
	g.Go(func() error { return watcher.Run(gctx) })
	if cfg.Status.Addr != "" {
		server := api.NewServer(api.Config{Addr: cfg.Status.Addr, Account: cfg.Username}, stats, tracker, logger)
		g.Go(func() error { return server.Run(gctx) })
	}

	err = g.Wait()
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		logger.Info("interrupted, shutting down")
		return nil
	}
	if err != nil {
		logger.Error("fatal error", zap.Error(err))
	}
	return err
}
