package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pmbright/synclet/config"
	"github.com/pmbright/synclet/internal/api"
	"github.com/pmbright/synclet/internal/broker"
	"github.com/pmbright/synclet/internal/magento"
	"github.com/pmbright/synclet/internal/migration"
	"github.com/pmbright/synclet/internal/models"
	"github.com/pmbright/synclet/internal/redislock"
	"github.com/pmbright/synclet/internal/store"
	"github.com/pmbright/synclet/internal/syncer"
	"github.com/pmbright/synclet/internal/util"
	"github.com/pmbright/synclet/internal/worker"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 1 {
		printUsage()
		return 2
	}
	command := args[0]
	if command == "help" || command == "-h" || command == "--help" {
		printUsage()
		return 0
	}

	cfg, err := config.Load()
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		return 1
	}

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Printf("Failed to initialize logger: %v", err)
		return 1
	}
	defer util.SyncLogger()
	logger := util.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch command {
	case "init":
		return cmdInit(cfg, logger)
	case "test":
		return cmdTest(ctx, cfg, logger)
	case "sync":
		return cmdSync(ctx, cfg, logger, args[1:])
	case "status":
		return cmdStatus(ctx, cfg, logger)
	case "clear":
		return cmdClear(ctx, cfg, logger, args[1:])
	case "serve":
		return cmdServe(ctx, cfg, logger)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", command)
		printUsage()
		return 2
	}
}

// cmdInit creates or updates the database schema.
func cmdInit(cfg *config.Config, logger *zap.Logger) int {
	st, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		logger.Error("Failed to connect to database", zap.Error(err))
		return 1
	}
	defer st.Close()

	migrator, err := migration.New(st.GetDB().DB, logger)
	if err != nil {
		logger.Error("Failed to prepare migrations", zap.Error(err))
		return 1
	}
	if err := migrator.Up(); err != nil {
		logger.Error("Failed to apply migrations", zap.Error(err))
		return 1
	}

	logger.Info("Database initialized")
	return 0
}

// cmdTest checks API and database connectivity and reports both.
func cmdTest(ctx context.Context, cfg *config.Config, logger *zap.Logger) int {
	failed := false

	if err := cfg.RequireAPI(); err != nil {
		logger.Error("Configuration incomplete", zap.Error(err))
		failed = true
	} else {
		client := newAPIClient(cfg)
		version, err := client.TestConnection(ctx)
		if err != nil {
			logger.Error("API connection failed", zap.Error(err))
			failed = true
		} else {
			logger.Info("API connection OK", zap.String("platform_version", version))
		}
	}

	st, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		logger.Error("Database connection failed", zap.Error(err))
		failed = true
	} else {
		st.Close()
		logger.Info("Database connection OK")
	}

	if failed {
		return 1
	}
	return 0
}

// cmdSync runs one sync now and exits with the run's outcome.
func cmdSync(ctx context.Context, cfg *config.Config, logger *zap.Logger, args []string) int {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	forceInitial := fs.Bool("force-initial", false, "re-sync everything from INITIAL_SYNC_DATE")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if err := cfg.RequireAPI(); err != nil {
		logger.Error("Configuration incomplete", zap.Error(err))
		return 1
	}

	tracerCleanup := initTracing(cfg, logger)
	defer tracerCleanup()

	st, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		logger.Error("Failed to connect to database", zap.Error(err))
		return 1
	}
	defer st.Close()

	sync, cleanup, err := buildSyncer(cfg, st, logger)
	if err != nil {
		logger.Error("Failed to build syncer", zap.Error(err))
		return 1
	}
	defer cleanup()

	res, err := sync.Run(ctx, syncer.RunOptions{ForceInitial: *forceInitial})
	if errors.Is(err, syncer.ErrRunInProgress) {
		logger.Warn("Another sync run is already in progress")
		return 1
	}
	if err != nil {
		logger.Error("Sync run failed", zap.Error(err))
		return 1
	}

	switch res.Outcome {
	case models.OutcomeFailed:
		logger.Error("Sync failed",
			zap.String("run_id", res.RunID),
			zap.Int("pages", res.Pages),
			zap.Int("upserted", res.Upserted),
			zap.Int("failed", res.Failed))
		return 1
	case models.OutcomePartial:
		logger.Warn("Sync completed with skipped orders",
			zap.String("run_id", res.RunID),
			zap.Int("pages", res.Pages),
			zap.Int("upserted", res.Upserted),
			zap.Int("failed", res.Failed))
		return 0
	default:
		logger.Info("Sync completed",
			zap.String("run_id", res.RunID),
			zap.String("mode", res.Mode),
			zap.Int("pages", res.Pages),
			zap.Int("upserted", res.Upserted))
		return 0
	}
}

// cmdStatus prints the watermark, the last run and the freshest orders.
func cmdStatus(ctx context.Context, cfg *config.Config, logger *zap.Logger) int {
	st, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		logger.Error("Failed to connect to database", zap.Error(err))
		return 1
	}
	defer st.Close()

	watermark, err := st.GetLastWatermark(ctx)
	if err != nil {
		logger.Error("Failed to read watermark", zap.Error(err))
		return 1
	}
	lastRun, err := st.LastRun(ctx)
	if err != nil {
		logger.Error("Failed to read sync history", zap.Error(err))
		return 1
	}
	count, err := st.CountOrders(ctx)
	if err != nil {
		logger.Error("Failed to count orders", zap.Error(err))
		return 1
	}
	recent, err := st.RecentOrders(ctx, 5)
	if err != nil {
		logger.Error("Failed to read orders", zap.Error(err))
		return 1
	}

	if watermark == nil {
		fmt.Println("Watermark:     none (next run will be an initial sync)")
	} else {
		fmt.Printf("Watermark:     %s\n", watermark.UTC().Format(time.RFC3339))
	}
	if lastRun == nil {
		fmt.Println("Last run:      never")
	} else {
		fmt.Printf("Last run:      %s  mode=%s outcome=%s pages=%d upserted=%d failed=%d\n",
			lastRun.StartedAt.UTC().Format(time.RFC3339),
			lastRun.Mode, lastRun.Outcome,
			lastRun.PagesFetched, lastRun.OrdersUpserted, lastRun.OrdersFailed)
		if lastRun.ErrorSummary != "" {
			fmt.Printf("               errors: %s\n", lastRun.ErrorSummary)
		}
	}
	fmt.Printf("Orders stored: %d\n", count)

	if len(recent) > 0 {
		fmt.Println("\nMost recently updated orders:")
		for _, o := range recent {
			fmt.Printf("  %-14s %s  %8s %s  %s\n",
				o.OrderNumber,
				o.LastUpdatedDate.UTC().Format("2006-01-02 15:04:05"),
				o.Total.StringFixed(2), o.CurrencyCode, o.Status)
		}
	}
	return 0
}

// cmdClear wipes the mirror and the sync history after confirmation.
func cmdClear(ctx context.Context, cfg *config.Config, logger *zap.Logger, args []string) int {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if !*yes {
		fmt.Print("This deletes every mirrored order and the sync history. Type 'yes' to continue: ")
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		if strings.ToLower(strings.TrimSpace(answer)) != "yes" {
			fmt.Println("Aborted.")
			return 1
		}
	}

	st, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		logger.Error("Failed to connect to database", zap.Error(err))
		return 1
	}
	defer st.Close()

	if err := st.ClearAll(ctx); err != nil {
		logger.Error("Failed to clear mirror", zap.Error(err))
		return 1
	}

	logger.Info("Mirror cleared")
	return 0
}

// cmdServe runs the interval scheduler with an HTTP status surface.
func cmdServe(ctx context.Context, cfg *config.Config, logger *zap.Logger) int {
	if err := cfg.RequireAPI(); err != nil {
		logger.Error("Configuration incomplete", zap.Error(err))
		return 1
	}

	tracerCleanup := initTracing(cfg, logger)
	defer tracerCleanup()

	st, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		logger.Error("Failed to connect to database", zap.Error(err))
		return 1
	}
	defer st.Close()
	logger.Info("Database connected")

	sync, cleanup, err := buildSyncer(cfg, st, logger)
	if err != nil {
		logger.Error("Failed to build syncer", zap.Error(err))
		return 1
	}
	defer cleanup()

	scheduler := worker.NewScheduler(sync, time.Duration(cfg.Sync.IntervalMinutes)*time.Minute)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	go func() {
		if err := scheduler.Start(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Scheduler stopped", zap.Error(err))
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(st)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	workerCancel()

	logger.Info("Server exited")
	return 0
}

func newAPIClient(cfg *config.Config) *magento.Client {
	return magento.NewClient(magento.ClientConfig{
		BaseURL:    cfg.API.BaseURL,
		AccessKey:  cfg.API.AccessKey,
		Timeout:    time.Duration(cfg.API.TimeoutSeconds) * time.Second,
		MaxRetries: cfg.API.MaxRetries,
		RetryDelay: time.Duration(cfg.API.RetryDelayMS) * time.Millisecond,
	})
}

// buildSyncer wires the fetcher, the run lock and optional event publishing.
// Redis and Kafka are conveniences, not requirements: without Redis the run
// lock lives in Postgres, without Kafka no events are published.
func buildSyncer(cfg *config.Config, st *store.Store, logger *zap.Logger) (*syncer.Syncer, func(), error) {
	client := newAPIClient(cfg)

	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	var locker syncer.RunLocker = st.RunLock()
	if cfg.Redis.Addr != "" {
		ttl := time.Duration(cfg.Redis.LockTTLMinutes) * time.Minute
		lock, err := redislock.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, ttl)
		if err != nil {
			logger.Warn("Redis unavailable, using database advisory lock", zap.Error(err))
		} else {
			locker = lock
			cleanups = append(cleanups, func() { lock.Close() })
			logger.Info("Redis run lock enabled", zap.String("addr", cfg.Redis.Addr))
		}
	}

	var publisher syncer.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicSyncEvents)
		cleanups = append(cleanups, func() { producer.Close() })
		publisher = broker.NewEventPublisher(producer)
		logger.Info("Kafka event publishing enabled", zap.Strings("brokers", cfg.Kafka.Brokers))
	}

	sync, err := syncer.New(syncer.Config{
		Store:       st,
		Fetcher:     client,
		Locker:      locker,
		Publisher:   publisher,
		InitialDate: cfg.Sync.InitialSyncDate,
		PageSize:    cfg.Sync.PageSize,
		MaxPages:    cfg.Sync.MaxPages,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return sync, cleanup, nil
}

// initTracing starts the Jaeger exporter when configured and returns its
// shutdown func.
func initTracing(cfg *config.Config, logger *zap.Logger) func() {
	if cfg.Observ.JaegerEndpoint == "" {
		return func() {}
	}

	tp, err := util.InitTracer("synclet", cfg.Observ.JaegerEndpoint)
	if err != nil {
		logger.Warn("Failed to initialize tracer", zap.Error(err))
		return func() {}
	}
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Error shutting down tracer", zap.Error(err))
		}
	}
}

func printUsage() {
	fmt.Fprint(os.Stderr, `synclet mirrors orders from a remote commerce API into Postgres.

Usage:
  synclet <command> [flags]

Commands:
  init     create or update the database schema
  test     check API and database connectivity
  sync     run one sync now (--force-initial re-syncs from INITIAL_SYNC_DATE)
  status   show the watermark, the last run and recent orders
  clear    wipe the mirror and sync history (--yes skips the prompt)
  serve    run the interval scheduler with an HTTP status endpoint

Configuration comes from the environment or a .env file.
`)
}
