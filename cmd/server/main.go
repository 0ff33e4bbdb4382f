package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/huarongfei/Event-Control-System/internal/broadcast"
	"github.com/huarongfei/Event-Control-System/internal/config"
	"github.com/huarongfei/Event-Control-System/internal/database"
	"github.com/huarongfei/Event-Control-System/internal/migrations"
	"github.com/huarongfei/Event-Control-System/internal/scoring"
	"github.com/huarongfei/Event-Control-System/internal/server"
	"github.com/huarongfei/Event-Control-System/internal/timer"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- SQLite ---
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath)

	store := server.NewSQLiteStore(db)
	if cfg.SeedDemo {
		if err := server.SeedDemo(ctx, logger, store); err != nil {
			return fmt.Errorf("seeding demo data: %w", err)
		}
	}

	checks := map[string]server.Checker{
		"sqlite": server.CheckFunc(db.PingContext),
	}

	// --- Broadcast ---
	var remotes []broadcast.Publisher
	if cfg.RedisURL != "" {
		rdb, err := openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		logger.Info("connected to redis", "stream_prefix", cfg.BroadcastStreamPrefix)

		remotes = append(remotes, broadcast.NewStreamPublisher(rdb, cfg.BroadcastStreamPrefix))
		checks["redis"] = server.CheckFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}
	fanout := broadcast.NewFanout(logger, broadcast.NewBroker(), remotes...)

	// --- Engines and timers ---
	engines := scoring.NewRegistry()
	timers := timer.NewRegistry(logger,
		timer.WithTickInterval(cfg.TimerTickInterval),
		timer.OnCreate(server.ForwardTimers(ctx, logger, fanout)),
	)
	defer engines.ClearAll()
	defer timers.ClearAll()

	console := server.NewConsole(logger, store, engines, timers, fanout)

	// --- HTTP Server ---
	if cfg.OperatorKeyHash == "" {
		logger.Warn("OPERATOR_KEY_HASH is empty, mutating routes are open")
	}
	srv := server.New(cfg.HTTPAddr, logger, console, server.Options{
		OperatorKeyHash: cfg.OperatorKeyHash,
		CORSOrigins:     cfg.CORSOrigins,
		Checks:          checks,
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}
