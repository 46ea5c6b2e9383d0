package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"leetcode_deck/internal/config"
	"leetcode_deck/internal/domain"
	"leetcode_deck/internal/lock"
	"leetcode_deck/internal/publisher"
	"leetcode_deck/internal/ratelimit"
	"leetcode_deck/internal/scheduler"
	"leetcode_deck/internal/service"
	"leetcode_deck/internal/source/leetcode"
	"leetcode_deck/internal/storage/postgres"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to config file")
	watch := flag.Bool("watch", false, "harvest every harvest.interval instead of once")
	workers := flag.Int("workers", 0, "worker count, overrides harvest.workers")
	flag.Parse()

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return 1
	}
	if err := cfg.OverrideWorkers(*workers); err != nil {
		logger.Error("invalid -workers", "workers", *workers, "error", err)
		return 1
	}

	logger = setupLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(ctx, cfg.Database.Driver, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return 1
	}
	defer db.Close()
	logger.Info("connected to database", "driver", cfg.Database.Driver)

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(db.DB, logger); err != nil {
			logger.Error("failed to migrate database", "error", err)
			return 1
		}
	}

	var pub service.Publisher
	if cfg.RabbitMQ.URL != "" {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			return 1
		}
		defer rabbitMQ.Close()
		pub = rabbitMQ
	}

	var locker service.Locker
	if cfg.Redis.Addr != "" {
		redisLock, err := lock.NewRedisLock(ctx, lock.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Key:      cfg.Redis.LockKey,
			TTL:      cfg.Redis.LockTTL,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			return 1
		}
		defer redisLock.Close()
		locker = redisLock
	}

	src := leetcode.New(leetcode.Config{
		BaseURL:        cfg.LeetCode.BaseURL,
		Session:        cfg.LeetCode.Session,
		CSRFToken:      cfg.LeetCode.CSRFToken,
		Timeout:        cfg.LeetCode.Timeout,
		MaxAttempts:    cfg.LeetCode.Retry.MaxAttempts,
		InitialBackoff: cfg.LeetCode.Retry.InitialBackoff,
		MaxBackoff:     cfg.LeetCode.Retry.MaxBackoff,
	}, logger)

	governor := ratelimit.NewGovernor(ratelimit.Config{
		DelayMin: cfg.Harvest.DelayMin,
		DelayMax: cfg.Harvest.DelayMax,
		MaxRPS:   cfg.Harvest.MaxRPS,
	})

	harvester := service.NewHarvester(
		src,
		service.Stores{
			Problems:    postgres.NewProblemStore(db),
			Tags:        postgres.NewTagStore(db),
			Solutions:   postgres.NewSolutionStore(db),
			Submissions: postgres.NewSubmissionStore(db),
			Runs:        postgres.NewRunStore(db),
			Tx:          postgres.NewTransactionManager(db),
		},
		pub,
		governor,
		locker,
		logger,
		cfg.Harvest,
	)

	logger.Info("starting harvester",
		"source", src.Name(),
		"workers", cfg.Harvest.Workers,
		"watch", *watch,
		"publish", pub != nil,
		"lock", locker != nil,
	)

	if *watch {
		sched := scheduler.NewScheduler(harvester, cfg.Harvest.Interval, logger)
		if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("scheduler error", "error", err)
			return 1
		}
		return 0
	}

	stats, err := harvester.Run(ctx)
	if err != nil {
		logger.Error("harvest failed", "error", err, "fatal", domain.IsFatal(err))
		return 1
	}

	for _, f := range stats.Failures {
		logger.Warn("problem not harvested", "slug", f.Slug, "reason", f.Reason)
	}
	return 0
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
