package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/soundbite/engagement/internal/config"
	"github.com/soundbite/engagement/internal/pkg/distlock"
	"github.com/soundbite/engagement/internal/pkg/logger"
	"github.com/soundbite/engagement/internal/repository/postgres"
	"github.com/soundbite/engagement/internal/service/abtest"
	"github.com/soundbite/engagement/internal/storage"
	"github.com/soundbite/engagement/internal/worker"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	path := *configPath
	if _, err := os.Stat(path); err != nil {
		path = ""
	}
	cfg, err := config.LoadFromEnv(path)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))

	if cfg.Database.URL == "" {
		logger.Error("database.url (DATABASE_URL) is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Open(cfg.Database.URL, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		pingCancel()
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	pingCancel()
	logger.Info("connected to database")

	redisClient := connectRedis(ctx, cfg.Redis.URL)
	if redisClient != nil {
		defer redisClient.Close()
	}

	var archiver abtest.Archiver
	if cfg.Archive.S3Bucket != "" {
		a, err := storage.NewS3ArchiverFromRegion(ctx, cfg.Archive.AWSRegion, cfg.Archive.S3Bucket, cfg.Archive.Prefix)
		if err != nil {
			logger.Error("failed to initialize report archive", "error", err)
			os.Exit(1)
		}
		archiver = a
	}

	abSvc := abtest.NewService(postgres.NewABTestRepo(db), archiver, abtest.Options{
		SignificanceLevel: cfg.ABTest.SignificanceLevel,
		MinDurationDays:   cfg.ABTest.MinDurationDays,
		MaxDurationDays:   cfg.ABTest.MaxDurationDays,
	}, nil)

	trending := worker.NewTrendingWorker(
		postgres.NewFeedRepo(db),
		distlock.NewLock(redisClient, db, worker.TrendingLockKey, 10*time.Minute),
		cfg.Worker.TrendingRefreshInterval(),
	)
	expiry := worker.NewExpiryWorker(
		abSvc,
		distlock.NewLock(redisClient, db, worker.ExpiryLockKey, 10*time.Minute),
		cfg.Worker.ExpiryScanInterval(),
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); trending.Start(ctx) }()
	go func() { defer wg.Done(); expiry.Start(ctx) }()
	logger.Info("worker running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down worker")
	cancel()
	wg.Wait()
	logger.Info("worker stopped")
}

// connectRedis returns nil when url is empty or unreachable; locks then use
// Postgres advisory locks.
func connectRedis(ctx context.Context, url string) *redis.Client {
	if url == "" {
		logger.Info("redis not configured, using pg advisory locks")
		return nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		logger.Warn("invalid redis url, using pg advisory locks", "error", err)
		return nil
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable, using pg advisory locks", "addr", opts.Addr, "error", err)
		client.Close()
		return nil
	}
	logger.Info("redis connected, distributed locking enabled", "addr", opts.Addr)
	return client
}
