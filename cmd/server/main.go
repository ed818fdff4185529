package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/soundbite/engagement/internal/api"
	"github.com/soundbite/engagement/internal/auth"
	"github.com/soundbite/engagement/internal/config"
	"github.com/soundbite/engagement/internal/metrics"
	"github.com/soundbite/engagement/internal/pkg/logger"
	"github.com/soundbite/engagement/internal/repository/postgres"
	"github.com/soundbite/engagement/internal/service/abtest"
	"github.com/soundbite/engagement/internal/service/allocation"
	"github.com/soundbite/engagement/internal/service/dedup"
	"github.com/soundbite/engagement/internal/service/feed"
	"github.com/soundbite/engagement/internal/service/ingest"
	"github.com/soundbite/engagement/internal/storage"
	"github.com/soundbite/engagement/internal/tracking"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))

	if cfg.Auth.JWTSecret == "" {
		logger.Error("auth.jwt_secret (JWT_SECRET) is required")
		os.Exit(1)
	}
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

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	deduper, closeDedup, err := newDeduplicator(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize deduplicator", "error", err)
		os.Exit(1)
	}
	defer closeDedup()

	var publisher tracking.Publisher = tracking.NopPublisher{}
	var sqsPublisher *tracking.SQSPublisher
	if cfg.Tracking.SQSQueueURL != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Tracking.AWSRegion))
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		sqsPublisher = tracking.NewSQSPublisher(sqs.NewFromConfig(awsCfg), cfg.Tracking.SQSQueueURL)
		publisher = sqsPublisher
		logger.Info("event stream enabled", "queue_url", cfg.Tracking.SQSQueueURL)
	} else {
		logger.Info("event stream disabled (tracking.sqs_queue_url not set)")
	}

	var archiver abtest.Archiver
	if cfg.Archive.S3Bucket != "" {
		a, err := storage.NewS3ArchiverFromRegion(ctx, cfg.Archive.AWSRegion, cfg.Archive.S3Bucket, cfg.Archive.Prefix)
		if err != nil {
			logger.Error("failed to initialize report archive", "error", err)
			os.Exit(1)
		}
		archiver = a
		logger.Info("report archive enabled", "bucket", cfg.Archive.S3Bucket)
	}

	ingestSvc := ingest.NewService(postgres.NewEventRepo(db), deduper, publisher, m)
	allocSvc := allocation.NewService(postgres.NewAllocationRepo(db), ingestSvc, m)
	feedSvc := feed.NewService(postgres.NewFeedRepo(db), feedOptions(cfg.Feed), m)
	abSvc := abtest.NewService(postgres.NewABTestRepo(db), archiver, abtestOptions(cfg.ABTest), m)

	handlers := api.NewHandlers(ingestSvc, allocSvc, feedSvc, abSvc, db)
	router := api.SetupRoutes(handlers, auth.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer), api.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Metrics:        m.Handler(),
	})
	server := api.NewServer(cfg.Server, router)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := server.Start(); err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if sqsPublisher != nil {
		sqsPublisher.Wait()
	}
	logger.Info("server stopped")
}

// loadConfig reads path when it exists and falls back to defaults plus
// environment overrides otherwise.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); err != nil {
		path = ""
	}
	return config.LoadFromEnv(path)
}

// newDeduplicator builds the configured dedup backing. The returned func
// releases its resources.
func newDeduplicator(ctx context.Context, cfg *config.Config) (dedup.Deduplicator, func(), error) {
	if cfg.Dedup.Backend == "redis" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, nil, err
		}
		client := redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, nil, err
		}
		logger.Info("dedup backend: redis", "addr", opts.Addr)
		return dedup.NewRedis(client), func() { client.Close() }, nil
	}

	mem := dedup.NewMemory(cfg.Dedup.MaxEntries, cfg.Dedup.SweepInterval())
	go mem.Run(ctx)
	logger.Info("dedup backend: memory", "max_entries", cfg.Dedup.MaxEntries)
	return mem, func() {}, nil
}

func feedOptions(c config.FeedConfig) feed.Options {
	return feed.Options{
		TrendingWindow:      c.TrendingWindow(),
		NewWindow:           c.NewWindow(),
		UndergroundMaxViews: int64(c.UndergroundMaxViews),
		DiversityCap:        c.DiversityCap,
		DefaultLimit:        c.DefaultLimit,
		MaxLimit:            c.MaxLimit,
		CandidateMultiplier: c.CandidateMultiplier,
	}
}

func abtestOptions(c config.ABTestConfig) abtest.Options {
	return abtest.Options{
		SignificanceLevel: c.SignificanceLevel,
		MinDurationDays:   c.MinDurationDays,
		MaxDurationDays:   c.MaxDurationDays,
	}
}
