package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the engagement service
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Dedup    DedupConfig    `yaml:"dedup"`
	Feed     FeedConfig     `yaml:"feed"`
	ABTest   ABTestConfig   `yaml:"abtest"`
	Tracking TrackingConfig `yaml:"tracking"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Worker   WorkerConfig   `yaml:"worker"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds the Redis connection URL. An empty URL disables Redis;
// distributed locks then fall back to Postgres advisory locks.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// AuthConfig holds bearer token validation settings
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

// DedupConfig selects and tunes the event deduplicator backing
type DedupConfig struct {
	Backend              string `yaml:"backend"` // "memory" or "redis"
	SweepIntervalSeconds int    `yaml:"sweep_interval_seconds"`
	MaxEntries           int    `yaml:"max_entries"`
}

// SweepInterval returns the periodic sweep interval as a duration
func (c DedupConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

// FeedConfig holds rail windows and limits
type FeedConfig struct {
	TrendingWindowHours int `yaml:"trending_window_hours"`
	NewWindowDays       int `yaml:"new_window_days"`
	UndergroundMaxViews int `yaml:"underground_max_views"`
	DiversityCap        int `yaml:"diversity_cap"`
	DefaultLimit        int `yaml:"default_limit"`
	MaxLimit            int `yaml:"max_limit"`
	CandidateMultiplier int `yaml:"candidate_multiplier"`
}

// TrendingWindow returns the for_you lookback as a duration
func (c FeedConfig) TrendingWindow() time.Duration {
	return time.Duration(c.TrendingWindowHours) * time.Hour
}

// NewWindow returns the new_this_week lookback as a duration
func (c FeedConfig) NewWindow() time.Duration {
	return time.Duration(c.NewWindowDays) * 24 * time.Hour
}

// ABTestConfig holds significance and duration bounds
type ABTestConfig struct {
	SignificanceLevel float64 `yaml:"significance_level"`
	MinDurationDays   int     `yaml:"min_duration_days"`
	MaxDurationDays   int     `yaml:"max_duration_days"`
}

// TrackingConfig holds the SQS queue that receives accepted events for
// downstream rollups. An empty queue URL disables publishing.
type TrackingConfig struct {
	SQSQueueURL string `yaml:"sqs_queue_url"`
	AWSRegion   string `yaml:"aws_region"`
}

// ArchiveConfig holds the S3 location for concluded test reports. An empty
// bucket disables archiving.
type ArchiveConfig struct {
	S3Bucket  string `yaml:"s3_bucket"`
	AWSRegion string `yaml:"aws_region"`
	Prefix    string `yaml:"prefix"`
}

// WorkerConfig holds background worker intervals
type WorkerConfig struct {
	TrendingRefreshSeconds int `yaml:"trending_refresh_seconds"`
	ExpiryScanSeconds      int `yaml:"expiry_scan_seconds"`
}

// TrendingRefreshInterval returns the view refresh interval as a duration
func (c WorkerConfig) TrendingRefreshInterval() time.Duration {
	return time.Duration(c.TrendingRefreshSeconds) * time.Second
}

// ExpiryScanInterval returns the expired-test scan interval as a duration
func (c WorkerConfig) ExpiryScanInterval() time.Duration {
	return time.Duration(c.ExpiryScanSeconds) * time.Second
}

// LogConfig holds logger settings
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads and parses the configuration file. An empty path yields the
// defaults only.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"http://localhost:5173", "http://localhost:8081"}
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 20
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Dedup.Backend == "" {
		cfg.Dedup.Backend = "memory"
	}
	if cfg.Dedup.SweepIntervalSeconds == 0 {
		cfg.Dedup.SweepIntervalSeconds = 300
	}
	if cfg.Dedup.MaxEntries == 0 {
		cfg.Dedup.MaxEntries = 100
	}
	if cfg.Feed.TrendingWindowHours == 0 {
		cfg.Feed.TrendingWindowHours = 48
	}
	if cfg.Feed.NewWindowDays == 0 {
		cfg.Feed.NewWindowDays = 7
	}
	if cfg.Feed.UndergroundMaxViews == 0 {
		cfg.Feed.UndergroundMaxViews = 500
	}
	if cfg.Feed.DiversityCap == 0 {
		cfg.Feed.DiversityCap = 2
	}
	if cfg.Feed.DefaultLimit == 0 {
		cfg.Feed.DefaultLimit = 20
	}
	if cfg.Feed.MaxLimit == 0 {
		cfg.Feed.MaxLimit = 50
	}
	if cfg.Feed.CandidateMultiplier == 0 {
		cfg.Feed.CandidateMultiplier = 3
	}
	if cfg.ABTest.SignificanceLevel == 0 {
		cfg.ABTest.SignificanceLevel = 0.05
	}
	if cfg.ABTest.MinDurationDays == 0 {
		cfg.ABTest.MinDurationDays = 1
	}
	if cfg.ABTest.MaxDurationDays == 0 {
		cfg.ABTest.MaxDurationDays = 90
	}
	if cfg.Tracking.AWSRegion == "" {
		cfg.Tracking.AWSRegion = "us-east-1"
	}
	if cfg.Archive.AWSRegion == "" {
		cfg.Archive.AWSRegion = cfg.Tracking.AWSRegion
	}
	if cfg.Archive.Prefix == "" {
		cfg.Archive.Prefix = "ab-tests/"
	}
	if cfg.Worker.TrendingRefreshSeconds == 0 {
		cfg.Worker.TrendingRefreshSeconds = 300
	}
	if cfg.Worker.ExpiryScanSeconds == 0 {
		cfg.Worker.ExpiryScanSeconds = 600
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars in production.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("JWT_ISSUER"); v != "" {
		cfg.Auth.Issuer = v
	}
	if v := os.Getenv("DEDUP_BACKEND"); v != "" {
		cfg.Dedup.Backend = v
	}
	if v := os.Getenv("SQS_EVENTS_QUEUE_URL"); v != "" {
		cfg.Tracking.SQSQueueURL = v
	}
	if v := os.Getenv("ARCHIVE_S3_BUCKET"); v != "" {
		cfg.Archive.S3Bucket = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.Tracking.AWSRegion = v
		cfg.Archive.AWSRegion = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	return cfg, cfg.Validate()
}

// Validate checks settings that have no usable default.
func (cfg *Config) Validate() error {
	switch cfg.Dedup.Backend {
	case "memory":
	case "redis":
		if cfg.Redis.URL == "" {
			return fmt.Errorf("dedup backend redis requires redis.url")
		}
	default:
		return fmt.Errorf("unknown dedup backend %q", cfg.Dedup.Backend)
	}
	if cfg.ABTest.SignificanceLevel <= 0 || cfg.ABTest.SignificanceLevel >= 1 {
		return fmt.Errorf("abtest.significance_level must be in (0, 1)")
	}
	if cfg.ABTest.MinDurationDays > cfg.ABTest.MaxDurationDays {
		return fmt.Errorf("abtest.min_duration_days exceeds max_duration_days")
	}
	return nil
}
