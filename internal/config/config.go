package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrMissingJWTSecret is returned when auth.jwt_secret is empty after env expansion
var ErrMissingJWTSecret = errors.New("auth.jwt_secret must be set")

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Redis     RedisConfig     `yaml:"redis"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Wave      WaveConfig      `yaml:"wave"`
	Rewards   RewardsConfig   `yaml:"rewards"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// Fan-out event handling per process
	EventWorkers   int `yaml:"event_workers"`
	EventQueueSize int `yaml:"event_queue_size"`
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxConnections  int           `yaml:"max_connections"`
	MinConnections  int           `yaml:"min_connections"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
}

// ConnectionString returns the PostgreSQL connection string
func (c *PostgresConfig) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, sslMode,
	)
}

// KafkaConfig holds the scheduler command stream configuration
type KafkaConfig struct {
	Brokers       []string      `yaml:"brokers"`
	Topic         string        `yaml:"topic"`
	GroupID       string        `yaml:"group_id"`
	Enabled       bool          `yaml:"enabled"`
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
}

// AuthConfig holds token verification settings
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

// RateLimitConfig bounds player actions per user
type RateLimitConfig struct {
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval"`
	IdleTTL           time.Duration `yaml:"idle_ttl"`
}

// WaveConfig holds the timing and quota rules of waves
type WaveConfig struct {
	EndScreenDelay       time.Duration `yaml:"end_screen_delay"`
	ResultsDelay         time.Duration `yaml:"results_delay"`
	WaveDuration         time.Duration `yaml:"wave_duration"`
	StaleAfter           time.Duration `yaml:"stale_after"`
	MaxAnswerLatency     time.Duration `yaml:"max_answer_latency"`
	BoostLimit           int           `yaml:"boost_limit"`
	ProgressTTLMin       time.Duration `yaml:"progress_ttl_min"`
	ProgressTTLMax       time.Duration `yaml:"progress_ttl_max"`
	LeaderboardSize      int           `yaml:"leaderboard_size"`
	ResolveBatchSize     int           `yaml:"resolve_batch_size"`
	DefaultShowResolveIn time.Duration `yaml:"default_show_resolve_in"`
}

// RewardsConfig holds the trophy and loot tables used at resolution
type RewardsConfig struct {
	LevelTrophies           map[int]int    `yaml:"level_trophies"`
	PositionTrophies        map[int]int    `yaml:"position_trophies"`
	PositionLoots           map[int]string `yaml:"position_loots"`
	DefaultLoot             string         `yaml:"default_loot"`
	ZeroLobbyLoot           string         `yaml:"zero_lobby_loot"`
	MaxLevelThresholdFactor float64        `yaml:"max_level_threshold_factor"`
}

// ReconcileConfig holds reconciliation worker configuration
type ReconcileConfig struct {
	Interval  time.Duration `yaml:"interval"`
	BatchSize int           `yaml:"batch_size"`
	Enabled   bool          `yaml:"enabled"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the wave engine cannot run with
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	if c.Wave.ProgressTTLMax < c.Wave.ProgressTTLMin {
		return fmt.Errorf("wave.progress_ttl_max must not be below wave.progress_ttl_min")
	}
	if c.Wave.BoostLimit < 0 {
		return fmt.Errorf("wave.boost_limit must not be negative")
	}
	for level, threshold := range c.Rewards.LevelTrophies {
		if level < 1 || threshold <= 0 {
			return fmt.Errorf("rewards.level_trophies: invalid entry %d: %d", level, threshold)
		}
	}
	return nil
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 5 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 120 * time.Second
	}

	// Redis defaults
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 100
	}
	if c.Redis.MinIdleConns == 0 {
		c.Redis.MinIdleConns = 10
	}
	if c.Redis.DialTimeout == 0 {
		c.Redis.DialTimeout = 5 * time.Second
	}
	if c.Redis.ReadTimeout == 0 {
		c.Redis.ReadTimeout = 3 * time.Second
	}
	if c.Redis.WriteTimeout == 0 {
		c.Redis.WriteTimeout = 3 * time.Second
	}
	if c.Redis.EventWorkers == 0 {
		c.Redis.EventWorkers = 8
	}
	if c.Redis.EventQueueSize == 0 {
		c.Redis.EventQueueSize = 1024
	}

	// PostgreSQL defaults
	if c.Postgres.Host == "" {
		c.Postgres.Host = "localhost"
	}
	if c.Postgres.Port == 0 {
		c.Postgres.Port = 5432
	}
	if c.Postgres.MaxConnections == 0 {
		c.Postgres.MaxConnections = 50
	}
	if c.Postgres.MinConnections == 0 {
		c.Postgres.MinConnections = 5
	}
	if c.Postgres.MaxConnLifetime == 0 {
		c.Postgres.MaxConnLifetime = 1 * time.Hour
	}
	if c.Postgres.MaxConnIdleTime == 0 {
		c.Postgres.MaxConnIdleTime = 30 * time.Minute
	}

	// Kafka defaults
	if len(c.Kafka.Brokers) == 0 {
		c.Kafka.Brokers = []string{"localhost:9092"}
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "wave-commands"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "wave-scheduler"
	}
	if c.Kafka.RetryAttempts == 0 {
		c.Kafka.RetryAttempts = 3
	}
	if c.Kafka.RetryDelay == 0 {
		c.Kafka.RetryDelay = 1 * time.Second
	}

	// Auth defaults
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "trivia-wave"
	}

	// Rate limit defaults
	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 5
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 10
	}
	if c.RateLimit.CleanupInterval == 0 {
		c.RateLimit.CleanupInterval = 1 * time.Minute
	}
	if c.RateLimit.IdleTTL == 0 {
		c.RateLimit.IdleTTL = 5 * time.Minute
	}

	// Wave defaults
	if c.Wave.EndScreenDelay == 0 {
		c.Wave.EndScreenDelay = 10 * time.Second
	}
	if c.Wave.ResultsDelay == 0 {
		c.Wave.ResultsDelay = 15 * time.Second
	}
	if c.Wave.WaveDuration == 0 {
		c.Wave.WaveDuration = 30 * time.Minute
	}
	if c.Wave.StaleAfter == 0 {
		c.Wave.StaleAfter = 60 * time.Minute
	}
	if c.Wave.MaxAnswerLatency == 0 {
		c.Wave.MaxAnswerLatency = 3000 * time.Millisecond
	}
	if c.Wave.BoostLimit == 0 {
		c.Wave.BoostLimit = 3
	}
	if c.Wave.ProgressTTLMin == 0 {
		c.Wave.ProgressTTLMin = 2 * time.Hour
	}
	if c.Wave.ProgressTTLMax == 0 {
		c.Wave.ProgressTTLMax = 3 * time.Hour
	}
	if c.Wave.LeaderboardSize == 0 {
		c.Wave.LeaderboardSize = 10
	}
	if c.Wave.ResolveBatchSize == 0 {
		c.Wave.ResolveBatchSize = 1000
	}
	if c.Wave.DefaultShowResolveIn == 0 {
		c.Wave.DefaultShowResolveIn = 5 * time.Second
	}

	// Rewards defaults
	if c.Rewards.LevelTrophies == nil {
		c.Rewards.LevelTrophies = map[int]int{1: 100, 2: 200, 3: 300, 4: 500, 5: 800}
	}
	if c.Rewards.PositionTrophies == nil {
		c.Rewards.PositionTrophies = map[int]int{
			1: 30, 2: 20, 3: 10, 4: 5, 5: 0, 6: -5, 7: -10, 8: -15, 9: -20, 10: -25,
		}
	}
	if c.Rewards.PositionLoots == nil {
		c.Rewards.PositionLoots = map[int]string{1: "WaveBigChest", 2: "WaveMediumChest", 3: "WaveMediumChest"}
	}
	if c.Rewards.DefaultLoot == "" {
		c.Rewards.DefaultLoot = "WaveSmallBag"
	}
	if c.Rewards.ZeroLobbyLoot == "" {
		c.Rewards.ZeroLobbyLoot = "WaveSmallChest"
	}
	if c.Rewards.MaxLevelThresholdFactor == 0 {
		c.Rewards.MaxLevelThresholdFactor = 1.3
	}

	// Reconcile defaults
	if c.Reconcile.Interval == 0 {
		c.Reconcile.Interval = 1 * time.Minute
	}
	if c.Reconcile.BatchSize == 0 {
		c.Reconcile.BatchSize = 100
	}
}

// DefaultConfig returns a configuration with all defaults
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.Reconcile.Enabled = true
	return cfg
}
