package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the flowline service
type Config struct {
	Server    ServerConfig        `mapstructure:"server"`
	Database  DatabaseConfig      `mapstructure:"database"`
	Redis     RedisConfig         `mapstructure:"redis"`
	NATS      NATSConfig          `mapstructure:"nats"`
	Logging   LoggingConfig       `mapstructure:"logging"`
	Engine    EngineConfig        `mapstructure:"engine"`
	Costs     CostConfig          `mapstructure:"costs"`
	Actions   ActionCostConfig    `mapstructure:"actions"`
	Ledger    LedgerConfig        `mapstructure:"ledger"`
	Locations map[string]Location `mapstructure:"locations"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// PostgresConfig holds PostgreSQL connection settings
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN returns the connection string for pgx.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// RedisConfig holds Redis configuration for the metrics cache
type RedisConfig struct {
	URL        string        `mapstructure:"url"`
	Enabled    bool          `mapstructure:"enabled"`
	MaxRetries int           `mapstructure:"max_retries"`
	PoolSize   int           `mapstructure:"pool_size"`
	TTL        time.Duration `mapstructure:"ttl"`
}

// NATSConfig holds NATS configuration for event ingestion
type NATSConfig struct {
	URL           string `mapstructure:"url"`
	Enabled       bool   `mapstructure:"enabled"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
	QueueGroup    string `mapstructure:"queue_group"`
}

// LoggingConfig holds log output settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EngineConfig holds the analytics thresholds. Defaults are deliberately
// conservative; overriding them changes what the engines report, not how
// they compute.
type EngineConfig struct {
	MinDataPoints            int     `mapstructure:"min_data_points"`
	VerificationTolerance    float64 `mapstructure:"verification_tolerance"`
	CVLowThreshold           float64 `mapstructure:"cv_low_threshold"`
	CVHighThreshold          float64 `mapstructure:"cv_high_threshold"`
	ObservationPeriodSeconds float64 `mapstructure:"observation_period_seconds"`
	ConfidenceThreshold      float64 `mapstructure:"confidence_threshold"`
}

// CostConfig holds the financial parameters behind the loss model. All
// monetary values are in the operator's base currency.
type CostConfig struct {
	RevenuePerCustomer       float64 `mapstructure:"revenue_per_customer"`
	CustomerLifetimeValue    float64 `mapstructure:"customer_lifetime_value"`
	TimeValuePerMinute       float64 `mapstructure:"time_value_per_minute"`
	AcceptableWaitMinutes    float64 `mapstructure:"acceptable_wait_minutes"`
	LaborCostPerHour         float64 `mapstructure:"labor_cost_per_hour"`
	OvertimeMultiplier       float64 `mapstructure:"overtime_multiplier"`
	WalkawayThresholdMinutes float64 `mapstructure:"walkaway_threshold_minutes"`
	WalkawayProbPerMinute    float64 `mapstructure:"walkaway_prob_per_minute"`
	ConservativeFactor       float64 `mapstructure:"conservative_factor"`
	TargetUtilization        float64 `mapstructure:"target_utilization"`
}

// ActionCostConfig holds per-action implementation cost estimates.
type ActionCostConfig struct {
	AddStaffPeakPerHour  float64 `mapstructure:"add_staff_peak_per_hour"`
	AddCapacity          float64 `mapstructure:"add_capacity"`
	QueueManagement      float64 `mapstructure:"queue_management"`
	ScheduleOptimization float64 `mapstructure:"schedule_optimization"`
	DemandSmoothing      float64 `mapstructure:"demand_smoothing"`
}

// LedgerConfig holds the append retry policy for concurrency conflicts.
type LedgerConfig struct {
	MaxRetries     int           `mapstructure:"max_retries"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
}

// Location describes one monitored service point.
type Location struct {
	Servers int `mapstructure:"servers"`
}

// Servers returns the configured server count for a location, defaulting
// to 1 when the location is unknown or misconfigured.
func (c *Config) Servers(locationID string) int {
	if loc, ok := c.Locations[locationID]; ok && loc.Servers > 0 {
		return loc.Servers
	}
	return 1
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")

	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "flowline")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.database", "flowline")
	v.SetDefault("database.postgres.sslmode", "disable")

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.ttl", "1h")

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.subject_prefix", "flowline.events")
	v.SetDefault("nats.queue_group", "flowline-ingest")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("engine.min_data_points", 10)
	v.SetDefault("engine.verification_tolerance", 0.05)
	v.SetDefault("engine.cv_low_threshold", 0.5)
	v.SetDefault("engine.cv_high_threshold", 1.0)
	v.SetDefault("engine.observation_period_seconds", 300)
	v.SetDefault("engine.confidence_threshold", 0.5)

	v.SetDefault("costs.revenue_per_customer", 150.0)
	v.SetDefault("costs.customer_lifetime_value", 500.0)
	v.SetDefault("costs.time_value_per_minute", 2.0)
	v.SetDefault("costs.acceptable_wait_minutes", 5.0)
	v.SetDefault("costs.labor_cost_per_hour", 25.0)
	v.SetDefault("costs.overtime_multiplier", 1.5)
	v.SetDefault("costs.walkaway_threshold_minutes", 15.0)
	v.SetDefault("costs.walkaway_prob_per_minute", 0.02)
	v.SetDefault("costs.conservative_factor", 0.7)
	v.SetDefault("costs.target_utilization", 0.85)

	v.SetDefault("actions.add_staff_peak_per_hour", 25.0)
	v.SetDefault("actions.add_capacity", 150.0)
	v.SetDefault("actions.queue_management", 50.0)
	v.SetDefault("actions.schedule_optimization", 0.0)
	v.SetDefault("actions.demand_smoothing", 75.0)

	v.SetDefault("ledger.max_retries", 5)
	v.SetDefault("ledger.initial_backoff", "10ms")
	v.SetDefault("ledger.max_backoff", "500ms")

	v.SetDefault("locations", map[string]any{
		"front_desk": map[string]any{"servers": 3},
		"restaurant": map[string]any{"servers": 4},
		"lobby":      map[string]any{"servers": 1},
		"concierge":  map[string]any{"servers": 2},
		"valet":      map[string]any{"servers": 2},
	})

	// Read from config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override file config
	v.SetEnvPrefix("FLOWLINE")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
