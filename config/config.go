package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"guildwar/database"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration
type Config struct {
	// Discord configuration
	DiscordToken string `env:"DISCORD_TOKEN"`
	GuildID      string `env:"GUILD_ID"`       // Empty registers slash commands globally
	WarChannelID string `env:"WAR_CHANNEL_ID"` // Channel where raid announcements are posted

	// Database configuration
	DatabaseURL  string `env:"DATABASE_URL"`
	DatabaseName string `env:"DATABASE_NAME"`

	// NATS configuration
	NATSServers string `env:"NATS_SERVERS" envDefault:"nats://nats:4222"`

	// Raid timeline
	RecruitmentWindow     time.Duration `env:"RECRUITMENT_WINDOW" envDefault:"10m"`
	NarrationPhaseDelay   time.Duration `env:"NARRATION_PHASE_DELAY" envDefault:"45s"`
	SchedulerPollInterval time.Duration `env:"SCHEDULER_POLL_INTERVAL" envDefault:"1m"`
	SchedulerConcurrency  int64         `env:"SCHEDULER_CONCURRENCY" envDefault:"4"`

	// Directory cache used by the announcer
	FactionCacheSize int  `env:"FACTION_CACHE_SIZE" envDefault:"256"`
	BattleReports    bool `env:"BATTLE_REPORTS" envDefault:"true"` // Attach a rendered image to contested settlements

	// Admin gRPC endpoint (health checks)
	AdminGRPCAddr string `env:"ADMIN_GRPC_ADDR" envDefault:":9090"`

	// OpenTelemetry configuration
	OTelEnabled              bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTelExporterType         string `env:"OTEL_EXPORTER_TYPE" envDefault:"console"` // console, otlp or none
	OTelOTLPEndpoint         string `env:"OTEL_ENDPOINT" envDefault:"otel-collector:4317"`
	OTelServiceName          string `env:"OTEL_SERVICE_NAME" envDefault:"guildwar"`
	OTelExportIntervalMillis int    `env:"OTEL_EXPORT_INTERVAL_MILLIS" envDefault:"30000"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Environment
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			// In test environment, use a default test config instead of panicking
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// IsProduction reports whether the service runs with production settings
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{}
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	if c.Environment == "test" {
		return nil
	}

	if c.DiscordToken == "" {
		return fmt.Errorf("DISCORD_TOKEN is required")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DatabaseName != "" && strings.TrimSpace(c.DatabaseName) == "" {
		return fmt.Errorf("DATABASE_NAME cannot be empty when provided")
	}
	if c.RecruitmentWindow <= 0 {
		return fmt.Errorf("RECRUITMENT_WINDOW must be positive")
	}
	if c.SchedulerConcurrency < 1 {
		return fmt.Errorf("SCHEDULER_CONCURRENCY must be at least 1")
	}
	return nil
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:           "test",
		DiscordToken:          "test-token",
		RecruitmentWindow:     10 * time.Minute,
		NarrationPhaseDelay:   time.Second,
		SchedulerPollInterval: time.Second,
		SchedulerConcurrency:  2,
		FactionCacheSize:      16,
		OTelExporterType:      "none",
		LogLevel:              "debug",
	}
}
