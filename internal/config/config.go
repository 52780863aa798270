package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/efreitasn/ledgerauction/internal/pubkey"
)

// Well-known program ids used when none are configured.
const (
	DefaultAuctionProgramID = "auctxRXPeJoc4817jDhf4HbjnhEcr1cCXenosMhK5R8"
	DefaultGatewayProgramID = "gatem74V238djXdzWnJf94Wo1DcnuGkfijbf3AuBhfs"
)

// Config holds all runtime configuration for the auction service.
type Config struct {
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	LogFile       string `yaml:"log_file"`
	LogMaxSizeMB  int    `yaml:"log_max_size_mb"`
	LogMaxBackups int    `yaml:"log_max_backups"`
	LogMaxAgeDays int    `yaml:"log_max_age_days"`

	AuctionProgramID string        `yaml:"auction_program_id"`
	GatewayProgramID string        `yaml:"gateway_program_id"`
	BookDegree       int           `yaml:"book_degree"`
	AutoRefundLosers bool          `yaml:"auto_refund_losers"`
	CloseInterval    time.Duration `yaml:"close_interval"` // 0 disables scheduled ends

	MetricsNamespace string `yaml:"metrics_namespace"`
	JournalPath      string `yaml:"journal_path"` // empty disables the journal

	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Resolved from the string ids by Load and LoadFile.
	AuctionProgram pubkey.PublicKey `yaml:"-"`
	GatewayProgram pubkey.PublicKey `yaml:"-"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Port:             8080,
		LogLevel:         "info",
		LogMaxSizeMB:     10,
		LogMaxBackups:    3,
		LogMaxAgeDays:    28,
		AuctionProgramID: DefaultAuctionProgramID,
		GatewayProgramID: DefaultGatewayProgramID,
		BookDegree:       32,
		CloseInterval:    1 * time.Second,
		MetricsNamespace: "ledgerauction",
		ReadTimeout:      5 * time.Second,
		WriteTimeout:     10 * time.Second,
		IdleTimeout:      60 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	cfg := Default()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile reads a YAML configuration file over the defaults. Environment
// variables override values from the file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	var err error

	if c.Port, err = getInt("PORT", c.Port); err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}
	c.LogLevel = getStr("LOG_LEVEL", c.LogLevel)
	c.LogFile = getStr("LOG_FILE", c.LogFile)
	if c.LogMaxSizeMB, err = getInt("LOG_MAX_SIZE_MB", c.LogMaxSizeMB); err != nil {
		return fmt.Errorf("invalid LOG_MAX_SIZE_MB: %w", err)
	}
	if c.LogMaxBackups, err = getInt("LOG_MAX_BACKUPS", c.LogMaxBackups); err != nil {
		return fmt.Errorf("invalid LOG_MAX_BACKUPS: %w", err)
	}
	if c.LogMaxAgeDays, err = getInt("LOG_MAX_AGE_DAYS", c.LogMaxAgeDays); err != nil {
		return fmt.Errorf("invalid LOG_MAX_AGE_DAYS: %w", err)
	}

	c.AuctionProgramID = getStr("AUCTION_PROGRAM_ID", c.AuctionProgramID)
	c.GatewayProgramID = getStr("GATEWAY_PROGRAM_ID", c.GatewayProgramID)
	if c.BookDegree, err = getInt("BOOK_DEGREE", c.BookDegree); err != nil {
		return fmt.Errorf("invalid BOOK_DEGREE: %w", err)
	}
	if c.AutoRefundLosers, err = getBool("AUTO_REFUND_LOSERS", c.AutoRefundLosers); err != nil {
		return fmt.Errorf("invalid AUTO_REFUND_LOSERS: %w", err)
	}
	if c.CloseInterval, err = getDuration("CLOSE_INTERVAL", c.CloseInterval); err != nil {
		return fmt.Errorf("invalid CLOSE_INTERVAL: %w", err)
	}

	c.MetricsNamespace = getStr("METRICS_NAMESPACE", c.MetricsNamespace)
	c.JournalPath = getStr("JOURNAL_PATH", c.JournalPath)

	if c.ReadTimeout, err = getDuration("READ_TIMEOUT", c.ReadTimeout); err != nil {
		return fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}
	if c.WriteTimeout, err = getDuration("WRITE_TIMEOUT", c.WriteTimeout); err != nil {
		return fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}
	if c.IdleTimeout, err = getDuration("IDLE_TIMEOUT", c.IdleTimeout); err != nil {
		return fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}
	if c.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}
	return nil
}

// validate checks ranges and resolves the program ids.
func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT: %d, must be within 1..65535", c.Port)
	}
	if !isValidLogLevel(c.LogLevel) {
		return fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", c.LogLevel)
	}
	if c.LogMaxSizeMB < 1 || c.LogMaxBackups < 0 || c.LogMaxAgeDays < 0 {
		return fmt.Errorf("invalid log rotation: size must be positive, backups and age must not be negative")
	}
	if c.BookDegree < 2 {
		return fmt.Errorf("invalid BOOK_DEGREE: %d, must be at least 2", c.BookDegree)
	}
	if c.CloseInterval < 0 {
		return fmt.Errorf("invalid CLOSE_INTERVAL: %v, must not be negative", c.CloseInterval)
	}

	var err error
	if c.AuctionProgram, err = pubkey.Parse(c.AuctionProgramID); err != nil {
		return fmt.Errorf("invalid AUCTION_PROGRAM_ID: %w", err)
	}
	if c.GatewayProgram, err = pubkey.Parse(c.GatewayProgramID); err != nil {
		return fmt.Errorf("invalid GATEWAY_PROGRAM_ID: %w", err)
	}
	return nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getBool(key string, defaultVal bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseBool(v)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
