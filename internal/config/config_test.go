package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// durationEnvKeys lists the variables parsed as time.Duration.
var durationEnvKeys = []string{
	"CLOSE_INTERVAL",
	"READ_TIMEOUT",
	"WRITE_TIMEOUT",
	"IDLE_TIMEOUT",
	"SHUTDOWN_TIMEOUT",
}

var allEnvKeys = append([]string{
	"PORT", "LOG_LEVEL", "LOG_FILE", "LOG_MAX_SIZE_MB", "LOG_MAX_BACKUPS", "LOG_MAX_AGE_DAYS",
	"AUCTION_PROGRAM_ID", "GATEWAY_PROGRAM_ID", "BOOK_DEGREE", "AUTO_REFUND_LOSERS",
	"METRICS_NAMESPACE", "JOURNAL_PATH",
}, durationEnvKeys...)

// unsetAllConfigEnv is clearEnv for rapid properties, which have no t.Setenv.
func unsetAllConfigEnv() {
	for _, key := range allEnvKeys {
		os.Unsetenv(key)
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allEnvKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.LogFile != "" {
		t.Errorf("LogFile = %q, want empty", cfg.LogFile)
	}
	if cfg.LogMaxSizeMB != 10 || cfg.LogMaxBackups != 3 || cfg.LogMaxAgeDays != 28 {
		t.Errorf("unexpected log rotation defaults: %d/%d/%d", cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays)
	}
	if cfg.AuctionProgramID != DefaultAuctionProgramID {
		t.Errorf("AuctionProgramID = %q, want %q", cfg.AuctionProgramID, DefaultAuctionProgramID)
	}
	if cfg.AuctionProgram.String() != DefaultAuctionProgramID {
		t.Errorf("AuctionProgram = %s, want %s", cfg.AuctionProgram, DefaultAuctionProgramID)
	}
	if cfg.GatewayProgram.String() != DefaultGatewayProgramID {
		t.Errorf("GatewayProgram = %s, want %s", cfg.GatewayProgram, DefaultGatewayProgramID)
	}
	if cfg.BookDegree != 32 {
		t.Errorf("BookDegree = %d, want 32", cfg.BookDegree)
	}
	if cfg.AutoRefundLosers {
		t.Error("AutoRefundLosers = true, want false")
	}
	if cfg.CloseInterval != 1*time.Second {
		t.Errorf("CloseInterval = %v, want 1s", cfg.CloseInterval)
	}
	if cfg.MetricsNamespace != "ledgerauction" {
		t.Errorf("MetricsNamespace = %q, want %q", cfg.MetricsNamespace, "ledgerauction")
	}
	if cfg.JournalPath != "" {
		t.Errorf("JournalPath = %q, want empty", cfg.JournalPath)
	}
	if cfg.ReadTimeout != 5*time.Second {
		t.Errorf("ReadTimeout = %v, want 5s", cfg.ReadTimeout)
	}
	if cfg.WriteTimeout != 10*time.Second {
		t.Errorf("WriteTimeout = %v, want 10s", cfg.WriteTimeout)
	}
	if cfg.IdleTimeout != 60*time.Second {
		t.Errorf("IdleTimeout = %v, want 60s", cfg.IdleTimeout)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.ShutdownTimeout)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FILE", "/var/log/ledgerauction.log")
	t.Setenv("BOOK_DEGREE", "8")
	t.Setenv("AUTO_REFUND_LOSERS", "true")
	t.Setenv("CLOSE_INTERVAL", "0s")
	t.Setenv("METRICS_NAMESPACE", "auctions")
	t.Setenv("JOURNAL_PATH", ":memory:")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.LogFile != "/var/log/ledgerauction.log" {
		t.Errorf("LogFile = %q", cfg.LogFile)
	}
	if cfg.BookDegree != 8 {
		t.Errorf("BookDegree = %d, want 8", cfg.BookDegree)
	}
	if !cfg.AutoRefundLosers {
		t.Error("AutoRefundLosers = false, want true")
	}
	if cfg.CloseInterval != 0 {
		t.Errorf("CloseInterval = %v, want 0", cfg.CloseInterval)
	}
	if cfg.MetricsNamespace != "auctions" {
		t.Errorf("MetricsNamespace = %q, want %q", cfg.MetricsNamespace, "auctions")
	}
	if cfg.JournalPath != ":memory:" {
		t.Errorf("JournalPath = %q, want %q", cfg.JournalPath, ":memory:")
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	for _, v := range []string{"not-a-number", "0", "70000"} {
		t.Run(v, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("PORT", v)

			if _, err := Load(); err == nil {
				t.Fatalf("expected error for PORT=%q", v)
			}
		})
	}
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "verbose")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for invalid LOG_LEVEL")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	for _, key := range durationEnvKeys {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, "not-a-duration")

			_, err := Load()
			if err == nil {
				t.Fatalf("expected error for invalid %s", key)
			}
		})
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"BOOK_DEGREE", "1"},
		{"BOOK_DEGREE", "many"},
		{"AUTO_REFUND_LOSERS", "sometimes"},
		{"CLOSE_INTERVAL", "-1s"},
		{"LOG_MAX_SIZE_MB", "0"},
		{"LOG_MAX_BACKUPS", "-1"},
		{"AUCTION_PROGRAM_ID", "not-a-key"},
		{"GATEWAY_PROGRAM_ID", "3vQB7B6MrGQZaxCuFg4oh"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
port: 9000
log_level: warn
book_degree: 16
auto_refund_losers: true
close_interval: 250ms
journal_path: /tmp/journal.db
shutdown_timeout: 30s
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Port)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "warn")
	}
	if cfg.BookDegree != 16 {
		t.Errorf("BookDegree = %d, want 16", cfg.BookDegree)
	}
	if !cfg.AutoRefundLosers {
		t.Error("AutoRefundLosers = false, want true")
	}
	if cfg.CloseInterval != 250*time.Millisecond {
		t.Errorf("CloseInterval = %v, want 250ms", cfg.CloseInterval)
	}
	if cfg.JournalPath != "/tmp/journal.db" {
		t.Errorf("JournalPath = %q", cfg.JournalPath)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 30s", cfg.ShutdownTimeout)
	}
	// Untouched keys keep their defaults.
	if cfg.MetricsNamespace != "ledgerauction" {
		t.Errorf("MetricsNamespace = %q, want default", cfg.MetricsNamespace)
	}
}

func TestLoadFile_EnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "port: 9000\nlog_level: warn\n")
	t.Setenv("PORT", "9100")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 9100 {
		t.Errorf("Port = %d, want 9100", cfg.Port)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "warn")
	}
}

func TestLoadFile_Errors(t *testing.T) {
	clearEnv(t)

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for a missing file")
	}
	if _, err := LoadFile(writeFile(t, "port: [1, 2")); err == nil {
		t.Error("expected error for malformed YAML")
	}
	if _, err := LoadFile(writeFile(t, "book_degree: 1\n")); err == nil {
		t.Error("expected validation error")
	}
}
