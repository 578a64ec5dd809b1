// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Testament rules accepted by ReaderConfig.TestamentRule.
const (
	TestamentRuleOrdinal = "ordinal"
	TestamentRuleBook    = "book"
)

// Config holds the application configuration.
type Config struct {
	App          AppConfig
	Logger       LoggerConfig
	Data         DataConfig
	Corpus       CorpusConfig
	Achievements AchievementsConfig
	Reader       ReaderConfig
	Server       ServerConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig holds on-disk storage locations.
type DataConfig struct {
	// BasePath holds ledger.db and the state/ key-value directory.
	BasePath string
}

// LedgerPath returns the sqlite ledger file path.
func (d DataConfig) LedgerPath() string {
	return filepath.Join(d.BasePath, "ledger.db")
}

// StatePath returns the badger session state directory.
func (d DataConfig) StatePath() string {
	return filepath.Join(d.BasePath, "state")
}

// CorpusConfig holds the content index location.
type CorpusConfig struct {
	Path  string
	Watch bool // Reload the index when the file changes (default: true)
}

// AchievementsConfig holds the trophy catalog location.
type AchievementsConfig struct {
	// CatalogPath overrides the embedded catalog when set.
	CatalogPath string
}

// ReaderConfig holds settings that shape how progress is counted.
type ReaderConfig struct {
	// Timezone decides which calendar day a completion belongs to (default: Local).
	Timezone string
	// TestamentRule selects the Old/New Testament split: "ordinal" keeps the
	// historical numeric boundary, "book" uses the corpus book mapping.
	TestamentRule string
	// TestamentBoundary is the last Old Testament ordinal under the ordinal rule (default: 219).
	TestamentBoundary int
}

// Location resolves Timezone.
func (r ReaderConfig) Location() (*time.Location, error) {
	if r.Timezone == "" || strings.EqualFold(r.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(r.Timezone)
}

// ServerConfig holds the loopback HTTP server configuration.
type ServerConfig struct {
	Host           string        // Bind host (default: 127.0.0.1)
	Port           string        // Server port (default: 7070)
	ReadTimeout    time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout   time.Duration // HTTP write timeout (default: 0, SSE streams are long lived)
	IdleTimeout    time.Duration // HTTP idle timeout (default: 60s)
	AllowedOrigins []string      // CORS origins for the UI shell
	WriteRPS       int           // Sustained write requests per second per client, 0 disables (default: 20)
	WriteBurst     int           // Write burst per client (default: 40)
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(flag.CommandLine, os.Args[1:])
}

// LoadConfigFrom is LoadConfig with an explicit flag set and arguments.
func LoadConfigFrom(fs *flag.FlagSet, args []string) (*Config, error) {
	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := fs.String("data-path", "", "Base path for the ledger and state store")
	corpusPath := fs.String("corpus-path", "", "Path to the corpus index (YAML)")
	corpusWatch := fs.String("corpus-watch", "", "Reload the corpus index on change (default: true)")
	catalogPath := fs.String("catalog-path", "", "Path to an achievement catalog (YAML)")
	timezone := fs.String("timezone", "", "IANA timezone for calendar days (default: Local)")
	testamentRule := fs.String("testament-rule", "", "Old/New Testament split: ordinal or book (default: ordinal)")
	testamentBoundary := fs.String("testament-boundary", "", "Last Old Testament ordinal for the ordinal rule (default: 219)")

	// Server flags
	host := fs.String("host", "", "Bind host (default: 127.0.0.1)")
	port := fs.String("port", "", "Server port (default: 7070)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 0)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	allowedOrigins := fs.String("allowed-origins", "", "Comma separated CORS origins")
	writeRPS := fs.String("write-rps", "", "Write requests per second per client, 0 disables (default: 20)")
	writeBurst := fs.String("write-burst", "", "Write burst per client (default: 40)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			BasePath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Corpus: CorpusConfig{
			Path:  getConfigValue(*corpusPath, "CORPUS_PATH", ""),
			Watch: getBoolConfigValue(*corpusWatch, "CORPUS_WATCH", true),
		},
		Achievements: AchievementsConfig{
			CatalogPath: getConfigValue(*catalogPath, "ACHIEVEMENT_CATALOG_PATH", ""),
		},
		Reader: ReaderConfig{
			Timezone:          getConfigValue(*timezone, "READER_TIMEZONE", "Local"),
			TestamentRule:     getConfigValue(*testamentRule, "TESTAMENT_RULE", TestamentRuleOrdinal),
			TestamentBoundary: getIntConfigValue(*testamentBoundary, "TESTAMENT_BOUNDARY", 219),
		},
		Server: ServerConfig{
			Host:           getConfigValue(*host, "SERVER_HOST", "127.0.0.1"),
			Port:           getConfigValue(*port, "SERVER_PORT", "7070"),
			AllowedOrigins: splitList(getConfigValue(*allowedOrigins, "SERVER_ALLOWED_ORIGINS", "")),
			WriteRPS:       getIntConfigValue(*writeRPS, "SERVER_WRITE_RPS", 20),
			WriteBurst:     getIntConfigValue(*writeBurst, "SERVER_WRITE_BURST", 40),
		},
	}

	var err error
	if cfg.Server.ReadTimeout, err = parseDuration(*readTimeout, "SERVER_READ_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.Server.WriteTimeout, err = parseDuration(*writeTimeout, "SERVER_WRITE_TIMEOUT", "0s"); err != nil {
		return nil, err
	}
	if cfg.Server.IdleTimeout, err = parseDuration(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"); err != nil {
		return nil, err
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}
	if err := cfg.expandCorpusPath(); err != nil {
		return nil, fmt.Errorf("invalid corpus path: %w", err)
	}
	if cfg.Achievements.CatalogPath != "" {
		if cfg.Achievements.CatalogPath, err = expandPath(cfg.Achievements.CatalogPath, ""); err != nil {
			return nil, fmt.Errorf("invalid catalog path: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Data.BasePath == "" {
		return errors.New("data base path cannot be empty after expansion")
	}

	if c.Corpus.Path == "" {
		return errors.New("corpus path cannot be empty after expansion")
	}

	switch c.Reader.TestamentRule {
	case TestamentRuleOrdinal, TestamentRuleBook:
	default:
		return fmt.Errorf("invalid testament rule: %s (must be ordinal or book)", c.Reader.TestamentRule)
	}

	if c.Reader.TestamentRule == TestamentRuleOrdinal && c.Reader.TestamentBoundary <= 0 {
		return fmt.Errorf("invalid testament boundary: %d", c.Reader.TestamentBoundary)
	}

	if _, err := c.Reader.Location(); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Reader.Timezone, err)
	}

	if c.Server.Port == "" {
		return errors.New("server port is required")
	}

	if c.Server.WriteRPS < 0 || c.Server.WriteBurst < 0 {
		return fmt.Errorf("invalid write limit: %d rps, burst %d", c.Server.WriteRPS, c.Server.WriteBurst)
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath defaults to ~/ReadUp/data.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "ReadUp", "data")

	expanded, err := expandPath(c.Data.BasePath, defaultPath)
	if err != nil {
		return err
	}
	c.Data.BasePath = expanded
	return nil
}

// expandCorpusPath defaults to {data}/corpus.yaml.
func (c *Config) expandCorpusPath() error {
	defaultPath := filepath.Join(c.Data.BasePath, "corpus.yaml")

	expanded, err := expandPath(c.Corpus.Path, defaultPath)
	if err != nil {
		return err
	}
	c.Corpus.Path = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

func parseDuration(flagValue, envKey, defaultValue string) (time.Duration, error) {
	raw := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", strings.ToLower(envKey), raw, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for part := range strings.SplitSeq(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=value.
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
