// Package config provides configuration management for notionflow-ai.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultPort is the HTTP port of the worker.
	DefaultPort = 8000
	// DefaultWebCallbackURL is the API base of the web application.
	DefaultWebCallbackURL = "http://localhost:3000/api"
	// DefaultEmbeddingModel is the embedding model requested from the encoder endpoint.
	DefaultEmbeddingModel = "text-embedding-3-small"
	// DefaultSummarizerModel is the chat model used for abstractive summaries.
	DefaultSummarizerModel = "gpt-4o-mini"
	// DefaultCallbackTimeoutSeconds bounds one callback request.
	DefaultCallbackTimeoutSeconds = 30
	// DefaultReclusterIntervalHours is the period of the recluster job.
	DefaultReclusterIntervalHours = 6
	// DefaultReportTimezone is the timezone of the report schedules.
	DefaultReportTimezone = "Asia/Seoul"
	// DefaultWorkers bounds concurrently running background tasks.
	DefaultWorkers = 8
	// DefaultLogLevel is the zerolog level name.
	DefaultLogLevel = "info"
)

// Config holds the worker configuration. JSON keys match the environment
// variables that override them.
type Config struct {
	WebCallbackURL         string `json:"NOTIONFLOW_WEB_CALLBACK_URL"`
	EmbeddingURL           string `json:"NOTIONFLOW_EMBEDDING_URL"`
	EmbeddingModel         string `json:"NOTIONFLOW_EMBEDDING_MODEL"`
	EmbeddingAPIKey        string `json:"NOTIONFLOW_EMBEDDING_API_KEY"`
	SummarizerURL          string `json:"NOTIONFLOW_SUMMARIZER_URL"`
	SummarizerModel        string `json:"NOTIONFLOW_SUMMARIZER_MODEL"`
	SummarizerAPIKey       string `json:"NOTIONFLOW_SUMMARIZER_API_KEY"`
	ReportTimezone         string `json:"NOTIONFLOW_REPORT_TIMEZONE"`
	TaxonomyPath           string `json:"NOTIONFLOW_TAXONOMY_PATH"`
	LogLevel               string `json:"NOTIONFLOW_LOG_LEVEL"`
	Port                   int    `json:"NOTIONFLOW_PORT"`
	CallbackTimeoutSeconds int    `json:"NOTIONFLOW_CALLBACK_TIMEOUT_SECONDS"`
	ReclusterIntervalHours int    `json:"NOTIONFLOW_RECLUSTER_INTERVAL_HOURS"`
	Workers                int    `json:"NOTIONFLOW_WORKERS"`
	SchedulerEnabled       bool   `json:"NOTIONFLOW_SCHEDULER_ENABLED"`
}

var (
	global     *Config
	globalOnce sync.Once
)

// DataDir returns the data directory. NOTIONFLOW_DATA_DIR overrides the
// default of ~/.notionflow.
func DataDir() string {
	if dir := os.Getenv("NOTIONFLOW_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".notionflow")
}

// SettingsPath returns the path of settings.json.
func SettingsPath() string {
	return filepath.Join(DataDir(), "settings.json")
}

// EnsureDataDir creates the data directory if needed.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0750)
}

// EnsureSettings writes a default settings.json if none exists.
func EnsureSettings() error {
	path := SettingsPath()
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	data, err := json.MarshalIndent(Default(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// EnsureAll creates the data directory and default settings.
func EnsureAll() error {
	if err := EnsureDataDir(); err != nil {
		return err
	}
	return EnsureSettings()
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Port:                   DefaultPort,
		WebCallbackURL:         DefaultWebCallbackURL,
		EmbeddingModel:         DefaultEmbeddingModel,
		SummarizerModel:        DefaultSummarizerModel,
		CallbackTimeoutSeconds: DefaultCallbackTimeoutSeconds,
		ReclusterIntervalHours: DefaultReclusterIntervalHours,
		ReportTimezone:         DefaultReportTimezone,
		SchedulerEnabled:       true,
		LogLevel:               DefaultLogLevel,
		Workers:                DefaultWorkers,
	}
}

// Load reads .env, settings.json and environment overrides, in that order of
// increasing precedence. A missing or malformed settings file keeps the defaults.
func Load() *Config {
	_ = godotenv.Load()

	cfg := Default()
	if data, err := os.ReadFile(SettingsPath()); err == nil {
		fileCfg := Default()
		if err := json.Unmarshal(data, fileCfg); err != nil {
			log.Warn().Err(err).Str("path", SettingsPath()).Msg("Invalid settings file, using defaults")
		} else {
			cfg = fileCfg
		}
	}

	cfg.applyEnv()
	cfg.normalize()
	return cfg
}

// Get returns the process-wide configuration, loading it on first use.
func Get() *Config {
	globalOnce.Do(func() {
		global = Load()
	})
	return global
}

// CallbackTimeout returns the callback request timeout.
func (c *Config) CallbackTimeout() time.Duration {
	return time.Duration(c.CallbackTimeoutSeconds) * time.Second
}

// Location returns the report timezone, falling back to UTC when the zone
// database does not know it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ReportTimezone)
	if err != nil {
		log.Warn().Err(err).Str("timezone", c.ReportTimezone).Msg("Unknown report timezone, using UTC")
		return time.UTC
	}
	return loc
}

func (c *Config) applyEnv() {
	c.WebCallbackURL = getEnv("NOTIONFLOW_WEB_CALLBACK_URL", c.WebCallbackURL)
	c.EmbeddingURL = getEnv("NOTIONFLOW_EMBEDDING_URL", c.EmbeddingURL)
	c.EmbeddingModel = getEnv("NOTIONFLOW_EMBEDDING_MODEL", c.EmbeddingModel)
	c.EmbeddingAPIKey = getEnv("NOTIONFLOW_EMBEDDING_API_KEY", c.EmbeddingAPIKey)
	c.SummarizerURL = getEnv("NOTIONFLOW_SUMMARIZER_URL", c.SummarizerURL)
	c.SummarizerModel = getEnv("NOTIONFLOW_SUMMARIZER_MODEL", c.SummarizerModel)
	c.SummarizerAPIKey = getEnv("NOTIONFLOW_SUMMARIZER_API_KEY", c.SummarizerAPIKey)
	c.ReportTimezone = getEnv("NOTIONFLOW_REPORT_TIMEZONE", c.ReportTimezone)
	c.TaxonomyPath = getEnv("NOTIONFLOW_TAXONOMY_PATH", c.TaxonomyPath)
	c.LogLevel = getEnv("NOTIONFLOW_LOG_LEVEL", c.LogLevel)
	c.Port = getEnvInt("NOTIONFLOW_PORT", c.Port)
	c.CallbackTimeoutSeconds = getEnvInt("NOTIONFLOW_CALLBACK_TIMEOUT_SECONDS", c.CallbackTimeoutSeconds)
	c.ReclusterIntervalHours = getEnvInt("NOTIONFLOW_RECLUSTER_INTERVAL_HOURS", c.ReclusterIntervalHours)
	c.Workers = getEnvInt("NOTIONFLOW_WORKERS", c.Workers)
	c.SchedulerEnabled = getEnvBool("NOTIONFLOW_SCHEDULER_ENABLED", c.SchedulerEnabled)
}

// normalize replaces out-of-range values with defaults.
func (c *Config) normalize() {
	if c.Port <= 0 || c.Port > 65535 {
		c.Port = DefaultPort
	}
	if c.CallbackTimeoutSeconds <= 0 {
		c.CallbackTimeoutSeconds = DefaultCallbackTimeoutSeconds
	}
	if c.ReclusterIntervalHours <= 0 {
		c.ReclusterIntervalHours = DefaultReclusterIntervalHours
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.ReportTimezone == "" {
		c.ReportTimezone = DefaultReportTimezone
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	c.WebCallbackURL = strings.TrimRight(c.WebCallbackURL, "/")
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Ignoring non-integer environment value")
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Ignoring non-boolean environment value")
		return fallback
	}
	return b
}
