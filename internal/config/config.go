package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string `yaml:"port"`

	// Auth
	APIKey string `yaml:"api_key"`

	LogLevel string `yaml:"log_level"`

	// Upload limits
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// Defaults for summaries and quizzes
	SummaryLength string `yaml:"summary_length"`
	QuizCount     int    `yaml:"quiz_count"`

	// YouTube transcripts
	TranscriptLanguages []string      `yaml:"transcript_languages"`
	YouTubeBaseURL      string        `yaml:"youtube_base_url"`
	HTTPTimeout         time.Duration `yaml:"http_timeout"`

	// PDF
	PDFFallbackPdftotext bool `yaml:"pdf_fallback_pdftotext"`

	// Image conversion
	ConvertConcurrency int `yaml:"convert_concurrency"`

	// Latency stats window
	StatsWindow time.Duration `yaml:"stats_window"`

	// Watch mode output; empty writes next to the source
	WatchOutputDir string `yaml:"watch_output_dir"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Port:                 "8090",
		LogLevel:             "info",
		MaxUploadBytes:       52428800, // 50MB
		SummaryLength:        "medium",
		QuizCount:            5,
		TranscriptLanguages:  []string{"en"},
		YouTubeBaseURL:       "https://www.youtube.com",
		HTTPTimeout:          30 * time.Second,
		PDFFallbackPdftotext: true,
		ConvertConcurrency:   4,
		StatsWindow:          time.Hour,
	}
}

// Load reads an optional .env file, then the YAML file named by AICLI_CONFIG,
// then environment variables. Later sources win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Defaults()
	if path := os.Getenv("AICLI_CONFIG"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.Port = envOr("PORT", cfg.Port)
	cfg.APIKey = envOr("API_KEY", cfg.APIKey)
	cfg.LogLevel = envOr("LOG_LEVEL", cfg.LogLevel)
	cfg.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.SummaryLength = envOr("SUMMARY_LENGTH", cfg.SummaryLength)
	cfg.QuizCount = envInt("QUIZ_COUNT", cfg.QuizCount)
	cfg.TranscriptLanguages = envList("TRANSCRIPT_LANGUAGES", cfg.TranscriptLanguages)
	cfg.YouTubeBaseURL = envOr("YOUTUBE_BASE_URL", cfg.YouTubeBaseURL)
	cfg.HTTPTimeout = envDuration("HTTP_TIMEOUT", cfg.HTTPTimeout)
	cfg.PDFFallbackPdftotext = envBool("PDF_FALLBACK_PDFTOTEXT", cfg.PDFFallbackPdftotext)
	cfg.ConvertConcurrency = envInt("CONVERT_CONCURRENCY", cfg.ConvertConcurrency)
	cfg.StatsWindow = envDuration("STATS_WINDOW", cfg.StatsWindow)
	cfg.WatchOutputDir = envOr("WATCH_OUTPUT_DIR", cfg.WatchOutputDir)

	cfg.clamp()
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) clamp() {
	d := Defaults()
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = d.MaxUploadBytes
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = d.HTTPTimeout
	}
	if c.ConvertConcurrency <= 0 {
		c.ConvertConcurrency = d.ConvertConcurrency
	}
	if c.StatsWindow <= 0 {
		c.StatsWindow = d.StatsWindow
	}
	if len(c.TranscriptLanguages) == 0 {
		c.TranscriptLanguages = d.TranscriptLanguages
	}
	c.SummaryLength = strings.ToLower(strings.TrimSpace(c.SummaryLength))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
}

func (c Config) Validate() error {
	if n, err := strconv.Atoi(c.Port); err != nil || n <= 0 || n > 65535 {
		return fmt.Errorf("invalid PORT %q", c.Port)
	}
	switch c.SummaryLength {
	case "short", "medium", "long":
	default:
		return fmt.Errorf("invalid SUMMARY_LENGTH %q (expected short, medium or long)", c.SummaryLength)
	}
	switch c.QuizCount {
	case 5, 10, 20:
	default:
		return fmt.Errorf("invalid QUIZ_COUNT %d (expected 5, 10 or 20)", c.QuizCount)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL %q", c.LogLevel)
	}
	if c.ConvertConcurrency > 64 {
		return fmt.Errorf("CONVERT_CONCURRENCY %d is too high", c.ConvertConcurrency)
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
