package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"jira-flow/internal/jira"
	"jira-flow/internal/stats"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Jira            jira.Config
	DataPath        string
	CacheDir        string
	CacheTTL        time.Duration
	UseBusinessDays bool
	Holidays        []string
	WorkflowFile    string
}

// Load loads the configuration from .env files and environment variables.
func Load() (*AppConfig, error) {
	// 1. Try to load from the executable's directory
	exePath, err := os.Executable()
	exeDir := ""
	if err == nil {
		exeDir = filepath.Dir(exePath)
		envPath := filepath.Join(exeDir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}

	// 2. Fallback to current working directory
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables")
	}

	// 3. Resolve Data Paths
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		if exeDir != "" {
			dataPath = exeDir
		} else {
			dataPath = "."
		}
	}

	cfg := &AppConfig{
		Jira: jira.Config{
			BaseURL:           getEnv("JIRA_BASE_URL", "https://jira.example.com"),
			User:              getEnv("JIRA_USER", ""),
			Token:             getEnv("JIRA_API_TOKEN", ""),
			Timeout:           getEnvSeconds("JIRA_REQUEST_TIMEOUT", 10),
			MaxRetries:        getEnvInt("JIRA_MAX_RETRIES", 3),
			BackoffFactor:     getEnvSeconds("JIRA_BACKOFF_FACTOR", 0.5),
			PageSize:          getEnvInt("JIRA_PAGE_SIZE", 100),
			Concurrency:       getEnvInt("JIRA_CONCURRENCY", 4),
			RequestsPerSecond: getEnvFloat("JIRA_REQUESTS_PER_SECOND", 5),
		},
		DataPath:        dataPath,
		CacheDir:        filepath.Join(dataPath, "cache"),
		CacheTTL:        time.Duration(getEnvInt("CACHE_TTL_MINUTES", 0)) * time.Minute,
		UseBusinessDays: getEnvBool("JIRA_USE_BUSINESS_DAYS", false),
		Holidays:        parseHolidays(os.Getenv("JIRA_HOLIDAYS")),
		WorkflowFile:    getEnv("JIRA_WORKFLOW_FILE", ""),
	}

	log.Debug().
		Str("base_url", cfg.Jira.BaseURL).
		Str("data_path", cfg.DataPath).
		Bool("business_days", cfg.UseBusinessDays).
		Int("holidays", len(cfg.Holidays)).
		Msg("Configuration loaded")
	return cfg, nil
}

// parseHolidays reads a JSON array of YYYY-MM-DD strings. Anything
// invalid yields no holidays at all.
func parseHolidays(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var values []any
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		log.Warn().Err(err).Msg("Ignoring JIRA_HOLIDAYS: not a JSON array")
		return nil
	}
	var dates []string
	for _, v := range values {
		if s, ok := v.(string); ok {
			dates = append(dates, s)
		}
	}
	if _, err := stats.ParseHolidays(dates); err != nil {
		log.Warn().Err(err).Msg("Ignoring JIRA_HOLIDAYS")
		return nil
	}
	return dates
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "1", "true", "yes":
			return true
		case "0", "false", "no", "":
			return false
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return n
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring invalid integer setting")
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring invalid number setting")
	}
	return fallback
}

func getEnvSeconds(key string, fallback float64) time.Duration {
	return time.Duration(getEnvFloat(key, fallback) * float64(time.Second))
}
