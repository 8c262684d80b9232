package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// Simulation
	ReferenceCurrency string
	RunTimeout        time.Duration

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Worker
	MaxConcurrentRuns int
	BaselineSchedule  string

	// Export
	ExportEnabled       bool
	GoogleSpreadsheetID string
	GoogleSheetName     string
}

func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "8081"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/horizon.db"),

		ReferenceCurrency: getEnv("REFERENCE_CURRENCY", "EUR"),
		RunTimeout:        getEnvDuration("RUN_TIMEOUT", 30*time.Second),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "horizon"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "run_scenarios"),

		MaxConcurrentRuns: getEnvInt("MAX_CONCURRENT_RUNS", 4),
		BaselineSchedule:  getEnv("BASELINE_SCHEDULE", "0 3 * * *"),

		ExportEnabled:       getEnvBool("EXPORT_ENABLED", false),
		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Projections"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if len(c.ReferenceCurrency) != 3 {
		errors = append(errors, fmt.Sprintf("invalid reference currency '%s': must be a 3-letter ISO code", c.ReferenceCurrency))
	}

	if c.RunTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid run timeout %v: must be at least 1 second", c.RunTimeout))
	} else if c.RunTimeout > time.Hour {
		errors = append(errors, fmt.Sprintf("invalid run timeout %v: must be at most 1 hour", c.RunTimeout))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}

		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.MaxConcurrentRuns < 1 {
		errors = append(errors, fmt.Sprintf("invalid max concurrent runs %d: must be at least 1", c.MaxConcurrentRuns))
	} else if c.MaxConcurrentRuns > 64 {
		errors = append(errors, fmt.Sprintf("invalid max concurrent runs %d: must be at most 64", c.MaxConcurrentRuns))
	}

	if c.ExportEnabled && c.GoogleSpreadsheetID == "" {
		errors = append(errors, "Google Spreadsheet ID is required when export is enabled")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
