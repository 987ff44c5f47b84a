// Package config provides centralized default values for the widget engine and the
// sandbox collector.
package config

import (
	"bufio"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

var envLoaded sync.Once

func loadEnvFile() {
	envLoaded.Do(func() {
		file, err := os.Open(".env")
		if err != nil {
			return
		}
		defer file.Close()

		log.Println("Loading configuration overrides from .env file...")
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())

			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}

			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}

			key := strings.TrimSpace(parts[0])
			value := strings.Trim(strings.TrimSpace(parts[1]), `"`)

			if os.Getenv(key) == "" {
				os.Setenv(key, value)
			}
		}
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseFloat(valStr, 64); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%g (default: %g)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
		}
		return val
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseBool(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%t (default: %t)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var (
	// Widget timing
	IdleTick            time.Duration
	IdleThresholdTicks  int
	HeartbeatInterval   time.Duration
	BubbleTimeout       time.Duration
	RageClickWindow     time.Duration
	RageClickThreshold  int
	ExitIntentThreshold int
	NavPollInterval     time.Duration

	// Widget backend
	APIBase         string
	TermsVersion    string
	RequestTimeout  time.Duration
	BeaconQueueSize int

	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration

	// Sandbox collector
	SandboxDBDriver      string
	SandboxDBDSN         string
	SandboxOrigins       []string
	SandboxTenants       []string
	SandboxRatePerSecond float64
	SandboxRateBurst     int

	// Logging
	LogDirectory string
	LogToFile    bool
	LogJSON      bool
)

func init() {
	loadEnvFile()

	// Widget timing
	IdleTick = getEnvDuration("WIDGET_IDLE_TICK", time.Second)
	IdleThresholdTicks = getEnvInt("WIDGET_IDLE_THRESHOLD_TICKS", 30)
	HeartbeatInterval = getEnvDuration("WIDGET_HEARTBEAT_INTERVAL", 10*time.Second)
	BubbleTimeout = getEnvDuration("WIDGET_BUBBLE_TIMEOUT", 15*time.Second)
	RageClickWindow = getEnvDuration("WIDGET_RAGE_WINDOW", 2*time.Second)
	RageClickThreshold = getEnvInt("WIDGET_RAGE_CLICKS", 5)
	ExitIntentThreshold = getEnvInt("WIDGET_EXIT_INTENT_PX", 5)
	NavPollInterval = getEnvDuration("WIDGET_NAV_POLL_INTERVAL", 500*time.Millisecond)

	// Widget backend
	APIBase = getEnvString("WIDGET_API_BASE", "http://localhost:8080")
	TermsVersion = getEnvString("WIDGET_TERMS_VERSION", "1.0")
	RequestTimeout = getEnvDuration("WIDGET_REQUEST_TIMEOUT", 15*time.Second)
	BeaconQueueSize = getEnvInt("WIDGET_BEACON_QUEUE", 64)

	// Server Configuration
	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)

	// Sandbox collector
	SandboxDBDriver = getEnvString("SANDBOX_DB_DRIVER", "sqlite3")
	SandboxDBDSN = getEnvString("SANDBOX_DB_DSN", "file:sandbox.db?_foreign_keys=on")
	SandboxOrigins = getEnvList("SANDBOX_ALLOWED_ORIGINS")
	SandboxTenants = getEnvList("SANDBOX_TENANTS")
	SandboxRatePerSecond = getEnvFloat("SANDBOX_RATE_PER_SECOND", 20)
	SandboxRateBurst = getEnvInt("SANDBOX_RATE_BURST", 40)

	// Logging
	LogDirectory = getEnvString("LOG_DIRECTORY", "logs")
	LogToFile = getEnvBool("LOG_TO_FILE", false)
	LogJSON = getEnvBool("LOG_JSON", true)
}
