// Package logging provides structured logging channels for the widget engine and the
// sandbox collector, with tenant and session context helpers.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Channel represents a logical logging channel for different system components
type Channel string

const (
	// System channels
	ChannelSystem   Channel = "system"   // General system operations
	ChannelStartup  Channel = "startup"  // Application startup and initialization
	ChannelShutdown Channel = "shutdown" // Application shutdown and cleanup

	// Widget engine channels
	ChannelWidget    Channel = "widget"    // Shell lifecycle and configuration
	ChannelIdentity  Channel = "identity"  // Visitor and session identifiers
	ChannelConsent   Channel = "consent"   // Consent checks and grants
	ChannelTelemetry Channel = "telemetry" // Event dispatch
	ChannelBehavior  Channel = "behavior"  // Behavioral heuristics
	ChannelProactive Channel = "proactive" // Proactive prompt decisions
	ChannelChat      Channel = "chat"      // Chat exchange

	// Collector channels
	ChannelCollector Channel = "collector" // Sandbox ingestion
	ChannelDatabase  Channel = "database"  // Database operations and queries
	ChannelLive      Channel = "live"      // Live feed connections

	ChannelDebug Channel = "debug"
)

var allChannels = []Channel{
	ChannelSystem, ChannelStartup, ChannelShutdown,
	ChannelWidget, ChannelIdentity, ChannelConsent, ChannelTelemetry,
	ChannelBehavior, ChannelProactive, ChannelChat,
	ChannelCollector, ChannelDatabase, ChannelLive,
	ChannelDebug,
}

// ChanneledLogger provides structured logging with multiple channels
type ChanneledLogger struct {
	channels map[Channel]*slog.Logger
	config   *LoggerConfig
	files    []*os.File
	configMu sync.RWMutex
}

// LoggerConfig contains configuration options for the channeled logger
type LoggerConfig struct {
	OutputToFile    bool   `json:"outputToFile"`
	OutputToConsole bool   `json:"outputToConsole"`
	LogDirectory    string `json:"logDirectory"`

	JSONFormat    bool `json:"jsonFormat"`
	IncludeSource bool `json:"includeSource"`

	DefaultLevel  slog.Level             `json:"defaultLevel"`
	ChannelLevels map[Channel]slog.Level `json:"channelLevels"`

	// Writer overrides console output when set. Tests use it to capture lines.
	Writer io.Writer `json:"-"`
}

// DefaultLoggerConfig returns a sensible default configuration
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{
		OutputToFile:    false,
		OutputToConsole: true,
		LogDirectory:    "logs",
		JSONFormat:      true,
		IncludeSource:   false,
		DefaultLevel:    slog.LevelInfo,
		ChannelLevels:   make(map[Channel]slog.Level),
	}
}

// NewChanneledLogger creates a new channeled logger with the given configuration
func NewChanneledLogger(config *LoggerConfig) (*ChanneledLogger, error) {
	if config == nil {
		config = DefaultLoggerConfig()
	}
	if config.ChannelLevels == nil {
		config.ChannelLevels = make(map[Channel]slog.Level)
	}

	logger := &ChanneledLogger{
		channels: make(map[Channel]*slog.Logger),
		config:   config,
	}

	if config.OutputToFile {
		if err := os.MkdirAll(config.LogDirectory, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	for _, channel := range allChannels {
		channelLogger, err := logger.createChannelLogger(channel)
		if err != nil {
			return nil, fmt.Errorf("failed to create logger for channel %s: %w", channel, err)
		}
		logger.channels[channel] = channelLogger
	}

	return logger, nil
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() *ChanneledLogger {
	logger, _ := NewChanneledLogger(&LoggerConfig{
		OutputToConsole: true,
		Writer:          io.Discard,
		DefaultLevel:    slog.LevelError + 4,
	})
	return logger
}

// createChannelLogger creates a slog.Logger for a specific channel
func (cl *ChanneledLogger) createChannelLogger(channel Channel) (*slog.Logger, error) {
	level := cl.config.DefaultLevel
	if channelLevel, exists := cl.config.ChannelLevels[channel]; exists {
		level = channelLevel
	}

	var writers []io.Writer

	if cl.config.OutputToConsole {
		if cl.config.Writer != nil {
			writers = append(writers, cl.config.Writer)
		} else {
			writers = append(writers, os.Stdout)
		}
	}

	if cl.config.OutputToFile {
		path := filepath.Join(cl.config.LogDirectory, fmt.Sprintf("%s.log", string(channel)))

		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
		}
		cl.files = append(cl.files, file)
		writers = append(writers, file)
	}

	var writer io.Writer
	switch len(writers) {
	case 0:
		writer = os.Stdout
	case 1:
		writer = writers[0]
	default:
		writer = io.MultiWriter(writers...)
	}

	handlerOpts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cl.config.IncludeSource,
	}

	var handler slog.Handler
	if cl.config.JSONFormat {
		handler = slog.NewJSONHandler(writer, handlerOpts)
	} else {
		handler = slog.NewTextHandler(writer, handlerOpts)
	}

	return slog.New(handler).With(slog.String("channel", string(channel))), nil
}

func (cl *ChanneledLogger) System() *slog.Logger    { return cl.GetChannel(ChannelSystem) }
func (cl *ChanneledLogger) Startup() *slog.Logger   { return cl.GetChannel(ChannelStartup) }
func (cl *ChanneledLogger) Shutdown() *slog.Logger  { return cl.GetChannel(ChannelShutdown) }
func (cl *ChanneledLogger) Widget() *slog.Logger    { return cl.GetChannel(ChannelWidget) }
func (cl *ChanneledLogger) Identity() *slog.Logger  { return cl.GetChannel(ChannelIdentity) }
func (cl *ChanneledLogger) Consent() *slog.Logger   { return cl.GetChannel(ChannelConsent) }
func (cl *ChanneledLogger) Telemetry() *slog.Logger { return cl.GetChannel(ChannelTelemetry) }
func (cl *ChanneledLogger) Behavior() *slog.Logger  { return cl.GetChannel(ChannelBehavior) }
func (cl *ChanneledLogger) Proactive() *slog.Logger { return cl.GetChannel(ChannelProactive) }
func (cl *ChanneledLogger) Chat() *slog.Logger      { return cl.GetChannel(ChannelChat) }
func (cl *ChanneledLogger) Collector() *slog.Logger { return cl.GetChannel(ChannelCollector) }
func (cl *ChanneledLogger) Database() *slog.Logger  { return cl.GetChannel(ChannelDatabase) }
func (cl *ChanneledLogger) Live() *slog.Logger      { return cl.GetChannel(ChannelLive) }
func (cl *ChanneledLogger) Debug() *slog.Logger     { return cl.GetChannel(ChannelDebug) }

// GetChannel returns a logger for a specific channel
func (cl *ChanneledLogger) GetChannel(channel Channel) *slog.Logger {
	cl.configMu.RLock()
	defer cl.configMu.RUnlock()
	if logger, exists := cl.channels[channel]; exists {
		return logger
	}
	return cl.channels[ChannelSystem]
}

// WithTenant returns a logger with tenant context
func (cl *ChanneledLogger) WithTenant(channel Channel, tenantID string) *slog.Logger {
	return cl.GetChannel(channel).With(slog.String("tenantId", tenantID))
}

// WithSession returns a logger with tenant and masked session context
func (cl *ChanneledLogger) WithSession(channel Channel, tenantID, sessionID string) *slog.Logger {
	return cl.GetChannel(channel).With(
		slog.String("tenantId", tenantID),
		slog.String("sessionId", SanitizeSessionID(sessionID)),
	)
}

// WithOperation returns a logger with operation context
func (cl *ChanneledLogger) WithOperation(channel Channel, operation string) *slog.Logger {
	return cl.GetChannel(channel).With(slog.String("operation", operation))
}

// LogError logs an error with appropriate context and channel
func (cl *ChanneledLogger) LogError(channel Channel, operation string, err error, tenantID string, metadata map[string]any) {
	logger := cl.GetChannel(channel).With(
		slog.String("operation", operation),
		slog.String("tenantId", tenantID),
		slog.String("error", err.Error()),
	)

	for key, value := range metadata {
		logger = logger.With(slog.Any(key, value))
	}

	logger.Error("Operation failed")
}

// LogStartupPhase logs application startup phases
func (cl *ChanneledLogger) LogStartupPhase(phase string, duration time.Duration, success bool, metadata map[string]any) {
	logger := cl.Startup().With(
		slog.String("phase", phase),
		slog.Duration("duration", duration),
		slog.Bool("success", success),
	)

	for key, value := range metadata {
		logger = logger.With(slog.Any(key, value))
	}

	if success {
		logger.Info("Startup phase completed")
	} else {
		logger.Error("Startup phase failed")
	}
}

// SanitizeSessionID partially masks session IDs for privacy
func SanitizeSessionID(sessionID string) string {
	if len(sessionID) <= 8 {
		return "********"
	}
	return sessionID[:4] + "****" + sessionID[len(sessionID)-4:]
}

// SetChannelLevel dynamically sets the log level for a specific channel
func (cl *ChanneledLogger) SetChannelLevel(channel Channel, level slog.Level) error {
	cl.configMu.Lock()
	defer cl.configMu.Unlock()

	if _, exists := cl.channels[channel]; !exists {
		return fmt.Errorf("channel %s does not exist", channel)
	}

	cl.config.ChannelLevels[channel] = level

	newLogger, err := cl.createChannelLogger(channel)
	if err != nil {
		return fmt.Errorf("failed to recreate logger for channel %s: %w", channel, err)
	}
	cl.channels[channel] = newLogger

	return nil
}

// Close closes all file handles
func (cl *ChanneledLogger) Close() error {
	var firstErr error
	for _, f := range cl.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	cl.files = nil
	return firstErr
}
