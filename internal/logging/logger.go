package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

// LogLevelEnvVar is the environment variable that controls logging verbosity.
// When unset or empty, logging is silent (no zap output).
// Valid values: "debug", "info", "warn", "error"
const LogLevelEnvVar = "NORMAN_LOG_LEVEL"

// maxBodyLog bounds how much of a gateway response body is written to the log.
const maxBodyLog = 1024

// sensitiveKeys are payload keys whose values never reach the log.
var sensitiveKeys = map[string]bool{
	"password": true,
	"pass":     true,
	"pwd":      true,
	"token":    true,
}

// Initialize logs to stderr at level, or at NORMAN_LOG_LEVEL when level is
// empty. With neither set logging stays silent.
func Initialize(level string) error {
	return InitializeTo(level, "stderr")
}

// InitializeTo is Initialize with an explicit output path. The TUI logs to a
// file so it does not draw over the screen.
func InitializeTo(level string, outputPath string) error {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}
	if level == "" {
		logger = zap.NewNop()
		return nil
	}

	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return err
	}

	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeCaller = zapcore.ShortCallerEncoder
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	if outputPath == "stderr" || outputPath == "stdout" {
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	built, err := zap.Config{
		Level:            zap.NewAtomicLevelAt(lvl),
		Encoding:         "console",
		EncoderConfig:    enc,
		OutputPaths:      []string{outputPath},
		ErrorOutputPaths: []string{"stderr"},
	}.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger = built
	return nil
}

// SetLogger replaces the global logger. Tests use it with zaptest/observer.
func SetLogger(l *zap.Logger) {
	logger = l
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// MaskPayload returns a copy of payload with credential values replaced by "***".
func MaskPayload(payload map[string]any) map[string]any {
	masked := make(map[string]any, len(payload))
	for k, v := range payload {
		if sensitiveKeys[strings.ToLower(k)] {
			masked[k] = "***"
			continue
		}
		masked[k] = v
	}
	return masked
}

// LogGatewayRequest logs an outgoing gateway request. Callers pass a payload
// that has already been through MaskPayload when it carries credentials.
func LogGatewayRequest(endpoint string, payload any) {
	Debug("Gateway request",
		zap.String("endpoint", endpoint),
		zap.Any("payload", payload),
	)
}

// LogGatewayResponse logs a gateway response with a bounded body excerpt.
func LogGatewayResponse(endpoint string, statusCode int, body []byte) {
	Debug("Gateway response",
		zap.String("endpoint", endpoint),
		zap.Int("status_code", statusCode),
		zap.Int("length", len(body)),
		zap.String("body", excerpt(body)),
	)
}

// LogHTTPRequest logs a request served by the bridge API.
func LogHTTPRequest(remoteAddr, method, path string, status int) {
	Info("HTTP request",
		zap.String("remote_addr", remoteAddr),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status_code", status),
	)
}

// LogConnection logs a client connection event (websocket, mqtt).
func LogConnection(remoteAddr string, event string) {
	Info("Connection event",
		zap.String("remote_addr", remoteAddr),
		zap.String("event", event),
	)
}

func excerpt(body []byte) string {
	if len(body) > maxBodyLog {
		return string(body[:maxBodyLog]) + "..."
	}
	return string(body)
}

// Sync flushes any buffered log entries
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}
