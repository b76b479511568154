package wheel

import (
	"io"
	"log"

	"github.com/rs/zerolog"
)

// DefaultLogger implements Logger using standard log package
type DefaultLogger struct{}

// Info logs an info message
func (l *DefaultLogger) Info(msg string, args ...any) {
	log.Printf("[INFO] "+msg, args...)
}

// Error logs an error message
func (l *DefaultLogger) Error(msg string, args ...any) {
	log.Printf("[ERROR] "+msg, args...)
}

// Debug logs a debug message
func (l *DefaultLogger) Debug(msg string, args ...any) {
	log.Printf("[DEBUG] "+msg, args...)
}

// SilentLogger implements Logger interface but does not output any logs
type SilentLogger struct{}

// NewSilentLogger creates a new silent logger instance
func NewSilentLogger() *SilentLogger {
	return &SilentLogger{}
}

// Info does nothing (silent)
func (l *SilentLogger) Info(msg string, args ...any) {}

// Error does nothing (silent)
func (l *SilentLogger) Error(msg string, args ...any) {}

// Debug does nothing (silent)
func (l *SilentLogger) Debug(msg string, args ...any) {}

// ZerologLogger implements Logger on top of a zerolog.Logger
type ZerologLogger struct {
	logger zerolog.Logger
}

// NewZerologLogger wraps an existing zerolog logger
func NewZerologLogger(logger zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{logger: logger}
}

// NewJSONLogger writes timestamped JSON lines to w, tagged with the wheel id
func NewJSONLogger(w io.Writer, wheelID string, level zerolog.Level) *ZerologLogger {
	return NewZerologLogger(zerolog.New(w).Level(level).With().Timestamp().Str("wheel_id", wheelID).Logger())
}

// Info logs an info message
func (l *ZerologLogger) Info(msg string, args ...any) { l.logger.Info().Msgf(msg, args...) }

// Error logs an error message
func (l *ZerologLogger) Error(msg string, args ...any) { l.logger.Error().Msgf(msg, args...) }

// Debug logs a debug message
func (l *ZerologLogger) Debug(msg string, args ...any) { l.logger.Debug().Msgf(msg, args...) }
