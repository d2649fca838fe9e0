package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger wraps slog.Logger with additional functionality
type Logger struct {
	*slog.Logger
}

// New creates a new logger instance
func New() *Logger {
	// Get log level from environment
	level := getLogLevel(os.Getenv("LOG_LEVEL"))

	// Create handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	// Create handler based on environment
	var handler slog.Handler
	if gin.Mode() == gin.DebugMode {
		// Use text handler for development (more readable)
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		// Use JSON handler for production (structured)
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// getLogLevel converts string to slog.Level
func getLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithOffice adds the office to logger context
func (l *Logger) WithOffice(office string) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("office", office)),
	}
}

// WithStaff adds the staff username to logger context
func (l *Logger) WithStaff(username string) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("staff", username)),
	}
}

// WithError adds error to logger context
func (l *Logger) WithError(err error) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("error", err.Error())),
	}
}

// HTTP logging methods

// LogHTTPRequest logs an HTTP request
func (l *Logger) LogHTTPRequest(c *gin.Context, duration time.Duration) {
	l.Logger.InfoContext(c.Request.Context(),
		"HTTP Request",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("query", c.Request.URL.RawQuery),
		slog.Int("status", c.Writer.Status()),
		slog.Duration("duration", duration),
		slog.String("ip", c.ClientIP()),
		slog.Int("size", c.Writer.Size()),
	)
}

// Queue business logging methods

// LogTicketIssued logs a newly issued ticket
func (l *Logger) LogTicketIssued(ctx context.Context, displayNumber, office string, priority bool) {
	l.Logger.InfoContext(ctx,
		"Ticket Issued",
		slog.String("display_number", displayNumber),
		slog.String("office", office),
		slog.Bool("priority", priority),
	)
}

// LogTicketClaimed logs a ticket moving into processing
func (l *Logger) LogTicketClaimed(ctx context.Context, displayNumber, office, staff string) {
	l.Logger.InfoContext(ctx,
		"Ticket Claimed",
		slog.String("display_number", displayNumber),
		slog.String("office", office),
		slog.String("staff", staff),
	)
}

// LogTicketHeld logs a ticket put on hold
func (l *Logger) LogTicketHeld(ctx context.Context, displayNumber, office, staff string) {
	l.Logger.InfoContext(ctx,
		"Ticket Held",
		slog.String("display_number", displayNumber),
		slog.String("office", office),
		slog.String("staff", staff),
	)
}

// LogTicketCompleted logs a completed ticket
func (l *Logger) LogTicketCompleted(ctx context.Context, displayNumber, office, staff string) {
	l.Logger.InfoContext(ctx,
		"Ticket Completed",
		slog.String("display_number", displayNumber),
		slog.String("office", office),
		slog.String("staff", staff),
	)
}

// LogSweep logs one sweeper iteration that cancelled tickets
func (l *Logger) LogSweep(ctx context.Context, sweep, office string, cancelled int64) {
	l.Logger.InfoContext(ctx,
		"Sweep Completed",
		slog.String("sweep", sweep),
		slog.String("office", office),
		slog.Int64("cancelled", cancelled),
	)
}

// LogSweepError logs a failed sweeper iteration; the loop continues
func (l *Logger) LogSweepError(ctx context.Context, sweep, office string, err error) {
	l.Logger.ErrorContext(ctx,
		"Sweep Failed",
		slog.String("sweep", sweep),
		slog.String("office", office),
		slog.String("error", err.Error()),
	)
}

// Security logging methods

// LogAuthSuccess logs successful authentication
func (l *Logger) LogAuthSuccess(ctx context.Context, username, method string) {
	l.Logger.InfoContext(ctx,
		"Authentication Success",
		slog.String("username", username),
		slog.String("method", method),
	)
}

// LogAuthFailure logs failed authentication
func (l *Logger) LogAuthFailure(ctx context.Context, reason, ip string) {
	l.Logger.WarnContext(ctx,
		"Authentication Failure",
		slog.String("reason", reason),
		slog.String("ip", ip),
	)
}

// Helper methods for common patterns

// InfoWithContext logs an info message with context
func (l *Logger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.InfoContext(ctx, msg, args...)
}

// ErrorWithContext logs an error message with context
func (l *Logger) ErrorWithContext(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2+2)
	args = append(args, slog.String("error", err.Error()))
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.ErrorContext(ctx, msg, args...)
}

// Global logger instance (can be replaced with dependency injection)
var defaultLogger = New()

// GetDefault returns the default logger instance
func GetDefault() *Logger {
	return defaultLogger
}

// SetDefault sets the default logger instance
func SetDefault(logger *Logger) {
	defaultLogger = logger
}
