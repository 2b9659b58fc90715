package log

import (
	"context"
	"log/slog"
	"net/http"
)

type contextKey string

const loggerContextKey contextKey = "logger"

// Middleware stores logger, tagged with the request id, in the request
// context.
func Middleware(logger *Logger, extractRequestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := logger
			if extractRequestID != nil {
				if id := extractRequestID(r); id != "" {
					l = l.With(FieldRequestID, id)
				}
			}
			ctx := context.WithValue(r.Context(), loggerContextKey, l)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext returns the request logger, or one over slog.Default.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{Logger: slog.Default(), component: ComponentApp}
}

// StructuredLogger emits the records the API and worker share.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// LogHTTPEnd logs a completed request; 4xx at warn, 5xx at error.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, requestID string, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	if statusCode >= 400 && statusCode < 500 {
		level = slog.LevelWarn
	} else if statusCode >= 500 {
		level = slog.LevelError
	}

	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent")).
		WithHTTPResponse(statusCode, durationMs, statusCode < 400).
		WithRequestID(requestID).
		WithClientIP(clientIP).
		WithComponent(ComponentHTTP)

	sl.logger.Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

// LogKickstart logs the outcome of a materialization.
func (sl *StructuredLogger) LogKickstart(ctx context.Context, workspaceID, cycleID, month string, items int, created bool) {
	fields := NewFields().
		WithCycle(workspaceID, cycleID, month).
		WithOperation(OpKickstart).
		WithComponent(ComponentCycle)
	fields[FieldItems] = items
	fields["created"] = created

	sl.logger.Log(ctx, slog.LevelInfo, "Cycle kickstarted", fields.ToSlice()...)
}

// LogSync logs a sync report. A report with failed months is a warning.
func (sl *StructuredLogger) LogSync(ctx context.Context, table, eventType, sourceID string, upserted, skipped, pruned, failed int) {
	fields := NewFields().
		WithEvent(table, eventType, sourceID).
		WithOperation(OpSync).
		WithComponent(ComponentSync)
	fields[FieldUpserted] = upserted
	fields[FieldSkipped] = skipped
	fields[FieldPruned] = pruned
	fields[FieldFailed] = failed

	level := slog.LevelInfo
	if failed > 0 {
		level = slog.LevelWarn
	}
	sl.logger.Log(ctx, level, "Sync event processed", fields.ToSlice()...)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	all := fields.WithError(err).WithOperation(operation).WithComponent(component)
	sl.logger.Log(ctx, slog.LevelError, msg, all.ToSlice()...)
}
