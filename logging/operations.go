package logging

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/warp/slot-engine/settlement"
)

// OperationLogger writes engine operation records to zap.
// Successful calls log at info, rejected ones at warn, failures at error.
type OperationLogger struct {
	log *zap.Logger
}

// NewOperationLogger returns a settlement.OperationLogger backed by log.
func NewOperationLogger(log *zap.Logger) *OperationLogger {
	return &OperationLogger{log: log.Named("engine")}
}

func (l *OperationLogger) LogOperation(ctx context.Context, entry settlement.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("status", entry.Status),
		zap.Duration("duration", entry.Duration),
	}
	fields = appendString(fields, "user_id", entry.UserID)
	fields = appendString(fields, "slot_id", entry.SlotID)
	fields = appendString(fields, "club_id", entry.ClubID)
	fields = appendString(fields, "enrollment_id", entry.EnrollmentID)
	fields = appendString(fields, "outcome", entry.Outcome)
	if entry.OptionSize > 0 {
		fields = append(fields, zap.Int("option_size", entry.OptionSize))
	}
	if !entry.Amount.IsZero() {
		fields = append(fields, zap.String("amount", entry.Amount.StringFixed(2)))
	}
	if !entry.Points.IsZero() {
		fields = append(fields, zap.String("points", entry.Points.String()))
	}
	if id := middleware.GetReqID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if entry.Error != nil {
		fields = append(fields, zap.Error(entry.Error))
	}

	level := zapcore.InfoLevel
	switch {
	case entry.Error == nil:
	case expected(entry.Error):
		level = zapcore.WarnLevel
	default:
		level = zapcore.ErrorLevel
	}
	if ce := l.log.Check(level, "engine operation"); ce != nil {
		ce.Write(fields...)
	}
}

// expected reports rejections that are part of normal traffic.
func expected(err error) bool {
	return settlement.IsConflict(err) ||
		settlement.IsFunding(err) ||
		settlement.IsValidation(err) ||
		settlement.IsNotFound(err) ||
		settlement.IsRetryable(err)
}

func appendString(fields []zap.Field, key, value string) []zap.Field {
	if value == "" {
		return fields
	}
	return append(fields, zap.String(key, value))
}

// RequestLogger is chi middleware logging one line per HTTP request.
func RequestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	log = log.Named("http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info("request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
