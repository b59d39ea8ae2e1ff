package logging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/warp/slot-engine/settlement"
)

func TestNew_WritesConsoleAndFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "engine.log")
	var console bytes.Buffer

	log, flush, err := newLogger(Config{Level: "debug", Filename: file, MaxSize: 1}, &console)
	require.NoError(t, err)
	log.Debug("hello", zap.String("k", "v"))
	flush()

	assert.Contains(t, console.String(), `"msg":"hello"`)
	assert.Contains(t, console.String(), `"level":"DEBUG"`)
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"k":"v"`)
}

func TestNew_DefaultsToInfo(t *testing.T) {
	var console bytes.Buffer
	log, flush, err := newLogger(Config{}, &console)
	require.NoError(t, err)
	log.Debug("hidden")
	log.Info("shown")
	flush()

	assert.NotContains(t, console.String(), "hidden")
	assert.Contains(t, console.String(), "shown")
}

func TestNew_InvalidLevel(t *testing.T) {
	_, _, err := New(Config{Level: "LOUD"})
	assert.Error(t, err)
}

func TestOperationLogger_Levels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ops := NewOperationLogger(zap.New(core))
	ctx := context.Background()

	ops.LogOperation(ctx, settlement.OperationLog{
		Operation:    "enroll",
		UserID:       "alice",
		SlotID:       "s1",
		EnrollmentID: "e1",
		OptionSize:   4,
		Amount:       decimal.RequireFromString("25"),
		Points:       decimal.RequireFromString("8"),
		Outcome:      "pending",
		Status:       "ok",
		Duration:     time.Millisecond,
	})
	ops.LogOperation(ctx, settlement.OperationLog{
		Operation: "enroll",
		UserID:    "bob",
		Status:    "error",
		Error:     fmt.Errorf("admit: %w", settlement.ErrOptionFull),
	})
	ops.LogOperation(ctx, settlement.OperationLog{
		Operation: "cancel",
		Status:    "error",
		Error:     errors.New("database is locked"),
	})

	entries := logs.All()
	require.Len(t, entries, 3)

	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "engine", entries[0].LoggerName)
	fields := entries[0].ContextMap()
	assert.Equal(t, "enroll", fields["operation"])
	assert.Equal(t, "25.00", fields["amount"])
	assert.Equal(t, "8", fields["points"])
	assert.Equal(t, int64(4), fields["option_size"])
	assert.NotContains(t, fields, "club_id", "empty fields are omitted")

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level, "conflicts are expected")
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(zap.New(core)))
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("pong"))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "/ping", fields["path"])
	assert.Equal(t, int64(http.StatusTeapot), fields["status"])
	assert.Equal(t, int64(4), fields["bytes"])
	assert.NotEmpty(t, fields["request_id"])
}
