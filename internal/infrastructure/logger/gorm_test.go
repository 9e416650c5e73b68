package logger

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/b2bportal/backend/internal/domain/integration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestGormLevel(t *testing.T) {
	tests := []struct {
		level string
		want  gormlogger.LogLevel
	}{
		{"debug", gormlogger.Info},
		{"info", gormlogger.Warn},
		{"warn", gormlogger.Warn},
		{"error", gormlogger.Error},
		{"silent", gormlogger.Silent},
		{"bogus", gormlogger.Warn},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.want, WithLogLevel(zap.NewNop(), tt.level, 0).level)
		})
	}
}

// openObservedMirror opens an in-memory database whose statements are
// recorded at the given application log level
func openObservedMirror(t *testing.T, level string) (*gorm.DB, *observer.ObservedLogs) {
	t.Helper()
	core, recorded := observer.New(zapcore.DebugLevel)
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: WithLogLevel(zap.New(core), level, 0),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Exec(`CREATE TABLE products (code TEXT PRIMARY KEY, last_synced_at DATETIME)`).Error)
	require.NoError(t, db.Exec(`INSERT INTO products (code) VALUES ('A1'), ('B2')`).Error)
	recorded.TakeAll()
	return db, recorded
}

func statementsMatching(logs *observer.ObservedLogs, fragment string) []observer.LoggedEntry {
	return logs.Filter(func(e observer.LoggedEntry) bool {
		sql, _ := e.ContextMap()["sql"].(string)
		return strings.Contains(sql, fragment)
	}).All()
}

func TestGormLogger_SyncStatementsCarryRunLabels(t *testing.T) {
	db, recorded := openObservedMirror(t, "debug")
	ctx := runContext(t, spanContext(), map[string]string{
		integration.LabelRunID: "run-42",
		integration.LabelKind:  "scoped",
		integration.LabelStage: "prices",
	})

	touched := db.WithContext(ctx).Exec(`UPDATE products SET last_synced_at = ? WHERE code IN ?`,
		time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), []string{"A1", "B2"})
	require.NoError(t, touched.Error)

	entries := statementsMatching(recorded, "UPDATE products")
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "run-42", fields["run_id"])
	assert.Equal(t, "scoped", fields["kind"])
	assert.Equal(t, "prices", fields["stage"])
	assert.Equal(t, "aa000000000000000000000000000000", fields["trace_id"])
	assert.Equal(t, int64(2), fields["rows"])
}

func TestGormLogger_FailedStatementIsAnError(t *testing.T) {
	db, recorded := openObservedMirror(t, "info")
	ctx := runContext(t, context.Background(), map[string]string{integration.LabelStage: "products"})

	err := db.WithContext(ctx).Exec(`DELETE FROM price_snapshots WHERE product_code IN ?`, []string{"A1"}).Error
	require.Error(t, err)

	entries := statementsMatching(recorded, "DELETE FROM price_snapshots")
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "products", entries[0].ContextMap()["stage"])
	assert.Contains(t, entries[0].ContextMap()["error"], "no such table")
}

func TestGormLogger_QuietBelowDebug(t *testing.T) {
	db, recorded := openObservedMirror(t, "info")

	var codes []string
	require.NoError(t, db.Raw(`SELECT code FROM products ORDER BY code`).Scan(&codes).Error)
	assert.Equal(t, []string{"A1", "B2"}, codes)
	assert.Zero(t, recorded.Len(), "fast statements are not logged at info")
}

func TestGormLogger_Trace(t *testing.T) {
	upsert := func() (string, int64) {
		return `INSERT INTO "products" ("code") VALUES ('A1') ON CONFLICT ("code") DO UPDATE SET "description"="excluded"."description"`, -1
	}

	t.Run("slow statement warns", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		gl := WithLogLevel(zap.New(core), "info", 100*time.Millisecond)

		gl.Trace(context.Background(), time.Now().Add(-time.Second), upsert, nil)

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, zapcore.WarnLevel, logs[0].Level)
		assert.Equal(t, "Slow SQL statement", logs[0].Message)
		assert.NotContains(t, logs[0].ContextMap(), "rows", "unknown row counts are omitted")
	})

	t.Run("missing record is not an error", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		gl := WithLogLevel(zap.New(core), "warn", 0)

		gl.Trace(context.Background(), time.Now(), upsert, gormlogger.ErrRecordNotFound)
		assert.Zero(t, recorded.Len())
	})

	t.Run("silent logs nothing", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		gl := WithLogLevel(zap.New(core), "silent", time.Nanosecond)

		gl.Trace(context.Background(), time.Now().Add(-time.Second), upsert, errors.New("boom"))
		assert.Zero(t, recorded.Len())
	})

	t.Run("log mode copies", func(t *testing.T) {
		gl := WithLogLevel(zap.NewNop(), "info", 0)
		quiet := gl.LogMode(gormlogger.Silent)

		assert.Equal(t, gormlogger.Warn, gl.level)
		assert.Equal(t, gormlogger.Silent, quiet.(*GormLogger).level)
	})
}
