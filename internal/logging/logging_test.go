package logging

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-journal/internal/models"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("chatty"))

	assert.True(t, ValidLevel(" info "))
	assert.False(t, ValidLevel("chatty"))
}

func TestFileLogging(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "journal.log")
	logger := NewLoggerWithConfig(LogConfig{Level: "info", File: true, FilePath: path, MaxSize: 1})

	LogTradeDeleted(logger, "t-1", "AAPL")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"trade_id":"t-1"`)
	assert.Contains(t, string(data), `"event":"trade_deleted"`)
}

func TestConsoleLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(LogConfig{Level: "warn", Console: true}, &buf)

	tr := &models.Trade{}
	tr.ID = "t-2"
	LogTradeDerived(logger, tr)
	assert.Empty(t, buf.String(), "debug events are filtered at warn")

	logger.Warn().Msg("careful")
	assert.Contains(t, buf.String(), "careful")
}

func TestLogSnapshotError(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	LogSnapshot(logger, "save", "file", 3, time.Millisecond, assert.AnError)
	assert.Contains(t, buf.String(), "Snapshot save failed")
	assert.Contains(t, buf.String(), `"trades":3`)

	// Failures survive the default warn level; successes do not.
	buf.Reset()
	logger = newLogger(LogConfig{Level: "warn", Console: true}, &buf)
	LogSnapshot(logger, "load", "sqlite", 0, time.Millisecond, nil)
	assert.Empty(t, buf.String())
	LogSnapshot(logger, "load", "sqlite", 0, time.Millisecond, assert.AnError)
	assert.Contains(t, buf.String(), "Snapshot load failed")
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := WithMarket(zerolog.New(&buf), models.MarketIndia)
	ctx := WithLogger(context.Background(), logger)

	l := FromContext(ctx)
	l.Info().Msg("hello")
	assert.Contains(t, buf.String(), `"market":"india"`)

	nop := FromContext(context.Background())
	nop.Info().Msg("dropped")
}
