package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-journal/internal/errors"
	"trade-journal/internal/logging"
	"trade-journal/internal/models"
)

// run executes one command against the journal in dir, the way Execute does.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	app := &App{newLogger: func(logging.LogConfig) zerolog.Logger { return zerolog.Nop() }}
	rootCmd := newRootCmd(app)

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(append(args, "--config", dir))

	err := rootCmd.ExecuteContext(context.Background())
	require.NoError(t, app.Close())
	return buf.String(), err
}

func runJSON(t *testing.T, dir string, v interface{}, args ...string) {
	t.Helper()
	out, err := run(t, dir, append(args, "--json")...)
	require.NoError(t, err, out)
	require.NoError(t, json.Unmarshal([]byte(out), v), out)
}

func journalDir(t *testing.T, driver string) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("JOURNAL_STORE", driver)
	if driver == "file" {
		t.Setenv("JOURNAL_STORE_PATH", filepath.Join(dir, "journal.json"))
	} else {
		t.Setenv("JOURNAL_STORE_PATH", filepath.Join(dir, "journal.db"))
	}
	return dir
}

var addAAPL = []string{"add", "-i", "AAPL", "-d", "long", "--entry", "100", "--stop", "95", "--exit", "110", "--date", "2024-03-04", "--time", "09:45", "--strategy", "Pullback"}

func TestTradeLifecycle(t *testing.T) {
	for _, driver := range []string{"file", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			dir := journalDir(t, driver)

			var added map[string]interface{}
			runJSON(t, dir, &added, addAAPL...)
			id, _ := added["id"].(string)
			require.NotEmpty(t, id)
			assert.Equal(t, 100.0, added["risk_amount"])
			assert.Equal(t, 20.0, added["position_size_used"])
			assert.Equal(t, 200.0, added["net_pnl"])
			assert.Equal(t, string(models.StatusWin), added["status"])

			var trades []map[string]interface{}
			runJSON(t, dir, &trades, "list")
			require.Len(t, trades, 1)
			assert.Equal(t, id, trades[0]["id"])

			var m models.Metrics
			runJSON(t, dir, &m, "stats")
			assert.Equal(t, 1, m.TotalTrades)
			assert.InDelta(t, 200, m.TotalNet, 1e-9)

			// Editing by id prefix re-derives the trade.
			var edited map[string]interface{}
			runJSON(t, dir, &edited, "edit", id[:6], "--exit", "94")
			assert.Equal(t, string(models.StatusSLHit), edited["status"])

			_, err := run(t, dir, "delete", id)
			require.NoError(t, err)
			trades = nil
			runJSON(t, dir, &trades, "list")
			assert.Empty(t, trades)
		})
	}
}

func TestDamagedDatabaseStartsEmpty(t *testing.T) {
	dir := journalDir(t, "sqlite")
	db := filepath.Join(dir, "journal.db")
	require.NoError(t, os.WriteFile(db, bytes.Repeat([]byte("garbage!"), 512), 0644))

	var trades []map[string]interface{}
	runJSON(t, dir, &trades, "list")
	assert.Empty(t, trades)

	moved, err := filepath.Glob(db + ".corrupt-*")
	require.NoError(t, err)
	assert.Len(t, moved, 1)

	// The recreated database is usable.
	runJSON(t, dir, &map[string]interface{}{}, addAAPL...)
	runJSON(t, dir, &trades, "list")
	assert.Len(t, trades, 1)
}

func TestEditScreenshot(t *testing.T) {
	dir := journalDir(t, "file")
	var added map[string]interface{}
	runJSON(t, dir, &added, addAAPL...)
	id := added["id"].(string)

	bad := filepath.Join(dir, "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0644))

	// An undecodable image is skipped; the rest of the edit is kept.
	var edited map[string]interface{}
	runJSON(t, dir, &edited, "edit", id, "--exit", "94", "--screenshot", bad)
	assert.Equal(t, string(models.StatusSLHit), edited["status"])
	assert.Nil(t, edited["screenshot"])

	out, err := run(t, dir, "edit", id, "--notes", "late entry", "--screenshot", filepath.Join(dir, "missing.png"))
	require.NoError(t, err)
	assert.Contains(t, out, "Screenshot skipped")

	var shown map[string]interface{}
	runJSON(t, dir, &shown, "show", id)
	assert.Equal(t, "late entry", shown["notes"])
	assert.Equal(t, string(models.StatusSLHit), shown["status"])

	img := image.NewGray(image.Rect(0, 0, 2, 2))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	good := filepath.Join(dir, "chart.png")
	require.NoError(t, os.WriteFile(good, buf.Bytes(), 0644))

	runJSON(t, dir, &edited, "edit", id, "--screenshot", good)
	shot, ok := edited["screenshot"].(map[string]interface{})
	require.True(t, ok, "screenshot attached")
	assert.Equal(t, "chart.png", shot["name"])
	assert.NotNil(t, shot["score"])
}

func TestRiskSetRederives(t *testing.T) {
	dir := journalDir(t, "file")

	var added map[string]interface{}
	runJSON(t, dir, &added, addAAPL...)
	id := added["id"].(string)

	out, err := run(t, dir, "risk", "set", "--account", "20000")
	require.NoError(t, err)
	assert.Contains(t, out, "USA risk set")

	var shown map[string]interface{}
	runJSON(t, dir, &shown, "show", id)
	assert.Equal(t, 200.0, shown["risk_amount"])
	assert.Equal(t, 400.0, shown["net_pnl"])

	var risk map[string]models.RiskConfig
	runJSON(t, dir, &risk, "risk", "show")
	assert.Equal(t, 20000.0, risk["usa"].AccountSize)
	assert.Equal(t, 500000.0, risk["india"].AccountSize)

	_, err = run(t, dir, "risk", "set")
	assert.True(t, errors.Is(err, errors.ErrInputValidation))
}

func TestMarketSwitching(t *testing.T) {
	dir := journalDir(t, "file")
	runJSON(t, dir, &map[string]interface{}{}, addAAPL...)

	_, err := run(t, dir, "market", "use", "in")
	require.NoError(t, err)

	var cur map[string]string
	runJSON(t, dir, &cur, "market")
	assert.Equal(t, "india", cur["market"])
	assert.Equal(t, "INR", cur["currency"])

	var trades []map[string]interface{}
	runJSON(t, dir, &trades, "list")
	assert.Empty(t, trades)

	// A pinned market applies to one command only.
	runJSON(t, dir, &trades, "list", "--market", "usa")
	assert.Len(t, trades, 1)
	runJSON(t, dir, &cur, "market")
	assert.Equal(t, "india", cur["market"])

	_, err = run(t, dir, "market", "use", "mars")
	assert.True(t, errors.Is(err, errors.ErrUnknownMarket))
}

func TestExportImport(t *testing.T) {
	src := journalDir(t, "file")
	runJSON(t, src, &map[string]interface{}{}, addAAPL...)
	runJSON(t, src, &map[string]interface{}{}, "add", "-i", "MSFT", "-d", "short", "--entry", "400", "--stop", "404", "--exit", "396", "--date", "2024-03-05")

	file := filepath.Join(t.TempDir(), "backup.msgpack")
	var exported map[string]interface{}
	runJSON(t, src, &exported, "export", file)
	assert.Equal(t, 2.0, exported["trades"])

	dst := journalDir(t, "file")
	var res struct {
		Added   int `json:"added"`
		Skipped int `json:"skipped"`
	}
	runJSON(t, dst, &res, "import", file)
	assert.Equal(t, 2, res.Added)

	runJSON(t, dst, &res, "import", file)
	assert.Equal(t, 0, res.Added)
	assert.Equal(t, 2, res.Skipped)

	var trades []map[string]interface{}
	runJSON(t, dst, &trades, "list")
	assert.Len(t, trades, 2)
}

func TestReports(t *testing.T) {
	dir := journalDir(t, "file")
	runJSON(t, dir, &map[string]interface{}{}, addAAPL...)
	runJSON(t, dir, &map[string]interface{}{}, "add", "-i", "AAPL", "-d", "long", "--entry", "100", "--stop", "95", "--exit", "94", "--date", "2024-03-05", "--time", "13:10")

	var groups []struct {
		Key     string         `json:"key"`
		Metrics models.Metrics `json:"metrics"`
	}
	runJSON(t, dir, &groups, "breakdown", "--by", "weekday")
	require.Len(t, groups, 7)
	assert.Equal(t, "Mon", groups[0].Key)
	assert.Equal(t, 1, groups[0].Metrics.TotalTrades)
	assert.Equal(t, 1, groups[1].Metrics.TotalTrades)

	_, err := run(t, dir, "breakdown", "--by", "moon")
	assert.True(t, errors.Is(err, errors.ErrInputValidation))

	var grid struct {
		Days    []string `json:"days"`
		Buckets []string `json:"buckets"`
	}
	runJSON(t, dir, &grid, "heatmap")
	assert.Equal(t, []string{"Pre", "Open", "Mid", "Close"}, grid.Buckets)

	var equity []map[string]interface{}
	runJSON(t, dir, &equity, "equity")
	require.Len(t, equity, 2)
	assert.Equal(t, 200.0, equity[0]["equity"])
	assert.Equal(t, 80.0, equity[1]["equity"])

	var bins []map[string]interface{}
	runJSON(t, dir, &bins, "histogram", "--bins", "2")
	assert.Len(t, bins, 2)

	_, err = run(t, dir, "histogram", "--bins", "2000000000")
	assert.True(t, errors.Is(err, errors.ErrInputValidation))

	var filtered []map[string]interface{}
	runJSON(t, dir, &filtered, "list", "--from", "2024-03-05")
	assert.Len(t, filtered, 1)

	_, err = run(t, dir, "list", "--from", "2024-03-05", "--to", "2024-03-01")
	assert.True(t, errors.Is(err, errors.ErrInputValidation))

	out, err := run(t, dir, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Win Rate:")
	assert.Contains(t, out, "$")
}

func TestCoreCommands(t *testing.T) {
	dir := journalDir(t, "file")

	out, err := run(t, dir, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Trade Journal v"+Version)

	out, err = run(t, dir, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.toml"), strings.TrimSpace(out))

	out, err = run(t, dir, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "valid")

	out, err = run(t, dir, "quickstart")
	require.NoError(t, err)
	assert.Contains(t, out, "Quick Start")
	assert.NotContains(t, out, "\033[") // not a terminal
}

func TestResolveID(t *testing.T) {
	trades := []models.Trade{
		{RawTrade: models.RawTrade{ID: "abc123"}},
		{RawTrade: models.RawTrade{ID: "abd456"}},
	}

	id, err := resolveID(trades, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc123", id)

	_, err = resolveID(trades, "ab")
	assert.True(t, errors.Is(err, errors.ErrInputValidation))

	_, err = resolveID(trades, "zz")
	assert.True(t, errors.Is(err, errors.ErrTradeNotFound))
}

func TestParseEMA(t *testing.T) {
	e, err := parseEMA("20:1.5")
	require.NoError(t, err)
	assert.Equal(t, models.EMADistance{Period: 20, Pct: 1.5}, e)

	e, err = parseEMA("10:2.4:0.8")
	require.NoError(t, err)
	assert.Equal(t, models.EMADistance{Period: 10, Abs: 2.4, Pct: 0.8}, e)

	for _, bad := range []string{"20", "x:1", "0:1", "20:a", "1:2:3:4"} {
		_, err := parseEMA(bad)
		assert.Error(t, err, bad)
	}
}
