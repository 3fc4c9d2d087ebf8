package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	"trade-journal/internal/errors"
	"trade-journal/internal/models"
)

const backendSQLite = "sqlite"

// SQLiteStore implements SnapshotStore using SQLite. Trades are stored one
// row per record with the raw trade encoded as a msgpack payload; the
// indexed columns exist for ad-hoc inspection only.
type SQLiteStore struct {
	db    *sql.DB
	mu    sync.Mutex
	codec Codec
}

// NewSQLiteStore creates a new SQLite-based snapshot store. A file at dbPath
// that is not a usable database yields an error wrapping
// errors.ErrSnapshotCorrupt; see Quarantine.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db, codec: MsgpackCodec{}}

	if err := store.initSchema(); err != nil {
		db.Close()
		if isCorrupt(err) {
			return nil, errors.NewStoreError(backendSQLite, "open", errors.Wrapf(errors.ErrSnapshotCorrupt, "%s: %v", dbPath, err))
		}
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// isCorrupt reports whether err means the database file itself is damaged.
func isCorrupt(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrNotADB || se.Code == sqlite3.ErrCorrupt
	}
	return strings.Contains(err.Error(), "file is not a database")
}

// Quarantine moves a damaged database and its WAL sidecars aside so a fresh
// one can be created at dbPath. It returns the new name of the main file.
func Quarantine(dbPath string, now time.Time) (string, error) {
	moved := fmt.Sprintf("%s.corrupt-%s", dbPath, now.UTC().Format("20060102T150405"))
	if err := os.Rename(dbPath, moved); err != nil {
		return "", fmt.Errorf("failed to move damaged database: %w", err)
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		if _, err := os.Stat(dbPath + suffix); err == nil {
			if err := os.Rename(dbPath+suffix, moved+suffix); err != nil {
				return moved, fmt.Errorf("failed to move %s: %w", suffix, err)
			}
		}
	}
	return moved, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Key/value settings: version, active market, saved_at
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	-- Per-market risk configuration
	CREATE TABLE IF NOT EXISTS risk_config (
		market TEXT PRIMARY KEY,
		account_size REAL NOT NULL,
		risk_percent REAL NOT NULL
	);

	-- Raw trades, one book per market, ordered by position
	CREATE TABLE IF NOT EXISTS trades (
		id TEXT NOT NULL,
		market TEXT NOT NULL,
		position INTEGER NOT NULL,
		entry_date TEXT NOT NULL,
		instrument TEXT NOT NULL,
		strategy TEXT,
		payload BLOB NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (market, id)
	);

	CREATE INDEX IF NOT EXISTS idx_trades_market_position ON trades(market, position);
	CREATE INDEX IF NOT EXISTS idx_trades_entry_date ON trades(entry_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Name returns the backend name.
func (s *SQLiteStore) Name() string {
	return backendSQLite
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load reads the whole snapshot. An empty database loads as an empty snapshot.
func (s *SQLiteStore) Load(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := NewSnapshot()

	settings, err := s.loadSettings(ctx)
	if err != nil {
		return nil, errors.NewStoreError(backendSQLite, "load", err)
	}
	if v, ok := settings["version"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.NewStoreError(backendSQLite, "load", errors.Wrapf(errors.ErrSnapshotCorrupt, "version %q", v))
		}
		snap.Version = n
	}
	if v, ok := settings["active_market"]; ok {
		snap.ActiveMarket = models.Market(v)
	}
	if v, ok := settings["saved_at"]; ok {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, errors.NewStoreError(backendSQLite, "load", errors.Wrapf(errors.ErrSnapshotCorrupt, "saved_at %q", v))
		}
		snap.SavedAt = t
	}

	if err := s.loadRisk(ctx, snap); err != nil {
		return nil, errors.NewStoreError(backendSQLite, "load", err)
	}
	if err := s.loadTrades(ctx, snap); err != nil {
		return nil, errors.NewStoreError(backendSQLite, "load", err)
	}

	snap.normalize()
	return snap, nil
}

func (s *SQLiteStore) loadSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

func (s *SQLiteStore) loadRisk(ctx context.Context, snap *Snapshot) error {
	rows, err := s.db.QueryContext(ctx, `SELECT market, account_size, risk_percent FROM risk_config`)
	if err != nil {
		return fmt.Errorf("failed to query risk config: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var market string
		var rc models.RiskConfig
		if err := rows.Scan(&market, &rc.AccountSize, &rc.RiskPercent); err != nil {
			return fmt.Errorf("failed to scan risk config: %w", err)
		}
		snap.Risk[models.Market(market)] = rc
	}
	return rows.Err()
}

func (s *SQLiteStore) loadTrades(ctx context.Context, snap *Snapshot) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT market, id, payload FROM trades ORDER BY market, position ASC
	`)
	if err != nil {
		return fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var market, id string
		var payload []byte
		if err := rows.Scan(&market, &id, &payload); err != nil {
			return fmt.Errorf("failed to scan trade: %w", err)
		}

		var raw models.RawTrade
		if err := s.codec.Unmarshal(payload, &raw); err != nil {
			return errors.Wrapf(errors.ErrSnapshotCorrupt, "trade %s: %v", id, err)
		}
		m := models.Market(market)
		snap.Books[m] = append(snap.Books[m], raw)
	}
	return rows.Err()
}

// Save replaces the stored snapshot inside one transaction.
func (s *SQLiteStore) Save(ctx context.Context, snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.save(ctx, snap); err != nil {
		return errors.NewStoreError(backendSQLite, "save", err)
	}
	return nil
}

func (s *SQLiteStore) save(ctx context.Context, snap *Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"settings", "risk_config", "trades"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	version := snap.Version
	if version == 0 {
		version = SnapshotVersion
	}
	settings := map[string]string{
		"version":  strconv.Itoa(version),
		"saved_at": snap.SavedAt.UTC().Format(time.RFC3339Nano),
	}
	if snap.ActiveMarket != "" {
		settings["active_market"] = string(snap.ActiveMarket)
	}
	for k, v := range settings {
		if _, err := tx.ExecContext(ctx, `INSERT INTO settings (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("failed to save setting %s: %w", k, err)
		}
	}

	for m, rc := range snap.Risk {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO risk_config (market, account_size, risk_percent) VALUES (?, ?, ?)
		`, string(m), rc.AccountSize, rc.RiskPercent); err != nil {
			return fmt.Errorf("failed to save risk config: %w", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trades (id, market, position, entry_date, instrument, strategy, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for m, book := range snap.Books {
		for i := range book {
			t := &book[i]
			payload, err := s.codec.Marshal(t)
			if err != nil {
				return fmt.Errorf("failed to encode trade %s: %w", t.ID, err)
			}
			if _, err := stmt.ExecContext(ctx, t.ID, string(m), i, t.EntryDate.Format(models.DateLayout), t.Instrument, t.StrategyTag, payload); err != nil {
				return fmt.Errorf("failed to insert trade %s: %w", t.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
