// Package store provides snapshot persistence for the journal.
package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"trade-journal/internal/models"
)

// SnapshotVersion is the version written into every snapshot.
const SnapshotVersion = 1

// Snapshot is the persisted journal state. Only raw trade fields are stored;
// derived values are recomputed on load.
type Snapshot struct {
	Version      int                                 `json:"version"`
	ActiveMarket models.Market                       `json:"active_market,omitempty"`
	Risk         map[models.Market]models.RiskConfig `json:"risk,omitempty"`
	Books        map[models.Market][]models.RawTrade `json:"books"`
	SavedAt      time.Time                           `json:"saved_at"`
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Version: SnapshotVersion,
		Risk:    make(map[models.Market]models.RiskConfig),
		Books:   make(map[models.Market][]models.RawTrade),
	}
}

// TradeCount returns the number of trades across all books.
func (s *Snapshot) TradeCount() int {
	n := 0
	for _, b := range s.Books {
		n += len(b)
	}
	return n
}

// normalize fills nil maps and puts every timestamp in UTC so snapshots from
// different codecs compare equal.
func (s *Snapshot) normalize() {
	if s.Risk == nil {
		s.Risk = make(map[models.Market]models.RiskConfig)
	}
	if s.Books == nil {
		s.Books = make(map[models.Market][]models.RawTrade)
	}
	if s.Version == 0 {
		s.Version = SnapshotVersion
	}
	s.SavedAt = utc(s.SavedAt)
	for m, book := range s.Books {
		for i := range book {
			t := &book[i]
			t.EntryDate = utc(t.EntryDate)
			t.CreatedAt = utc(t.CreatedAt)
			if t.ExitDate != nil {
				d := utc(*t.ExitDate)
				t.ExitDate = &d
			}
		}
		s.Books[m] = book
	}
}

func utc(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return t.UTC()
}

// SnapshotStore loads and saves whole journal snapshots.
type SnapshotStore interface {
	// Load returns the stored snapshot, or an empty one when nothing has
	// been saved yet. Undecodable data yields an error wrapping
	// errors.ErrSnapshotCorrupt.
	Load(ctx context.Context) (*Snapshot, error)
	// Save replaces the stored snapshot.
	Save(ctx context.Context, snap *Snapshot) error
	// Name identifies the backend in logs.
	Name() string
	Close() error
}

// Open creates the store for a driver name ("sqlite" or "file").
func Open(driver, path string) (SnapshotStore, error) {
	switch strings.ToLower(driver) {
	case "", "sqlite":
		return NewSQLiteStore(path)
	case "file":
		return NewFileStore(path)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

// IsFileSnapshot reports whether path has an extension a file codec handles.
func IsFileSnapshot(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".msgpack", ".mp":
		return true
	}
	return false
}
