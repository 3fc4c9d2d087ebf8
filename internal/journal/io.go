package journal

import (
	"context"
	"sync"
	"time"

	"trade-journal/internal/async"
	"trade-journal/internal/errors"
	"trade-journal/internal/logging"
	"trade-journal/internal/models"
	"trade-journal/internal/risk"
	"trade-journal/internal/store"
)

// ImportMode selects how an imported snapshot combines with the journal.
type ImportMode int

const (
	// ImportMerge adds records whose id is not already in the market's book.
	ImportMerge ImportMode = iota
	// ImportReplace swaps the books and risk configuration for the file's.
	ImportReplace
)

// ImportResult reports what an import changed.
type ImportResult struct {
	Added    int `json:"added"`
	Skipped  int `json:"skipped"`
	Invalid  int `json:"invalid"`
	Rescored int `json:"rescored"`
}

// Export writes the persisted state to path as JSON or msgpack, chosen by
// extension.
func (s *Session) Export(ctx context.Context, path string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	snap := s.snapshot()
	s.mu.Unlock()

	start := time.Now()
	err := store.WriteSnapshotFile(path, snap)
	logging.LogSnapshot(s.logger, "export", path, snap.TradeCount(), time.Since(start), err)
	if err != nil {
		return 0, errors.Wrapf(err, "exporting to %s", path)
	}
	return snap.TradeCount(), nil
}

// Import reads a snapshot file and folds it into the journal. Records that
// fail validation are skipped. Screenshots carrying image data but no score
// are scored on a worker pool before anything is stored.
func (s *Session) Import(ctx context.Context, path string, mode ImportMode) (ImportResult, error) {
	var res ImportResult

	snap, err := store.ReadSnapshotFile(path)
	if err != nil {
		return res, errors.Wrapf(err, "importing %s", path)
	}

	warnUnknownBooks(s.logger, snap.Books)
	incoming := make(map[models.Market][]models.RawTrade, len(snap.Books))
	inFile := make(map[string]bool)
	for _, m := range models.Markets {
		for key, book := range snap.Books {
			if pm, err := models.ParseMarket(string(key)); err != nil || pm != m {
				continue
			}
			for _, r := range dedupe(book, inFile) {
				if err := Validate(&r); err != nil {
					s.logger.Warn().Err(err).Str("trade_id", r.ID).Msg("Skipping invalid record")
					res.Invalid++
					continue
				}
				if r.ID == "" {
					r.ID = s.opts.NewID()
				}
				incoming[m] = append(incoming[m], r)
			}
		}
	}

	res.Rescored = s.rescore(ctx, incoming)
	if err := ctx.Err(); err != nil {
		return res, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.capture()
	touched := make(map[models.Market]bool)

	if mode == ImportReplace {
		for _, m := range models.Markets {
			s.raw[m] = nil
			touched[m] = true
		}
		for m, cfg := range snap.Risk {
			if pm, err := models.ParseMarket(string(m)); err == nil {
				s.risk[pm] = risk.Normalize(cfg)
			}
		}
	}

	known := make(map[string]bool)
	for _, book := range s.raw {
		for i := range book {
			known[book[i].ID] = true
		}
	}
	for _, m := range models.Markets {
		book, ok := incoming[m]
		if !ok {
			continue
		}
		merged := append([]models.RawTrade(nil), s.raw[m]...)
		for _, r := range book {
			if known[r.ID] {
				res.Skipped++
				continue
			}
			known[r.ID] = true
			if r.CreatedAt.IsZero() {
				r.CreatedAt = s.opts.Now()
			}
			merged = append(merged, r)
			res.Added++
		}
		sortBook(merged)
		s.raw[m] = merged
		touched[m] = true
	}
	for m := range touched {
		s.recompute(m)
	}

	if err := s.commit(ctx, prev); err != nil {
		return ImportResult{}, err
	}
	s.logger.Info().
		Str("path", path).
		Int("added", res.Added).
		Int("skipped", res.Skipped).
		Int("invalid", res.Invalid).
		Msg("Snapshot imported")
	return res, nil
}

// rescore fills missing screenshot scores in place. A screenshot that cannot
// be scored stays attached without a score.
func (s *Session) rescore(ctx context.Context, books map[models.Market][]models.RawTrade) int {
	if s.opts.Scorer == nil {
		return 0
	}

	pool := async.NewPool(0)
	var mu sync.Mutex
	scored := 0
	for m := range books {
		book := books[m]
		for i := range book {
			shot := book[i].Screenshot
			if shot == nil || shot.Score != nil || len(shot.Data) == 0 {
				continue
			}
			ok := pool.Submit(ctx, func() {
				score, err := s.opts.Scorer.Score(ctx, shot.Data)
				if err != nil {
					s.logger.Warn().Err(err).Str("screenshot", shot.Name).Msg("Screenshot could not be scored")
					return
				}
				shot.Score = &score
				mu.Lock()
				scored++
				mu.Unlock()
			})
			if !ok {
				break
			}
		}
	}
	pool.Wait()
	return scored
}
