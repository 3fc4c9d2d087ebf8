// Package journal holds the trade journal session: the owner of the trade
// books, the risk configuration and the active market.
//
// Every mutation follows the same path: edit the raw record, resolve risk,
// derive, keep the book sorted, write a snapshot. A failed snapshot write
// rolls the in-memory state back, so callers never see a change that was
// not persisted.
package journal

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"trade-journal/internal/async"
	"trade-journal/internal/derive"
	"trade-journal/internal/errors"
	"trade-journal/internal/logging"
	"trade-journal/internal/models"
	"trade-journal/internal/risk"
	"trade-journal/internal/screenshot"
	"trade-journal/internal/store"
)

// Options configures a Session.
type Options struct {
	Store  store.SnapshotStore
	Scorer screenshot.Scorer // nil attaches screenshots unscored
	Logger zerolog.Logger

	// DefaultMarket is used when the snapshot has no active market.
	DefaultMarket models.Market
	// Market, when set, forces the active market for this session without
	// persisting the choice.
	Market models.Market
	// Risk seeds markets that have no stored configuration.
	Risk models.RiskSettings

	SizingMode      models.SizingMode
	OpenTradePolicy models.OpenTradePolicy
	DefaultStrategy string
	EMAPeriod       int

	Now   func() time.Time
	NewID func() string
}

// Session is the single owner of the journal state.
type Session struct {
	mu     sync.Mutex
	opts   Options
	engine *derive.Engine
	logger zerolog.Logger

	market  models.Market
	stored  models.Market // active market as last persisted
	pinned  bool
	risk    models.RiskSettings
	raw     map[models.Market][]models.RawTrade
	derived map[models.Market][]models.Trade
}

// New builds a session. Call Open before using it.
func New(opts Options) *Session {
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.DefaultMarket == "" {
		opts.DefaultMarket = models.MarketUSA
	}
	if opts.EMAPeriod <= 0 {
		opts.EMAPeriod = 20
	}

	s := &Session{
		opts:   opts,
		engine: derive.NewEngine(opts.SizingMode, opts.OpenTradePolicy),
		logger: logging.WithOperation(opts.Logger, "journal"),
	}
	s.reset()
	return s
}

func (s *Session) reset() {
	s.market = s.opts.DefaultMarket
	s.stored = ""
	s.pinned = false
	s.risk = make(models.RiskSettings)
	for _, m := range models.Markets {
		if cfg, ok := s.opts.Risk[m]; ok {
			s.risk[m] = risk.Normalize(cfg)
		} else {
			s.risk[m] = models.DefaultRiskConfig()
		}
	}
	s.raw = make(map[models.Market][]models.RawTrade)
	s.derived = make(map[models.Market][]models.Trade)
	if s.opts.Market != "" {
		s.market = s.opts.Market
		s.pinned = true
	}
}

// Open loads the snapshot and derives every stored record. A corrupt
// snapshot is logged and replaced by an empty journal.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	snap, err := s.opts.Store.Load(ctx)
	logging.LogSnapshot(s.logger, "load", s.opts.Store.Name(), tradeCount(snap), time.Since(start), err)
	if err != nil {
		if !errors.Is(err, errors.ErrSnapshotCorrupt) {
			return errors.Wrap(err, "loading journal")
		}
		s.logger.Warn().Err(err).Msg("Snapshot unreadable, starting with an empty journal")
		snap = store.NewSnapshot()
	}

	s.reset()
	s.apply(snap)
	return nil
}

func tradeCount(snap *store.Snapshot) int {
	if snap == nil {
		return 0
	}
	return snap.TradeCount()
}

// apply replaces the in-memory state with snap and recomputes every book.
func (s *Session) apply(snap *store.Snapshot) {
	if m, err := models.ParseMarket(string(snap.ActiveMarket)); err == nil {
		s.stored = m
		if !s.pinned {
			s.market = m
		}
	}
	for m, cfg := range snap.Risk {
		if _, err := models.ParseMarket(string(m)); err != nil {
			s.logger.Warn().Str("market", string(m)).Msg("Ignoring risk config for unknown market")
			continue
		}
		s.risk[m] = risk.Normalize(cfg)
	}
	warnUnknownBooks(s.logger, snap.Books)
	seen := make(map[string]bool)
	for _, m := range models.Markets {
		for key, book := range snap.Books {
			if pm, err := models.ParseMarket(string(key)); err == nil && pm == m {
				s.raw[m] = append(s.raw[m], dedupe(book, seen)...)
			}
		}
		sortBook(s.raw[m])
		s.recompute(m)
	}
}

func warnUnknownBooks(logger zerolog.Logger, books map[models.Market][]models.RawTrade) {
	for m, book := range books {
		if _, err := models.ParseMarket(string(m)); err != nil {
			logger.Warn().Str("market", string(m)).Int("trades", len(book)).Msg("Ignoring book for unknown market")
		}
	}
}

// dedupe drops records whose id is already in seen, keeping the first, and
// records the ids it keeps. Ids are unique across every market's book.
func dedupe(book []models.RawTrade, seen map[string]bool) []models.RawTrade {
	out := make([]models.RawTrade, 0, len(book))
	for _, r := range book {
		if r.ID != "" && seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		out = append(out, r.Clone())
	}
	return out
}

// sortBook orders a book by entry date and time; ties keep insertion order.
func sortBook(book []models.RawTrade) {
	sort.SliceStable(book, func(i, j int) bool {
		return book[i].SortKey().Before(book[j].SortKey())
	})
}

func (s *Session) recompute(m models.Market) {
	book := s.raw[m]
	out := make([]models.Trade, len(book))
	logger := logging.WithMarket(s.logger, m)
	for i := range book {
		out[i] = s.engine.DeriveWith(book[i], s.risk, m)
		logging.LogTradeDerived(logger, &out[i])
	}
	s.derived[m] = out
}

// snapshot captures the current state for persistence.
func (s *Session) snapshot() *store.Snapshot {
	snap := store.NewSnapshot()
	snap.ActiveMarket = s.market
	if s.pinned {
		snap.ActiveMarket = s.stored
	}
	for m, cfg := range s.risk {
		snap.Risk[m] = cfg
	}
	for m, book := range s.raw {
		if len(book) == 0 {
			continue
		}
		out := make([]models.RawTrade, len(book))
		for i := range book {
			out[i] = book[i].Clone()
		}
		snap.Books[m] = out
	}
	snap.SavedAt = s.opts.Now()
	return snap
}

type state struct {
	market  models.Market
	stored  models.Market
	pinned  bool
	risk    models.RiskSettings
	raw     map[models.Market][]models.RawTrade
	derived map[models.Market][]models.Trade
}

func (s *Session) capture() state {
	st := state{
		market:  s.market,
		stored:  s.stored,
		pinned:  s.pinned,
		risk:    make(models.RiskSettings, len(s.risk)),
		raw:     make(map[models.Market][]models.RawTrade, len(s.raw)),
		derived: make(map[models.Market][]models.Trade, len(s.derived)),
	}
	for m, cfg := range s.risk {
		st.risk[m] = cfg
	}
	for m, b := range s.raw {
		st.raw[m] = b
	}
	for m, b := range s.derived {
		st.derived[m] = b
	}
	return st
}

func (s *Session) restore(st state) {
	s.market = st.market
	s.stored = st.stored
	s.pinned = st.pinned
	s.risk = st.risk
	s.raw = st.raw
	s.derived = st.derived
}

// commit persists the current state, restoring prev if the write fails.
func (s *Session) commit(ctx context.Context, prev state) error {
	snap := s.snapshot()
	start := time.Now()
	err := s.opts.Store.Save(ctx, snap)
	logging.LogSnapshot(s.logger, "save", s.opts.Store.Name(), snap.TradeCount(), time.Since(start), err)
	if err != nil {
		s.restore(prev)
		return errors.Wrap(err, "saving journal")
	}
	return nil
}

// Market returns the active market.
func (s *Session) Market() models.Market {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.market
}

// Risk returns the stored risk configuration of a market.
func (s *Session) Risk(m models.Market) models.RiskConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.risk.For(m)
}

// Engine returns the derivation engine in use.
func (s *Session) Engine() *derive.Engine {
	return s.engine
}

// Add validates raw, attaches the scored screenshot if one is given, derives
// the trade and persists it. A screenshot that cannot be scored is dropped
// with a warning; the trade is still created.
func (s *Session) Add(ctx context.Context, raw models.RawTrade, att *screenshot.Attachment) (models.Trade, error) {
	raw = raw.Clone()
	raw.Instrument = strings.TrimSpace(raw.Instrument)
	raw.StrategyTag = strings.TrimSpace(raw.StrategyTag)
	if raw.StrategyTag == "" {
		raw.StrategyTag = s.opts.DefaultStrategy
	}
	if err := Validate(&raw); err != nil {
		return models.Trade{}, err
	}

	// Scoring runs before the lock is taken; the record is only stored
	// once the task has finished.
	if att != nil && len(att.Data) > 0 {
		raw.Screenshot = s.attach(ctx, att)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.market
	if raw.ID == "" {
		raw.ID = s.opts.NewID()
	}
	if owner, ok := s.owner(raw.ID); ok {
		return models.Trade{}, errors.Wrapf(errors.ErrDuplicateTrade, "trade %s (in %s)", raw.ID, owner)
	}
	if raw.CreatedAt.IsZero() {
		raw.CreatedAt = s.opts.Now()
	}

	prev := s.capture()
	book := append(append([]models.RawTrade(nil), s.raw[m]...), raw)
	sortBook(book)
	s.raw[m] = book
	s.recompute(m)

	if err := s.commit(ctx, prev); err != nil {
		return models.Trade{}, err
	}

	t := s.derived[m][s.indexOf(m, raw.ID)]
	s.logger.Info().
		Str("trade_id", t.ID).
		Str("instrument", t.Instrument).
		Str("status", string(t.Status)).
		Float64("net_pnl", t.NetPnL).
		Msg("Trade added")
	return t, nil
}

func (s *Session) attach(ctx context.Context, att *screenshot.Attachment) *models.Screenshot {
	shot, err := s.PrepareScreenshot(ctx, att)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Screenshot could not be scored, trade saved without it")
		return nil
	}
	return shot
}

// PrepareScreenshot scores att on an async task and returns the screenshot
// to store. Nothing is stored; callers set the result inside Update so the
// record and its screenshot are written together.
func (s *Session) PrepareScreenshot(ctx context.Context, att *screenshot.Attachment) (*models.Screenshot, error) {
	if att == nil || len(att.Data) == 0 {
		return nil, errors.NewValidationError("screenshot", "", "no attachment given")
	}
	shot := &models.Screenshot{Name: att.Name, Data: append([]byte(nil), att.Data...)}
	if s.opts.Scorer == nil {
		return shot, nil
	}

	task := async.Go(func() (models.ScreenshotScore, error) {
		return s.opts.Scorer.Score(ctx, shot.Data)
	})
	score, err := task.Wait(ctx)
	if err != nil {
		return nil, errors.NewScreenshotError(att.Name, "could not be scored", err)
	}
	shot.Score = &score
	return shot, nil
}

// Update applies mutate to a copy of the stored record and re-derives it.
// The id cannot be changed.
func (s *Session) Update(ctx context.Context, id string, mutate func(*models.RawTrade) error) (models.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.market
	idx := s.indexOf(m, id)
	if idx < 0 {
		return models.Trade{}, errors.Wrapf(errors.ErrTradeNotFound, "trade %s", id)
	}

	edited := s.raw[m][idx].Clone()
	if err := mutate(&edited); err != nil {
		return models.Trade{}, err
	}
	edited.ID = id
	edited.Instrument = strings.TrimSpace(edited.Instrument)
	if err := Validate(&edited); err != nil {
		return models.Trade{}, err
	}

	prev := s.capture()
	book := append([]models.RawTrade(nil), s.raw[m]...)
	book[idx] = edited
	sortBook(book)
	s.raw[m] = book
	s.recompute(m)

	if err := s.commit(ctx, prev); err != nil {
		return models.Trade{}, err
	}
	return s.derived[m][s.indexOf(m, id)], nil
}

// Delete removes a trade from the active market.
func (s *Session) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.market
	idx := s.indexOf(m, id)
	if idx < 0 {
		return errors.Wrapf(errors.ErrTradeNotFound, "trade %s", id)
	}
	instrument := s.raw[m][idx].Instrument

	prev := s.capture()
	book := make([]models.RawTrade, 0, len(s.raw[m])-1)
	book = append(book, s.raw[m][:idx]...)
	book = append(book, s.raw[m][idx+1:]...)
	s.raw[m] = book
	s.recompute(m)

	if err := s.commit(ctx, prev); err != nil {
		return err
	}
	logging.LogTradeDeleted(s.logger, id, instrument)
	return nil
}

// SetRisk stores the risk configuration of a market and re-derives its
// book. The risk percent is clamped into range.
func (s *Session) SetRisk(ctx context.Context, m models.Market, cfg models.RiskConfig) (models.RiskConfig, error) {
	m, err := models.ParseMarket(string(m))
	if err != nil {
		return models.RiskConfig{}, errors.Wrap(errors.ErrUnknownMarket, err.Error())
	}
	if cfg.AccountSize < 0 {
		return models.RiskConfig{}, errors.NewValidationError("account_size", cfg.AccountSize, "must be non-negative")
	}
	cfg = risk.Normalize(cfg)

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.capture()
	s.risk[m] = cfg
	s.recompute(m)

	if err := s.commit(ctx, prev); err != nil {
		return models.RiskConfig{}, err
	}
	s.logger.Info().Str("market", string(m)).Float64("account_size", cfg.AccountSize).Float64("risk_percent", cfg.RiskPercent).Msg("Risk configuration updated")
	return cfg, nil
}

// UseMarket switches and persists the active market.
func (s *Session) UseMarket(ctx context.Context, m models.Market) error {
	m, err := models.ParseMarket(string(m))
	if err != nil {
		return errors.Wrap(errors.ErrUnknownMarket, err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.capture()
	s.market = m
	s.stored = m
	s.pinned = false
	return s.commit(ctx, prev)
}

// owner returns the market whose book holds id.
func (s *Session) owner(id string) (models.Market, bool) {
	for m := range s.raw {
		if s.indexOf(m, id) >= 0 {
			return m, true
		}
	}
	return "", false
}

func (s *Session) indexOf(m models.Market, id string) int {
	for i := range s.raw[m] {
		if s.raw[m][i].ID == id {
			return i
		}
	}
	return -1
}
