package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/memory-match/internal/board"
	"github.com/openkcm/memory-match/internal/config"
	"github.com/openkcm/memory-match/internal/record"
	"github.com/openkcm/memory-match/internal/schedule"
	"github.com/openkcm/memory-match/internal/score"
	"github.com/openkcm/memory-match/internal/serviceerr"
)

// Manager owns one game session and resolves the player's turns. It is not
// safe for concurrent use; scheduled callbacks must run on the goroutine that
// issues commands.
type Manager struct {
	saves     Repository
	scheduler schedule.Scheduler
	generator *board.Generator
	tracker   *score.Tracker
	machine   *fsm.FSM
	events    Events

	slot          string
	rows          int
	columns       int
	symbolCount   int
	mismatchDelay time.Duration
	gameOverDelay time.Duration

	session *Session
	epoch   uint64
	cancel  schedule.CancelFunc
}

type Option func(*Manager)

// WithSlot selects the save slot. The default is DefaultSlot.
func WithSlot(slot string) Option {
	return func(m *Manager) { m.slot = slot }
}

// WithRandSource replaces the shuffle source.
func WithRandSource(src rand.Source) Option {
	return func(m *Manager) { m.generator = board.NewGenerator(src) }
}

func NewManager(cfg *config.Game, saves Repository, scheduler schedule.Scheduler, opts ...Option) (*Manager, error) {
	tracker, err := score.NewTracker(cfg.BaseMatchScore, cfg.ComboStep)
	if err != nil {
		return nil, fmt.Errorf("creating score tracker: %w", err)
	}
	if cfg.MismatchDelay < 0 || cfg.GameOverDelay < 0 {
		return nil, fmt.Errorf("%w: delays must not be negative", serviceerr.ErrInvalidConfig)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	m := &Manager{
		saves:         saves,
		scheduler:     scheduler,
		generator:     board.NewGenerator(rand.NewPCG(seed, seed>>1|1)),
		tracker:       tracker,
		machine:       newMachine(),
		slot:          DefaultSlot,
		rows:          cfg.Rows,
		columns:       cfg.Columns,
		symbolCount:   cfg.SymbolCount,
		mismatchDelay: cfg.MismatchDelay,
		gameOverDelay: cfg.GameOverDelay,
	}
	m.events.ScoreChanged = &tracker.ScoreChanged
	m.events.ComboChanged = &tracker.ComboChanged

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m, nil
}

func newMachine() *fsm.FSM {
	return fsm.NewFSM(
		string(StateIdle),
		fsm.Events{
			{Name: eventSelectFirst, Src: []string{string(StateIdle)}, Dst: string(StateOneSelected)},
			{Name: eventSelectSecond, Src: []string{string(StateOneSelected)}, Dst: string(StateResolving)},
			{Name: eventMatch, Src: []string{string(StateResolving)}, Dst: string(StateIdle)},
			{Name: eventComplete, Src: []string{string(StateResolving)}, Dst: string(StateGameOver)},
			{Name: eventFlipBack, Src: []string{string(StateResolving)}, Dst: string(StateIdle)},
		},
		fsm.Callbacks{},
	)
}

// Events returns the notification registries of the manager.
func (m *Manager) Events() *Events {
	return &m.events
}

// State returns the current state. Without a session it reports StateIdle.
func (m *Manager) State() State {
	return State(m.machine.Current())
}

// HasSession reports whether a game has been started or loaded.
func (m *Manager) HasSession() bool {
	return m.session != nil
}

// StartNewGame replaces the current session with a freshly shuffled board.
// Invalid dimensions or symbol counts leave the current session untouched.
func (m *Manager) StartNewGame(ctx context.Context, rows, columns, symbolCount int) error {
	ids, err := m.generator.Generate(rows, columns, symbolCount)
	if err != nil {
		return fmt.Errorf("generating board: %w", err)
	}

	b, err := board.New(rows, columns, ids)
	if err != nil {
		return fmt.Errorf("laying out board: %w", err)
	}

	if board.Wraps(rows, columns, symbolCount) {
		slogctx.Warn(ctx, "Board has more pairs than symbols, symbols repeat",
			"pairs", rows*columns/2, "symbols", symbolCount)
	}

	m.begin(b)
	m.rows, m.columns, m.symbolCount = rows, columns, symbolCount
	m.machine.SetState(string(StateIdle))

	ctx = m.logContext(ctx)
	slogctx.Info(ctx, "Started new game", "rows", rows, "columns", columns, "symbols", symbolCount)

	if err := m.ClearSavedGame(ctx); err != nil {
		slogctx.Warn(ctx, "Could not clear saved game", "error", err)
	}

	return nil
}

// ResetSession restarts with the dimensions of the current game, or with the
// configured ones when no game has been played yet.
func (m *Manager) ResetSession(ctx context.Context) error {
	return m.StartNewGame(ctx, m.rows, m.columns, m.symbolCount)
}

// SelectCard flips the card at index. Selections that cannot be honoured are
// ignored without any event: no session, index out of range, a face-up or
// matched card, or a pair still being resolved.
func (m *Manager) SelectCard(ctx context.Context, index int) {
	if m.session == nil {
		return
	}

	state := m.State()
	if state != StateIdle && state != StateOneSelected {
		return
	}

	card, ok := m.session.Board.Card(index)
	if !ok || !card.Selectable() {
		return
	}

	ctx = m.logContext(ctx)

	card.Flipped = true
	m.session.Selection = append(m.session.Selection, index)

	if state == StateIdle {
		m.transition(ctx, eventSelectFirst)
		m.events.CardFlipped.Emit(index)
		return
	}

	m.transition(ctx, eventSelectSecond)
	m.events.CardFlipped.Emit(index)
	m.judge(ctx)
}

// judge resolves a full selection.
func (m *Manager) judge(ctx context.Context) {
	s := m.session
	pair := Pair{First: s.Selection[0], Second: s.Selection[1]}
	first, second := &s.Board.Cards[pair.First], &s.Board.Cards[pair.Second]

	if first.ID != second.ID {
		m.tracker.ResetCombo()
		m.events.Mismatch.Emit(pair)
		slogctx.Debug(ctx, "Mismatch", "first", pair.First, "second", pair.Second)

		m.after(ctx, m.mismatchDelay, func(ctx context.Context) { m.flipBack(ctx, pair) })
		return
	}

	first.Matched, second.Matched = true, true
	s.MatchedPairs++
	s.Selection = nil

	if s.MatchedPairs == s.TotalPairs {
		m.transition(ctx, eventComplete)
	} else {
		m.transition(ctx, eventMatch)
	}

	delta := m.tracker.AddMatch()
	m.events.Match.Emit(pair)
	slogctx.Debug(ctx, "Match", "first", pair.First, "second", pair.Second, "points", delta)

	if m.State() == StateGameOver {
		m.finish(ctx)
	}
}

func (m *Manager) flipBack(ctx context.Context, pair Pair) {
	s := m.session
	s.Board.Cards[pair.First].Flipped = false
	s.Board.Cards[pair.Second].Flipped = false
	s.Selection = nil

	m.transition(ctx, eventFlipBack)
	m.events.FlipBack.Emit(pair)
}

// finish runs once the last pair is found.
func (m *Manager) finish(ctx context.Context) {
	finalScore := m.tracker.Score()
	slogctx.Info(ctx, "Game over", "score", finalScore)

	if err := m.ClearSavedGame(ctx); err != nil {
		slogctx.Warn(ctx, "Could not clear saved game", "error", err)
	}

	m.after(ctx, m.gameOverDelay, func(context.Context) { m.events.GameOver.Emit(finalScore) })
}

// after runs fn once d has elapsed, unless the session is replaced first.
// A zero delay runs fn immediately. fn receives ctx without its
// cancellation.
func (m *Manager) after(ctx context.Context, d time.Duration, fn func(context.Context)) {
	ctx = context.WithoutCancel(ctx)
	if d <= 0 {
		fn(ctx)
		return
	}

	epoch := m.epoch
	m.cancel = m.scheduler.After(d, func() {
		if epoch != m.epoch {
			return
		}
		m.cancel = nil
		fn(ctx)
	})
}

// begin installs a new session and invalidates anything scheduled for the
// previous one.
func (m *Manager) begin(b *board.Board) {
	m.epoch++
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}

	m.session = &Session{
		ID:         uuid.New(),
		Board:      b,
		TotalPairs: b.Pairs(),
	}
	m.tracker.Reset()
}

func (m *Manager) transition(ctx context.Context, event string) {
	if err := m.machine.Event(ctx, event); err != nil {
		slogctx.Error(ctx, "Invalid state transition", "event", event, "state", m.machine.Current(), "error", err)
	}
}

func (m *Manager) logContext(ctx context.Context) context.Context {
	if m.session == nil {
		return ctx
	}
	return slogctx.With(ctx, "session_id", m.session.ID.String(), "slot", m.slot)
}

// SaveGame stores a snapshot of the current session in the save slot.
func (m *Manager) SaveGame(ctx context.Context) error {
	if m.session == nil {
		return serviceerr.ErrNoSession
	}

	ctx, span := startSpan(ctx, "save_game", m.slot)
	defer span.End()

	if err := m.saves.StoreRecord(ctx, m.slot, m.toRecord()); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "storing save record")
		return fmt.Errorf("storing save record: %w", err)
	}

	slogctx.Info(m.logContext(ctx), "Saved game", "state", m.State())
	return nil
}

// LoadGame replaces the current session with the one in the save slot. It
// returns serviceerr.ErrNotFound when there is nothing saved and
// serviceerr.ErrCorruptSave when the saved data is inconsistent; in both
// cases the current session is kept.
func (m *Manager) LoadGame(ctx context.Context) error {
	ctx, span := startSpan(ctx, "load_game", m.slot)
	defer span.End()

	rec, err := m.saves.LoadRecord(ctx, m.slot)
	if err == nil {
		err = m.restore(ctx, rec)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "loading save record")
		return fmt.Errorf("loading save record: %w", err)
	}

	return nil
}

func (m *Manager) toRecord() record.SaveRecord {
	b := m.session.Board
	rec := record.SaveRecord{
		CardIDs:      b.IDs(),
		CardStates:   make([]record.CardState, b.Len()),
		Score:        m.tracker.Score(),
		Combo:        m.tracker.Combo(),
		Rows:         b.Rows,
		Columns:      b.Columns,
		MatchedPairs: m.session.MatchedPairs,
	}
	for i, c := range b.Cards {
		rec.CardStates[i] = record.CardState{IsFlipped: c.Flipped, IsMatched: c.Matched}
	}
	return rec
}

func (m *Manager) restore(ctx context.Context, rec record.SaveRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	b, err := board.New(rec.Rows, rec.Columns, rec.CardIDs)
	if err != nil {
		return errors.Join(serviceerr.ErrCorruptSave, err)
	}

	var selection []int
	for i, st := range rec.CardStates {
		c := &b.Cards[i]
		c.Matched = st.IsMatched
		c.Flipped = st.IsFlipped || st.IsMatched
		if c.Flipped && !c.Matched {
			selection = append(selection, i)
		}
	}

	m.begin(b)
	m.rows, m.columns = rec.Rows, rec.Columns
	m.session.MatchedPairs = rec.MatchedPairs
	m.session.Selection = selection
	m.tracker.SetScore(rec.Score)
	m.tracker.SetCombo(rec.Combo)

	ctx = m.logContext(ctx)
	slogctx.Info(ctx, "Loaded game", "matched_pairs", rec.MatchedPairs, "selected", len(selection))

	switch len(selection) {
	case 0:
		if m.session.MatchedPairs == m.session.TotalPairs {
			m.machine.SetState(string(StateGameOver))
			m.finish(ctx)
			return nil
		}
		m.machine.SetState(string(StateIdle))
	case 1:
		m.machine.SetState(string(StateOneSelected))
	default:
		m.machine.SetState(string(StateResolving))
		m.judge(ctx)
	}

	return nil
}

// StartOrResume loads the saved game if there is one and otherwise starts a
// new game with the current dimensions. A save that cannot be loaded is
// discarded.
func (m *Manager) StartOrResume(ctx context.Context) error {
	ok, err := m.HasSavedGame(ctx)
	if err != nil {
		return err
	}

	if ok {
		err := m.LoadGame(ctx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, serviceerr.ErrCorruptSave) && !errors.Is(err, serviceerr.ErrNotFound) {
			return err
		}
		slogctx.Warn(ctx, "Discarding unusable saved game", "slot", m.slot, "error", err)
	}

	return m.ResetSession(ctx)
}

// Suspend saves a game in progress. Finished games and an empty manager are
// not saved.
func (m *Manager) Suspend(ctx context.Context) error {
	if m.session == nil || m.State() == StateGameOver {
		return nil
	}
	return m.SaveGame(ctx)
}

func (m *Manager) HasSavedGame(ctx context.Context) (bool, error) {
	ok, err := m.saves.HasRecord(ctx, m.slot)
	if err != nil {
		return false, fmt.Errorf("checking save slot: %w", err)
	}
	return ok, nil
}

// ClearSavedGame deletes the save slot. An empty slot is not an error.
func (m *Manager) ClearSavedGame(ctx context.Context) error {
	err := m.saves.DeleteRecord(ctx, m.slot)
	if err != nil && !errors.Is(err, serviceerr.ErrNotFound) {
		return fmt.Errorf("deleting save record: %w", err)
	}
	return nil
}

// Snapshot copies the session for presentation.
func (m *Manager) Snapshot() View {
	v := View{
		State:   m.State(),
		Rows:    m.rows,
		Columns: m.columns,
		Score:   m.tracker.Score(),
		Combo:   m.tracker.Combo(),
	}

	if m.session == nil {
		return v
	}

	v.SessionID = m.session.ID.String()
	v.Cards = m.session.Board.Clone().Cards
	v.MatchedPairs = m.session.MatchedPairs
	v.TotalPairs = m.session.TotalPairs

	return v
}

func startSpan(ctx context.Context, name, slot string) (context.Context, trace.Span) {
	tracer := otel.GetTracerProvider()
	return tracer.Tracer("").Start(ctx, name, trace.WithAttributes(attribute.String("slot", slot)))
}
