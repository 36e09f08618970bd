// Package service exposes the game operations on persisted sessions.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smith3v/lexicon-clash/pkg/game"
	"github.com/smith3v/lexicon-clash/pkg/logger"
	"github.com/smith3v/lexicon-clash/pkg/store"
	"github.com/smith3v/lexicon-clash/pkg/words"
)

// WordSource supplies challenge words; *words.Catalog satisfies it.
type WordSource interface {
	PickRandomWord(excluding map[string]struct{}) (words.Word, error)
}

type Options struct {
	Store   store.Store
	Builder game.RoundBuilder
	Words   WordSource
	// ClearCompletedOnInit drops a resolved round when a session is loaded.
	ClearCompletedOnInit bool
	// JournalLimit caps the journal to the newest entries; 0 keeps all.
	JournalLimit int
	Now          func() time.Time
}

type InitOptions struct {
	// Fresh ignores any stored state and starts over.
	Fresh bool
}

// Engine runs the four session operations. Operations on the same session id
// are serialised within the process.
type Engine struct {
	store        store.Store
	builder      game.RoundBuilder
	words        WordSource
	clearOnInit  bool
	journalLimit int
	now          func() time.Time
	locks        *keyedMutex
}

func New(opts Options) (*Engine, error) {
	if opts.Store == nil || opts.Builder == nil || opts.Words == nil {
		return nil, errors.New("service: store, builder and word source are required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		store:        opts.Store,
		builder:      opts.Builder,
		words:        opts.Words,
		clearOnInit:  opts.ClearCompletedOnInit,
		journalLimit: opts.JournalLimit,
		now:          now,
		locks:        newKeyedMutex(),
	}, nil
}

// loaded is a session together with the version it was read at.
type loaded struct {
	session *game.Session
	version int64
	stored  bool
}

func (e *Engine) load(ctx context.Context, id string) (loaded, error) {
	rec, err := e.store.Get(ctx, id)
	if err != nil {
		return loaded{}, &game.PersistenceError{SessionID: id, Op: "get", Cause: err}
	}
	if rec == nil {
		return loaded{session: game.NewSession()}, nil
	}
	s, err := game.DecodeSession(rec.Blob)
	if err != nil {
		return loaded{}, &game.PersistenceError{SessionID: id, Op: "decode", Cause: err}
	}
	return loaded{session: s, version: rec.Version, stored: len(rec.Blob) > 0}, nil
}

// loadForReplace is load for operations that overwrite the whole session.
// A blob that no longer decodes is dropped in favour of a fresh session,
// keeping the stored version for the conditional write.
func (e *Engine) loadForReplace(ctx context.Context, id string) (loaded, error) {
	rec, err := e.store.Get(ctx, id)
	if err != nil {
		return loaded{}, &game.PersistenceError{SessionID: id, Op: "get", Cause: err}
	}
	if rec == nil {
		return loaded{session: game.NewSession()}, nil
	}
	s, err := game.DecodeSession(rec.Blob)
	if err != nil {
		logger.Warn("discarding undecodable session", "session", id, "error", err)
		s = game.NewSession()
	}
	return loaded{session: s, version: rec.Version, stored: len(rec.Blob) > 0}, nil
}

func (e *Engine) save(ctx context.Context, id string, l loaded) error {
	blob, err := game.EncodeSession(l.session)
	if err != nil {
		return &game.PersistenceError{SessionID: id, Op: "encode", Cause: err}
	}
	if err := e.store.Set(ctx, id, store.Record{Blob: blob, Version: l.version}); err != nil {
		return &game.PersistenceError{SessionID: id, Op: "set", Cause: err}
	}
	return nil
}

// InitSession loads the session or creates and stores a fresh Idle one.
func (e *Engine) InitSession(ctx context.Context, id string, opts InitOptions) (*InitResult, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	unlock := e.locks.Lock(id)
	defer unlock()

	load := e.load
	if opts.Fresh {
		load = e.loadForReplace
	}
	l, err := load(ctx, id)
	if err != nil {
		return nil, err
	}
	dirty := !l.stored
	if opts.Fresh {
		l.session = game.NewSession()
		dirty = true
	}
	if e.clearOnInit && l.session.ClearCompleted() {
		dirty = true
	}
	if dirty {
		if err := e.save(ctx, id, l); err != nil {
			return nil, err
		}
	}
	logger.Debug("session initialised", "session", id, "state", l.session.State(), "fresh", opts.Fresh)
	return &InitResult{Type: ResultInit, State: l.session.State(), Session: l.session}, nil
}

// StartRound picks a word the player has not seen yet, builds a round and
// stores it. On failure nothing is stored.
func (e *Engine) StartRound(ctx context.Context, id string) (*RoundStartedResult, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	unlock := e.locks.Lock(id)
	defer unlock()

	l, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	s := l.session
	if s.State() == game.StateRoundActive {
		return nil, &game.RoundInProgressError{RoundID: s.ActiveRound.ID}
	}
	word, err := e.words.PickRandomWord(s.Stats.SeenSet())
	if err != nil {
		return nil, fmt.Errorf("pick word: %w", err)
	}
	round, err := s.StartRound(ctx, e.builder, word)
	if err != nil {
		logger.Warn("round start failed", "session", id, "word", word.Text, "error", err)
		return nil, err
	}
	if err := e.save(ctx, id, l); err != nil {
		return nil, err
	}
	logger.Info("round started", "session", id, "word", word.Text, "round", round.ID,
		"wildcard", round.IsWildcard, "attempts", round.Attempts, "forced", round.Forced)
	return &RoundStartedResult{
		Type:   ResultRoundStarted,
		Round:  round,
		Stakes: game.StakesFor(round, s.Stats.CurrentStreak),
		Stats:  s.Stats,
	}, nil
}

// SubmitChoice resolves the active round for choice (0 or 1).
func (e *Engine) SubmitChoice(ctx context.Context, id string, choice int) (*RoundResolvedResult, error) {
	if choice != 0 && choice != 1 {
		return nil, &game.InvalidChoiceError{Choice: choice}
	}
	if err := validateID(id); err != nil {
		return nil, err
	}
	unlock := e.locks.Lock(id)
	defer unlock()

	l, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	s := l.session
	round, err := s.SubmitChoice(choice, e.now())
	if err != nil {
		return nil, err
	}
	if e.journalLimit > 0 {
		s.TrimJournal(e.journalLimit)
	}
	if err := e.save(ctx, id, l); err != nil {
		return nil, err
	}
	logger.Info("round resolved", "session", id, "round", round.ID, "winner", round.Winner,
		"points", *round.PointsEarned, "score", s.Stats.CumulativeScore, "streak", s.Stats.CurrentStreak)
	return &RoundResolvedResult{Type: ResultRoundResolved, Round: round, Stats: s.Stats}, nil
}

// ResetSession clears stats, journal and any active round.
func (e *Engine) ResetSession(ctx context.Context, id string) (*ResetResult, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	unlock := e.locks.Lock(id)
	defer unlock()

	l, err := e.loadForReplace(ctx, id)
	if err != nil {
		return nil, err
	}
	l.session.Reset()
	if err := e.save(ctx, id, l); err != nil {
		return nil, err
	}
	logger.Info("session reset", "session", id)
	return &ResetResult{Type: ResultReset, State: l.session.State(), Session: l.session}, nil
}

// Session returns the stored session without changing it. Unlike
// InitSession it neither creates a record nor clears a resolved round.
func (e *Engine) Session(ctx context.Context, id string) (*game.Session, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	l, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return l.session, nil
}

// Stakes reports what the active round is worth for each outcome.
func (e *Engine) Stakes(ctx context.Context, id string) (*StakesResult, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	l, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	s := l.session
	if s.State() != game.StateRoundActive {
		return nil, &game.NoActiveRoundError{}
	}
	return &StakesResult{
		Type:          ResultStakes,
		RoundID:       s.ActiveRound.ID,
		IsWildcard:    s.ActiveRound.IsWildcard,
		CurrentStreak: s.Stats.CurrentStreak,
		Stakes:        game.StakesFor(s.ActiveRound, s.Stats.CurrentStreak),
	}, nil
}

// Journal returns the completed rounds, oldest first.
func (e *Engine) Journal(ctx context.Context, id string) ([]game.JournalEntry, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	l, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return l.session.Journal, nil
}

// ErrInvalidSessionID rejects empty or oversized session ids.
var ErrInvalidSessionID = errors.New("invalid session id")

const maxSessionIDLen = 128

func validateID(id string) error {
	if id == "" || len(id) > maxSessionIDLen {
		return fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}
	return nil
}
