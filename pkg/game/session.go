package game

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/smith3v/lexicon-clash/pkg/words"
)

// RoundBuilder is what the session needs from Builder.
type RoundBuilder interface {
	Build(ctx context.Context, word words.Word) (*Round, error)
}

// StartRound builds a round for word and makes it active. It is allowed from
// Idle and RoundComplete; on error the session is unchanged.
func (s *Session) StartRound(ctx context.Context, builder RoundBuilder, word words.Word) (*Round, error) {
	if s.State() == StateRoundActive {
		return nil, &RoundInProgressError{RoundID: s.ActiveRound.ID}
	}
	round, err := builder.Build(ctx, word)
	if err != nil {
		return nil, err
	}
	if err := s.BeginRound(round); err != nil {
		return nil, err
	}
	return round, nil
}

// BeginRound applies an already built round.
func (s *Session) BeginRound(round *Round) error {
	if s.State() == StateRoundActive {
		return &RoundInProgressError{RoundID: s.ActiveRound.ID}
	}
	if round == nil || round.Completed() {
		return fmt.Errorf("%w: new round must be pending", ErrInvariant)
	}
	s.ActiveRound = round
	s.Stats.RoundsPlayed++
	s.Stats.addWord(strings.ToLower(round.Word.Text))
	return nil
}

// SubmitChoice resolves the active round and folds the outcome into the stats.
func (s *Session) SubmitChoice(choice int, now time.Time) (*Round, error) {
	if choice != 0 && choice != 1 {
		return nil, &InvalidChoiceError{Choice: choice}
	}
	if s.ActiveRound == nil {
		return nil, &NoActiveRoundError{}
	}
	if s.ActiveRound.Completed() {
		return nil, &AlreadyResolvedError{RoundID: s.ActiveRound.ID}
	}

	resolved, err := Resolve(s.ActiveRound, choice, s.Stats.CurrentStreak, now)
	if err != nil {
		return nil, err
	}

	st := &s.Stats
	st.CumulativeScore = max(0, st.CumulativeScore+*resolved.PointsEarned)
	switch resolved.Winner {
	case WinnerPlayer:
		st.Wins++
		st.CurrentStreak++
		st.LongestStreak = max(st.LongestStreak, st.CurrentStreak)
	case WinnerOpponent:
		st.Losses++
		st.CurrentStreak = 0
	case WinnerTie:
		st.Ties++
	}

	s.ActiveRound = resolved
	s.Journal = append(s.Journal, newJournalEntry(resolved))
	return resolved, nil
}

// Reset zeroes the stats and drops the active round and journal.
func (s *Session) Reset() {
	*s = *NewSession()
}

// ClearCompleted drops a resolved round so the session reads as Idle. It
// reports whether anything changed.
func (s *Session) ClearCompleted() bool {
	if s.ActiveRound.Completed() {
		s.ActiveRound = nil
		return true
	}
	return false
}

// TrimJournal keeps the newest limit entries. A limit of zero or less keeps
// nothing.
func (s *Session) TrimJournal(limit int) {
	if limit <= 0 {
		s.Journal = []JournalEntry{}
		return
	}
	if len(s.Journal) > limit {
		s.Journal = append([]JournalEntry(nil), s.Journal[len(s.Journal)-limit:]...)
	}
}
