package game

import (
	"time"

	"github.com/smith3v/lexicon-clash/pkg/content"
	"github.com/smith3v/lexicon-clash/pkg/words"
)

type Winner string

const (
	WinnerNone     Winner = ""
	WinnerPlayer   Winner = "player"
	WinnerOpponent Winner = "opponent"
	WinnerTie      Winner = "tie"
)

func (w Winner) valid() bool {
	switch w {
	case WinnerNone, WinnerPlayer, WinnerOpponent, WinnerTie:
		return true
	}
	return false
}

type MatchResult struct {
	Count    int      `json:"count"`
	Excerpts []string `json:"excerpts"`
}

// Card pairs a content item with its match data. IsRevealed and IsWinner are
// set only when the round is resolved.
type Card struct {
	ID         string       `json:"id"`
	Word       words.Word   `json:"word"`
	Item       content.Item `json:"item"`
	Match      MatchResult  `json:"matchResult"`
	IsRevealed bool         `json:"isRevealed"`
	IsWinner   bool         `json:"isWinner"`
}

// Round is pending while Winner is WinnerNone and completed afterwards.
type Round struct {
	ID           string     `json:"id"`
	Word         words.Word `json:"word"`
	Cards        [2]Card    `json:"cards"`
	IsWildcard   bool       `json:"isWildcard"`
	PlayerChoice *int       `json:"playerChoice"`
	Winner       Winner     `json:"winner"`
	PointsEarned *int       `json:"pointsEarned"`
	CreatedAt    time.Time  `json:"createdAt"`
	CompletedAt  *time.Time `json:"completedAt"`
	// Forced is set when a zero-match card was replaced by a matched placeholder.
	Forced   bool `json:"forced,omitempty"`
	Attempts int  `json:"attempts,omitempty"`
}

func (r *Round) Completed() bool {
	return r != nil && r.Winner != WinnerNone
}

type Stats struct {
	Wins            int      `json:"wins"`
	Losses          int      `json:"losses"`
	Ties            int      `json:"ties"`
	RoundsPlayed    int      `json:"roundsPlayed"`
	CurrentStreak   int      `json:"currentStreak"`
	LongestStreak   int      `json:"longestStreak"`
	UniqueWordsSeen []string `json:"uniqueWordsSeen"`
	CumulativeScore int      `json:"cumulativeScore"`
}

// SeenSet returns the seen words as a lookup set.
func (s Stats) SeenSet() map[string]struct{} {
	set := make(map[string]struct{}, len(s.UniqueWordsSeen))
	for _, w := range s.UniqueWordsSeen {
		set[w] = struct{}{}
	}
	return set
}

func (s *Stats) addWord(word string) {
	for _, w := range s.UniqueWordsSeen {
		if w == word {
			return
		}
	}
	s.UniqueWordsSeen = append(s.UniqueWordsSeen, word)
}

type State string

const (
	StateIdle          State = "idle"
	StateRoundActive   State = "roundActive"
	StateRoundComplete State = "roundComplete"
)

// Session is the unit of persistence.
type Session struct {
	ActiveRound *Round         `json:"activeRound"`
	Stats       Stats          `json:"stats"`
	Journal     []JournalEntry `json:"journal"`
}

func NewSession() *Session {
	return &Session{
		Stats:   Stats{UniqueWordsSeen: []string{}},
		Journal: []JournalEntry{},
	}
}

func (s *Session) State() State {
	switch {
	case s.ActiveRound == nil:
		return StateIdle
	case s.ActiveRound.Completed():
		return StateRoundComplete
	default:
		return StateRoundActive
	}
}
