package game

import (
	"fmt"
	"time"
)

const (
	WinBasePoints   = 10
	StreakBonusStep = 5
	StreakBonusCap  = 25
	LossPoints      = -5
	WildcardFactor  = 2
)

// Points is the single scoring formula. It depends only on the outcome, the
// wildcard flag and the streak before the round.
func Points(winner Winner, wildcard bool, streakBefore int) int {
	var pts int
	switch winner {
	case WinnerPlayer:
		pts = WinBasePoints + min(max(streakBefore, 0)*StreakBonusStep, StreakBonusCap)
	case WinnerOpponent:
		pts = LossPoints
	default:
		return 0
	}
	if wildcard {
		pts *= WildcardFactor
	}
	return pts
}

// Stakes lists what each outcome of a pending round would be worth.
type Stakes struct {
	Win  int `json:"win"`
	Loss int `json:"loss"`
	Tie  int `json:"tie"`
}

func StakesFor(round *Round, streakBefore int) Stakes {
	wildcard := round != nil && round.IsWildcard
	return Stakes{
		Win:  Points(WinnerPlayer, wildcard, streakBefore),
		Loss: Points(WinnerOpponent, wildcard, streakBefore),
		Tie:  Points(WinnerTie, wildcard, streakBefore),
	}
}

// Resolve completes a pending round for the given choice. The input round is
// not modified.
func Resolve(round *Round, choice int, streakBefore int, now time.Time) (*Round, error) {
	if choice != 0 && choice != 1 {
		return nil, &InvalidChoiceError{Choice: choice}
	}
	if round == nil {
		return nil, fmt.Errorf("%w: resolve without a round", ErrInvariant)
	}
	if round.Completed() {
		return nil, &AlreadyResolvedError{RoundID: round.ID}
	}

	out := *round
	winnerIdx, tie := decide(round)

	switch {
	case tie:
		out.Winner = WinnerTie
	case winnerIdx == choice:
		out.Winner = WinnerPlayer
	default:
		out.Winner = WinnerOpponent
	}
	for i := range out.Cards {
		out.Cards[i].IsRevealed = true
		out.Cards[i].IsWinner = tie || i == winnerIdx
	}

	pts := Points(out.Winner, out.IsWildcard, streakBefore)
	chosen := choice
	completedAt := now.UTC()
	out.PointsEarned = &pts
	out.PlayerChoice = &chosen
	out.CompletedAt = &completedAt
	return &out, nil
}

// decide returns the winning card index, or tie. Equal counts fall back to
// engagement only on wildcard rounds.
func decide(round *Round) (int, bool) {
	a, b := round.Cards[0], round.Cards[1]
	if a.Match.Count != b.Match.Count {
		if a.Match.Count > b.Match.Count {
			return 0, false
		}
		return 1, false
	}
	if !round.IsWildcard {
		return -1, true
	}
	if a.Item.PrimaryEngagement != b.Item.PrimaryEngagement {
		if a.Item.PrimaryEngagement > b.Item.PrimaryEngagement {
			return 0, false
		}
		return 1, false
	}
	if a.Item.SecondaryEngagement != b.Item.SecondaryEngagement {
		if a.Item.SecondaryEngagement > b.Item.SecondaryEngagement {
			return 0, false
		}
		return 1, false
	}
	return -1, true
}
