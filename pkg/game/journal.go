package game

import "time"

// JournalEntry summarises one completed round.
type JournalEntry struct {
	RoundID       string    `json:"roundId"`
	Word          string    `json:"word"`
	Definition    string    `json:"definition"`
	Winner        Winner    `json:"winner"`
	PointsEarned  int       `json:"pointsEarned"`
	IsWildcard    bool      `json:"isWildcard"`
	PlayerChoice  int       `json:"playerChoice"`
	PlayerCount   int       `json:"playerCount"`
	OpponentCount int       `json:"opponentCount"`
	Date          time.Time `json:"date"`
}

func newJournalEntry(r *Round) JournalEntry {
	e := JournalEntry{
		RoundID:    r.ID,
		Word:       r.Word.Text,
		Definition: r.Word.Definition,
		Winner:     r.Winner,
		IsWildcard: r.IsWildcard,
	}
	if r.PointsEarned != nil {
		e.PointsEarned = *r.PointsEarned
	}
	if r.PlayerChoice != nil {
		e.PlayerChoice = *r.PlayerChoice
		e.PlayerCount = r.Cards[e.PlayerChoice].Match.Count
		e.OpponentCount = r.Cards[1-e.PlayerChoice].Match.Count
	}
	if r.CompletedAt != nil {
		e.Date = *r.CompletedAt
	}
	return e
}
