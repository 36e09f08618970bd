package service

import "github.com/smith3v/lexicon-clash/pkg/game"

// ResultType is the discriminant carried by every operation result.
type ResultType string

const (
	ResultInit          ResultType = "init"
	ResultRoundStarted  ResultType = "roundStarted"
	ResultRoundResolved ResultType = "roundResolved"
	ResultReset         ResultType = "reset"
	ResultStakes        ResultType = "stakes"
)

type InitResult struct {
	Type    ResultType    `json:"type"`
	State   game.State    `json:"state"`
	Session *game.Session `json:"session"`
}

// RoundStartedResult carries a pending round. Callers exposing it to players
// must hide the match data of its cards.
type RoundStartedResult struct {
	Type   ResultType  `json:"type"`
	Round  *game.Round `json:"round"`
	Stakes game.Stakes `json:"stakes"`
	Stats  game.Stats  `json:"stats"`
}

type RoundResolvedResult struct {
	Type  ResultType  `json:"type"`
	Round *game.Round `json:"round"`
	Stats game.Stats  `json:"stats"`
}

type ResetResult struct {
	Type    ResultType    `json:"type"`
	State   game.State    `json:"state"`
	Session *game.Session `json:"session"`
}

type StakesResult struct {
	Type          ResultType  `json:"type"`
	RoundID       string      `json:"roundId"`
	IsWildcard    bool        `json:"isWildcard"`
	CurrentStreak int         `json:"currentStreak"`
	Stakes        game.Stakes `json:"stakes"`
}
