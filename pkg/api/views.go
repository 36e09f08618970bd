package api

import (
	"time"

	"github.com/smith3v/lexicon-clash/pkg/content"
	"github.com/smith3v/lexicon-clash/pkg/game"
	"github.com/smith3v/lexicon-clash/pkg/service"
	"github.com/smith3v/lexicon-clash/pkg/words"
)

// itemView is a content item as a client sees it. Engagement decides
// zero-count rounds, so it stays nil until the round is resolved.
type itemView struct {
	ID                  string `json:"id"`
	SourceGroup         string `json:"sourceGroup"`
	Title               string `json:"title"`
	Body                string `json:"body"`
	URL                 string `json:"url"`
	IsRestricted        bool   `json:"isRestricted"`
	Placeholder         bool   `json:"placeholder,omitempty"`
	PrimaryEngagement   *int   `json:"primaryEngagement,omitempty"`
	SecondaryEngagement *int   `json:"secondaryEngagement,omitempty"`
}

func newItemView(item content.Item, revealed bool) itemView {
	v := itemView{
		ID:           item.ID,
		SourceGroup:  item.SourceGroup,
		Title:        item.Title,
		Body:         item.Body,
		URL:          item.URL,
		IsRestricted: item.IsRestricted,
		Placeholder:  item.Placeholder,
	}
	if revealed {
		primary, secondary := item.PrimaryEngagement, item.SecondaryEngagement
		v.PrimaryEngagement = &primary
		v.SecondaryEngagement = &secondary
	}
	return v
}

// cardView hides match data and engagement until the round is resolved.
type cardView struct {
	ID         string            `json:"id"`
	Item       itemView          `json:"item"`
	Match      *game.MatchResult `json:"matchResult,omitempty"`
	IsRevealed bool              `json:"isRevealed"`
	IsWinner   bool              `json:"isWinner"`
}

type roundView struct {
	ID           string      `json:"id"`
	Word         words.Word  `json:"word"`
	Cards        [2]cardView `json:"cards"`
	IsWildcard   bool        `json:"isWildcard"`
	PlayerChoice *int        `json:"playerChoice"`
	Winner       game.Winner `json:"winner"`
	PointsEarned *int        `json:"pointsEarned"`
	CreatedAt    time.Time   `json:"createdAt"`
	CompletedAt  *time.Time  `json:"completedAt"`
}

func newRoundView(r *game.Round) *roundView {
	if r == nil {
		return nil
	}
	v := &roundView{
		ID:           r.ID,
		Word:         r.Word,
		IsWildcard:   r.IsWildcard,
		PlayerChoice: r.PlayerChoice,
		Winner:       r.Winner,
		PointsEarned: r.PointsEarned,
		CreatedAt:    r.CreatedAt,
		CompletedAt:  r.CompletedAt,
	}
	for i, c := range r.Cards {
		done := r.Completed()
		v.Cards[i] = cardView{ID: c.ID, Item: newItemView(c.Item, done), IsRevealed: c.IsRevealed, IsWinner: c.IsWinner}
		if done {
			match := c.Match
			v.Cards[i].Match = &match
		}
	}
	return v
}

type sessionView struct {
	ActiveRound *roundView          `json:"activeRound"`
	Stats       game.Stats          `json:"stats"`
	Journal     []game.JournalEntry `json:"journal"`
}

func newSessionView(s *game.Session) sessionView {
	return sessionView{ActiveRound: newRoundView(s.ActiveRound), Stats: s.Stats, Journal: s.Journal}
}

type sessionResponse struct {
	Type    service.ResultType `json:"type"`
	State   game.State         `json:"state"`
	Session sessionView        `json:"session"`
}

type roundStartedResponse struct {
	Type   service.ResultType `json:"type"`
	Round  *roundView         `json:"round"`
	Stakes game.Stakes        `json:"stakes"`
	Stats  game.Stats         `json:"stats"`
}

type roundResolvedResponse struct {
	Type  service.ResultType `json:"type"`
	Round *roundView         `json:"round"`
	Stats game.Stats         `json:"stats"`
}
