package game

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EncodeSession serialises the whole session. Times are written as RFC 3339
// (ISO-8601) strings.
func EncodeSession(s *Session) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: encode nil session", ErrInvariant)
	}
	return json.Marshal(s)
}

// DecodeSession parses a stored blob. Missing fields take their defaults and
// a round that cannot be played is dropped rather than failing the load.
func DecodeSession(data []byte) (*Session, error) {
	s := NewSession()
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	normalize(s)
	return s, nil
}

func normalize(s *Session) {
	st := &s.Stats
	for _, v := range []*int{&st.Wins, &st.Losses, &st.Ties, &st.RoundsPlayed, &st.CurrentStreak, &st.LongestStreak, &st.CumulativeScore} {
		if *v < 0 {
			*v = 0
		}
	}
	st.LongestStreak = max(st.LongestStreak, st.CurrentStreak)

	seen := make([]string, 0, len(st.UniqueWordsSeen))
	dedupe := make(map[string]struct{}, len(st.UniqueWordsSeen))
	for _, w := range st.UniqueWordsSeen {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, ok := dedupe[w]; ok {
			continue
		}
		dedupe[w] = struct{}{}
		seen = append(seen, w)
	}
	st.UniqueWordsSeen = seen

	if s.Journal == nil {
		s.Journal = []JournalEntry{}
	}
	if r := s.ActiveRound; r != nil && !playable(r) {
		s.ActiveRound = nil
	}
}

func playable(r *Round) bool {
	if r.ID == "" || r.Cards[0].ID == "" || r.Cards[1].ID == "" || !r.Winner.valid() {
		return false
	}
	if r.Completed() {
		return r.PointsEarned != nil && r.PlayerChoice != nil
	}
	for i := range r.Cards {
		if r.Cards[i].Match.Excerpts == nil {
			r.Cards[i].Match.Excerpts = []string{}
		}
	}
	return true
}
