package db

import (
	"time"

	"gorm.io/datatypes"
)

// GameSession holds one player's serialised session. Key is the external
// session id (an HTTP path segment or "tg:<chat>:<user>").
type GameSession struct {
	ID        uint           `gorm:"primaryKey"`
	Key       string         `gorm:"column:session_key;size:191;not null;uniqueIndex:idx_game_session_key"`
	State     datatypes.JSON `gorm:"not null"`
	Version   int64          `gorm:"not null;default:0"`
	ExpiresAt time.Time      `gorm:"not null;index:idx_game_session_expires"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (GameSession) TableName() string {
	return "game_sessions"
}
