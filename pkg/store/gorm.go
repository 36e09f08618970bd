package store

import (
	"context"
	"errors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/smith3v/lexicon-clash/pkg/db"
)

// Gorm stores sessions in the game_sessions table.
type Gorm struct {
	db   *gorm.DB
	opts Options
}

func NewGorm(gdb *gorm.DB, opts Options) *Gorm {
	return &Gorm{db: gdb, opts: opts.withDefaults()}
}

func (g *Gorm) Get(ctx context.Context, key string) (*Record, error) {
	var row db.GameSession
	err := g.db.WithContext(ctx).Where("session_key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec := &Record{Version: row.Version}
	if g.opts.Now().Before(row.ExpiresAt) {
		rec.Blob = []byte(row.State)
	}
	return rec, nil
}

func (g *Gorm) Set(ctx context.Context, key string, rec Record) error {
	now := g.opts.Now().UTC()
	expires := now.Add(g.opts.TTL)
	tx := g.db.WithContext(ctx)

	if !g.opts.Optimistic {
		row := db.GameSession{Key: key, State: datatypes.JSON(rec.Blob), Version: 1, ExpiresAt: expires}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "session_key"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"state":      datatypes.JSON(rec.Blob),
				"version":    gorm.Expr("game_sessions.version + 1"),
				"expires_at": expires,
				"updated_at": now,
			}),
		}).Create(&row).Error
	}

	if rec.Version == 0 {
		row := db.GameSession{Key: key, State: datatypes.JSON(rec.Blob), Version: 1, ExpiresAt: expires}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrVersionConflict
		}
		return nil
	}

	res := tx.Model(&db.GameSession{}).
		Where("session_key = ? AND version = ?", key, rec.Version).
		Updates(map[string]interface{}{
			"state":      datatypes.JSON(rec.Blob),
			"version":    rec.Version + 1,
			"expires_at": expires,
			"updated_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}
