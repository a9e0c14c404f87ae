package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hexvault/warden/internal/db"
)

func (s *sqliteStore) GetMute(ctx context.Context, userID int64) (*db.Mute, error) {
	mute := &db.Mute{}
	err := s.db.GetContext(ctx, mute,
		"SELECT id, user_id, reason, moderator_id, unmute_time FROM mutes WHERE user_id = ? LIMIT 1", userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get mute: %w", err)
	}
	return mute, nil
}

func (s *sqliteStore) CreateMute(ctx context.Context, mute *db.Mute) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO mutes (user_id, reason, moderator_id, unmute_time)
		VALUES (?, ?, ?, ?)
	`, mute.UserID, mute.Reason, mute.ModeratorID, mute.UnmuteTime)
	if err != nil {
		return fmt.Errorf("insert mute: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("mute insert id: %w", err)
	}
	mute.ID = id
	return nil
}

func (s *sqliteStore) DeleteMute(ctx context.Context, userID int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM mutes WHERE user_id = ?", userID)
	if err != nil {
		return fmt.Errorf("delete mute: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete mute rows: %w", err)
	}
	if affected == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (s *sqliteStore) ListDueMutes(ctx context.Context, before time.Time) ([]*db.Mute, error) {
	var mutes []*db.Mute
	err := s.db.SelectContext(ctx, &mutes,
		"SELECT id, user_id, reason, moderator_id, unmute_time FROM mutes WHERE unmute_time <= ? ORDER BY unmute_time",
		before.Unix())
	if err != nil {
		return nil, fmt.Errorf("list due mutes: %w", err)
	}
	return mutes, nil
}
