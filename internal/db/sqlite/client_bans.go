package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hexvault/warden/internal/db"
)

const banColumns = "id, user_id, reason, moderator_id, unban_time, approved, unbanned, timestamp"

func (s *sqliteStore) GetActiveBan(ctx context.Context, userID int64) (*db.Ban, error) {
	ban := &db.Ban{}
	err := s.db.GetContext(ctx, ban,
		"SELECT "+banColumns+" FROM bans WHERE user_id = ? AND unbanned = 0 LIMIT 1", userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active ban: %w", err)
	}
	return ban, nil
}

func (s *sqliteStore) GetBan(ctx context.Context, id int64) (*db.Ban, error) {
	ban := &db.Ban{}
	err := s.db.GetContext(ctx, ban, "SELECT "+banColumns+" FROM bans WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ban: %w", err)
	}
	return ban, nil
}

func (s *sqliteStore) CreateBanWithInfraction(ctx context.Context, ban *db.Ban, infraction *db.Infraction) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if ban.Timestamp.IsZero() {
		ban.Timestamp = time.Now().UTC()
	}
	result, err := tx.ExecContext(ctx, `
		INSERT INTO bans (user_id, reason, moderator_id, unban_time, approved, unbanned, timestamp)
		VALUES (?, ?, ?, ?, ?, 0, ?)
	`, ban.UserID, ban.Reason, ban.ModeratorID, ban.UnbanTime, ban.Approved, ban.Timestamp)
	if err != nil {
		if isUniqueViolation(err) {
			return db.ErrBanExists
		}
		return fmt.Errorf("insert ban: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("ban insert id: %w", err)
	}
	ban.ID = id

	if infraction != nil {
		if infraction.Date.IsZero() {
			infraction.Date = time.Now().UTC()
		}
		result, err = tx.ExecContext(ctx, `
			INSERT INTO infractions (user_id, reason, weight, moderator_id, date)
			VALUES (?, ?, ?, ?, ?)
		`, infraction.UserID, infraction.Reason, infraction.Weight, infraction.ModeratorID, infraction.Date)
		if err != nil {
			return fmt.Errorf("insert infraction: %w", err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("infraction insert id: %w", err)
		}
		infraction.ID = id
	}

	return tx.Commit()
}

func (s *sqliteStore) UpdateBan(ctx context.Context, ban *db.Ban) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE bans
		SET reason = ?, unban_time = ?, approved = ?, unbanned = ?
		WHERE id = ?
	`, ban.Reason, ban.UnbanTime, ban.Approved, ban.Unbanned, ban.ID)
	if err != nil {
		return fmt.Errorf("update ban: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update ban rows: %w", err)
	}
	if affected == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (s *sqliteStore) DeleteBan(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM bans WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete ban: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete ban rows: %w", err)
	}
	if affected == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (s *sqliteStore) ListDueBans(ctx context.Context, before time.Time) ([]*db.Ban, error) {
	var bans []*db.Ban
	err := s.db.SelectContext(ctx, &bans,
		"SELECT "+banColumns+" FROM bans WHERE unbanned = 0 AND approved = 1 AND unban_time <= ? ORDER BY unban_time",
		before.Unix())
	if err != nil {
		return nil, fmt.Errorf("list due bans: %w", err)
	}
	return bans, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
