package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/hexvault/warden/internal/db"
)

func (s *sqliteStore) CreateInfraction(ctx context.Context, infraction *db.Infraction) error {
	if infraction.Date.IsZero() {
		infraction.Date = time.Now().UTC()
	}
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO infractions (user_id, reason, weight, moderator_id, date)
		VALUES (?, ?, ?, ?, ?)
	`, infraction.UserID, infraction.Reason, infraction.Weight, infraction.ModeratorID, infraction.Date)
	if err != nil {
		return fmt.Errorf("insert infraction: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("infraction insert id: %w", err)
	}
	infraction.ID = id
	return nil
}

func (s *sqliteStore) DeleteInfraction(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM infractions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete infraction: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete infraction rows: %w", err)
	}
	if affected == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (s *sqliteStore) ListInfractions(ctx context.Context, userID int64) ([]*db.Infraction, error) {
	var infractions []*db.Infraction
	err := s.db.SelectContext(ctx, &infractions,
		"SELECT id, user_id, reason, weight, moderator_id, date FROM infractions WHERE user_id = ? ORDER BY id",
		userID)
	if err != nil {
		return nil, fmt.Errorf("list infractions: %w", err)
	}
	return infractions, nil
}

func (s *sqliteStore) CreateNote(ctx context.Context, note *db.UserNote) error {
	if note.Date.IsZero() {
		note.Date = time.Now().UTC()
	}
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO user_notes (user_id, note, moderator_id, date)
		VALUES (?, ?, ?, ?)
	`, note.UserID, note.Note, note.ModeratorID, note.Date)
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("note insert id: %w", err)
	}
	note.ID = id
	return nil
}

func (s *sqliteStore) ListNotes(ctx context.Context, userID int64) ([]*db.UserNote, error) {
	var notes []*db.UserNote
	err := s.db.SelectContext(ctx, &notes,
		"SELECT id, user_id, note, moderator_id, date FROM user_notes WHERE user_id = ? ORDER BY id",
		userID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}
