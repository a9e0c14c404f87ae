package db

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")

	// ErrBanExists is returned by CreateBanWithInfraction when the target
	// already has an active ban row. The partial unique index on
	// bans(user_id) WHERE unbanned = 0 raises it, so two concurrent ban
	// attempts cannot both commit.
	ErrBanExists = errors.New("active ban already exists")
)

// Store is the persistence boundary for sanction records. Every call is its
// own unit of work; implementations must be safe for concurrent use.
type Store interface {
	// Bans. CreateBanWithInfraction writes the ban and its weight-0 audit
	// infraction in one transaction and fills in ban.ID.
	GetActiveBan(ctx context.Context, userID int64) (*Ban, error)
	GetBan(ctx context.Context, id int64) (*Ban, error)
	CreateBanWithInfraction(ctx context.Context, ban *Ban, infraction *Infraction) error
	UpdateBan(ctx context.Context, ban *Ban) error
	DeleteBan(ctx context.Context, id int64) error
	ListDueBans(ctx context.Context, before time.Time) ([]*Ban, error)

	// Mutes.
	GetMute(ctx context.Context, userID int64) (*Mute, error)
	CreateMute(ctx context.Context, mute *Mute) error
	DeleteMute(ctx context.Context, userID int64) error
	ListDueMutes(ctx context.Context, before time.Time) ([]*Mute, error)

	// Infractions and notes.
	CreateInfraction(ctx context.Context, infraction *Infraction) error
	DeleteInfraction(ctx context.Context, id int64) error
	ListInfractions(ctx context.Context, userID int64) ([]*Infraction, error)
	CreateNote(ctx context.Context, note *UserNote) error
	ListNotes(ctx context.Context, userID int64) ([]*UserNote, error)

	Close() error
}
