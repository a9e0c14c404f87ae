package db

import (
	"strings"
	"time"
)

const platformBanPrefix = "Platform Ban - "

type (
	// Ban is the durable record of a guild ban. Rows are never hard-deleted
	// on unban; the Unbanned flag retires them. A denied approval deletes
	// the row instead, as an explicit moderator override.
	Ban struct {
		ID          int64     `db:"id"`
		UserID      int64     `db:"user_id"`
		Reason      string    `db:"reason"`
		ModeratorID int64     `db:"moderator_id"`
		UnbanTime   int64     `db:"unban_time"`
		Approved    bool      `db:"approved"`
		Unbanned    bool      `db:"unbanned"`
		Timestamp   time.Time `db:"timestamp"`
	}

	// Mute has no retired state: presence of the row is the muted state.
	Mute struct {
		ID          int64  `db:"id"`
		UserID      int64  `db:"user_id"`
		Reason      string `db:"reason"`
		ModeratorID int64  `db:"moderator_id"`
		UnmuteTime  int64  `db:"unmute_time"`
	}

	// Infraction is an append-only strike; weight 0 marks a plain warning.
	Infraction struct {
		ID          int64     `db:"id"`
		UserID      int64     `db:"user_id"`
		Reason      string    `db:"reason"`
		Weight      int       `db:"weight"`
		ModeratorID int64     `db:"moderator_id"`
		Date        time.Time `db:"date"`
	}

	// UserNote is a free-text moderator annotation, not a sanction.
	UserNote struct {
		ID          int64     `db:"id"`
		UserID      int64     `db:"user_id"`
		Note        string    `db:"note"`
		ModeratorID int64     `db:"moderator_id"`
		Date        time.Time `db:"date"`
	}
)

// ExpiresAt returns the ban expiry as wall-clock time.
func (b *Ban) ExpiresAt() time.Time {
	return time.Unix(b.UnbanTime, 0)
}

// IsPlatformBan reports whether the ban was sourced from the external
// account platform rather than issued by a guild moderator.
func (b *Ban) IsPlatformBan() bool {
	return strings.HasPrefix(b.Reason, platformBanPrefix)
}

// PlatformBanReason prefixes reason with the provenance marker checked by
// IsPlatformBan.
func PlatformBanReason(reason string) string {
	if strings.HasPrefix(reason, platformBanPrefix) {
		return reason
	}
	return platformBanPrefix + reason
}

// ExpiresAt returns the mute expiry as wall-clock time.
func (m *Mute) ExpiresAt() time.Time {
	return time.Unix(m.UnmuteTime, 0)
}
