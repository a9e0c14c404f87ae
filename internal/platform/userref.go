package platform

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// UserRef is a reference to a user that may arrive in several shapes: a raw
// ID, a mention string ("<@1234>"), or an already-resolved member. Exactly
// one field is set.
type UserRef struct {
	id       int64
	mention  string
	resolved *Member
}

func RefByID(id int64) UserRef { return UserRef{id: id} }

func RefByMention(mention string) UserRef { return UserRef{mention: mention} }

func RefResolved(member *Member) UserRef { return UserRef{resolved: member} }

// UserID returns the referenced ID without hitting the platform. Mention
// refs are parsed locally.
func (r UserRef) UserID() (int64, error) {
	switch {
	case r.resolved != nil:
		return r.resolved.ID, nil
	case r.mention != "":
		return parseMention(r.mention)
	case r.id != 0:
		return r.id, nil
	}
	return 0, fmt.Errorf("empty user reference")
}

// Resolve produces a full Member, fetching from the guild unless the ref
// already carries one.
func (r UserRef) Resolve(ctx context.Context, guild Guild) (*Member, error) {
	if r.resolved != nil {
		return r.resolved, nil
	}
	id, err := r.UserID()
	if err != nil {
		return nil, err
	}
	return guild.Member(ctx, id)
}

func parseMention(mention string) (int64, error) {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(mention, "<@"), ">")
	trimmed = strings.TrimPrefix(trimmed, "!")
	id, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse mention %q: %w", mention, err)
	}
	return id, nil
}
