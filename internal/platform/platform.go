// Package platform is the boundary to the chat platform hosting the guild.
// The moderation core only ever talks to these interfaces; the concrete
// transport lives outside it.
package platform

import (
	"context"

	"github.com/pkg/errors"
)

var (
	// ErrForbidden marks a permission failure at the platform boundary.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound marks a missing member, ban entry or channel.
	ErrNotFound = errors.New("not found")
)

// Member is the guild-side view of a user.
type Member struct {
	ID          int64
	Name        string
	DisplayName string
	RoleIDs     []int64
	IsBot       bool
}

// Guild exposes the membership and messaging effects the moderation core
// needs. Every call may fail with ErrForbidden or ErrNotFound; anything else
// is a generic transport failure.
type Guild interface {
	Ban(ctx context.Context, userID int64, reason string) error
	Unban(ctx context.Context, userID int64) error
	AddRole(ctx context.Context, userID, roleID int64) error
	RemoveRole(ctx context.Context, userID, roleID int64) error
	SetNickname(ctx context.Context, userID int64, nick string) error
	SendDM(ctx context.Context, userID int64, text string) error
	Member(ctx context.Context, userID int64) (*Member, error)

	// Notify posts to a guild channel. It is fire and forget: callers log
	// failures and never propagate them.
	Notify(ctx context.Context, channelID int64, text string) error
}
