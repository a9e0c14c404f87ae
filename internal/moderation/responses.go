package moderation

import (
	"errors"
	"time"
)

var (
	// ErrNotBanned is returned by a manual unban when no active ban record
	// exists. The sweep path treats the same condition as benign.
	ErrNotBanned = errors.New("no active ban found")

	// ErrNotMuted is the mute-side equivalent.
	ErrNotMuted = errors.New("no mute found")
)

// Outcome is the machine-readable code attached to every terminal response,
// so callers and tests can branch without string-matching messages.
type Outcome string

const (
	OutcomeBanned          Outcome = "banned"
	OutcomePending         Outcome = "pending_approval"
	OutcomeExists          Outcome = "already_exists"
	OutcomeRejected        Outcome = "rejected"
	OutcomeInvalidDuration Outcome = "invalid_duration"
	OutcomeFailed          Outcome = "failed"
	OutcomeUnbanned        Outcome = "unbanned"
	OutcomeApproved        Outcome = "approved"
	OutcomeDenied          Outcome = "denied"
	OutcomeDisputed        Outcome = "disputed"
	OutcomeMuted           Outcome = "muted"
	OutcomeUnmuted         Outcome = "unmuted"
	OutcomeWarned          Outcome = "warned"
	OutcomeNoted           Outcome = "noted"
)

// Response is what the command layer renders back to the moderator.
// DeleteAfter of zero means the message stays.
type Response struct {
	Message     string
	DeleteAfter time.Duration
	Code        Outcome

	// BanID carries the relevant record id where one exists, most notably
	// the conflicting record on OutcomeExists.
	BanID int64
}
