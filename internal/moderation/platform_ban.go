package moderation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hexvault/warden/internal/db"
	"github.com/hexvault/warden/internal/observability"
	"github.com/hexvault/warden/internal/scheduler"
)

// ReconcileOutcome tags which reconciliation branch fired. Callers must log
// it; the decision tree is deliberately observable.
type ReconcileOutcome string

const (
	ReconcileCreated  ReconcileOutcome = "created"
	ReconcileExtended ReconcileOutcome = "extended"
	ReconcileUnbanned ReconcileOutcome = "unbanned"
	ReconcileUpdated  ReconcileOutcome = "updated"
	ReconcileNoAction ReconcileOutcome = "no_action"
)

// PlatformBan is a ban reported by the external account platform.
type PlatformBan struct {
	UserID     int64
	ExpiresAt  time.Time
	Reason     string
	Evidence   string
	IssuerName string
}

// HandlePlatformBan reconciles an externally-sourced ban against local
// state. Branches, in precedence order:
//
//   - no local ban: create one, tagged with the platform provenance prefix
//     (skipped when the platform ban itself is already expired);
//   - local platform ban, platform expiry in the past: stale, unban now;
//   - local platform ban, platform expiry later: extend the stored expiry;
//   - local moderator ban, local expiry >= platform expiry: no action,
//     moderator intent outlasts the platform;
//   - local moderator ban, platform expiry later: platform authority takes
//     over, expiry and reason are rewritten.
func (s *BanService) HandlePlatformBan(ctx context.Context, pb PlatformBan) (ReconcileOutcome, error) {
	now := s.now()
	reason := db.PlatformBanReason(pb.Reason)

	existing, err := s.store.GetActiveBan(ctx, pb.UserID)
	if err != nil {
		return "", fmt.Errorf("get active ban: %w", err)
	}

	var outcome ReconcileOutcome
	switch {
	case existing == nil:
		if !pb.ExpiresAt.After(now) {
			// Nothing to create from an already-expired platform ban.
			outcome = ReconcileNoAction
			break
		}
		ban := &db.Ban{
			UserID:      pb.UserID,
			Reason:      reason,
			ModeratorID: s.botUserID,
			UnbanTime:   pb.ExpiresAt.Unix(),
			Approved:    true,
		}
		infraction := &db.Infraction{
			UserID:      pb.UserID,
			Reason:      fmt.Sprintf("Previously banned for: %s", reason),
			Weight:      0,
			ModeratorID: s.botUserID,
		}
		if err := s.store.CreateBanWithInfraction(ctx, ban, infraction); err != nil {
			return "", fmt.Errorf("create platform ban: %w", err)
		}
		if err := s.guild.Ban(ctx, pb.UserID, reason); err != nil {
			return "", fmt.Errorf("platform ban call: %w", err)
		}
		s.scheduleUnban(pb.UserID, pb.ExpiresAt)
		outcome = ReconcileCreated

	case existing.IsPlatformBan():
		switch {
		case !pb.ExpiresAt.After(now):
			if _, err := s.Unban(ctx, pb.UserID, false); err != nil {
				return "", fmt.Errorf("unban stale platform ban: %w", err)
			}
			outcome = ReconcileUnbanned
		case pb.ExpiresAt.Unix() > existing.UnbanTime:
			existing.UnbanTime = pb.ExpiresAt.Unix()
			if err := s.store.UpdateBan(ctx, existing); err != nil {
				return "", fmt.Errorf("extend platform ban: %w", err)
			}
			s.scheduleUnban(pb.UserID, pb.ExpiresAt)
			outcome = ReconcileExtended
		default:
			outcome = ReconcileNoAction
		}

	default:
		// Locally-issued moderator ban.
		if existing.UnbanTime >= pb.ExpiresAt.Unix() {
			outcome = ReconcileNoAction
			break
		}
		existing.UnbanTime = pb.ExpiresAt.Unix()
		existing.Reason = reason
		existing.Approved = true
		if err := s.store.UpdateBan(ctx, existing); err != nil {
			return "", fmt.Errorf("update ban from platform: %w", err)
		}
		s.scheduleUnban(pb.UserID, pb.ExpiresAt)
		outcome = ReconcileUpdated
	}

	s.audit.Info("platform ban reconciled",
		zap.Int64("user_id", pb.UserID),
		zap.String("outcome", string(outcome)),
		zap.Time("expires_at", pb.ExpiresAt),
		zap.String("issuer", pb.IssuerName),
	)
	observability.RecordReconcileOutcome(string(outcome))
	s.notifyBotLog(ctx, fmt.Sprintf(
		"Platform ban for member %d reconciled: %s (expires %s UTC, issuer %s).",
		pb.UserID, outcome, pb.ExpiresAt.UTC().Format(timeLayout), pb.IssuerName,
	))
	return outcome, nil
}

func (s *BanService) notifyBotLog(ctx context.Context, text string) {
	if s.channels.BotLogs == 0 {
		return
	}
	if err := s.guild.Notify(ctx, s.channels.BotLogs, text); err != nil {
		s.getLogEntry().WithError(err).Warn("cant post to bot log channel")
	}
}

// CancelScheduled drops any pending scheduled unban for the user. Exposed
// for callers that retire bans outside the usual paths.
func (s *BanService) CancelScheduled(userID int64) {
	s.sched.Cancel(scheduler.Key{Kind: "unban", UserID: userID})
}
