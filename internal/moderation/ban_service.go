package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"github.com/hexvault/warden/internal/config"
	"github.com/hexvault/warden/internal/db"
	"github.com/hexvault/warden/internal/duration"
	"github.com/hexvault/warden/internal/observability"
	"github.com/hexvault/warden/internal/platform"
	"github.com/hexvault/warden/internal/scheduler"
)

const timeLayout = "2006-01-02 15:04:05"

// BanService orchestrates the ban lifecycle: creation, the approval
// workflow for temporary bans, platform-ban reconciliation and unban. It
// holds no per-user state; everything is re-derived from the store.
type BanService struct {
	store    db.Store
	guild    platform.Guild
	sched    *scheduler.Scheduler
	roles    *config.Roles
	channels config.Channels

	botUserID     int64
	guildName     string
	defaultReason string

	now   func() time.Time
	audit *zap.Logger
}

type BanRequest struct {
	Target        platform.UserRef
	Duration      string
	Reason        string
	Evidence      string
	AuthorID      int64
	AuthorName    string
	NeedsApproval bool
}

func NewBanService(
	store db.Store,
	guild platform.Guild,
	sched *scheduler.Scheduler,
	roles *config.Roles,
	cfg config.Config,
	guildName string,
) *BanService {
	return &BanService{
		store:         store,
		guild:         guild,
		sched:         sched,
		roles:         roles,
		channels:      cfg.Channels,
		botUserID:     cfg.BotUserID,
		guildName:     guildName,
		defaultReason: cfg.DefaultBanReason,
		now:           time.Now,
		audit:         observability.AuditLogger(),
	}
}

func (s *BanService) getLogEntry() *log.Entry {
	return log.WithField("context", "ban_service")
}

// Ban issues a new ban. The record and its audit infraction are committed
// before the platform call on purpose: if the platform call fails, the
// sweep can still reconcile the orphaned record later.
func (s *BanService) Ban(ctx context.Context, req BanRequest) (*Response, error) {
	entry := s.getLogEntry().WithField("method", "Ban")

	target, err := req.Target.Resolve(ctx, s.guild)
	if err != nil {
		return nil, fmt.Errorf("resolve ban target: %w", err)
	}
	if checked := checkTarget(target, req.AuthorID, s.roles, "ban"); checked != nil {
		observability.RecordSanction("ban", string(checked.Code))
		return checked, nil
	}

	reason := req.Reason
	if reason == "" {
		reason = s.defaultReason
	}
	authorID := req.AuthorID
	if authorID == 0 {
		authorID = s.botUserID
	}

	expiry, err := duration.Validate(req.Duration, s.now())
	if err != nil {
		observability.RecordSanction("ban", string(OutcomeInvalidDuration))
		return &Response{Message: err.Error(), DeleteAfter: 15 * time.Second, Code: OutcomeInvalidDuration}, nil
	}
	endDate := expiry.UTC().Format(timeLayout)

	ban := &db.Ban{
		UserID:      target.ID,
		Reason:      reason,
		ModeratorID: authorID,
		UnbanTime:   expiry.Unix(),
		Approved:    !req.NeedsApproval,
	}
	infraction := &db.Infraction{
		UserID:      target.ID,
		Reason:      fmt.Sprintf("Previously banned for: %s", reason),
		Weight:      0,
		ModeratorID: authorID,
	}
	if err := s.store.CreateBanWithInfraction(ctx, ban, infraction); err != nil {
		if errors.Is(err, db.ErrBanExists) {
			existing, lookupErr := s.store.GetActiveBan(ctx, target.ID)
			if lookupErr != nil {
				return nil, fmt.Errorf("lookup conflicting ban: %w", lookupErr)
			}
			banID := int64(0)
			if existing != nil {
				banID = existing.ID
			}
			observability.RecordSanction("ban", string(OutcomeExists))
			return &Response{
				Message: fmt.Sprintf("A ban with id %d already exists for member %s (%d).", banID, target.DisplayName, target.ID),
				Code:    OutcomeExists,
				BanID:   banID,
			}, nil
		}
		return nil, fmt.Errorf("create ban: %w", err)
	}

	// DM before banning, while a shared guild still allows it.
	dmOK := s.dmBannedMember(ctx, target, endDate, reason)

	if err := s.guild.Ban(ctx, target.ID, reason); err != nil {
		entry.WithError(err).WithFields(log.Fields{
			"ban_requestor": req.AuthorName,
			"ban_receiver":  target.ID,
		}).Warn("platform ban call failed, record kept for reconciliation")
		observability.RecordSanction("ban", string(OutcomeFailed))
		if errors.Is(err, platform.ErrForbidden) {
			return &Response{Message: "You do not have the proper permissions to ban.", Code: OutcomeFailed, BanID: ban.ID}, nil
		}
		return &Response{Message: "Platform refused the ban request, please retry.", Code: OutcomeFailed, BanID: ban.ID}, nil
	}

	if req.NeedsApproval {
		// Scheduling is deferred until approval: a pending ban must not
		// silently expire before a human confirms it.
		s.postApprovalRequest(ctx, ban, target, req, endDate)
		message := fmt.Sprintf("%s (%d) has been banned until %s (UTC).", target.DisplayName, target.ID, endDate)
		if !dmOK {
			message += " Could not DM banned member due to permission error."
		}
		observability.RecordSanction("ban", string(OutcomePending))
		return &Response{Message: message, Code: OutcomePending, BanID: ban.ID}, nil
	}

	s.scheduleUnban(target.ID, expiry)
	entry.WithFields(log.Fields{
		"ban_requestor": req.AuthorName,
		"ban_receiver":  target.ID,
		"ban_id":        ban.ID,
	}).Info("member banned permanently")

	message := fmt.Sprintf("Member %s has been banned permanently.", target.DisplayName)
	if !dmOK {
		message += "\nCould not DM banned member due to permission error."
	}
	observability.RecordSanction("ban", string(OutcomeBanned))
	return &Response{Message: message, DeleteAfter: 10 * time.Second, Code: OutcomeBanned, BanID: ban.ID}, nil
}

// Approve flips the pending ban to approved and only then registers the
// delayed unban.
func (s *BanService) Approve(ctx context.Context, banID int64) (*Response, error) {
	ban, err := s.store.GetBan(ctx, banID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return &Response{Message: fmt.Sprintf("Ban %d not found.", banID), Code: OutcomeFailed}, nil
		}
		return nil, fmt.Errorf("get ban: %w", err)
	}

	ban.Approved = true
	if err := s.store.UpdateBan(ctx, ban); err != nil {
		return nil, fmt.Errorf("approve ban: %w", err)
	}
	s.scheduleUnban(ban.UserID, ban.ExpiresAt())

	s.audit.Info("ban approved", zap.Int64("ban_id", ban.ID), zap.Int64("user_id", ban.UserID))
	s.notifyMods(ctx, fmt.Sprintf("Ban duration for member %d has been approved.", ban.UserID))
	observability.RecordSanction("ban_decision", string(OutcomeApproved))
	return &Response{
		Message: fmt.Sprintf("Ban %d approved, unban scheduled for %s (UTC).", ban.ID, ban.ExpiresAt().UTC().Format(timeLayout)),
		Code:    OutcomeApproved,
		BanID:   ban.ID,
	}, nil
}

// Deny retracts a pending ban entirely: platform unban plus hard delete of
// the row. This is the only path that removes a ban record.
func (s *BanService) Deny(ctx context.Context, banID int64) (*Response, error) {
	ban, err := s.store.GetBan(ctx, banID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return &Response{Message: fmt.Sprintf("Ban %d not found.", banID), Code: OutcomeFailed}, nil
		}
		return nil, fmt.Errorf("get ban: %w", err)
	}

	if err := s.guild.Unban(ctx, ban.UserID); err != nil && !errors.Is(err, platform.ErrNotFound) {
		return nil, fmt.Errorf("platform unban: %w", err)
	}
	if err := s.store.DeleteBan(ctx, ban.ID); err != nil {
		return nil, fmt.Errorf("delete ban: %w", err)
	}
	s.sched.Cancel(scheduler.Key{Kind: "unban", UserID: ban.UserID})

	s.audit.Info("ban denied", zap.Int64("ban_id", ban.ID), zap.Int64("user_id", ban.UserID))
	s.notifyMods(ctx, fmt.Sprintf("Ban for member %d has been denied and the member has been unbanned.", ban.UserID))
	observability.RecordSanction("ban_decision", string(OutcomeDenied))
	return &Response{
		Message: fmt.Sprintf("Ban %d denied, member %d unbanned.", ban.ID, ban.UserID),
		Code:    OutcomeDenied,
		BanID:   ban.ID,
	}, nil
}

// Dispute replaces the pending duration with a new one and force-approves.
// Re-scheduling under the same key cancels any stale timer.
func (s *BanService) Dispute(ctx context.Context, banID int64, newDuration string) (*Response, error) {
	ban, err := s.store.GetBan(ctx, banID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return &Response{Message: fmt.Sprintf("Cannot dispute ban %d: record not found.", banID), Code: OutcomeFailed}, nil
		}
		return nil, fmt.Errorf("get ban: %w", err)
	}

	expiry, err := duration.Validate(newDuration, s.now())
	if err != nil {
		return &Response{Message: err.Error(), DeleteAfter: 15 * time.Second, Code: OutcomeInvalidDuration}, nil
	}

	ban.UnbanTime = expiry.Unix()
	ban.Approved = true
	if err := s.store.UpdateBan(ctx, ban); err != nil {
		return nil, fmt.Errorf("dispute ban: %w", err)
	}
	s.scheduleUnban(ban.UserID, expiry)

	s.audit.Info("ban disputed",
		zap.Int64("ban_id", ban.ID),
		zap.Int64("user_id", ban.UserID),
		zap.String("new_duration", newDuration),
	)
	s.notifyMods(ctx, fmt.Sprintf(
		"Ban duration for member %d updated to %s. Unban scheduled for %s (UTC).",
		ban.UserID, newDuration, expiry.UTC().Format(timeLayout),
	))
	observability.RecordSanction("ban_decision", string(OutcomeDisputed))
	return &Response{
		Message: fmt.Sprintf("Ban duration updated to %s. The member will be unbanned on %s (UTC).", newDuration, expiry.UTC().Format(timeLayout)),
		Code:    OutcomeDisputed,
		BanID:   ban.ID,
	}, nil
}

// Unban lifts a ban. Manual callers treat a missing active record as an
// error; the sweep and scheduler paths treat it as a benign race outcome.
func (s *BanService) Unban(ctx context.Context, userID int64, manual bool) (*Response, error) {
	entry := s.getLogEntry().WithField("method", "Unban").WithField("user_id", userID)

	ban, err := s.store.GetActiveBan(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get active ban: %w", err)
	}
	if ban == nil {
		if manual {
			// Manual unban implies the caller believes a ban is active;
			// surface the inconsistency instead of swallowing it.
			return nil, ErrNotBanned
		}
		entry.Debug("no active ban, nothing to lift")
		return &Response{Code: OutcomeUnbanned}, nil
	}

	if err := s.guild.Unban(ctx, userID); err != nil {
		switch {
		case errors.Is(err, platform.ErrNotFound):
			// Not currently banned platform-side; still retire the record.
			entry.WithError(err).Warn("platform reports user not banned")
		case errors.Is(err, platform.ErrForbidden):
			return nil, fmt.Errorf("platform unban: %w", err)
		default:
			return nil, fmt.Errorf("platform unban: %w", err)
		}
	}

	ban.Unbanned = true
	if err := s.store.UpdateBan(ctx, ban); err != nil {
		return nil, fmt.Errorf("retire ban: %w", err)
	}
	if manual {
		s.sched.Cancel(scheduler.Key{Kind: "unban", UserID: userID})
	}

	entry.WithField("ban_id", ban.ID).Info("user unbanned")
	observability.RecordSanction("unban", string(OutcomeUnbanned))
	return &Response{
		Message: fmt.Sprintf("User #%d has been unbanned.", userID),
		Code:    OutcomeUnbanned,
		BanID:   ban.ID,
	}, nil
}

// ScheduleUnban registers the delayed unban for an already-persisted ban.
// Used by the sweep; past expiries fire immediately.
func (s *BanService) ScheduleUnban(userID int64, runAt time.Time) {
	s.scheduleUnban(userID, runAt)
}

func (s *BanService) scheduleUnban(userID int64, runAt time.Time) {
	s.sched.Schedule(scheduler.Key{Kind: "unban", UserID: userID}, runAt, func(ctx context.Context) {
		if _, err := s.Unban(ctx, userID, false); err != nil {
			s.getLogEntry().WithError(err).WithField("user_id", userID).Error("scheduled unban failed")
		}
	})
}

func (s *BanService) dmBannedMember(ctx context.Context, target *platform.Member, endDate, reason string) bool {
	text := fmt.Sprintf(
		"You have been banned from %s until %s (UTC). To appeal the ban, please reach out to an Administrator.\nFollowing is the reason given:\n>>> %s\n",
		s.guildName, endDate, reason,
	)
	if err := s.guild.SendDM(ctx, target.ID, text); err != nil {
		s.getLogEntry().WithError(err).WithField("user_id", target.ID).
			Warn("could not DM banned member, proceeding with ban")
		return false
	}
	return true
}

func (s *BanService) postApprovalRequest(ctx context.Context, ban *db.Ban, target *platform.Member, req BanRequest, endDate string) {
	evidence := req.Evidence
	if evidence == "" {
		evidence = "N/A"
	}
	text := fmt.Sprintf(
		"Ban request #%d: %s would like to ban %s (%d) until %s (UTC).\nReason: %s\nEvidence: %s",
		ban.ID, req.AuthorName, target.DisplayName, target.ID, endDate, ban.Reason, evidence,
	)
	s.notifyMods(ctx, text)
}

func (s *BanService) notifyMods(ctx context.Context, text string) {
	if s.channels.SeniorMod == 0 {
		return
	}
	if err := s.guild.Notify(ctx, s.channels.SeniorMod, text); err != nil {
		s.getLogEntry().WithError(err).Warn("cant post to moderation channel")
	}
}
