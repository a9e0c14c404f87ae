package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/hexvault/warden/internal/config"
	"github.com/hexvault/warden/internal/db"
	"github.com/hexvault/warden/internal/duration"
	"github.com/hexvault/warden/internal/observability"
	"github.com/hexvault/warden/internal/platform"
	"github.com/hexvault/warden/internal/scheduler"
)

// MuteService mirrors the ban lifecycle without the approval workflow: a
// mute is a role at the platform boundary plus a row whose presence is the
// muted state.
type MuteService struct {
	store db.Store
	guild platform.Guild
	sched *scheduler.Scheduler
	roles *config.Roles

	botUserID     int64
	defaultReason string

	now func() time.Time
}

type MuteRequest struct {
	Target     platform.UserRef
	Duration   string
	Reason     string
	AuthorID   int64
	AuthorName string
}

func NewMuteService(
	store db.Store,
	guild platform.Guild,
	sched *scheduler.Scheduler,
	roles *config.Roles,
	cfg config.Config,
) *MuteService {
	return &MuteService{
		store:         store,
		guild:         guild,
		sched:         sched,
		roles:         roles,
		botUserID:     cfg.BotUserID,
		defaultReason: cfg.DefaultBanReason,
		now:           time.Now,
	}
}

func (s *MuteService) getLogEntry() *log.Entry {
	return log.WithField("context", "mute_service")
}

func (s *MuteService) Mute(ctx context.Context, req MuteRequest) (*Response, error) {
	target, err := req.Target.Resolve(ctx, s.guild)
	if err != nil {
		return nil, fmt.Errorf("resolve mute target: %w", err)
	}
	if checked := checkTarget(target, req.AuthorID, s.roles, "mute"); checked != nil {
		observability.RecordSanction("mute", string(checked.Code))
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
		observability.RecordSanction("mute", string(OutcomeInvalidDuration))
		return &Response{Message: err.Error(), DeleteAfter: 15 * time.Second, Code: OutcomeInvalidDuration}, nil
	}

	existing, err := s.store.GetMute(ctx, target.ID)
	if err != nil {
		return nil, fmt.Errorf("get mute: %w", err)
	}
	if existing != nil {
		observability.RecordSanction("mute", string(OutcomeExists))
		return &Response{
			Message: fmt.Sprintf("Member %s (%d) is already muted until %s (UTC).",
				target.DisplayName, target.ID, existing.ExpiresAt().UTC().Format(timeLayout)),
			Code:  OutcomeExists,
			BanID: existing.ID,
		}, nil
	}

	if err := s.guild.AddRole(ctx, target.ID, s.roles.Muted); err != nil {
		observability.RecordSanction("mute", string(OutcomeFailed))
		if errors.Is(err, platform.ErrForbidden) {
			return &Response{Message: "You do not have the proper permissions to mute.", Code: OutcomeFailed}, nil
		}
		return nil, fmt.Errorf("add muted role: %w", err)
	}

	mute := &db.Mute{
		UserID:      target.ID,
		Reason:      reason,
		ModeratorID: authorID,
		UnmuteTime:  expiry.Unix(),
	}
	if err := s.store.CreateMute(ctx, mute); err != nil {
		return nil, fmt.Errorf("create mute: %w", err)
	}
	s.scheduleUnmute(target.ID, expiry)

	s.getLogEntry().WithFields(log.Fields{
		"user_id":     target.ID,
		"unmute_time": mute.UnmuteTime,
	}).Info("member muted")
	observability.RecordSanction("mute", string(OutcomeMuted))
	return &Response{
		Message: fmt.Sprintf("Member %s (%d) has been muted until %s (UTC).",
			target.DisplayName, target.ID, expiry.UTC().Format(timeLayout)),
		Code:  OutcomeMuted,
		BanID: mute.ID,
	}, nil
}

// Unmute removes the platform effect and deletes the row. Manual callers
// see a missing row as ErrNotMuted; the sweep treats it as a benign race.
func (s *MuteService) Unmute(ctx context.Context, userID int64, manual bool) (*Response, error) {
	entry := s.getLogEntry().WithField("method", "Unmute").WithField("user_id", userID)

	if err := s.guild.RemoveRole(ctx, userID, s.roles.Muted); err != nil && !errors.Is(err, platform.ErrNotFound) {
		return nil, fmt.Errorf("remove muted role: %w", err)
	}

	if err := s.store.DeleteMute(ctx, userID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			if manual {
				return nil, ErrNotMuted
			}
			entry.Debug("no mute row, nothing to lift")
			return &Response{Code: OutcomeUnmuted}, nil
		}
		return nil, fmt.Errorf("delete mute: %w", err)
	}
	if manual {
		s.sched.Cancel(scheduler.Key{Kind: "unmute", UserID: userID})
	}

	entry.Info("user unmuted")
	observability.RecordSanction("unmute", string(OutcomeUnmuted))
	return &Response{
		Message: fmt.Sprintf("User #%d has been unmuted.", userID),
		Code:    OutcomeUnmuted,
	}, nil
}

// ScheduleUnmute registers the delayed unmute for an existing mute row.
func (s *MuteService) ScheduleUnmute(userID int64, runAt time.Time) {
	s.scheduleUnmute(userID, runAt)
}

func (s *MuteService) scheduleUnmute(userID int64, runAt time.Time) {
	s.sched.Schedule(scheduler.Key{Kind: "unmute", UserID: userID}, runAt, func(ctx context.Context) {
		if _, err := s.Unmute(ctx, userID, false); err != nil {
			s.getLogEntry().WithError(err).WithField("user_id", userID).Error("scheduled unmute failed")
		}
	})
}
