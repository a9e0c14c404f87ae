package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/hexvault/warden/internal/config"
	"github.com/hexvault/warden/internal/identity"
	"github.com/hexvault/warden/internal/moderation"
	"github.com/hexvault/warden/internal/platform"
)

// Result is the handler verdict rendered into the HTTP response.
type Result struct {
	Success bool   `json:"success"`
	Action  string `json:"action,omitempty"`
}

// ErrUnknownEvent surfaces as a 400 at the transport layer.
var ErrUnknownEvent = errors.New("unknown webhook event")

// AccountHandler processes account-platform deliveries: link/unlink driving
// identity sync, platform bans driving reconciliation.
type AccountHandler struct {
	bans     *moderation.BanService
	identity *identity.Synchronizer
	guild    platform.Guild
	roles    *config.Roles
	channels config.Channels
}

func NewAccountHandler(
	bans *moderation.BanService,
	sync *identity.Synchronizer,
	guild platform.Guild,
	roles *config.Roles,
	channels config.Channels,
) *AccountHandler {
	return &AccountHandler{
		bans:     bans,
		identity: sync,
		guild:    guild,
		roles:    roles,
		channels: channels,
	}
}

func (h *AccountHandler) getLogEntry() *log.Entry {
	return log.WithField("context", "webhook_account")
}

// CanHandle reports whether this handler owns the platform.
func (h *AccountHandler) CanHandle(p Platform) bool {
	return p == PlatformMain
}

func (h *AccountHandler) Handle(ctx context.Context, body *Body) (*Result, error) {
	switch body.Event {
	case EventAccountLinked:
		return h.accountLinked(ctx, body)
	case EventAccountUnlinked, EventAccountDeleted:
		return h.accountUnlinked(ctx, body)
	case EventAccountBanned:
		return h.accountBanned(ctx, body)
	case EventNameChange:
		return h.nameChange(ctx, body)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, body.Event)
	}
}

func (h *AccountHandler) accountLinked(ctx context.Context, body *Body) (*Result, error) {
	userID, err := body.Int64Property("discord_id")
	if err != nil {
		return nil, err
	}
	accountID, err := body.StringProperty("account_id")
	if err != nil {
		return nil, err
	}

	attrs := identity.Attributes{
		AccountName: body.optionalString("name"),
		Rank:        body.optionalString("rank"),
		VIP:         body.BoolProperty("vip"),
		VIPPlus:     body.BoolProperty("dedivip"),
	}
	if pos, err := body.Int64Property("hof_position"); err == nil {
		attrs.HOFPosition = int(pos)
	}
	// machines/challenges arrive as authored-content counts.
	if n, err := body.Int64Property("machines"); err == nil {
		attrs.BoxCreator = n > 0
	}
	if n, err := body.Int64Property("challenges"); err == nil {
		attrs.ChallengeCreator = n > 0
	}

	if _, err := h.identity.Sync(ctx, userID, attrs); err != nil {
		return nil, fmt.Errorf("identity sync: %w", err)
	}

	// Verify-log is informational only.
	if h.channels.VerifyLog != 0 {
		text := fmt.Sprintf("Account linked: %s -> %d", accountID, userID)
		if err := h.guild.Notify(ctx, h.channels.VerifyLog, text); err != nil {
			h.getLogEntry().WithError(err).Warn("cant post to verify log channel")
		}
	}

	h.getLogEntry().WithFields(log.Fields{
		"account_id": accountID,
		"user_id":    userID,
	}).Info("account linked")
	return &Result{Success: true, Action: "linked"}, nil
}

func (h *AccountHandler) accountUnlinked(ctx context.Context, body *Body) (*Result, error) {
	userID, err := body.Int64Property("discord_id")
	if err != nil {
		return nil, err
	}

	if h.roles.Verified != 0 {
		if err := h.guild.RemoveRole(ctx, userID, h.roles.Verified); err != nil && !errors.Is(err, platform.ErrNotFound) {
			return nil, fmt.Errorf("remove verified role: %w", err)
		}
	}

	h.getLogEntry().WithField("user_id", userID).Info("account unlinked")
	return &Result{Success: true, Action: "unlinked"}, nil
}

func (h *AccountHandler) accountBanned(ctx context.Context, body *Body) (*Result, error) {
	userID, err := body.Int64Property("discord_id")
	if err != nil {
		return nil, err
	}
	expiresRaw, err := body.StringProperty("expires_at")
	if err != nil {
		return nil, err
	}
	expiresAt, err := time.Parse(time.RFC3339, expiresRaw)
	if err != nil {
		return nil, fmt.Errorf("parse expires_at: %w", err)
	}

	issuer := body.optionalString("created_by")
	if issuer == "" {
		issuer = "System"
	}
	evidence := body.optionalString("notes")
	if evidence == "" {
		evidence = "N/A"
	}

	outcome, err := h.bans.HandlePlatformBan(ctx, moderation.PlatformBan{
		UserID:     userID,
		ExpiresAt:  expiresAt,
		Reason:     body.optionalString("reason"),
		Evidence:   evidence,
		IssuerName: issuer,
	})
	if err != nil {
		return nil, fmt.Errorf("reconcile platform ban: %w", err)
	}
	return &Result{Success: true, Action: string(outcome)}, nil
}

func (h *AccountHandler) nameChange(ctx context.Context, body *Body) (*Result, error) {
	userID, err := body.Int64Property("discord_id")
	if err != nil {
		return nil, err
	}
	name, err := body.StringProperty("name")
	if err != nil {
		return nil, err
	}

	if err := h.guild.SetNickname(ctx, userID, name); err != nil {
		return nil, fmt.Errorf("set nickname: %w", err)
	}
	return &Result{Success: true, Action: "renamed"}, nil
}
