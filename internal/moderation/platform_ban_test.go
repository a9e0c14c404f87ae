package moderation

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hexvault/warden/internal/db"
)

func seedBan(t *testing.T, f *banFixture, userID int64, reason string, unbanTime time.Time) *db.Ban {
	t.Helper()

	ban := &db.Ban{
		UserID:      userID,
		Reason:      reason,
		ModeratorID: modUserID,
		UnbanTime:   unbanTime.Unix(),
		Approved:    true,
	}
	if err := f.store.CreateBanWithInfraction(context.Background(), ban, nil); err != nil {
		t.Fatalf("seed ban: %v", err)
	}
	return ban
}

func TestHandlePlatformBanBranches(t *testing.T) {
	t.Parallel()

	const userID = int64(300)

	type seed struct {
		reason string
		expiry time.Duration // relative to fixture clock
	}
	cases := []struct {
		name          string
		seed          *seed // nil means no local ban
		expiry        time.Duration
		wantOutcome   ReconcileOutcome
		wantUnbanTime time.Duration // ignored when wantGone
		wantRetired   bool
	}{
		{
			name:        "absent expired platform ban",
			expiry:      -time.Hour,
			wantOutcome: ReconcileNoAction,
		},
		{
			name:          "absent creates local ban",
			expiry:        48 * time.Hour,
			wantOutcome:   ReconcileCreated,
			wantUnbanTime: 48 * time.Hour,
		},
		{
			name:        "stale platform ban unbanned",
			seed:        &seed{reason: db.PlatformBanReason("cheating"), expiry: 24 * time.Hour},
			expiry:      -time.Minute,
			wantOutcome: ReconcileUnbanned,
			wantRetired: true,
		},
		{
			name:          "platform ban extended",
			seed:          &seed{reason: db.PlatformBanReason("cheating"), expiry: 24 * time.Hour},
			expiry:        72 * time.Hour,
			wantOutcome:   ReconcileExtended,
			wantUnbanTime: 72 * time.Hour,
		},
		{
			name:          "platform ban shorter expiry ignored",
			seed:          &seed{reason: db.PlatformBanReason("cheating"), expiry: 24 * time.Hour},
			expiry:        12 * time.Hour,
			wantOutcome:   ReconcileNoAction,
			wantUnbanTime: 24 * time.Hour,
		},
		{
			name:          "platform ban equal expiry ignored",
			seed:          &seed{reason: db.PlatformBanReason("cheating"), expiry: 24 * time.Hour},
			expiry:        24 * time.Hour,
			wantOutcome:   ReconcileNoAction,
			wantUnbanTime: 24 * time.Hour,
		},
		{
			name:          "moderator ban outlasts platform",
			seed:          &seed{reason: "spam", expiry: 96 * time.Hour},
			expiry:        48 * time.Hour,
			wantOutcome:   ReconcileNoAction,
			wantUnbanTime: 96 * time.Hour,
		},
		{
			name:          "moderator ban overtaken by platform",
			seed:          &seed{reason: "spam", expiry: 24 * time.Hour},
			expiry:        48 * time.Hour,
			wantOutcome:   ReconcileUpdated,
			wantUnbanTime: 48 * time.Hour,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newBanFixture(t, member(userID))
			if tc.seed != nil {
				seedBan(t, f, userID, tc.seed.reason, f.now.Add(tc.seed.expiry))
			}

			outcome, err := f.svc.HandlePlatformBan(context.Background(), PlatformBan{
				UserID:     userID,
				ExpiresAt:  f.now.Add(tc.expiry),
				Reason:     "cheating",
				IssuerName: "platform",
			})
			if err != nil {
				t.Fatalf("reconcile: %v", err)
			}
			if outcome != tc.wantOutcome {
				t.Fatalf("outcome %s want %s", outcome, tc.wantOutcome)
			}

			active, err := f.store.GetActiveBan(context.Background(), userID)
			if err != nil {
				t.Fatalf("get active ban: %v", err)
			}
			if tc.wantRetired {
				if active != nil {
					t.Fatalf("expected retired ban, still active: %+v", active)
				}
				if len(f.guild.unbanned) != 1 || f.guild.unbanned[0] != userID {
					t.Fatalf("platform unban not issued: %v", f.guild.unbanned)
				}
				return
			}
			if tc.wantOutcome == ReconcileNoAction && tc.seed == nil {
				if active != nil {
					t.Fatalf("expired platform ban should not create a row: %+v", active)
				}
				return
			}
			if active == nil {
				t.Fatalf("expected active ban")
			}
			if want := f.now.Add(tc.wantUnbanTime).Unix(); active.UnbanTime != want {
				t.Fatalf("unban_time %d want %d", active.UnbanTime, want)
			}
			if tc.wantOutcome == ReconcileCreated || tc.wantOutcome == ReconcileUpdated {
				if !active.IsPlatformBan() {
					t.Fatalf("reason not tagged as platform provenance: %q", active.Reason)
				}
				if !active.Approved {
					t.Fatalf("platform-sourced ban must be approved")
				}
			}
		})
	}
}

func TestHandlePlatformBanCreatedSideEffects(t *testing.T) {
	t.Parallel()

	f := newBanFixture(t, member(301))
	outcome, err := f.svc.HandlePlatformBan(context.Background(), PlatformBan{
		UserID:     301,
		ExpiresAt:  f.now.Add(24 * time.Hour),
		Reason:     "griefing",
		IssuerName: "platform",
	})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if outcome != ReconcileCreated {
		t.Fatalf("outcome %s", outcome)
	}
	if len(f.guild.banned) != 1 || f.guild.banned[0] != 301 {
		t.Fatalf("platform ban call missing: %v", f.guild.banned)
	}
	if f.sched.Len() != 1 {
		t.Fatalf("expected scheduled unban, got %d", f.sched.Len())
	}

	infractions, err := f.store.ListInfractions(context.Background(), 301)
	if err != nil {
		t.Fatalf("list infractions: %v", err)
	}
	if len(infractions) != 1 {
		t.Fatalf("expected 1 infraction, got %d", len(infractions))
	}
	if infractions[0].Weight != 0 {
		t.Fatalf("platform infraction weight %d, want 0", infractions[0].Weight)
	}
	if !strings.Contains(infractions[0].Reason, "Previously banned for:") {
		t.Fatalf("unexpected infraction reason: %q", infractions[0].Reason)
	}

	if len(f.guild.notices[botLogsChan]) != 1 {
		t.Fatalf("expected bot log notice, got %v", f.guild.notices)
	}
}

func TestHandlePlatformBanExtendReschedules(t *testing.T) {
	t.Parallel()

	f := newBanFixture(t, member(302))
	seedBan(t, f, 302, db.PlatformBanReason("cheating"), f.now.Add(24*time.Hour))

	if _, err := f.svc.HandlePlatformBan(context.Background(), PlatformBan{
		UserID:    302,
		ExpiresAt: f.now.Add(96 * time.Hour),
		Reason:    "cheating",
	}); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if f.sched.Len() != 1 {
		t.Fatalf("extend should hold a single scheduled unban, got %d", f.sched.Len())
	}

	// A second identical report must not stack timers.
	if _, err := f.svc.HandlePlatformBan(context.Background(), PlatformBan{
		UserID:    302,
		ExpiresAt: f.now.Add(120 * time.Hour),
		Reason:    "cheating",
	}); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if f.sched.Len() != 1 {
		t.Fatalf("reschedule stacked timers: %d", f.sched.Len())
	}
}
