package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/hexvault/warden/internal/config"
	"github.com/hexvault/warden/internal/platform"
)

// Attributes is the platform-side account state carried by a link event.
type Attributes struct {
	AccountName      string
	Rank             string
	HOFPosition      int // 0 means unranked
	VIP              bool
	VIPPlus          bool
	BoxCreator       bool
	ChallengeCreator bool
}

// Synchronizer reconciles a member's roles and nickname with their linked
// platform account. Rank and leaderboard roles are exclusive groups: the
// whole group is stripped and only the currently-earned role re-assigned.
type Synchronizer struct {
	guild platform.Guild
	roles *config.Roles
}

func NewSynchronizer(guild platform.Guild, roles *config.Roles) *Synchronizer {
	return &Synchronizer{guild: guild, roles: roles}
}

func (s *Synchronizer) getLogEntry() *log.Entry {
	return log.WithField("context", "identity")
}

// staff-tier platform ranks never map to a guild rank role.
var excludedRanks = map[string]struct{}{
	"deleted":    {},
	"moderator":  {},
	"ambassador": {},
	"admin":      {},
	"staff":      {},
}

// Sync applies the role diff and nickname for the member. Returns the role
// IDs that ended up assigned. Nickname failures are logged, not fatal.
func (s *Synchronizer) Sync(ctx context.Context, userID int64, attrs Attributes) ([]int64, error) {
	entry := s.getLogEntry().WithField("user_id", userID)

	member, err := s.guild.Member(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lookup member: %w", err)
	}

	assign := s.rolesToAssign(attrs)

	held := make(map[int64]struct{}, len(member.RoleIDs))
	for _, id := range member.RoleIDs {
		held[id] = struct{}{}
	}
	keep := make(map[int64]struct{}, len(assign))
	for _, id := range assign {
		keep[id] = struct{}{}
	}

	// Exclusive groups are cleared unless re-earned this sync.
	for _, id := range s.roles.RankAndPositionIDs() {
		_, holds := held[id]
		_, kept := keep[id]
		if holds && !kept {
			if err := s.guild.RemoveRole(ctx, userID, id); err != nil {
				return nil, fmt.Errorf("remove role %d: %w", id, err)
			}
		}
	}

	var assigned []int64
	for _, id := range assign {
		if _, holds := held[id]; holds {
			assigned = append(assigned, id)
			continue
		}
		if err := s.guild.AddRole(ctx, userID, id); err != nil {
			return nil, fmt.Errorf("add role %d: %w", id, err)
		}
		assigned = append(assigned, id)
	}

	if attrs.AccountName != "" && member.DisplayName != attrs.AccountName {
		if err := s.guild.SetNickname(ctx, userID, attrs.AccountName); err != nil {
			if errors.Is(err, platform.ErrForbidden) {
				entry.WithError(err).Warn("cant update nickname")
			} else {
				return nil, fmt.Errorf("set nickname: %w", err)
			}
		}
	}

	entry.WithField("assigned", len(assigned)).Info("identity synced")
	return assigned, nil
}

func (s *Synchronizer) rolesToAssign(attrs Attributes) []int64 {
	var assign []int64
	appendRole := func(id int64) {
		if id != 0 {
			assign = append(assign, id)
		}
	}

	appendRole(s.roles.Verified)

	rank := normalizeRank(attrs.Rank)
	if _, excluded := excludedRanks[rank]; rank != "" && !excluded {
		appendRole(s.roles.Ranks[rank])
	}
	if bracket := hofBracket(attrs.HOFPosition); bracket != "" {
		appendRole(s.roles.Positions[bracket])
	}
	if attrs.VIP {
		appendRole(s.roles.Subscriptions["vip"])
	}
	if attrs.VIPPlus {
		appendRole(s.roles.Subscriptions["vip_plus"])
	}
	if attrs.BoxCreator {
		appendRole(s.roles.Creators["box"])
	}
	if attrs.ChallengeCreator {
		appendRole(s.roles.Creators["challenge"])
	}
	return assign
}

func normalizeRank(rank string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(rank)), " ", "_")
}

// hofBracket maps a leaderboard position onto its role bucket; positions
// past 100 carry no role.
func hofBracket(position int) string {
	switch {
	case position <= 0:
		return ""
	case position == 1:
		return "rank_one"
	case position <= 5:
		return "rank_five"
	case position <= 10:
		return "rank_ten"
	case position <= 25:
		return "rank_twentyfive"
	case position <= 50:
		return "rank_fifty"
	case position <= 100:
		return "rank_hundred"
	default:
		return ""
	}
}
