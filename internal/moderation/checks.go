package moderation

import (
	"fmt"

	"github.com/hexvault/warden/internal/config"
	"github.com/hexvault/warden/internal/platform"
)

// checkTarget enforces the shared exclusions: staff members, bot accounts
// and self-sanctions are rejected before any record is touched. Returns nil
// when the target is sanctionable.
func checkTarget(target *platform.Member, authorID int64, roles *config.Roles, verb string) *Response {
	if roles.IsStaff(target.RoleIDs) {
		return &Response{
			Message: fmt.Sprintf("You cannot %s another staff member.", verb),
			Code:    OutcomeRejected,
		}
	}
	if target.IsBot {
		return &Response{
			Message: fmt.Sprintf("You cannot %s a bot.", verb),
			Code:    OutcomeRejected,
		}
	}
	if authorID != 0 && authorID == target.ID {
		return &Response{
			Message: fmt.Sprintf("You cannot %s yourself.", verb),
			Code:    OutcomeRejected,
		}
	}
	return nil
}
