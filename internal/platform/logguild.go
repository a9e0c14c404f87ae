package platform

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// LogGuild is a dry-run Guild: every action is logged and reported
// successful, members resolve to synthetic records. It is the default
// client until a real chat connector is configured, which keeps the store,
// scheduler and webhook surface fully operational in the meantime.
type LogGuild struct{}

func NewLogGuild() *LogGuild { return &LogGuild{} }

func (g *LogGuild) getLogEntry() *log.Entry {
	return log.WithField("context", "dryrun_guild")
}

func (g *LogGuild) Ban(ctx context.Context, userID int64, reason string) error {
	g.getLogEntry().WithFields(log.Fields{"user_id": userID, "reason": reason}).Info("ban")
	return nil
}

func (g *LogGuild) Unban(ctx context.Context, userID int64) error {
	g.getLogEntry().WithField("user_id", userID).Info("unban")
	return nil
}

func (g *LogGuild) AddRole(ctx context.Context, userID, roleID int64) error {
	g.getLogEntry().WithFields(log.Fields{"user_id": userID, "role_id": roleID}).Info("add role")
	return nil
}

func (g *LogGuild) RemoveRole(ctx context.Context, userID, roleID int64) error {
	g.getLogEntry().WithFields(log.Fields{"user_id": userID, "role_id": roleID}).Info("remove role")
	return nil
}

func (g *LogGuild) SetNickname(ctx context.Context, userID int64, nick string) error {
	g.getLogEntry().WithFields(log.Fields{"user_id": userID, "nick": nick}).Info("set nickname")
	return nil
}

func (g *LogGuild) SendDM(ctx context.Context, userID int64, text string) error {
	g.getLogEntry().WithField("user_id", userID).Info("send dm")
	return nil
}

func (g *LogGuild) Member(ctx context.Context, userID int64) (*Member, error) {
	name := fmt.Sprintf("user-%d", userID)
	return &Member{ID: userID, Name: name, DisplayName: name}, nil
}

func (g *LogGuild) Notify(ctx context.Context, channelID int64, text string) error {
	g.getLogEntry().WithField("channel_id", channelID).Info(text)
	return nil
}
