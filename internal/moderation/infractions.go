package moderation

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/hexvault/warden/internal/db"
	"github.com/hexvault/warden/internal/observability"
	"github.com/hexvault/warden/internal/platform"
)

// ReviewThreshold is the accumulated strike weight at which a user's
// history flags them for review.
const ReviewThreshold = 3

// InfractionService is the append-only warning/strike ledger. Totals are
// summed at read time, so deleting a record automatically lowers them.
type InfractionService struct {
	store db.Store
	guild platform.Guild

	guildName string
}

type InfractionRequest struct {
	Target   platform.UserRef
	Weight   int
	Reason   string
	AuthorID int64
}

// History is the read-side view over a user's ledger.
type History struct {
	Infractions []*db.Infraction
	Notes       []*db.UserNote
	TotalWeight int
	NeedsReview bool
}

func NewInfractionService(store db.Store, guild platform.Guild, guildName string) *InfractionService {
	return &InfractionService{store: store, guild: guild, guildName: guildName}
}

func (s *InfractionService) getLogEntry() *log.Entry {
	return log.WithField("context", "infraction_service")
}

// AddInfraction always succeeds at the storage layer; a failed DM only
// downgrades the returned message.
func (s *InfractionService) AddInfraction(ctx context.Context, req InfractionRequest) (*Response, error) {
	target, err := req.Target.Resolve(ctx, s.guild)
	if err != nil {
		return nil, fmt.Errorf("resolve infraction target: %w", err)
	}

	reason := req.Reason
	if reason == "" {
		reason = "No reason given ..."
	}
	infraction := &db.Infraction{
		UserID:      target.ID,
		Reason:      reason,
		Weight:      req.Weight,
		ModeratorID: req.AuthorID,
	}
	if err := s.store.CreateInfraction(ctx, infraction); err != nil {
		return nil, fmt.Errorf("create infraction: %w", err)
	}

	message := fmt.Sprintf("%s (%d) has been warned with a strike weight of %d.", target.DisplayName, target.ID, req.Weight)
	dmText := fmt.Sprintf(
		"You have been warned on %s with a strike value of %d. After a total value of %d, permanent exclusion from the server may be enforced.\nFollowing is the reason given:\n>>> %s\n",
		s.guildName, req.Weight, ReviewThreshold, reason,
	)
	if err := s.guild.SendDM(ctx, target.ID, dmText); err != nil {
		s.getLogEntry().WithError(err).WithField("user_id", target.ID).
			Warn("could not DM user about infraction")
		message = "Could not DM member due to privacy settings, however the infraction has been recorded."
	}

	observability.RecordSanction("infraction", string(OutcomeWarned))
	return &Response{Message: message, Code: OutcomeWarned, BanID: infraction.ID}, nil
}

// DeleteInfraction removes a single record, e.g. as a manual correction.
func (s *InfractionService) DeleteInfraction(ctx context.Context, id int64) error {
	return s.store.DeleteInfraction(ctx, id)
}

// History sums strike weights at read time and flags the review threshold.
func (s *InfractionService) History(ctx context.Context, userID int64) (*History, error) {
	infractions, err := s.store.ListInfractions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list infractions: %w", err)
	}
	notes, err := s.store.ListNotes(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}

	total := 0
	for _, infraction := range infractions {
		total += infraction.Weight
	}
	return &History{
		Infractions: infractions,
		Notes:       notes,
		TotalWeight: total,
		NeedsReview: total >= ReviewThreshold,
	}, nil
}

// AddNote stores a free-text annotation; notes carry no weight.
func (s *InfractionService) AddNote(ctx context.Context, userID int64, note string, authorID int64) (*Response, error) {
	record := &db.UserNote{UserID: userID, Note: note, ModeratorID: authorID}
	if err := s.store.CreateNote(ctx, record); err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	return &Response{
		Message: fmt.Sprintf("Note #%d added for user %d.", record.ID, userID),
		Code:    OutcomeNoted,
		BanID:   record.ID,
	}, nil
}
