package moderation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hexvault/warden/internal/db"
	"github.com/hexvault/warden/internal/platform"
)

// fakeStore is an in-memory db.Store with the same active-ban uniqueness
// behavior as the sqlite partial index.
type fakeStore struct {
	mu          sync.Mutex
	nextID      int64
	bans        map[int64]*db.Ban
	mutes       map[int64]*db.Mute
	infractions map[int64]*db.Infraction
	notes       []*db.UserNote
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		bans:        map[int64]*db.Ban{},
		mutes:       map[int64]*db.Mute{},
		infractions: map[int64]*db.Infraction{},
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) GetActiveBan(ctx context.Context, userID int64) (*db.Ban, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ban := range f.bans {
		if ban.UserID == userID && !ban.Unbanned {
			copied := *ban
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) GetBan(ctx context.Context, id int64) (*db.Ban, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ban, ok := f.bans[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *ban
	return &copied, nil
}

func (f *fakeStore) CreateBanWithInfraction(ctx context.Context, ban *db.Ban, infraction *db.Infraction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.bans {
		if existing.UserID == ban.UserID && !existing.Unbanned {
			return db.ErrBanExists
		}
	}
	ban.ID = f.id()
	if ban.Timestamp.IsZero() {
		ban.Timestamp = time.Now().UTC()
	}
	copied := *ban
	f.bans[ban.ID] = &copied
	if infraction != nil {
		infraction.ID = f.id()
		copiedInf := *infraction
		f.infractions[infraction.ID] = &copiedInf
	}
	return nil
}

func (f *fakeStore) UpdateBan(ctx context.Context, ban *db.Ban) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.bans[ban.ID]; !ok {
		return db.ErrNotFound
	}
	copied := *ban
	f.bans[ban.ID] = &copied
	return nil
}

func (f *fakeStore) DeleteBan(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.bans[id]; !ok {
		return db.ErrNotFound
	}
	delete(f.bans, id)
	return nil
}

func (f *fakeStore) ListDueBans(ctx context.Context, before time.Time) ([]*db.Ban, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var due []*db.Ban
	for _, ban := range f.bans {
		if !ban.Unbanned && ban.Approved && ban.UnbanTime <= before.Unix() {
			copied := *ban
			due = append(due, &copied)
		}
	}
	return due, nil
}

func (f *fakeStore) GetMute(ctx context.Context, userID int64) (*db.Mute, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	mute, ok := f.mutes[userID]
	if !ok {
		return nil, nil
	}
	copied := *mute
	return &copied, nil
}

func (f *fakeStore) CreateMute(ctx context.Context, mute *db.Mute) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	mute.ID = f.id()
	copied := *mute
	f.mutes[mute.UserID] = &copied
	return nil
}

func (f *fakeStore) DeleteMute(ctx context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.mutes[userID]; !ok {
		return db.ErrNotFound
	}
	delete(f.mutes, userID)
	return nil
}

func (f *fakeStore) ListDueMutes(ctx context.Context, before time.Time) ([]*db.Mute, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var due []*db.Mute
	for _, mute := range f.mutes {
		if mute.UnmuteTime <= before.Unix() {
			copied := *mute
			due = append(due, &copied)
		}
	}
	return due, nil
}

func (f *fakeStore) CreateInfraction(ctx context.Context, infraction *db.Infraction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	infraction.ID = f.id()
	copied := *infraction
	f.infractions[infraction.ID] = &copied
	return nil
}

func (f *fakeStore) DeleteInfraction(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.infractions[id]; !ok {
		return db.ErrNotFound
	}
	delete(f.infractions, id)
	return nil
}

func (f *fakeStore) ListInfractions(ctx context.Context, userID int64) ([]*db.Infraction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*db.Infraction
	for _, infraction := range f.infractions {
		if infraction.UserID == userID {
			copied := *infraction
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateNote(ctx context.Context, note *db.UserNote) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	note.ID = f.id()
	copied := *note
	f.notes = append(f.notes, &copied)
	return nil
}

func (f *fakeStore) ListNotes(ctx context.Context, userID int64) ([]*db.UserNote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*db.UserNote
	for _, note := range f.notes {
		if note.UserID == userID {
			copied := *note
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) banRowsForUser(userID int64) []*db.Ban {
	f.mu.Lock()
	defer f.mu.Unlock()
	var rows []*db.Ban
	for _, ban := range f.bans {
		if ban.UserID == userID {
			copied := *ban
			rows = append(rows, &copied)
		}
	}
	return rows
}

// fakeGuild records platform calls and returns configured errors.
type fakeGuild struct {
	mu      sync.Mutex
	members map[int64]*platform.Member

	dmErr     error
	banErr    error
	unbanErr  error
	roleErr   error
	notifyErr error

	banned     []int64
	unbanned   []int64
	dms        map[int64][]string
	rolesAdded map[int64][]int64
	rolesGone  map[int64][]int64
	notices    map[int64][]string
}

func newFakeGuild(members ...*platform.Member) *fakeGuild {
	g := &fakeGuild{
		members:    map[int64]*platform.Member{},
		dms:        map[int64][]string{},
		rolesAdded: map[int64][]int64{},
		rolesGone:  map[int64][]int64{},
		notices:    map[int64][]string{},
	}
	for _, member := range members {
		g.members[member.ID] = member
	}
	return g
}

func (g *fakeGuild) Ban(ctx context.Context, userID int64, reason string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.banErr != nil {
		return g.banErr
	}
	g.banned = append(g.banned, userID)
	return nil
}

func (g *fakeGuild) Unban(ctx context.Context, userID int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.unbanErr != nil {
		return g.unbanErr
	}
	g.unbanned = append(g.unbanned, userID)
	return nil
}

func (g *fakeGuild) AddRole(ctx context.Context, userID, roleID int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.roleErr != nil {
		return g.roleErr
	}
	g.rolesAdded[userID] = append(g.rolesAdded[userID], roleID)
	return nil
}

func (g *fakeGuild) RemoveRole(ctx context.Context, userID, roleID int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.roleErr != nil {
		return g.roleErr
	}
	g.rolesGone[userID] = append(g.rolesGone[userID], roleID)
	return nil
}

func (g *fakeGuild) SetNickname(ctx context.Context, userID int64, nick string) error {
	return nil
}

func (g *fakeGuild) SendDM(ctx context.Context, userID int64, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.dmErr != nil {
		return g.dmErr
	}
	g.dms[userID] = append(g.dms[userID], text)
	return nil
}

func (g *fakeGuild) Member(ctx context.Context, userID int64) (*platform.Member, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	member, ok := g.members[userID]
	if !ok {
		return nil, fmt.Errorf("member %d: %w", userID, platform.ErrNotFound)
	}
	return member, nil
}

func (g *fakeGuild) Notify(ctx context.Context, channelID int64, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.notifyErr != nil {
		return g.notifyErr
	}
	g.notices[channelID] = append(g.notices[channelID], text)
	return nil
}
