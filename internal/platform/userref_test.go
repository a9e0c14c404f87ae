package platform

import (
	"context"
	"testing"
)

type memberGuild struct {
	Guild
	members map[int64]*Member
}

func (g *memberGuild) Member(ctx context.Context, userID int64) (*Member, error) {
	_ = ctx
	member, ok := g.members[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return member, nil
}

func TestUserRefUserID(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		ref  UserRef
		want int64
		err  bool
	}{
		{"by id", RefByID(42), 42, false},
		{"by mention", RefByMention("<@42>"), 42, false},
		{"by nick mention", RefByMention("<@!42>"), 42, false},
		{"resolved", RefResolved(&Member{ID: 42}), 42, false},
		{"bad mention", RefByMention("<@nope>"), 0, true},
		{"empty", UserRef{}, 0, true},
	}

	for _, tc := range cases {
		id, err := tc.ref.UserID()
		if tc.err {
			if err == nil {
				t.Fatalf("%s: expected error", tc.name)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if id != tc.want {
			t.Fatalf("%s: got %d want %d", tc.name, id, tc.want)
		}
	}
}

func TestUserRefResolveFetchesOnce(t *testing.T) {
	t.Parallel()

	guild := &memberGuild{members: map[int64]*Member{42: {ID: 42, Name: "mallory"}}}
	member, err := RefByID(42).Resolve(context.Background(), guild)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if member.Name != "mallory" {
		t.Fatalf("unexpected member: %+v", member)
	}

	cached := &Member{ID: 7, Name: "cached"}
	member, err = RefResolved(cached).Resolve(context.Background(), guild)
	if err != nil {
		t.Fatalf("resolve cached: %v", err)
	}
	if member != cached {
		t.Fatalf("expected cached member to be returned as-is")
	}
}
