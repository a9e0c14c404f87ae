package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/hexvault/warden/internal/config"
	"github.com/hexvault/warden/internal/db"
	"github.com/hexvault/warden/internal/db/sqlite"
	"github.com/hexvault/warden/internal/moderation"
	"github.com/hexvault/warden/internal/platform"
	"github.com/hexvault/warden/internal/scheduler"
)

// newAPIServer wires the moderation API over a real sqlite store and the
// dry-run guild.
func newAPIServer(t *testing.T) (*Server, db.Store) {
	t.Helper()

	store, err := sqlite.NewSQLiteStore(context.Background(), t.TempDir(), "test.db")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	sched := scheduler.New()
	t.Cleanup(func() { _ = sched.Stop(context.Background()) })

	guild := platform.NewLogGuild()
	roles := &config.Roles{Muted: 500}
	cfg := config.Config{BotUserID: 1, DefaultBanReason: "No reason given ..."}

	bans := moderation.NewBanService(store, guild, sched, roles, cfg, "Test Guild")
	mutes := moderation.NewMuteService(store, guild, sched, roles, cfg)
	infractions := moderation.NewInfractionService(store, guild, "Test Guild")

	srv := NewServer(
		config.Webhook{ListenAddr: ":0", Token: testToken},
		NewModerationAPI(bans, mutes, infractions),
	)
	return srv, store
}

func call(t *testing.T, srv *Server, method, path, payload string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+testToken)
	rec := httptest.NewRecorder()
	srv.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeOutcome(t *testing.T, rec *httptest.ResponseRecorder) (string, int64) {
	t.Helper()

	var resp struct {
		Code  string `json:"code"`
		BanID int64  `json:"ban_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return resp.Code, resp.BanID
}

func TestModerationAPIRequiresAuth(t *testing.T) {
	t.Parallel()

	srv, _ := newAPIServer(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/moderation/bans", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	srv.srv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", rec.Code)
	}
}

func TestModerationAPIBanLifecycle(t *testing.T) {
	t.Parallel()

	srv, _ := newAPIServer(t)

	rec := call(t, srv, http.MethodPost, "/v1/moderation/bans",
		`{"user_id":900,"duration":"2d","reason":"spam","author_id":10,"author_name":"mod"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("create ban: status %d body %s", rec.Code, rec.Body.String())
	}
	code, _ := decodeOutcome(t, rec)
	if code != string(moderation.OutcomeBanned) {
		t.Fatalf("create ban: code %s", code)
	}

	rec = call(t, srv, http.MethodPost, "/v1/moderation/bans",
		`{"user_id":900,"duration":"2d","reason":"spam","author_id":10,"author_name":"mod"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate ban: status %d, want 409", rec.Code)
	}

	rec = call(t, srv, http.MethodDelete, "/v1/moderation/bans/user/900", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unban: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = call(t, srv, http.MethodDelete, "/v1/moderation/bans/user/900", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second unban: status %d, want 404", rec.Code)
	}
}

func TestModerationAPIApprovalWorkflow(t *testing.T) {
	t.Parallel()

	srv, _ := newAPIServer(t)

	rec := call(t, srv, http.MethodPost, "/v1/moderation/bans",
		`{"user_id":901,"duration":"5d","reason":"spam","author_id":10,"author_name":"mod","needs_approval":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("create pending ban: status %d body %s", rec.Code, rec.Body.String())
	}
	code, banID := decodeOutcome(t, rec)
	if code != string(moderation.OutcomePending) || banID == 0 {
		t.Fatalf("pending ban: code %s id %d", code, banID)
	}

	rec = call(t, srv, http.MethodPost,
		"/v1/moderation/bans/"+strconv.FormatInt(banID, 10)+"/dispute", `{"duration":"1d"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("dispute: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = call(t, srv, http.MethodPost, "/v1/moderation/bans/"+strconv.FormatInt(banID, 10)+"/deny", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("deny: status %d body %s", rec.Code, rec.Body.String())
	}
}

func TestModerationAPIInvalidDuration(t *testing.T) {
	t.Parallel()

	srv, _ := newAPIServer(t)
	rec := call(t, srv, http.MethodPost, "/v1/moderation/bans",
		`{"user_id":902,"duration":"5parsec","author_id":10}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
}

func TestModerationAPIMuteAndHistory(t *testing.T) {
	t.Parallel()

	srv, _ := newAPIServer(t)

	rec := call(t, srv, http.MethodPost, "/v1/moderation/mutes",
		`{"user_id":903,"duration":"1h","reason":"flood","author_id":10}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("mute: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = call(t, srv, http.MethodDelete, "/v1/moderation/mutes/user/903", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unmute: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = call(t, srv, http.MethodPost, "/v1/moderation/infractions",
		`{"user_id":903,"weight":2,"reason":"flood","author_id":10}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("infraction: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = call(t, srv, http.MethodPost, "/v1/moderation/notes",
		`{"user_id":903,"note":"talked to them in DMs","author_id":10}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("note: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = call(t, srv, http.MethodGet, "/v1/moderation/users/903/history", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("history: status %d body %s", rec.Code, rec.Body.String())
	}
	var history struct {
		TotalWeight int  `json:"total_weight"`
		NeedsReview bool `json:"needs_review"`
		Notes       []struct {
			Note string `json:"note"`
		} `json:"notes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if history.TotalWeight != 2 || history.NeedsReview {
		t.Fatalf("history: %+v", history)
	}
	if len(history.Notes) != 1 {
		t.Fatalf("expected 1 note, got %+v", history.Notes)
	}
}


func TestModerationAPIDeleteInfractionErrors(t *testing.T) {
	t.Parallel()

	srv, store := newAPIServer(t)

	rec := call(t, srv, http.MethodDelete, "/v1/moderation/infractions/999", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing infraction: status %d, want 404", rec.Code)
	}

	// A store failure is not a missing row.
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}
	rec = call(t, srv, http.MethodDelete, "/v1/moderation/infractions/999", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("store error: status %d, want 500", rec.Code)
	}
}
