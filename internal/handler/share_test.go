package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/comprai/comprai/internal/auth"
	"github.com/comprai/comprai/internal/cache"
	"github.com/comprai/comprai/internal/database"
	"github.com/comprai/comprai/internal/model"
	"github.com/comprai/comprai/internal/store"
)

type shareTestEnv struct {
	handler     *ShareHandler
	memberStore *store.MembershipStore
	shareStore  *store.ShareCodeStore
	list        *model.List
	owner       *model.User
	guest       *model.User
}

func shareEnv(t *testing.T) *shareTestEnv {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	userStore := store.NewUserStore(db)
	listStore := store.NewListStore(db)
	memberStore := store.NewMembershipStore(db)
	shareStore := store.NewShareCodeStore(db)

	owner, _ := userStore.Create("dona@example.com", "hash", "Dona")
	guest, _ := userStore.Create("bea@example.com", "hash", "Bea")
	list, _ := listStore.Create("Churrasco", owner.ID)

	logger := discardLogger()
	overview := cache.NewOverviewCache(0, func(ctx context.Context, userID int64) ([]model.ListSummary, error) {
		return listStore.Summaries(userID)
	}, logger)
	access := NewAccess(listStore, memberStore)

	h := NewShareHandler(shareStore, listStore, memberStore, overview, access, nil, logger)
	return &shareTestEnv{
		handler:     h,
		memberStore: memberStore,
		shareStore:  shareStore,
		list:        list,
		owner:       owner,
		guest:       guest,
	}
}

func authedRequest(method, target, body string, userID int64) *http.Request {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	return r.WithContext(auth.WithAuth(r.Context(), auth.AuthContext{UserID: userID}))
}

func (e *shareTestEnv) createCode(t *testing.T, body string) *model.ShareCode {
	t.Helper()
	r := authedRequest("POST", "/api/lists/1/share", body, e.owner.ID)
	r.SetPathValue("id", "1")
	rec := httptest.NewRecorder()
	e.handler.Create(rec, r)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create code: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var code model.ShareCode
	if err := json.Unmarshal(rec.Body.Bytes(), &code); err != nil {
		t.Fatalf("decode code: %v", err)
	}
	return &code
}

func (e *shareTestEnv) join(code string, userID int64) *httptest.ResponseRecorder {
	r := authedRequest("POST", "/api/join/"+code, "", userID)
	r.SetPathValue("code", code)
	rec := httptest.NewRecorder()
	e.handler.Join(rec, r)
	return rec
}

func TestShareCreateRequiresOwner(t *testing.T) {
	env := shareEnv(t)

	r := authedRequest("POST", "/api/lists/1/share", `{"permission": "edit"}`, env.guest.ID)
	r.SetPathValue("id", "1")
	rec := httptest.NewRecorder()
	env.handler.Create(rec, r)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestShareJoinFlow(t *testing.T) {
	env := shareEnv(t)
	code := env.createCode(t, `{"permission": "readonly"}`)

	rec := env.join(code.Code, env.guest.ID)
	if rec.Code != http.StatusOK {
		t.Fatalf("join: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	m, err := env.memberStore.Get(env.list.ID, env.guest.ID)
	if err != nil {
		t.Fatalf("get membership: %v", err)
	}
	if m == nil || !m.Active || m.Permission != model.PermissionReadonly {
		t.Fatalf("membership = %+v", m)
	}

	// Joining again while already a member conflicts.
	rec = env.join(code.Code, env.guest.ID)
	if rec.Code != http.StatusConflict {
		t.Fatalf("second join: status = %d, want 409", rec.Code)
	}
}

func TestShareJoinSingleUse(t *testing.T) {
	env := shareEnv(t)
	code := env.createCode(t, `{"permission": "edit", "single_use": true}`)

	if rec := env.join(code.Code, env.guest.ID); rec.Code != http.StatusOK {
		t.Fatalf("first join: status = %d", rec.Code)
	}

	// Nobody can reuse a single-use code.
	rec := env.join(code.Code, env.owner.ID)
	if rec.Code != http.StatusGone {
		t.Fatalf("reuse: status = %d, want 410", rec.Code)
	}
}

func TestShareJoinLowercaseCode(t *testing.T) {
	env := shareEnv(t)
	code := env.createCode(t, `{}`)

	rec := env.join(strings.ToLower(code.Code), env.guest.ID)
	if rec.Code != http.StatusOK {
		t.Fatalf("lowercase join: status = %d", rec.Code)
	}
}

func TestShareJoinOwnList(t *testing.T) {
	env := shareEnv(t)
	code := env.createCode(t, `{}`)

	rec := env.join(code.Code, env.owner.ID)
	if rec.Code != http.StatusConflict {
		t.Fatalf("owner join: status = %d, want 409", rec.Code)
	}
}

func TestSharePreview(t *testing.T) {
	env := shareEnv(t)
	code := env.createCode(t, `{"permission": "edit"}`)

	r := authedRequest("GET", "/api/join/"+code.Code, "", env.guest.ID)
	r.SetPathValue("code", code.Code)
	rec := httptest.NewRecorder()
	env.handler.Preview(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("preview: status = %d", rec.Code)
	}
	var resp struct {
		ListName   string `json:"list_name"`
		Permission string `json:"permission"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.ListName != "Churrasco" || resp.Permission != model.PermissionEdit {
		t.Errorf("preview = %+v", resp)
	}

	// Preview must not consume the code or create a membership.
	m, _ := env.memberStore.Get(env.list.ID, env.guest.ID)
	if m != nil {
		t.Errorf("preview created a membership: %+v", m)
	}
}
