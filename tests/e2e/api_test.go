//go:build e2e

package e2e

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/deskboard/deskboard/internal/domain"
)

func TestHealthEndpoints(t *testing.T) {
	env := SetupTestEnv(t)
	defer env.Cleanup(t)

	t.Run("health returns ok", func(t *testing.T) {
		resp, err := http.Get(env.ServerURL + "/health")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected status 200, got %d", resp.StatusCode)
		}

		var body map[string]string
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if body["status"] != "ok" {
			t.Errorf("expected status ok, got %s", body["status"])
		}
	})

	t.Run("ready reports database", func(t *testing.T) {
		resp, err := http.Get(env.ServerURL + "/ready")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected status 200, got %d", resp.StatusCode)
		}

		var body map[string]string
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if body["database"] != "connected" {
			t.Errorf("expected database connected, got %s", body["database"])
		}
	})
}

func TestAuthRequired(t *testing.T) {
	env := SetupTestEnv(t)
	defer env.Cleanup(t)

	status := doJSON(t, http.MethodGet, env.ServerURL+"/api/v1/presence", "", nil, nil)
	if status != http.StatusUnauthorized {
		t.Errorf("expected 401 without a token, got %d", status)
	}

	status = doJSON(t, http.MethodGet, env.ServerURL+"/api/v1/presence", "not-a-token", nil, nil)
	if status != http.StatusUnauthorized {
		t.Errorf("expected 401 with a bad token, got %d", status)
	}
}

func TestSessionLifecycle(t *testing.T) {
	env := SetupTestEnv(t)
	defer env.Cleanup(t)

	userToken := MintToken(t, "user-1", domain.RoleUser)
	adminToken := MintToken(t, "admin-1", domain.RoleAdmin)

	t.Run("start requires socketId", func(t *testing.T) {
		status := doJSON(t, http.MethodPost, env.ServerURL+"/api/v1/sessions/start", userToken,
			domain.StartSessionRequest{}, nil)
		if status != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", status)
		}
	})

	t.Run("start, observe active, end", func(t *testing.T) {
		sess := startSession(t, env, userToken, "sck_e2e_1")
		if sess.ID == "" || sess.UserID != "user-1" || sess.EndedAt != nil {
			t.Fatalf("unexpected session: %+v", sess)
		}

		var active struct {
			Sessions []domain.SessionWithDuration `json:"sessions"`
			Total    int                          `json:"total"`
		}
		status := doJSON(t, http.MethodGet, env.ServerURL+"/api/v1/sessions/active", userToken, nil, &active)
		if status != http.StatusOK {
			t.Fatalf("active: status = %d", status)
		}
		found := false
		for _, s := range active.Sessions {
			if s.ID == sess.ID {
				found = true
			}
		}
		if !found {
			t.Errorf("started session %s not in active list", sess.ID)
		}

		var presence domain.OnlineCount
		doJSON(t, http.MethodGet, env.ServerURL+"/api/v1/presence", userToken, nil, &presence)
		if presence.Count < 1 {
			t.Errorf("presence count = %d; want at least 1", presence.Count)
		}

		status = doJSON(t, http.MethodPost, env.ServerURL+"/api/v1/sessions/"+sess.ID+"/end", userToken, nil, nil)
		if status != http.StatusOK {
			t.Errorf("end: status = %d", status)
		}

		doJSON(t, http.MethodGet, env.ServerURL+"/api/v1/sessions/active", userToken, nil, &active)
		for _, s := range active.Sessions {
			if s.ID == sess.ID {
				t.Errorf("ended session %s still listed active", sess.ID)
			}
		}
	})

	t.Run("cannot end another user's session", func(t *testing.T) {
		otherToken := MintToken(t, "user-2", domain.RoleUser)
		sess := startSession(t, env, otherToken, "sck_e2e_other")

		status := doJSON(t, http.MethodPost, env.ServerURL+"/api/v1/sessions/"+sess.ID+"/end", userToken, nil, nil)
		if status != http.StatusForbidden {
			t.Errorf("expected 403 ending another user's session, got %d", status)
		}
	})

	t.Run("terminate is admin only", func(t *testing.T) {
		sess := startSession(t, env, userToken, "sck_e2e_2")

		status := doJSON(t, http.MethodPost, env.ServerURL+"/api/v1/sessions/"+sess.ID+"/terminate", userToken, nil, nil)
		if status != http.StatusForbidden {
			t.Errorf("expected 403 for non-admin terminate, got %d", status)
		}

		status = doJSON(t, http.MethodPost, env.ServerURL+"/api/v1/sessions/"+sess.ID+"/terminate", adminToken, nil, nil)
		if status != http.StatusOK {
			t.Errorf("expected 200 for admin terminate, got %d", status)
		}

		// Terminating an already-closed session finds nothing to close.
		status = doJSON(t, http.MethodPost, env.ServerURL+"/api/v1/sessions/"+sess.ID+"/terminate", adminToken, nil, nil)
		if status != http.StatusNotFound {
			t.Errorf("expected 404 for a second terminate, got %d", status)
		}
	})

	t.Run("terminated user gets a notification", func(t *testing.T) {
		victimToken := MintToken(t, "user-3", domain.RoleUser)
		sess := startSession(t, env, victimToken, "sck_e2e_3")

		status := doJSON(t, http.MethodPost, env.ServerURL+"/api/v1/sessions/"+sess.ID+"/terminate", adminToken, nil, nil)
		if status != http.StatusOK {
			t.Fatalf("terminate: status = %d", status)
		}

		var list struct {
			Notifications []struct {
				Title string `json:"title"`
			} `json:"notifications"`
		}
		doJSON(t, http.MethodGet, env.ServerURL+"/api/v1/notifications/", victimToken, nil, &list)
		found := false
		for _, n := range list.Notifications {
			if n.Title == "Session Terminated" {
				found = true
			}
		}
		if !found {
			t.Error("terminated user did not receive a notification")
		}
	})

	t.Run("logout closes all open sessions", func(t *testing.T) {
		multiToken := MintToken(t, "user-4", domain.RoleUser)
		startSession(t, env, multiToken, "sck_e2e_4a")
		startSession(t, env, multiToken, "sck_e2e_4b")

		var out struct {
			Closed int `json:"closed"`
		}
		status := doJSON(t, http.MethodPost, env.ServerURL+"/api/v1/sessions/logout", multiToken, nil, &out)
		if status != http.StatusOK {
			t.Fatalf("logout: status = %d", status)
		}
		if out.Closed != 2 {
			t.Errorf("closed = %d; want 2", out.Closed)
		}

		var active struct {
			Sessions []domain.SessionWithDuration `json:"sessions"`
		}
		doJSON(t, http.MethodGet, env.ServerURL+"/api/v1/sessions/active?userId=user-4", multiToken, nil, &active)
		if len(active.Sessions) != 0 {
			t.Errorf("user-4 still has %d active sessions after logout", len(active.Sessions))
		}
	})

	t.Run("history pagination scopes non-admins to themselves", func(t *testing.T) {
		var list domain.SessionList
		status := doJSON(t, http.MethodGet, env.ServerURL+"/api/v1/sessions/?page=1&limit=50", userToken, nil, &list)
		if status != http.StatusOK {
			t.Fatalf("list: status = %d", status)
		}
		for _, s := range list.Sessions {
			if s.UserID != "user-1" {
				t.Errorf("non-admin list leaked session of %s", s.UserID)
			}
		}
	})
}

func TestActivityLogAdminOnly(t *testing.T) {
	env := SetupTestEnv(t)
	defer env.Cleanup(t)

	userToken := MintToken(t, "user-1", domain.RoleUser)
	adminToken := MintToken(t, "admin-1", domain.RoleAdmin)

	status := doJSON(t, http.MethodGet, env.ServerURL+"/api/v1/activity", userToken, nil, nil)
	if status != http.StatusForbidden {
		t.Errorf("expected 403 for non-admin activity, got %d", status)
	}

	status = doJSON(t, http.MethodGet, env.ServerURL+"/api/v1/activity", adminToken, nil, nil)
	if status != http.StatusOK {
		t.Errorf("expected 200 for admin activity, got %d", status)
	}
}
