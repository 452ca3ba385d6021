package identity

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labcelsanantonio-byte/LABCEL/internal/domain"
)

func newTestMux(svc *Service) *http.ServeMux {
	h := NewHandler(svc, true, discardLogger)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/session", h.HandleSession)
	mux.HandleFunc("GET /auth/me", h.HandleMe)
	mux.HandleFunc("POST /auth/logout", h.HandleLogout)
	mux.HandleFunc("GET /users", h.HandleListUsers)
	mux.HandleFunc("PUT /users/{id}", h.HandleUpdateUser)
	mux.HandleFunc("PUT /users/{id}/role", h.HandleSetRole)
	return mux
}

func TestHandler_SessionLifecycle(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, newMemCache(), &Profile{Email: "ana@example.com", Name: "Ana", SessionToken: "tok-ana"})
	handler := Middleware(svc, discardLogger)(newTestMux(svc))

	req := httptest.NewRequest(http.MethodPost, "/auth/session", strings.NewReader(`{"session_id":"sess-1"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "tok-ana", body["session_token"])
	assert.Equal(t, "ana@example.com", body["email"])

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)

	req = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "tok-ana"})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "tok-ana"})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "tok-ana"})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_UserAdmin(t *testing.T) {
	store := newMemStore()
	admin := seedUser(store, "user_admin", domain.RoleAdmin)
	seedUser(store, "user_ana", domain.RoleCustomer)
	store.sessions["admin-token"] = &domain.Session{Token: "admin-token", UserID: admin.ID, ExpiresAt: time.Now().Add(time.Hour)}
	store.sessions["ana-token"] = &domain.Session{Token: "ana-token", UserID: "user_ana", ExpiresAt: time.Now().Add(time.Hour)}
	svc := newTestService(store, nil, nil)
	handler := Middleware(svc, discardLogger)(newTestMux(svc))

	do := func(method, path, token, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	t.Run("list requires admin", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do(http.MethodGet, "/users", "", "").Code)
		assert.Equal(t, http.StatusForbidden, do(http.MethodGet, "/users", "ana-token", "").Code)

		rec := do(http.MethodGet, "/users", "admin-token", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var users []domain.User
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
		assert.Len(t, users, 2)
	})

	t.Run("update profile", func(t *testing.T) {
		rec := do(http.MethodPut, "/users/user_ana", "admin-token", `{"phone":"+52 210 555 0101"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "+52 210 555 0101", store.users["user_ana"].Phone)

		assert.Equal(t, http.StatusNotFound, do(http.MethodPut, "/users/user_nobody", "admin-token", `{"name":"x"}`).Code)
		assert.Equal(t, http.StatusBadRequest, do(http.MethodPut, "/users/user_ana", "admin-token", `{}`).Code)
	})

	t.Run("role changes", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, do(http.MethodPut, "/users/user_admin/role", "admin-token", `{"role":"customer"}`).Code)

		rec := do(http.MethodPut, "/users/user_ana/role", "admin-token", `{"role":"admin"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, domain.RoleAdmin, store.users["user_ana"].Role)
	})
}
