package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labcelsanantonio-byte/LABCEL/internal/domain"
)

func TestClient_Authenticate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/me" {
			t.Errorf("expected /auth/me, got %s", r.URL.Path)
		}
		switch r.Header.Get("Authorization") {
		case "Bearer admin-token":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"user_id":"user_admin","email":"a@example.com","role":"admin"}`))
		case "Bearer broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, server.Client())
	ctx := context.Background()

	t.Run("returns the remote user", func(t *testing.T) {
		user, err := client.Authenticate(ctx, "admin-token")
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "user_admin", user.ID)
		assert.True(t, user.IsAdmin())
	})

	t.Run("unauthorized is anonymous", func(t *testing.T) {
		user, err := client.Authenticate(ctx, "stale")
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("server errors are reported", func(t *testing.T) {
		_, err := client.Authenticate(ctx, "broken")
		assert.Error(t, err)
	})
}

func TestProvider_Exchange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("X-Session-ID") {
		case "good":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"p1","email":"ana@example.com","name":"Ana","picture":"","session_token":"tok-1"}`))
		case "down":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer server.Close()

	provider := NewProvider(server.URL, server.Client())
	ctx := context.Background()

	profile, err := provider.Exchange(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", profile.Email)
	assert.Equal(t, "tok-1", profile.SessionToken)

	_, err = provider.Exchange(ctx, "forged")
	var authErr *domain.AuthError
	assert.ErrorAs(t, err, &authErr)

	_, err = provider.Exchange(ctx, "down")
	assert.Error(t, err)
	assert.NotErrorAs(t, err, &authErr)
}
