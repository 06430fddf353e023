package avatarapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/studyhub-api/internal/config"
	apperrors "github.com/yourusername/studyhub-api/internal/pkg/errors"
)

func TestClient_CreateSessionToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/sessions/token", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("X-Api-Key"))

		var req tokenRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tutor-1", req.AvatarID)
		assert.Equal(t, "room-x", req.RoomName)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"session_id":"s-1","session_token":"tok","url":"wss://media"}}`))
	}))
	defer srv.Close()

	c := NewClient(config.LiveAvatarConfig{BaseURL: srv.URL, APIKey: "key", AvatarID: "tutor-1"})
	tok, err := c.CreateSessionToken(context.Background(), "room-x", "")

	require.NoError(t, err)
	assert.Equal(t, "s-1", tok.SessionID)
	assert.Equal(t, "tok", tok.Token)
	assert.Equal(t, "wss://media", tok.URL)
}

func TestClient_CreateSessionTokenError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"bad key"}`))
	}))
	defer srv.Close()

	c := NewClient(config.LiveAvatarConfig{BaseURL: srv.URL, APIKey: "key"})
	_, err := c.CreateSessionToken(context.Background(), "room", "")

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUpstream)
	assert.Contains(t, err.Error(), "bad key")
}

func TestClient_StopSession(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, "/v1/sessions/stop", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(config.LiveAvatarConfig{BaseURL: srv.URL, APIKey: "key"})
	require.NoError(t, c.StopSession(context.Background(), "s-1"))
	assert.True(t, called)
}

func TestClient_NotConfigured(t *testing.T) {
	c := NewClient(config.LiveAvatarConfig{})
	_, err := c.CreateSessionToken(context.Background(), "room", "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
