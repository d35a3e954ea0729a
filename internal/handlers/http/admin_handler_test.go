package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateGrant(t *testing.T) {
	env := newHandlerEnv(t, nil)

	grant := env.grant(t, "cam-1", "acme")
	assert.Contains(t, grant.PlaybackURL, "/streams/cam-1/playlist.m3u8?token=")
	assert.NotEmpty(t, grant.Token)
	assert.WithinDuration(t, time.Now().Add(env.cfg.Auth.TokenTTL), grant.ExpiresAt, 5*time.Second)

	// Issuing a grant must not start anything.
	assert.Equal(t, 0, env.transcoder.Starts())

	decoded, err := env.tokens.Validate(grant.Token, "cam-1")
	require.NoError(t, err)
	assert.Equal(t, "acme", string(decoded.CompanyID))
}

func TestCreateGrant_RequiresServiceKey(t *testing.T) {
	env := newHandlerEnv(t, nil)

	w := env.request(http.MethodPost, "/api/v1/grants")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.request(http.MethodPost, "/api/v1/grants", func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer wrong-key")
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateGrant_Validation(t *testing.T) {
	env := newHandlerEnv(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"camera_id":`},
		{"missing company", `{"camera_id":"cam-1"}`},
		{"bad camera id", `{"camera_id":"not/valid","company_id":"acme"}`},
		{"bad company id", `{"camera_id":"cam-1","company_id":"ac me"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.requestJSON(http.MethodPost, "/api/v1/grants", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "VALIDATION_FAILED", errorCode(t, w))
		})
	}
}

func TestListSessions(t *testing.T) {
	env := newHandlerEnv(t, nil)

	w := env.admin(http.MethodGet, "/api/v1/sessions")
	require.Equal(t, http.StatusOK, w.Code)
	var empty struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &empty))
	assert.Equal(t, 0, empty.Count)

	grant := env.grant(t, "cam-1", "acme")
	require.Equal(t, http.StatusOK, env.playlist(t, "cam-1", grant.Token).Code)

	w = env.admin(http.MethodGet, "/api/v1/sessions")
	require.Equal(t, http.StatusOK, w.Code)
	var listed struct {
		Count    int `json:"count"`
		Sessions []struct {
			CameraID  string `json:"camera_id"`
			CompanyID string `json:"company_id"`
			State     string `json:"state"`
		} `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Equal(t, 1, listed.Count)
	assert.Equal(t, "cam-1", listed.Sessions[0].CameraID)
	assert.Equal(t, "acme", listed.Sessions[0].CompanyID)
	assert.Equal(t, "ready", listed.Sessions[0].State)
}

func TestGetSession(t *testing.T) {
	env := newHandlerEnv(t, nil)
	grant := env.grant(t, "cam-1", "acme")
	require.Equal(t, http.StatusOK, env.playlist(t, "cam-1", grant.Token).Code)

	w := env.admin(http.MethodGet, "/api/v1/sessions/cam-1")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Session struct {
			CameraID     string `json:"camera_id"`
			State        string `json:"state"`
			ProcessAlive bool   `json:"process_alive"`
		} `json:"session"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "cam-1", resp.Session.CameraID)
	assert.Equal(t, "ready", resp.Session.State)
	assert.True(t, resp.Session.ProcessAlive)
}

func TestGetSession_NotFound(t *testing.T) {
	env := newHandlerEnv(t, nil)

	w := env.admin(http.MethodGet, "/api/v1/sessions/cam-1")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "SESSION_NOT_FOUND", errorCode(t, w))
}

func TestStopSession(t *testing.T) {
	env := newHandlerEnv(t, nil)
	grant := env.grant(t, "cam-1", "acme")

	w := env.playlist(t, "cam-1", grant.Token)
	require.Equal(t, http.StatusOK, w.Code)
	uris := segmentURIs(w.Body.String())
	handle := env.transcoder.Handle("cam-1")
	require.NotNil(t, handle)

	w = env.admin(http.MethodDelete, "/api/v1/sessions/cam-1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.False(t, handle.IsAlive())
	assert.Equal(t, 1, env.metrics.endedCount("stopped"))

	w = env.admin(http.MethodGet, "/api/v1/sessions/cam-1")
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Stale segment URLs answer 404 after the teardown.
	w = env.request(http.MethodGet, "/streams/cam-1/"+uris[0])
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "SEGMENT_NOT_FOUND", errorCode(t, w))

	// The next playlist request starts over.
	w = env.playlist(t, "cam-1", grant.Token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, env.transcoder.Starts())
}

func TestStopSession_NotFound(t *testing.T) {
	env := newHandlerEnv(t, nil)

	w := env.admin(http.MethodDelete, "/api/v1/sessions/cam-1")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "SESSION_NOT_FOUND", errorCode(t, w))
}

func TestHealthEndpoint(t *testing.T) {
	env := newHandlerEnv(t, nil)

	w := env.request(http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyEndpoint(t *testing.T) {
	env := newHandlerEnv(t, nil)

	w := env.request(http.MethodGet, "/ready")
	assert.Equal(t, http.StatusOK, w.Code)

	env.health.AddCheck("broken_dependency", time.Second, func(ctx context.Context) error {
		return errors.New("unreachable")
	})

	w = env.request(http.MethodGet, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var status struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, "unreachable", status.Checks["broken_dependency"])
}

func TestMetricsEndpoint(t *testing.T) {
	env := newHandlerEnv(t, nil)

	w := env.request(http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Body.String())
}

func TestRoutes_PlaybackURLsResolveAgainstPlaylist(t *testing.T) {
	env := newHandlerEnv(t, nil)
	grant := env.grant(t, "cam-1", "acme")

	w := env.playlist(t, "cam-1", grant.Token)
	require.Equal(t, http.StatusOK, w.Code)

	// A relative segment URI resolved against the playlist URL lands on
	// the segment route, exactly as an HLS player would resolve it.
	base, err := url.Parse("/streams/cam-1/playlist.m3u8")
	require.NoError(t, err)
	for _, uri := range segmentURIs(w.Body.String()) {
		ref, err := url.Parse(uri)
		require.NoError(t, err)
		resolved := base.ResolveReference(ref)

		got := env.request(http.MethodGet, resolved.String())
		assert.Equal(t, http.StatusOK, got.Code, resolved.String())
	}
}
