package http

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"
	"streamgate/internal/infrastructure/streaming"
	apperrors "streamgate/pkg/errors"
	"streamgate/pkg/tracing"
	"streamgate/pkg/validation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// tokenCookieName carries the playback token for players that drop
// query strings when resolving relative segment URIs.
const tokenCookieName = "streamgate_token"

const playlistContentType = "application/vnd.apple.mpegurl"
const segmentContentType = "video/mp2t"

// StreamHandler serves the public playback surface: playlist, segments
// and heartbeat. Every route is authorized by a per-camera playback
// token; none of them require platform credentials.
type StreamHandler struct {
	sessions  ports.SessionManager
	tokens    ports.TokenService
	metrics   ports.StreamingMetrics
	outputDir string
	tokenTTL  time.Duration
	logger    *zap.SugaredLogger
}

func NewStreamHandler(
	sessions ports.SessionManager,
	tokens ports.TokenService,
	metrics ports.StreamingMetrics,
	outputDir string,
	tokenTTL time.Duration,
	logger *zap.SugaredLogger,
) *StreamHandler {
	return &StreamHandler{
		sessions:  sessions,
		tokens:    tokens,
		metrics:   metrics,
		outputDir: outputDir,
		tokenTTL:  tokenTTL,
		logger:    logger,
	}
}

// Playlist starts the camera's session if needed, waits for the first
// segment, and returns the playlist with every segment URI rewritten to
// a tokenized relative URL.
func (h *StreamHandler) Playlist(c *gin.Context) {
	cameraID := c.Param("camera_id")
	if err := validation.ValidateCameraID(cameraID); err != nil {
		c.Error(apperrors.NewValidationError(err.Error()))
		return
	}

	token, ok := h.authorize(c, domain.CameraID(cameraID))
	if !ok {
		return
	}

	session, err := h.sessions.GetOrCreate(c.Request.Context(), domain.CameraID(cameraID), token.CompanyID)
	if err != nil {
		c.Error(err)
		return
	}

	if err := h.sessions.WaitReady(c.Request.Context(), session); err != nil {
		c.Error(err)
		return
	}

	body, err := os.ReadFile(session.PlaylistPath)
	if err != nil {
		// Reaped between readiness and the read. The next request
		// starts a fresh session.
		c.Error(domain.ErrNotReadyYet)
		return
	}

	// One fresh token authorizes every segment of this render. Players
	// re-request the playlist well inside the token TTL, so playback
	// continues as long as they keep watching.
	var fresh string
	rewritten, err := streaming.Rewrite(string(body), func() (string, error) {
		signed, _, issueErr := h.tokens.Issue(domain.CameraID(cameraID), token.CompanyID)
		if issueErr != nil {
			return "", issueErr
		}
		fresh = signed
		h.metrics.RecordTokenIssued()
		return signed, nil
	})
	if err != nil {
		c.Error(apperrors.NewInternalError("failed to render playlist").WithCause(err))
		return
	}

	if fresh != "" {
		h.setTokenCookie(c, cameraID, fresh)
	}
	h.metrics.RecordPlaylistServed()
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, playlistContentType, []byte(rewritten))
}

// Segment streams one HLS segment. A missing session means the player
// is holding a stale playlist; it recovers by requesting the playlist
// again, so the answer is a plain 404.
func (h *StreamHandler) Segment(c *gin.Context) {
	cameraID := c.Param("camera_id")
	if err := validation.ValidateCameraID(cameraID); err != nil {
		c.Error(apperrors.NewValidationError(err.Error()))
		return
	}
	file := c.Param("file")
	if err := validation.ValidateSegmentName(file); err != nil {
		c.Error(apperrors.NewValidationError(err.Error()))
		return
	}
	tracing.AddSpanAttributes(c.Request.Context(), tracing.SegmentKey.String(file))

	token, ok := h.authorize(c, domain.CameraID(cameraID))
	if !ok {
		return
	}

	snap, err := h.sessions.Session(domain.CameraID(cameraID))
	if err != nil || snap.CompanyID != token.CompanyID {
		c.Error(domain.ErrSegmentNotFound)
		return
	}
	h.sessions.Touch(domain.CameraID(cameraID))

	path := filepath.Join(domain.OutputDirFor(h.outputDir, snap.CompanyID, domain.CameraID(cameraID)), file)
	f, err := os.Open(path)
	if err != nil {
		c.Error(domain.ErrSegmentNotFound)
		return
	}
	defer f.Close()

	c.Header("Cache-Control", "no-store")
	c.Header("Content-Type", segmentContentType)
	c.Status(http.StatusOK)
	n, err := streaming.CopySegment(c.Writer, f)
	if err != nil {
		h.logger.Debugw("segment copy aborted",
			"camera_id", cameraID,
			"file", file,
			"bytes_written", n,
			"error", err)
	}
	h.metrics.RecordSegmentServed(n)
}

// Heartbeat extends the session's idle deadline without transferring
// any media. Safe to call when no session exists.
func (h *StreamHandler) Heartbeat(c *gin.Context) {
	cameraID := c.Param("camera_id")
	if err := validation.ValidateCameraID(cameraID); err != nil {
		c.Error(apperrors.NewValidationError(err.Error()))
		return
	}

	if _, ok := h.authorize(c, domain.CameraID(cameraID)); !ok {
		return
	}

	h.sessions.Touch(domain.CameraID(cameraID))
	c.Status(http.StatusNoContent)
}

// authorize extracts and validates the playback token. The query
// parameter wins over the cookie.
func (h *StreamHandler) authorize(c *gin.Context, cameraID domain.CameraID) (*domain.StreamToken, bool) {
	signed := c.Query("token")
	if signed == "" {
		if cookie, err := c.Cookie(tokenCookieName); err == nil {
			signed = cookie
		}
	}
	if signed == "" {
		h.metrics.RecordTokenRejected("missing")
		c.Error(fmt.Errorf("%w: no token presented", domain.ErrTokenInvalid))
		return nil, false
	}

	token, err := h.tokens.Validate(signed, cameraID)
	if err != nil {
		h.metrics.RecordTokenRejected("invalid")
		c.Error(err)
		return nil, false
	}
	return token, true
}

// setTokenCookie scopes the cookie to this camera's path so tokens for
// different cameras do not clobber each other.
func (h *StreamHandler) setTokenCookie(c *gin.Context, cameraID, signed string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(tokenCookieName, signed, int(h.tokenTTL.Seconds()), "/streams/"+cameraID, "", false, true)
}
