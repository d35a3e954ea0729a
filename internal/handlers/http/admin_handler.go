package http

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"
	apperrors "streamgate/pkg/errors"
	"streamgate/pkg/validation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminHandler serves the internal control plane: playback grants for
// the platform's API layer and session administration for operators.
// Every route sits behind the service key.
type AdminHandler struct {
	sessions      ports.SessionManager
	tokens        ports.TokenService
	metrics       ports.StreamingMetrics
	publicBaseURL string
	logger        *zap.SugaredLogger
}

func NewAdminHandler(
	sessions ports.SessionManager,
	tokens ports.TokenService,
	metrics ports.StreamingMetrics,
	publicBaseURL string,
	logger *zap.SugaredLogger,
) *AdminHandler {
	return &AdminHandler{
		sessions:      sessions,
		tokens:        tokens,
		metrics:       metrics,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logger,
	}
}

type GrantRequest struct {
	CameraID  string `json:"camera_id" binding:"required,max=100"`
	CompanyID string `json:"company_id" binding:"required,max=100"`
}

// CreateGrant exchanges a camera reference for a playback URL the
// platform embeds in its incident UI. Issuing a grant does not start
// the stream; the first playlist request does.
func (h *AdminHandler) CreateGrant(c *gin.Context) {
	var req GrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewValidationError("invalid request format"))
		return
	}

	req.CameraID = strings.TrimSpace(req.CameraID)
	req.CompanyID = strings.TrimSpace(req.CompanyID)
	if err := validation.ValidateCameraID(req.CameraID); err != nil {
		c.Error(apperrors.NewValidationError(err.Error()))
		return
	}
	if err := validation.ValidateCompanyID(req.CompanyID); err != nil {
		c.Error(apperrors.NewValidationError(err.Error()))
		return
	}

	signed, token, err := h.tokens.Issue(domain.CameraID(req.CameraID), domain.CompanyID(req.CompanyID))
	if err != nil {
		c.Error(apperrors.NewInternalError("failed to issue playback token").WithCause(err))
		return
	}
	h.metrics.RecordTokenIssued()

	playbackURL := fmt.Sprintf("%s/streams/%s/playlist.m3u8?token=%s",
		h.publicBaseURL, req.CameraID, url.QueryEscape(signed))

	h.logger.Infow("playback grant issued",
		"camera_id", req.CameraID,
		"company_id", req.CompanyID,
		"token_id", token.TokenID,
		"expires_at", token.ExpiresAt)

	c.JSON(http.StatusCreated, gin.H{
		"playback_url": playbackURL,
		"token":        signed,
		"expires_at":   token.ExpiresAt,
	})
}

func (h *AdminHandler) ListSessions(c *gin.Context) {
	sessions := h.sessions.Sessions()
	c.JSON(http.StatusOK, gin.H{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

func (h *AdminHandler) GetSession(c *gin.Context) {
	cameraID := c.Param("camera_id")
	if err := validation.ValidateCameraID(cameraID); err != nil {
		c.Error(apperrors.NewValidationError(err.Error()))
		return
	}

	snap, err := h.sessions.Session(domain.CameraID(cameraID))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": snap})
}

// StopSession is the deliberate teardown: process stopped, output
// removed, table entry gone. The next playlist request starts over.
func (h *AdminHandler) StopSession(c *gin.Context) {
	cameraID := c.Param("camera_id")
	if err := validation.ValidateCameraID(cameraID); err != nil {
		c.Error(apperrors.NewValidationError(err.Error()))
		return
	}

	if err := h.sessions.Stop(c.Request.Context(), domain.CameraID(cameraID)); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "stopped",
		"camera_id": cameraID,
	})
}
