package cameras

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"streamgate/internal/core/domain"
	"streamgate/pkg/tracing"
	"streamgate/pkg/utils"
	"streamgate/pkg/validation"

	"go.uber.org/zap"
)

// HTTPDirectory resolves cameras against the platform's
// camera-management service.
type HTTPDirectory struct {
	endpoint   string
	serviceKey string
	client     *http.Client
	log        *zap.SugaredLogger
}

func NewHTTPDirectory(endpoint, serviceKey string, timeout time.Duration, log *zap.SugaredLogger) *HTTPDirectory {
	return &HTTPDirectory{
		endpoint:   strings.TrimRight(endpoint, "/"),
		serviceKey: serviceKey,
		client:     &http.Client{Timeout: timeout},
		log:        log,
	}
}

type cameraPayload struct {
	ID        string `json:"id"`
	CompanyID string `json:"company_id"`
	Name      string `json:"name"`
	RTSPURL   string `json:"rtsp_url"`
	Transport string `json:"transport"`
	Username  string `json:"username"`
	Password  string `json:"password"`
}

func (d *HTTPDirectory) Lookup(ctx context.Context, cameraID domain.CameraID, companyID domain.CompanyID) (*domain.Camera, error) {
	ctx, span := tracing.TraceDirectoryLookup(ctx, string(cameraID), string(companyID))
	defer span.End()

	reqURL := fmt.Sprintf("%s/cameras/%s?company_id=%s",
		d.endpoint, url.PathEscape(string(cameraID)), url.QueryEscape(string(companyID)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build camera lookup request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if d.serviceKey != "" {
		req.Header.Set("Authorization", "Bearer "+d.serviceKey)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, fmt.Errorf("camera service unreachable: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrCameraNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("camera service returned status %d: %s",
			resp.StatusCode, utils.TruncateString(string(body), 200))
	}

	var payload cameraPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode camera payload: %w", err)
	}
	// The service must not hand out another tenant's camera; treat a
	// mismatch as absence.
	if payload.CompanyID != string(companyID) {
		d.log.Warnw("camera service returned camera for wrong company",
			"camera_id", cameraID,
			"requested_company", companyID,
			"returned_company", payload.CompanyID)
		return nil, domain.ErrCameraNotFound
	}
	if err := validation.ValidateRTSPURL(payload.RTSPURL); err != nil {
		return nil, fmt.Errorf("camera %s has invalid rtsp url: %w", cameraID, err)
	}

	return &domain.Camera{
		ID:        domain.CameraID(payload.ID),
		CompanyID: domain.CompanyID(payload.CompanyID),
		Name:      payload.Name,
		RTSPURL:   payload.RTSPURL,
		Transport: domain.Transport(payload.Transport),
		Username:  payload.Username,
		Password:  payload.Password,
	}, nil
}
