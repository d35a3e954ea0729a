package domain

import (
	"time"
)

// StreamToken is the decoded claim set of a playback token. Tokens are
// bearer credentials scoped to one camera; they carry no user identity.
type StreamToken struct {
	TokenID   string
	CameraID  CameraID
	CompanyID CompanyID
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func (t StreamToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

func (t StreamToken) Matches(cameraID CameraID, companyID CompanyID) bool {
	return t.CameraID == cameraID && t.CompanyID == companyID
}
