package domain

import (
	"net/url"
)

type Camera struct {
	ID        CameraID
	CompanyID CompanyID
	Name      string
	RTSPURL   string
	Transport Transport
	Username  string
	Password  string
}

// SourceURL returns the RTSP URL with the camera credentials folded in.
// Credentials already present in the URL are left alone.
func (c Camera) SourceURL() string {
	if c.Username == "" {
		return c.RTSPURL
	}
	u, err := url.Parse(c.RTSPURL)
	if err != nil || u.User != nil {
		return c.RTSPURL
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.Username, c.Password)
	} else {
		u.User = url.User(c.Username)
	}
	return u.String()
}
