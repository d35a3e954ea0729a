package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	// CameraIDRegex validates camera ID format
	CameraIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	// CompanyIDRegex validates company ID format
	CompanyIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	// SegmentNameRegex validates HLS segment file names. Anything that
	// does not match stays away from the filesystem.
	SegmentNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+\.ts$`)
)

// ValidateCameraID validates camera ID
func ValidateCameraID(cameraID string) error {
	if cameraID == "" {
		return fmt.Errorf("camera ID is required")
	}
	if len(cameraID) > 100 {
		return fmt.Errorf("camera ID is too long (max 100 characters)")
	}
	if !CameraIDRegex.MatchString(cameraID) {
		return fmt.Errorf("invalid camera ID format")
	}
	return nil
}

// ValidateCompanyID validates company ID
func ValidateCompanyID(companyID string) error {
	if companyID == "" {
		return fmt.Errorf("company ID is required")
	}
	if len(companyID) > 100 {
		return fmt.Errorf("company ID is too long (max 100 characters)")
	}
	if !CompanyIDRegex.MatchString(companyID) {
		return fmt.Errorf("invalid company ID format")
	}
	return nil
}

// ValidateSegmentName validates a requested HLS segment file name
func ValidateSegmentName(name string) error {
	if name == "" {
		return fmt.Errorf("segment name is required")
	}
	if len(name) > 100 {
		return fmt.Errorf("segment name is too long (max 100 characters)")
	}
	if strings.Contains(name, "/") || strings.Contains(name, "..") {
		return fmt.Errorf("invalid segment name")
	}
	if !SegmentNameRegex.MatchString(name) {
		return fmt.Errorf("invalid segment name format")
	}
	return nil
}

// ValidateRTSPURL validates RTSP source URL format
func ValidateRTSPURL(urlStr string) error {
	if urlStr == "" {
		return fmt.Errorf("RTSP URL is required")
	}
	u, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid RTSP URL format: %w", err)
	}
	if u.Scheme != "rtsp" && u.Scheme != "rtsps" {
		return fmt.Errorf("invalid RTSP URL scheme (must be rtsp or rtsps)")
	}
	if u.Host == "" {
		return fmt.Errorf("RTSP URL must have a host")
	}
	return nil
}

// ValidateTransport validates RTSP transport selection
func ValidateTransport(transport string) error {
	if transport != "tcp" && transport != "udp" {
		return fmt.Errorf("invalid transport (must be tcp or udp)")
	}
	return nil
}

// ValidateTranscodeMode validates transcode mode selection
func ValidateTranscodeMode(mode string) error {
	if mode != "copy" && mode != "reencode" {
		return fmt.Errorf("invalid transcode mode (must be copy or reencode)")
	}
	return nil
}
