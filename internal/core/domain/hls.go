package domain

import "path/filepath"

// HLS output layout. Every session owns exactly one directory under the
// configured base dir; nothing outside the session lifecycle touches it.
const (
	PlaylistFileName   = "index.m3u8"
	SegmentFilePattern = "seg_%06d.ts"
)

// OutputDirFor returns the session directory for a camera:
// <base>/<companyId>/<cameraId>.
func OutputDirFor(base string, companyID CompanyID, cameraID CameraID) string {
	return filepath.Join(base, string(companyID), string(cameraID))
}
