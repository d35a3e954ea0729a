package domain

import "errors"

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionStartFailed   = errors.New("session start failed")
	ErrProcessCrashed       = errors.New("transcode process crashed")
	ErrMaxProcessesExceeded = errors.New("max concurrent transcode processes reached")
	ErrTokenInvalid         = errors.New("token invalid or expired")
	ErrNotReadyYet          = errors.New("stream not ready yet")
	ErrSegmentNotFound      = errors.New("segment not found")
	ErrCameraNotFound       = errors.New("camera not found")
)
