package domain

import (
	"time"
)

type CameraID string
type CompanyID string
type SessionID string

type Transport string

const (
	TransportTCP Transport = "tcp"
	TransportUDP Transport = "udp"
)

type TranscodeMode string

const (
	ModeCopy     TranscodeMode = "copy"
	ModeReencode TranscodeMode = "reencode"
)

type SessionState string

const (
	StateStarting    SessionState = "starting"
	StateReady       SessionState = "ready"
	StateIdleExpired SessionState = "idle_expired"
	StateStopped     SessionState = "stopped"
	StateError       SessionState = "error"
)

type StreamSession struct {
	ID           SessionID
	CameraID     CameraID
	CompanyID    CompanyID
	RTSPURL      string
	Transport    Transport
	Mode         TranscodeMode
	Preset       string
	OutputDir    string
	PlaylistPath string
	Handle       ProcessHandle
	State        SessionState
	CreatedAt    time.Time
	LastAccessAt time.Time
	IdleDeadline time.Time
}

// Touch refreshes the access time and pushes the idle deadline forward.
// The deadline never moves backwards.
func (s *StreamSession) Touch(now time.Time, idleTimeout time.Duration) {
	s.LastAccessAt = now
	deadline := now.Add(idleTimeout)
	if deadline.After(s.IdleDeadline) {
		s.IdleDeadline = deadline
	}
}

func (s *StreamSession) IdleExpired(now time.Time) bool {
	return s.IdleDeadline.Before(now)
}

func (st SessionState) Terminal() bool {
	return st == StateStopped || st == StateError
}

// SessionSnapshot is a copy of session state safe to hand outside the
// manager's lock.
type SessionSnapshot struct {
	ID           SessionID     `json:"id"`
	CameraID     CameraID      `json:"camera_id"`
	CompanyID    CompanyID     `json:"company_id"`
	Transport    Transport     `json:"transport"`
	Mode         TranscodeMode `json:"mode"`
	State        SessionState  `json:"state"`
	CreatedAt    time.Time     `json:"created_at"`
	LastAccessAt time.Time     `json:"last_access_at"`
	IdleDeadline time.Time     `json:"idle_deadline"`
	ProcessAlive bool          `json:"process_alive"`
}

func (s *StreamSession) Snapshot() SessionSnapshot {
	snap := SessionSnapshot{
		ID:           s.ID,
		CameraID:     s.CameraID,
		CompanyID:    s.CompanyID,
		Transport:    s.Transport,
		Mode:         s.Mode,
		State:        s.State,
		CreatedAt:    s.CreatedAt,
		LastAccessAt: s.LastAccessAt,
		IdleDeadline: s.IdleDeadline,
	}
	if s.Handle != nil {
		snap.ProcessAlive = s.Handle.IsAlive()
	}
	return snap
}
