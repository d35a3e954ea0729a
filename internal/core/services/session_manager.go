package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"
	"streamgate/pkg/tracing"
	"streamgate/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// SessionConfig carries the tunables of the session table.
type SessionConfig struct {
	OutputDir           string
	IdleTimeout         time.Duration
	StartupWait         time.Duration
	StartupPollInterval time.Duration
	EvictionGrace       time.Duration
	MaxProcesses        int
	DefaultTransport    domain.Transport
	DefaultMode         domain.TranscodeMode
	Preset              string
}

// sessionManager owns the session table. Every mutation of a session
// goes through m.mu; the table is the single source of truth for which
// transcode processes exist.
type sessionManager struct {
	cfg        SessionConfig
	directory  ports.CameraDirectory
	transcoder ports.Transcoder
	audit      ports.AuditSink
	metrics    ports.MetricsCollector
	clock      Clock
	log        *zap.SugaredLogger

	mu       sync.RWMutex
	sessions map[domain.CameraID]*domain.StreamSession
	closed   bool

	flight singleflight.Group
}

func NewSessionManager(
	cfg SessionConfig,
	directory ports.CameraDirectory,
	transcoder ports.Transcoder,
	audit ports.AuditSink,
	metrics ports.MetricsCollector,
	clock Clock,
	log *zap.SugaredLogger,
) ports.SessionManager {
	return &sessionManager{
		cfg:        cfg,
		directory:  directory,
		transcoder: transcoder,
		audit:      audit,
		metrics:    metrics,
		clock:      clock,
		log:        log,
		sessions:   make(map[domain.CameraID]*domain.StreamSession),
	}
}

func (m *sessionManager) GetOrCreate(ctx context.Context, cameraID domain.CameraID, companyID domain.CompanyID) (*domain.StreamSession, error) {
	m.mu.Lock()
	if s, ok := m.sessions[cameraID]; ok && !s.State.Terminal() {
		if s.CompanyID != companyID {
			m.mu.Unlock()
			return nil, domain.ErrCameraNotFound
		}
		s.Touch(m.clock.Now(), m.cfg.IdleTimeout)
		m.mu.Unlock()
		return s, nil
	}
	m.mu.Unlock()

	v, err, _ := m.flight.Do(string(cameraID), func() (interface{}, error) {
		return m.create(ctx, cameraID, companyID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.StreamSession), nil
}

// create runs inside the single-flight group: at most one invocation per
// camera at a time. Creation is shared by every concurrent caller, so it
// must not be cancelled by any one caller's disconnect.
func (m *sessionManager) create(ctx context.Context, cameraID domain.CameraID, companyID domain.CompanyID) (*domain.StreamSession, error) {
	ctx, span := tracing.TraceSessionOperation(ctx, "create", string(cameraID), string(companyID))
	defer span.End()
	ctx = context.WithoutCancel(ctx)

	camera, err := m.directory.Lookup(ctx, cameraID, companyID)
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, err
	}

	now := m.clock.Now()
	session := &domain.StreamSession{
		ID:           domain.SessionID(uuid.New().String()),
		CameraID:     cameraID,
		CompanyID:    companyID,
		RTSPURL:      camera.SourceURL(),
		Transport:    m.cfg.DefaultTransport,
		Mode:         m.cfg.DefaultMode,
		Preset:       m.cfg.Preset,
		OutputDir:    domain.OutputDirFor(m.cfg.OutputDir, companyID, cameraID),
		State:        domain.StateStarting,
		CreatedAt:    now,
		LastAccessAt: now,
		IdleDeadline: now.Add(m.cfg.IdleTimeout),
	}
	session.PlaylistPath = filepath.Join(session.OutputDir, domain.PlaylistFileName)
	if camera.Transport != "" {
		session.Transport = camera.Transport
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: manager is shut down", domain.ErrSessionStartFailed)
	}
	var leftover, victim *domain.StreamSession
	if existing, ok := m.sessions[cameraID]; ok {
		if !existing.State.Terminal() {
			if existing.CompanyID != companyID {
				m.mu.Unlock()
				return nil, domain.ErrCameraNotFound
			}
			existing.Touch(now, m.cfg.IdleTimeout)
			m.mu.Unlock()
			return existing, nil
		}
		// Crashed leftover: finish its teardown before replacing it.
		delete(m.sessions, cameraID)
		leftover = existing
	}
	if m.activeLocked() >= m.cfg.MaxProcesses {
		victim = m.evictionCandidateLocked(now)
		if victim == nil {
			m.mu.Unlock()
			return nil, domain.ErrMaxProcessesExceeded
		}
		victim.State = domain.StateStopped
		delete(m.sessions, victim.CameraID)
	}
	// Reserve the slot before the blocking work so concurrent creations
	// for other cameras see the cap correctly.
	m.sessions[cameraID] = session
	m.mu.Unlock()

	if leftover != nil {
		m.cleanup(leftover)
	}
	if victim != nil {
		m.cleanup(victim)
		m.metrics.RecordSessionEnded(victim.CameraID, "evicted", now.Sub(victim.CreatedAt))
		m.emit(ctx, domain.EventSessionEvicted, victim, map[string]string{
			"reason":      "capacity",
			"replaced_by": string(cameraID),
		})
		m.log.Infow("session evicted",
			"camera_id", victim.CameraID,
			"session_id", victim.ID,
			"replaced_by", cameraID,
			"last_access_at", victim.LastAccessAt)
	}

	handle, err := m.transcoder.Start(ctx, session, func(code int) {
		m.handleExit(cameraID, session.ID, code)
	})
	if err != nil {
		m.mu.Lock()
		session.State = domain.StateError
		if cur, ok := m.sessions[cameraID]; ok && cur.ID == session.ID {
			delete(m.sessions, cameraID)
		}
		m.mu.Unlock()
		m.metrics.RecordStartFailure()
		m.emit(ctx, domain.EventSessionStartFailed, session, map[string]string{"error": err.Error()})
		m.log.Errorw("transcode start failed",
			"camera_id", cameraID,
			"rtsp_url", utils.MaskRTSPURL(session.RTSPURL),
			"error", err)
		tracing.RecordError(ctx, err)
		return nil, fmt.Errorf("%w: %v", domain.ErrSessionStartFailed, err)
	}

	m.mu.Lock()
	cur, ok := m.sessions[cameraID]
	if !ok || cur.ID != session.ID {
		// Torn down while starting; the fresh process must not outlive
		// its table entry.
		m.mu.Unlock()
		_ = handle.Stop()
		return nil, fmt.Errorf("%w: session removed during startup", domain.ErrSessionStartFailed)
	}
	session.Handle = handle
	if session.State.Terminal() {
		// The process died before the handle was attached; the exit
		// monitor has already recorded it.
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: process exited immediately", domain.ErrSessionStartFailed)
	}
	m.mu.Unlock()

	m.metrics.RecordSessionStarted(cameraID)
	m.emit(ctx, domain.EventSessionStarted, session, map[string]string{
		"transport": string(session.Transport),
		"mode":      string(session.Mode),
	})
	m.log.Infow("session started",
		"camera_id", cameraID,
		"company_id", companyID,
		"session_id", session.ID,
		"rtsp_url", utils.MaskRTSPURL(session.RTSPURL),
		"transport", session.Transport,
		"mode", session.Mode)
	return session, nil
}

// WaitReady blocks until the session's playlist holds at least one
// segment, the process dies, or the startup window elapses. It never
// waits past the configured bound.
func (m *sessionManager) WaitReady(ctx context.Context, session *domain.StreamSession) error {
	if m.sessionState(session) == domain.StateReady {
		return nil
	}

	timeout := time.NewTimer(m.cfg.StartupWait)
	defer timeout.Stop()
	tick := time.NewTicker(m.cfg.StartupPollInterval)
	defer tick.Stop()

	for {
		switch state := m.sessionState(session); {
		case state == domain.StateReady:
			return nil
		case state.Terminal():
			return fmt.Errorf("%w: process exited during startup", domain.ErrSessionStartFailed)
		}

		if handle := m.sessionHandle(session); handle != nil {
			select {
			case <-handle.Done():
				if code, exited := handle.ExitStatus(); exited {
					return fmt.Errorf("%w: process exited with code %d during startup", domain.ErrSessionStartFailed, code)
				}
				return fmt.Errorf("%w: process exited during startup", domain.ErrSessionStartFailed)
			default:
			}
		}

		if playlistReady(session.PlaylistPath) {
			m.markReady(ctx, session)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout.C:
			return domain.ErrNotReadyYet
		case <-tick.C:
		}
	}
}

func (m *sessionManager) markReady(ctx context.Context, session *domain.StreamSession) {
	m.mu.Lock()
	if session.State != domain.StateStarting {
		m.mu.Unlock()
		return
	}
	session.State = domain.StateReady
	wait := m.clock.Now().Sub(session.CreatedAt)
	m.mu.Unlock()

	m.metrics.RecordSessionReady(wait)
	m.emit(ctx, domain.EventSessionReady, session, map[string]string{
		"startup_wait": wait.String(),
	})
	m.log.Infow("session ready",
		"camera_id", session.CameraID,
		"session_id", session.ID,
		"startup_wait", wait)
}

func (m *sessionManager) Touch(cameraID domain.CameraID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[cameraID]; ok && !s.State.Terminal() {
		s.Touch(m.clock.Now(), m.cfg.IdleTimeout)
	}
}

func (m *sessionManager) Stop(ctx context.Context, cameraID domain.CameraID) error {
	ctx, span := tracing.TraceSessionOperation(ctx, "stop", string(cameraID), "")
	defer span.End()

	m.mu.Lock()
	s, ok := m.sessions[cameraID]
	if !ok {
		m.mu.Unlock()
		return domain.ErrSessionNotFound
	}
	wasTerminal := s.State.Terminal()
	s.State = domain.StateStopped
	delete(m.sessions, cameraID)
	lifetime := m.clock.Now().Sub(s.CreatedAt)
	m.mu.Unlock()

	m.cleanup(s)
	if !wasTerminal {
		m.metrics.RecordSessionEnded(cameraID, "stopped", lifetime)
		m.emit(ctx, domain.EventSessionStopped, s, nil)
	}
	m.log.Infow("session stopped", "camera_id", cameraID, "session_id", s.ID)
	return nil
}

// EvictIdleBefore reclaims every session whose idle deadline lies before
// now. Crashed leftovers past their deadline are collected silently;
// live sessions transition to idle_expired and are audited.
func (m *sessionManager) EvictIdleBefore(ctx context.Context, now time.Time) int {
	m.mu.Lock()
	var expired []*domain.StreamSession
	for id, s := range m.sessions {
		if !s.IdleExpired(now) {
			continue
		}
		if !s.State.Terminal() {
			s.State = domain.StateIdleExpired
		}
		delete(m.sessions, id)
		expired = append(expired, s)
	}
	m.mu.Unlock()

	for _, s := range expired {
		m.cleanup(s)
		if s.State == domain.StateIdleExpired {
			m.metrics.RecordSessionEnded(s.CameraID, "expired", now.Sub(s.CreatedAt))
			m.emit(ctx, domain.EventSessionExpired, s, map[string]string{
				"idle_deadline": s.IdleDeadline.Format(time.RFC3339),
			})
			m.log.Infow("session expired",
				"camera_id", s.CameraID,
				"session_id", s.ID,
				"idle_deadline", s.IdleDeadline)
		}
	}
	return len(expired)
}

func (m *sessionManager) Session(cameraID domain.CameraID) (domain.SessionSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[cameraID]
	if !ok {
		return domain.SessionSnapshot{}, domain.ErrSessionNotFound
	}
	return s.Snapshot(), nil
}

func (m *sessionManager) Sessions() []domain.SessionSnapshot {
	m.mu.RLock()
	snapshots := make([]domain.SessionSnapshot, 0, len(m.sessions))
	for _, s := range m.sessions {
		snapshots = append(snapshots, s.Snapshot())
	}
	m.mu.RUnlock()

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].CameraID < snapshots[j].CameraID
	})
	return snapshots
}

// Shutdown stops every session in parallel and waits for the teardowns
// to finish or the context to expire.
func (m *sessionManager) Shutdown(ctx context.Context) {
	now := m.clock.Now()

	m.mu.Lock()
	m.closed = true
	type leaving struct {
		session     *domain.StreamSession
		wasTerminal bool
	}
	remaining := make([]leaving, 0, len(m.sessions))
	for id, s := range m.sessions {
		wasTerminal := s.State.Terminal()
		if !wasTerminal {
			s.State = domain.StateStopped
		}
		delete(m.sessions, id)
		remaining = append(remaining, leaving{session: s, wasTerminal: wasTerminal})
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, l := range remaining {
		wg.Add(1)
		go func(l leaving) {
			defer wg.Done()
			m.cleanup(l.session)
			if !l.wasTerminal {
				m.metrics.RecordSessionEnded(l.session.CameraID, "shutdown", now.Sub(l.session.CreatedAt))
				m.emit(ctx, domain.EventSessionStopped, l.session, map[string]string{"reason": "shutdown"})
			}
		}(l)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		m.log.Infow("session manager shut down", "stopped", len(remaining))
	case <-ctx.Done():
		m.log.Warnw("session manager shutdown timed out", "stopping", len(remaining))
	}
}

// handleExit is called from the process monitor goroutine. A deliberate
// teardown removes the table entry (or marks the state terminal) before
// stopping the process, so anything still present here died on its own.
func (m *sessionManager) handleExit(cameraID domain.CameraID, sessionID domain.SessionID, code int) {
	m.mu.Lock()
	s, ok := m.sessions[cameraID]
	if !ok || s.ID != sessionID || s.State.Terminal() {
		m.mu.Unlock()
		return
	}
	prev := s.State
	s.State = domain.StateError
	m.mu.Unlock()

	m.metrics.RecordProcessCrashed(cameraID)
	detail := map[string]string{"exit_code": strconv.Itoa(code)}
	if prev == domain.StateStarting {
		m.emit(context.Background(), domain.EventSessionStartFailed, s, detail)
	} else {
		m.emit(context.Background(), domain.EventProcessCrashed, s, detail)
	}
	m.log.Errorw("transcode process exited unexpectedly",
		"camera_id", cameraID,
		"session_id", sessionID,
		"exit_code", code,
		"previous_state", prev)
}

// cleanup stops the subprocess and removes the output directory. Safe to
// call on sessions that never started or already died.
func (m *sessionManager) cleanup(s *domain.StreamSession) {
	if handle := m.sessionHandle(s); handle != nil {
		if err := handle.Stop(); err != nil {
			m.log.Debugw("process stop", "camera_id", s.CameraID, "error", err)
		}
	}
	if s.OutputDir != "" {
		if err := os.RemoveAll(s.OutputDir); err != nil {
			m.log.Warnw("failed to remove session output dir",
				"camera_id", s.CameraID,
				"dir", s.OutputDir,
				"error", err)
		}
	}
}

func (m *sessionManager) activeLocked() int {
	n := 0
	for _, s := range m.sessions {
		if !s.State.Terminal() {
			n++
		}
	}
	return n
}

// evictionCandidateLocked picks the least-recently-accessed session that
// has been idle longer than the grace period.
func (m *sessionManager) evictionCandidateLocked(now time.Time) *domain.StreamSession {
	var victim *domain.StreamSession
	for _, s := range m.sessions {
		if s.State.Terminal() {
			continue
		}
		if now.Sub(s.LastAccessAt) <= m.cfg.EvictionGrace {
			continue
		}
		if victim == nil || s.LastAccessAt.Before(victim.LastAccessAt) {
			victim = s
		}
	}
	return victim
}

func (m *sessionManager) sessionState(s *domain.StreamSession) domain.SessionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return s.State
}

func (m *sessionManager) sessionHandle(s *domain.StreamSession) domain.ProcessHandle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return s.Handle
}

func (m *sessionManager) emit(ctx context.Context, typ domain.AuditEventType, s *domain.StreamSession, detail map[string]string) {
	event := &domain.AuditEvent{
		ID:        utils.GenerateID("evt"),
		Type:      typ,
		CameraID:  s.CameraID,
		CompanyID: s.CompanyID,
		SessionID: s.ID,
		Timestamp: m.clock.Now(),
		Detail:    detail,
	}
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := m.audit.Record(recordCtx, event); err != nil {
		m.log.Warnw("audit record failed", "type", typ, "error", err)
	}
}

// playlistReady reports whether the playlist exists and references at
// least one segment.
func playlistReady(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return strings.Contains(string(data), "#EXTINF")
}
