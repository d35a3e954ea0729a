package transcode

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"streamgate/internal/core/domain"
)

// FakeHandle is a ProcessHandle backed by no real process. Tests drive
// its lifecycle through Exit.
type FakeHandle struct {
	mu       sync.Mutex
	exitCode int
	exited   bool
	done     chan struct{}
	onExit   func(code int)
}

func NewFakeHandle() *FakeHandle {
	return &FakeHandle{done: make(chan struct{})}
}

// Exit simulates the subprocess terminating with code. Idempotent; the
// exit callback fires once, like the real monitor goroutine.
func (h *FakeHandle) Exit(code int) {
	h.mu.Lock()
	if h.exited {
		h.mu.Unlock()
		return
	}
	h.exitCode = code
	h.exited = true
	onExit := h.onExit
	h.mu.Unlock()

	close(h.done)
	if onExit != nil {
		onExit(code)
	}
}

func (h *FakeHandle) Stop() error {
	h.Exit(-1)
	return nil
}

func (h *FakeHandle) IsAlive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

func (h *FakeHandle) ExitStatus() (int, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exitCode, h.exited
}

func (h *FakeHandle) Done() <-chan struct{} {
	return h.done
}

// FakeTranscoder records starts and hands out controllable handles so
// session logic can be tested without spawning ffmpeg.
type FakeTranscoder struct {
	mu      sync.Mutex
	starts  int
	handles map[domain.CameraID]*FakeHandle

	// StartErr fails the next Start calls when set.
	StartErr error
	// StartDelay stretches Start to widen concurrency windows in tests.
	StartDelay time.Duration
	// WritePlaylist writes a minimal playlist into the session's output
	// directory on Start, making the session immediately readable.
	WritePlaylist bool
	// OnStart runs inside Start with the session, after the handle is
	// registered.
	OnStart func(session *domain.StreamSession)
}

func NewFakeTranscoder() *FakeTranscoder {
	return &FakeTranscoder{
		handles:       make(map[domain.CameraID]*FakeHandle),
		WritePlaylist: true,
	}
}

func (f *FakeTranscoder) Start(ctx context.Context, session *domain.StreamSession, onExit func(code int)) (domain.ProcessHandle, error) {
	if f.StartDelay > 0 {
		time.Sleep(f.StartDelay)
	}

	f.mu.Lock()
	f.starts++
	if f.StartErr != nil {
		err := f.StartErr
		f.mu.Unlock()
		return nil, err
	}
	handle := NewFakeHandle()
	handle.onExit = onExit
	f.handles[session.CameraID] = handle
	f.mu.Unlock()

	if err := os.MkdirAll(session.OutputDir, 0o755); err != nil {
		return nil, err
	}
	if f.WritePlaylist {
		if err := WriteFakePlaylist(session.OutputDir, 3); err != nil {
			return nil, err
		}
	}
	if f.OnStart != nil {
		f.OnStart(session)
	}
	return handle, nil
}

// Starts reports how many times Start was invoked, including failed
// attempts.
func (f *FakeTranscoder) Starts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

// Handle returns the live handle for a camera, or nil.
func (f *FakeTranscoder) Handle(cameraID domain.CameraID) *FakeHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handles[cameraID]
}

// Crash terminates the camera's fake process with code, firing the exit
// callback exactly as a real crash would.
func (f *FakeTranscoder) Crash(cameraID domain.CameraID, code int) {
	f.mu.Lock()
	handle := f.handles[cameraID]
	f.mu.Unlock()
	if handle != nil {
		handle.Exit(code)
	}
}

// WriteFakePlaylist drops a small valid playlist plus its segments into
// dir, mimicking a transcoder that has produced output.
func WriteFakePlaylist(dir string, segments int) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	body := "#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:2\n#EXT-X-MEDIA-SEQUENCE:0\n"
	for i := 0; i < segments; i++ {
		name := SegmentName(i)
		body += "#EXTINF:2.000,\n" + name + "\n"
		if err := os.WriteFile(filepath.Join(dir, name), []byte("segment-bytes"), 0o644); err != nil {
			return err
		}
	}
	return os.WriteFile(filepath.Join(dir, PlaylistName), []byte(body), 0o644)
}

// SegmentName expands the segment pattern for index i.
func SegmentName(i int) string {
	return fmt.Sprintf(SegmentPattern, i)
}
