package transcode

import (
	"context"
	"os/exec"
	"sync"
	"time"
)

const stopTimeout = 3 * time.Second

// processHandle owns one running ffmpeg command. The monitor goroutine
// closes done after Wait returns and the exit status is recorded.
type processHandle struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	exitCode int
	exited   bool
}

func newProcessHandle(cmd *exec.Cmd, cancel context.CancelFunc) *processHandle {
	return &processHandle{
		cmd:    cmd,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

func (h *processHandle) markExited(code int) {
	h.mu.Lock()
	h.exitCode = code
	h.exited = true
	h.mu.Unlock()
	close(h.done)
}

// Stop terminates the subprocess and waits for the monitor to observe
// the exit. Safe to call more than once.
func (h *processHandle) Stop() error {
	h.cancel()
	select {
	case <-h.done:
		return nil
	case <-time.After(stopTimeout):
		if h.cmd.Process != nil {
			_ = h.cmd.Process.Kill()
		}
		<-h.done
		return nil
	}
}

func (h *processHandle) IsAlive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

func (h *processHandle) ExitStatus() (int, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exitCode, h.exited
}

func (h *processHandle) Done() <-chan struct{} {
	return h.done
}
