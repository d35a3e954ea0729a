package transcode

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"streamgate/internal/core/domain"
	"streamgate/pkg/tracing"
	"streamgate/pkg/utils"
)

// SegmentPattern is the file name template ffmpeg expands per segment.
const SegmentPattern = domain.SegmentFilePattern

// PlaylistName is the playlist file every session writes.
const PlaylistName = domain.PlaylistFileName

type Config struct {
	FFmpegPath     string
	SegmentSeconds int
	PlaylistLength int
}

// FFmpeg starts and supervises ffmpeg subprocesses that pull RTSP and
// write HLS into the session's output directory. It never deletes the
// directory; reclamation belongs to the session manager.
type FFmpeg struct {
	cfg    Config
	logger *zap.SugaredLogger
}

func NewFFmpeg(cfg Config, logger *zap.SugaredLogger) *FFmpeg {
	return &FFmpeg{
		cfg:    cfg,
		logger: logger,
	}
}

func (f *FFmpeg) Start(ctx context.Context, session *domain.StreamSession, onExit func(code int)) (domain.ProcessHandle, error) {
	ctx, span := tracing.TraceTranscodeOperation(ctx, "start", string(session.CameraID))
	defer span.End()

	if err := os.MkdirAll(session.OutputDir, 0o755); err != nil {
		err = fmt.Errorf("create output dir %s: %w", session.OutputDir, err)
		tracing.RecordError(ctx, err)
		return nil, err
	}

	// The subprocess outlives the request that triggered it, so it runs
	// on its own context rather than the caller's.
	procCtx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(procCtx, f.cfg.FFmpegPath, f.buildArgs(session)...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		err = fmt.Errorf("start %s: %w", f.cfg.FFmpegPath, err)
		tracing.RecordError(ctx, err)
		return nil, err
	}

	f.logger.Infow("transcoder started",
		"camera_id", session.CameraID,
		"session_id", session.ID,
		"pid", cmd.Process.Pid,
		"source", utils.MaskRTSPURL(session.RTSPURL),
		"transport", session.Transport,
		"mode", session.Mode,
	)

	handle := newProcessHandle(cmd, cancel)
	go f.scanStderr(session, stderr)
	go f.monitor(session, handle, onExit)

	return handle, nil
}

func (f *FFmpeg) buildArgs(session *domain.StreamSession) []string {
	args := []string{
		"-hide_banner",
		"-loglevel", "warning",
		"-rtsp_transport", string(session.Transport),
		"-i", session.RTSPURL,
	}

	if session.Mode == domain.ModeCopy {
		args = append(args, "-c", "copy")
	} else {
		args = append(args, encoderArgs(session.Preset)...)
	}

	args = append(args,
		"-f", "hls",
		"-hls_time", strconv.Itoa(f.cfg.SegmentSeconds),
		"-hls_list_size", strconv.Itoa(f.cfg.PlaylistLength),
		"-hls_flags", "delete_segments+independent_segments",
		"-hls_segment_type", "mpegts",
		"-hls_segment_filename", filepath.Join(session.OutputDir, SegmentPattern),
		session.PlaylistPath,
	)
	return args
}

// scanStderr drains ffmpeg's stderr so the process never blocks on a
// full pipe, surfacing its complaints at debug level.
func (f *FFmpeg) scanStderr(session *domain.StreamSession, r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)
	for scanner.Scan() {
		f.logger.Debugw("ffmpeg",
			"camera_id", session.CameraID,
			"line", utils.SanitizeString(scanner.Text()),
		)
	}
}

func (f *FFmpeg) monitor(session *domain.StreamSession, handle *processHandle, onExit func(code int)) {
	err := handle.cmd.Wait()

	code := 0
	if state := handle.cmd.ProcessState; state != nil {
		code = state.ExitCode()
	}
	handle.markExited(code)

	f.logger.Infow("transcoder exited",
		"camera_id", session.CameraID,
		"session_id", session.ID,
		"exit_code", code,
		"error", err,
	)

	if onExit != nil {
		onExit(code)
	}
}
