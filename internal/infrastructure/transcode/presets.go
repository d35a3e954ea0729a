package transcode

// encoderArgs maps a configured preset to ffmpeg encoder flags used in
// re-encode mode. Named ladders cover the common camera profiles; any
// other value is passed through as a raw x264 preset.
func encoderArgs(preset string) []string {
	base := []string{"-c:v", "libx264", "-tune", "zerolatency", "-c:a", "aac", "-b:a", "128k"}

	switch preset {
	case "low":
		return append(base, "-preset", "veryfast", "-vf", "scale=-2:480", "-b:v", "800k", "-maxrate", "1000k", "-bufsize", "1600k")
	case "medium":
		return append(base, "-preset", "veryfast", "-vf", "scale=-2:720", "-b:v", "2000k", "-maxrate", "2500k", "-bufsize", "4000k")
	case "high":
		return append(base, "-preset", "fast", "-vf", "scale=-2:1080", "-b:v", "4000k", "-maxrate", "5000k", "-bufsize", "8000k")
	default:
		return append(base, "-preset", preset)
	}
}
