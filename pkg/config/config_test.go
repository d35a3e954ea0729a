package config

import (
	"os"
	"path/filepath"
	"testing"
)

// helper to build a minimal valid config that can be tweaked in tests.
func validBaseConfig() *Config {
	cfg := DefaultConfig()
	cfg.Auth.TokenSecret = "test-secret"
	return cfg
}

func TestDefaultConfig_IsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("expected default config to validate, got error: %v", err)
	}
}

func TestValidate_InvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name: "server address must not be empty",
			mutate: func(c *Config) {
				c.Server.Address = ""
			},
		},
		{
			name: "public base url must not be empty",
			mutate: func(c *Config) {
				c.Server.PublicBaseURL = ""
			},
		},
		{
			name: "output dir must not be empty",
			mutate: func(c *Config) {
				c.Streams.OutputDir = ""
			},
		},
		{
			name: "idle timeout must be > 0",
			mutate: func(c *Config) {
				c.Streams.IdleTimeout = 0
			},
		},
		{
			name: "startup poll must be shorter than startup wait",
			mutate: func(c *Config) {
				c.Streams.StartupPollInterval = c.Streams.StartupWait
			},
		},
		{
			name: "max processes must be > 0",
			mutate: func(c *Config) {
				c.Streams.MaxProcesses = 0
			},
		},
		{
			name: "transcode mode must be copy or reencode",
			mutate: func(c *Config) {
				c.Transcode.Mode = "h264"
			},
		},
		{
			name: "reencode requires a preset",
			mutate: func(c *Config) {
				c.Transcode.Mode = "reencode"
				c.Transcode.Preset = ""
			},
		},
		{
			name: "transport must be tcp or udp",
			mutate: func(c *Config) {
				c.Transcode.Transport = "multicast"
			},
		},
		{
			name: "token secret must not be empty",
			mutate: func(c *Config) {
				c.Auth.TokenSecret = ""
			},
		},
		{
			name: "token ttl must be > 0",
			mutate: func(c *Config) {
				c.Auth.TokenTTL = 0
			},
		},
		{
			name: "http camera provider requires endpoint",
			mutate: func(c *Config) {
				c.Cameras.Provider = "http"
				c.Cameras.Endpoint = ""
			},
		},
		{
			name: "unknown camera provider rejected",
			mutate: func(c *Config) {
				c.Cameras.Provider = "ldap"
			},
		},
		{
			name: "static camera entries must be complete",
			mutate: func(c *Config) {
				c.Cameras.Static = []StaticCamera{{ID: "cam-1"}}
			},
		},
		{
			name: "redis audit requires address",
			mutate: func(c *Config) {
				c.Audit.Backend = "redis"
				c.Audit.Redis.Address = ""
			},
		},
		{
			name: "unknown audit backend rejected",
			mutate: func(c *Config) {
				c.Audit.Backend = "kafka"
			},
		},
		{
			name: "tracing sample rate bounded",
			mutate: func(c *Config) {
				c.Tracing.Enabled = true
				c.Tracing.SampleRate = 1.5
			},
		},
		{
			name: "rate limiting rps must be > 0 when enabled",
			mutate: func(c *Config) {
				c.RateLimiting.Enabled = true
				c.RateLimiting.RequestsPerSecond = 0
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validBaseConfig()
			tc.mutate(cfg)

			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error for case %q, got nil", tc.name)
			}
		})
	}
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load with missing file should not fail, got: %v", err)
	}
	if cfg.Server.Address != ":8080" {
		t.Errorf("Server.Address = %v, want :8080", cfg.Server.Address)
	}
	if cfg.Transcode.Mode != "copy" {
		t.Errorf("Transcode.Mode = %v, want copy", cfg.Transcode.Mode)
	}
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
server:
  address: ":9090"
streams:
  max_processes: 3
transcode:
  mode: reencode
  preset: fast
cameras:
  provider: static
  static:
    - id: cam-1
      company_id: acme
      rtsp_url: rtsp://10.0.0.5:554/main
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("STREAMGATE_SERVER_ADDRESS", ":7070")
	t.Setenv("STREAMGATE_TOKEN_SECRET", "env-secret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// env beats file
	if cfg.Server.Address != ":7070" {
		t.Errorf("Server.Address = %v, want :7070", cfg.Server.Address)
	}
	if cfg.Auth.TokenSecret != "env-secret" {
		t.Errorf("Auth.TokenSecret = %v, want env-secret", cfg.Auth.TokenSecret)
	}
	if cfg.Streams.MaxProcesses != 3 {
		t.Errorf("Streams.MaxProcesses = %v, want 3", cfg.Streams.MaxProcesses)
	}
	if cfg.Transcode.Preset != "fast" {
		t.Errorf("Transcode.Preset = %v, want fast", cfg.Transcode.Preset)
	}
	if len(cfg.Cameras.Static) != 1 || cfg.Cameras.Static[0].CompanyID != "acme" {
		t.Errorf("Cameras.Static not parsed: %+v", cfg.Cameras.Static)
	}
	// untouched fields keep defaults
	if cfg.Streams.SegmentSeconds != 2 {
		t.Errorf("Streams.SegmentSeconds = %v, want default 2", cfg.Streams.SegmentSeconds)
	}
}

func TestLoad_RejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
transcode:
  mode: vp9
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected Load to reject invalid transcode.mode")
	}
}
