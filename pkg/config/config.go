package config

import (
	"fmt"
	"os"
	"time"

	"streamgate/pkg/validation"

	"gopkg.in/yaml.v2"
)

type StaticCamera struct {
	ID        string `yaml:"id"`
	CompanyID string `yaml:"company_id"`
	Name      string `yaml:"name,omitempty"`
	RTSPURL   string `yaml:"rtsp_url"`
	Transport string `yaml:"transport,omitempty"`
	Username  string `yaml:"username,omitempty"`
	Password  string `yaml:"password,omitempty"`
}

type Config struct {
	Server struct {
		Address         string        `yaml:"address"`
		PublicBaseURL   string        `yaml:"public_base_url"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Streams struct {
		OutputDir           string        `yaml:"output_dir"`
		IdleTimeout         time.Duration `yaml:"idle_timeout"`
		StartupWait         time.Duration `yaml:"startup_wait"`
		StartupPollInterval time.Duration `yaml:"startup_poll_interval"`
		EvictionGrace       time.Duration `yaml:"eviction_grace"`
		SweepInterval       time.Duration `yaml:"sweep_interval"`
		MaxProcesses        int           `yaml:"max_processes"`
		SegmentSeconds      int           `yaml:"segment_seconds"`
		PlaylistLength      int           `yaml:"playlist_length"`
	} `yaml:"streams"`

	Transcode struct {
		FFmpegPath string `yaml:"ffmpeg_path"`
		Mode       string `yaml:"mode"`
		Preset     string `yaml:"preset"`
		Transport  string `yaml:"transport"`
	} `yaml:"transcode"`

	Auth struct {
		TokenSecret string        `yaml:"token_secret"`
		TokenTTL    time.Duration `yaml:"token_ttl"`
		ServiceKey  string        `yaml:"service_key"`
	} `yaml:"auth"`

	Cameras struct {
		Provider       string         `yaml:"provider"`
		Endpoint       string         `yaml:"endpoint"`
		RequestTimeout time.Duration  `yaml:"request_timeout"`
		CacheTTL       time.Duration  `yaml:"cache_ttl"`
		Static         []StaticCamera `yaml:"static"`
	} `yaml:"cameras"`

	Audit struct {
		Backend       string        `yaml:"backend"`
		Channel       string        `yaml:"channel"`
		List          string        `yaml:"list"`
		ListMax       int64         `yaml:"list_max"`
		BatchSize     int           `yaml:"batch_size"`
		FlushInterval time.Duration `yaml:"flush_interval"`
		Redis         struct {
			Address  string `yaml:"address"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			PoolSize int    `yaml:"pool_size"`
		} `yaml:"redis"`
	} `yaml:"audit"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
	} `yaml:"monitoring"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Tracing struct {
		Enabled        bool    `yaml:"enabled"`
		JaegerEndpoint string  `yaml:"jaeger_endpoint"`
		SampleRate     float64 `yaml:"sample_rate"`
		ServiceName    string  `yaml:"service_name"`
	} `yaml:"tracing"`

	RateLimiting struct {
		Enabled           bool    `yaml:"enabled"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
		MaxConcurrent     int     `yaml:"max_concurrent"`
	} `yaml:"rate_limiting"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	// Server
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Server.PublicBaseURL == "" {
		return fmt.Errorf("server.public_base_url must not be empty")
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be > 0")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be > 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}

	// Streams
	if c.Streams.OutputDir == "" {
		return fmt.Errorf("streams.output_dir must not be empty")
	}
	if c.Streams.IdleTimeout <= 0 {
		return fmt.Errorf("streams.idle_timeout must be > 0")
	}
	if c.Streams.StartupWait <= 0 {
		return fmt.Errorf("streams.startup_wait must be > 0")
	}
	if c.Streams.StartupPollInterval <= 0 {
		return fmt.Errorf("streams.startup_poll_interval must be > 0")
	}
	if c.Streams.StartupPollInterval >= c.Streams.StartupWait {
		return fmt.Errorf("streams.startup_poll_interval must be < streams.startup_wait")
	}
	if c.Streams.EvictionGrace < 0 {
		return fmt.Errorf("streams.eviction_grace must be >= 0")
	}
	if c.Streams.SweepInterval <= 0 {
		return fmt.Errorf("streams.sweep_interval must be > 0")
	}
	if c.Streams.MaxProcesses <= 0 {
		return fmt.Errorf("streams.max_processes must be > 0")
	}
	if c.Streams.SegmentSeconds <= 0 {
		return fmt.Errorf("streams.segment_seconds must be > 0")
	}
	if c.Streams.PlaylistLength <= 0 {
		return fmt.Errorf("streams.playlist_length must be > 0")
	}

	// Transcode
	if c.Transcode.FFmpegPath == "" {
		return fmt.Errorf("transcode.ffmpeg_path must not be empty")
	}
	if err := validation.ValidateTranscodeMode(c.Transcode.Mode); err != nil {
		return fmt.Errorf("transcode.mode: %w", err)
	}
	if c.Transcode.Mode == "reencode" && c.Transcode.Preset == "" {
		return fmt.Errorf("transcode.preset must not be empty when transcode.mode=reencode")
	}
	if err := validation.ValidateTransport(c.Transcode.Transport); err != nil {
		return fmt.Errorf("transcode.transport: %w", err)
	}

	// Auth
	if c.Auth.TokenSecret == "" {
		return fmt.Errorf("auth.token_secret must not be empty")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be > 0")
	}

	// Cameras
	switch c.Cameras.Provider {
	case "static":
		for i, cam := range c.Cameras.Static {
			if cam.ID == "" || cam.CompanyID == "" || cam.RTSPURL == "" {
				return fmt.Errorf("cameras.static[%d] must set id, company_id and rtsp_url", i)
			}
			if err := validation.ValidateRTSPURL(cam.RTSPURL); err != nil {
				return fmt.Errorf("cameras.static[%d]: %w", i, err)
			}
		}
	case "http":
		if c.Cameras.Endpoint == "" {
			return fmt.Errorf("cameras.endpoint must not be empty when cameras.provider=http")
		}
		if c.Cameras.RequestTimeout <= 0 {
			return fmt.Errorf("cameras.request_timeout must be > 0 when cameras.provider=http")
		}
	default:
		return fmt.Errorf("cameras.provider must be static or http")
	}
	if c.Cameras.CacheTTL < 0 {
		return fmt.Errorf("cameras.cache_ttl must be >= 0")
	}

	// Audit
	switch c.Audit.Backend {
	case "log":
	case "redis":
		if c.Audit.Redis.Address == "" {
			return fmt.Errorf("audit.redis.address must not be empty when audit.backend=redis")
		}
		if c.Audit.Redis.PoolSize <= 0 {
			return fmt.Errorf("audit.redis.pool_size must be > 0 when audit.backend=redis")
		}
		if c.Audit.BatchSize <= 0 {
			return fmt.Errorf("audit.batch_size must be > 0 when audit.backend=redis")
		}
		if c.Audit.FlushInterval <= 0 {
			return fmt.Errorf("audit.flush_interval must be > 0 when audit.backend=redis")
		}
	default:
		return fmt.Errorf("audit.backend must be log or redis")
	}

	// Logging
	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	// Tracing
	if c.Tracing.Enabled {
		if c.Tracing.JaegerEndpoint == "" {
			return fmt.Errorf("tracing.jaeger_endpoint must not be empty when tracing.enabled=true")
		}
		if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
			return fmt.Errorf("tracing.sample_rate must be between 0 and 1")
		}
	}

	// Rate limiting
	if c.RateLimiting.Enabled {
		if c.RateLimiting.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.Burst <= 0 {
			return fmt.Errorf("rate_limiting.burst must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.MaxConcurrent < 0 {
			return fmt.Errorf("rate_limiting.max_concurrent must be >= 0 when rate limiting is enabled")
		}
	}

	return nil
}

// Load reads configuration from YAML file, applies defaults and env overrides.
func Load(configPath string) (*Config, error) {
	// If file does not exist, fall back to defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Address = ":8080"
	cfg.Server.PublicBaseURL = "http://localhost:8080"
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.ShutdownTimeout = 30 * time.Second

	cfg.Streams.OutputDir = "/var/lib/streamgate/hls"
	cfg.Streams.IdleTimeout = 90 * time.Second
	cfg.Streams.StartupWait = 12 * time.Second
	cfg.Streams.StartupPollInterval = 250 * time.Millisecond
	cfg.Streams.EvictionGrace = 20 * time.Second
	cfg.Streams.SweepInterval = 10 * time.Second
	cfg.Streams.MaxProcesses = 8
	cfg.Streams.SegmentSeconds = 2
	cfg.Streams.PlaylistLength = 5

	cfg.Transcode.FFmpegPath = "ffmpeg"
	cfg.Transcode.Mode = "copy"
	cfg.Transcode.Preset = "veryfast"
	cfg.Transcode.Transport = "tcp"

	cfg.Auth.TokenSecret = "change-me-in-production"
	cfg.Auth.TokenTTL = 2 * time.Minute
	cfg.Auth.ServiceKey = ""

	cfg.Cameras.Provider = "static"
	cfg.Cameras.RequestTimeout = 5 * time.Second
	cfg.Cameras.CacheTTL = 30 * time.Second

	cfg.Audit.Backend = "log"
	cfg.Audit.Channel = "streamgate:audit"
	cfg.Audit.List = "streamgate:audit:recent"
	cfg.Audit.ListMax = 1000
	cfg.Audit.BatchSize = 32
	cfg.Audit.FlushInterval = 2 * time.Second
	cfg.Audit.Redis.Address = "localhost:6379"
	cfg.Audit.Redis.DB = 0
	cfg.Audit.Redis.PoolSize = 10

	cfg.Monitoring.PrometheusEnabled = true

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.Tracing.Enabled = false
	cfg.Tracing.JaegerEndpoint = "http://localhost:14268/api/traces"
	cfg.Tracing.SampleRate = 0.1
	cfg.Tracing.ServiceName = "streamgate"

	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.RequestsPerSecond = 50
	cfg.RateLimiting.Burst = 100
	cfg.RateLimiting.MaxConcurrent = 0

	return cfg
}

func (c *Config) applyEnvOverrides() {
	// Apply environment variable overrides
	if addr := os.Getenv("STREAMGATE_SERVER_ADDRESS"); addr != "" {
		c.Server.Address = addr
	}
	if base := os.Getenv("STREAMGATE_PUBLIC_BASE_URL"); base != "" {
		c.Server.PublicBaseURL = base
	}
	if dir := os.Getenv("STREAMGATE_OUTPUT_DIR"); dir != "" {
		c.Streams.OutputDir = dir
	}
	if path := os.Getenv("STREAMGATE_FFMPEG_PATH"); path != "" {
		c.Transcode.FFmpegPath = path
	}
	if level := os.Getenv("STREAMGATE_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if secret := os.Getenv("STREAMGATE_TOKEN_SECRET"); secret != "" {
		c.Auth.TokenSecret = secret
	}
	if key := os.Getenv("STREAMGATE_SERVICE_KEY"); key != "" {
		c.Auth.ServiceKey = key
	}
	if endpoint := os.Getenv("STREAMGATE_CAMERA_ENDPOINT"); endpoint != "" {
		c.Cameras.Endpoint = endpoint
	}
	if addr := os.Getenv("STREAMGATE_REDIS_ADDRESS"); addr != "" {
		c.Audit.Redis.Address = addr
	}
	if endpoint := os.Getenv("STREAMGATE_JAEGER_ENDPOINT"); endpoint != "" {
		c.Tracing.JaegerEndpoint = endpoint
	}
	if raw := os.Getenv("STREAMGATE_IDLE_TIMEOUT"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			c.Streams.IdleTimeout = d
		}
	}
	if raw := os.Getenv("STREAMGATE_TOKEN_TTL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			c.Auth.TokenTTL = d
		}
	}
}
