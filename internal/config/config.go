package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the runtime configuration for tgcalld
type Config struct {
	// Server settings
	HTTPPort int    `env:"TGCALLD_HTTP_PORT"`
	DataDir  string `env:"TGCALLD_DATA_DIR"`

	// API auth: bcrypt hash of the bearer token. Empty disables auth.
	APITokenHash string `env:"TGCALLD_API_TOKEN_HASH"`

	// Telegram session artifact
	SessionName string `env:"TGCALLD_SESSION_NAME"`
	SessionDir  string `env:"TGCALLD_SESSION_DIR"`

	// Engine control socket (external MTProto/VoIP helper process)
	EngineAddr string `env:"TGCALLD_ENGINE_ADDR"`

	// Call defaults
	DefaultTarget   string `env:"TGCALLD_DEFAULT_TARGET"`
	DefaultLanguage string `env:"TGCALLD_DEFAULT_LANGUAGE"`
	RingTimeout     int    `env:"TGCALLD_RING_TIMEOUT"`
	MaxDuration     int    `env:"TGCALLD_MAX_DURATION"`

	// Caller profile shown to the called party
	ProfileName  string `env:"TGCALLD_PROFILE_NAME"`
	ProfilePhoto string `env:"TGCALLD_PROFILE_PHOTO"`

	// Media pipeline commands
	TTSCommand string `env:"TGCALLD_TTS_COMMAND"`
	FFmpegPath string `env:"TGCALLD_FFMPEG_PATH"`

	// VoIP transport tuning
	InitBitrate int `env:"TGCALLD_INIT_BITRATE"`
	MaxBitrate  int `env:"TGCALLD_MAX_BITRATE"`
	MinBitrate  int `env:"TGCALLD_MIN_BITRATE"`
	BufferSize  int `env:"TGCALLD_BUF_SIZE"`
	TimeoutMs   int `env:"TGCALLD_TIMEOUT_MS"`

	// Call recording: keep captured call audio as WAV files
	KeepRecordings bool `env:"TGCALLD_KEEP_RECORDINGS"`

	// Outbound notifications
	StateWebhookURL string `env:"TGCALLD_STATE_WEBHOOK_URL"`
	GotifyURL       string `env:"TGCALLD_GOTIFY_URL"`
	GotifyToken     string `env:"TGCALLD_GOTIFY_TOKEN"`

	// Feature flags
	DebugMode bool `env:"TGCALLD_DEBUG"`
}

// Load reads configuration from the environment, after loading an optional
// .env file (path taken from ENV_FILE, falling back to ./.env).
func Load() (*Config, error) {
	if envfile := os.Getenv("ENV_FILE"); envfile != "" {
		if err := godotenv.Load(envfile); err != nil {
			return nil, fmt.Errorf("loading env file %s: %w", envfile, err)
		}
	} else {
		// A missing default .env is not an error
		_ = godotenv.Load()
	}

	cfg := defaults()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	if cfg.SessionDir == "" {
		cfg.SessionDir = filepath.Join(cfg.DataDir, SessionsDir)
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		HTTPPort:        DefaultHTTPPort,
		DataDir:         DefaultDataDir,
		SessionName:     DefaultSessionName,
		EngineAddr:      DefaultEngineAddr,
		DefaultLanguage: DefaultLanguage,
		RingTimeout:     DefaultRingTimeout,
		MaxDuration:     DefaultMaxDuration,
		ProfileName:     DefaultProfileName,
		TTSCommand:      "gtts-cli",
		FFmpegPath:      "ffmpeg",
		InitBitrate:     DefaultInitBitrate,
		MaxBitrate:      DefaultMaxBitrate,
		MinBitrate:      DefaultMinBitrate,
		BufferSize:      DefaultBufferSize,
		TimeoutMs:       DefaultTimeoutMs,
	}
}

// DBPath returns the full path to the SQLite database file
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, DefaultDBFile)
}

// WorkPath returns the directory that scoped call work dirs are created under
func (c *Config) WorkPath() string {
	return filepath.Join(c.DataDir, WorkDir)
}

// RecordingsPath returns the directory archived call recordings are kept in
func (c *Config) RecordingsPath() string {
	return filepath.Join(c.DataDir, RecordingsDir)
}

// SessionFilePath returns the path of the persisted authentication artifact.
// Its presence gates whether calls can be placed.
func (c *Config) SessionFilePath() string {
	return filepath.Join(c.SessionDir, c.SessionName+SessionFileSuffix)
}

// EnsureDirectories creates all required data directories
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.DataDir,
		c.SessionDir,
		c.WorkPath(),
		c.RecordingsPath(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	return nil
}
