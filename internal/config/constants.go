// Package config provides runtime configuration for tgcalld
package config

// Server defaults
const (
	DefaultHTTPPort   = 8090
	DefaultEngineAddr = "localhost:4460"
)

// Call defaults
const (
	DefaultSessionName = "tgcalld"
	DefaultLanguage    = "it"
	DefaultRingTimeout = 45  // seconds
	DefaultMaxDuration = 300 // seconds
	DefaultProfileName = "Home Assistant"
)

// VoIP transport defaults (bitrates in bit/s, buffer size and timeout in ms)
const (
	DefaultInitBitrate = 80000
	DefaultMaxBitrate  = 100000
	DefaultMinBitrate  = 60000
	DefaultBufferSize  = 5000
	DefaultTimeoutMs   = 5000
)

// Paths under DataDir
const (
	DefaultDataDir = "./data"
	DefaultDBFile  = "tgcalld.db"
	SessionsDir    = "sessions"
	WorkDir        = "work"
	RecordingsDir  = "recordings"
)

// WebhookMaxRetries bounds delivery attempts for state webhooks and
// push notifications.
const WebhookMaxRetries = 3

// SessionFileSuffix is appended to the session name to form the
// on-disk authentication artifact filename.
const SessionFileSuffix = ".session"

// API pagination defaults
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)
