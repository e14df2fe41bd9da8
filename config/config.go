package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig
	Fetch   FetchConfig
	Render  RenderConfig
	Extract ExtractConfig
	CORS    CORSConfig
	Log     LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 5000
	Mode string // "debug", "release", "test"; default: "release"

	// RequestTimeout bounds a whole /scrape call (fetch + render + extract).
	RequestTimeout time.Duration // default: 45s
}

// FetchConfig controls the static fetch and the escalation heuristic.
type FetchConfig struct {
	// Timeout is the deadline for the static HTTP fetch.
	Timeout time.Duration // default: 8s

	// MaxBodyBytes caps how much of the response body is read.
	MaxBodyBytes int64 // default: 10 MB

	// UserAgent overrides the Chrome user agent.
	UserAgent string

	// MinTextChars: visible body text below this escalates to rendering.
	MinTextChars int // default: 200

	// MinTextRatio: visible text / markup below this escalates to rendering.
	MinTextRatio float64 // default: 0.005

	// MaxScripts / ScriptTextChars: more than MaxScripts script tags with
	// less than ScriptTextChars of text escalates to rendering.
	MaxScripts      int // default: 10
	ScriptTextChars int // default: 500
}

// RenderConfig controls the headless browser backend.
type RenderConfig struct {
	// Enabled toggles escalation to the headless browser.
	Enabled bool // default: true

	// Timeout is the hard ceiling for one render call.
	Timeout time.Duration // default: 30s

	// IdleTimeout bounds the wait for network idle after navigation.
	IdleTimeout time.Duration // default: 10s

	// Shared reuses one browser process and isolates calls in incognito
	// contexts. When false every call launches and kills its own browser.
	Shared bool // default: false

	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Stealth injects go-rod/stealth evasions before navigation.
	Stealth bool // default: true

	// LaunchRPS / LaunchBurst pace browser launches.
	LaunchRPS   float64 // default: 2
	LaunchBurst int     // default: 4

	// BlockedResourceTypes lists resource types to block.
	// default: ["Image", "Stylesheet", "Font", "Media"]
	BlockedResourceTypes []string
}

// ExtractConfig controls the field extractors.
type ExtractConfig struct {
	// RawTextLimit caps raw_text in characters.
	RawTextLimit int // default: 5000

	// Parallelism bounds concurrently running extractors per request.
	Parallelism int // default: 4
}

// CORSConfig controls cross-origin headers.
type CORSConfig struct {
	// AllowedOrigins; "*" allows any origin.
	AllowedOrigins []string // default: ["*"]
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           envOr("SITEPROFILE_HOST", "0.0.0.0"),
			Port:           envIntOr("SITEPROFILE_PORT", 5000),
			Mode:           envOr("SITEPROFILE_MODE", "release"),
			RequestTimeout: envDurationOr("SITEPROFILE_REQUEST_TIMEOUT", 45*time.Second),
		},
		Fetch: FetchConfig{
			Timeout:         envDurationOr("SITEPROFILE_FETCH_TIMEOUT", 8*time.Second),
			MaxBodyBytes:    int64(envIntOr("SITEPROFILE_FETCH_MAX_BODY", 10<<20)),
			UserAgent:       os.Getenv("SITEPROFILE_USER_AGENT"),
			MinTextChars:    envIntOr("SITEPROFILE_ESCALATE_MIN_TEXT", 200),
			MinTextRatio:    envFloatOr("SITEPROFILE_ESCALATE_MIN_RATIO", 0.005),
			MaxScripts:      envIntOr("SITEPROFILE_ESCALATE_MAX_SCRIPTS", 10),
			ScriptTextChars: envIntOr("SITEPROFILE_ESCALATE_SCRIPT_TEXT", 500),
		},
		Render: RenderConfig{
			Enabled:     envBoolOr("SITEPROFILE_RENDER", true),
			Timeout:     envDurationOr("SITEPROFILE_RENDER_TIMEOUT", 30*time.Second),
			IdleTimeout: envDurationOr("SITEPROFILE_RENDER_IDLE_TIMEOUT", 10*time.Second),
			Shared:      envBoolOr("SITEPROFILE_RENDER_SHARED", false),
			Headless:    envBoolOr("SITEPROFILE_HEADLESS", true),
			NoSandbox:   envBoolOr("SITEPROFILE_NO_SANDBOX", false),
			BrowserBin:  os.Getenv("SITEPROFILE_BROWSER_BIN"),
			Stealth:     envBoolOr("SITEPROFILE_STEALTH", true),
			LaunchRPS:   envFloatOr("SITEPROFILE_RENDER_LAUNCH_RPS", 2),
			LaunchBurst: envIntOr("SITEPROFILE_RENDER_LAUNCH_BURST", 4),
			BlockedResourceTypes: envSliceOr("SITEPROFILE_BLOCKED_RESOURCES", []string{
				"Image", "Stylesheet", "Font", "Media",
			}),
		},
		Extract: ExtractConfig{
			RawTextLimit: envIntOr("SITEPROFILE_RAW_TEXT_LIMIT", 5000),
			Parallelism:  envIntOr("SITEPROFILE_EXTRACT_PARALLELISM", 4),
		},
		CORS: CORSConfig{
			AllowedOrigins: envSliceOr("SITEPROFILE_CORS_ORIGINS", []string{"*"}),
		},
		Log: LogConfig{
			Level:  envOr("SITEPROFILE_LOG_LEVEL", "info"),
			Format: envOr("SITEPROFILE_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
