package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Fetch.Timeout != 8*time.Second {
		t.Errorf("Fetch.Timeout = %v, want 8s", cfg.Fetch.Timeout)
	}
	if cfg.Render.Timeout != 30*time.Second {
		t.Errorf("Render.Timeout = %v, want 30s", cfg.Render.Timeout)
	}
	if cfg.Extract.RawTextLimit != 5000 {
		t.Errorf("Extract.RawTextLimit = %d, want 5000", cfg.Extract.RawTextLimit)
	}
	if len(cfg.CORS.AllowedOrigins) != 1 || cfg.CORS.AllowedOrigins[0] != "*" {
		t.Errorf("CORS.AllowedOrigins = %v, want [*]", cfg.CORS.AllowedOrigins)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SITEPROFILE_FETCH_TIMEOUT", "3s")
	t.Setenv("SITEPROFILE_RENDER_SHARED", "true")
	t.Setenv("SITEPROFILE_ESCALATE_MIN_RATIO", "0.02")
	t.Setenv("SITEPROFILE_CORS_ORIGINS", "https://a.example, https://b.example ,")

	cfg := Load()

	if cfg.Fetch.Timeout != 3*time.Second {
		t.Errorf("Fetch.Timeout = %v, want 3s", cfg.Fetch.Timeout)
	}
	if !cfg.Render.Shared {
		t.Error("Render.Shared = false, want true")
	}
	if cfg.Fetch.MinTextRatio != 0.02 {
		t.Errorf("Fetch.MinTextRatio = %v, want 0.02", cfg.Fetch.MinTextRatio)
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.CORS.AllowedOrigins) != len(want) {
		t.Fatalf("CORS.AllowedOrigins = %v, want %v", cfg.CORS.AllowedOrigins, want)
	}
	for i := range want {
		if cfg.CORS.AllowedOrigins[i] != want[i] {
			t.Errorf("CORS.AllowedOrigins[%d] = %q, want %q", i, cfg.CORS.AllowedOrigins[i], want[i])
		}
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("SITEPROFILE_PORT", "not-a-number")
	t.Setenv("SITEPROFILE_RENDER_TIMEOUT", "soon")

	cfg := Load()

	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want fallback 5000", cfg.Server.Port)
	}
	if cfg.Render.Timeout != 30*time.Second {
		t.Errorf("Render.Timeout = %v, want fallback 30s", cfg.Render.Timeout)
	}
}
