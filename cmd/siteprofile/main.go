package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/siteprofile/api"
	"github.com/use-agent/siteprofile/config"
	"github.com/use-agent/siteprofile/fetcher"
	"github.com/use-agent/siteprofile/pipeline"
	"github.com/use-agent/siteprofile/render"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("siteprofile starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"render", cfg.Render.Enabled,
		"sharedBrowser", cfg.Render.Shared,
	)

	// ── 3. Initialise fetch layer ───────────────────────────────────
	static := fetcher.NewStaticEngine(
		fetcher.WithUserAgent(cfg.Fetch.UserAgent),
		fetcher.WithMaxBody(cfg.Fetch.MaxBodyBytes),
	)
	fetchOpts := []fetcher.Option{
		fetcher.WithTimeout(cfg.Fetch.Timeout),
		fetcher.WithThresholds(fetcher.Thresholds{
			MinTextChars:    cfg.Fetch.MinTextChars,
			MinTextRatio:    cfg.Fetch.MinTextRatio,
			MaxScripts:      cfg.Fetch.MaxScripts,
			ScriptTextChars: cfg.Fetch.ScriptTextChars,
		}),
	}

	// ── 3b. Rendering backend (browser launched lazily) ────────────
	var renderer *render.Renderer
	if cfg.Render.Enabled {
		renderer = render.New(cfg.Render)
		defer renderer.Close()
		fetchOpts = append(fetchOpts, fetcher.WithRenderer(renderer))
	}

	// ── 4. Initialise extraction pipeline ───────────────────────────
	p := pipeline.New(fetcher.New(static, fetchOpts...), cfg.Extract)

	// ── 5. Setup router ─────────────────────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(p, cfg, startTime)

	// ── 6. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// In-flight renders are bounded by the render timeout; give them that
	// long to finish before the browser is torn down.
	grace := 5 * time.Second
	if cfg.Render.Enabled && cfg.Render.Timeout > grace {
		grace = cfg.Render.Timeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// renderer.Close() runs via defer and kills the shared browser, if any.
	slog.Info("siteprofile stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
