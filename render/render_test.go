package render

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/proto"

	"github.com/use-agent/siteprofile/config"
	"github.com/use-agent/siteprofile/models"
)

// requireBrowser skips tests that need a local Chrome.
func requireBrowser(t *testing.T) {
	t.Helper()
	if os.Getenv("SITEPROFILE_BROWSER_TESTS") != "1" {
		t.Skip("set SITEPROFILE_BROWSER_TESTS=1 to run browser tests")
	}
}

func testConfig() config.RenderConfig {
	cfg := config.Load().Render
	cfg.Timeout = 20 * time.Second
	cfg.IdleTimeout = 3 * time.Second
	cfg.NoSandbox = true
	return cfg
}

func TestNew_Defaults(t *testing.T) {
	r := New(config.RenderConfig{})
	if r.cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", r.cfg.Timeout)
	}
	if r.cfg.IdleTimeout != 10*time.Second {
		t.Errorf("IdleTimeout = %v, want 10s", r.cfg.IdleTimeout)
	}
	if r.Name() != "render" {
		t.Errorf("Name = %q", r.Name())
	}
}

func TestBlockedSet(t *testing.T) {
	set := blockedSet([]string{"Image", "Font", "Script", "Bogus"})
	if len(set) != 2 {
		t.Fatalf("len = %d, want 2", len(set))
	}
	if _, ok := set[proto.NetworkResourceTypeImage]; !ok {
		t.Error("Image not blocked")
	}
	if _, ok := set[proto.NetworkResourceTypeScript]; ok {
		t.Error("Script must never be blockable")
	}
}

func TestIsTracker(t *testing.T) {
	tests := map[string]bool{
		"www.google-analytics.com": true,
		"script.hotjar.com":        true,
		"clarity.ms":               true,
		"acme.io":                  false,
		"analytics.acme.io":        false,
		"":                         false,
	}
	for host, want := range tests {
		if got := isTracker(host); got != want {
			t.Errorf("isTracker(%q) = %v, want %v", host, got, want)
		}
	}
}

func TestRender_MissingBrowserIsLaunchFailure(t *testing.T) {
	cfg := testConfig()
	cfg.BrowserBin = "/nonexistent/chrome"
	r := New(cfg)

	_, err := r.Render(context.Background(), "http://127.0.0.1/")
	if !models.IsCode(err, models.ErrCodeRenderLaunch) {
		t.Fatalf("err = %v, want %s", err, models.ErrCodeRenderLaunch)
	}
}

func TestConnect_StalledHandshakeTimesOut(t *testing.T) {
	// Accepts the TCP connection but never answers the websocket upgrade,
	// like a wedged browser.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	var (
		mu      sync.Mutex
		conns   []net.Conn
		aborted bool
	)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			if aborted {
				c.Close()
			} else {
				conns = append(conns, c)
			}
			mu.Unlock()
		}
	}()

	abort := func() {
		mu.Lock()
		defer mu.Unlock()
		aborted = true
		ln.Close()
		for _, c := range conns {
			c.Close()
		}
	}
	defer abort()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = connect(ctx, "ws://"+ln.Addr().String()+"/devtools/browser/x", abort)
	if !models.IsCode(err, models.ErrCodeTimeout) {
		t.Fatalf("err = %v, want %s", err, models.ErrCodeTimeout)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("connect took %v, want close to the 200ms bound", elapsed)
	}
	mu.Lock()
	defer mu.Unlock()
	if !aborted {
		t.Error("abort was not called on timeout")
	}
}

func TestConnect_RefusedIsLaunchFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	var aborted atomic.Bool
	_, err = connect(context.Background(), "ws://"+addr+"/devtools/browser/x", func() { aborted.Store(true) })
	if !models.IsCode(err, models.ErrCodeRenderLaunch) {
		t.Fatalf("err = %v, want %s", err, models.ErrCodeRenderLaunch)
	}
	if !aborted.Load() {
		t.Error("abort was not called on failure")
	}
}

func TestRender_ExecutesScripts(t *testing.T) {
	requireBrowser(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Acme</title></head><body><div id="root"></div>
<script>document.getElementById("root").innerHTML = "<h1>Rendered by script</h1>";</script></body></html>`))
	}))
	defer srv.Close()

	r := New(testConfig())
	defer r.Close()

	res, err := r.Render(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(res.HTML, "Rendered by script") {
		t.Errorf("script output missing from HTML")
	}
	if !res.Rendered || res.Engine != "render" {
		t.Errorf("Rendered=%v Engine=%q", res.Rendered, res.Engine)
	}
	if !strings.HasPrefix(res.FinalURL, srv.URL) {
		t.Errorf("FinalURL = %q", res.FinalURL)
	}
}

func TestRender_TimeoutLeavesNoBrowser(t *testing.T) {
	requireBrowser(t)

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	cfg := testConfig()
	cfg.Timeout = 3 * time.Second
	cfg.IdleTimeout = time.Second
	r := New(cfg)

	var (
		mu   sync.Mutex
		pids []int
	)
	r.afterLaunch = func(pid int) {
		mu.Lock()
		pids = append(pids, pid)
		mu.Unlock()
	}

	start := time.Now()
	_, err := r.Render(context.Background(), srv.URL)
	if !models.IsCode(err, models.ErrCodeTimeout) {
		t.Fatalf("err = %v, want %s", err, models.ErrCodeTimeout)
	}
	if elapsed := time.Since(start); elapsed > 15*time.Second {
		t.Errorf("render took %v, want close to the 3s bound", elapsed)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(pids) != 1 {
		t.Fatalf("launched %d browsers, want 1", len(pids))
	}
	if err := syscall.Kill(pids[0], 0); err == nil {
		t.Errorf("browser pid %d still alive after timeout", pids[0])
	}
}

func TestRender_SharedModeIsolatesContexts(t *testing.T) {
	requireBrowser(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := r.Cookie("seen"); err == nil {
			_, _ = w.Write([]byte(`<html><body><p>returning visitor</p></body></html>`))
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "seen", Value: "1"})
		_, _ = w.Write([]byte(`<html><body><p>first visit</p></body></html>`))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Shared = true
	r := New(cfg)
	defer r.Close()

	for i := 0; i < 2; i++ {
		res, err := r.Render(context.Background(), srv.URL)
		if err != nil {
			t.Fatalf("Render #%d: %v", i, err)
		}
		if !strings.Contains(res.HTML, "first visit") {
			t.Errorf("Render #%d leaked cookies from a previous context", i)
		}
	}
}

func TestRender_SharedModeRelaunchesDeadBrowser(t *testing.T) {
	requireBrowser(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><p>still here</p></body></html>`))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Shared = true
	r := New(cfg)
	defer r.Close()

	var (
		mu   sync.Mutex
		pids []int
	)
	r.afterLaunch = func(pid int) {
		mu.Lock()
		pids = append(pids, pid)
		mu.Unlock()
	}

	if _, err := r.Render(context.Background(), srv.URL); err != nil {
		t.Fatalf("first Render: %v", err)
	}

	mu.Lock()
	first := pids[0]
	mu.Unlock()
	if err := syscall.Kill(first, syscall.SIGKILL); err != nil {
		t.Fatalf("kill shared browser: %v", err)
	}
	for i := 0; i < 50 && syscall.Kill(first, 0) == nil; i++ {
		time.Sleep(100 * time.Millisecond)
	}

	res, err := r.Render(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Render after crash: %v", err)
	}
	if !strings.Contains(res.HTML, "still here") {
		t.Error("unexpected HTML after relaunch")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(pids) != 2 {
		t.Errorf("launched %d browsers, want 2", len(pids))
	}
}
