// Package render drives a headless Chrome to execute page scripts and
// capture the settled DOM. Every browser context it acquires is released
// on every exit path: success, error, timeout and caller cancellation.
package render

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"
	"golang.org/x/time/rate"

	"github.com/use-agent/siteprofile/config"
	"github.com/use-agent/siteprofile/models"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// cleanupTimeout bounds disposal calls made after the render deadline
// has passed.
const cleanupTimeout = 5 * time.Second

// pingTimeout bounds the liveness check on a shared browser.
const pingTimeout = 2 * time.Second

// Renderer is the rendering backend. It is safe for concurrent use.
//
// In per-call mode (default) each Render launches its own Chrome and
// kills it before returning. In shared mode one Chrome is launched lazily
// and each Render gets its own incognito browser context, disposed before
// returning.
type Renderer struct {
	cfg     config.RenderConfig
	limiter *rate.Limiter

	mu             sync.Mutex
	shared         *rod.Browser
	sharedLauncher *launcher.Launcher

	// afterLaunch, if set, observes the pid of every launched browser.
	afterLaunch func(pid int)
}

// New creates a Renderer. No browser is started until the first Render.
func New(cfg config.RenderConfig) *Renderer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.IdleTimeout <= 0 || cfg.IdleTimeout > cfg.Timeout {
		cfg.IdleTimeout = cfg.Timeout / 3
	}
	limit := rate.Inf
	if cfg.LaunchRPS > 0 {
		limit = rate.Limit(cfg.LaunchRPS)
	}
	burst := cfg.LaunchBurst
	if burst < 1 {
		burst = 1
	}
	return &Renderer{
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, burst),
	}
}

func (r *Renderer) Name() string { return "render" }

// Fetch implements fetcher.Engine.
func (r *Renderer) Fetch(ctx context.Context, url string) (models.FetchResult, error) {
	return r.Render(ctx, url)
}

// Render loads url in a fresh browser context and returns the settled
// markup.
//
// Lifecycle:
//
//  1. Timeout guard      - hard deadline on the whole call
//  2. Acquire context    - launch (per-call) or incognito (shared)
//  3. DEFER: release     - kill browser / dispose context, always
//  4. Open page          - stealth, headers, resource blocking
//  5. Navigate + wait    - load, then network idle or DOM stable
//  6. Extract            - page.HTML(), location.href, status
func (r *Renderer) Render(ctx context.Context, url string) (models.FetchResult, error) {
	// ── 1. Timeout guard ──────────────────────────────────────────────
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	// ── 2. Acquire an isolated browser context ────────────────────────
	if err := r.limiter.Wait(ctx); err != nil {
		return models.FetchResult{}, models.NewFetchError(models.ErrCodeTimeout, "waiting for a browser slot", err)
	}
	browser, release, err := r.acquire(ctx)
	if err != nil {
		return models.FetchResult{}, err
	}

	// ── 3. CRITICAL DEFER: release the context on every exit path ─────
	defer release()

	// ── 4. Open and prepare the page ──────────────────────────────────
	// browser is bound to ctx, so every CDP call below shares the deadline.
	p, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return models.FetchResult{}, launchOrTimeout(ctx, "failed to open page", err)
	}

	r.preparePage(p)

	router := setupHijack(p, r.cfg.BlockedResourceTypes)
	if router != nil {
		defer func() { _ = router.Stop() }()
	}

	// ── 5. Navigate and wait for the page to settle ───────────────────
	// WaitRequestIdle uses the Fetch domain, which conflicts with the
	// hijack router; it must also be registered before Navigate.
	var waitIdle func()
	if router == nil {
		waitIdle = p.Timeout(r.cfg.IdleTimeout).WaitRequestIdle(500*time.Millisecond, nil, nil, nil)
	}

	if err := p.Navigate(url); err != nil {
		return models.FetchResult{}, categorizeError(ctx, err, "navigation to target URL failed")
	}

	settle := p.Timeout(r.cfg.IdleTimeout)
	if err := settle.WaitLoad(); err != nil {
		slog.Debug("render: load event not seen, proceeding", "url", url, "error", err)
	}
	if waitIdle != nil {
		waitIdle()
	} else if err := settle.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		slog.Debug("render: DOM did not settle, proceeding with current DOM", "url", url, "error", err)
	}
	settle.CancelTimeout()

	// ── 6. Extract rendered HTML ──────────────────────────────────────
	html, err := p.HTML()
	if err != nil {
		return models.FetchResult{}, categorizeError(ctx, err, "failed to read rendered HTML")
	}

	finalURL := evalStringOrEmpty(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = url
	}

	return models.FetchResult{
		HTML:       html,
		FinalURL:   finalURL,
		Rendered:   true,
		StatusCode: navigationStatus(p),
		Engine:     r.Name(),
	}, nil
}

// acquire returns a browser bound to ctx and scoped to one call, plus its
// release function. release does not depend on ctx, so it still runs
// after the deadline.
func (r *Renderer) acquire(ctx context.Context) (*rod.Browser, func(), error) {
	if r.cfg.Shared {
		return r.acquireShared(ctx)
	}

	l, browser, err := r.launch(ctx)
	if err != nil {
		return nil, nil, err
	}
	return browser.Context(ctx), func() { teardown(l) }, nil
}

// acquireShared creates an incognito context in the shared browser. A
// shared browser that stopped answering is dropped and relaunched once.
func (r *Renderer) acquireShared(ctx context.Context) (*rod.Browser, func(), error) {
	for attempt := 0; ; attempt++ {
		shared, err := r.sharedBrowser(ctx)
		if err != nil {
			return nil, nil, err
		}
		incognito, err := shared.Context(ctx).Incognito()
		if err == nil {
			return incognito, func() { disposeContext(incognito) }, nil
		}
		if ctx.Err() != nil || attempt > 0 || alive(shared) {
			return nil, nil, launchOrTimeout(ctx, "failed to create browser context", err)
		}
		slog.Warn("render: shared browser is gone, relaunching", "error", err)
		r.dropShared(shared)
	}
}

// disposeContext closes an incognito context and every page in it.
func disposeContext(incognito *rod.Browser) {
	cleanupCtx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	if err := incognito.Context(cleanupCtx).Close(); err != nil {
		slog.Warn("render: failed to dispose browser context", "error", err)
	}
}

// alive reports whether the browser still answers CDP calls.
func alive(b *rod.Browser) bool {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	_, err := proto.BrowserGetVersion{}.Call(b.Context(ctx))
	return err == nil
}

// dropShared forgets b and kills its process, unless another call has
// already replaced it.
func (r *Renderer) dropShared(b *rod.Browser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.shared != b {
		return
	}
	teardown(r.sharedLauncher)
	r.shared, r.sharedLauncher = nil, nil
}

// sharedBrowser launches the shared browser on first use.
func (r *Renderer) sharedBrowser(ctx context.Context) (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.shared != nil {
		return r.shared, nil
	}
	l, browser, err := r.launch(ctx)
	if err != nil {
		return nil, err
	}
	r.shared, r.sharedLauncher = browser, l
	slog.Info("render: shared browser launched", "pid", l.PID())
	return browser, nil
}

// launch starts a Chrome process and connects to it. On any failure the
// process is killed before returning.
func (r *Renderer) launch(ctx context.Context) (*launcher.Launcher, *rod.Browser, error) {
	l := launcher.New().
		Context(ctx).
		Headless(r.cfg.Headless).
		NoSandbox(r.cfg.NoSandbox).
		Leakless(true)

	if r.cfg.BrowserBin != "" {
		l = l.Bin(r.cfg.BrowserBin)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		teardown(l)
		return nil, nil, launchOrTimeout(ctx, "failed to launch browser", err)
	}
	if r.afterLaunch != nil {
		r.afterLaunch(l.PID())
	}

	browser, err := connect(ctx, controlURL, func() { teardown(l) })
	if err != nil {
		return nil, nil, err
	}
	return l, browser, nil
}

// connect attaches to the browser at controlURL. The connection outlives
// ctx, so ctx bounds only the handshake: when it expires first, abort runs
// to make the pending dial fail and TIMEOUT is returned.
func connect(ctx context.Context, controlURL string, abort func()) (*rod.Browser, error) {
	browser := rod.New().ControlURL(controlURL)
	done := make(chan error, 1)
	go func() { done <- browser.Connect() }()

	select {
	case err := <-done:
		if err != nil {
			abort()
			return nil, launchOrTimeout(ctx, "failed to connect to browser", err)
		}
		return browser, nil
	case <-ctx.Done():
		abort()
		return nil, models.NewFetchError(models.ErrCodeTimeout, "failed to connect to browser: render timed out", ctx.Err())
	}
}

// teardown kills the browser process group and waits for it to exit.
// A launcher that never started a process is left alone: killing pid 0
// would signal our own process group.
func teardown(l *launcher.Launcher) {
	if l.PID() == 0 {
		return
	}
	l.Kill()
	l.Cleanup()
}

// preparePage installs stealth evasions and browser-like headers on a
// page bound to the render deadline. Both must happen before navigation;
// failures only degrade disguise.
func (r *Renderer) preparePage(page *rod.Page) {
	if r.cfg.Stealth {
		if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
			slog.Warn("render: stealth injection failed, proceeding without stealth", "error", err)
		}
	}
	if err := (proto.NetworkSetUserAgentOverride{
		UserAgent:      chromeUA,
		AcceptLanguage: "en-US,en;q=0.9",
	}).Call(page); err != nil {
		slog.Debug("render: user agent override failed", "error", err)
	}
	_ = proto.NetworkSetExtraHTTPHeaders{
		Headers: proto.NetworkHeaders{
			"Accept-Language":           gson.New("en-US,en;q=0.9"),
			"Upgrade-Insecure-Requests": gson.New("1"),
		},
	}.Call(page)
}

// Close kills the shared browser, if one was launched.
func (r *Renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.shared == nil {
		return
	}
	slog.Info("render: closing shared browser")
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	_ = r.shared.Context(ctx).Close()
	teardown(r.sharedLauncher)
	r.shared, r.sharedLauncher = nil, nil
}

// navigationStatus reads the main document status from the Navigation
// Timing API; 0 when the browser does not expose it.
func navigationStatus(p *rod.Page) int {
	res, err := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch (e) {}
		return 0;
	}`)
	if err != nil {
		return 0
	}
	return res.Value.Int()
}

// evalStringOrEmpty evaluates a JS expression and returns the string
// result, swallowing any errors.
func evalStringOrEmpty(p *rod.Page, js string) string {
	res, err := p.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// categorizeError maps page errors to fetch error codes. The call
// deadline wins over whatever error the browser reported.
func categorizeError(ctx context.Context, err error, msg string) *models.FetchError {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return models.NewFetchError(models.ErrCodeTimeout, msg+": render timed out", err)
	}
	return models.NewFetchError(models.ErrCodeNavigation, msg, err)
}

func launchOrTimeout(ctx context.Context, msg string, err error) *models.FetchError {
	if ctx.Err() != nil {
		return models.NewFetchError(models.ErrCodeTimeout, msg+": render timed out", err)
	}
	return models.NewFetchError(models.ErrCodeRenderLaunch, msg, err)
}
