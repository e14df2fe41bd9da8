package fetcher

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	tls "github.com/refraction-networking/utls"
	"golang.org/x/net/html/charset"

	"github.com/use-agent/siteprofile/models"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// defaultMaxBody caps response bodies when no limit is configured.
const defaultMaxBody = 10 << 20

// minUsableText is the visible text a non-2xx page needs to be kept.
const minUsableText = 200

// chromeH1Spec is a Chrome-like TLS ClientHello with ALPN forced to http/1.1
// only. Computed once at init time and reused for every connection.
var chromeH1Spec *tls.ClientHelloSpec

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return
	}
	// Go's http.Transport cannot speak h2 over a utls connection, so the
	// server must never negotiate it.
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = &spec
}

// StaticEngine fetches markup with a single HTTP request and no script
// execution. It presents a Chrome TLS fingerprint and browser headers to
// get past trivial bot blocking.
type StaticEngine struct {
	client    *http.Client
	userAgent string
	maxBody   int64
}

// StaticOption customises a StaticEngine.
type StaticOption func(*StaticEngine)

// WithUserAgent overrides the Chrome user agent.
func WithUserAgent(ua string) StaticOption {
	return func(e *StaticEngine) {
		if ua != "" {
			e.userAgent = ua
		}
	}
}

// WithMaxBody caps how many body bytes are read.
func WithMaxBody(n int64) StaticOption {
	return func(e *StaticEngine) {
		if n > 0 {
			e.maxBody = n
		}
	}
}

// NewStaticEngine creates a StaticEngine. The transport is safe for
// concurrent use and keeps connections alive across requests; no response
// state is shared.
func NewStaticEngine(opts ...StaticOption) *StaticEngine {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialTLSContext:        dialTLSChrome,
		ForceAttemptHTTP2:     false,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
	}
	e := &StaticEngine{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after %d redirects", len(via))
				}
				return nil
			},
		},
		userAgent: chromeUA,
		maxBody:   defaultMaxBody,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *StaticEngine) Name() string { return "static" }

// Fetch performs the GET. A non-2xx response is still returned when its
// body carries a real page worth of visible text (bot walls and soft
// errors often ship the full site); otherwise it fails with HTTP_ERROR.
func (e *StaticEngine) Fetch(ctx context.Context, url string) (models.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.FetchResult{}, models.NewFetchError(models.ErrCodeInvalidURL, "cannot build request", err)
	}

	// Accept-Encoding is left to the transport so gzip is decoded for us.
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "none")

	resp, err := e.client.Do(req)
	if err != nil {
		return models.FetchResult{}, models.Classify(err, "static fetch failed")
	}
	defer resp.Body.Close()

	ct := resp.Header.Get("Content-Type")
	if !isMarkupContentType(ct) {
		fe := models.NewFetchError(models.ErrCodeHTTP, fmt.Sprintf("unsupported content type %q", ct), nil)
		fe.StatusCode = resp.StatusCode
		return models.FetchResult{}, fe
	}

	// Decode to UTF-8 using the header charset or <meta charset>.
	var body io.Reader = io.LimitReader(resp.Body, e.maxBody)
	if decoded, err := charset.NewReader(body, ct); err == nil {
		body = decoded
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return models.FetchResult{}, models.Classify(err, "reading response body failed")
	}
	html := string(raw)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(visibleText(html)) < minUsableText {
			fe := models.NewFetchError(models.ErrCodeHTTP, fmt.Sprintf("upstream returned HTTP %d", resp.StatusCode), nil)
			fe.StatusCode = resp.StatusCode
			return models.FetchResult{}, fe
		}
	}

	return models.FetchResult{
		HTML:       html,
		FinalURL:   resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Engine:     e.Name(),
	}, nil
}

// isMarkupContentType accepts HTML, XHTML, plain text and a missing header.
func isMarkupContentType(ct string) bool {
	ct = strings.ToLower(ct)
	return ct == "" ||
		strings.Contains(ct, "text/html") ||
		strings.Contains(ct, "application/xhtml+xml") ||
		strings.Contains(ct, "text/plain")
}

// dialTLSChrome establishes a TLS connection using the Chrome fingerprint.
func dialTLSChrome(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	host, _, _ := net.SplitHostPort(addr)

	var tlsConn *tls.UConn
	if chromeH1Spec != nil {
		tlsConn = tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
		if err := tlsConn.ApplyPreset(chromeH1Spec); err != nil {
			conn.Close()
			return nil, fmt.Errorf("static: apply tls spec: %w", err)
		}
	} else {
		tlsConn = tls.UClient(conn, &tls.Config{ServerName: host, NextProtos: []string{"http/1.1"}}, tls.HelloGolang)
	}
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return tlsConn, nil
}
