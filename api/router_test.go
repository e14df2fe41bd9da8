package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/use-agent/siteprofile/config"
	"github.com/use-agent/siteprofile/models"
)

type fakeExtractor struct {
	rec *models.ExtractionRecord
	err error

	gotURL string
	gotCtx context.Context
}

func (f *fakeExtractor) Extract(ctx context.Context, url string) (*models.ExtractionRecord, error) {
	f.gotURL, f.gotCtx = url, ctx
	return f.rec, f.err
}

func testRouter(ex *fakeExtractor, origins ...string) *gin.Engine {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cfg := &config.Config{
		Server: config.ServerConfig{Mode: gin.TestMode, RequestTimeout: 5 * time.Second},
		CORS:   config.CORSConfig{AllowedOrigins: origins},
	}
	return NewRouter(ex, cfg, time.Now())
}

func do(r http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var m map[string]json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return m
}

func TestScrape_Success(t *testing.T) {
	rec := &models.ExtractionRecord{
		URL:     "https://acme.io",
		Title:   models.Found("Acme"),
		Success: true,
	}
	ex := &fakeExtractor{rec: rec}
	r := testRouter(ex)

	for _, path := range []string{"/scrape", "/api/v1/scrape"} {
		t.Run(path, func(t *testing.T) {
			w := do(r, http.MethodPost, path, `{"url":"  https://acme.io  "}`)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", w.Code, w.Body)
			}
			if ex.gotURL != "https://acme.io" {
				t.Errorf("extractor got url %q", ex.gotURL)
			}
			if _, ok := ex.gotCtx.Deadline(); !ok {
				t.Error("extractor context has no deadline")
			}

			body := decode(t, w)
			if string(body["success"]) != "true" {
				t.Errorf("success = %s", body["success"])
			}
			if _, ok := body["error"]; ok {
				t.Error("error present on success")
			}
			var data map[string]json.RawMessage
			if err := json.Unmarshal(body["data"], &data); err != nil {
				t.Fatalf("data: %v", err)
			}
			for _, name := range models.FieldNames {
				if _, ok := data[name]; !ok {
					t.Errorf("data.%s missing", name)
				}
			}
		})
	}
}

func TestScrape_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
		code   string
	}{
		{"malformed json", `{"url":`, nil, http.StatusBadRequest, models.ErrCodeInvalidInput},
		{"missing url", `{}`, nil, http.StatusBadRequest, models.ErrCodeInvalidInput},
		{"blank url", `{"url":"   "}`, nil, http.StatusBadRequest, models.ErrCodeInvalidInput},
		{"invalid url", `{"url":"ftp://x"}`, models.NewFetchError(models.ErrCodeInvalidURL, "bad scheme", nil), http.StatusBadRequest, models.ErrCodeInvalidURL},
		{"connection", `{"url":"https://nope.invalid"}`, models.NewFetchError(models.ErrCodeConnection, "refused", nil), http.StatusBadGateway, models.ErrCodeConnection},
		{"http", `{"url":"https://acme.io"}`, models.NewFetchError(models.ErrCodeHTTP, "HTTP 404", nil), http.StatusBadGateway, models.ErrCodeHTTP},
		{"timeout", `{"url":"https://acme.io"}`, models.NewFetchError(models.ErrCodeTimeout, "slow", nil), http.StatusGatewayTimeout, models.ErrCodeTimeout},
		{"render launch", `{"url":"https://acme.io"}`, models.NewFetchError(models.ErrCodeRenderLaunch, "no chrome", nil), http.StatusServiceUnavailable, models.ErrCodeRenderLaunch},
		{"untyped", `{"url":"https://acme.io"}`, context.Canceled, http.StatusInternalServerError, models.ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := testRouter(&fakeExtractor{err: tt.err})
			w := do(r, http.MethodPost, "/scrape", tt.body)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}

			var resp models.ScrapeResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Success || resp.Data != nil {
				t.Errorf("success = %v, data = %v; want false, nil", resp.Success, resp.Data)
			}
			if resp.Error == nil || resp.Error.Code != tt.code {
				t.Errorf("error = %+v, want code %s", resp.Error, tt.code)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	r := testRouter(&fakeExtractor{})
	for _, path := range []string{"/health", "/api/v1/health"} {
		w := do(r, http.MethodGet, path, "")
		if w.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, w.Code)
		}
		var resp models.HealthResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Status != "healthy" || resp.Service != "siteprofile" {
			t.Errorf("%s = %+v", path, resp)
		}
	}
}

func TestCORS(t *testing.T) {
	t.Run("wildcard", func(t *testing.T) {
		r := testRouter(&fakeExtractor{})
		w := do(r, http.MethodGet, "/health", "", "Origin", "https://app.example.com")
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("Allow-Origin = %q, want *", got)
		}
	})

	t.Run("preflight", func(t *testing.T) {
		ex := &fakeExtractor{}
		r := testRouter(ex)
		w := do(r, http.MethodOptions, "/scrape", "",
			"Origin", "https://app.example.com",
			"Access-Control-Request-Method", "POST")
		if w.Code != http.StatusNoContent {
			t.Errorf("status = %d, want 204", w.Code)
		}
		if ex.gotURL != "" {
			t.Error("preflight reached the handler")
		}
		if got := w.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "POST") {
			t.Errorf("Allow-Methods = %q", got)
		}
	})

	t.Run("allow list", func(t *testing.T) {
		r := testRouter(&fakeExtractor{}, "https://app.example.com")
		w := do(r, http.MethodGet, "/health", "", "Origin", "https://app.example.com")
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
			t.Errorf("Allow-Origin = %q", got)
		}
		w = do(r, http.MethodGet, "/health", "", "Origin", "https://evil.example")
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Allow-Origin = %q for unlisted origin", got)
		}
	})
}

func TestRequestID(t *testing.T) {
	r := testRouter(&fakeExtractor{})

	w := do(r, http.MethodGet, "/health", "")
	if _, err := uuid.Parse(w.Header().Get("X-Request-ID")); err != nil {
		t.Errorf("generated X-Request-ID %q is not a uuid", w.Header().Get("X-Request-ID"))
	}

	id := uuid.NewString()
	w = do(r, http.MethodGet, "/health", "", "X-Request-ID", id)
	if got := w.Header().Get("X-Request-ID"); got != id {
		t.Errorf("X-Request-ID = %q, want caller's %q", got, id)
	}

	w = do(r, http.MethodGet, "/health", "", "X-Request-ID", "<script>")
	if got := w.Header().Get("X-Request-ID"); got == "<script>" {
		t.Error("non-uuid request id was echoed back")
	}
}
