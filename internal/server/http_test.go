package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adaptstudio/internal/core"
)

func TestRequestIDMiddleware(t *testing.T) {
	tc, _, _ := newTestServer(t, &fakeGenerator{}, nil)

	t.Run("generates request ID when missing", func(t *testing.T) {
		rec := tc.do(httptest.NewRequest(http.MethodGet, "/health", nil))

		got := rec.Header().Get("X-Request-ID")
		if got == "" {
			t.Fatal("expected X-Request-ID in response header, got empty")
		}
		// Validate UUID format (8-4-4-4-12 hex digits)
		if len(got) != 36 {
			t.Errorf("expected UUID (36 chars), got %q (%d chars)", got, len(got))
		}
	})

	t.Run("preserves existing request ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("X-Request-ID", "my-custom-id")
		rec := tc.do(req)

		if got := req.Header.Get("X-Request-ID"); got != "my-custom-id" {
			t.Errorf("expected request header to be preserved as %q, got %q", "my-custom-id", got)
		}
		if respID := rec.Header().Get("X-Request-ID"); respID != "my-custom-id" {
			t.Errorf("expected response header X-Request-ID to be %q, got %q", "my-custom-id", respID)
		}
	})
}

func TestMetricsEndpoint(t *testing.T) {
	tests := []struct {
		name           string
		config         *Config
		requestPath    string
		expectedStatus int
		expectBody     string // substring to check in response body
	}{
		{
			name:           "metrics enabled - default endpoint accessible",
			config:         &Config{MetricsEnabled: true, MetricsEndpoint: "/metrics"},
			requestPath:    "/metrics",
			expectedStatus: http.StatusOK,
			expectBody:     "go_goroutines",
		},
		{
			name:           "metrics enabled - empty endpoint defaults to /metrics",
			config:         &Config{MetricsEnabled: true},
			requestPath:    "/metrics",
			expectedStatus: http.StatusOK,
			expectBody:     "go_goroutines",
		},
		{
			name:           "metrics enabled - custom endpoint",
			config:         &Config{MetricsEnabled: true, MetricsEndpoint: "/internal/metrics"},
			requestPath:    "/internal/metrics",
			expectedStatus: http.StatusOK,
			expectBody:     "go_goroutines",
		},
		{
			name:           "path traversal is normalized",
			config:         &Config{MetricsEnabled: true, MetricsEndpoint: "/a/b/../c"},
			requestPath:    "/a/c",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "metrics disabled - endpoint returns 404",
			config:         &Config{MetricsEnabled: false, MetricsEndpoint: "/metrics"},
			requestPath:    "/metrics",
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "nil config - metrics disabled",
			config:         nil,
			requestPath:    "/metrics",
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc, _, _ := newTestServer(t, &fakeGenerator{}, tt.config)

			rec := tc.do(httptest.NewRequest(http.MethodGet, tt.requestPath, nil))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectBody != "" {
				assert.Contains(t, rec.Body.String(), tt.expectBody)
			}
		})
	}
}

func TestMetricsEndpoint_CustomGatherer(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "adapt_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	tc, _, _ := newTestServer(t, &fakeGenerator{}, &Config{MetricsEnabled: true, MetricsGatherer: reg})
	rec := tc.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "adapt_test_total 1")
	assert.NotContains(t, rec.Body.String(), "go_goroutines")
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
}

func TestBodySizeLimit(t *testing.T) {
	tc, _, _ := newTestServer(t, &fakeGenerator{}, &Config{BodySizeLimit: 1024})

	tests := []struct {
		name      string
		do        func() *httptest.ResponseRecorder
		wantCode  int
		wantError string
	}{
		{
			name: "upload over limit is reported on the slot",
			do: func() *httptest.ResponseRecorder {
				return tc.upload("product", "shoe.png", "image/png", make([]byte, 4096))
			},
			wantCode:  http.StatusUnprocessableEntity,
			wantError: core.MessageFileTooLarge,
		},
		{
			name: "upload under limit",
			do: func() *httptest.ResponseRecorder {
				return tc.upload("product", "shoe.png", "image/png", pngBytes)
			},
			wantCode: http.StatusOK,
		},
		{
			name: "json body over limit",
			do: func() *httptest.ResponseRecorder {
				return tc.doJSON(http.MethodPut, "/api/prompt", map[string]string{"prompt": strings.Repeat("x", 2048)})
			},
			wantCode: http.StatusRequestEntityTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := tt.do()
			require.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode != http.StatusRequestEntityTooLarge {
				assert.Equal(t, tt.wantError, decode[slotResponse](t, rec).Slot.Error)
			}
		})
	}
}

func TestBodySizeLimit_DefaultFitsMaxUpload(t *testing.T) {
	tc, _, _ := newTestServer(t, &fakeGenerator{}, nil)

	// a 10 MiB image plus multipart framing stays under the default limit
	rec := tc.upload("reference", "ad.png", "image/png", make([]byte, 10*1024*1024))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = tc.doJSON(http.MethodPut, "/api/prompt", map[string]string{"prompt": strings.Repeat("x", 13*1024*1024)})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestGenerateRateLimit(t *testing.T) {
	gen := &fakeGenerator{}
	tc, _, _ := newTestServer(t, gen, &Config{GenerateRateLimit: 0.001})

	// burst of two, then denied; not-ready triggers still count
	assert.Equal(t, http.StatusConflict, tc.doJSON(http.MethodPost, "/api/generate", nil).Code)
	assert.Equal(t, http.StatusConflict, tc.doJSON(http.MethodPost, "/api/generate", nil).Code)

	rec := tc.doJSON(http.MethodPost, "/api/generate", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "rate_limit_error")

	// other routes are not limited
	assert.Equal(t, http.StatusOK, tc.do(httptest.NewRequest(http.MethodGet, "/api/studio", nil)).Code)

	// a different session has its own budget
	other := &testClient{t: t, srv: tc.srv}
	assert.Equal(t, http.StatusConflict, other.doJSON(http.MethodPost, "/api/generate", nil).Code)
}

func TestSessionMiddleware_MalformedCookieReplaced(t *testing.T) {
	tc, _, _ := newTestServer(t, &fakeGenerator{}, nil)
	tc.cookie = &http.Cookie{Name: SessionCookie, Value: "../../etc/passwd"}

	tc.do(httptest.NewRequest(http.MethodGet, "/api/studio", nil))

	require.NotNil(t, tc.cookie)
	assert.NotEqual(t, "../../etc/passwd", tc.cookie.Value)
	assert.Len(t, tc.cookie.Value, 36)
}

func TestStaticAssets(t *testing.T) {
	tc, _, _ := newTestServer(t, &fakeGenerator{}, nil)

	rec := tc.do(httptest.NewRequest(http.MethodGet, "/static/js/studio.js", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/generate")
}
