package healthz

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLiveEndpoint(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("应返回 200, 实际 %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if string(body) != "Bot is running!" {
		t.Fatalf("响应体不正确: %q", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("metrics 应返回 200, 实际 %d", rec.Code)
	}
}
