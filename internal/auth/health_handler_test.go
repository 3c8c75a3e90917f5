// health_handler_test.go -- unit tests for CheckHealth.
package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jfeld-dev/janus/internal/store"
	"github.com/jfeld-dev/janus/internal/testutil"
)

func doHealth(t *testing.T, h *Handler) (int, map[string]string) {
	t.Helper()
	w := httptest.NewRecorder()
	h.CheckHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding health body: %v", err)
	}
	return w.Code, body
}

func TestCheckHealth(t *testing.T) {
	t.Run("all healthy", func(t *testing.T) {
		h := &Handler{PS: testutil.NewMockStore(), RS: testutil.NewMockCache()}
		code, body := doHealth(t, h)
		if code != http.StatusOK {
			t.Errorf("status: expected 200, got %d", code)
		}
		if body["postgres"] != "ok" || body["redis"] != "ok" {
			t.Errorf("body: expected ok/ok, got %v", body)
		}
	})

	t.Run("postgres down", func(t *testing.T) {
		ms := testutil.NewMockStore()
		ms.HealthErr = errors.New("connection refused")
		h := &Handler{PS: ms, RS: testutil.NewMockCache()}
		code, body := doHealth(t, h)
		if code != http.StatusServiceUnavailable {
			t.Errorf("status: expected 503, got %d", code)
		}
		if body["postgres"] != "error" {
			t.Errorf("postgres: expected error, got %q", body["postgres"])
		}
	})

	t.Run("redis disabled is still healthy", func(t *testing.T) {
		h := &Handler{PS: testutil.NewMockStore(), RS: store.NopCache{}}
		code, body := doHealth(t, h)
		if code != http.StatusOK {
			t.Errorf("status: expected 200, got %d", code)
		}
		if body["redis"] != "disabled" {
			t.Errorf("redis: expected disabled, got %q", body["redis"])
		}
	})

	t.Run("redis down", func(t *testing.T) {
		mc := testutil.NewMockCache()
		mc.HealthErr = errors.New("connection refused")
		h := &Handler{PS: testutil.NewMockStore(), RS: mc}
		code, body := doHealth(t, h)
		if code != http.StatusServiceUnavailable {
			t.Errorf("status: expected 503, got %d", code)
		}
		if body["redis"] != "error" {
			t.Errorf("redis: expected error, got %q", body["redis"])
		}
	})
}
