package api

import (
	"net/http"
	"testing"
)

func TestHealthEndpoint(t *testing.T) {
	setup := setupTestAPI(t)
	router := NewRouter(setup.Deps)

	rr := makeRequest(t, "GET", "/health", nil, router)
	assertStatus(t, rr, http.StatusOK)

	var resp HealthResponse
	decodeResponse(t, rr, &resp)
	if resp.Status != "healthy" {
		t.Errorf("expected healthy, got %q", resp.Status)
	}
	if resp.Version == "" || resp.GoVersion == "" {
		t.Errorf("missing version info: %+v", resp)
	}
}

func TestLiveEndpoint(t *testing.T) {
	setup := setupTestAPI(t)
	router := NewRouter(setup.Deps)

	rr := makeRequest(t, "GET", "/api/live", nil, router)
	assertStatus(t, rr, http.StatusOK)
}
