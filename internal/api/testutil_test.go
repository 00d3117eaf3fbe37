package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"tgcalld/internal/call"
	"tgcalld/internal/config"
	"tgcalld/internal/db"
	"tgcalld/internal/models"
	"tgcalld/internal/state"
)

// MockSupervisor is a scriptable CallSupervisor for handler tests
type MockSupervisor struct {
	PlaceCallFunc func(ctx context.Context, req call.CallRequest) error
	HangupFunc    func(ctx context.Context) error

	PlacedRequests []call.CallRequest
	HangupCalls    int
}

func (m *MockSupervisor) PlaceCall(ctx context.Context, req call.CallRequest) error {
	m.PlacedRequests = append(m.PlacedRequests, req)
	if m.PlaceCallFunc != nil {
		return m.PlaceCallFunc(ctx, req)
	}
	return nil
}

func (m *MockSupervisor) Hangup(ctx context.Context) error {
	m.HangupCalls++
	if m.HangupFunc != nil {
		return m.HangupFunc(ctx)
	}
	return nil
}

// MockStateSource serves a fixed snapshot
type MockStateSource struct {
	Snap state.Snapshot
}

func (m *MockStateSource) Snapshot() state.Snapshot {
	return m.Snap
}

// testSetup contains all the test dependencies
type testSetup struct {
	DB         *db.DB
	Supervisor *MockSupervisor
	States     *MockStateSource
	Deps       *Dependencies
}

// setupTestAPI creates a test environment with mocked dependencies
func setupTestAPI(t *testing.T) *testSetup {
	t.Helper()

	database, err := db.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	if err := database.Migrate(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	t.Cleanup(func() {
		database.Close()
	})

	supervisor := &MockSupervisor{}
	states := &MockStateSource{
		Snap: state.Snapshot{Status: state.StatusIdle, UpdatedAt: time.Now().UTC()},
	}

	return &testSetup{
		DB:         database,
		Supervisor: supervisor,
		States:     states,
		Deps: &Dependencies{
			Supervisor: supervisor,
			States:     states,
			DB:         database,
			Config:     &config.Config{},
		},
	}
}

// createTestCall writes a finished call into the log for testing
func createTestCall(t *testing.T, database *db.DB, target, disposition string) *models.CallRecord {
	t.Helper()

	rec := &models.CallRecord{
		ID:        uuid.NewString(),
		Target:    target,
		Topic:     "alarm",
		Language:  "it",
		StartedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := database.CallLog.Create(context.Background(), rec); err != nil {
		t.Fatalf("Failed to create test call record: %v", err)
	}
	if disposition != "" {
		err := database.CallLog.Finish(context.Background(), rec.ID, target, disposition, "", time.Now().UTC(), 30)
		if err != nil {
			t.Fatalf("Failed to finish test call record: %v", err)
		}
	}
	return rec
}

// makeRequest is a helper to create and execute HTTP requests in tests
func makeRequest(t *testing.T, method, url string, body interface{}, handler http.Handler) *httptest.ResponseRecorder {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, url, reqBody)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	return rr
}

// decodeResponse decodes a JSON response into the given interface
func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response: %v (body: %s)", err, rr.Body.String())
	}
}

// assertStatus checks the HTTP status code
func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()

	if rr.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

// assertErrorCode checks the error code in an error response
func assertErrorCode(t *testing.T, rr *httptest.ResponseRecorder, expectedCode string) {
	t.Helper()

	var errResp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}

	if errResp.Error.Code != expectedCode {
		t.Errorf("Expected error code %s, got %s", expectedCode, errResp.Error.Code)
	}
}
