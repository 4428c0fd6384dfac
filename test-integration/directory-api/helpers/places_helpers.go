package helpers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
)

// MockPlacesServer is a Places web service double that answers details
// requests from a per-place table and counts them
type MockPlacesServer struct {
	*httptest.Server

	apiKey string

	mu      sync.Mutex
	open    map[string]bool
	failing map[string]bool
	calls   map[string]int
}

// NewMockPlacesServer starts a mock Places server that accepts apiKey
func NewMockPlacesServer(apiKey string) *MockPlacesServer {
	m := &MockPlacesServer{
		apiKey:  apiKey,
		open:    make(map[string]bool),
		failing: make(map[string]bool),
		calls:   make(map[string]int),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

// Endpoint returns the base URL to configure as places.endpoint
func (m *MockPlacesServer) Endpoint() string {
	return m.URL + "/maps/api/place"
}

// SetOpen sets the open_now value returned for placeID
func (m *MockPlacesServer) SetOpen(placeID string, open bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open[placeID] = open
	delete(m.failing, placeID)
}

// SetFailing makes details requests for placeID answer with a server error
func (m *MockPlacesServer) SetFailing(placeID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing[placeID] = true
}

// Calls returns how many details requests were made for placeID
func (m *MockPlacesServer) Calls(placeID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[placeID]
}

func (m *MockPlacesServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/maps/api/place/details/json" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	q := r.URL.Query()
	w.Header().Set("Content-Type", "application/json")
	if q.Get("key") != m.apiKey {
		fmt.Fprint(w, `{"status":"REQUEST_DENIED","error_message":"The provided API key is invalid."}`)
		return
	}

	placeID := q.Get("place_id")
	m.mu.Lock()
	m.calls[placeID]++
	failing := m.failing[placeID]
	open, known := m.open[placeID]
	m.mu.Unlock()

	switch {
	case failing:
		w.WriteHeader(http.StatusInternalServerError)
	case !known:
		fmt.Fprint(w, `{"status":"NOT_FOUND"}`)
	default:
		fmt.Fprintf(w, `{"status":"OK","result":{"opening_hours":{"open_now":%t}}}`, open)
	}
}
