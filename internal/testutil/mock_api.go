// Package testutil provides a configurable mock JSON API for tests.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// DefaultBody is served by paths without a configured handler.
const DefaultBody = `[{"id":1,"name":"a"},{"id":2,"name":"b"}]`

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockAPI is a configurable mock JSON API server.
type MockAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc
	authz    func(r *http.Request) bool

	// Tracking
	RequestCount      int
	ConditionalCount  int
	LastRequestHeader http.Header
	Paths             []string
}

// NewMockAPI creates a new mock API server.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		handlers: make(map[string]http.HandlerFunc),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		mock.Paths = append(mock.Paths, r.URL.RequestURI())
		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			mock.ConditionalCount++
		}
		handler, exists := mock.handlers[r.URL.Path]
		authz := mock.authz
		mock.mu.Unlock()

		if authz != nil && !authz(r) {
			writeJSON(w, http.StatusUnauthorized, `{"detail":"Authentication credentials were not provided."}`)
			return
		}

		if exists {
			handler(w, r)
			return
		}

		writeJSON(w, http.StatusOK, DefaultBody)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ConditionalCount = 0
	m.LastRequestHeader = nil
	m.Paths = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockAPI) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetPages serves a paginated envelope on path. Each element of results is
// the JSON array for one page; pages are addressed with ?page=N starting
// at 1, and every page links to the next with an absolute URL.
func (m *MockAPI) SetPages(path string, results ...string) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		page := 1
		if p := r.URL.Query().Get("page"); p != "" {
			n, err := strconv.Atoi(p)
			if err != nil || n < 1 || n > len(results) {
				writeJSON(w, http.StatusNotFound, `{"detail":"Invalid page."}`)
				return
			}
			page = n
		}

		next := "null"
		if page < len(results) {
			next = fmt.Sprintf(`"%s%s?page=%d"`, m.server.URL, path, page+1)
		}
		writeJSON(w, http.StatusOK, fmt.Sprintf(`{"count":%d,"next":%s,"results":%s}`, len(results), next, results[page-1]))
	})
}

// RequireBasic rejects requests without the given Basic credentials.
func (m *MockAPI) RequireBasic(username, password string) {
	m.setAuthz(func(r *http.Request) bool {
		u, p, ok := r.BasicAuth()
		return ok && u == username && p == password
	})
}

// RequireBearer rejects requests without the given bearer token.
func (m *MockAPI) RequireBearer(token string) {
	m.setAuthz(func(r *http.Request) bool {
		return r.Header.Get("Authorization") == "Bearer "+token
	})
}

// RequireAPIKey rejects requests without name=value in the query.
func (m *MockAPI) RequireAPIKey(name, value string) {
	m.setAuthz(func(r *http.Request) bool {
		return r.URL.Query().Get(name) == value
	})
}

func (m *MockAPI) setAuthz(fn func(r *http.Request) bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authz = fn
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockAPI) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConditionalCount
}

// NewConditionalHandler creates a handler that answers 304 when the
// request carries etag, and otherwise serves data with max-age caching.
func NewConditionalHandler(etag, data string, maxAge int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", fmt.Sprintf("max-age=%d", maxAge))
		w.Header().Set("ETag", etag)

		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}

		writeJSON(w, http.StatusOK, data)
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(body))
}
