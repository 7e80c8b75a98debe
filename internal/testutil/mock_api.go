// Package testutil provides a mock launch API for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/Sternrassler/launchlist/pkg/launch"
)

// MockResponse overrides the response for the next request(s).
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockAPI is a configurable mock of the launch collection endpoint.
// It serves its Launches slice with limit/offset paging.
type MockAPI struct {
	server *httptest.Server
	path   string

	mu        sync.RWMutex
	launches  []launch.Launch
	overrides []MockResponse
	delay     time.Duration
	etag      string
	gate      chan struct{}

	// Tracking
	RequestCount      int
	ConditionalCount  int
	Offsets           []int
	LastRequestHeader http.Header
}

// NewMockAPI creates a mock serving launches under path (e.g. "/v3/launches").
func NewMockAPI(path string, launches []launch.Launch) *MockAPI {
	m := &MockAPI{
		path:     path,
		launches: launches,
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.Release()
	m.server.Close()
}

// SetLaunches replaces the served data set.
func (m *MockAPI) SetLaunches(launches []launch.Launch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.launches = launches
}

// SetDelay delays every response.
func (m *MockAPI) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// SetETag makes page responses carry an ETag and answer matching
// If-None-Match requests with 304.
func (m *MockAPI) SetETag(etag string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.etag = etag
}

// Enqueue queues overrides answered in order before normal paging resumes.
func (m *MockAPI) Enqueue(responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides = append(m.overrides, responses...)
}

// Hold blocks every request until Release is called.
func (m *MockAPI) Hold() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gate == nil {
		m.gate = make(chan struct{})
	}
}

// Release unblocks held requests.
func (m *MockAPI) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gate != nil {
		close(m.gate)
		m.gate = nil
	}
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

// GetOffsets returns the offsets requested so far, in order.
func (m *MockAPI) GetOffsets() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]int(nil), m.Offsets...)
}

func (m *MockAPI) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != m.path {
		http.NotFound(w, r)
		return
	}

	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, limitErr := strconv.Atoi(r.URL.Query().Get("limit"))

	m.mu.Lock()
	m.RequestCount++
	m.Offsets = append(m.Offsets, offset)
	m.LastRequestHeader = r.Header.Clone()
	if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
		m.ConditionalCount++
	}
	var override *MockResponse
	if len(m.overrides) > 0 {
		o := m.overrides[0]
		m.overrides = m.overrides[1:]
		override = &o
	}
	delay := m.delay
	etag := m.etag
	gate := m.gate
	data := m.launches
	m.mu.Unlock()

	if limitErr != nil || limit <= 0 {
		limit = len(data)
	}

	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	if override != nil {
		if override.Delay > 0 {
			time.Sleep(override.Delay)
		}
		for k, v := range override.Headers {
			w.Header().Set(k, v)
		}
		w.WriteHeader(override.StatusCode)
		if override.Body != "" {
			w.Write([]byte(override.Body))
		}
		return
	}

	if delay > 0 {
		time.Sleep(delay)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if etag != "" {
		pageTag := fmt.Sprintf(`"%s-%d-%d"`, trimQuotes(etag), offset, limit)
		w.Header().Set("ETag", pageTag)
		w.Header().Set("Cache-Control", "max-age=0")
		if r.Header.Get("If-None-Match") == pageTag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	page := Page(data, offset, limit)
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(page)
}

// Page slices launches like the API does for limit/offset.
func Page(launches []launch.Launch, offset, limit int) []launch.Launch {
	if offset >= len(launches) {
		return []launch.Launch{}
	}
	end := offset + limit
	if end > len(launches) {
		end = len(launches)
	}
	return launches[offset:end]
}

func trimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// Launches generates n launches with flight numbers 1..n and mission
// names "Mission N".
func Launches(n int) []launch.Launch {
	out := make([]launch.Launch, n)
	base := time.Date(2006, 3, 24, 22, 30, 0, 0, time.UTC)
	for i := range out {
		out[i] = launch.Launch{
			FlightNumber:  i + 1,
			MissionName:   fmt.Sprintf("Mission %d", i+1),
			LaunchYear:    strconv.Itoa(base.AddDate(0, i, 0).Year()),
			LaunchDateUTC: base.AddDate(0, i, 0).Format(time.RFC3339),
			Success:       launch.Bool(true),
			Upcoming:      launch.Bool(false),
		}
	}
	return out
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse(retryAfter int) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Rate limit exceeded"}`,
		Headers: map[string]string{
			"Retry-After":           strconv.Itoa(retryAfter),
			"X-RateLimit-Remaining": "0",
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewMalformedResponse creates a 200 with a body that is not a launch array.
func NewMalformedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"message": "not a list"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}
