// Package mockhttp builds mock registry servers for client tests:
// per-route JSON responses, failure injection for retry behavior, and
// request capture for asserting what went over the wire.
package mockhttp

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
)

// Handler handles a request and reports whether it did.
type Handler func(w http.ResponseWriter, r *http.Request) bool

// ServerBuilder builds mock HTTP servers with configurable behavior.
type ServerBuilder struct {
	handlers    []Handler
	defaultCode int
	capture     *Capture
}

// New creates a new ServerBuilder.
func New() *ServerBuilder {
	return &ServerBuilder{defaultCode: http.StatusNotFound}
}

// DefaultStatus sets the status code returned when no handler matches.
func (b *ServerBuilder) DefaultStatus(code int) *ServerBuilder {
	b.defaultCode = code
	return b
}

// Handler adds a custom handler function.
func (b *ServerBuilder) Handler(h Handler) *ServerBuilder {
	b.handlers = append(b.handlers, h)
	return b
}

// JSON returns a 200 JSON response for requests matching path.
func (b *ServerBuilder) JSON(path string, response any) *ServerBuilder {
	return b.JSONWithStatus(path, http.StatusOK, response)
}

// JSONWithStatus returns a JSON response with a specific status code.
func (b *ServerBuilder) JSONWithStatus(path string, code int, response any) *ServerBuilder {
	return b.Handler(func(w http.ResponseWriter, r *http.Request) bool {
		if !matchPath(r.URL.Path, path) {
			return false
		}
		writeJSON(w, code, response)
		return true
	})
}

// Status returns an empty response with the given status code.
func (b *ServerBuilder) Status(path string, code int) *ServerBuilder {
	return b.Handler(func(w http.ResponseWriter, r *http.Request) bool {
		if !matchPath(r.URL.Path, path) {
			return false
		}
		w.WriteHeader(code)
		return true
	})
}

// FlakyJSON fails the first `failures` requests to path with failCode, then
// serves the JSON response with okCode. For exercising retry logic.
func (b *ServerBuilder) FlakyJSON(path string, failures int, failCode, okCode int, response any) *ServerBuilder {
	var calls atomic.Int64
	return b.Handler(func(w http.ResponseWriter, r *http.Request) bool {
		if !matchPath(r.URL.Path, path) {
			return false
		}
		if calls.Add(1) <= int64(failures) {
			w.WriteHeader(failCode)
			return true
		}
		writeJSON(w, okCode, response)
		return true
	})
}

// Route adds a handler that matches both method and path.
func (b *ServerBuilder) Route(method, path string, handler http.HandlerFunc) *ServerBuilder {
	return b.Handler(func(w http.ResponseWriter, r *http.Request) bool {
		if r.Method != method || !matchPath(r.URL.Path, path) {
			return false
		}
		handler(w, r)
		return true
	})
}

// Capture enables request capture for inspection in tests.
func (b *ServerBuilder) Capture() *Capture {
	if b.capture == nil {
		b.capture = &Capture{}
		b.Handler(func(w http.ResponseWriter, r *http.Request) bool {
			b.capture.record(r)
			return false // Continue to next handler
		})
	}
	return b.capture
}

// Build creates the httptest.Server with all configured handlers.
func (b *ServerBuilder) Build() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, h := range b.handlers {
			if h(w, r) {
				return
			}
		}
		w.WriteHeader(b.defaultCode)
	}))
}

// BuildURL creates the server and returns its URL and a shutdown func.
func (b *ServerBuilder) BuildURL() (string, func()) {
	server := b.Build()
	return server.URL, server.Close
}

func writeJSON(w http.ResponseWriter, code int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(response)
}

// matchPath checks if the request path matches the pattern.
// Supports exact match and prefix match with "*" suffix.
func matchPath(requestPath, pattern string) bool {
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(requestPath, strings.TrimSuffix(pattern, "*"))
	}
	return requestPath == pattern
}

// Capture stores captured HTTP requests for test assertions.
type Capture struct {
	mu       sync.Mutex
	requests []CapturedRequest
}

// CapturedRequest holds data from a captured HTTP request.
type CapturedRequest struct {
	Method string
	Path   string
	Body   []byte
	Query  map[string][]string
}

func (c *Capture) record(r *http.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var body []byte
	if r.Body != nil {
		body, _ = io.ReadAll(r.Body)
		r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))
	}

	c.requests = append(c.requests, CapturedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Body:   body,
		Query:  r.URL.Query(),
	})
}

// Count returns the number of captured requests.
func (c *Capture) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

// Last returns the most recent captured request, or nil if none.
func (c *Capture) Last() *CapturedRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.requests) == 0 {
		return nil
	}
	return &c.requests[len(c.requests)-1]
}

// All returns all captured requests.
func (c *Capture) All() []CapturedRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]CapturedRequest, len(c.requests))
	copy(result, c.requests)
	return result
}

// BodyJSON decodes the request body as JSON into v.
func (r *CapturedRequest) BodyJSON(v any) error {
	return json.Unmarshal(r.Body, v)
}
