// Package testutil holds helpers shared by the portal's tests: a scriptable fake of the school
// backend and a token minter.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MintToken returns a signed JWT expiring at exp. The portal never checks signatures,
// so the key is irrelevant. A zero exp leaves the claim out.
func MintToken(t *testing.T, exp time.Time, extra ...jwt.MapClaims) string {
	t.Helper()

	claims := jwt.MapClaims{"sub": "1"}
	if !exp.IsZero() {
		claims["exp"] = exp.Unix()
	}
	for _, e := range extra {
		for k, v := range e {
			claims[k] = v
		}
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("MintToken() failed: %v", err)
	}
	return token
}

// Request is a request received by a FakeBackend.
type Request struct {
	Method string
	Path   string
	Auth   string
	Body   []byte
}

// FakeBackend is an httptest server answering scripted routes, keyed by "METHOD /path".
// Unscripted routes answer 404.
type FakeBackend struct {
	*httptest.Server

	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	requests []Request
}

func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()

	f := &FakeBackend{routes: make(map[string]http.HandlerFunc)}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

func (f *FakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.requests = append(f.requests, Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Auth:   r.Header.Get("Authorization"),
		Body:   body,
	})
	h, ok := f.routes[r.Method+" "+r.URL.Path]
	f.mu.Unlock()

	if !ok {
		WriteJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
		return
	}
	h(w, r)
}

// Handle scripts a route.
func (f *FakeBackend) Handle(method, path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[method+" "+path] = h
}

// JSON scripts a route answering status with body.
func (f *FakeBackend) JSON(method, path string, status int, body interface{}) {
	f.Handle(method, path, func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, status, body)
	})
}

// Requests returns the requests received so far matching method and path.
func (f *FakeBackend) Requests(method, path string) []Request {
	f.mu.Lock()
	defer f.mu.Unlock()

	var reqs []Request
	for _, r := range f.requests {
		if r.Method == method && r.Path == path {
			reqs = append(reqs, r)
		}
	}
	return reqs
}

// Calls counts the requests received matching method and path.
func (f *FakeBackend) Calls(method, path string) int {
	return len(f.Requests(method, path))
}

// Total counts every request received.
func (f *FakeBackend) Total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func WriteJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// NopLogger is a core.Logger writing nowhere.
type NopLogger struct{}

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
func (NopLogger) Fatal(string, ...interface{}) {}
