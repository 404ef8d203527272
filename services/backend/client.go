// Package backend is the HTTP client of the school REST backend.
//
// Every request carries the session's bearer token when one is stored. A 401 response clears
// the stored token, unless it was replaced in the meantime, and fires the client's unauthorized hook before the error reaches the caller.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/cace/core"
)

// ErrUnauthorized is matched (errors.Is) by every error caused by a 401 response.
var ErrUnauthorized = errors.New("backend: unauthorized")

// TokenSource is where the client finds the bearer token. session.Slot is one.
type TokenSource interface {
	Read(ctx context.Context) (string, bool, error)
	Clear(ctx context.Context) error
}

// APIError is a non-2xx backend response.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}

func (e *APIError) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// StatusCode returns the backend status behind err, or 0 when err is not an *APIError.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Message returns the backend's own message behind err, if any.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

type Options struct {
	BaseURL   string
	Timeout   time.Duration
	Transport http.RoundTripper // defaults to http.DefaultTransport
	Logger    core.Logger
}

// Factory hands out per-session clients sharing one transport.
type Factory struct {
	opts Options
}

func NewFactory(opts Options) (*Factory, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("backend base URL is required")
	}
	if opts.Transport == nil {
		opts.Transport = http.DefaultTransport
	}
	if opts.Timeout == 0 {
		opts.Timeout = 15 * time.Second
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &Factory{opts: opts}, nil
}

// Client builds a client reading its token from tokens. onUnauthorized may be nil.
func (f *Factory) Client(tokens TokenSource, onUnauthorized func(context.Context)) *Client {
	return &Client{
		baseURL: f.opts.BaseURL,
		logger:  f.opts.Logger,
		http: &http.Client{
			Timeout: f.opts.Timeout,
			Transport: &authTransport{
				base:           f.opts.Transport,
				tokens:         tokens,
				onUnauthorized: onUnauthorized,
				logger:         f.opts.Logger,
			},
		},
	}
}

// Client talks to the backend on behalf of one session.
type Client struct {
	baseURL string
	http    *http.Client
	logger  core.Logger
}

// authTransport attaches the bearer token and reacts to 401 responses.
type authTransport struct {
	base           http.RoundTripper
	tokens         TokenSource
	onUnauthorized func(context.Context)
	logger         core.Logger
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	var sent string
	if t.tokens != nil {
		token, ok, err := t.tokens.Read(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "reading session token")
		}
		if ok && token != "" {
			sent = token
			req = req.Clone(ctx)
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		if t.tokens != nil && sent != "" {
			t.clearIfCurrent(ctx, sent)
		}
		if t.onUnauthorized != nil {
			t.onUnauthorized(ctx)
		}
	}
	return resp, nil
}

// clearIfCurrent clears the stored token unless it was replaced while the request was in flight.
func (t *authTransport) clearIfCurrent(ctx context.Context, sent string) {
	token, ok, err := t.tokens.Read(ctx)
	if err == nil && (!ok || token != sent) {
		return
	}
	if err = t.tokens.Clear(ctx); err != nil && t.logger != nil {
		t.logger.Error("clearing session token after 401", err)
	}
}

// URL resolves path against the base URL; leading slashes are optional.
func (c *Client) URL(path string) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// Do sends in (JSON encoded, may be nil) and decodes the response body into out (may be nil).
func (c *Client) Do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.Wrapf(err, "encoding %s %s", method, path)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), body)
	if err != nil {
		return errors.Wrapf(err, "building %s %s", method, path)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			Method:  method,
			Path:    path,
			Status:  resp.StatusCode,
			Message: errorMessage(resp.Body),
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err = json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return errors.Wrapf(err, "decoding %s %s", method, path)
	}
	return nil
}

// errorMessage extracts {"message": ...} or {"error": ...} from an error body.
func errorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil || len(data) == 0 {
		return ""
	}
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err = json.Unmarshal(data, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}
