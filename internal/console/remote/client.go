// Package remote talks to the suitehub REST API, or to bundled fixture
// documents when no API origin is configured.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"path"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var userAgent = "suitehub-console/1 (" + runtime.GOOS + ")"

// ErrUnauthorized is returned after a 401; the identity has already been reset.
var ErrUnauthorized = errors.New("session expired, please log in again")

// HTTPError is any other non-2xx response.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// IsNotFound reports whether err is a 404 from the API or a missing fixture.
func IsNotFound(err error) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.Status == http.StatusNotFound
}

// Identity supplies the access token and is cleared on 401.
type Identity interface {
	Token() string
	Reset() error
}

// StaticToken is an Identity for callers that hold a token directly.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }
func (StaticToken) Reset() error    { return nil }

type Client struct {
	baseURL    string
	httpClient *http.Client
	identity   Identity
	fixtures   fs.FS
	delay      time.Duration
	logger     zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithFixtures serves requests from fsys when the base URL is empty.
func WithFixtures(fsys fs.FS, delay time.Duration) Option {
	return func(cl *Client) {
		cl.fixtures = fsys
		cl.delay = delay
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// New builds a client for baseURL (for example http://localhost:8080/api/v1).
func New(baseURL string, identity Identity, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		identity:   identity,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Offline reports whether requests are answered from fixtures.
func (c *Client) Offline() bool {
	return c.baseURL == ""
}

func (c *Client) do(ctx context.Context, method, p string, body interface{}, out interface{}) error {
	if c.Offline() {
		return c.fixture(ctx, method, p, out)
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, p, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+p, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, p, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.identity != nil {
		if token := c.identity.Token(); token != "" {
			req.Header.Set("X-Access-Token", token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, p, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", method).
		Str("path", p).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("api request")

	if resp.StatusCode == http.StatusUnauthorized {
		if c.identity != nil {
			if err := c.identity.Reset(); err != nil {
				c.logger.Warn().Err(err).Msg("failed to clear identity")
			}
		}
		return ErrUnauthorized
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, p, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{Status: resp.StatusCode, Message: errorMessage(resp, raw)}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, p, err)
	}
	return nil
}

func errorMessage(resp *http.Response, raw []byte) string {
	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &envelope) == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		if envelope.Error != "" {
			return envelope.Error
		}
	}
	return fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
}

// fixture answers reads from the bundled documents. Writes succeed without a
// body so demo flows keep working.
func (c *Client) fixture(ctx context.Context, method, p string, out interface{}) error {
	if c.delay > 0 {
		timer := time.NewTimer(c.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	if method != http.MethodGet {
		return nil
	}
	if c.fixtures == nil {
		return &HTTPError{Status: http.StatusNotFound, Message: fmt.Sprintf("no fixture for %s", p)}
	}

	name := fixtureName(p)
	raw, err := fs.ReadFile(c.fixtures, name)
	if err != nil {
		return &HTTPError{Status: http.StatusNotFound, Message: fmt.Sprintf("no fixture for %s", p)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("fixture %s: %w", name, err)
	}
	return nil
}

// fixtureName maps /subscriptions?team_id=x to subscriptions.json.
func fixtureName(p string) string {
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	p = strings.Trim(path.Clean("/"+p), "/")
	return p + ".json"
}

func Get[T any](ctx context.Context, c *Client, p string) (T, error) {
	var out T
	err := c.do(ctx, http.MethodGet, p, nil, &out)
	return out, err
}

// GetWithFallback returns fallback instead of an error for anything but a
// 401, which still has to reach the caller.
func GetWithFallback[T any](ctx context.Context, c *Client, p string, fallback T) (T, error) {
	out, err := Get[T](ctx, c, p)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return fallback, err
		}
		c.logger.Debug().Err(err).Str("path", p).Msg("using fallback")
		return fallback, nil
	}
	return out, nil
}

func Post[P, T any](ctx context.Context, c *Client, p string, body P) (T, error) {
	var out T
	err := c.do(ctx, http.MethodPost, p, body, &out)
	return out, err
}

func Patch[P, T any](ctx context.Context, c *Client, p string, body P) (T, error) {
	var out T
	err := c.do(ctx, http.MethodPatch, p, body, &out)
	return out, err
}

func Delete[T any](ctx context.Context, c *Client, p string) (T, error) {
	var out T
	err := c.do(ctx, http.MethodDelete, p, nil, &out)
	return out, err
}
