// Package api talks to the treehole backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pders01/treehole/internal/config"
	"github.com/pders01/treehole/internal/debuglog"
	"github.com/pders01/treehole/internal/query"
	"github.com/pders01/treehole/internal/session"
	"github.com/pders01/treehole/internal/validation"
)

// maxBodyBytes caps how much of a response body is read.
var maxBodyBytes int64 = 10 << 20

// Navigator is told to show the login screen when the session expires.
type Navigator interface {
	ToLogin()
}

// NavigatorFunc adapts a plain function to Navigator.
type NavigatorFunc func()

func (f NavigatorFunc) ToLogin() { f() }

type Client struct {
	baseURL   *url.URL
	http      *http.Client
	jar       *resettableJar
	userAgent string
	cookies   bool
	wire      query.WireKeys
	session   *session.Context

	navMu sync.RWMutex
	nav   Navigator
}

type Option func(*Client)

// WithNavigator sets the hook invoked on 401 responses.
func WithNavigator(nav Navigator) Option {
	return func(c *Client) { c.nav = nav }
}

// WithHTTPClient replaces the underlying transport client. The cookie jar
// is still installed when cookie auth is configured.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func NewClient(cfg *config.Config, sess *session.Context, opts ...Option) (*Client, error) {
	base, err := validation.ForConfig(cfg.API.AllowPrivate).ValidateBaseURL(cfg.API.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("api.base_url: %w", err)
	}
	if sess == nil {
		sess = session.New(nil)
	}

	c := &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: cfg.API.Timeout},
		userAgent: cfg.API.UserAgent,
		cookies:   cfg.API.AuthMode == "cookie",
		wire:      cfg.API.WireKeys(),
		session:   sess,
	}
	for _, opt := range opts {
		opt(c)
	}

	// Redirects are surfaced, not followed.
	c.http.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	if c.cookies {
		c.jar = newResettableJar()
		c.http.Jar = c.jar
	}

	return c, nil
}

// SetNavigator replaces the 401 hook after construction, for callers that
// build the UI after the client.
func (c *Client) SetNavigator(nav Navigator) {
	c.navMu.Lock()
	defer c.navMu.Unlock()
	c.nav = nav
}

func (c *Client) Session() *session.Context {
	return c.session
}

type request struct {
	method string
	path   string
	// rawPath is the escaped form of path, set when path carries a
	// user-supplied segment.
	rawPath string
	query   url.Values
	body    any
}

// envelopeHead is decoded before the typed payload so a 401 is noticed no
// matter what shape the data has.
type envelopeHead struct {
	Code *int   `json:"code"`
	Msg  string `json:"msg"`
}

type envelope[T any] struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data T      `json:"data"`
}

type listData[T any] struct {
	List  []T `json:"list"`
	Total int `json:"total"`
}

// do performs the request and returns the raw body of a successful
// response. 401 handling lives here so it happens exactly once per response.
func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	u := *c.baseURL
	base := strings.TrimRight(u.EscapedPath(), "/")
	u.Path = strings.TrimRight(u.Path, "/") + r.path
	u.RawPath = ""
	if r.rawPath != "" {
		u.RawPath = base + r.rawPath
	}
	if len(r.query) > 0 {
		u.RawQuery = r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	reqID := uuid.NewString()
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !c.cookies {
		if token := c.session.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	log := debuglog.WithFields(map[string]interface{}{
		"request_id": reqID,
		"method":     r.method,
		"path":       r.path,
	})
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		log.Warnf("request failed after %s: %v", debuglog.Since(start), err)
		return nil, fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if int64(len(data)) > maxBodyBytes {
		return nil, fmt.Errorf("%s %s: %w", r.method, r.path, ErrResponseTooLarge)
	}
	log.With("status", resp.StatusCode).Debugf("response in %s", debuglog.Since(start))

	if resp.StatusCode == http.StatusUnauthorized {
		c.unauthorized(log)
		return nil, ErrUnauthorized
	}

	var head envelopeHead
	headErr := json.Unmarshal(data, &head)
	if headErr == nil && head.Code != nil && *head.Code == http.StatusUnauthorized {
		c.unauthorized(log)
		return nil, ErrUnauthorized
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := head.Msg
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{Code: resp.StatusCode, Msg: msg}
	}

	return data, nil
}

func (c *Client) unauthorized(log *debuglog.FieldLogger) {
	log.Warnf("session rejected, clearing credential")
	if err := c.session.Clear(); err != nil {
		log.Errorf("clearing session: %v", err)
	}
	if c.jar != nil {
		c.jar.Reset()
	}

	c.navMu.RLock()
	nav := c.nav
	c.navMu.RUnlock()
	if nav != nil {
		nav.ToLogin()
	}
}

// decodeEnvelope checks the status code and unmarshals data into T.
func decodeEnvelope[T any](raw []byte) (T, error) {
	var env envelope[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		var zero T
		return zero, fmt.Errorf("decoding response: %w", err)
	}
	if env.Code != http.StatusOK {
		var zero T
		return zero, &APIError{Code: env.Code, Msg: env.Msg}
	}
	return env.Data, nil
}

func getList[T any](ctx context.Context, c *Client, r request) (*Page[T], error) {
	r.method = http.MethodGet
	raw, err := c.do(ctx, r)
	if err != nil {
		return nil, err
	}
	data, err := decodeEnvelope[listData[T]](raw)
	if err != nil {
		return nil, err
	}
	items := data.List
	if items == nil {
		items = []T{}
	}
	return &Page[T]{Items: items, Total: data.Total}, nil
}

// resettableJar lets the session drop server cookies on logout or 401.
type resettableJar struct {
	mu  sync.RWMutex
	jar *cookiejar.Jar
}

func newResettableJar() *resettableJar {
	jar, _ := cookiejar.New(nil)
	return &resettableJar{jar: jar}
}

func (j *resettableJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	j.jar.SetCookies(u, cookies)
}

func (j *resettableJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.jar.Cookies(u)
}

func (j *resettableJar) Reset() {
	jar, _ := cookiejar.New(nil)
	j.mu.Lock()
	j.jar = jar
	j.mu.Unlock()
}
