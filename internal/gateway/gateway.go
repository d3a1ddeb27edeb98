package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/zipdrop/internal/models"
	"github.com/desertthunder/zipdrop/internal/shared"
)

// Headers sent with every request.
const (
	ClientHeader        = "X-Client"
	ClientID            = "zipdrop"
	RequestedWithHeader = "X-Requested-With"
	RequestedWith       = "XMLHttpRequest"
)

// DefaultTimeout bounds every outbound call, the refresh call included.
const DefaultTimeout = 12 * time.Second

// RefreshPath is the endpoint that exchanges the current token for a new one.
const RefreshPath = "/auth/refresh"

// Session is the token holder the gateway reads from and updates during a refresh.
type Session interface {
	oauth2.TokenSource
	SetToken(token string) error
	Expire()
}

// Request is one API call. It is passed by value and never modified in place.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Body        []byte
	ContentType string // defaults to application/json

	// Retry marks a request that must not trigger a refresh on 401.
	Retry bool
}

// WithRetry returns a copy of r marked Retry.
func (r Request) WithRetry() Request {
	r.Retry = true
	return r
}

// NewJSONRequest encodes v as the request body.
func NewJSONRequest(method, path string, v any) (Request, error) {
	req := Request{Method: method, Path: path}
	if v == nil {
		return req, nil
	}
	body, err := json.Marshal(v)
	if err != nil {
		return req, fmt.Errorf("failed to encode request body: %w", err)
	}
	req.Body = body
	return req, nil
}

func (r Request) op() string {
	return r.Method + " " + r.Path
}

// Response is a fully read API response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return fmt.Errorf("failed to decode response: empty body")
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Option configures a [Gateway].
type Option func(g *Gateway)

// WithHTTPClient replaces the default client. Its Timeout is left as given.
func WithHTTPClient(client *http.Client) Option {
	return func(g *Gateway) {
		g.client = client
	}
}

// WithTimeout sets the timeout of the gateway's own client.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithTransport sets the round tripper of the gateway's own client.
func WithTransport(rt http.RoundTripper) Option {
	return func(g *Gateway) {
		g.transport = rt
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithNotifier enables the session-expired notification.
func WithNotifier(n Notifier) Option {
	return func(g *Gateway) {
		g.notifier = n
	}
}

// WithNavigator enables the redirect to [SignInView] after a failed refresh.
func WithNavigator(n Navigator) Option {
	return func(g *Gateway) {
		g.navigator = n
	}
}

// Gateway sends requests to the API and coordinates token refreshes between concurrent callers.
type Gateway struct {
	baseURL   string
	client    *http.Client
	timeout   time.Duration
	transport http.RoundTripper
	session   Session
	notifier  Notifier
	navigator Navigator
	logger    *log.Logger

	mu         sync.Mutex
	refreshing bool
	queue      []chan error
}

// New creates a [Gateway] for the API rooted at baseURL.
func New(baseURL string, session Session, opts ...Option) *Gateway {
	g := &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		session: session,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.client == nil {
		g.client = &http.Client{Timeout: g.timeout, Transport: g.transport}
	}
	if g.logger == nil {
		g.logger = shared.WithLogger(shared.NewLogger(nil), "component", "gateway")
	}
	return g
}

// BaseURL returns the API root requests are resolved against.
func (g *Gateway) BaseURL() string { return g.baseURL }

// SetNotifier swaps the notifier, e.g. when the TUI takes over from the CLI.
func (g *Gateway) SetNotifier(n Notifier) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.notifier = n
}

// SetNavigator swaps the navigator.
func (g *Gateway) SetNavigator(n Navigator) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.navigator = n
}

// Refreshing reports whether a refresh call is outstanding.
func (g *Gateway) Refreshing() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.refreshing
}

// Pending returns the number of callers waiting on the current refresh.
func (g *Gateway) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.queue)
}

// Do sends req and passes the response through [Gateway.HandleResponse].
func (g *Gateway) Do(ctx context.Context, req Request) (*Response, error) {
	resp, err := g.send(ctx, req)
	if err != nil {
		return nil, err
	}
	return g.HandleResponse(ctx, req, resp)
}

// Get is shorthand for a GET [Request].
func (g *Gateway) Get(ctx context.Context, path string) (*Response, error) {
	return g.Do(ctx, Request{Method: http.MethodGet, Path: path})
}

// Post sends v as a JSON body.
func (g *Gateway) Post(ctx context.Context, path string, v any) (*Response, error) {
	req, err := NewJSONRequest(http.MethodPost, path, v)
	if err != nil {
		return nil, err
	}
	return g.Do(ctx, req)
}

// DecorateRequest attaches the bearer token, when one is held, and the client headers.
func (g *Gateway) DecorateRequest(r *http.Request) {
	if g.session != nil {
		if tok, err := g.session.Token(); err == nil && tok != nil && tok.AccessToken != "" {
			tok.SetAuthHeader(r)
		}
	}

	r.Header.Set(ClientHeader, ClientID)
	r.Header.Set(RequestedWithHeader, RequestedWith)
	r.Header.Set("Accept", "application/json")
	if r.Header.Get("Content-Type") == "" {
		r.Header.Set("Content-Type", "application/json")
	}
}

// HandleResponse applies the refresh protocol to resp, the answer to req.
//
// It returns resp for 2xx statuses, the result of the replay after a successful refresh,
// or an [*Error].
func (g *Gateway) HandleResponse(ctx context.Context, req Request, resp *Response) (*Response, error) {
	switch {
	case resp.StatusCode == http.StatusUnauthorized && !req.Retry:
		return g.refreshAndReplay(ctx, req)
	case resp.StatusCode >= http.StatusInternalServerError:
		g.logger.Error("server error", "op", req.op(), "status", resp.StatusCode)
		return nil, statusError(req, resp, shared.ErrServiceUnavailable)
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, statusError(req, resp, shared.ErrNotAuthenticated)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, statusError(req, resp, shared.ErrAPIRequest)
	}
	return resp, nil
}

// refreshAndReplay runs or joins a refresh, then replays req once.
func (g *Gateway) refreshAndReplay(ctx context.Context, req Request) (*Response, error) {
	g.mu.Lock()
	if g.refreshing {
		wait := make(chan error, 1)
		g.queue = append(g.queue, wait)
		g.mu.Unlock()

		g.logger.Debug("queued behind refresh", "op", req.op())
		select {
		case err := <-wait:
			if err != nil {
				return nil, err
			}
		case <-ctx.Done():
			return nil, &Error{Op: req.op(), Err: ctx.Err()}
		}
		return g.Do(ctx, req.WithRetry())
	}
	g.refreshing = true
	g.mu.Unlock()

	// The refresh outlives the caller that happened to start it; other callers may be queued on it.
	err := g.refresh(context.WithoutCancel(ctx))
	if err != nil {
		g.expire()
	}

	g.mu.Lock()
	waiters := g.queue
	g.queue = nil
	g.refreshing = false
	g.mu.Unlock()

	for _, wait := range waiters {
		wait <- err
	}

	if err != nil {
		if len(waiters) > 0 {
			g.logger.Warn("refresh failed, rejected queued requests", "queued", len(waiters), "error", err)
		}
		return nil, err
	}
	return g.Do(ctx, req.WithRetry())
}

func (g *Gateway) refresh(ctx context.Context) error {
	if g.session == nil {
		return fmt.Errorf("%w: %w", shared.ErrSessionExpired, shared.ErrNoRefreshToken)
	}
	tok, err := g.session.Token()
	if err != nil || tok == nil || tok.AccessToken == "" {
		return fmt.Errorf("%w: %w", shared.ErrSessionExpired, shared.ErrNoRefreshToken)
	}

	resp, err := g.Do(ctx, Request{Method: http.MethodPost, Path: RefreshPath, Retry: true})
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrSessionExpired, err)
	}

	var payload models.RefreshResponse
	if err := resp.Decode(&payload); err != nil {
		return fmt.Errorf("%w: %w: %v", shared.ErrSessionExpired, shared.ErrRefreshFailed, err)
	}
	if payload.Token == "" {
		return fmt.Errorf("%w: %w: empty token", shared.ErrSessionExpired, shared.ErrRefreshFailed)
	}
	if err := g.session.SetToken(payload.Token); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrSessionExpired, err)
	}

	g.logger.Info("session refreshed")
	return nil
}

// expire drops the session and tells an interactive user about it.
func (g *Gateway) expire() {
	if g.session != nil {
		g.session.Expire()
	}

	g.mu.Lock()
	notifier, navigator := g.notifier, g.navigator
	g.mu.Unlock()

	g.logger.Warn("session expired")
	if notifier != nil {
		notifier.Notify(NoticeWarning, ExpiredMessage)
	}
	if navigator != nil && navigator.Current() != SignInView {
		navigator.Navigate(SignInView)
	}
}

func (g *Gateway) send(ctx context.Context, req Request) (*Response, error) {
	target := g.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, &Error{Op: req.op(), Err: fmt.Errorf("failed to create request: %w", err)}
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	g.DecorateRequest(httpReq)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, &Error{Op: req.op(), Err: fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Op: req.op(), Status: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

func statusError(req Request, resp *Response, kind error) *Error {
	return &Error{
		Op:      req.op(),
		Status:  resp.StatusCode,
		Message: errorMessage(resp.Body),
		Body:    resp.Body,
		Err:     kind,
	}
}
