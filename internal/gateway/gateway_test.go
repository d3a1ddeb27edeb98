package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/zipdrop/internal/shared"
	tu "github.com/desertthunder/zipdrop/internal/testing"
)

type fakeSession struct {
	mu      sync.Mutex
	token   string
	expired int
}

func (f *fakeSession) Token() (*oauth2.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.token == "" {
		return nil, shared.ErrNotAuthenticated
	}
	return &oauth2.Token{AccessToken: f.token}, nil
}

func (f *fakeSession) SetToken(token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
	return nil
}

func (f *fakeSession) Expire() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = ""
	f.expired++
}

func (f *fakeSession) current() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

type fakeUI struct {
	mu          sync.Mutex
	view        string
	notices     []string
	navigations int
}

func (f *fakeUI) Notify(kind NoticeKind, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, string(kind)+": "+message)
}

func (f *fakeUI) Current() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.view
}

func (f *fakeUI) Navigate(view string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.view = view
	f.navigations++
}

// tokenAPI answers /projects with 200 only for the accepted token and counts refresh calls.
type tokenAPI struct {
	accept    string
	refreshTo string
	refreshOK bool
	release   chan struct{}

	refreshes atomic.Int32
	hits      atomic.Int32
}

func (a *tokenAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case RefreshPath:
		a.refreshes.Add(1)
		if a.release != nil {
			<-a.release
		}
		if !a.refreshOK {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"refresh token revoked"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"token": a.refreshTo})
	default:
		a.hits.Add(1)
		if r.Header.Get("Authorization") != "Bearer "+a.accept {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"token expired"}`))
			return
		}
		w.Write([]byte(`{"projects":[]}`))
	}
}

func quietLogger() *log.Logger {
	return shared.NewLogger(io.Discard)
}

func TestDecorateRequest(t *testing.T) {
	t.Run("With Token", func(t *testing.T) {
		gw := New("http://api.test", &fakeSession{token: "test-token"}, WithLogger(quietLogger()))
		req := httptest.NewRequest(http.MethodGet, "http://api.test/projects", nil)

		gw.DecorateRequest(req)

		assert.Equal(t, "Bearer test-token", req.Header.Get("Authorization"))
		assert.Equal(t, ClientID, req.Header.Get(ClientHeader))
		assert.Equal(t, RequestedWith, req.Header.Get(RequestedWithHeader))
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	})

	t.Run("Without Token", func(t *testing.T) {
		gw := New("http://api.test", &fakeSession{}, WithLogger(quietLogger()))
		req := httptest.NewRequest(http.MethodGet, "http://api.test/projects", nil)

		gw.DecorateRequest(req)

		assert.Empty(t, req.Header.Get("Authorization"))
		assert.Equal(t, ClientID, req.Header.Get(ClientHeader))
		assert.Equal(t, RequestedWith, req.Header.Get(RequestedWithHeader))
	})

	t.Run("Keeps Multipart Content Type", func(t *testing.T) {
		gw := New("http://api.test", nil, WithLogger(quietLogger()))
		req := httptest.NewRequest(http.MethodPost, "http://api.test/projects", nil)
		req.Header.Set("Content-Type", "multipart/form-data; boundary=x")

		gw.DecorateRequest(req)

		assert.Equal(t, "multipart/form-data; boundary=x", req.Header.Get("Content-Type"))
	})
}

func TestNew(t *testing.T) {
	gw := New("http://api.test/", nil)
	assert.Equal(t, "http://api.test", gw.BaseURL())
	assert.Equal(t, DefaultTimeout, gw.client.Timeout)
	assert.Equal(t, 12*time.Second, DefaultTimeout)

	gw = New("http://api.test", nil, WithTimeout(3*time.Second))
	assert.Equal(t, 3*time.Second, gw.client.Timeout)
}

func TestGatewayDo(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		api := &tokenAPI{accept: "test-token"}
		srv := httptest.NewServer(api)
		defer srv.Close()

		gw := New(srv.URL, &fakeSession{token: "test-token"}, WithLogger(quietLogger()))
		resp, err := gw.Get(context.Background(), "/projects")

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Zero(t, api.refreshes.Load())
	})

	t.Run("Server Error Is Returned Without Retry", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`{"message":"upstream down"}`))
		}))
		defer srv.Close()

		gw := New(srv.URL, &fakeSession{token: "test-token"}, WithLogger(quietLogger()))
		_, err := gw.Get(context.Background(), "/projects")

		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrServiceUnavailable)
		var gwErr *Error
		require.ErrorAs(t, err, &gwErr)
		assert.Equal(t, http.StatusBadGateway, gwErr.Status)
		assert.Equal(t, "upstream down", Message(err, "fallback"))
		assert.EqualValues(t, 1, hits.Load())
	})

	t.Run("Client Error Carries Message", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"message":"only zip archives are accepted"}`))
		}))
		defer srv.Close()

		gw := New(srv.URL, &fakeSession{token: "test-token"}, WithLogger(quietLogger()))
		_, err := gw.Post(context.Background(), "/projects", map[string]string{"name": "x"})

		assert.ErrorIs(t, err, shared.ErrAPIRequest)
		assert.Equal(t, "only zip archives are accepted", Message(err, "failed to create project"))
	})

	t.Run("Transport Error", func(t *testing.T) {
		gw := New("http://api.test", nil,
			WithLogger(quietLogger()),
			WithHTTPClient(&http.Client{Transport: tu.RoundTripFunc(func(*http.Request) (*http.Response, error) {
				return nil, errors.New("connection refused")
			})}),
		)
		_, err := gw.Get(context.Background(), "/projects")

		assert.ErrorIs(t, err, shared.ErrAPIRequest)
		assert.Equal(t, "failed to load projects", Message(err, "failed to load projects"))
	})
}

func TestRefreshProtocol(t *testing.T) {
	t.Run("Concurrent 401s Share One Refresh", func(t *testing.T) {
		const n = 5
		api := &tokenAPI{accept: "new-token", refreshTo: "new-token", refreshOK: true, release: make(chan struct{})}
		srv := httptest.NewServer(api)
		defer srv.Close()

		sess := &fakeSession{token: "old-token"}
		gw := New(srv.URL, sess, WithLogger(quietLogger()))

		g, ctx := errgroup.WithContext(context.Background())
		for range n {
			g.Go(func() error {
				resp, err := gw.Get(ctx, "/projects")
				if err != nil {
					return err
				}
				if resp.StatusCode != http.StatusOK {
					return errors.New("unexpected status")
				}
				return nil
			})
		}

		require.Eventually(t, func() bool { return gw.Pending() == n-1 }, 5*time.Second, 5*time.Millisecond)
		assert.True(t, gw.Refreshing())
		close(api.release)

		require.NoError(t, g.Wait())
		assert.EqualValues(t, 1, api.refreshes.Load())
		assert.EqualValues(t, 2*n, api.hits.Load())
		assert.Equal(t, "new-token", sess.current())
		assert.False(t, gw.Refreshing())
		assert.Zero(t, gw.Pending())
	})

	t.Run("Retry Marked 401 Propagates", func(t *testing.T) {
		api := &tokenAPI{accept: "other", refreshOK: true, refreshTo: "other"}
		srv := httptest.NewServer(api)
		defer srv.Close()

		sess := &fakeSession{token: "test-token"}
		gw := New(srv.URL, sess, WithLogger(quietLogger()))
		_, err := gw.Do(context.Background(), Request{Method: http.MethodGet, Path: "/projects", Retry: true})

		require.Error(t, err)
		assert.True(t, IsUnauthorized(err))
		assert.ErrorIs(t, err, shared.ErrNotAuthenticated)
		assert.Zero(t, api.refreshes.Load())
		assert.Equal(t, "test-token", sess.current())
	})

	t.Run("Replay Failure Is Not Retried", func(t *testing.T) {
		api := &tokenAPI{accept: "never", refreshOK: true, refreshTo: "new-token"}
		srv := httptest.NewServer(api)
		defer srv.Close()

		sess := &fakeSession{token: "old-token"}
		gw := New(srv.URL, sess, WithLogger(quietLogger()))
		_, err := gw.Get(context.Background(), "/projects")

		require.Error(t, err)
		assert.True(t, IsUnauthorized(err))
		assert.EqualValues(t, 1, api.refreshes.Load())
		assert.EqualValues(t, 2, api.hits.Load())
		assert.Equal(t, "new-token", sess.current())
		assert.Zero(t, sess.expired)
	})

	t.Run("Refresh Failure Rejects Everyone", func(t *testing.T) {
		const n = 4
		api := &tokenAPI{accept: "new-token", refreshOK: false, release: make(chan struct{})}
		srv := httptest.NewServer(api)
		defer srv.Close()

		sess := &fakeSession{token: "old-token"}
		ui := &fakeUI{view: "projects"}
		gw := New(srv.URL, sess, WithLogger(quietLogger()), WithNotifier(ui), WithNavigator(ui))

		errs := make(chan error, n)
		var wg sync.WaitGroup
		for range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := gw.Get(context.Background(), "/projects")
				errs <- err
			}()
		}

		require.Eventually(t, func() bool { return gw.Pending() == n-1 }, 5*time.Second, 5*time.Millisecond)
		close(api.release)
		wg.Wait()
		close(errs)

		for err := range errs {
			require.Error(t, err)
			assert.ErrorIs(t, err, shared.ErrSessionExpired)
		}
		assert.EqualValues(t, 1, api.refreshes.Load())
		assert.Empty(t, sess.current())
		assert.Equal(t, 1, sess.expired)
		assert.Equal(t, []string{"warning: " + ExpiredMessage}, ui.notices)
		assert.Equal(t, SignInView, ui.Current())
		assert.Equal(t, 1, ui.navigations)
		assert.False(t, gw.Refreshing())
	})

	t.Run("No Navigation When Already Signing In", func(t *testing.T) {
		api := &tokenAPI{accept: "new-token", refreshOK: false}
		srv := httptest.NewServer(api)
		defer srv.Close()

		ui := &fakeUI{view: SignInView}
		gw := New(srv.URL, &fakeSession{token: "old-token"}, WithLogger(quietLogger()), WithNotifier(ui), WithNavigator(ui))
		_, err := gw.Get(context.Background(), "/projects")

		require.Error(t, err)
		assert.Zero(t, ui.navigations)
		assert.Len(t, ui.notices, 1)
	})

	t.Run("No Token Skips Refresh Call", func(t *testing.T) {
		api := &tokenAPI{accept: "new-token", refreshOK: true, refreshTo: "new-token"}
		srv := httptest.NewServer(api)
		defer srv.Close()

		sess := &fakeSession{}
		gw := New(srv.URL, sess, WithLogger(quietLogger()))
		_, err := gw.Get(context.Background(), "/projects")

		assert.ErrorIs(t, err, shared.ErrSessionExpired)
		assert.ErrorIs(t, err, shared.ErrNoRefreshToken)
		assert.Zero(t, api.refreshes.Load())
		assert.Equal(t, 1, sess.expired)
	})

	t.Run("Queued Caller Honours Its Context", func(t *testing.T) {
		api := &tokenAPI{accept: "new-token", refreshOK: true, refreshTo: "new-token", release: make(chan struct{})}
		srv := httptest.NewServer(api)
		defer srv.Close()

		gw := New(srv.URL, &fakeSession{token: "old-token"}, WithLogger(quietLogger()))

		leader := make(chan error, 1)
		go func() {
			_, err := gw.Get(context.Background(), "/projects")
			leader <- err
		}()
		require.Eventually(t, gw.Refreshing, 5*time.Second, 5*time.Millisecond)

		ctx, cancel := context.WithCancel(context.Background())
		queued := make(chan error, 1)
		go func() {
			_, err := gw.Get(ctx, "/projects")
			queued <- err
		}()
		require.Eventually(t, func() bool { return gw.Pending() == 1 }, 5*time.Second, 5*time.Millisecond)
		cancel()

		assert.ErrorIs(t, <-queued, context.Canceled)

		close(api.release)
		assert.NoError(t, <-leader)
	})
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "fallback", Message(nil, "fallback"))
	assert.Equal(t, "fallback", Message(errors.New("boom"), "fallback"))
	assert.Equal(t, "bad", Message(&Error{Op: "GET /", Status: 400, Message: "bad"}, "fallback"))
	assert.Equal(t, "fallback", Message(&Error{Op: "GET /", Status: 400, Body: []byte("<html>")}, "fallback"))
}

func TestRequest(t *testing.T) {
	req, err := NewJSONRequest(http.MethodPost, "/auth/login", map[string]string{"email": "test@example.com"})
	require.NoError(t, err)

	retried := req.WithRetry()
	assert.True(t, retried.Retry)
	assert.False(t, req.Retry, "WithRetry must not modify the original request")
	assert.JSONEq(t, `{"email":"test@example.com"}`, string(req.Body))
}
