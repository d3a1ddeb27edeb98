package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/zipdrop/internal/gateway"
	"github.com/desertthunder/zipdrop/internal/models"
	"github.com/desertthunder/zipdrop/internal/shared"
	tu "github.com/desertthunder/zipdrop/internal/testing"
)

type authAPI struct {
	loginStatus   int
	refreshStatus int
	logoutStatus  int

	refreshes atomic.Int32
	logouts   atomic.Int32
	lastAuth  atomic.Value
}

func (a *authAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.lastAuth.Store(r.Header.Get("Authorization"))

	switch r.URL.Path {
	case LoginPath, RegisterPath:
		if a.loginStatus != 0 {
			w.WriteHeader(a.loginStatus)
			w.Write([]byte(`{"message":"invalid email or password"}`))
			return
		}
		var creds models.Credentials
		json.NewDecoder(r.Body).Decode(&creds)
		json.NewEncoder(w).Encode(models.AuthResponse{
			Token: "test-token",
			User:  &models.User{ID: "1", Email: creds.Email},
		})
	case gateway.RefreshPath:
		a.refreshes.Add(1)
		if a.refreshStatus != 0 {
			w.WriteHeader(a.refreshStatus)
			w.Write([]byte(`{"message":"refresh rejected"}`))
			return
		}
		json.NewEncoder(w).Encode(models.RefreshResponse{Token: "new-refreshed-token"})
	case LogoutPath:
		a.logouts.Add(1)
		if a.logoutStatus != 0 {
			w.WriteHeader(a.logoutStatus)
			return
		}
		w.Write([]byte(`{}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (a *authAPI) authorization() string {
	v, _ := a.lastAuth.Load().(string)
	return v
}

// newTestStore wires a store to a gateway pointed at api, the way the CLI does.
func newTestStore(t *testing.T, api http.Handler, storage *tu.MemoryStorage) *Store {
	t.Helper()

	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	logger := shared.NewLogger(io.Discard)
	store, err := NewStore(storage, logger)
	require.NoError(t, err)

	store.Bind(gateway.New(srv.URL, store, gateway.WithLogger(logger)))
	return store
}

func TestNewStore(t *testing.T) {
	t.Run("Restores Persisted Token", func(t *testing.T) {
		storage := tu.NewMemoryStorage(map[string]string{models.TokenKey: "test-token"})
		store, err := NewStore(storage, shared.NewLogger(io.Discard))

		require.NoError(t, err)
		assert.True(t, store.IsAuthenticated())
		assert.Equal(t, "test-token", store.CurrentToken())
		assert.Nil(t, store.User(), "user is never persisted")
	})

	t.Run("Empty Storage", func(t *testing.T) {
		store, err := NewStore(tu.NewMemoryStorage(nil), shared.NewLogger(io.Discard))

		require.NoError(t, err)
		assert.False(t, store.IsAuthenticated())
	})

	t.Run("Storage Error", func(t *testing.T) {
		storage := tu.NewMemoryStorage(nil)
		storage.Err = errors.New("disk full")

		_, err := NewStore(storage, shared.NewLogger(io.Discard))
		assert.Error(t, err)
	})
}

func TestLogin(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		storage := tu.NewMemoryStorage(nil)
		store := newTestStore(t, &authAPI{}, storage)

		resp, err := store.Login(context.Background(), models.Credentials{Email: "test@example.com", Password: "password123"})

		require.NoError(t, err)
		assert.Equal(t, "test-token", resp.Token)
		assert.Equal(t, "test-token", store.CurrentToken())
		assert.True(t, store.IsAuthenticated())
		require.NotNil(t, store.User())
		assert.Equal(t, "test@example.com", store.User().Email)

		persisted, ok := storage.Value(models.TokenKey)
		assert.True(t, ok)
		assert.Equal(t, "test-token", persisted)
	})

	t.Run("Failure Leaves Session Untouched", func(t *testing.T) {
		api := &authAPI{loginStatus: http.StatusUnauthorized}
		storage := tu.NewMemoryStorage(map[string]string{models.TokenKey: "old-token"})
		store := newTestStore(t, api, storage)

		_, err := store.Login(context.Background(), models.Credentials{Email: "test@example.com", Password: "wrong-password"})

		require.Error(t, err)
		assert.True(t, gateway.IsUnauthorized(err))
		assert.Equal(t, "invalid email or password", gateway.Message(err, "login failed"))
		assert.Zero(t, api.refreshes.Load(), "a failed login must not trigger a refresh")
		assert.Equal(t, "old-token", store.CurrentToken())
		persisted, _ := storage.Value(models.TokenKey)
		assert.Equal(t, "old-token", persisted)
	})

	t.Run("Persist Failure Still Signs In", func(t *testing.T) {
		storage := tu.NewMemoryStorage(nil)
		store := newTestStore(t, &authAPI{}, storage)
		storage.Err = errors.New("read-only")

		_, err := store.Login(context.Background(), models.Credentials{Email: "test@example.com", Password: "password123"})

		require.NoError(t, err)
		assert.True(t, store.IsAuthenticated())
	})

	t.Run("Unbound", func(t *testing.T) {
		store, err := NewStore(nil, shared.NewLogger(io.Discard))
		require.NoError(t, err)

		_, err = store.Login(context.Background(), models.Credentials{})
		assert.ErrorIs(t, err, shared.ErrAuthFailed)
	})
}

func TestRegister(t *testing.T) {
	storage := tu.NewMemoryStorage(nil)
	store := newTestStore(t, &authAPI{}, storage)

	resp, err := store.Register(context.Background(), models.Credentials{Email: "new@example.com", Password: "password123"})

	require.NoError(t, err)
	assert.Equal(t, "new@example.com", resp.User.Email)
	assert.True(t, store.IsAuthenticated())
}

func TestRefreshSession(t *testing.T) {
	t.Run("Replaces Token", func(t *testing.T) {
		api := &authAPI{}
		storage := tu.NewMemoryStorage(map[string]string{models.TokenKey: "old-token"})
		store := newTestStore(t, api, storage)

		require.NoError(t, store.RefreshSession(context.Background()))

		assert.Equal(t, "Bearer old-token", api.authorization())
		assert.Equal(t, "new-refreshed-token", store.CurrentToken())
		persisted, _ := storage.Value(models.TokenKey)
		assert.Equal(t, "new-refreshed-token", persisted)
	})

	t.Run("Rejected Refresh Signs Out", func(t *testing.T) {
		api := &authAPI{refreshStatus: http.StatusUnauthorized}
		storage := tu.NewMemoryStorage(nil)
		store := newTestStore(t, api, storage)

		_, err := store.Login(context.Background(), models.Credentials{Email: "test@example.com", Password: "password123"})
		require.NoError(t, err)

		err = store.RefreshSession(context.Background())

		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrRefreshFailed)
		assert.Empty(t, store.CurrentToken())
		assert.Nil(t, store.User())
		assert.False(t, store.IsAuthenticated())
		_, ok := storage.Value(models.TokenKey)
		assert.False(t, ok)
		assert.EqualValues(t, 1, api.refreshes.Load())
	})

	t.Run("No Token Is A No-op", func(t *testing.T) {
		api := &authAPI{}
		store := newTestStore(t, api, tu.NewMemoryStorage(nil))

		require.NoError(t, store.RefreshSession(context.Background()))
		assert.Zero(t, api.refreshes.Load())
	})
}

func TestLogout(t *testing.T) {
	t.Run("Remote Failure Still Clears", func(t *testing.T) {
		api := &authAPI{logoutStatus: http.StatusInternalServerError}
		storage := tu.NewMemoryStorage(nil)
		store := newTestStore(t, api, storage)

		_, err := store.Login(context.Background(), models.Credentials{Email: "test@example.com", Password: "password123"})
		require.NoError(t, err)

		store.Logout(context.Background())

		assert.EqualValues(t, 1, api.logouts.Load())
		assert.False(t, store.IsAuthenticated())
		assert.Nil(t, store.User())
		_, ok := storage.Value(models.TokenKey)
		assert.False(t, ok)
	})

	t.Run("Signed Out Skips Remote Call", func(t *testing.T) {
		api := &authAPI{}
		store := newTestStore(t, api, tu.NewMemoryStorage(nil))

		store.Logout(context.Background())

		assert.Zero(t, api.logouts.Load())
	})
}

func TestTokenSource(t *testing.T) {
	store, err := NewStore(tu.NewMemoryStorage(nil), shared.NewLogger(io.Discard))
	require.NoError(t, err)

	_, err = store.Token()
	assert.ErrorIs(t, err, shared.ErrNotAuthenticated)

	require.NoError(t, store.SetToken("test-token"))
	tok, err := store.Token()
	require.NoError(t, err)
	assert.Equal(t, "test-token", tok.AccessToken)
	assert.Equal(t, "Bearer", tok.Type())

	store.Expire()
	assert.False(t, store.IsAuthenticated())
}

// A gateway request that hits 401 is recovered through the store's token.
func TestGatewayRecoversThroughStore(t *testing.T) {
	mux := http.NewServeMux()
	api := &authAPI{}
	mux.Handle(gateway.RefreshPath, api)
	mux.HandleFunc("/projects", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer new-refreshed-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"projects":[]}`))
	})

	storage := tu.NewMemoryStorage(map[string]string{models.TokenKey: "old-token"})
	store := newTestStore(t, mux, storage)
	gw := store.client().(*gateway.Gateway)

	resp, err := gw.Get(context.Background(), "/projects")

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "new-refreshed-token", store.CurrentToken())
	persisted, _ := storage.Value(models.TokenKey)
	assert.Equal(t, "new-refreshed-token", persisted)
}
