package session

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/zipdrop/internal/gateway"
	"github.com/desertthunder/zipdrop/internal/models"
	"github.com/desertthunder/zipdrop/internal/shared"
)

// Auth endpoints, relative to the API base URL.
const (
	LoginPath    = "/auth/login"
	RegisterPath = "/auth/register"
	LogoutPath   = "/auth/logout"
)

// API sends requests on behalf of the store. [gateway.Gateway] implements it.
type API interface {
	Do(ctx context.Context, req gateway.Request) (*gateway.Response, error)
}

// Store holds the session token and user.
type Store struct {
	mu      sync.RWMutex
	token   string
	user    *models.User
	storage models.Storage
	api     API
	logger  *log.Logger
}

// NewStore creates a [Store], restoring any token previously persisted in storage.
func NewStore(storage models.Storage, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	s := &Store{storage: storage, logger: logger}

	if storage != nil {
		token, ok, err := storage.Get(models.TokenKey)
		if err != nil {
			return nil, fmt.Errorf("failed to restore session: %w", err)
		}
		if ok {
			s.token = token
		}
	}
	return s, nil
}

// Bind sets the API the store sends auth calls through.
//
// The gateway reads its token from the store, so the two are wired after construction.
func (s *Store) Bind(api API) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.api = api
}

// IsAuthenticated reports whether a token is held.
func (s *Store) IsAuthenticated() bool {
	return s.CurrentToken() != ""
}

// CurrentToken returns the raw token, or "".
func (s *Store) CurrentToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the authenticated user, or nil when unknown.
func (s *Store) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Token implements [oauth2.TokenSource].
func (s *Store) Token() (*oauth2.Token, error) {
	token := s.CurrentToken()
	if token == "" {
		return nil, shared.ErrNotAuthenticated
	}
	return &oauth2.Token{AccessToken: token, TokenType: "Bearer"}, nil
}

// SetToken replaces the token and persists it.
func (s *Store) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setTokenLocked(token)
}

// Expire clears the token, the user and the persisted entry.
func (s *Store) Expire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

// Login authenticates with credentials. On failure the session is left as it was and the
// API error is returned unchanged.
func (s *Store) Login(ctx context.Context, creds models.Credentials) (*models.AuthResponse, error) {
	return s.authenticate(ctx, LoginPath, creds)
}

// Register creates an account and signs into it, with the same contract as [Store.Login].
func (s *Store) Register(ctx context.Context, creds models.Credentials) (*models.AuthResponse, error) {
	return s.authenticate(ctx, RegisterPath, creds)
}

// Logout tells the API the session is over and clears it locally, whatever the API answers.
func (s *Store) Logout(ctx context.Context) {
	if api := s.client(); api != nil && s.IsAuthenticated() {
		req := gateway.Request{Method: http.MethodPost, Path: LogoutPath, Retry: true}
		if _, err := api.Do(ctx, req); err != nil {
			s.logger.Warn("remote logout failed", "error", err)
		}
	}

	s.Expire()
	s.logger.Info("signed out")
}

// RefreshSession exchanges the current token for a new one.
//
// Without a token it does nothing. A failed exchange signs the user out and returns the error.
func (s *Store) RefreshSession(ctx context.Context) error {
	if !s.IsAuthenticated() {
		return nil
	}
	api := s.client()
	if api == nil {
		return fmt.Errorf("%w: no API bound to session", shared.ErrRefreshFailed)
	}

	token, err := s.refresh(ctx, api)
	if err != nil {
		s.logger.Warn("session refresh failed", "error", err)
		s.Expire()
		return err
	}

	if err := s.SetToken(token); err != nil {
		s.logger.Warn("refreshed token was not persisted", "error", err)
	}
	return nil
}

func (s *Store) refresh(ctx context.Context, api API) (string, error) {
	resp, err := api.Do(ctx, gateway.Request{Method: http.MethodPost, Path: gateway.RefreshPath, Retry: true})
	if err != nil {
		return "", fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}

	var payload models.RefreshResponse
	if err := resp.Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}
	if payload.Token == "" {
		return "", fmt.Errorf("%w: empty token", shared.ErrRefreshFailed)
	}
	return payload.Token, nil
}

func (s *Store) authenticate(ctx context.Context, path string, creds models.Credentials) (*models.AuthResponse, error) {
	api := s.client()
	if api == nil {
		return nil, fmt.Errorf("%w: no API bound to session", shared.ErrAuthFailed)
	}

	req, err := gateway.NewJSONRequest(http.MethodPost, path, creds)
	if err != nil {
		return nil, err
	}

	resp, err := api.Do(ctx, req.WithRetry())
	if err != nil {
		return nil, err
	}

	var payload models.AuthResponse
	if err := resp.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}
	if err := payload.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}

	s.mu.Lock()
	if err := s.setTokenLocked(payload.Token); err != nil {
		s.logger.Warn("token was not persisted", "error", err)
	}
	s.user = payload.User
	s.mu.Unlock()

	s.logger.Info("signed in", "email", creds.Email)
	return &payload, nil
}

func (s *Store) client() API {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.api
}

// setTokenLocked keeps memory and storage in step. The in-memory token is set even when
// persisting fails.
func (s *Store) setTokenLocked(token string) error {
	s.token = token
	if s.storage == nil {
		return nil
	}
	if err := s.storage.Set(models.TokenKey, token); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}
	return nil
}

func (s *Store) clearLocked() {
	s.token = ""
	s.user = nil
	if s.storage == nil {
		return
	}
	if err := s.storage.Remove(models.TokenKey); err != nil {
		s.logger.Warn("failed to remove persisted token", "error", err)
	}
}

var (
	_ gateway.Session    = (*Store)(nil)
	_ oauth2.TokenSource = (*Store)(nil)
)
