package server

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/zipdrop/internal/gateway"
	"github.com/desertthunder/zipdrop/internal/models"
	"github.com/desertthunder/zipdrop/internal/services"
	"github.com/desertthunder/zipdrop/internal/session"
	"github.com/desertthunder/zipdrop/internal/shared"
	tu "github.com/desertthunder/zipdrop/internal/testing"
)

func quietLogger() *log.Logger {
	return shared.NewLogger(io.Discard)
}

func login(t *testing.T, h http.Handler, email string) string {
	t.Helper()
	body := `{"email":"` + email + `","password":"password123"}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	var resp models.AuthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode login response: %v", err)
	}
	if !strings.HasPrefix(resp.Token, "mock-token-") {
		t.Errorf("unexpected token format: %s", resp.Token)
	}
	return resp.Token
}

func authed(method, target, token string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func zipArchive(t *testing.T, names ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		f, err := zw.Create(name)
		if err != nil {
			t.Fatalf("failed to add %s: %v", name, err)
		}
		f.Write([]byte("<html></html>"))
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close archive: %v", err)
	}
	return buf.Bytes()
}

func TestMockAPI(t *testing.T) {
	t.Run("Login Validates Credentials", func(t *testing.T) {
		api := NewMockAPI(MockOptions{Logger: quietLogger()})
		rec := httptest.NewRecorder()
		api.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"bad","password":"x"}`)))

		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("expected 422, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "invalid email address") {
			t.Errorf("expected validation message, got %s", rec.Body.String())
		}
	})

	t.Run("Register Twice Conflicts", func(t *testing.T) {
		api := NewMockAPI(MockOptions{Logger: quietLogger()})
		body := `{"email":"test@example.com","password":"password123"}`

		rec := httptest.NewRecorder()
		api.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body)))
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", rec.Code)
		}

		rec = httptest.NewRecorder()
		api.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body)))
		if rec.Code != http.StatusConflict {
			t.Errorf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("Projects Require Token", func(t *testing.T) {
		api := NewMockAPI(MockOptions{Logger: quietLogger()})
		token := login(t, api, "test@example.com")

		rec := httptest.NewRecorder()
		api.ServeHTTP(rec, authed(http.MethodGet, "/projects", token, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var list models.ProjectList
		json.Unmarshal(rec.Body.Bytes(), &list)
		if len(list.Projects) != 2 {
			t.Fatalf("expected 2 seeded projects, got %d", len(list.Projects))
		}
		if list.Projects[0].Slug != shared.Slugify(list.Projects[0].Name) {
			t.Errorf("seeded slug %q does not match name %q", list.Projects[0].Slug, list.Projects[0].Name)
		}

		rec = httptest.NewRecorder()
		api.ServeHTTP(rec, authed(http.MethodGet, "/projects", "forged", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401 for unknown token, got %d", rec.Code)
		}
	})

	t.Run("Adopts Tokens From Earlier Process", func(t *testing.T) {
		first := NewMockAPI(MockOptions{Logger: quietLogger()})
		token := login(t, first, "test@example.com")

		restarted := NewMockAPI(MockOptions{Logger: quietLogger()})
		rec := httptest.NewRecorder()
		restarted.ServeHTTP(rec, authed(http.MethodGet, "/projects", token, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("expected persisted token to be accepted, got %d", rec.Code)
		}

		rec = httptest.NewRecorder()
		restarted.ServeHTTP(rec, authed(http.MethodPost, "/auth/logout", token, nil))
		rec = httptest.NewRecorder()
		restarted.ServeHTTP(rec, authed(http.MethodGet, "/projects", token, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected revoked token to be rejected, got %d", rec.Code)
		}
	})

	t.Run("Token TTL And Refresh", func(t *testing.T) {
		now := time.Now()
		clock := func() time.Time { return now }
		api := NewMockAPI(MockOptions{TokenTTL: time.Minute, Now: clock, Logger: quietLogger()})
		token := login(t, api, "test@example.com")

		now = now.Add(2 * time.Minute)
		rec := httptest.NewRecorder()
		api.ServeHTTP(rec, authed(http.MethodGet, "/projects", token, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for expired token, got %d", rec.Code)
		}

		rec = httptest.NewRecorder()
		api.ServeHTTP(rec, authed(http.MethodPost, "/auth/refresh", token, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected refresh to succeed, got %d", rec.Code)
		}
		var refreshed models.RefreshResponse
		json.Unmarshal(rec.Body.Bytes(), &refreshed)

		rec = httptest.NewRecorder()
		api.ServeHTTP(rec, authed(http.MethodGet, "/projects", refreshed.Token, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("expected refreshed token to work, got %d", rec.Code)
		}

		rec = httptest.NewRecorder()
		api.ServeHTTP(rec, authed(http.MethodPost, "/auth/refresh", token, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("a used token must not refresh twice, got %d", rec.Code)
		}
	})

	t.Run("Upload Counts Files", func(t *testing.T) {
		api := NewMockAPI(MockOptions{Logger: quietLogger()})
		token := login(t, api, "test@example.com")

		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		mw.WriteField("name", "Лендинг")
		part, _ := mw.CreateFormFile("file", "landing.zip")
		part.Write(zipArchive(t, "index.html", "css/site.css", "js/app.js"))
		mw.Close()

		req := authed(http.MethodPost, "/projects", token, &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := httptest.NewRecorder()
		api.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		var created models.ProjectEnvelope
		json.Unmarshal(rec.Body.Bytes(), &created)
		if created.Project.Files() != 3 {
			t.Errorf("expected 3 files, got %d", created.Project.Files())
		}
		if created.Project.Slug != "lending" {
			t.Errorf("expected slug lending, got %s", created.Project.Slug)
		}
		if created.Project.Status != models.StatusProcessing {
			t.Errorf("expected processing status, got %s", created.Project.Status)
		}
	})

	t.Run("Toggle Delete And View", func(t *testing.T) {
		api := NewMockAPI(MockOptions{Logger: quietLogger()})
		token := login(t, api, "test@example.com")
		id := "ff9cd8ce-42bf-4f9a-a3ec-5df76f886e9d"

		rec := httptest.NewRecorder()
		api.ServeHTTP(rec, authed(http.MethodPatch, "/projects/"+id+"/toggle-public", token, nil))
		var toggled models.ProjectEnvelope
		json.Unmarshal(rec.Body.Bytes(), &toggled)
		if !toggled.Project.IsPublic || toggled.Project.URL() != "http://portfolio.zipdrop.ru" {
			t.Errorf("unexpected toggle result: %+v", toggled.Project)
		}

		rec = httptest.NewRecorder()
		api.ServeHTTP(rec, authed(http.MethodPost, "/projects/"+id+"/view", token, nil))
		if rec.Code != http.StatusNoContent {
			t.Errorf("expected 204 for view, got %d", rec.Code)
		}

		rec = httptest.NewRecorder()
		api.ServeHTTP(rec, authed(http.MethodDelete, "/projects/"+id, token, nil))
		if rec.Code != http.StatusNoContent {
			t.Errorf("expected 204 for delete, got %d", rec.Code)
		}

		rec = httptest.NewRecorder()
		api.ServeHTTP(rec, authed(http.MethodGet, "/projects/"+id, token, nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404 after delete, got %d", rec.Code)
		}
	})
}

func TestLatency(t *testing.T) {
	handler := Latency(func(*http.Request) time.Duration { return time.Hour })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler should not run for a canceled request")
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

// The full client stack recovers from an expired mock token without the caller noticing.
func TestMockTransportEndToEnd(t *testing.T) {
	api := NewMockAPI(MockOptions{TokenTTL: time.Hour, Logger: quietLogger()})
	transport := NewMockTransport(Mount("/api", NewMockHandler(api, quietLogger(), false)))

	storage := tu.NewMemoryStorage(nil)
	store, err := session.NewStore(storage, quietLogger())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	gw := gateway.New("http://zipdrop.mock/api", store, gateway.WithTransport(transport), gateway.WithLogger(quietLogger()))
	store.Bind(gw)

	ctx := context.Background()
	if _, err := store.Login(ctx, models.Credentials{Email: "test@example.com", Password: "password123"}); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	first := store.CurrentToken()

	api.Expire()

	projects := services.NewProjectService(gw, nil, nil, "", quietLogger())
	list, err := projects.List(ctx)
	if err != nil {
		t.Fatalf("List() after expiry should recover, got %v", err)
	}
	if len(list) != 2 {
		t.Errorf("expected 2 projects, got %d", len(list))
	}
	if store.CurrentToken() == first {
		t.Error("expected token to be refreshed")
	}
	if persisted, _ := storage.Value(models.TokenKey); persisted != store.CurrentToken() {
		t.Errorf("persisted token %q does not match %q", persisted, store.CurrentToken())
	}
}
