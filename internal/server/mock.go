package server

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/zipdrop/internal/models"
	"github.com/desertthunder/zipdrop/internal/shared"
)

// Mock API route patterns.
const (
	RouteLogin      = "POST /auth/login"
	RouteRegister   = "POST /auth/register"
	RouteLogout     = "POST /auth/logout"
	RouteRefresh    = "POST /auth/refresh"
	RouteList       = "GET /projects"
	RouteCreate     = "POST /projects"
	RouteGet        = "GET /projects/{id}"
	RouteDelete     = "DELETE /projects/{id}"
	RouteToggle     = "PATCH /projects/{id}/toggle-public"
	RouteTrackView  = "POST /projects/{id}/view"
	maxUploadMemory = 32 << 20
	tokenPrefix     = "mock-token-"
)

// mockDelays mirror the response times of the hosted service.
var mockDelays = map[string]time.Duration{
	RouteLogin:    500 * time.Millisecond,
	RouteRegister: 500 * time.Millisecond,
	RouteLogout:   500 * time.Millisecond,
	RouteRefresh:  500 * time.Millisecond,
	RouteList:     800 * time.Millisecond,
	RouteGet:      400 * time.Millisecond,
	RouteCreate:   1500 * time.Millisecond,
	RouteDelete:   500 * time.Millisecond,
	RouteToggle:   500 * time.Millisecond,
}

// MockOptions configures a [MockAPI].
type MockOptions struct {
	TokenTTL     time.Duration // zero keeps tokens valid forever
	PublicDomain string
	Now          func() time.Time
	Logger       *log.Logger
}

type issuedToken struct {
	email   string
	expires time.Time
	stale   bool
}

// MockAPI is an in-memory implementation of the ZipDrop API.
type MockAPI struct {
	mu       sync.Mutex
	projects []models.Project
	users    map[string]*models.User
	tokens   map[string]issuedToken
	revoked  map[string]struct{}
	issued   int

	ttl    time.Duration
	domain string
	now    func() time.Time
	logger *log.Logger
	router *BasicRouter
}

// NewMockAPI creates a [MockAPI] seeded with two sample projects.
func NewMockAPI(opts MockOptions) *MockAPI {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.PublicDomain == "" {
		opts.PublicDomain = "zipdrop.ru"
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	m := &MockAPI{
		users:   make(map[string]*models.User),
		tokens:  make(map[string]issuedToken),
		revoked: make(map[string]struct{}),
		ttl:     opts.TokenTTL,
		domain:  opts.PublicDomain,
		now:     opts.Now,
		logger:  opts.Logger,
		router:  NewBasicRouter(),
	}
	m.projects = seedProjects(m.now(), m.domain)

	m.router.HandleFunc(http.MethodPost, "/auth/login", m.handleLogin)
	m.router.HandleFunc(http.MethodPost, "/auth/register", m.handleRegister)
	m.router.HandleFunc(http.MethodPost, "/auth/logout", m.handleLogout)
	m.router.HandleFunc(http.MethodPost, "/auth/refresh", m.handleRefresh)
	m.router.Handle(http.MethodGet, "/projects", m.authorized(m.handleList))
	m.router.Handle(http.MethodPost, "/projects", m.authorized(m.handleCreate))
	m.router.Handle(http.MethodGet, "/projects/{id}", m.authorized(m.handleGet))
	m.router.Handle(http.MethodDelete, "/projects/{id}", m.authorized(m.handleDelete))
	m.router.Handle(http.MethodPatch, "/projects/{id}/toggle-public", m.authorized(m.handleToggle))
	m.router.Handle(http.MethodPost, "/projects/{id}/view", m.authorized(m.handleView))
	return m
}

// Routes implements [Handler].
func (m *MockAPI) Routes() []string {
	return []string{
		RouteLogin, RouteRegister, RouteLogout, RouteRefresh,
		RouteList, RouteCreate, RouteGet, RouteDelete, RouteToggle, RouteTrackView,
	}
}

// ServeHTTP implements [http.Handler].
func (m *MockAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.router.ServeHTTP(w, r)
}

// Delay returns the simulated response time for r's route.
func (m *MockAPI) Delay(r *http.Request) time.Duration {
	return mockDelays[r.Pattern]
}

// Expire makes every issued token stale, as if the TTL had elapsed.
func (m *MockAPI) Expire() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for token, info := range m.tokens {
		info.stale = true
		m.tokens[token] = info
	}
}

// NewMockHandler wraps api with request logging and, when latency is set, simulated delays.
func NewMockHandler(api *MockAPI, logger *log.Logger, latency bool) http.Handler {
	router := NewBasicRouter()
	router.Use(RequestLogger(logger))
	if latency {
		router.Use(Latency(api.Delay))
	}
	router.Handler(api)
	return router
}

func (m *MockAPI) handleLogin(w http.ResponseWriter, r *http.Request) {
	m.authenticate(w, r, false)
}

func (m *MockAPI) handleRegister(w http.ResponseWriter, r *http.Request) {
	m.authenticate(w, r, true)
}

func (m *MockAPI) authenticate(w http.ResponseWriter, r *http.Request, register bool) {
	var creds models.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := shared.ValidateCredentials(creds.Email, creds.Password); err != nil {
		writeMessage(w, http.StatusUnprocessableEntity, strings.TrimPrefix(err.Error(), shared.ErrInvalidInput.Error()+": "))
		return
	}

	m.mu.Lock()
	email := strings.ToLower(strings.TrimSpace(creds.Email))
	user, exists := m.users[email]
	if register && exists {
		m.mu.Unlock()
		writeMessage(w, http.StatusConflict, "email is already registered")
		return
	}
	if !exists {
		user = &models.User{ID: shared.GenerateID(), Email: email}
		m.users[email] = user
	}
	token := m.issueLocked(email)
	resp := models.AuthResponse{Token: token, User: &models.User{ID: user.ID, Email: user.Email}}
	m.mu.Unlock()

	status := http.StatusOK
	if register {
		status = http.StatusCreated
	}
	writeJSON(w, status, resp)
}

func (m *MockAPI) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := bearer(r); token != "" {
		m.mu.Lock()
		m.revokeLocked(token)
		m.mu.Unlock()
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

// handleRefresh accepts any issued token, expired or not, and revokes it.
func (m *MockAPI) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token := bearer(r)

	m.mu.Lock()
	info, ok := m.lookupLocked(token)
	if !ok {
		m.mu.Unlock()
		writeMessage(w, http.StatusUnauthorized, "invalid token")
		return
	}
	m.revokeLocked(token)
	next := m.issueLocked(info.email)
	m.mu.Unlock()

	writeJSON(w, http.StatusOK, models.RefreshResponse{Token: next})
}

func (m *MockAPI) handleList(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	list := models.ProjectList{Projects: append([]models.Project{}, m.projects...)}
	m.mu.Unlock()
	writeJSON(w, http.StatusOK, list)
}

func (m *MockAPI) handleGet(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexLocked(r.PathValue("id"))
	if i < 0 {
		writeMessage(w, http.StatusNotFound, "project not found")
		return
	}
	writeJSON(w, http.StatusOK, models.ProjectEnvelope{Project: m.projects[i]})
}

func (m *MockAPI) handleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeMessage(w, http.StatusBadRequest, "expected a multipart upload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	if !shared.IsArchiveName(header.Filename) {
		writeMessage(w, http.StatusUnprocessableEntity, "only .zip and .zipx archives are accepted")
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	now := m.now()
	base := shared.TrimArchiveExt(header.Filename)
	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		name = base
	}
	slug := shared.Slugify(name)
	if slug == "" {
		slug = fmt.Sprintf("project-%d", now.UnixMilli())
	}

	files := countFiles(data)
	views := 0
	project := models.Project{
		ID:        shared.GenerateID(),
		Name:      name,
		Slug:      slug,
		Size:      int64(len(data)),
		CreatedAt: now,
		UpdatedAt: now,
		Status:    models.StatusProcessing,
		FileCount: &files,
		ViewCount: &views,
	}

	m.mu.Lock()
	m.projects = append([]models.Project{project}, m.projects...)
	m.mu.Unlock()

	m.logger.Debug("project uploaded", "id", project.ID, "files", files, "size", project.Size)
	writeJSON(w, http.StatusCreated, models.ProjectEnvelope{Project: project})
}

func (m *MockAPI) handleDelete(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexLocked(r.PathValue("id"))
	if i < 0 {
		writeMessage(w, http.StatusNotFound, "project not found")
		return
	}
	m.projects = append(m.projects[:i], m.projects[i+1:]...)
	w.WriteHeader(http.StatusNoContent)
}

func (m *MockAPI) handleToggle(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexLocked(r.PathValue("id"))
	if i < 0 {
		writeMessage(w, http.StatusNotFound, "project not found")
		return
	}

	p := &m.projects[i]
	p.IsPublic = !p.IsPublic
	p.UpdatedAt = m.now()
	p.PublicURL = nil
	if p.IsPublic {
		u := fmt.Sprintf("http://%s.%s", p.Slug, m.domain)
		p.PublicURL = &u
		if p.Status == models.StatusDraft {
			p.Status = models.StatusReady
		}
	}
	writeJSON(w, http.StatusOK, models.ProjectEnvelope{Project: *p})
}

func (m *MockAPI) handleView(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexLocked(r.PathValue("id"))
	if i < 0 {
		writeMessage(w, http.StatusNotFound, "project not found")
		return
	}
	views := m.projects[i].Views() + 1
	m.projects[i].ViewCount = &views
	w.WriteHeader(http.StatusNoContent)
}

// authorized rejects requests without a live token.
func (m *MockAPI) authorized(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearer(r)

		m.mu.Lock()
		info, ok := m.lookupLocked(token)
		m.mu.Unlock()

		switch {
		case !ok:
			writeMessage(w, http.StatusUnauthorized, "authentication required")
		case info.stale || (m.ttl > 0 && !m.now().Before(info.expires)):
			writeMessage(w, http.StatusUnauthorized, "token expired")
		default:
			next(w, r)
		}
	})
}

func (m *MockAPI) issueLocked(email string) string {
	m.issued++
	token := fmt.Sprintf("%s%d-%d", tokenPrefix, m.now().UnixMilli(), m.issued)
	m.tokens[token] = issuedToken{email: email, expires: m.now().Add(m.ttl)}
	return token
}

// lookupLocked finds an issued token. Well-formed tokens from an earlier process are adopted so a
// persisted session survives a restart; revoked ones never are.
func (m *MockAPI) lookupLocked(token string) (issuedToken, bool) {
	if info, ok := m.tokens[token]; ok {
		return info, true
	}
	if _, gone := m.revoked[token]; gone || !strings.HasPrefix(token, tokenPrefix) {
		return issuedToken{}, false
	}
	info := issuedToken{email: "mock@zipdrop.ru", expires: m.now().Add(m.ttl)}
	m.tokens[token] = info
	return info, true
}

func (m *MockAPI) revokeLocked(token string) {
	delete(m.tokens, token)
	m.revoked[token] = struct{}{}
}

func (m *MockAPI) indexLocked(id string) int {
	for i := range m.projects {
		if m.projects[i].ID == id {
			return i
		}
	}
	return -1
}

func seedProjects(now time.Time, domain string) []models.Project {
	marketingURL := fmt.Sprintf("http://marketingovyi-sait.%s", domain)
	files, files2 := 12, 8
	views, views2 := 45, 0
	return []models.Project{
		{
			ID:        "9aa1a68b-3e75-4a71-b3ca-8c77b94d2bbd",
			Name:      "Маркетинговый сайт",
			Slug:      "marketingovyi-sait",
			Size:      4404019,
			UpdatedAt: now.Add(-2 * time.Hour),
			CreatedAt: now.Add(-5 * 24 * time.Hour),
			IsPublic:  true,
			PublicURL: &marketingURL,
			Status:    models.StatusReady,
			FileCount: &files,
			ViewCount: &views,
		},
		{
			ID:        "ff9cd8ce-42bf-4f9a-a3ec-5df76f886e9d",
			Name:      "Портфолио",
			Slug:      "portfolio",
			Size:      8178892,
			UpdatedAt: now.Add(-24 * time.Hour),
			CreatedAt: now.Add(-3 * 24 * time.Hour),
			Status:    models.StatusDraft,
			FileCount: &files2,
			ViewCount: &views2,
		},
	}
}

// countFiles returns the number of regular files in a zip archive, or zero when data is not one.
func countFiles(data []byte) int {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0
	}
	n := 0
	for _, f := range zr.File {
		if !f.FileInfo().IsDir() {
			n++
		}
	}
	return n
}

func bearer(r *http.Request) string {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
