package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/zipdrop/internal/gateway"
	"github.com/desertthunder/zipdrop/internal/models"
	"github.com/desertthunder/zipdrop/internal/shared"
)

// DefaultPublicDomain hosts published projects as <slug>.<domain>.
const DefaultPublicDomain = "zipdrop.ru"

// OverrideStore persists custom project names and slugs.
type OverrideStore interface {
	All() (map[string]models.ProjectOverride, error)
	Save(o *models.ProjectOverride) error
	Delete(projectID string) error
}

// Upload is one archive to create a project from.
type Upload struct {
	Filename string
	Content  io.Reader
	Name     string // optional display name
}

// ProjectService implements project operations and caches the last fetched list.
type ProjectService struct {
	api          API
	overrides    OverrideStore
	notifier     gateway.Notifier
	publicDomain string
	logger       *log.Logger

	mu       sync.RWMutex
	projects []models.Project
}

// NewProjectService creates a [ProjectService]. overrides and notifier may be nil.
func NewProjectService(api API, overrides OverrideStore, notifier gateway.Notifier, publicDomain string, logger *log.Logger) *ProjectService {
	if publicDomain == "" {
		publicDomain = DefaultPublicDomain
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &ProjectService{
		api:          api,
		overrides:    overrides,
		notifier:     notifier,
		publicDomain: publicDomain,
		logger:       logger,
	}
}

// SetNotifier replaces the notifier used for success messages.
func (s *ProjectService) SetNotifier(n gateway.Notifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifier = n
}

// PublicURL builds the hosted address for slug, falling back to id and then to the bare domain.
func (s *ProjectService) PublicURL(slug, id string) string {
	name := strings.TrimSpace(slug)
	if name == "" {
		name = strings.TrimSpace(id)
	}
	if name == "" {
		return "http://" + s.publicDomain
	}
	return fmt.Sprintf("http://%s.%s", name, s.publicDomain)
}

// Cached returns a copy of the last fetched list.
func (s *ProjectService) Cached() []models.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Project, len(s.projects))
	copy(out, s.projects)
	return out
}

// List fetches every project and replaces the cache.
func (s *ProjectService) List(ctx context.Context) ([]models.Project, error) {
	resp, err := s.api.Do(ctx, gateway.Request{Method: http.MethodGet, Path: "/projects"})
	if err != nil {
		return nil, failure(err, MsgListFailed)
	}

	var body models.ProjectList
	if err := resp.Decode(&body); err != nil {
		return nil, &Error{Message: MsgListFailed, Err: err}
	}

	overrides := s.loadOverrides()
	for i := range body.Projects {
		applyOverride(overrides, &body.Projects[i])
	}

	s.mu.Lock()
	s.projects = body.Projects
	s.mu.Unlock()

	return s.Cached(), nil
}

// Get returns a project, from the cache unless force is set.
func (s *ProjectService) Get(ctx context.Context, id string, force bool) (*models.Project, error) {
	if !force {
		if p, ok := s.cached(id); ok {
			return p, nil
		}
	}

	resp, err := s.api.Do(ctx, gateway.Request{Method: http.MethodGet, Path: projectPath(id)})
	if err != nil {
		return nil, failure(err, MsgGetFailed)
	}

	var body models.ProjectEnvelope
	if err := resp.Decode(&body); err != nil {
		return nil, &Error{Message: MsgGetFailed, Err: err}
	}

	project := body.Project
	applyOverride(s.loadOverrides(), &project)
	s.upsert(project, false)
	return &project, nil
}

// Create uploads an archive. A provided name is kept as a custom name, and its slug as a custom
// slug when the server chose a different one.
func (s *ProjectService) Create(ctx context.Context, upload Upload) (*models.Project, error) {
	if !shared.IsArchiveName(upload.Filename) {
		return nil, &Error{
			Message: "only .zip and .zipx archives can be uploaded",
			Err:     fmt.Errorf("%w: %s", shared.ErrInvalidArchive, upload.Filename),
		}
	}

	body, contentType, err := multipartBody(upload)
	if err != nil {
		return nil, &Error{Message: MsgCreateFailed, Err: err}
	}

	resp, err := s.api.Do(ctx, gateway.Request{
		Method:      http.MethodPost,
		Path:        "/projects",
		Body:        body,
		ContentType: contentType,
	})
	if err != nil {
		return nil, failure(err, MsgCreateFailed)
	}

	var envelope models.ProjectEnvelope
	if err := resp.Decode(&envelope); err != nil {
		return nil, &Error{Message: MsgCreateFailed, Err: err}
	}
	project := envelope.Project

	if name := strings.TrimSpace(upload.Name); name != "" {
		override := models.ProjectOverride{ProjectID: project.ID, Name: name}
		if slug := shared.Slugify(name); slug != "" && slug != project.Slug {
			override.Slug = slug
		}
		override.Apply(&project)
		s.saveOverride(&override)
	}

	s.upsert(project, true)
	s.notify(gateway.NoticeSuccess, "project uploaded")
	return &project, nil
}

// Delete removes a project and drops it from the cache.
func (s *ProjectService) Delete(ctx context.Context, id string) error {
	if _, err := s.api.Do(ctx, gateway.Request{Method: http.MethodDelete, Path: projectPath(id)}); err != nil {
		return failure(err, MsgDeleteFailed)
	}

	s.mu.Lock()
	kept := s.projects[:0]
	for _, p := range s.projects {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	s.projects = kept
	s.mu.Unlock()

	if s.overrides != nil {
		if err := s.overrides.Delete(id); err != nil {
			s.logger.Debug("no override to delete", "project", id)
		}
	}

	s.notify(gateway.NoticeSuccess, "project deleted")
	return nil
}

// TogglePublic flips a project's visibility and fills in its public URL when the API omits it.
func (s *ProjectService) TogglePublic(ctx context.Context, id string) (*models.Project, error) {
	resp, err := s.api.Do(ctx, gateway.Request{Method: http.MethodPatch, Path: projectPath(id) + "/toggle-public"})
	if err != nil {
		return nil, failure(err, MsgToggleFailed)
	}

	var body models.ProjectEnvelope
	if err := resp.Decode(&body); err != nil {
		return nil, &Error{Message: MsgToggleFailed, Err: err}
	}

	project := body.Project
	applyOverride(s.loadOverrides(), &project)
	if project.IsPublic && project.URL() == "" {
		u := s.PublicURL(project.Slug, project.ID)
		project.PublicURL = &u
	}
	s.upsert(project, false)

	if project.IsPublic {
		s.notify(gateway.NoticeSuccess, "project published")
	} else {
		s.notify(gateway.NoticeInfo, "project hidden")
	}
	return &project, nil
}

// TrackView records a view. Failures are logged and otherwise ignored.
func (s *ProjectService) TrackView(ctx context.Context, id string) {
	if _, err := s.api.Do(ctx, gateway.Request{Method: http.MethodPost, Path: projectPath(id) + "/view"}); err != nil {
		s.logger.Warn("failed to track view", "project", id, "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.projects {
		if s.projects[i].ID == id && s.projects[i].ViewCount != nil {
			views := *s.projects[i].ViewCount + 1
			s.projects[i].ViewCount = &views
		}
	}
}

// Rename stores a custom name and/or slug for a project and applies it to the cache.
func (s *ProjectService) Rename(id, name, slug string) error {
	name, slug = strings.TrimSpace(name), strings.TrimSpace(slug)
	if name == "" && slug == "" {
		return fmt.Errorf("%w: a name or slug is required", shared.ErrMissingArgument)
	}
	if s.overrides == nil {
		return fmt.Errorf("%w: no override storage configured", shared.ErrMissingConfig)
	}

	override := models.ProjectOverride{ProjectID: id, Name: name, Slug: slug}
	if existing, ok := s.loadOverrides()[id]; ok {
		if override.Name == "" {
			override.Name = existing.Name
		}
		if override.Slug == "" {
			override.Slug = existing.Slug
		}
	}
	if err := s.overrides.Save(&override); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.projects {
		if s.projects[i].ID == id {
			override.Apply(&s.projects[i])
		}
	}
	return nil
}

func (s *ProjectService) cached(id string) (*models.Project, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.projects {
		if p.ID == id {
			return &p, true
		}
	}
	return nil, false
}

// upsert replaces the cached copy of project, adding it at the front or back when missing.
func (s *ProjectService) upsert(project models.Project, front bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.projects {
		if s.projects[i].ID == project.ID {
			s.projects[i] = project
			return
		}
	}
	if front {
		s.projects = append([]models.Project{project}, s.projects...)
		return
	}
	s.projects = append(s.projects, project)
}

func (s *ProjectService) loadOverrides() map[string]models.ProjectOverride {
	if s.overrides == nil {
		return nil
	}
	overrides, err := s.overrides.All()
	if err != nil {
		s.logger.Warn("failed to load project overrides", "error", err)
		return nil
	}
	return overrides
}

func (s *ProjectService) saveOverride(o *models.ProjectOverride) {
	if s.overrides == nil {
		return
	}
	if err := s.overrides.Save(o); err != nil {
		s.logger.Warn("failed to save project override", "project", o.ProjectID, "error", err)
	}
}

func (s *ProjectService) notify(kind gateway.NoticeKind, message string) {
	s.mu.RLock()
	n := s.notifier
	s.mu.RUnlock()
	if n != nil {
		n.Notify(kind, message)
	}
}

func applyOverride(overrides map[string]models.ProjectOverride, p *models.Project) {
	if o, ok := overrides[p.ID]; ok {
		o.Apply(p)
	}
}

func projectPath(id string) string {
	return "/projects/" + url.PathEscape(id)
}

// multipartBody encodes the upload as the "file" part plus an optional "name" field.
func multipartBody(upload Upload) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if name := strings.TrimSpace(upload.Name); name != "" {
		if err := w.WriteField("name", name); err != nil {
			return nil, "", fmt.Errorf("failed to write name field: %w", err)
		}
	}

	part, err := w.CreateFormFile("file", filepath.Base(upload.Filename))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := io.Copy(part, upload.Content); err != nil {
		return nil, "", fmt.Errorf("failed to read archive: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish upload body: %w", err)
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}
