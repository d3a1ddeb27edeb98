package models

import (
	"fmt"
	"strings"
	"time"
)

// Storage keys persisted on the client.
const (
	TokenKey = "zipdrop_jwt"
	ThemeKey = "zipdrop-theme"
)

// Storage is durable client-side key/value storage.
//
// Get reports ok=false for keys that were never set or have been removed.
type Storage interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error
}

// User is the authenticated account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Credentials are submitted to login and register.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is the payload of a successful login or register.
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// Validate checks that the server returned a usable token.
func (a *AuthResponse) Validate() error {
	if a == nil || strings.TrimSpace(a.Token) == "" {
		return fmt.Errorf("auth response is missing a token")
	}
	return nil
}

// RefreshResponse is the payload of a successful refresh.
type RefreshResponse struct {
	Token string `json:"token"`
}

// ProjectStatus is the processing state of an uploaded archive.
type ProjectStatus string

const (
	StatusReady      ProjectStatus = "ready"
	StatusProcessing ProjectStatus = "processing"
	StatusDraft      ProjectStatus = "draft"
)

// Project is an uploaded archive hosted by ZipDrop.
type Project struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Slug      string        `json:"slug"`
	Size      int64         `json:"size"`
	UpdatedAt time.Time     `json:"updatedAt"`
	CreatedAt time.Time     `json:"createdAt"`
	IsPublic  bool          `json:"isPublic"`
	PublicURL *string       `json:"publicUrl"`
	Status    ProjectStatus `json:"status"`
	FileCount *int          `json:"fileCount,omitempty"`
	ViewCount *int          `json:"viewCount,omitempty"`
}

// URL returns the public URL or "" when there is none.
func (p *Project) URL() string {
	if p.PublicURL == nil {
		return ""
	}
	return *p.PublicURL
}

// Files returns the file count, zero when unknown.
func (p *Project) Files() int {
	if p.FileCount == nil {
		return 0
	}
	return *p.FileCount
}

// Views returns the view count, zero when unknown.
func (p *Project) Views() int {
	if p.ViewCount == nil {
		return 0
	}
	return *p.ViewCount
}

// ProjectList is the body of GET /projects.
type ProjectList struct {
	Projects []Project `json:"projects"`
}

// ProjectEnvelope is the body of single project responses.
type ProjectEnvelope struct {
	Project Project `json:"project"`
}

// ProjectOverride is a locally chosen name and slug for a project.
type ProjectOverride struct {
	ProjectID string
	Name      string
	Slug      string
	UpdatedAt time.Time
}

// Apply copies the non-empty override fields onto p.
func (o ProjectOverride) Apply(p *Project) {
	if o.Name != "" {
		p.Name = o.Name
	}
	if o.Slug != "" {
		p.Slug = o.Slug
	}
}
