package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/zipdrop/internal/models"
)

// OverrideRepository persists [models.ProjectOverride] rows.
type OverrideRepository struct {
	db *sql.DB
}

// NewOverrideRepository creates a new [OverrideRepository] with the given database connection
func NewOverrideRepository(db *sql.DB) *OverrideRepository {
	return &OverrideRepository{db: db}
}

// Save upserts the override for its project. Empty fields clear that part of the override.
func (r *OverrideRepository) Save(o *models.ProjectOverride) error {
	if o.ProjectID == "" {
		return fmt.Errorf("validation failed: project id is required")
	}

	o.UpdatedAt = time.Now()
	query := `
		INSERT INTO project_overrides (project_id, name, slug, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET name = excluded.name, slug = excluded.slug, updated_at = excluded.updated_at
	`
	if _, err := r.db.Exec(query, o.ProjectID, o.Name, o.Slug, o.UpdatedAt); err != nil {
		return fmt.Errorf("failed to save override: %w", err)
	}
	return nil
}

// Get returns the override for a project.
func (r *OverrideRepository) Get(projectID string) (*models.ProjectOverride, error) {
	query := `SELECT project_id, name, slug, updated_at FROM project_overrides WHERE project_id = ?`

	var o models.ProjectOverride
	err := r.db.QueryRow(query, projectID).Scan(&o.ProjectID, &o.Name, &o.Slug, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("override not found: %s", projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query override: %w", err)
	}
	return &o, nil
}

// All returns every override keyed by project id.
func (r *OverrideRepository) All() (map[string]models.ProjectOverride, error) {
	rows, err := r.db.Query(`SELECT project_id, name, slug, updated_at FROM project_overrides`)
	if err != nil {
		return nil, fmt.Errorf("failed to query overrides: %w", err)
	}
	defer rows.Close()

	overrides := make(map[string]models.ProjectOverride)
	for rows.Next() {
		var o models.ProjectOverride
		if err := rows.Scan(&o.ProjectID, &o.Name, &o.Slug, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan override: %w", err)
		}
		overrides[o.ProjectID] = o
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return overrides, nil
}

// Delete removes the override for a project.
func (r *OverrideRepository) Delete(projectID string) error {
	result, err := r.db.Exec(`DELETE FROM project_overrides WHERE project_id = ?`, projectID)
	if err != nil {
		return fmt.Errorf("failed to delete override: %w", err)
	}
	return requireAffected(result, "override", projectID)
}
