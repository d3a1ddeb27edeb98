package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/zipdrop/internal/formatter"
	"github.com/desertthunder/zipdrop/internal/models"
	"github.com/desertthunder/zipdrop/internal/shared"
)

var _ list.Item = projectItem{}

// projectItem wraps [models.Project] to implement [list.Item].
type projectItem struct {
	project models.Project
	now     time.Time
}

func (i projectItem) FilterValue() string { return i.project.Name + " " + i.project.Slug }
func (i projectItem) Title() string       { return i.project.Name }
func (i projectItem) Description() string {
	return fmt.Sprintf("%s • %s • %s • %s",
		i.project.Status,
		shared.VisibilityString(i.project.IsPublic),
		formatter.FormatFileSize(i.project.Size),
		formatter.FormatDate(i.project.UpdatedAt, i.now),
	)
}

func projectItems(projects []models.Project, now time.Time) []list.Item {
	items := make([]list.Item, len(projects))
	for i, p := range projects {
		items[i] = projectItem{project: p, now: now}
	}
	return items
}
