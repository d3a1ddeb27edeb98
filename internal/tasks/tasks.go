package tasks

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/zipdrop/internal/models"
	"github.com/desertthunder/zipdrop/internal/services"
	"github.com/desertthunder/zipdrop/internal/shared"
)

// Uploader creates a project from one archive. Implemented by [services.ProjectService].
type Uploader interface {
	Create(ctx context.Context, upload services.Upload) (*models.Project, error)
}

// UploadResult is the outcome of uploading a single archive.
type UploadResult struct {
	Path    string          // Archive on disk
	Project *models.Project // Created project (nil on failure)
	Error   error           // Error if the upload failed
}

// BulkUploadResult summarizes a [UploadEngine.BulkUpload] run.
type BulkUploadResult struct {
	Total     int            // Archives attempted
	Succeeded int            // Projects created
	Failed    int            // Archives that could not be uploaded
	Results   []UploadResult // One entry per archive, in input order
}

// Projects returns the created projects in input order.
func (r *BulkUploadResult) Projects() []models.Project {
	projects := make([]models.Project, 0, r.Succeeded)
	for _, res := range r.Results {
		if res.Project != nil {
			projects = append(projects, *res.Project)
		}
	}
	return projects
}

// UploadEngine uploads archives through an [Uploader].
type UploadEngine struct {
	uploader Uploader
	logger   *log.Logger
}

// NewUploadEngine creates a new UploadEngine.
func NewUploadEngine(uploader Uploader, logger *log.Logger) *UploadEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &UploadEngine{uploader: uploader, logger: logger}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *UploadEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Scan expands paths into archive files. Directories are walked recursively and only .zip/.zipx
// files inside them are kept; a file named explicitly must itself be an archive.
func (e *UploadEngine) Scan(progress chan<- ProgressUpdate, paths ...string) ([]string, error) {
	var archives []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		if !info.IsDir() {
			if !shared.IsArchiveName(path) {
				return nil, fmt.Errorf("%w: %s is not a .zip or .zipx file", shared.ErrInvalidArchive, path)
			}
			archives = append(archives, path)
			continue
		}

		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && shared.IsArchiveName(d.Name()) {
				archives = append(archives, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", path, err)
		}
	}

	archives = slices.Compact(archives)
	e.sendProgress(progress, scanUpdate(len(archives)))
	return archives, nil
}
