package tasks

import (
	"fmt"
	"path/filepath"

	"github.com/desertthunder/zipdrop/internal/formatter"
	"github.com/desertthunder/zipdrop/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	ScanFiles Phase = iota
	UploadArchive
	UploadComplete
	UploadFailed
)

func (p Phase) String() string {
	switch p {
	case ScanFiles:
		return "scan_files"
	case UploadArchive:
		return "upload_archive"
	case UploadComplete:
		return "upload_complete"
	case UploadFailed:
		return "upload_failed"
	default:
		return ""
	}
}

func scanUpdate(found int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ScanFiles,
		Step:    found,
		Total:   found,
		Message: fmt.Sprintf("Found %d archives", found),
	}
}

func uploadingUpdate(step, total int, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   UploadArchive,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Uploading %s...", step, total, filepath.Base(path)),
	}
}

func uploadedUpdate(step, total int, p *models.Project) ProgressUpdate {
	return ProgressUpdate{
		Phase:   UploadComplete,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%s)", step, total, p.Name, formatter.FormatFileSize(p.Size)),
		Data:    p,
	}
}

func uploadFailedUpdate(step, total int, path string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   UploadFailed,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, filepath.Base(path), err),
	}
}
