package tasks

import (
	"context"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/desertthunder/zipdrop/internal/services"
	"github.com/desertthunder/zipdrop/internal/shared"
)

// BulkUploadOpts contains configuration for bulk uploads.
type BulkUploadOpts struct {
	NumWorkers int     // Concurrent uploads (default: 3, max: 10)
	RateLimit  float64 // Requests per second (default: 2)
}

func (o *BulkUploadOpts) normalize() {
	if o.NumWorkers <= 0 {
		o.NumWorkers = 3
	}
	if o.NumWorkers > 10 {
		o.NumWorkers = 10
	}
	if o.RateLimit <= 0 {
		o.RateLimit = 2
	}
}

// BulkUpload uploads archives concurrently with rate limiting and progress tracking.
//
// Individual failures are recorded in the result. The returned error is non-nil only when ctx
// ends the run early.
func (e *UploadEngine) BulkUpload(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	paths []string,
	opts BulkUploadOpts,
) (*BulkUploadResult, error) {
	if e.uploader == nil {
		return nil, fmt.Errorf("%w: project service not initialized", shared.ErrServiceUnavailable)
	}
	opts.normalize()

	total := len(paths)
	result := &BulkUploadResult{
		Total:   total,
		Results: make([]UploadResult, total),
	}
	for i, path := range paths {
		result.Results[i].Path = path
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.NumWorkers)

	var (
		mu        sync.Mutex
		completed int
	)

	for i, path := range paths {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				result.Results[i].Error = err
				return err
			}

			e.sendProgress(prog, uploadingUpdate(i+1, total, path))
			res := e.uploadOne(gctx, path)
			result.Results[i] = res

			mu.Lock()
			defer mu.Unlock()
			completed++
			if res.Error != nil {
				result.Failed++
				e.logger.Warn("upload failed", "path", path, "error", res.Error)
				e.sendProgress(prog, uploadFailedUpdate(completed, total, path, res.Error))
			} else {
				result.Succeeded++
				e.sendProgress(prog, uploadedUpdate(completed, total, res.Project))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil || ctx.Err() != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return result, fmt.Errorf("bulk upload interrupted: %w", err)
	}
	return result, nil
}

func (e *UploadEngine) uploadOne(ctx context.Context, path string) UploadResult {
	f, err := os.Open(path)
	if err != nil {
		return UploadResult{Path: path, Error: fmt.Errorf("failed to open archive: %w", err)}
	}
	defer f.Close()

	project, err := e.uploader.Create(ctx, services.Upload{
		Filename: path,
		Content:  f,
	})
	return UploadResult{Path: path, Project: project, Error: err}
}
