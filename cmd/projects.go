package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/zipdrop/internal/formatter"
	"github.com/desertthunder/zipdrop/internal/services"
	"github.com/desertthunder/zipdrop/internal/shared"
	"github.com/desertthunder/zipdrop/internal/tasks"
)

// ProjectsList prints or exports every project.
func (r *Runner) ProjectsList(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	if err := r.requireSession(); err != nil {
		return err
	}

	projects, err := r.projects.List(ctx)
	if err != nil {
		return explain(err)
	}
	r.logger.Debug("fetched projects", "count", len(projects))

	if path := cmd.String("output"); path != "" {
		written, err := formatter.WriteExport(projects, format, path, r.now())
		if err != nil {
			return err
		}
		return r.writePlain("✓ Exported %d projects to %s\n", len(projects), written)
	}

	if len(projects) == 0 && format == formatter.FormatText {
		return r.writePlain("No projects yet. Upload one with 'zipdrop projects upload <archive>'\n")
	}

	data, err := formatter.Export(projects, format, r.now())
	if err != nil {
		return err
	}
	return r.writeRaw(data)
}

// ProjectsGet prints one project.
func (r *Runner) ProjectsGet(ctx context.Context, cmd *cli.Command) error {
	id, err := projectID(cmd)
	if err != nil {
		return err
	}
	if err := r.requireSession(); err != nil {
		return err
	}

	project, err := r.projects.Get(ctx, id, true)
	if err != nil {
		return explain(err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(project, true)
	}
	return r.writePlain("%s", formatter.ProjectDetail(*project, r.now()))
}

// ProjectsUpload creates a project from one archive.
func (r *Runner) ProjectsUpload(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: archive path is required", shared.ErrMissingArgument)
	}
	if err := r.requireSession(); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	r.logger.Info("uploading archive", "path", path)
	r.writePlain("Uploading %s...\n", filepath.Base(path))

	project, err := r.projects.Create(ctx, services.Upload{
		Filename: path,
		Content:  f,
		Name:     cmd.String("name"),
	})
	if err != nil {
		return explain(err)
	}

	r.writePlain("✓ Created %s\n\n", project.Name)
	return r.writePlain("%s", formatter.ProjectDetail(*project, r.now()))
}

// ProjectsPush uploads every archive found in the arguments.
func (r *Runner) ProjectsPush(ctx context.Context, cmd *cli.Command) error {
	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return fmt.Errorf("%w: at least one file or directory is required", shared.ErrMissingArgument)
	}
	if err := r.requireSession(); err != nil {
		return err
	}

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.ScanFiles:
				r.writePlain("📦 %s\n\n", update.Message)
			default:
				r.writePlain("   %s\n", update.Message)
			}
		}
	}()

	archives, err := r.engine.Scan(progressCh, paths...)
	if err == nil && len(archives) == 0 {
		err = fmt.Errorf("%w: no .zip or .zipx archives found", shared.ErrInvalidArchive)
	}
	if err != nil {
		close(progressCh)
		<-done
		return err
	}

	result, err := r.engine.BulkUpload(ctx, progressCh, archives, tasks.BulkUploadOpts{
		NumWorkers: int(cmd.Int("workers")),
		RateLimit:  cmd.Float("rate"),
	})
	close(progressCh)
	<-done

	if result != nil {
		r.writePlain("\n")
		r.writePlainHeader("Upload Complete")
		r.writePlain("Uploaded: %d/%d\n", result.Succeeded, result.Total)
		if result.Failed > 0 {
			r.writePlain("\nFailed to upload %d archives:\n", result.Failed)
			for _, res := range result.Results {
				if res.Error != nil {
					r.writePlain("  - %s: %s\n", res.Path, errorText(res.Error))
				}
			}
		}
	}
	if err != nil {
		return err
	}
	if result.Failed > 0 && result.Succeeded == 0 {
		return fmt.Errorf("%w: no archives were uploaded", shared.ErrAPIRequest)
	}
	return nil
}

// ProjectsDelete removes a project after --yes confirms it.
func (r *Runner) ProjectsDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := projectID(cmd)
	if err != nil {
		return err
	}
	if !cmd.Bool("yes") {
		return fmt.Errorf("%w: deleting %s cannot be undone, pass --yes to confirm", shared.ErrMissingArgument, id)
	}
	if err := r.requireSession(); err != nil {
		return err
	}

	if err := r.projects.Delete(ctx, id); err != nil {
		return explain(err)
	}
	return r.writePlain("✓ Deleted %s\n", id)
}

// ProjectsToggle flips a project's visibility.
func (r *Runner) ProjectsToggle(ctx context.Context, cmd *cli.Command) error {
	id, err := projectID(cmd)
	if err != nil {
		return err
	}
	if err := r.requireSession(); err != nil {
		return err
	}

	project, err := r.projects.TogglePublic(ctx, id)
	if err != nil {
		return explain(err)
	}

	if project.IsPublic {
		return r.writePlain("✓ %s is public at %s\n", project.Name, project.URL())
	}
	return r.writePlain("✓ %s is private\n", project.Name)
}

// ProjectsView records a view of a project.
func (r *Runner) ProjectsView(ctx context.Context, cmd *cli.Command) error {
	id, err := projectID(cmd)
	if err != nil {
		return err
	}
	if err := r.requireSession(); err != nil {
		return err
	}

	r.projects.TrackView(ctx, id)
	return r.writePlain("✓ View recorded for %s\n", id)
}

// ProjectsRename stores a local name and/or slug for a project.
func (r *Runner) ProjectsRename(ctx context.Context, cmd *cli.Command) error {
	id, err := projectID(cmd)
	if err != nil {
		return err
	}
	if err := r.connect(); err != nil {
		return err
	}

	name, slug := cmd.String("name"), cmd.String("slug")
	if slug != "" {
		slug = shared.Slugify(slug)
	}
	if err := r.projects.Rename(id, name, slug); err != nil {
		return err
	}

	r.logger.Info("project renamed", "project", id, "name", name, "slug", slug)
	return r.writePlain("✓ Saved custom name for %s\n", id)
}

// ProjectsOpen opens a public project's URL and records the view.
func (r *Runner) ProjectsOpen(ctx context.Context, cmd *cli.Command) error {
	id, err := projectID(cmd)
	if err != nil {
		return err
	}
	if err := r.requireSession(); err != nil {
		return err
	}

	project, err := r.projects.Get(ctx, id, true)
	if err != nil {
		return explain(err)
	}
	if !project.IsPublic {
		return fmt.Errorf("%w: %s is private, publish it with 'zipdrop projects toggle %s'", shared.ErrInvalidArgument, project.Name, id)
	}

	url := project.URL()
	if url == "" {
		url = r.projects.PublicURL(project.Slug, project.ID)
	}
	if err := r.open(url); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}

	r.projects.TrackView(ctx, id)
	return r.writePlain("✓ Opened %s\n", url)
}

// requireSession connects and fails early when no token is stored.
func (r *Runner) requireSession() error {
	if err := r.connect(); err != nil {
		return err
	}
	if !r.store.IsAuthenticated() {
		return fmt.Errorf("%w: run 'zipdrop auth login' first", shared.ErrNotAuthenticated)
	}
	return nil
}

func projectID(cmd *cli.Command) (string, error) {
	id := strings.TrimSpace(cmd.StringArg("id"))
	if id == "" {
		return "", fmt.Errorf("%w: project id is required", shared.ErrMissingArgument)
	}
	return id, nil
}

// explain adds a sign-in hint when the session could not be recovered.
func explain(err error) error {
	if errors.Is(err, shared.ErrSessionExpired) {
		return fmt.Errorf("%w (run 'zipdrop auth login')", err)
	}
	return err
}

func errorText(err error) string {
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		return svcErr.Message
	}
	return err.Error()
}
