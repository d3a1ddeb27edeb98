package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/zipdrop/internal/shared"
	"github.com/desertthunder/zipdrop/internal/ui"
)

// TUI launches the interactive terminal UI.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.config.UI.LogFile)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, r.logger.GetLevel())
	r.SetLogger(fileLogger)

	if err := r.connect(); err != nil {
		return err
	}

	bridge := ui.NewBridge(ui.SignInView)
	r.gateway.SetNotifier(bridge)
	r.gateway.SetNavigator(bridge)
	r.projects.SetNotifier(bridge)

	model := ui.NewModel(ctx, r.store, r.projects, bridge, ui.Options{
		Storage: r.storage,
		Theme:   ui.ParseTheme(r.config.UI.Theme),
		Open:    r.open,
		Now:     r.now,
		Logger:  fileLogger,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	bridge.Attach(p)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
