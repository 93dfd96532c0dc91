package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/soundpost/internal/shared"
	"github.com/desertthunder/soundpost/internal/ui"
)

// TUI launches the interactive feed.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.config.Log.File)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, shared.ParseLogLevel(r.config.Log.Level))
	r.SetLogger(fileLogger)

	if err := r.ensureApp(ctx, cmd); err != nil {
		return err
	}
	if err := r.ensurePlayer(ctx); err != nil {
		return err
	}

	stop := r.authActions.Listen(ctx)
	defer stop()

	if cmd.String("user") != "" || cmd.String("id-token") != "" {
		if _, err := r.signIn(ctx, cmd); err != nil {
			return err
		}
	}

	model := ui.NewModel(ctx, ui.Deps{
		Posts:    r.postStore,
		Auth:     r.authStore,
		Actions:  r.postActions,
		Player:   r.player,
		Catalog:  r.catalog,
		PageSize: r.config.Feed.PageSize,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	model.Subscribe(p.Send)
	defer model.Unsubscribe()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
