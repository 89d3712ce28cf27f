package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/taskclient/internal/app"
	"github.com/nhle/taskclient/internal/view"
)

func newTUICmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Start the terminal UI (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), rt)
		},
	}
}

func runTUI(ctx context.Context, rt *runtime) error {
	// Unknown display defaults fall back to showing everything unsorted.
	q, err := parseQuery(rt.cfg.Display.DefaultStatus, rt.cfg.Display.DefaultSort, "")
	if err != nil {
		q = view.Query{}
	}

	deps := app.Deps{
		Repo:    rt.client,
		Auth:    rt.client,
		Session: rt.creds,
		Catalog: rt.catalog,
		Logger:  rt.logger,
		BaseURL: rt.cfg.API.BaseURL,
		Query:   q,
		Now:     rt.now,
	}
	if cache := rt.openCache(); cache != nil {
		defer cache.Close()
		deps.Cache = cache
	}

	m := app.New(deps)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running terminal UI: %w", err)
	}
	return nil
}
