package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/Veraticus/paysplit/internal/tui/themes"
	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the settings form until the user quits or ctx is canceled.
func Run(ctx context.Context, submitter Submitter, theme themes.Theme) error {
	p := tea.NewProgram(New(ctx, submitter, theme), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("settings form failed: %w", err)
	}
	return nil
}
