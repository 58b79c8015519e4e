package main

import (
	"fmt"
	"strings"

	"github.com/Veraticus/paysplit/internal/budget"
	"github.com/Veraticus/paysplit/internal/cli"
	"github.com/Veraticus/paysplit/internal/tui"
	"github.com/Veraticus/paysplit/internal/tui/themes"
	"github.com/spf13/cobra"
)

func settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change your budget categories",
	}

	cmd.AddCommand(showSettingsCmd())
	cmd.AddCommand(setSettingsCmd())
	cmd.AddCommand(editSettingsCmd())

	return cmd
}

func showSettingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := openSession(cmd.Context(), cli.NewSettingsRenderer(cmd.OutOrStdout()))
			if err != nil {
				return err
			}
			sess.Close()
			return nil
		},
	}
}

func setSettingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <field>=<value>...",
		Short: "Replace every category at once",
		Long: `Replace the whole configuration with the given fields. A plain name sets a
percentage category; <name>-percent and <name>-limit set a limited category.
The percentages must add up to exactly 100.

Example:
  paysplit settings set Rent=50 Savings=40 Car-percent=10 Car-limit=400`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := parseEntries(args)
			if err != nil {
				return err
			}

			sess, err := openSession(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer sess.Close()

			saved, err := sess.engine.SubmitSettings(cmd.Context(), entries)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatSuccess(cli.SettingsSavedMessage))
			fmt.Fprintln(out, cli.RenderSettings(saved))
			return nil
		},
	}
}

func editSettingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit",
		Short: "Edit the categories in an interactive form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := openSession(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer sess.Close()

			return tui.Run(cmd.Context(), sess.engine, themes.ByName(sess.cfg.Theme))
		},
	}
}

func parseEntries(args []string) ([]budget.FormEntry, error) {
	entries := make([]budget.FormEntry, 0, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w: expected <field>=<value>, got %q", budget.ErrValidation, arg)
		}
		entries = append(entries, budget.FormEntry{Name: strings.TrimSpace(name), Value: value})
	}
	return entries, nil
}
