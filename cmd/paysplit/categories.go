package main

import (
	"fmt"

	"github.com/Veraticus/paysplit/internal/budget"
	"github.com/Veraticus/paysplit/internal/cli"
	"github.com/spf13/cobra"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage budget categories",
	}

	cmd.AddCommand(addCategoryCmd())

	return cmd
}

func addCategoryCmd() *cobra.Command {
	var (
		percent  float64
		limit    float64
		kindName string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a category",
		Long: `Add one category. A percent category takes its share of every paycheck;
a limit category takes its share until the dollar limit is paid off.
The new total may not exceed 100%.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := budget.ParseKind(kindName)
			if err != nil {
				return err
			}
			req := budget.NewCategory{Name: args[0], Kind: kind, Percent: percent, Limit: limit}

			sess, err := openSession(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer sess.Close()

			saved, err := sess.engine.AddCategory(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Added %q (%s)", req.Name, req.Describe())))
			fmt.Fprintln(out, cli.RenderSettings(saved))
			return nil
		},
	}

	cmd.Flags().Float64Var(&percent, "percent", 0, "share of each paycheck, in percent")
	cmd.Flags().Float64Var(&limit, "limit", 0, "dollar limit for a limit category")
	cmd.Flags().StringVar(&kindName, "type", string(budget.KindPercent), "category type (percent, limit)")

	return cmd
}
