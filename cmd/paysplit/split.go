package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Veraticus/paysplit/internal/budget"
	"github.com/Veraticus/paysplit/internal/cli"
	"github.com/Veraticus/paysplit/internal/config"
	"github.com/Veraticus/paysplit/internal/ofx"
	"github.com/spf13/cobra"
)

func splitCmd() *cobra.Command {
	var ofxFile string

	cmd := &cobra.Command{
		Use:   "split [amount]",
		Short: "Split a paycheck across your categories",
		Long: `Split a paycheck across the configured categories. Limited categories are
charged against their remaining limit and removed once it is paid off.

The amount can be given directly or read from the latest paycheck deposit
in an OFX/QFX bank statement.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			var amount float64
			switch {
			case ofxFile != "":
				if len(args) > 0 {
					return fmt.Errorf("%w: give an amount or --ofx, not both", budget.ErrInvalidInput)
				}
				a, err := paycheckFromOFX(cmd, ofxFile)
				if err != nil {
					return err
				}
				amount = a
			case len(args) == 1:
				a, err := parseAmount(args[0])
				if err != nil {
					return err
				}
				amount = a
			default:
				return fmt.Errorf("%w: no amount given", budget.ErrInvalidInput)
			}

			sess, err := openSession(ctx, nil)
			if err != nil {
				return err
			}
			defer sess.Close()

			allocations, err := sess.engine.SubmitPaycheck(ctx, amount)
			if allocations == nil && err != nil {
				return err
			}

			fmt.Fprintln(out, cli.RenderSplit(allocations))
			for _, a := range allocations {
				if a.Exhausted {
					fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("%s is paid off and was removed.", a.Category)))
				}
			}
			if err != nil {
				fmt.Fprintln(out, cli.FormatWarning("The split was not saved: "+err.Error()))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&ofxFile, "ofx", "", "read the paycheck from the latest deposit in this OFX/QFX file")

	return cmd
}

// parseAmount accepts a plain or dollar-prefixed number such as "$1,250.50".
func parseAmount(raw string) (float64, error) {
	cleaned := strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(raw))
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", budget.ErrInvalidInput, raw)
	}
	return v, nil
}

func paycheckFromOFX(cmd *cobra.Command, path string) (float64, error) {
	f, err := os.Open(config.ExpandPath(path))
	if err != nil {
		return 0, fmt.Errorf("failed to open statement: %w", err)
	}
	defer func() { _ = f.Close() }()

	deposits, err := ofx.NewParser().Deposits(cmd.Context(), f)
	if err != nil {
		return 0, err
	}
	d, err := ofx.LatestPaycheck(deposits)
	if err != nil {
		return 0, err
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo(fmt.Sprintf("Using %s from %s on %s",
		cli.FormatMoney(d.Amount), d.Name, d.Date.Format("Jan 2, 2006"))))
	return d.Amount.InexactFloat64(), nil
}
