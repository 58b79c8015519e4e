package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/Veraticus/paysplit/internal/budget"
	"github.com/Veraticus/paysplit/internal/common"
	"github.com/Veraticus/paysplit/internal/model"
	"github.com/shopspring/decimal"
)

// SettingsSavedMessage is shown after settings are stored.
const SettingsSavedMessage = "Settings saved!"

// FormatError renders err as the message a user should see.
func FormatError(err error) string {
	msg := budget.UserMessage(err)
	if msg == "" {
		if m, ok := common.UserMessage(err); ok {
			msg = m
		} else {
			msg = err.Error()
		}
	}
	return ErrorStyle.Render(ErrorIcon + " " + msg)
}

// FormatMoney renders an amount as dollars and cents.
func FormatMoney(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

// FormatPercent renders a percentage without trailing zeros.
func FormatPercent(p float64) string {
	return decimal.NewFromFloat(p).String() + "%"
}

// RenderSplit lists each allocation of a paycheck. Limited categories show
// how much of their limit is left, or that they were paid off.
func RenderSplit(allocations []budget.Allocation) string {
	if len(allocations) == 0 {
		return SubtleStyle.Render("No categories configured.")
	}

	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	for _, a := range allocations {
		note := ""
		switch {
		case a.Exhausted:
			note = "paid off"
		case a.Limited:
			note = FormatMoney(a.RemainingLimit) + " left"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.Category, FormatPercent(a.Percent), FormatMoney(a.Amount), note)
	}
	_ = tw.Flush()

	lines := strings.TrimRight(buf.String(), "\n")
	total := BoldStyle.Render("Total: " + FormatMoney(budget.Total(allocations)))
	return RenderBox("Paycheck split", lines+"\n"+total)
}

// RenderSettings lists the configured categories and their total.
func RenderSettings(s model.Settings) string {
	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	for _, c := range s.Categories {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t\n", c.Name, FormatPercent(c.Percent))
	}
	for _, c := range s.Limits {
		_, _ = fmt.Fprintf(tw, "%s\t%s\tuntil %s\n", c.Name, FormatPercent(c.Percent), FormatMoney(decimal.NewFromFloat(c.Limit)))
	}
	_ = tw.Flush()

	totalLine := "Total: " + s.TotalDecimal().String() + "%"
	if !s.TotalDecimal().Equal(decimal.NewFromInt(100)) {
		totalLine = WarningStyle.Render(totalLine)
	} else {
		totalLine = SuccessStyle.Render(totalLine)
	}

	body := strings.TrimRight(buf.String(), "\n")
	if body == "" {
		body = SubtleStyle.Render("No categories configured.")
	}
	return RenderBox("Categories", body+"\n"+totalLine)
}

// SettingsRenderer writes the settings view to w each time settings change.
type SettingsRenderer struct {
	w io.Writer
}

// NewSettingsRenderer creates a renderer writing to w.
func NewSettingsRenderer(w io.Writer) *SettingsRenderer {
	return &SettingsRenderer{w: w}
}

// Render implements service.Renderer.
func (r *SettingsRenderer) Render(s model.Settings) {
	if _, err := fmt.Fprintln(r.w, RenderSettings(s)); err != nil {
		slog.Debug("Failed to render settings", "error", err)
	}
}

// IsUserError reports whether err carries a message meant for the user.
func IsUserError(err error) bool {
	if budget.UserMessage(err) != "" {
		return true
	}
	var ue *common.UserError
	return errors.As(err, &ue)
}
