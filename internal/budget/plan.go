package budget

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// RemainingLine is the name of the line holding what is left after a plan.
const RemainingLine = "Remaining"

// ErrUnknownRuleType is returned for a rule whose type is not recognized.
var ErrUnknownRuleType = errors.New("unknown rule type")

// RuleType says how a Rule takes its share.
type RuleType string

// Rule types.
const (
	RulePercent RuleType = "percent"
	RuleFixed   RuleType = "fixed"
)

// ParseRuleType accepts the spellings "percent", "percentage", "pct",
// "fixed", "fixedamount" and "amount".
func ParseRuleType(s string) (RuleType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "percent", "percentage", "pct":
		return RulePercent, nil
	case "fixed", "fixedamount", "amount":
		return RuleFixed, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRuleType, s)
	}
}

// Rule is one category of a one-off allocation plan.
type Rule struct {
	Name  string
	Type  string
	Value float64
}

// PlanLine is the rounded amount for one rule.
type PlanLine struct {
	Name   string
	Amount decimal.Decimal
}

// Plan is the result of Allocate.
type Plan struct {
	Lines     []PlanLine
	Paycheck  decimal.Decimal
	Remaining decimal.Decimal
}

// Allocate applies rules to paycheck without touching stored settings.
// Amounts are rounded to cents and Remaining is what the rules leave over,
// which may be negative.
func Allocate(paycheck float64, rules []Rule) (Plan, error) {
	if !finite(paycheck) || paycheck < 0 {
		return Plan{}, fmt.Errorf("%w: paycheck must be a non-negative number", ErrInvalidInput)
	}

	pay := decimal.NewFromFloat(paycheck)
	plan := Plan{Paycheck: pay.Round(2), Lines: make([]PlanLine, 0, len(rules))}
	spent := decimal.Zero

	for _, r := range rules {
		typ, err := ParseRuleType(r.Type)
		if err != nil {
			return Plan{}, fmt.Errorf("category %q: %w", r.Name, err)
		}
		if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
			return Plan{}, fmt.Errorf("%w: invalid value for %q", ErrValidation, r.Name)
		}

		var amount decimal.Decimal
		switch typ {
		case RulePercent:
			amount = Share(pay, r.Value).Round(2)
		case RuleFixed:
			amount = decimal.NewFromFloat(r.Value).Round(2)
		}

		plan.Lines = append(plan.Lines, PlanLine{Name: r.Name, Amount: amount})
		spent = spent.Add(amount)
	}

	plan.Remaining = pay.Sub(spent).Round(2)
	return plan, nil
}
