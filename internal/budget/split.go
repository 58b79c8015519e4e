package budget

import (
	"fmt"
	"math"

	"github.com/Veraticus/paysplit/internal/model"
	"github.com/shopspring/decimal"
)

// Allocation is one line of a paycheck split.
type Allocation struct {
	Amount         decimal.Decimal
	RemainingLimit decimal.Decimal
	Category       string
	Percent        float64
	Limited        bool
	// Exhausted marks a limited category whose balance reached zero or below
	// during this split. It has already been removed from the settings.
	Exhausted bool
}

// ComputeSplit divides paycheck across the categories of s, flat categories
// first and then limited categories, each in insertion order.
//
// Limited categories are charged in place: the amount is subtracted from
// their limit, the new balance is recorded on the allocation, and only then
// are categories at or below zero removed from s. On error s is untouched.
func ComputeSplit(paycheck float64, s *model.Settings) ([]Allocation, error) {
	if math.IsNaN(paycheck) || math.IsInf(paycheck, 0) || paycheck <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, paycheck)
	}
	if s == nil {
		return nil, nil
	}

	pay := decimal.NewFromFloat(paycheck)
	out := make([]Allocation, 0, len(s.Categories)+len(s.Limits))

	for _, c := range s.Categories {
		out = append(out, Allocation{
			Category: c.Name,
			Percent:  c.Percent,
			Amount:   Share(pay, c.Percent),
		})
	}

	var exhausted []string
	for i := range s.Limits {
		c := &s.Limits[i]
		amount := Share(pay, c.Percent)
		remaining := decimal.NewFromFloat(c.Limit).Sub(amount)
		c.Limit = remaining.InexactFloat64()

		a := Allocation{
			Category:       c.Name,
			Percent:        c.Percent,
			Amount:         amount,
			Limited:        true,
			RemainingLimit: remaining,
		}
		if !remaining.IsPositive() {
			a.Exhausted = true
			exhausted = append(exhausted, c.Name)
		}
		out = append(out, a)
	}

	for _, name := range exhausted {
		s.RemoveLimit(name)
	}

	return out, nil
}

// Share returns percent of amount.
func Share(amount decimal.Decimal, percent float64) decimal.Decimal {
	return decimal.NewFromFloat(percent).Mul(amount).Shift(-2)
}

// Total sums the amounts of a split.
func Total(allocations []Allocation) decimal.Decimal {
	total := decimal.Zero
	for _, a := range allocations {
		total = total.Add(a.Amount)
	}
	return total
}
