package budget

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocate(t *testing.T) {
	tests := []struct {
		wantErr       error
		name          string
		wantLines     map[string]string
		wantRemaining string
		rules         []Rule
		paycheck      float64
	}{
		{
			name:     "percent and fixed synonyms",
			paycheck: 2500,
			rules: []Rule{
				{Name: "Rent", Type: "fixed", Value: 1200},
				{Name: "Savings", Type: "Percentage", Value: 10},
				{Name: "Fun", Type: " pct ", Value: 5},
				{Name: "Phone", Type: "amount", Value: 45.499},
			},
			wantLines: map[string]string{
				"Rent":    "1200",
				"Savings": "250",
				"Fun":     "125",
				"Phone":   "45.5",
			},
			wantRemaining: "879.5",
		},
		{
			name:     "rounding to cents",
			paycheck: 1000.10,
			rules: []Rule{
				{Name: "Third", Type: "percent", Value: 33.3333},
			},
			wantLines:     map[string]string{"Third": "333.37"},
			wantRemaining: "666.73",
		},
		{
			name:     "overspent leaves negative remainder",
			paycheck: 100,
			rules: []Rule{
				{Name: "Rent", Type: "fixedamount", Value: 150},
			},
			wantLines:     map[string]string{"Rent": "150"},
			wantRemaining: "-50",
		},
		{
			name:          "zero paycheck without rules",
			paycheck:      0,
			wantLines:     map[string]string{},
			wantRemaining: "0",
		},
		{
			name:     "negative paycheck",
			paycheck: -1,
			wantErr:  ErrInvalidInput,
		},
		{
			name:     "NaN paycheck",
			paycheck: math.NaN(),
			wantErr:  ErrInvalidInput,
		},
		{
			name:     "unknown type",
			paycheck: 100,
			rules:    []Rule{{Name: "Rent", Type: "weekly", Value: 1}},
			wantErr:  ErrUnknownRuleType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := Allocate(tt.paycheck, tt.rules)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			require.Len(t, plan.Lines, len(tt.wantLines))
			for _, line := range plan.Lines {
				want, ok := tt.wantLines[line.Name]
				require.True(t, ok, "unexpected line %s", line.Name)
				assert.Equal(t, want, line.Amount.String(), line.Name)
			}
			assert.Equal(t, tt.wantRemaining, plan.Remaining.String())
		})
	}
}
