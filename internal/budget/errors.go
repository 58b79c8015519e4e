// Package budget implements the paycheck split and the category editor.
package budget

import (
	"errors"

	"github.com/Veraticus/paysplit/internal/model"
)

// Errors returned by the split calculator and the category editor.
var (
	ErrInvalidInput   = errors.New("invalid paycheck amount")
	ErrValidation     = errors.New("invalid category value")
	ErrPercentageSum  = errors.New("percentages must add up to 100")
	ErrDuplicateName  = errors.New("category name already exists")
	ErrOverflow       = errors.New("category would push the total above 100%")
	ErrMissingLimit   = errors.New("limited category needs a positive dollar limit")
	ErrEmptyName      = errors.New("category name is required")
	ErrInvalidPercent = errors.New("percentage must be positive")
)

var userMessages = []struct {
	err error
	msg string
}{
	{model.ErrReservedName, "Category names cannot end in -percent or -limit."},
	{ErrInvalidInput, "Please enter a valid paycheck amount."},
	{ErrValidation, "Please enter valid values between 0 and 100."},
	{ErrPercentageSum, "Percentages must add up to 100%."},
	{ErrDuplicateName, "Category name already exists."},
	{ErrOverflow, "Adding this category would exceed 100%."},
	{ErrMissingLimit, "Please enter a valid positive dollar limit."},
	{ErrEmptyName, "Please enter a category name."},
	{ErrInvalidPercent, "Please enter a valid positive percentage."},
}

// UserMessage returns the inline message shown for a budget error, or
// the empty string for errors this package does not produce.
func UserMessage(err error) string {
	for _, m := range userMessages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return ""
}
