package budget

import (
	"fmt"
	"math"
	"strings"

	"github.com/Veraticus/paysplit/internal/model"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Kind is the type of category created by AddCategory.
type Kind string

// Category kinds.
const (
	KindPercent Kind = "percent"
	KindLimit   Kind = "limit"
)

// ParseKind accepts "percent" or "limit", case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindPercent, "":
		return KindPercent, nil
	case KindLimit:
		return KindLimit, nil
	default:
		return "", fmt.Errorf("%w: unknown category type %q", ErrValidation, s)
	}
}

// NewCategory is a request to add one category.
type NewCategory struct {
	Name    string
	Kind    Kind
	Percent float64
	Limit   float64
}

// Describe renders the request the way the confirmation message shows it.
func (c NewCategory) Describe() string {
	if c.Kind == KindLimit {
		return fmt.Sprintf("%s%% until $%s", formatNumber(c.Percent), formatNumber(c.Limit))
	}
	return formatNumber(c.Percent) + "%"
}

// ReplaceAll builds a complete configuration from settings form entries.
// Every percentage must be a number in [0, 100] and the total must be exactly
// 100. Dollar limits that do not parse are taken as 0. The result is a fresh
// configuration; nothing is modified when an error is returned.
func ReplaceAll(entries []FormEntry) (model.Settings, error) {
	var staged model.Settings
	var invalid []string

	for _, e := range entries {
		f, err := ParseField(e)
		if err != nil {
			invalid = append(invalid, fmt.Sprintf("%q", e.Name))
			continue
		}
		if model.IsReservedName(f.Category) {
			invalid = append(invalid, f.Name())
			continue
		}

		switch f.Kind {
		case FieldFlat:
			p, ok := parsePercent(f.Value)
			if !ok {
				invalid = append(invalid, f.Name())
				continue
			}
			staged.SetFlat(f.Category, p)

		case FieldLimitPercent:
			entry := limitEntry(&staged, f.Category)
			p, ok := parsePercent(f.Value)
			if !ok {
				invalid = append(invalid, f.Name())
				continue
			}
			entry.Percent = p
			staged.SetLimit(f.Category, entry)

		case FieldLimitAmount:
			entry := limitEntry(&staged, f.Category)
			amount, ok := parseNumber(f.Value)
			if !ok {
				amount = 0
			}
			if amount < 0 {
				invalid = append(invalid, f.Name())
				continue
			}
			entry.Limit = amount
			staged.SetLimit(f.Category, entry)
		}
	}

	if len(invalid) > 0 {
		return model.Settings{}, fmt.Errorf("%w: %s", ErrValidation, strings.Join(invalid, ", "))
	}

	for _, c := range staged.Categories {
		if _, ok := staged.Limit(c.Name); ok {
			return model.Settings{}, fmt.Errorf("%w: %s is both flat and limited", ErrDuplicateName, c.Name)
		}
	}

	if total := staged.TotalDecimal(); !total.Equal(hundred) {
		return model.Settings{}, fmt.Errorf("%w: total is %s%%", ErrPercentageSum, total.String())
	}

	return staged, nil
}

// AddCategory inserts one category into s. The total may stay below 100 but
// may not exceed it. Names ending in a form field suffix are rejected. s is unchanged when an error is returned.
func AddCategory(s *model.Settings, req NewCategory) error {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return ErrEmptyName
	}
	if model.IsReservedName(name) {
		return fmt.Errorf("%w: %w: %s", ErrValidation, model.ErrReservedName, name)
	}
	if !finite(req.Percent) || req.Percent <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidPercent, req.Percent)
	}

	switch req.Kind {
	case KindPercent:
	case KindLimit:
		if !finite(req.Limit) || req.Limit <= 0 {
			return fmt.Errorf("%w: %v", ErrMissingLimit, req.Limit)
		}
	default:
		return fmt.Errorf("%w: unknown category type %q", ErrValidation, req.Kind)
	}

	if s.Has(name) {
		return fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}

	total := s.TotalDecimal()
	if total.Add(decimal.NewFromFloat(req.Percent)).GreaterThan(hundred) {
		return fmt.Errorf("%w: %s%% already allocated", ErrOverflow, total.String())
	}

	if req.Kind == KindLimit {
		s.SetLimit(name, model.LimitEntry{Percent: req.Percent, Limit: req.Limit})
	} else {
		s.SetFlat(name, req.Percent)
	}
	return nil
}

// limitEntry returns the staged entry for name, zero valued when new.
func limitEntry(s *model.Settings, name string) model.LimitEntry {
	if c, ok := s.Limit(name); ok {
		return c.LimitEntry
	}
	s.SetLimit(name, model.LimitEntry{})
	return model.LimitEntry{}
}

func parsePercent(raw string) (float64, bool) {
	v, ok := parseNumber(raw)
	if !ok || v < 0 || v > 100 {
		return 0, false
	}
	return v, true
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
