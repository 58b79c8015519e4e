package model

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Common validation errors for budget settings.
var (
	ErrEmptyCategoryName = errors.New("category name cannot be empty")
	ErrDuplicateCategory = errors.New("category name used more than once")
	ErrPercentOutOfRange = errors.New("percentage must be between 0 and 100")
	ErrInvalidNumber     = errors.New("value must be a finite number")
	ErrReservedName      = errors.New("category name ends in a reserved suffix")
)

// Suffixes the settings form appends to the fields of a limited category.
// Category names may not end in either of them.
const (
	PercentSuffix = "-percent"
	LimitSuffix   = "-limit"
)

// IsReservedName reports whether name ends in a settings form suffix.
func IsReservedName(name string) bool {
	return strings.HasSuffix(name, PercentSuffix) || strings.HasSuffix(name, LimitSuffix)
}

// FlatCategory receives a fixed share of every paycheck.
type FlatCategory struct {
	Name    string
	Percent float64
}

// LimitEntry is the allocation of a limited category. Limit is a depleting
// dollar balance.
type LimitEntry struct {
	Percent float64 `json:"percent"`
	Limit   float64 `json:"limit"`
}

// LimitedCategory receives a share of every paycheck until its limit is used up.
type LimitedCategory struct {
	Name string
	LimitEntry
}

// Settings is the budget configuration: flat categories and limited
// categories, each kept in insertion order. Version increases on every save.
type Settings struct {
	Categories []FlatCategory
	Limits     []LimitedCategory
	Version    int64
}

// DefaultSettings returns the configuration used when nothing has been stored yet.
func DefaultSettings() Settings {
	return Settings{
		Categories: []FlatCategory{
			{Name: "Rent", Percent: 50},
			{Name: "Savings", Percent: 30},
			{Name: "Investment", Percent: 20},
		},
	}
}

// IsEmpty reports whether the settings hold no categories at all.
func (s *Settings) IsEmpty() bool {
	return len(s.Categories) == 0 && len(s.Limits) == 0
}

// Has reports whether name is used by either collection.
func (s *Settings) Has(name string) bool {
	_, flat := s.Flat(name)
	_, limited := s.Limit(name)
	return flat || limited
}

// Flat looks up a flat category by name.
func (s *Settings) Flat(name string) (FlatCategory, bool) {
	for _, c := range s.Categories {
		if c.Name == name {
			return c, true
		}
	}
	return FlatCategory{}, false
}

// Limit looks up a limited category by name.
func (s *Settings) Limit(name string) (LimitedCategory, bool) {
	for _, c := range s.Limits {
		if c.Name == name {
			return c, true
		}
	}
	return LimitedCategory{}, false
}

// SetFlat updates a flat category in place or appends it.
func (s *Settings) SetFlat(name string, percent float64) {
	for i := range s.Categories {
		if s.Categories[i].Name == name {
			s.Categories[i].Percent = percent
			return
		}
	}
	s.Categories = append(s.Categories, FlatCategory{Name: name, Percent: percent})
}

// SetLimit updates a limited category in place or appends it.
func (s *Settings) SetLimit(name string, entry LimitEntry) {
	for i := range s.Limits {
		if s.Limits[i].Name == name {
			s.Limits[i].LimitEntry = entry
			return
		}
	}
	s.Limits = append(s.Limits, LimitedCategory{Name: name, LimitEntry: entry})
}

// RemoveLimit deletes a limited category, keeping the order of the rest.
func (s *Settings) RemoveLimit(name string) bool {
	for i := range s.Limits {
		if s.Limits[i].Name == name {
			s.Limits = append(s.Limits[:i], s.Limits[i+1:]...)
			if len(s.Limits) == 0 {
				s.Limits = nil
			}
			return true
		}
	}
	return false
}

// TotalDecimal sums every flat percentage and every limited percentage exactly.
func (s *Settings) TotalDecimal() decimal.Decimal {
	total := decimal.Zero
	for _, c := range s.Categories {
		total = total.Add(decimal.NewFromFloat(c.Percent))
	}
	for _, c := range s.Limits {
		total = total.Add(decimal.NewFromFloat(c.Percent))
	}
	return total
}

// TotalPercentage is TotalDecimal as a float.
func (s *Settings) TotalPercentage() float64 {
	return s.TotalDecimal().InexactFloat64()
}

// Clone returns a deep copy.
func (s *Settings) Clone() Settings {
	out := Settings{Version: s.Version}
	if len(s.Categories) > 0 {
		out.Categories = append([]FlatCategory(nil), s.Categories...)
	}
	if len(s.Limits) > 0 {
		out.Limits = append([]LimitedCategory(nil), s.Limits...)
	}
	return out
}

// Validate checks structural invariants. It does not require the
// percentages to add up to 100.
func (s *Settings) Validate() error {
	seen := make(map[string]struct{}, len(s.Categories)+len(s.Limits))
	check := func(name string, percent float64) error {
		if name == "" {
			return ErrEmptyCategoryName
		}
		if IsReservedName(name) {
			return fmt.Errorf("%w: %s", ErrReservedName, name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateCategory, name)
		}
		seen[name] = struct{}{}
		if !finite(percent) {
			return fmt.Errorf("%w: %s percent", ErrInvalidNumber, name)
		}
		if percent < 0 || percent > 100 {
			return fmt.Errorf("%w: %s is %v", ErrPercentOutOfRange, name, percent)
		}
		return nil
	}

	for _, c := range s.Categories {
		if err := check(c.Name, c.Percent); err != nil {
			return err
		}
	}
	for _, c := range s.Limits {
		if err := check(c.Name, c.Percent); err != nil {
			return err
		}
		if !finite(c.Limit) {
			return fmt.Errorf("%w: %s limit", ErrInvalidNumber, c.Name)
		}
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
