package budget

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Veraticus/paysplit/internal/model"
)

// FieldKind classifies a settings form field.
type FieldKind int

const (
	// FieldFlat holds the percentage of a flat category.
	FieldFlat FieldKind = iota
	// FieldLimitPercent holds the percentage of a limited category.
	FieldLimitPercent
	// FieldLimitAmount holds the dollar limit of a limited category.
	FieldLimitAmount
)

func (k FieldKind) String() string {
	switch k {
	case FieldFlat:
		return "flat"
	case FieldLimitPercent:
		return "limit-percent"
	case FieldLimitAmount:
		return "limit-amount"
	default:
		return fmt.Sprintf("FieldKind(%d)", int(k))
	}
}

// Field name suffixes used by the settings form.
const (
	PercentSuffix = model.PercentSuffix
	LimitSuffix   = model.LimitSuffix
)

// FormEntry is a raw name/value pair read back from the settings form.
type FormEntry struct {
	Name  string
	Value string
}

// Field is a classified form entry.
type Field struct {
	Category string
	Value    string
	Kind     FieldKind
}

// ParseField classifies a form entry by its name.
func ParseField(e FormEntry) (Field, error) {
	name := strings.TrimSpace(e.Name)
	f := Field{Category: name, Value: strings.TrimSpace(e.Value), Kind: FieldFlat}

	switch {
	case strings.HasSuffix(name, PercentSuffix):
		f.Kind = FieldLimitPercent
		f.Category = strings.TrimSuffix(name, PercentSuffix)
	case strings.HasSuffix(name, LimitSuffix):
		f.Kind = FieldLimitAmount
		f.Category = strings.TrimSuffix(name, LimitSuffix)
	}

	if f.Category == "" {
		return Field{}, fmt.Errorf("%w: field %q", ErrEmptyName, e.Name)
	}
	return f, nil
}

// Name returns the form field name for f.
func (f Field) Name() string {
	switch f.Kind {
	case FieldLimitPercent:
		return f.Category + PercentSuffix
	case FieldLimitAmount:
		return f.Category + LimitSuffix
	default:
		return f.Category
	}
}

// Fields renders settings as form entries, flat categories first.
func Fields(s model.Settings) []FormEntry {
	out := make([]FormEntry, 0, len(s.Categories)+2*len(s.Limits))
	for _, c := range s.Categories {
		out = append(out, FormEntry{Name: c.Name, Value: formatNumber(c.Percent)})
	}
	for _, c := range s.Limits {
		out = append(out,
			FormEntry{Name: Field{Category: c.Name, Kind: FieldLimitPercent}.Name(), Value: formatNumber(c.Percent)},
			FormEntry{Name: Field{Category: c.Name, Kind: FieldLimitAmount}.Name(), Value: formatNumber(c.Limit)},
		)
	}
	return out
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func parseNumber(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || !finite(v) {
		return 0, false
	}
	return v, true
}
