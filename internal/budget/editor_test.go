package budget

import (
	"testing"

	"github.com/Veraticus/paysplit/internal/model"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaceAll(t *testing.T) {
	tests := []struct {
		wantErr  error
		validate func(t *testing.T, s model.Settings)
		name     string
		errMsg   string
		entries  []FormEntry
	}{
		{
			name: "flat and limited fields",
			entries: []FormEntry{
				{Name: "Rent", Value: "50"},
				{Name: "Car-percent", Value: "20"},
				{Name: "Savings", Value: "30"},
				{Name: "Car-limit", Value: "4000"},
			},
			validate: func(t *testing.T, s model.Settings) {
				t.Helper()
				assert.Equal(t, []model.FlatCategory{{Name: "Rent", Percent: 50}, {Name: "Savings", Percent: 30}}, s.Categories)
				assert.Equal(t, []model.LimitedCategory{{Name: "Car", LimitEntry: model.LimitEntry{Percent: 20, Limit: 4000}}}, s.Limits)
			},
		},
		{
			name: "limit before percent",
			entries: []FormEntry{
				{Name: "Trip-limit", Value: "750"},
				{Name: "Trip-percent", Value: "100"},
			},
			validate: func(t *testing.T, s model.Settings) {
				t.Helper()
				assert.Equal(t, []model.LimitedCategory{{Name: "Trip", LimitEntry: model.LimitEntry{Percent: 100, Limit: 750}}}, s.Limits)
			},
		},
		{
			name: "unparsable limit becomes zero",
			entries: []FormEntry{
				{Name: "Rent", Value: "90"},
				{Name: "Car-percent", Value: "10"},
				{Name: "Car-limit", Value: ""},
			},
			validate: func(t *testing.T, s model.Settings) {
				t.Helper()
				c, ok := s.Limit("Car")
				require.True(t, ok)
				assert.Equal(t, 0.0, c.Limit)
			},
		},
		{
			name: "fractional percentages adding to 100",
			entries: []FormEntry{
				{Name: "A", Value: "33.3"},
				{Name: "B", Value: "33.3"},
				{Name: "C", Value: " 33.4 "},
			},
			validate: func(t *testing.T, s model.Settings) {
				t.Helper()
				assert.Len(t, s.Categories, 3)
			},
		},
		{
			name: "sum of 99",
			entries: []FormEntry{
				{Name: "Rent", Value: "50"},
				{Name: "Savings", Value: "30"},
				{Name: "Investment", Value: "19"},
			},
			wantErr: ErrPercentageSum,
			errMsg:  "total is 99%",
		},
		{
			name: "percent above 100",
			entries: []FormEntry{
				{Name: "Rent", Value: "101"},
			},
			wantErr: ErrValidation,
			errMsg:  "Rent",
		},
		{
			name: "every bad field reported",
			entries: []FormEntry{
				{Name: "Rent", Value: "abc"},
				{Name: "Car-percent", Value: "-1"},
				{Name: "Savings", Value: "100"},
			},
			wantErr: ErrValidation,
			errMsg:  "Rent, Car-percent",
		},
		{
			name: "negative limit",
			entries: []FormEntry{
				{Name: "Car-percent", Value: "100"},
				{Name: "Car-limit", Value: "-20"},
			},
			wantErr: ErrValidation,
		},
		{
			name: "field without category name",
			entries: []FormEntry{
				{Name: "-percent", Value: "100"},
			},
			wantErr: ErrValidation,
		},
		{
			name: "category name ending in a field suffix",
			entries: []FormEntry{
				{Name: "Car-limit-percent", Value: "100"},
				{Name: "Car-limit-limit", Value: "400"},
			},
			wantErr: ErrValidation,
			errMsg:  "Car-limit-percent",
		},
		{
			name: "name both flat and limited",
			entries: []FormEntry{
				{Name: "Car", Value: "50"},
				{Name: "Car-percent", Value: "50"},
				{Name: "Car-limit", Value: "10"},
			},
			wantErr: ErrDuplicateName,
		},
		{
			name:    "empty form",
			wantErr: ErrPercentageSum,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReplaceAll(tt.entries)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
				assert.True(t, got.IsEmpty())
				return
			}
			require.NoError(t, err)
			tt.validate(t, got)
		})
	}
}

func TestReplaceAll_RoundTripsFields(t *testing.T) {
	s := model.DefaultSettings()
	s.Categories[0].Percent = 40
	s.SetLimit("Car", model.LimitEntry{Percent: 10, Limit: 1234.5})

	got, err := ReplaceAll(Fields(s))
	require.NoError(t, err)
	assert.Equal(t, s.Categories, got.Categories)
	assert.Equal(t, s.Limits, got.Limits)
}

func TestAddCategory(t *testing.T) {
	base := func() model.Settings {
		return model.Settings{
			Categories: []model.FlatCategory{{Name: "Rent", Percent: 50}, {Name: "Savings", Percent: 30}},
		}
	}

	tests := []struct {
		wantErr  error
		validate func(t *testing.T, s model.Settings)
		name     string
		req      NewCategory
	}{
		{
			name: "percent category",
			req:  NewCategory{Name: "Food", Kind: KindPercent, Percent: 15},
			validate: func(t *testing.T, s model.Settings) {
				t.Helper()
				c, ok := s.Flat("Food")
				require.True(t, ok)
				assert.Equal(t, 15.0, c.Percent)
				assert.Equal(t, "Food", s.Categories[2].Name)
			},
		},
		{
			name: "limit category brings total to exactly 100",
			req:  NewCategory{Name: "  Car ", Kind: KindLimit, Percent: 20, Limit: 4000},
			validate: func(t *testing.T, s model.Settings) {
				t.Helper()
				c, ok := s.Limit("Car")
				require.True(t, ok)
				assert.Equal(t, model.LimitEntry{Percent: 20, Limit: 4000}, c.LimitEntry)
				assert.Equal(t, 100.0, s.TotalPercentage())
			},
		},
		{
			name:    "exceeds 100 by a fraction",
			req:     NewCategory{Name: "Food", Kind: KindPercent, Percent: 20.01},
			wantErr: ErrOverflow,
		},
		{
			name:    "duplicate name",
			req:     NewCategory{Name: "Rent", Kind: KindPercent, Percent: 10},
			wantErr: ErrDuplicateName,
		},
		{
			name:    "duplicate checked before overflow",
			req:     NewCategory{Name: "Rent", Kind: KindPercent, Percent: 90},
			wantErr: ErrDuplicateName,
		},
		{
			name:    "empty name",
			req:     NewCategory{Name: "   ", Kind: KindPercent, Percent: 10},
			wantErr: ErrEmptyName,
		},
		{
			name:    "zero percent",
			req:     NewCategory{Name: "Food", Kind: KindPercent, Percent: 0},
			wantErr: ErrInvalidPercent,
		},
		{
			name:    "limit kind without limit",
			req:     NewCategory{Name: "Car", Kind: KindLimit, Percent: 10},
			wantErr: ErrMissingLimit,
		},
		{
			name:    "unknown kind",
			req:     NewCategory{Name: "Car", Kind: "weekly", Percent: 10},
			wantErr: ErrValidation,
		},
		{
			name:    "flat name ending in limit suffix",
			req:     NewCategory{Name: "Emergency-limit", Kind: KindPercent, Percent: 10},
			wantErr: ErrValidation,
		},
		{
			name:    "limited name ending in percent suffix",
			req:     NewCategory{Name: "Car-percent ", Kind: KindLimit, Percent: 10, Limit: 400},
			wantErr: ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base()
			err := AddCategory(&s, tt.req)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, base(), s)
				return
			}
			require.NoError(t, err)
			tt.validate(t, s)
		})
	}
}

func TestAddCategory_BoundaryAtHundred(t *testing.T) {
	s := model.Settings{Categories: []model.FlatCategory{{Name: "A", Percent: 33.3}, {Name: "B", Percent: 33.3}}}

	require.ErrorIs(t, AddCategory(&s, NewCategory{Name: "C", Kind: KindPercent, Percent: 33.5}), ErrOverflow)
	require.NoError(t, AddCategory(&s, NewCategory{Name: "C", Kind: KindPercent, Percent: 33.4}))
	require.ErrorIs(t, AddCategory(&s, NewCategory{Name: "D", Kind: KindPercent, Percent: 0.001}), ErrOverflow)
}

func TestAddCategory_FieldsRoundTrip(t *testing.T) {
	suffixes := []string{"", "", PercentSuffix, LimitSuffix}

	for i := 0; i < 200; i++ {
		s := model.Settings{Categories: []model.FlatCategory{{Name: "Rent", Percent: 90}}}
		if gofakeit.Bool() {
			s = model.Settings{Limits: []model.LimitedCategory{{Name: "Rent", LimitEntry: model.LimitEntry{Percent: 90, Limit: 1000}}}}
		}

		req := NewCategory{
			Name:    gofakeit.Word() + gofakeit.RandomString(suffixes),
			Kind:    KindPercent,
			Percent: 10,
		}
		if gofakeit.Bool() {
			req.Kind = KindLimit
			req.Limit = float64(gofakeit.IntRange(1, 5000))
		}

		if err := AddCategory(&s, req); err != nil {
			if model.IsReservedName(req.Name) {
				require.ErrorIs(t, err, ErrValidation)
				continue
			}
			require.ErrorIs(t, err, ErrDuplicateName, "adding %q", req.Name)
			continue
		}
		require.NoError(t, s.Validate())

		got, err := ReplaceAll(Fields(s))
		require.NoError(t, err, "adding %q", req.Name)
		assert.Equal(t, s, got)
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("LIMIT")
	require.NoError(t, err)
	assert.Equal(t, KindLimit, k)

	k, err = ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, KindPercent, k)

	_, err = ParseKind("monthly")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestNewCategory_Describe(t *testing.T) {
	assert.Equal(t, "15%", NewCategory{Kind: KindPercent, Percent: 15}.Describe())
	assert.Equal(t, "10% until $400.5", NewCategory{Kind: KindLimit, Percent: 10, Limit: 400.5}.Describe())
}

func TestUserMessage(t *testing.T) {
	_, err := ReplaceAll([]FormEntry{{Name: "Rent", Value: "99"}})
	assert.Equal(t, "Percentages must add up to 100%.", UserMessage(err))
	assert.Equal(t, "", UserMessage(assert.AnError))

	s := model.DefaultSettings()
	err = AddCategory(&s, NewCategory{Name: "Emergency-limit", Kind: KindPercent, Percent: 1})
	assert.Equal(t, "Category names cannot end in -percent or -limit.", UserMessage(err))
}
