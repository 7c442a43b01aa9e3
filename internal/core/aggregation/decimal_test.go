package aggregation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestParseDecimal(t *testing.T) {
	d, err := ParseDecimal("")
	require.NoError(t, err)
	require.Nil(t, d)

	d, err = ParseDecimal(" 489.07 ")
	require.NoError(t, err)
	require.NotNil(t, d)
	require.True(t, d.Equal(decimal.RequireFromString("489.07")))

	_, err = ParseDecimal("twelve")
	require.Error(t, err)
}

func TestPercent(t *testing.T) {
	tests := []struct {
		name        string
		part, whole int64
		want        string
	}{
		{name: "conversion 20 of 200", part: 20, whole: 200, want: "10"},
		{name: "abandonment 20 of 50", part: 20, whole: 50, want: "40"},
		{name: "rounds to two places", part: 1, whole: 3, want: "33.33"},
		{name: "rounds half up", part: 2, whole: 3, want: "66.67"},
		{name: "zero denominator", part: 5, whole: 0, want: "0"},
		{name: "full conversion", part: 7, whole: 7, want: "100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percent(tt.part, tt.whole)
			require.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s, want %s", got, tt.want)
		})
	}
}

func TestPercent_StaysWithinBounds(t *testing.T) {
	for views := int64(1); views <= 50; views++ {
		for purchases := int64(0); purchases <= views; purchases++ {
			got := Percent(purchases, views)
			require.False(t, got.IsNegative())
			require.True(t, got.LessThanOrEqual(decimal.NewFromInt(100)))
		}
	}
}

func TestMean_IndependentOfBatching(t *testing.T) {
	prices := []string{"10.10", "20.20", "30.33", "0.01", "99.99"}

	var whole Mean
	for _, p := range prices {
		whole.Add(decimal.RequireFromString(p))
	}

	var first, second Mean
	for _, p := range prices[:2] {
		first.Add(decimal.RequireFromString(p))
	}
	for _, p := range prices[2:] {
		second.Add(decimal.RequireFromString(p))
	}
	first.Merge(second)

	wantValue, ok := whole.Value()
	require.True(t, ok)
	gotValue, ok := first.Value()
	require.True(t, ok)
	require.True(t, wantValue.Equal(gotValue))
	require.Equal(t, int64(5), first.Count())
	require.True(t, wantValue.Equal(decimal.RequireFromString("32.13")))
}

func TestMean_Empty(t *testing.T) {
	var m Mean
	_, ok := m.Value()
	require.False(t, ok)
}
