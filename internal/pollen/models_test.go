package pollen_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/crowdpollen/crowdpollen/internal/pollen"
)

func TestClassFromIndex(t *testing.T) {
	tests := []struct {
		index    int
		expected pollen.Class
	}{
		{0, pollen.ClassUnspecified},
		{1, pollen.ClassVeryLow},
		{2, pollen.ClassLow},
		{3, pollen.ClassModerate},
		{4, pollen.ClassHigh},
		{5, pollen.ClassVeryHigh},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, pollen.ClassFromIndex(tt.index), "index %d", tt.index)
	}
}

func TestDailyForecast_MaxLevel(t *testing.T) {
	day := pollen.DailyForecast{
		Date: time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC),
		Readings: map[pollen.Category]pollen.Reading{
			pollen.CategoryTree:  {Category: pollen.CategoryTree, Level: 4, Class: pollen.ClassHigh},
			pollen.CategoryGrass: {Category: pollen.CategoryGrass, Level: 2, Class: pollen.ClassLow},
			pollen.CategoryWeed:  {Category: pollen.CategoryWeed, Level: 1, Class: pollen.ClassVeryLow},
		},
	}

	// The single worst category drives the summary level.
	assert.Equal(t, 4, day.MaxLevel())
}

func TestDailyForecast_MaxLevel_Empty(t *testing.T) {
	day := pollen.DailyForecast{}
	assert.Equal(t, 0, day.MaxLevel())
}

func TestDailyForecast_Reading_Missing(t *testing.T) {
	day := pollen.DailyForecast{}
	r := day.Reading(pollen.CategoryWeed)
	assert.Equal(t, pollen.CategoryWeed, r.Category)
	assert.Equal(t, 0, r.Level)
	assert.Equal(t, pollen.ClassUnspecified, r.Class)
}

func TestForecast_Synthetic(t *testing.T) {
	f := pollen.Forecast{Source: pollen.SourceSynthetic}
	assert.True(t, f.Synthetic())

	f.Source = pollen.SourceAuthoritative
	assert.False(t, f.Synthetic())
}
