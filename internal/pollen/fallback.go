package pollen

import (
	"fmt"
	"math/rand"
	"time"
)

// FallbackProviderName tags synthetic forecasts in logs and metadata.
const FallbackProviderName = "seasonal-fallback"

// levelRange bounds the random level for one category in one season.
type levelRange struct {
	min, max int
}

func (r levelRange) pick(rng *rand.Rand) int {
	if r.max <= r.min {
		return r.min
	}
	return r.min + rng.Intn(r.max-r.min+1)
}

// season is a meteorological season.
type season int

const (
	seasonWinter season = iota
	seasonSpring
	seasonSummer
	seasonFall
)

// seasonProfiles maps each season to per-category level ranges. Tree
// pollen dominates spring, grass summer, weed fall; winter is low across
// the board.
var seasonProfiles = map[season]map[Category]levelRange{
	seasonSpring: {
		CategoryTree:  {3, 5},
		CategoryGrass: {1, 3},
		CategoryWeed:  {0, 2},
	},
	seasonSummer: {
		CategoryTree:  {1, 2},
		CategoryGrass: {3, 5},
		CategoryWeed:  {1, 3},
	},
	seasonFall: {
		CategoryTree:  {0, 1},
		CategoryGrass: {1, 2},
		CategoryWeed:  {3, 5},
	},
	seasonWinter: {
		CategoryTree:  {0, 1},
		CategoryGrass: {0, 1},
		CategoryWeed:  {0, 1},
	},
}

// seasonFor determines the season for a date at a latitude. Southern
// hemisphere seasons are shifted by six months.
func seasonFor(date time.Time, lat float64) season {
	month := int(date.Month())
	if lat < 0 {
		month = (month+5)%12 + 1
	}
	switch {
	case month >= 3 && month <= 5:
		return seasonSpring
	case month >= 6 && month <= 8:
		return seasonSummer
	case month >= 9 && month <= 11:
		return seasonFall
	default:
		return seasonWinter
	}
}

// synthesizeForecast generates a structurally valid fallback forecast for
// when the provider is unreachable or unconfigured. Dominant categories
// are deterministic per season; levels are randomized within the season's
// ranges. The result is explicitly tagged SourceSynthetic so callers can
// distinguish it from genuine data.
func synthesizeForecast(lat float64, days int, now time.Time, rng *rand.Rand) *Forecast {
	start := now.UTC().Truncate(24 * time.Hour)

	forecast := &Forecast{
		Days:      make([]DailyForecast, 0, days),
		Source:    SourceSynthetic,
		Provider:  FallbackProviderName,
		FetchedAt: now,
	}

	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i)
		profile := seasonProfiles[seasonFor(date, lat)]

		readings := make(map[Category]Reading, len(profile))
		for _, cat := range AllCategories() {
			level := profile[cat].pick(rng)
			readings[cat] = Reading{
				Category: cat,
				Level:    level,
				Class:    ClassFromIndex(level),
			}
		}

		day := DailyForecast{
			Date:        date,
			Readings:    readings,
			HealthNotes: fallbackHealthNotes(readings),
		}
		forecast.Days = append(forecast.Days, day)
	}

	return forecast
}

// fallbackHealthNotes produces generic guidance matching the synthetic
// levels, so downstream consumers see the same shape as provider data.
func fallbackHealthNotes(readings map[Category]Reading) []string {
	maxLevel := 0
	worst := CategoryTree
	for _, cat := range AllCategories() {
		if r := readings[cat]; r.Level > maxLevel {
			maxLevel = r.Level
			worst = cat
		}
	}

	switch {
	case maxLevel >= 4:
		return []string{
			fmt.Sprintf("%s pollen is very high; sensitive groups should stay indoors where possible.", worst),
			"Keep windows closed and consider an air purifier.",
		}
	case maxLevel >= 2:
		return []string{
			fmt.Sprintf("%s pollen is elevated; sensitive groups may experience symptoms outdoors.", worst),
		}
	default:
		return []string{"Pollen levels are low; conditions are good for outdoor activity."}
	}
}
