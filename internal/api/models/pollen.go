package models

// ForecastResponse is the fused pollen forecast for a location.
type ForecastResponse struct {
	Location Point `json:"location"`

	// Days holds one entry per requested forecast day.
	Days []ForecastDay `json:"days"`

	// Source is "authoritative" for provider data or "synthetic" for
	// generated fallback data.
	Source string `json:"source"`

	// Provider identifies where the underlying forecast came from.
	Provider string `json:"provider"`

	// SubmissionsConsidered counts nearby submissions that passed the
	// relevance filters.
	SubmissionsConsidered int `json:"submissionsConsidered"`
}

// ForecastDay is one day of fused forecast.
type ForecastDay struct {
	Date     string          `json:"date"`
	Readings []PollenReading `json:"readings"`

	// HealthNotes carries provider health recommendations, if any.
	HealthNotes []string `json:"healthNotes,omitempty"`

	Estimate FusedEstimate `json:"estimate"`
}

// PollenReading is one category's level for one day.
type PollenReading struct {
	Category       string   `json:"category"`
	Level          int      `json:"level"`
	Class          string   `json:"class"`
	PlantsInSeason []string `json:"plantsInSeason,omitempty"`
}

// FusedEstimate is the blended per-day estimate.
type FusedEstimate struct {
	FusedLevel          int     `json:"fusedLevel"`
	AuthoritativeWeight float64 `json:"authoritativeWeight"`
	CrowdWeight         float64 `json:"crowdWeight"`
	Confidence          float64 `json:"confidence"`
	DataSource          string  `json:"dataSource"`
	SubmissionCount     int     `json:"submissionCount"`
	Note                string  `json:"note,omitempty"`
}
