// Package googlepollen implements the authoritative pollen forecast
// provider on top of the Google Pollen API.
package googlepollen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/crowdpollen/crowdpollen/internal/pollen"
	"github.com/crowdpollen/crowdpollen/internal/provider/resilience"
)

const (
	// ProviderName identifies this forecast provider.
	ProviderName = "google-pollen"

	// DefaultBaseURL is the Google Pollen API base URL.
	DefaultBaseURL = "https://pollen.googleapis.com"

	// DefaultLanguage is the language code for health recommendations.
	DefaultLanguage = "en"
)

// ClientConfig holds configuration for the Google Pollen client.
type ClientConfig struct {
	// APIKey is the API key. An empty key marks the client unconfigured;
	// the forecast service then skips it in favor of fallback data.
	APIKey string

	// BaseURL is the API base URL (optional, defaults to the public API).
	BaseURL string

	// Language is the language code for health recommendations
	// (optional, defaults to "en").
	Language string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a Google Pollen API client.
type Client struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new Google Pollen client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	language := cfg.Language
	if language == "" {
		language = DefaultLanguage
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		language:   language,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// CircuitState returns the transport circuit breaker state for status
// reporting.
func (c *Client) CircuitState() string {
	return c.httpClient.CircuitBreakerState().String()
}

// GetForecast fetches a multi-day pollen forecast for a location.
func (c *Client) GetForecast(ctx context.Context, lat, lon float64, days int) (*pollen.Forecast, error) {
	url := fmt.Sprintf("%s/v1/forecast:lookup?key=%s&location.latitude=%.6f&location.longitude=%.6f&days=%d&languageCode=%s",
		c.baseURL, c.apiKey, lat, lon, days, c.language)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, mapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, pollen.ErrNoDataForRegion
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status code %d", pollen.ErrProviderUnavailable, resp.StatusCode)
	}

	var payload forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if len(payload.DailyInfo) == 0 {
		return nil, pollen.ErrNoDataForRegion
	}

	return c.toForecast(&payload), nil
}

// HeatmapTileURL builds the pass-through URL for a heatmap tile. No
// caching or retry applies; callers fetch tiles directly.
func (c *Client) HeatmapTileURL(mapType string, zoom, x, y int) string {
	return fmt.Sprintf("%s/v1/mapTypes/%s/heatmapTiles/%d/%d/%d?key=%s",
		c.baseURL, mapType, zoom, x, y, c.apiKey)
}

// mapTransportError converts resilience-layer failures into the domain
// error taxonomy.
func mapTransportError(err error) error {
	var permErr *resilience.PermissionError
	if errors.As(err, &permErr) {
		return fmt.Errorf("%w: %w", pollen.ErrPermissionDenied, err)
	}

	var rateErr *resilience.RateLimitError
	if errors.As(err, &rateErr) {
		return fmt.Errorf("%w: %w", pollen.ErrRateLimited, err)
	}

	return fmt.Errorf("%w: %w", pollen.ErrProviderUnavailable, err)
}

// toForecast converts the API payload into the domain model.
func (c *Client) toForecast(payload *forecastResponse) *pollen.Forecast {
	forecast := &pollen.Forecast{
		Days:      make([]pollen.DailyForecast, 0, len(payload.DailyInfo)),
		Source:    pollen.SourceAuthoritative,
		Provider:  ProviderName,
		FetchedAt: time.Now(),
	}

	for i := range payload.DailyInfo {
		day := &payload.DailyInfo[i]

		readings := make(map[pollen.Category]pollen.Reading, 3)
		var notes []string
		inSeasonPlants := day.inSeasonPlantNames()

		for j := range day.PollenTypeInfo {
			info := &day.PollenTypeInfo[j]
			category, ok := mapCategory(info.Code)
			if !ok {
				continue
			}

			level := info.IndexInfo.Value
			class := mapClass(info.IndexInfo.Category)
			// Known provider data-quality gap: UNSPECIFIED alongside a
			// nonzero index. Infer the class from the index instead.
			if class == pollen.ClassUnspecified && level > 0 {
				class = pollen.ClassFromIndex(level)
			}

			var plants []string
			if info.InSeason {
				plants = inSeasonPlants
			}
			readings[category] = pollen.Reading{
				Category:       category,
				Level:          level,
				Class:          class,
				PlantsInSeason: plants,
			}

			notes = append(notes, info.HealthRecommendations...)
		}

		// Every day carries exactly one reading per category; fill zero
		// readings for categories the provider omitted.
		for _, cat := range pollen.AllCategories() {
			if _, ok := readings[cat]; !ok {
				readings[cat] = pollen.Reading{Category: cat, Class: pollen.ClassUnspecified}
			}
		}

		forecast.Days = append(forecast.Days, pollen.DailyForecast{
			Date:        day.Date.Time(),
			Readings:    readings,
			HealthNotes: notes,
		})
	}

	return forecast
}

// mapCategory maps an API pollen type code to a domain category.
func mapCategory(code string) (pollen.Category, bool) {
	switch code {
	case "TREE":
		return pollen.CategoryTree, true
	case "GRASS":
		return pollen.CategoryGrass, true
	case "WEED":
		return pollen.CategoryWeed, true
	default:
		return "", false
	}
}

// mapClass maps an API index category string to a domain class.
func mapClass(category string) pollen.Class {
	switch category {
	case "Very Low":
		return pollen.ClassVeryLow
	case "Low":
		return pollen.ClassLow
	case "Moderate":
		return pollen.ClassModerate
	case "High":
		return pollen.ClassHigh
	case "Very High":
		return pollen.ClassVeryHigh
	default:
		return pollen.ClassUnspecified
	}
}

// Google Pollen API response structures.

type forecastResponse struct {
	RegionCode string      `json:"regionCode"`
	DailyInfo  []dailyInfo `json:"dailyInfo"`
}

type dailyInfo struct {
	Date           apiDate          `json:"date"`
	PollenTypeInfo []pollenTypeInfo `json:"pollenTypeInfo"`
	PlantInfo      []plantInfo      `json:"plantInfo"`
}

type apiDate struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// Time converts the API date into a UTC calendar date.
func (d apiDate) Time() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

type pollenTypeInfo struct {
	Code                  string    `json:"code"`
	DisplayName           string    `json:"displayName"`
	InSeason              bool      `json:"inSeason"`
	IndexInfo             indexInfo `json:"indexInfo"`
	HealthRecommendations []string  `json:"healthRecommendations"`
}

type indexInfo struct {
	Code        string `json:"code"`
	DisplayName string `json:"displayName"`
	Value       int    `json:"value"`
	Category    string `json:"category"`
}

type plantInfo struct {
	Code        string `json:"code"`
	DisplayName string `json:"displayName"`
	InSeason    bool   `json:"inSeason"`
}

// inSeasonPlantNames returns the display names of all in-season plants
// for the day.
func (d *dailyInfo) inSeasonPlantNames() []string {
	var names []string
	for i := range d.PlantInfo {
		if d.PlantInfo[i].InSeason {
			names = append(names, d.PlantInfo[i].DisplayName)
		}
	}
	return names
}
