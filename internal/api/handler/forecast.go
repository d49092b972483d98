package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/crowdpollen/crowdpollen/internal/api/models"
	"github.com/crowdpollen/crowdpollen/internal/api/response"
	"github.com/crowdpollen/crowdpollen/internal/fusion"
	"github.com/crowdpollen/crowdpollen/internal/pollen"
)

const defaultForecastDays = 3

// ForecastHandler serves fused pollen forecasts.
type ForecastHandler struct {
	engine *fusion.Engine
	logger zerolog.Logger
}

// NewForecastHandler creates a new ForecastHandler.
func NewForecastHandler(engine *fusion.Engine, logger zerolog.Logger) *ForecastHandler {
	return &ForecastHandler{engine: engine, logger: logger}
}

// GetForecast handles GET /v1/forecast?lat=&lon=&days=.
func (h *ForecastHandler) GetForecast(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
	lon, lonErr := strconv.ParseFloat(q.Get("lon"), 64)
	if latErr != nil || lonErr != nil {
		response.BadRequest(w, r, "lat and lon query parameters are required", []models.FieldError{
			{Field: "lat", Message: "must be a number between -90 and 90"},
			{Field: "lon", Message: "must be a number between -180 and 180"},
		})
		return
	}

	days := defaultForecastDays
	if raw := q.Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(w, r, "days must be an integer", []models.FieldError{
				{Field: "days", Message: "must be an integer between 1 and 5"},
			})
			return
		}
		days = parsed
	}

	result, err := h.engine.GetFusedForecast(r.Context(), lat, lon, days)
	if err != nil {
		h.writeForecastError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, toForecastResponse(lat, lon, result))
}

func (h *ForecastHandler) writeForecastError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, pollen.ErrInvalidCoordinates):
		response.BadRequest(w, r, "coordinates out of range", []models.FieldError{
			{Field: "lat", Message: "must be between -90 and 90"},
			{Field: "lon", Message: "must be between -180 and 180"},
		})
	case errors.Is(err, pollen.ErrInvalidDays):
		response.BadRequest(w, r, "days out of range", []models.FieldError{
			{Field: "days", Message: "must be between 1 and 5"},
		})
	case errors.Is(err, pollen.ErrNoDataForRegion):
		response.NotFound(w, r, "no pollen data available for this region")
	case errors.Is(err, pollen.ErrPermissionDenied):
		// Misconfigured credentials: surfaced, never papered over with
		// fallback data.
		h.logger.Error().Err(err).Msg("forecast provider rejected credentials")
		response.ServiceUnavailable(w, r, "the forecast provider rejected our credentials")
	default:
		h.logger.Error().Err(err).Msg("fused forecast failed")
		response.InternalError(w, r, "failed to compute forecast")
	}
}

// toForecastResponse maps a fusion result onto the API model.
func toForecastResponse(lat, lon float64, result *fusion.Result) models.ForecastResponse {
	resp := models.ForecastResponse{
		Location:              models.Point{Lat: lat, Lon: lon},
		Days:                  make([]models.ForecastDay, 0, len(result.Days)),
		Source:                string(result.Source),
		Provider:              result.Provider,
		SubmissionsConsidered: result.SubmissionsConsidered,
	}

	for _, day := range result.Days {
		readings := make([]models.PollenReading, 0, len(day.Forecast.Readings))
		for _, cat := range pollen.AllCategories() {
			reading := day.Forecast.Reading(cat)
			readings = append(readings, models.PollenReading{
				Category:       string(reading.Category),
				Level:          reading.Level,
				Class:          string(reading.Class),
				PlantsInSeason: reading.PlantsInSeason,
			})
		}

		resp.Days = append(resp.Days, models.ForecastDay{
			Date:        day.Forecast.Date.Format("2006-01-02"),
			Readings:    readings,
			HealthNotes: day.Forecast.HealthNotes,
			Estimate: models.FusedEstimate{
				FusedLevel:          day.Estimate.FusedLevel,
				AuthoritativeWeight: day.Estimate.AuthoritativeWeight,
				CrowdWeight:         day.Estimate.CrowdWeight,
				Confidence:          day.Estimate.Confidence,
				DataSource:          string(day.Estimate.DataSource),
				SubmissionCount:     day.Estimate.SubmissionCount,
				Note:                day.Estimate.Note,
			},
		})
	}

	return resp
}
