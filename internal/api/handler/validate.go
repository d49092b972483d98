package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/crowdpollen/crowdpollen/internal/api/models"
	"github.com/crowdpollen/crowdpollen/internal/api/response"
	"github.com/crowdpollen/crowdpollen/internal/clock"
	"github.com/crowdpollen/crowdpollen/internal/pollen"
	"github.com/crowdpollen/crowdpollen/internal/submission"
	"github.com/crowdpollen/crowdpollen/internal/validation"
)

// ValidateHandler classifies crowd submissions against the authoritative
// forecast.
type ValidateHandler struct {
	forecasts  *pollen.Service
	classifier *validation.Classifier
	clock      clock.Clock
	logger     zerolog.Logger
}

// NewValidateHandler creates a new ValidateHandler.
func NewValidateHandler(forecasts *pollen.Service, classifier *validation.Classifier, clk clock.Clock, logger zerolog.Logger) *ValidateHandler {
	if clk == nil {
		clk = clock.Real{}
	}
	return &ValidateHandler{
		forecasts:  forecasts,
		classifier: classifier,
		clock:      clk,
		logger:     logger,
	}
}

// ValidateSubmission handles POST /v1/submissions:validate.
//
// The verdict is advisory: it is returned to the caller and never blocks
// a submission. A classifier problem yields an ERROR verdict with HTTP
// 200, not a failed request.
func (h *ValidateHandler) ValidateSubmission(w http.ResponseWriter, r *http.Request) {
	var req models.ValidateSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}

	if req.Level < 0 || req.Level > 5 {
		response.BadRequest(w, r, "level out of range", []models.FieldError{
			{Field: "level", Message: "must be between 0 and 5"},
		})
		return
	}

	observedAt := h.clock.Now()
	if req.ObservedAt != nil {
		observedAt = req.ObservedAt.Time()
	}

	forecast, err := h.forecasts.GetForecast(r.Context(), req.Location.Lat, req.Location.Lon, pollen.MaxForecastDays)
	if err != nil {
		switch {
		case errors.Is(err, pollen.ErrInvalidCoordinates):
			response.BadRequest(w, r, "coordinates out of range", []models.FieldError{
				{Field: "location.lat", Message: "must be between -90 and 90"},
				{Field: "location.lon", Message: "must be between -180 and 180"},
			})
			return
		case errors.Is(err, pollen.ErrNoDataForRegion), errors.Is(err, pollen.ErrPermissionDenied):
			// No baseline to compare against; the verdict says so rather
			// than failing the request.
			h.writeVerdict(w, r, h.classifier.Classify(nil, nil), nil)
			return
		default:
			h.logger.Error().Err(err).Msg("forecast fetch failed during validation")
			response.InternalError(w, r, "failed to fetch forecast for validation")
			return
		}
	}

	sub := &submission.Submission{
		Latitude:  &req.Location.Lat,
		Longitude: &req.Location.Lon,
		Level:     req.Level,
		CreatedAt: observedAt,
	}

	day := matchDay(forecast, observedAt)
	verdict := h.classifier.Classify(sub, day)
	h.writeVerdict(w, r, verdict, day)
}

func (h *ValidateHandler) writeVerdict(w http.ResponseWriter, r *http.Request, verdict validation.Verdict, day *pollen.DailyForecast) {
	resp := models.ValidateSubmissionResponse{
		Status:          string(verdict.Status),
		VariancePercent: verdict.VariancePercent,
		Note:            verdict.Note,
	}
	if day != nil {
		level := day.MaxLevel()
		resp.AuthoritativeLevel = &level
	}
	response.JSON(w, r, http.StatusOK, resp)
}

// matchDay finds the forecast day covering the observation time, or nil
// when the observation falls outside the forecast window.
func matchDay(forecast *pollen.Forecast, observedAt time.Time) *pollen.DailyForecast {
	key := observedAt.UTC().Format("2006-01-02")
	for i := range forecast.Days {
		if forecast.Days[i].Date.UTC().Format("2006-01-02") == key {
			return &forecast.Days[i]
		}
	}
	return nil
}
