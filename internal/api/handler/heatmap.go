package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/crowdpollen/crowdpollen/internal/api/models"
	"github.com/crowdpollen/crowdpollen/internal/api/response"
	"github.com/crowdpollen/crowdpollen/internal/pollen/googlepollen"
)

// heatmapMapTypes are the tile layers the provider exposes.
var heatmapMapTypes = map[string]bool{
	"TREE_UPI":  true,
	"GRASS_UPI": true,
	"WEED_UPI":  true,
}

const maxHeatmapZoom = 16

// HeatmapHandler proxies pollen heatmap tiles from the provider. The
// proxy keeps the provider API key off the client.
type HeatmapHandler struct {
	tiles      *googlepollen.Client
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewHeatmapHandler creates a new HeatmapHandler.
func NewHeatmapHandler(tiles *googlepollen.Client, httpClient *http.Client, logger zerolog.Logger) *HeatmapHandler {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &HeatmapHandler{tiles: tiles, httpClient: httpClient, logger: logger}
}

// GetTile handles GET /v1/heatmap/{mapType}/{zoom}/{x}/{y}.
func (h *HeatmapHandler) GetTile(w http.ResponseWriter, r *http.Request) {
	if h.tiles == nil || !h.tiles.Configured() {
		response.ServiceUnavailable(w, r, "heatmap tiles require a configured forecast provider")
		return
	}

	mapType := chi.URLParam(r, "mapType")
	if !heatmapMapTypes[mapType] {
		response.BadRequest(w, r, "unknown map type", []models.FieldError{
			{Field: "mapType", Message: "must be one of TREE_UPI, GRASS_UPI, WEED_UPI"},
		})
		return
	}

	zoom, zoomErr := strconv.Atoi(chi.URLParam(r, "zoom"))
	x, xErr := strconv.Atoi(chi.URLParam(r, "x"))
	y, yErr := strconv.Atoi(chi.URLParam(r, "y"))
	if zoomErr != nil || xErr != nil || yErr != nil || zoom < 0 || zoom > maxHeatmapZoom || x < 0 || y < 0 {
		response.BadRequest(w, r, "invalid tile coordinates", []models.FieldError{
			{Field: "zoom", Message: "must be an integer between 0 and 16"},
			{Field: "x", Message: "must be a non-negative integer"},
			{Field: "y", Message: "must be a non-negative integer"},
		})
		return
	}

	url := h.tiles.HeatmapTileURL(mapType, zoom, x, y)
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, url, http.NoBody)
	if err != nil {
		response.InternalError(w, r, "failed to build tile request")
		return
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		h.logger.Warn().Err(err).Str("map_type", mapType).Msg("heatmap tile fetch failed")
		response.ServiceUnavailable(w, r, "heatmap tile provider unavailable")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		h.logger.Warn().Int("status", resp.StatusCode).Str("map_type", mapType).Msg("heatmap tile provider error")
		response.ServiceUnavailable(w, r, "heatmap tile provider unavailable")
		return
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, resp.Body)
}
