package handler

import (
	"net/http"

	"github.com/crowdpollen/crowdpollen/internal/api/models"
	"github.com/crowdpollen/crowdpollen/internal/api/response"
	"github.com/crowdpollen/crowdpollen/internal/fusion"
	"github.com/crowdpollen/crowdpollen/internal/pollen"
	"github.com/crowdpollen/crowdpollen/internal/submission"
)

// MetadataHandler serves the API's enumerated vocabularies.
type MetadataHandler struct{}

// NewMetadataHandler creates a new MetadataHandler.
func NewMetadataHandler() *MetadataHandler {
	return &MetadataHandler{}
}

// GetEnums handles GET /v1/metadata/enums.
func (h *MetadataHandler) GetEnums(w http.ResponseWriter, r *http.Request) {
	categories := make([]string, 0, 3)
	for _, cat := range pollen.AllCategories() {
		categories = append(categories, string(cat))
	}

	resp := models.EnumsResponse{
		Categories: categories,
		Classes: []string{
			string(pollen.ClassUnspecified),
			string(pollen.ClassVeryLow),
			string(pollen.ClassLow),
			string(pollen.ClassModerate),
			string(pollen.ClassHigh),
			string(pollen.ClassVeryHigh),
		},
		ValidationStatuses: []string{
			string(submission.StatusValidated),
			string(submission.StatusVariance),
			string(submission.StatusSignificantVariance),
			string(submission.StatusNoData),
			string(submission.StatusError),
		},
		DataSources: []string{
			string(fusion.DataSourceAuthoritativeOnly),
			string(fusion.DataSourceHybrid),
		},
	}

	response.JSON(w, r, http.StatusOK, resp)
}
