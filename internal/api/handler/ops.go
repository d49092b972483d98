// Package handler provides HTTP handlers for the CrowdPollen API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/crowdpollen/crowdpollen/internal/api/models"
	"github.com/crowdpollen/crowdpollen/internal/api/response"
)

// OpsConfig holds collaborators for the operational endpoints.
type OpsConfig struct {
	Version   string
	BuildTime string

	// ReadyCheck verifies hard dependencies (optional). A nil check
	// means the service is ready whenever it is up.
	ReadyCheck func(ctx context.Context) error

	// ProviderName and ProviderState describe the forecast provider for
	// the status endpoint (both optional).
	ProviderName  string
	ProviderState func() string
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	cfg OpsConfig
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	return &OpsHandler{cfg: cfg}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.cfg.Version,
			"buildTime": h.cfg.BuildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}

	if h.cfg.ReadyCheck != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.cfg.ReadyCheck(ctx); err != nil {
			health.Status = models.HealthStatusFail
			health.Details = map[string]interface{}{"error": err.Error()}
			response.JSON(w, r, http.StatusServiceUnavailable, health)
			return
		}
	}

	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}

	if h.cfg.ReadyCheck != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		dbStatus := models.SubsystemStatus{Name: "postgres", Status: models.HealthStatusOK}
		if err := h.cfg.ReadyCheck(ctx); err != nil {
			detail := err.Error()
			dbStatus.Status = models.HealthStatusFail
			dbStatus.Detail = &detail
			status.Status = models.HealthStatusDegraded
		}
		status.Subsystems = append(status.Subsystems, dbStatus)
	}

	if h.cfg.ProviderName != "" {
		provider := models.ProviderStatus{
			Provider: h.cfg.ProviderName,
			Status:   models.HealthStatusOK,
		}
		if h.cfg.ProviderState != nil {
			provider.CircuitState = h.cfg.ProviderState()
			if provider.CircuitState == "open" {
				provider.Status = models.HealthStatusDegraded
				status.Status = models.HealthStatusDegraded
			}
		}
		status.Providers = append(status.Providers, provider)
	}

	response.JSON(w, r, http.StatusOK, status)
}
