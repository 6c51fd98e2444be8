package handlers

import (
	"errors"
	"io"
	"net/http"

	"appdeck-core/internal/application/dto"
	"appdeck-core/internal/application/service"
	"appdeck-core/internal/domain/deployment"

	"github.com/gin-gonic/gin"
)

// DeploymentHandler handles deployment-related HTTP requests
type DeploymentHandler struct {
	trackers *service.TrackerRegistry
}

// NewDeploymentHandler creates a new deployment handler
func NewDeploymentHandler(trackers *service.TrackerRegistry) *DeploymentHandler {
	return &DeploymentHandler{trackers: trackers}
}

// ListDeployments handles GET /apps/:id/deployments
// @Summary List an app's deployments
// @Description Returns the cached deployments of an app, newest first. The first request for an app loads them from the store.
// @Tags Deployments
// @Produce json
// @Security BearerAuth
// @Param id path string true "App ID"
// @Param refresh query bool false "Reload from the store"
// @Success 200 {object} dto.DeploymentListResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /apps/{id}/deployments [get]
func (h *DeploymentHandler) ListDeployments(c *gin.Context) {
	load := h.trackers.Get
	if c.Query("refresh") == "true" {
		load = h.trackers.Refetch
	}

	tracker, err := load(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondTrackerError(c, err, "Failed to load deployments")
		return
	}

	c.JSON(http.StatusOK, dto.ToDeploymentListResponse(tracker.State()))
}

// CreateDeployment handles POST /apps/:id/deployments
// @Summary Create a deployment
// @Description Creates a pending deployment. Environment defaults to production and hosting provider to vercel.
// @Tags Deployments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "App ID"
// @Param deployment body dto.CreateDeploymentRequest false "Deployment data"
// @Success 201 {object} dto.DeploymentResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /apps/{id}/deployments [post]
func (h *DeploymentHandler) CreateDeployment(c *gin.Context) {
	var req dto.CreateDeploymentRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
			Details: err.Error(),
		})
		return
	}

	tracker, err := h.trackers.Get(c.Request.Context(), c.Param("id"))
	if tracker == nil {
		respondTrackerError(c, err, "Failed to create deployment")
		return
	}

	created, err := tracker.Create(c.Request.Context(), req.ToInput())
	if err != nil {
		respondTrackerError(c, err, "Failed to create deployment")
		return
	}

	c.JSON(http.StatusCreated, dto.ToDeploymentResponse(created))
}

// TriggerDeployment handles POST /apps/:id/deployments/:deploymentId/trigger
// @Summary Trigger a deployment
// @Description Resets the deployment to pending and marks it deployed after a delay. Returns as soon as the reset is stored. Deployments of other apps are not found.
// @Tags Deployments
// @Produce json
// @Security BearerAuth
// @Param id path string true "App ID"
// @Param deploymentId path string true "Deployment ID"
// @Success 202 {object} dto.DeploymentResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /apps/{id}/deployments/{deploymentId}/trigger [post]
func (h *DeploymentHandler) TriggerDeployment(c *gin.Context) {
	tracker, err := h.trackers.Get(c.Request.Context(), c.Param("id"))
	if tracker == nil {
		respondTrackerError(c, err, "Failed to trigger deployment")
		return
	}

	updated, err := tracker.Trigger(c.Request.Context(), c.Param("deploymentId"))
	if err != nil {
		respondTrackerError(c, err, "Failed to trigger deployment")
		return
	}

	c.JSON(http.StatusAccepted, dto.ToDeploymentResponse(updated))
}

func respondTrackerError(c *gin.Context, err error, message string) {
	status, code := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, deployment.ErrAppNotBound),
		errors.Is(err, deployment.ErrInvalidEnvironment),
		errors.Is(err, deployment.ErrInvalidDeploymentID):
		status, code = http.StatusBadRequest, "invalid_request"
	case errors.Is(err, deployment.ErrDeploymentNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, deployment.ErrInvalidStatusTransition):
		status, code = http.StatusConflict, "invalid_transition"
	case errors.Is(err, service.ErrTrackerClosed):
		status, code = http.StatusServiceUnavailable, "unavailable"
	case deployment.IsStoreError(err):
		status, code = http.StatusBadGateway, "store_failure"
	}

	c.JSON(status, ErrorResponse{
		Error:   code,
		Message: message,
		Details: err.Error(),
	})
}
