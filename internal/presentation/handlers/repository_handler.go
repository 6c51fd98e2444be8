package handlers

import (
	"net/http"
	"strings"

	"appdeck-core/internal/application/dto"
	"appdeck-core/internal/application/service"
	"appdeck-core/internal/domain/repo"

	"github.com/gin-gonic/gin"
)

// RepositoryHandler handles repository snapshot requests
type RepositoryHandler struct {
	aggregators *service.AggregatorRegistry
}

// NewRepositoryHandler creates a new repository handler
func NewRepositoryHandler(aggregators *service.AggregatorRegistry) *RepositoryHandler {
	return &RepositoryHandler{aggregators: aggregators}
}

// GetSnapshot handles GET /repos/snapshot
// @Summary Get a repository snapshot
// @Description Returns metadata, the 5 most recent commits and the 3 most recent releases of a GitHub repository
// @Tags Repositories
// @Produce json
// @Security BearerAuth
// @Param url query string true "GitHub repository URL"
// @Success 200 {object} dto.RepositorySnapshotResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 502 {object} dto.RepositorySnapshotResponse
// @Router /repos/snapshot [get]
func (h *RepositoryHandler) GetSnapshot(c *gin.Context) {
	url, ok := requireURL(c)
	if !ok {
		return
	}

	aggregator, err := h.aggregators.Get(c.Request.Context(), url)
	h.respond(c, aggregator, err)
}

// Refetch handles POST /repos/refetch
// @Summary Refetch a repository snapshot
// @Description Fetches the repository again. Parts that answer with a non-2xx status keep their previous value.
// @Tags Repositories
// @Produce json
// @Security BearerAuth
// @Param url query string true "GitHub repository URL"
// @Success 200 {object} dto.RepositorySnapshotResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 502 {object} dto.RepositorySnapshotResponse
// @Router /repos/refetch [post]
func (h *RepositoryHandler) Refetch(c *gin.Context) {
	url, ok := requireURL(c)
	if !ok {
		return
	}

	aggregator, err := h.aggregators.Refetch(c.Request.Context(), url)
	h.respond(c, aggregator, err)
}

func (h *RepositoryHandler) respond(c *gin.Context, aggregator *service.RepositoryAggregator, err error) {
	if repo.IsInvalidURL(err) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_url",
			Message: repo.MessageInvalidURL,
			Details: err.Error(),
		})
		return
	}
	if aggregator == nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: repo.MessageFetchFailed,
			Details: err.Error(),
		})
		return
	}

	status := http.StatusOK
	if err != nil {
		status = http.StatusBadGateway
	}
	c.JSON(status, dto.ToRepositorySnapshotResponse(aggregator.State()))
}

func requireURL(c *gin.Context) (string, bool) {
	url := strings.TrimSpace(c.Query("url"))
	if url == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "url query parameter is required",
		})
		return "", false
	}
	return url, true
}
