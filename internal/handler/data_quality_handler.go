package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-dashboard-api/internal/models"
	"github.com/noah-isme/academic-dashboard-api/internal/service"
	appErrors "github.com/noah-isme/academic-dashboard-api/pkg/errors"
	"github.com/noah-isme/academic-dashboard-api/pkg/response"
)

const maxIssueLimit = 500

type dataQualityService interface {
	Recent(ctx context.Context, filter models.DataQualityFilter) (*service.DataQualitySummary, error)
}

// DataQualityHandler lists the upstream records dropped while reconciling.
type DataQualityHandler struct {
	service dataQualityService
}

// NewDataQualityHandler constructs the handler.
func NewDataQualityHandler(service dataQualityService) *DataQualityHandler {
	return &DataQualityHandler{service: service}
}

// Issues godoc
// @Summary Recent data quality issues
// @Tags DataQuality
// @Produce json
// @Security BearerAuth
// @Param collection query string false "Collection"
// @Param since query string false "RFC3339 timestamp or YYYY-MM-DD"
// @Param limit query int false "Maximum issues" default(100)
// @Success 200 {object} response.Envelope
// @Router /data-quality/issues [get]
func (h *DataQualityHandler) Issues(c *gin.Context) {
	filter, err := parseIssueFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}
	summary, err := h.service.Recent(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary.Issues, map[string]interface{}{"byCollection": summary.ByCollection})
}

func parseIssueFilter(c *gin.Context) (models.DataQualityFilter, error) {
	var filter models.DataQualityFilter
	if raw := strings.TrimSpace(c.Query("collection")); raw != "" {
		collection, ok := models.ParseCollection(raw)
		if !ok {
			return filter, appErrors.Clone(appErrors.ErrValidation, "unknown collection "+raw)
		}
		filter.Collection = &collection
	}
	if raw := strings.TrimSpace(c.Query("since")); raw != "" {
		since, ok := models.RawRecord{"since": raw}.Time("since")
		if !ok {
			return filter, appErrors.Clone(appErrors.ErrValidation, "since must be RFC3339 or YYYY-MM-DD")
		}
		since = since.UTC()
		filter.Since = &since
	}
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return filter, appErrors.Clone(appErrors.ErrValidation, "limit must be a positive integer")
		}
		if limit > maxIssueLimit {
			limit = maxIssueLimit
		}
		filter.Limit = limit
	}
	return filter, nil
}

