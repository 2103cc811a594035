package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-dashboard-api/internal/models"
	"github.com/noah-isme/academic-dashboard-api/internal/service"
	"github.com/noah-isme/academic-dashboard-api/internal/snapshot"
	appErrors "github.com/noah-isme/academic-dashboard-api/pkg/errors"
	"github.com/noah-isme/academic-dashboard-api/pkg/export"
	"github.com/noah-isme/academic-dashboard-api/pkg/response"
)

type entityService interface {
	List(ctx context.Context, collection models.Collection, term string) (*service.EntityList, error)
	Create(ctx context.Context, collection models.Collection, payload map[string]interface{}) (*service.MutationOutcome, error)
	Update(ctx context.Context, collection models.Collection, id string, payload map[string]interface{}) (*service.MutationOutcome, error)
	Delete(ctx context.Context, collection models.Collection, id string) error
}

type exportService interface {
	Export(ctx context.Context, collection models.Collection, term string, format export.Format) (*service.ExportFile, error)
}

// CollectionHandler exposes the reconciled collections and their mutations.
type CollectionHandler struct {
	entities entityService
	exports  exportService
}

// NewCollectionHandler constructs the handler.
func NewCollectionHandler(entities entityService, exports exportService) *CollectionHandler {
	return &CollectionHandler{entities: entities, exports: exports}
}

// List godoc
// @Summary List a reconciled collection
// @Tags Collections
// @Produce json
// @Security BearerAuth
// @Param collection path string true "Collection" Enums(users, careers, subjects, groups, alerts, tutorias, capacitaciones, reports)
// @Param search query string false "Case-insensitive search term"
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /collections/{collection} [get]
func (h *CollectionHandler) List(c *gin.Context) {
	collection, err := collectionParam(c)
	if err != nil {
		respondError(c, err)
		return
	}
	list, err := h.entities.List(c.Request.Context(), collection, c.Query("search"))
	if err != nil {
		respondError(c, err)
		return
	}
	meta := responseMeta(c, list.State.Cached, []snapshot.CollectionState{list.State})
	meta["total"] = list.Total
	if len(list.Banners) > 0 {
		meta["banners"] = list.Banners
	}
	response.JSON(c, http.StatusOK, list.Items, meta)
}

// Create godoc
// @Summary Create a record in the academic API
// @Tags Collections
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param collection path string true "Collection"
// @Param payload body object true "Record"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /collections/{collection} [post]
func (h *CollectionHandler) Create(c *gin.Context) {
	collection, payload, ok := h.bind(c)
	if !ok {
		return
	}
	out, err := h.entities.Create(c.Request.Context(), collection, payload)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, out)
}

// Update godoc
// @Summary Update a record in the academic API
// @Tags Collections
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param collection path string true "Collection"
// @Param id path string true "Record ID"
// @Param payload body object true "Record"
// @Success 200 {object} response.Envelope
// @Router /collections/{collection}/{id} [put]
func (h *CollectionHandler) Update(c *gin.Context) {
	collection, payload, ok := h.bind(c)
	if !ok {
		return
	}
	out, err := h.entities.Update(c.Request.Context(), collection, c.Param("id"), payload)
	if err != nil {
		respondError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, out)
}

// Delete godoc
// @Summary Delete a record in the academic API
// @Tags Collections
// @Security BearerAuth
// @Param collection path string true "Collection"
// @Param id path string true "Record ID"
// @Success 204
// @Router /collections/{collection}/{id} [delete]
func (h *CollectionHandler) Delete(c *gin.Context) {
	collection, err := collectionParam(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.entities.Delete(c.Request.Context(), collection, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Export a reconciled collection
// @Tags Collections
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param collection path string true "Collection"
// @Param format query string false "csv or pdf" default(csv)
// @Param search query string false "Case-insensitive search term"
// @Success 200 {file} file
// @Router /collections/{collection}/export [get]
func (h *CollectionHandler) Export(c *gin.Context) {
	if h.exports == nil {
		respondError(c, appErrors.ErrInternal)
		return
	}
	collection, err := collectionParam(c)
	if err != nil {
		respondError(c, err)
		return
	}
	format := export.Format(strings.ToLower(c.DefaultQuery("format", string(export.FormatCSV))))
	file, err := h.exports.Export(c.Request.Context(), collection, c.Query("search"), format)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}

func (h *CollectionHandler) bind(c *gin.Context) (models.Collection, map[string]interface{}, bool) {
	collection, err := collectionParam(c)
	if err != nil {
		respondError(c, err)
		return "", nil, false
	}
	var payload map[string]interface{}
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid JSON body"))
		return "", nil, false
	}
	return collection, payload, true
}
