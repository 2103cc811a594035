package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-dashboard-api/internal/models"
	"github.com/noah-isme/academic-dashboard-api/internal/snapshot"
	appErrors "github.com/noah-isme/academic-dashboard-api/pkg/errors"
	"github.com/noah-isme/academic-dashboard-api/pkg/response"
)

type snapshotService interface {
	Load(ctx context.Context, collections ...models.Collection) *snapshot.Snapshot
	Reload(ctx context.Context, collections ...models.Collection) error
}

// SnapshotHandler exposes cache reloads of the academic collections.
type SnapshotHandler struct {
	snapshots snapshotService
}

// NewSnapshotHandler constructs the handler.
func NewSnapshotHandler(snapshots snapshotService) *SnapshotHandler {
	return &SnapshotHandler{snapshots: snapshots}
}

type reloadRequest struct {
	Collections []string `json:"collections"`
}

// Reload godoc
// @Summary Drop cached collections and load them again
// @Tags Snapshots
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body reloadRequest false "Collections to reload; all when empty"
// @Success 200 {object} response.Envelope
// @Router /snapshots/reload [post]
func (h *SnapshotHandler) Reload(c *gin.Context) {
	var req reloadRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid JSON body"))
			return
		}
	}
	collections := make([]models.Collection, 0, len(req.Collections))
	for _, name := range req.Collections {
		collection, ok := models.ParseCollection(name)
		if !ok {
			respondError(c, appErrors.Clone(appErrors.ErrUnknownCollection, "unknown collection "+name))
			return
		}
		collections = append(collections, collection)
	}

	ctx := c.Request.Context()
	if err := h.snapshots.Reload(ctx, collections...); err != nil {
		respondError(c, err)
		return
	}
	if len(collections) == 0 {
		collections = models.AllCollections
	}
	snap := h.snapshots.Load(ctx, collections...)
	states := snap.States()
	meta := responseMeta(c, false, states)
	if banners := snap.Banners(); len(banners) > 0 {
		meta["banners"] = banners
	}
	response.JSON(c, http.StatusOK, states, meta)
}
