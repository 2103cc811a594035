package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-dashboard-api/internal/middleware"
	"github.com/noah-isme/academic-dashboard-api/internal/models"
	"github.com/noah-isme/academic-dashboard-api/internal/snapshot"
	appErrors "github.com/noah-isme/academic-dashboard-api/pkg/errors"
	"github.com/noah-isme/academic-dashboard-api/pkg/logger"
	"github.com/noah-isme/academic-dashboard-api/pkg/response"
)

func principalFromContext(c *gin.Context) (*models.Principal, error) {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		return nil, appErrors.ErrUnauthorized
	}
	return principal, nil
}

// targetUser resolves the user a scoped dashboard is built for. Only the
// superadmin may look at another user's dashboard through ?userId.
func targetUser(c *gin.Context) (string, error) {
	principal, err := principalFromContext(c)
	if err != nil {
		return "", err
	}
	requested := strings.TrimSpace(c.Query("userId"))
	if requested == "" || requested == principal.UserID {
		return principal.UserID, nil
	}
	if principal.Role != models.RoleSuperAdmin {
		return "", appErrors.Clone(appErrors.ErrForbidden, "cannot view another user's dashboard")
	}
	return requested, nil
}

func collectionParam(c *gin.Context) (models.Collection, error) {
	collection, ok := models.ParseCollection(c.Param("collection"))
	if !ok {
		return "", appErrors.Clone(appErrors.ErrUnknownCollection, "unknown collection "+c.Param("collection"))
	}
	return collection, nil
}

// responseMeta merges the request metadata with the collections that did not load.
func responseMeta(c *gin.Context, cacheHit bool, states []snapshot.CollectionState) map[string]interface{} {
	middleware.SetCacheHit(c, cacheHit)
	middleware.SetLoadStates(c, states)
	return middleware.ExtractMeta(c)
}

// respondError writes err to the client. Server-side failures are logged with
// their cause, which the response body never carries.
func respondError(c *gin.Context, err error) {
	if appErr := appErrors.FromError(err); appErr.Status >= http.StatusInternalServerError {
		logger.FromContext(c).Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("code", appErr.Code),
			zap.Error(err),
		)
	}
	response.Error(c, err)
}
