package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-dashboard-api/internal/models"
	"github.com/noah-isme/academic-dashboard-api/pkg/response"
)

// Profile is the authenticated caller with the screens it may open.
type Profile struct {
	UserID     string          `json:"userId"`
	Role       models.UserRole `json:"role"`
	Email      string          `json:"email,omitempty"`
	FullName   string          `json:"fullName,omitempty"`
	Dashboards []string        `json:"dashboards"`
}

// AuthHandler exposes the identity resolved from the access token. Login
// itself happens against the academic API.
type AuthHandler struct{}

// NewAuthHandler creates a new handler.
func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

// Me godoc
// @Summary Current user
// @Description Resolves the caller's internal role and the dashboards it may open
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	principal, err := principalFromContext(c)
	if err != nil {
		respondError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, Profile{
		UserID:     principal.UserID,
		Role:       principal.Role,
		Email:      principal.Email,
		FullName:   principal.FullName,
		Dashboards: principal.Role.Dashboards(),
	})
}
