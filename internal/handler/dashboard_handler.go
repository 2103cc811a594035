package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-dashboard-api/internal/dto"
	"github.com/noah-isme/academic-dashboard-api/internal/snapshot"
	appErrors "github.com/noah-isme/academic-dashboard-api/pkg/errors"
	"github.com/noah-isme/academic-dashboard-api/pkg/response"
)

type dashboardService interface {
	SuperAdmin(ctx context.Context) (*dto.SuperAdminDashboard, bool, error)
	AcademicHead(ctx context.Context) (*dto.AcademicHeadDashboard, bool, error)
	SubDirector(ctx context.Context) (*dto.SubDirectorDashboard, bool, error)
	Teacher(ctx context.Context, teacherID string) (*dto.TeacherDashboard, bool, error)
	Psychopedagogical(ctx context.Context) (*dto.PsychopedagogicalDashboard, bool, error)
	Tutor(ctx context.Context, tutorID string) (*dto.TutorDashboard, bool, error)
}

// DashboardHandler wires dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// SuperAdmin godoc
// @Summary Institution-wide overview
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /dashboard/superadmin [get]
func (h *DashboardHandler) SuperAdmin(c *gin.Context) {
	respondDashboard(c, h.service, func(ctx context.Context) (*dto.SuperAdminDashboard, bool, error) {
		return h.service.SuperAdmin(ctx)
	})
}

// AcademicHead godoc
// @Summary Academic offer with resolved careers, subjects and groups
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /dashboard/academic-head [get]
func (h *DashboardHandler) AcademicHead(c *gin.Context) {
	respondDashboard(c, h.service, func(ctx context.Context) (*dto.AcademicHeadDashboard, bool, error) {
		return h.service.AcademicHead(ctx)
	})
}

// SubDirector godoc
// @Summary Approval and coverage indicators
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /dashboard/sub-director [get]
func (h *DashboardHandler) SubDirector(c *gin.Context) {
	respondDashboard(c, h.service, func(ctx context.Context) (*dto.SubDirectorDashboard, bool, error) {
		return h.service.SubDirector(ctx)
	})
}

// Psychopedagogical godoc
// @Summary Alert and tutoring follow-up
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /dashboard/psychopedagogical [get]
func (h *DashboardHandler) Psychopedagogical(c *gin.Context) {
	respondDashboard(c, h.service, func(ctx context.Context) (*dto.PsychopedagogicalDashboard, bool, error) {
		return h.service.Psychopedagogical(ctx)
	})
}

// Teacher godoc
// @Summary Dashboard scoped to the caller's groups
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Param userId query string false "Teacher ID (superadmin only)"
// @Success 200 {object} response.Envelope
// @Router /dashboard/teacher [get]
func (h *DashboardHandler) Teacher(c *gin.Context) {
	userID, err := targetUser(c)
	if err != nil {
		respondError(c, err)
		return
	}
	respondDashboard(c, h.service, func(ctx context.Context) (*dto.TeacherDashboard, bool, error) {
		return h.service.Teacher(ctx, userID)
	})
}

// Tutor godoc
// @Summary Dashboard scoped to the caller's tutoring sessions
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Param userId query string false "Tutor ID (superadmin only)"
// @Success 200 {object} response.Envelope
// @Router /dashboard/tutor [get]
func (h *DashboardHandler) Tutor(c *gin.Context) {
	userID, err := targetUser(c)
	if err != nil {
		respondError(c, err)
		return
	}
	respondDashboard(c, h.service, func(ctx context.Context) (*dto.TutorDashboard, bool, error) {
		return h.service.Tutor(ctx, userID)
	})
}

type dashboardPayload interface {
	LoadStates() []snapshot.CollectionState
}

func respondDashboard[T dashboardPayload](c *gin.Context, svc dashboardService, build func(context.Context) (T, bool, error)) {
	if svc == nil {
		respondError(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	out, cacheHit, err := build(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	meta := responseMeta(c, cacheHit, out.LoadStates())
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, out, meta)
}
