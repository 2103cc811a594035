package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-dashboard-api/internal/dto"
	"github.com/noah-isme/academic-dashboard-api/internal/middleware"
	"github.com/noah-isme/academic-dashboard-api/internal/models"
	"github.com/noah-isme/academic-dashboard-api/internal/snapshot"
	appErrors "github.com/noah-isme/academic-dashboard-api/pkg/errors"
)

type responseEnvelope struct {
	Data  map[string]interface{} `json:"data"`
	Error map[string]interface{} `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

type fakeDashboardSrv struct {
	superAdmin  *dto.SuperAdminDashboard
	hit         bool
	err         error
	lastTeacher string
	lastTutor   string
}

func (f *fakeDashboardSrv) SuperAdmin(context.Context) (*dto.SuperAdminDashboard, bool, error) {
	return f.superAdmin, f.hit, f.err
}

func (f *fakeDashboardSrv) AcademicHead(context.Context) (*dto.AcademicHeadDashboard, bool, error) {
	return &dto.AcademicHeadDashboard{}, f.hit, f.err
}

func (f *fakeDashboardSrv) SubDirector(context.Context) (*dto.SubDirectorDashboard, bool, error) {
	return &dto.SubDirectorDashboard{}, f.hit, f.err
}

func (f *fakeDashboardSrv) Teacher(_ context.Context, teacherID string) (*dto.TeacherDashboard, bool, error) {
	f.lastTeacher = teacherID
	return &dto.TeacherDashboard{TeacherID: teacherID}, f.hit, f.err
}

func (f *fakeDashboardSrv) Psychopedagogical(context.Context) (*dto.PsychopedagogicalDashboard, bool, error) {
	return &dto.PsychopedagogicalDashboard{}, f.hit, f.err
}

func (f *fakeDashboardSrv) Tutor(_ context.Context, tutorID string) (*dto.TutorDashboard, bool, error) {
	f.lastTutor = tutorID
	return &dto.TutorDashboard{TutorID: tutorID}, f.hit, f.err
}

func newTestContext(method, target string, principal *models.Principal) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, target, nil)
	if principal != nil {
		c.Set(middleware.ContextUserKey, principal)
	}
	return c, rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func TestDashboardHandlerSuperAdminReportsDegradedCollections(t *testing.T) {
	srv := &fakeDashboardSrv{
		hit: true,
		superAdmin: &dto.SuperAdminDashboard{
			DashboardMeta: dto.DashboardMeta{Collections: []snapshot.CollectionState{
				{Collection: models.CollectionUsers, Status: snapshot.StatusLoaded},
				{Collection: models.CollectionAlerts, Status: snapshot.StatusDegraded},
			}},
			ActiveUsers: 3,
		},
	}
	c, rec := newTestContext(http.MethodGet, "/dashboard/superadmin", &models.Principal{UserID: "adm", Role: models.RoleSuperAdmin})

	NewDashboardHandler(srv).SuperAdmin(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get(middleware.CacheHeader))
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, float64(3), envelope.Data["activeUsers"])
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	assert.Equal(t, []interface{}{"alerts"}, envelope.Meta["degraded"])
}

func TestDashboardHandlerTeacherUsesCaller(t *testing.T) {
	srv := &fakeDashboardSrv{}
	c, rec := newTestContext(http.MethodGet, "/dashboard/teacher", &models.Principal{UserID: "t1", Role: models.RoleDocente})

	NewDashboardHandler(srv).Teacher(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "t1", srv.lastTeacher)
	assert.Equal(t, "MISS", rec.Header().Get(middleware.CacheHeader))
}

func TestDashboardHandlerUserOverride(t *testing.T) {
	srv := &fakeDashboardSrv{}

	c, rec := newTestContext(http.MethodGet, "/dashboard/tutor?userId=other", &models.Principal{UserID: "tut", Role: models.RoleTutor})
	NewDashboardHandler(srv).Tutor(c)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, srv.lastTutor)

	c, rec = newTestContext(http.MethodGet, "/dashboard/tutor?userId=other", &models.Principal{UserID: "adm", Role: models.RoleSuperAdmin})
	NewDashboardHandler(srv).Tutor(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "other", srv.lastTutor)
}

func TestDashboardHandlerErrors(t *testing.T) {
	c, rec := newTestContext(http.MethodGet, "/dashboard/teacher", nil)
	NewDashboardHandler(&fakeDashboardSrv{}).Teacher(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = newTestContext(http.MethodGet, "/dashboard/sub-director", &models.Principal{UserID: "s", Role: models.RoleSubdirector})
	NewDashboardHandler(&fakeDashboardSrv{err: appErrors.ErrUpstreamUnavailable}).SubDirector(c)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "UPSTREAM_UNAVAILABLE", decodeEnvelope(t, rec).Error["code"])

	c, rec = newTestContext(http.MethodGet, "/dashboard/academic-head", nil)
	NewDashboardHandler(nil).AcademicHead(c)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
