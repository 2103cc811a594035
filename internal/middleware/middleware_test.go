package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/academic-dashboard-api/internal/models"
	"github.com/noah-isme/academic-dashboard-api/internal/snapshot"
	appErrors "github.com/noah-isme/academic-dashboard-api/pkg/errors"
	"github.com/noah-isme/academic-dashboard-api/pkg/upstream"
)

type fakeAuthenticator struct {
	principals map[string]*models.Principal
}

func (f fakeAuthenticator) Authenticate(token string) (*models.Principal, error) {
	if p, ok := f.principals[token]; ok {
		return p, nil
	}
	return nil, appErrors.Wrap(errors.New("bad token"), appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	auth := fakeAuthenticator{principals: map[string]*models.Principal{
		"teacher-token": {UserID: "t1", Role: models.RoleDocente},
		"admin-token":   {UserID: "adm", Role: models.RoleSuperAdmin},
	}}
	r := gin.New()
	r.GET("/users/:id", JWT(auth), RBAC(string(models.RoleSuperAdmin), RoleSelf), func(c *gin.Context) {
		principal, _ := PrincipalFrom(c)
		token, _ := upstream.TokenFrom(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"user": principal.UserID, "token": token})
	})
	return r
}

func TestJWTAndRBAC(t *testing.T) {
	r := newRouter()

	cases := []struct {
		name   string
		path   string
		header string
		status int
	}{
		{"missing header", "/users/t1", "", http.StatusUnauthorized},
		{"malformed header", "/users/t1", "Token abc", http.StatusUnauthorized},
		{"unknown token", "/users/t1", "Bearer nope", http.StatusUnauthorized},
		{"self access", "/users/t1", "Bearer teacher-token", http.StatusOK},
		{"other user", "/users/t2", "Bearer teacher-token", http.StatusForbidden},
		{"allowed role", "/users/t2", "bearer admin-token", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestJWTForwardsTokenUpstream(t *testing.T) {
	r := newRouter()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/users/t1", nil)
	req.Header.Set("Authorization", "Bearer teacher-token")
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user":"t1","token":"teacher-token"}`, rec.Body.String())
}

func TestRBACWithoutPrincipal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	RequireRoles(models.RoleTutor)(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.True(t, c.IsAborted())
}

func TestSetCacheHit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	SetCacheHit(c, true)

	assert.Equal(t, "HIT", rec.Header().Get(CacheHeader))
	assert.Equal(t, true, ExtractMeta(c)["cache_hit"])
}

func TestSetLoadStatesReportsMissingCollections(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	SetLoadStates(c, []snapshot.CollectionState{
		{Collection: models.CollectionUsers, Status: snapshot.StatusLoaded},
		{Collection: models.CollectionAlerts, Status: snapshot.StatusDegraded},
		{Collection: models.CollectionGroups, Status: snapshot.StatusFailed},
	})

	assert.Equal(t, "alerts,groups", rec.Header().Get(DegradedHeader))
	assert.Equal(t, []string{"alerts", "groups"}, ExtractMeta(c)["degraded"])
}

func TestResponseMetaStampsProcessingTime(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(WithResponseMeta())
	var meta map[string]interface{}
	r.GET("/x", func(c *gin.Context) {
		SetLoadStates(c, []snapshot.CollectionState{{Collection: models.CollectionUsers, Status: snapshot.StatusLoaded}})
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Contains(t, meta, "processing_time_ms")
	assert.NotContains(t, meta, "degraded")
	assert.Empty(t, rec.Header().Get(DegradedHeader))
}
