package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/academic-dashboard-api/internal/models"
)

func TestAuthHandlerMe(t *testing.T) {
	c, rec := newTestContext(http.MethodGet, "/auth/me", &models.Principal{UserID: "u1", Role: models.RoleJefeAcademico, FullName: "Nora"})

	NewAuthHandler().Me(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"userId":"u1","role":"jefe_academico","fullName":"Nora","dashboards":["academic-head"]}}`, rec.Body.String())

	c, rec = newTestContext(http.MethodGet, "/auth/me", nil)
	NewAuthHandler().Me(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
