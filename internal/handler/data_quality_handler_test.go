package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-dashboard-api/internal/models"
	"github.com/noah-isme/academic-dashboard-api/internal/service"
	"github.com/noah-isme/academic-dashboard-api/pkg/middleware/requestid"
)

type fakeDataQualitySrv struct {
	filter models.DataQualityFilter
	err    error
}

func (f *fakeDataQualitySrv) Recent(_ context.Context, filter models.DataQualityFilter) (*service.DataQualitySummary, error) {
	f.filter = filter
	if f.err != nil {
		return nil, f.err
	}
	return &service.DataQualitySummary{
		Issues:       []models.DataQualityIssue{{ID: "i1", Collection: models.CollectionGroups, Reason: "record has no identifier"}},
		ByCollection: map[models.Collection]int{models.CollectionGroups: 1},
	}, nil
}

func TestDataQualityHandlerParsesFilter(t *testing.T) {
	srv := &fakeDataQualitySrv{}
	c, rec := newTestContext(http.MethodGet, "/data-quality/issues?collection=Groups&since=2024-05-01&limit=9999", nil)

	NewDataQualityHandler(srv).Issues(c)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, srv.filter.Collection)
	assert.Equal(t, models.CollectionGroups, *srv.filter.Collection)
	require.NotNil(t, srv.filter.Since)
	assert.True(t, srv.filter.Since.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, maxIssueLimit, srv.filter.Limit)
	assert.Contains(t, rec.Body.String(), `"byCollection":{"groups":1}`)
}

func TestDataQualityHandlerValidation(t *testing.T) {
	for _, target := range []string{
		"/data-quality/issues?collection=grades",
		"/data-quality/issues?since=ayer",
		"/data-quality/issues?limit=-1",
	} {
		c, rec := newTestContext(http.MethodGet, target, nil)
		NewDataQualityHandler(&fakeDataQualitySrv{}).Issues(c)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestDataQualityHandlerServiceError(t *testing.T) {
	c, rec := newTestContext(http.MethodGet, "/data-quality/issues", nil)
	c.Request = c.Request.WithContext(requestid.WithContext(c.Request.Context(), "req-9"))
	NewDataQualityHandler(&fakeDataQualitySrv{err: errors.New("db down")}).Issues(c)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
