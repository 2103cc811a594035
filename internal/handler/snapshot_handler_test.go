package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-dashboard-api/internal/models"
	"github.com/noah-isme/academic-dashboard-api/internal/snapshot"
	appErrors "github.com/noah-isme/academic-dashboard-api/pkg/errors"
)

type fakeSnapshotSrv struct {
	reloaded []models.Collection
	loaded   []models.Collection
	failing  map[models.Collection]bool
}

func (f *fakeSnapshotSrv) Reload(_ context.Context, collections ...models.Collection) error {
	f.reloaded = collections
	return nil
}

func (f *fakeSnapshotSrv) Load(ctx context.Context, collections ...models.Collection) *snapshot.Snapshot {
	f.loaded = collections
	source := snapshot.SourceFunc(func(_ context.Context, c models.Collection) snapshot.Fetched {
		if f.failing[c] {
			return snapshot.Fetched{Err: appErrors.ErrUpstreamUnavailable}
		}
		return snapshot.Fetched{}
	})
	return snapshot.NewLoader(source, nil).Load(ctx, collections...)
}

type reloadEnvelope struct {
	Data []snapshot.CollectionState `json:"data"`
	Meta map[string]interface{}     `json:"meta"`
}

func reloadSelected(t *testing.T, srv *fakeSnapshotSrv) reloadEnvelope {
	t.Helper()
	c, rec := newTestContext(http.MethodPost, "/snapshots/reload", nil)
	c.Request = httptest.NewRequest(http.MethodPost, "/snapshots/reload", bytes.NewBufferString(`{"collections":["groups","reports"]}`))
	c.Request.Header.Set("Content-Type", "application/json")

	NewSnapshotHandler(srv).Reload(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []models.Collection{models.CollectionGroups, models.CollectionReports}, srv.reloaded)

	var envelope reloadEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 2)
	return envelope
}

func TestSnapshotHandlerReloadDegradesOptionalCollection(t *testing.T) {
	srv := &fakeSnapshotSrv{failing: map[models.Collection]bool{models.CollectionReports: true}}

	envelope := reloadSelected(t, srv)

	assert.Equal(t, []interface{}{"reports"}, envelope.Meta["degraded"])
	assert.NotContains(t, envelope.Meta, "banners")
}

func TestSnapshotHandlerReloadBannersFailedRequiredCollection(t *testing.T) {
	srv := &fakeSnapshotSrv{failing: map[models.Collection]bool{models.CollectionGroups: true}}

	envelope := reloadSelected(t, srv)

	assert.Equal(t, []interface{}{"groups"}, envelope.Meta["degraded"])
	assert.NotEmpty(t, envelope.Meta["banners"])
}

func TestSnapshotHandlerReloadAll(t *testing.T) {
	srv := &fakeSnapshotSrv{}
	c, rec := newTestContext(http.MethodPost, "/snapshots/reload", nil)

	NewSnapshotHandler(srv).Reload(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, srv.reloaded)
	assert.Equal(t, models.AllCollections, srv.loaded)
}

func TestSnapshotHandlerRejectsUnknownCollection(t *testing.T) {
	srv := &fakeSnapshotSrv{}
	c, rec := newTestContext(http.MethodPost, "/snapshots/reload", nil)
	c.Request = httptest.NewRequest(http.MethodPost, "/snapshots/reload", bytes.NewBufferString(`{"collections":["grades"]}`))

	NewSnapshotHandler(srv).Reload(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Nil(t, srv.reloaded)
}
