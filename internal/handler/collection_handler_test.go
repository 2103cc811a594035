package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-dashboard-api/internal/models"
	"github.com/noah-isme/academic-dashboard-api/internal/service"
	"github.com/noah-isme/academic-dashboard-api/internal/snapshot"
	appErrors "github.com/noah-isme/academic-dashboard-api/pkg/errors"
	"github.com/noah-isme/academic-dashboard-api/pkg/export"
	"github.com/noah-isme/academic-dashboard-api/pkg/upstream"
)

type fakeEntitySrv struct {
	list        *service.EntityList
	err         error
	lastTerm    string
	lastPayload map[string]interface{}
	lastID      string
}

func (f *fakeEntitySrv) List(_ context.Context, collection models.Collection, term string) (*service.EntityList, error) {
	f.lastTerm = term
	if f.err != nil {
		return nil, f.err
	}
	return f.list, nil
}

func (f *fakeEntitySrv) Create(_ context.Context, _ models.Collection, payload map[string]interface{}) (*service.MutationOutcome, error) {
	f.lastPayload = payload
	return &service.MutationOutcome{ID: "new"}, f.err
}

func (f *fakeEntitySrv) Update(_ context.Context, _ models.Collection, id string, payload map[string]interface{}) (*service.MutationOutcome, error) {
	f.lastID, f.lastPayload = id, payload
	return &service.MutationOutcome{ID: id}, f.err
}

func (f *fakeEntitySrv) Delete(_ context.Context, _ models.Collection, id string) error {
	f.lastID = id
	return f.err
}

type fakeExportSrv struct {
	format export.Format
}

func (f *fakeExportSrv) Export(_ context.Context, collection models.Collection, _ string, format export.Format) (*service.ExportFile, error) {
	f.format = format
	if !format.Valid() {
		return nil, appErrors.ErrValidation
	}
	return &service.ExportFile{Filename: string(collection) + ".csv", ContentType: format.ContentType(), Data: []byte("a,b\n")}, nil
}

func newCollectionContext(method, target, body string, params gin.Params) (*gin.Context, *httptest.ResponseRecorder) {
	c, rec := newTestContext(method, target, &models.Principal{UserID: "adm", Role: models.RoleSuperAdmin})
	if body != "" {
		c.Request = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		c.Request.Header.Set("Content-Type", "application/json")
	}
	c.Params = params
	return c, rec
}

func TestCollectionHandlerList(t *testing.T) {
	srv := &fakeEntitySrv{list: &service.EntityList{
		Collection: models.CollectionAlerts,
		Items:      []models.Alert{{ID: "a1", Title: "Ausencias"}},
		Total:      1,
		State:      snapshot.CollectionState{Collection: models.CollectionAlerts, Status: snapshot.StatusLoaded, Cached: true},
	}}
	c, rec := newCollectionContext(http.MethodGet, "/collections/alerts?search=aus", "", gin.Params{{Key: "collection", Value: "alerts"}})

	NewCollectionHandler(srv, nil).List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "aus", srv.lastTerm)
	assert.JSONEq(t, `[{"id":"a1","title":"Ausencias","description":"","priority":"","status":""}]`, string(extractData(t, rec)))
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
}

func TestCollectionHandlerUnknownCollection(t *testing.T) {
	c, rec := newCollectionContext(http.MethodGet, "/collections/grades", "", gin.Params{{Key: "collection", Value: "grades"}})
	NewCollectionHandler(&fakeEntitySrv{}, nil).List(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCollectionHandlerMutations(t *testing.T) {
	srv := &fakeEntitySrv{}
	h := NewCollectionHandler(srv, nil)

	c, rec := newCollectionContext(http.MethodPost, "/collections/careers", `{"name":"Sistemas","code":"SIS"}`, gin.Params{{Key: "collection", Value: "careers"}})
	h.Create(c)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Sistemas", srv.lastPayload["name"])

	c, rec = newCollectionContext(http.MethodPost, "/collections/careers", `{"name":`, gin.Params{{Key: "collection", Value: "careers"}})
	h.Create(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newCollectionContext(http.MethodPut, "/collections/careers/c1", `{"name":"Sistemas"}`, gin.Params{{Key: "collection", Value: "careers"}, {Key: "id", Value: "c1"}})
	h.Update(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "c1", srv.lastID)

	srv.err = appErrors.Clone(appErrors.ErrMutationRejected, "El código ya existe")
	c, rec = newCollectionContext(http.MethodDelete, "/collections/careers/c2", "", gin.Params{{Key: "collection", Value: "careers"}, {Key: "id", Value: "c2"}})
	h.Delete(c)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "El código ya existe", decodeEnvelope(t, rec).Error["message"])

	srv.err = nil
	c, _ = newCollectionContext(http.MethodDelete, "/collections/careers/c2", "", gin.Params{{Key: "collection", Value: "careers"}, {Key: "id", Value: "c2"}})
	h.Delete(c)
	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
}

type rejectingMutator struct{ calls int }

func (m *rejectingMutator) Create(context.Context, string, upstream.Record) (*upstream.Result, error) {
	m.calls++
	return &upstream.Result{Kind: upstream.ResultOK}, nil
}

func (m *rejectingMutator) Update(context.Context, string, string, upstream.Record) (*upstream.Result, error) {
	m.calls++
	return &upstream.Result{Kind: upstream.ResultOK}, nil
}

func (m *rejectingMutator) Delete(context.Context, string, string) (*upstream.Result, error) {
	m.calls++
	return &upstream.Result{Kind: upstream.ResultOK}, nil
}

func TestCollectionHandlerCreateReportsInvalidFields(t *testing.T) {
	mutator := &rejectingMutator{}
	entities, err := service.NewEntityService(&fakeSnapshotSrv{}, mutator, nil)
	require.NoError(t, err)
	body := `{"email":"no-es-correo","firstName":"Ana","role":"teacher","password":"secreto123","confirmPassword":"otro12345"}`
	c, rec := newCollectionContext(http.MethodPost, "/collections/users", body, gin.Params{{Key: "collection", Value: "users"}})

	NewCollectionHandler(entities, nil).Create(c)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var envelope struct {
		Error struct {
			Code    string            `json:"code"`
			Message string            `json:"message"`
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
	assert.Contains(t, envelope.Error.Details, "email")
	assert.Contains(t, envelope.Error.Details, "confirmPassword")
	assert.Contains(t, envelope.Error.Message, "no coincide con la contraseña")
	assert.Zero(t, mutator.calls)
}

func TestCollectionHandlerExport(t *testing.T) {
	exports := &fakeExportSrv{}
	h := NewCollectionHandler(&fakeEntitySrv{}, exports)

	c, rec := newCollectionContext(http.MethodGet, "/collections/groups/export", "", gin.Params{{Key: "collection", Value: "groups"}})
	h.Export(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.FormatCSV, exports.format)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "groups.csv")
	assert.Equal(t, "a,b\n", rec.Body.String())

	c, rec = newCollectionContext(http.MethodGet, "/collections/groups/export?format=XLSX", "", gin.Params{{Key: "collection", Value: "groups"}})
	h.Export(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, export.Format("xlsx"), exports.format)
}

func extractData(t *testing.T, rec *httptest.ResponseRecorder) json.RawMessage {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Data
}
