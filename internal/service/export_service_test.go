package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-dashboard-api/internal/models"
	appErrors "github.com/noah-isme/academic-dashboard-api/pkg/errors"
	"github.com/noah-isme/academic-dashboard-api/pkg/export"
)

type captureRenderer struct {
	data export.Dataset
	err  error
}

func (c *captureRenderer) Render(data export.Dataset) ([]byte, error) {
	c.data = data
	return []byte("%PDF"), c.err
}

func newExportFixture(t *testing.T) (*ExportService, *captureRenderer) {
	entities, _, _ := newEntityFixture(t, nil)
	pdf := &captureRenderer{}
	svc := NewExportService(entities, nil, nil, pdf)
	svc.now = func() time.Time { return fixtureNow }
	return svc, pdf
}

func TestExportServiceCSV(t *testing.T) {
	svc, _ := newExportFixture(t)

	file, err := svc.Export(context.Background(), models.CollectionGroups, "derecho", export.FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "groups-20240520-120000.csv", file.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", file.ContentType)

	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(string(file.Data), "\ufeff")), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "Grupo,Carrera,Materia,Docente"))
	assert.Contains(t, lines[1], "2A,Derecho")
	assert.Contains(t, lines[2], "Sin asignar")
}

func TestExportServicePDFUsesReconciledTable(t *testing.T) {
	svc, pdf := newExportFixture(t)

	file, err := svc.Export(context.Background(), models.CollectionUsers, "", export.FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.Equal(t, "Usuarios", pdf.data.Title)
	assert.Equal(t, []string{"Nombre", "Correo", "Rol", "Estado"}, pdf.data.Headers)
	require.Len(t, pdf.data.Rows, 4)
	assert.Equal(t, "Ana Ruiz", pdf.data.Rows[0]["Nombre"])
	assert.Equal(t, "docente", pdf.data.Rows[0]["Rol"])
}

func TestExportServiceErrors(t *testing.T) {
	svc, pdf := newExportFixture(t)

	_, err := svc.Export(context.Background(), models.CollectionUsers, "", export.Format("xlsx"))
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Export(context.Background(), models.Collection("grades"), "", export.FormatCSV)
	assert.ErrorIs(t, err, appErrors.ErrUnknownCollection)

	pdf.err = errors.New("font missing")
	_, err = svc.Export(context.Background(), models.CollectionUsers, "", export.FormatPDF)
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestTableFormatsReportsAndSearchTitle(t *testing.T) {
	grade := 85.0
	list := &EntityList{
		Collection: models.CollectionReports,
		Search:     "final",
		Items:      []models.Report{{Title: "Final", Type: "general", Grade: &grade, Status: models.StatusApproved}},
	}
	data := Table(list)
	assert.Equal(t, "Reportes (búsqueda: final)", data.Title)
	require.Len(t, data.Rows, 1)
	assert.Equal(t, "85.0", data.Rows[0]["Calificación"])
	assert.Equal(t, "50%", formatPercent(50))
	assert.Equal(t, "33.3%", formatPercent(33.3))
}
