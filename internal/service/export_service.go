package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academic-dashboard-api/internal/models"
	"github.com/noah-isme/academic-dashboard-api/internal/reconcile"
	appErrors "github.com/noah-isme/academic-dashboard-api/pkg/errors"
	"github.com/noah-isme/academic-dashboard-api/pkg/export"
)

type entityLister interface {
	List(ctx context.Context, collection models.Collection, term string) (*EntityList, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportFile is a rendered export ready to be sent as an attachment.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders reconciled collections as CSV or PDF.
type ExportService struct {
	entities entityLister
	csv      datasetRenderer
	pdf      datasetRenderer
	logger   *zap.Logger
	now      func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to pkg/export.
func NewExportService(entities entityLister, logger *zap.Logger, csv, pdf datasetRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{entities: entities, csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

// Export lists collection filtered by term and renders it in format.
func (s *ExportService) Export(ctx context.Context, collection models.Collection, term string, format export.Format) (*ExportFile, error) {
	if !format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	list, err := s.entities.List(ctx, collection, term)
	if err != nil {
		return nil, err
	}
	data := Table(list)

	renderer := s.csv
	if format == export.FormatPDF {
		renderer = s.pdf
	}
	body, err := renderer.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	s.logger.Info("collection exported",
		zap.String("collection", string(collection)),
		zap.String("format", string(format)),
		zap.Int("rows", len(data.Rows)),
	)
	return &ExportFile{
		Filename:    fmt.Sprintf("%s-%s.%s", collection, s.now().UTC().Format("20060102-150405"), format),
		ContentType: format.ContentType(),
		Data:        body,
	}, nil
}

// Table converts a reconciled list into display columns.
func Table(list *EntityList) export.Dataset {
	data := export.Dataset{Title: list.Collection.Label()}
	switch items := list.Items.(type) {
	case []models.User:
		data.Headers = []string{"Nombre", "Correo", "Rol", "Estado"}
		for _, u := range items {
			data.Rows = append(data.Rows, map[string]string{"Nombre": u.FullName, "Correo": u.Email, "Rol": string(u.Role), "Estado": u.Status})
		}
	case []reconcile.CareerView:
		data.Headers = []string{"Carrera", "Clave", "Duración", "Materias", "Grupos", "Estado"}
		for _, c := range items {
			data.Rows = append(data.Rows, map[string]string{
				"Carrera": c.Name, "Clave": c.Code, "Duración": strconv.Itoa(c.Duration),
				"Materias": strconv.Itoa(c.SubjectCount), "Grupos": strconv.Itoa(c.GroupCount), "Estado": c.Status,
			})
		}
	case []reconcile.SubjectView:
		data.Headers = []string{"Materia", "Clave", "Carrera", "Créditos", "Semestre", "Grupos"}
		for _, v := range items {
			data.Rows = append(data.Rows, map[string]string{
				"Materia": v.Name, "Clave": v.Code, "Carrera": v.CareerName, "Créditos": strconv.Itoa(v.Credits),
				"Semestre": strconv.Itoa(v.Semester), "Grupos": strconv.Itoa(v.GroupCount),
			})
		}
	case []reconcile.GroupView:
		data.Headers = []string{"Grupo", "Carrera", "Materia", "Docente", "Estudiantes", "Capacidad", "Ocupación", "Horario"}
		for _, v := range items {
			data.Rows = append(data.Rows, map[string]string{
				"Grupo": v.Name, "Carrera": v.CareerName, "Materia": v.SubjectName, "Docente": v.TeacherName,
				"Estudiantes": strconv.Itoa(v.StudentCount), "Capacidad": strconv.Itoa(v.Capacity),
				"Ocupación": formatPercent(v.Occupancy), "Horario": v.Schedule,
			})
		}
	case []models.Alert:
		data.Headers = []string{"Título", "Prioridad", "Estado", "Fecha"}
		for _, a := range items {
			data.Rows = append(data.Rows, map[string]string{"Título": a.Title, "Prioridad": string(a.Priority), "Estado": a.Status, "Fecha": formatDate(a.CreatedAt)})
		}
	case []models.Tutoria:
		data.Headers = []string{"Título", "Fecha", "Duración", "Estado"}
		for _, t := range items {
			data.Rows = append(data.Rows, map[string]string{"Título": t.Title, "Fecha": formatDate(t.Date), "Duración": strconv.Itoa(t.Duration) + " min", "Estado": t.Status})
		}
	case []models.Capacitacion:
		data.Headers = []string{"Título", "Fecha", "Duración", "Participantes", "Estado"}
		for _, c := range items {
			data.Rows = append(data.Rows, map[string]string{
				"Título": c.Title, "Fecha": formatDate(c.Date), "Duración": strconv.Itoa(c.Duration) + " min",
				"Participantes": strconv.Itoa(len(c.ParticipantIDs)), "Estado": c.Status,
			})
		}
	case []models.Report:
		data.Headers = []string{"Título", "Tipo", "Periodo", "Calificación", "Estado"}
		for _, r := range items {
			grade := ""
			if r.Grade != nil {
				grade = strconv.FormatFloat(*r.Grade, 'f', 1, 64)
			}
			data.Rows = append(data.Rows, map[string]string{"Título": r.Title, "Tipo": r.Type, "Periodo": r.Period, "Calificación": grade, "Estado": r.Status})
		}
	}
	if list.Search != "" {
		data.Title = fmt.Sprintf("%s (búsqueda: %s)", data.Title, list.Search)
	}
	return data
}

func formatPercent(v float64) string {
	return strings.TrimSuffix(strconv.FormatFloat(v, 'f', 1, 64), ".0") + "%"
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
