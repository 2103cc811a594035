package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-dashboard-api/internal/models"
	"github.com/noah-isme/academic-dashboard-api/internal/reconcile"
	"github.com/noah-isme/academic-dashboard-api/internal/snapshot"
	appErrors "github.com/noah-isme/academic-dashboard-api/pkg/errors"
	"github.com/noah-isme/academic-dashboard-api/pkg/upstream"
)

type collectionMutator interface {
	Create(ctx context.Context, collection string, payload upstream.Record) (*upstream.Result, error)
	Update(ctx context.Context, collection, id string, payload upstream.Record) (*upstream.Result, error)
	Delete(ctx context.Context, collection, id string) (*upstream.Result, error)
}

type snapshotReloader interface {
	Load(ctx context.Context, collections ...models.Collection) *snapshot.Snapshot
	Reload(ctx context.Context, collections ...models.Collection) error
}

// EntityList is a reconciled, searched collection.
type EntityList struct {
	Collection models.Collection        `json:"collection"`
	Search     string                   `json:"search,omitempty"`
	Items      interface{}              `json:"items"`
	Total      int                      `json:"total"`
	State      snapshot.CollectionState `json:"state"`
	Banners    []string                 `json:"banners,omitempty"`
}

// MutationOutcome is the normalized result of an accepted mutation.
type MutationOutcome struct {
	ID     string        `json:"id"`
	Entity models.Entity `json:"entity,omitempty"`
}

// EntityService lists reconciled collections and forwards validated mutations
// to the academic API.
type EntityService struct {
	snapshots snapshotReloader
	upstream  collectionMutator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEntityService constructs an EntityService with its own payload validator.
func NewEntityService(snapshots snapshotReloader, mutator collectionMutator, logger *zap.Logger) (*EntityService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	validate, err := newPayloadValidator()
	if err != nil {
		return nil, err
	}
	return &EntityService{snapshots: snapshots, upstream: mutator, validator: validate, logger: logger}, nil
}

// newPayloadValidator reports fields by their JSON names and knows the
// dashboard's role, priority and date formats.
func newPayloadValidator() (*validator.Validate, error) {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	rules := map[string]validator.Func{
		"role": func(fl validator.FieldLevel) bool {
			return reconcile.InternalRole(fl.Field().String()).Known()
		},
		"priority": func(fl validator.FieldLevel) bool {
			_, ok := models.ParsePriority(fl.Field().String())
			return ok
		},
		"isodate": func(fl validator.FieldLevel) bool {
			_, ok := models.RawRecord{"v": fl.Field().String()}.Time("v")
			return ok
		},
	}
	for tag, fn := range rules {
		if err := validate.RegisterValidation(tag, fn); err != nil {
			return nil, fmt.Errorf("register %s validation: %w", tag, err)
		}
	}
	return validate, nil
}

// UserPayload is the accepted shape of a user mutation.
type UserPayload struct {
	Email           string `json:"email" validate:"required,email"`
	FirstName       string `json:"firstName" validate:"required"`
	LastName        string `json:"lastName"`
	Role            string `json:"role" validate:"required,role"`
	Status          string `json:"status" validate:"omitempty,oneof=active inactive"`
	Password        string `json:"password" validate:"omitempty,min=8"`
	ConfirmPassword string `json:"confirmPassword" validate:"eqfield=Password"`
}

// CareerPayload is the accepted shape of a career mutation.
type CareerPayload struct {
	Name        string `json:"name" validate:"required"`
	Code        string `json:"code" validate:"required"`
	Description string `json:"description"`
	Duration    int    `json:"duration" validate:"omitempty,min=1,max=20"`
	Status      string `json:"status" validate:"omitempty,oneof=active inactive"`
}

// SubjectPayload is the accepted shape of a subject mutation.
type SubjectPayload struct {
	Name     string `json:"name" validate:"required"`
	Code     string `json:"code" validate:"required"`
	CareerID string `json:"careerId" validate:"required"`
	Credits  int    `json:"credits" validate:"omitempty,min=1"`
	Semester int    `json:"semester" validate:"omitempty,min=1,max=20"`
}

// GroupPayload is the accepted shape of a group mutation.
type GroupPayload struct {
	Name       string   `json:"name" validate:"required"`
	SubjectID  string   `json:"subjectId" validate:"required"`
	CareerID   string   `json:"careerId"`
	TeacherID  string   `json:"teacherId"`
	Capacity   int      `json:"capacity" validate:"omitempty,min=1"`
	Schedule   string   `json:"schedule"`
	StudentIDs []string `json:"studentIds" validate:"omitempty,dive,required"`
}

// AlertPayload is the accepted shape of an alert mutation.
type AlertPayload struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Priority    string `json:"priority" validate:"omitempty,priority"`
	StudentID   string `json:"studentId"`
	Status      string `json:"status" validate:"omitempty,oneof=active resolved"`
}

// TutoriaPayload is the accepted shape of a tutoring session mutation.
type TutoriaPayload struct {
	Title     string `json:"title" validate:"required"`
	TutorID   string `json:"tutorId" validate:"required"`
	StudentID string `json:"studentId"`
	Date      string `json:"date" validate:"omitempty,isodate"`
	Duration  int    `json:"duration" validate:"omitempty,min=1"`
	Status    string `json:"status" validate:"omitempty,oneof=scheduled completed cancelled"`
}

// CapacitacionPayload is the accepted shape of a training mutation.
type CapacitacionPayload struct {
	Title    string `json:"title" validate:"required"`
	Date     string `json:"date" validate:"omitempty,isodate"`
	Duration int    `json:"duration" validate:"omitempty,min=1"`
	Status   string `json:"status" validate:"omitempty,oneof=scheduled completed cancelled"`
}

// ReportPayload is the accepted shape of a report mutation.
type ReportPayload struct {
	Title     string   `json:"title" validate:"required"`
	Type      string   `json:"type"`
	GroupID   string   `json:"groupId"`
	StudentID string   `json:"studentId"`
	Grade     *float64 `json:"grade" validate:"omitempty,min=0,max=100"`
	Status    string   `json:"status" validate:"omitempty,oneof=pending approved rejected"`
}

// List returns the reconciled collection filtered by term.
func (s *EntityService) List(ctx context.Context, collection models.Collection, term string) (*EntityList, error) {
	if !collection.Valid() {
		return nil, appErrors.Clone(appErrors.ErrUnknownCollection, "unknown collection "+string(collection))
	}
	snap := s.snapshots.Load(ctx, dependencies(collection)...)
	if err := ctx.Err(); err != nil {
		return nil, appErrors.CloneWrap(appErrors.ErrUpstreamUnavailable, err, "request cancelled")
	}
	state := snap.State(collection)
	if state.Status == snapshot.StatusFailed {
		return nil, appErrors.CloneWrap(appErrors.ErrUpstreamUnavailable, errors.New(state.Error), state.Message)
	}

	list := &EntityList{Collection: collection, Search: strings.TrimSpace(term), State: state, Banners: snap.Banners()}
	switch collection {
	case models.CollectionUsers:
		setItems(list, reconcile.FilterBySearch(snap.Users(), term, reconcile.UserFields))
	case models.CollectionCareers:
		views := reconcile.ReconcileCareers(snap.Careers(), snap.Subjects(), snap.Groups())
		setItems(list, reconcile.FilterBySearch(views, term, func(v reconcile.CareerView) []string { return reconcile.CareerFields(v.Career) }))
	case models.CollectionSubjects:
		views := reconcile.ReconcileSubjects(snap.Subjects(), snap.Careers(), snap.Groups())
		setItems(list, reconcile.FilterBySearch(views, term, reconcile.SubjectViewFields))
	case models.CollectionGroups:
		views := reconcile.ReconcileGroups(snap.Groups(), snap.Careers(), snap.Subjects(), snap.Users())
		reconcile.SortGroupViews(views)
		setItems(list, reconcile.FilterBySearch(views, term, reconcile.GroupViewFields))
	case models.CollectionAlerts:
		alerts := append([]models.Alert(nil), reconcile.FilterBySearch(snap.Alerts(), term, reconcile.AlertFields)...)
		sortAlerts(alerts)
		setItems(list, alerts)
	case models.CollectionTutorias:
		setItems(list, reconcile.FilterBySearch(snap.Tutorias(), term, reconcile.TutoriaFields))
	case models.CollectionCapacitaciones:
		setItems(list, reconcile.FilterBySearch(snap.Capacitaciones(), term, reconcile.CapacitacionFields))
	case models.CollectionReports:
		setItems(list, reconcile.FilterBySearch(snap.Reports(), term, reconcile.ReportFields))
	}
	return list, nil
}

func setItems[T any](l *EntityList, items []T) {
	if items == nil {
		items = []T{}
	}
	l.Items = items
	l.Total = len(items)
}

// Create validates payload and creates the record upstream.
func (s *EntityService) Create(ctx context.Context, collection models.Collection, payload map[string]interface{}) (*MutationOutcome, error) {
	body, err := s.prepare(collection, payload, true)
	if err != nil {
		return nil, err
	}
	res, err := s.upstream.Create(ctx, string(collection), body)
	return s.settle(ctx, collection, "create", res, err)
}

// Update validates payload and replaces record id upstream.
func (s *EntityService) Update(ctx context.Context, collection models.Collection, id string, payload map[string]interface{}) (*MutationOutcome, error) {
	if strings.TrimSpace(id) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "id is required")
	}
	body, err := s.prepare(collection, payload, false)
	if err != nil {
		return nil, err
	}
	res, err := s.upstream.Update(ctx, string(collection), id, body)
	return s.settle(ctx, collection, "update", res, err)
}

// Delete removes record id upstream.
func (s *EntityService) Delete(ctx context.Context, collection models.Collection, id string) error {
	if !collection.Valid() {
		return appErrors.Clone(appErrors.ErrUnknownCollection, "unknown collection "+string(collection))
	}
	if strings.TrimSpace(id) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "id is required")
	}
	if s.upstream == nil {
		return appErrors.Clone(appErrors.ErrUpstreamUnavailable, "academic API client not configured")
	}
	res, err := s.upstream.Delete(ctx, string(collection), id)
	_, err = s.settle(ctx, collection, "delete", res, err)
	return err
}

// prepare validates payload against the collection shape and returns the body
// forwarded upstream.
func (s *EntityService) prepare(collection models.Collection, payload map[string]interface{}, create bool) (upstream.Record, error) {
	if !collection.Valid() {
		return nil, appErrors.Clone(appErrors.ErrUnknownCollection, "unknown collection "+string(collection))
	}
	if s.upstream == nil {
		return nil, appErrors.Clone(appErrors.ErrUpstreamUnavailable, "academic API client not configured")
	}
	if len(payload) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "payload is required")
	}

	target := payloadFor(collection)
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	if err := json.Unmarshal(encoded, target); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return nil, invalidPayload(err, map[string]string{typeErr.Field: "tiene un tipo de dato inválido"})
		}
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	if err := s.validator.Struct(target); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			return nil, invalidPayload(err, fieldMessages(fieldErrs))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	body := make(upstream.Record, len(payload))
	for k, v := range payload {
		body[k] = v
	}
	if user, ok := target.(*UserPayload); ok {
		if create && user.Password == "" {
			return nil, invalidPayload(nil, map[string]string{"password": "es obligatorio"})
		}
		delete(body, "confirmPassword")
		body["role"] = string(reconcile.ExternalRole(reconcile.InternalRole(user.Role)))
	}
	return body, nil
}

// invalidPayload builds the validation error returned to clients, listing
// every failing field in the message and in details.
func invalidPayload(cause error, details map[string]string) *appErrors.Error {
	fields := make([]string, 0, len(details))
	for field := range details {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+" "+details[field])
	}
	return appErrors.WithDetails(appErrors.ErrValidation, cause, "invalid payload: "+strings.Join(parts, "; "), details)
}

func fieldMessages(errs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(errs))
	for _, fe := range errs {
		if _, seen := out[fe.Field()]; seen {
			continue
		}
		out[fe.Field()] = fieldMessage(fe)
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "es obligatorio"
	case "email":
		return "debe ser un correo electrónico válido"
	case "eqfield":
		return "no coincide con la contraseña"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("debe tener al menos %s caracteres", fe.Param())
		}
		return "debe ser mayor o igual a " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("debe tener como máximo %s caracteres", fe.Param())
		}
		return "debe ser menor o igual a " + fe.Param()
	case "oneof":
		return "debe ser uno de: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "role":
		return "no es un rol conocido"
	case "priority":
		return "no es una prioridad conocida"
	case "isodate":
		return "no es una fecha válida"
	}
	return "no es válido"
}

func (s *EntityService) settle(ctx context.Context, collection models.Collection, op string, res *upstream.Result, err error) (*MutationOutcome, error) {
	if err != nil {
		return nil, err
	}
	if !res.OK() {
		s.logger.Info("academic API rejected mutation",
			zap.String("collection", string(collection)),
			zap.String("op", op),
			zap.Int("status", res.Status),
			zap.String("message", res.Message),
		)
		if res.Status == http.StatusNotFound {
			return nil, appErrors.Clone(appErrors.ErrNotFound, res.Message)
		}
		return nil, appErrors.Clone(appErrors.ErrMutationRejected, res.Message)
	}

	if err := s.snapshots.Reload(ctx, collection); err != nil {
		s.logger.Warn("cache invalidation after mutation failed", zap.String("collection", string(collection)), zap.Error(err))
	}

	out := &MutationOutcome{ID: res.ID}
	if res.Entity != nil {
		if entity, err := reconcile.Normalize(models.RawRecord(res.Entity), collection); err == nil {
			out.Entity = entity
		}
	}
	return out, nil
}

// dependencies lists the collections needed to reconcile c.
func dependencies(c models.Collection) []models.Collection {
	switch c {
	case models.CollectionCareers:
		return []models.Collection{c, models.CollectionSubjects, models.CollectionGroups}
	case models.CollectionSubjects:
		return []models.Collection{c, models.CollectionCareers, models.CollectionGroups}
	case models.CollectionGroups:
		return []models.Collection{c, models.CollectionCareers, models.CollectionSubjects, models.CollectionUsers}
	default:
		return []models.Collection{c}
	}
}

func payloadFor(c models.Collection) interface{} {
	switch c {
	case models.CollectionUsers:
		return &UserPayload{}
	case models.CollectionCareers:
		return &CareerPayload{}
	case models.CollectionSubjects:
		return &SubjectPayload{}
	case models.CollectionGroups:
		return &GroupPayload{}
	case models.CollectionAlerts:
		return &AlertPayload{}
	case models.CollectionTutorias:
		return &TutoriaPayload{}
	case models.CollectionCapacitaciones:
		return &CapacitacionPayload{}
	default:
		return &ReportPayload{}
	}
}
