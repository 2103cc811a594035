package main

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academic-dashboard-api/internal/dto"
	"github.com/noah-isme/academic-dashboard-api/internal/models"
	"github.com/noah-isme/academic-dashboard-api/internal/service"
	"github.com/noah-isme/academic-dashboard-api/internal/snapshot"
	"github.com/noah-isme/academic-dashboard-api/pkg/config"
	"github.com/noah-isme/academic-dashboard-api/pkg/logger"
	"github.com/noah-isme/academic-dashboard-api/pkg/upstream"
)

type dashboards interface {
	SuperAdmin(ctx context.Context) (*dto.SuperAdminDashboard, bool, error)
	AcademicHead(ctx context.Context) (*dto.AcademicHeadDashboard, bool, error)
	SubDirector(ctx context.Context) (*dto.SubDirectorDashboard, bool, error)
	Teacher(ctx context.Context, teacherID string) (*dto.TeacherDashboard, bool, error)
	Psychopedagogical(ctx context.Context) (*dto.PsychopedagogicalDashboard, bool, error)
	Tutor(ctx context.Context, tutorID string) (*dto.TutorDashboard, bool, error)
}

type entities interface {
	List(ctx context.Context, collection models.Collection, term string) (*service.EntityList, error)
}

type snapshots interface {
	Load(ctx context.Context, collections ...models.Collection) *snapshot.Snapshot
}

type tokenIssuer interface {
	IssueToken(user models.Principal, ttl time.Duration) (string, time.Time, error)
}

// services is what the commands run against.
type services struct {
	dashboards dashboards
	entities   entities
	snapshots  snapshots
	tokens     tokenIssuer
	logger     *zap.Logger
}

// app builds the services on first use so that --help works without config.
type app struct {
	once  sync.Once
	svc   *services
	err   error
	build func() (*services, error)
}

func newApp() *app {
	return &app{build: buildServices}
}

func (a *app) services() (*services, error) {
	a.once.Do(func() { a.svc, a.err = a.build() })
	return a.svc, a.err
}

// buildServices wires the reconciling services directly on the academic API.
// The CLI never touches redis or postgres.
func buildServices() (*services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, err
	}

	client := upstream.New(cfg.Upstream, upstream.WithLogger(logr))
	snaps := service.NewSnapshotService(service.SnapshotServiceParams{Upstream: client, Metrics: service.NewMetricsService(), Logger: logr})
	entities, err := service.NewEntityService(snaps, client, logr)
	if err != nil {
		return nil, err
	}
	return &services{
		dashboards: service.NewDashboardService(service.DashboardServiceParams{
			Snapshots: snaps,
			Logger:    logr,
			Config:    service.DashboardServiceConfig{TrendWindow: cfg.Dashboard.TrendWindow},
		}),
		entities:  entities,
		snapshots: snaps,
		tokens:    service.NewAuthService(logr, service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer}),
		logger:    logr,
	}, nil
}
