package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academic-dashboard-api/internal/models"
	"github.com/noah-isme/academic-dashboard-api/internal/reconcile"
	appErrors "github.com/noah-isme/academic-dashboard-api/pkg/errors"
	"github.com/noah-isme/academic-dashboard-api/pkg/jobs"
	"github.com/noah-isme/academic-dashboard-api/pkg/middleware/requestid"
)

type dataQualityRepository interface {
	InsertBatch(ctx context.Context, issues []models.DataQualityIssue) error
	List(ctx context.Context, filter models.DataQualityFilter) ([]models.DataQualityIssue, error)
	CountByCollection(ctx context.Context, filter models.DataQualityFilter) (map[models.Collection]int, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// DataQualityConfig tunes the persistence worker pool.
type DataQualityConfig struct {
	Workers    int
	Retries    int
	RetryDelay time.Duration
}

// DataQualitySummary lists recent issues with per-collection totals.
type DataQualitySummary struct {
	Issues       []models.DataQualityIssue `json:"issues"`
	ByCollection map[models.Collection]int `json:"byCollection"`
}

// DataQualityService records the upstream records dropped while reconciling.
// Writes happen on a background queue so dashboards never wait on postgres.
type DataQualityService struct {
	repo    dataQualityRepository
	metrics *MetricsService
	logger  *zap.Logger
	queue   *jobs.Queue[[]models.DataQualityIssue]
}

// NewDataQualityService constructs the service. A nil repo keeps issues in logs only.
func NewDataQualityService(repo dataQualityRepository, metrics *MetricsService, logger *zap.Logger, cfg DataQualityConfig) *DataQualityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &DataQualityService{repo: repo, metrics: metrics, logger: logger}
	svc.queue = jobs.NewQueue[[]models.DataQualityIssue]("data-quality", svc.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.Retries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return svc
}

// Start launches the persistence workers.
func (s *DataQualityService) Start(ctx context.Context) {
	if s.repo == nil {
		return
	}
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *DataQualityService) Stop() {
	s.queue.Stop()
}

// Report queues issues for persistence without blocking the caller.
func (s *DataQualityService) Report(ctx context.Context, issues []reconcile.Issue) {
	if len(issues) == 0 {
		return
	}
	rows := toIssueRows(issues, requestid.FromContext(ctx), time.Now().UTC())
	if s.repo == nil {
		for _, row := range rows {
			s.logger.Info("data quality issue", zap.String("collection", string(row.Collection)), zap.Int("index", row.RecordIndex), zap.String("reason", row.Reason))
		}
		return
	}
	if err := s.queue.TryEnqueue(rows); err != nil {
		s.logger.Warn("data quality issues not queued", zap.Int("issues", len(rows)), zap.Error(err))
	}
}

// QueueStats reports the persistence queue counters.
func (s *DataQualityService) QueueStats() jobs.Stats {
	return s.queue.Stats()
}

// Recent lists stored issues.
func (s *DataQualityService) Recent(ctx context.Context, filter models.DataQualityFilter) (*DataQualitySummary, error) {
	if s.repo == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "data quality storage disabled")
	}
	start := time.Now()
	issues, err := s.repo.List(ctx, filter)
	s.metrics.ObserveDBQuery("data_quality_list", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list data quality issues")
	}
	counts, err := s.repo.CountByCollection(ctx, models.DataQualityFilter{Collection: filter.Collection, Since: filter.Since})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count data quality issues")
	}
	if issues == nil {
		issues = []models.DataQualityIssue{}
	}
	return &DataQualitySummary{Issues: issues, ByCollection: counts}, nil
}

// Prune deletes issues detected before now minus retention.
func (s *DataQualityService) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if s.repo == nil || retention <= 0 {
		return 0, nil
	}
	start := time.Now()
	deleted, err := s.repo.DeleteBefore(ctx, start.UTC().Add(-retention))
	s.metrics.ObserveDBQuery("data_quality_prune", time.Since(start))
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to prune data quality issues")
	}
	if deleted > 0 {
		s.logger.Info("pruned data quality issues", zap.Int64("deleted", deleted), zap.Duration("retention", retention))
	}
	return deleted, nil
}

func (s *DataQualityService) handle(ctx context.Context, job jobs.Job[[]models.DataQualityIssue]) error {
	start := time.Now()
	err := s.repo.InsertBatch(ctx, job.Payload)
	s.metrics.ObserveDBQuery("data_quality_insert", time.Since(start))
	return err
}

func toIssueRows(issues []reconcile.Issue, reqID string, now time.Time) []models.DataQualityIssue {
	var reqPtr *string
	if reqID != "" {
		reqPtr = &reqID
	}
	rows := make([]models.DataQualityIssue, 0, len(issues))
	for _, issue := range issues {
		raw, err := json.Marshal(issue.Raw)
		if err != nil {
			raw = []byte("{}")
		}
		rows = append(rows, models.DataQualityIssue{
			Collection:  issue.Collection,
			RecordIndex: issue.Index,
			Reason:      issue.Reason,
			Raw:         raw,
			RequestID:   reqPtr,
			DetectedAt:  now,
		})
	}
	return rows
}
