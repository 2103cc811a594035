package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academic-dashboard-api/internal/models"
	"github.com/noah-isme/academic-dashboard-api/internal/reconcile"
	"github.com/noah-isme/academic-dashboard-api/internal/snapshot"
	appErrors "github.com/noah-isme/academic-dashboard-api/pkg/errors"
	"github.com/noah-isme/academic-dashboard-api/pkg/upstream"
)

type collectionFetcher interface {
	FetchCollection(ctx context.Context, collection string) (*upstream.Payload, error)
}

type issueReporter interface {
	Report(ctx context.Context, issues []reconcile.Issue)
}

// SnapshotServiceParams groups constructor dependencies.
type SnapshotServiceParams struct {
	Upstream collectionFetcher
	Cache    *CacheService
	Metrics  *MetricsService
	Issues   issueReporter
	Logger   *zap.Logger
	TTL      time.Duration
}

// SnapshotService loads point-in-time collections from the academic API,
// serving repeated reads from the cache.
type SnapshotService struct {
	upstream collectionFetcher
	cache    *CacheService
	metrics  *MetricsService
	issues   issueReporter
	logger   *zap.Logger
	ttl      time.Duration
	loader   *snapshot.Loader
}

// NewSnapshotService constructs a SnapshotService.
func NewSnapshotService(params SnapshotServiceParams) *SnapshotService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	s := &SnapshotService{
		upstream: params.Upstream,
		cache:    params.Cache,
		metrics:  params.Metrics,
		issues:   params.Issues,
		logger:   logger,
		ttl:      ttl,
	}
	s.loader = snapshot.NewLoader(s, logger)
	return s
}

// Load fetches the collections concurrently and reports dropped records.
func (s *SnapshotService) Load(ctx context.Context, collections ...models.Collection) *snapshot.Snapshot {
	snap := s.loader.Load(ctx, collections...)
	s.metrics.RecordCollectionStates(snap.States())

	fresh := make(map[models.Collection]bool)
	for _, st := range snap.States() {
		if st.Status == snapshot.StatusLoaded && !st.Cached {
			fresh[st.Collection] = true
			s.metrics.RecordDropped(string(st.Collection), st.Dropped)
		}
	}
	if s.issues == nil {
		return snap
	}
	var report []reconcile.Issue
	for _, issue := range snap.Issues() {
		if fresh[issue.Collection] {
			report = append(report, issue)
		}
	}
	if len(report) > 0 {
		s.issues.Report(ctx, report)
	}
	return snap
}

// Fetch implements snapshot.Source.
func (s *SnapshotService) Fetch(ctx context.Context, collection models.Collection) snapshot.Fetched {
	records, cached, err := Remember(ctx, s.cache, SnapshotKey(collection), s.ttl, func() ([]models.RawRecord, bool, error) {
		records, err := s.fetchUpstream(ctx, collection)
		return records, err == nil, err
	})
	return snapshot.Fetched{Records: records, Cached: cached, Err: err}
}

func (s *SnapshotService) fetchUpstream(ctx context.Context, collection models.Collection) ([]models.RawRecord, error) {
	if s.upstream == nil {
		return nil, appErrors.Clone(appErrors.ErrUpstreamUnavailable, "academic API client not configured")
	}

	start := time.Now()
	payload, err := s.upstream.FetchCollection(ctx, string(collection))
	s.metrics.ObserveUpstreamFetch(string(collection), fetchOutcome(err), time.Since(start))
	if err != nil {
		return nil, err
	}

	records := make([]models.RawRecord, 0, len(payload.Records))
	for _, rec := range payload.Records {
		records = append(records, models.RawRecord(rec))
	}
	if payload.Skipped > 0 {
		s.logger.Warn("non-object elements in collection",
			zap.String("collection", string(collection)),
			zap.Int("skipped", payload.Skipped),
		)
	}
	return records, nil
}

// Reload drops cached collections and dashboards so the next read hits the
// academic API.
func (s *SnapshotService) Reload(ctx context.Context, collections ...models.Collection) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.InvalidateAll(ctx, ReloadPatterns(collections...)...); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to invalidate snapshot cache")
	}
	return nil
}

func fetchOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, appErrors.ErrNotImplemented):
		return "not_implemented"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "error"
	}
}
