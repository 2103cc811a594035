package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-dashboard-api/internal/models"
	"github.com/noah-isme/academic-dashboard-api/internal/reconcile"
	"github.com/noah-isme/academic-dashboard-api/internal/snapshot"
	appErrors "github.com/noah-isme/academic-dashboard-api/pkg/errors"
	"github.com/noah-isme/academic-dashboard-api/pkg/upstream"
)

type fakeUpstream struct {
	mu      sync.Mutex
	records map[string][]upstream.Record
	errs    map[string]error
	calls   map[string]int
	tokens  []string
}

func (f *fakeUpstream) FetchCollection(ctx context.Context, collection string) (*upstream.Payload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[collection]++
	token, _ := upstream.TokenFrom(ctx)
	f.tokens = append(f.tokens, token)
	if err := f.errs[collection]; err != nil {
		return nil, err
	}
	return &upstream.Payload{Shape: upstream.ShapeArray, Records: f.records[collection]}, nil
}

func (f *fakeUpstream) callCount(collection string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[collection]
}

type recordingReporter struct {
	mu      sync.Mutex
	batches [][]reconcile.Issue
}

func (r *recordingReporter) Report(_ context.Context, issues []reconcile.Issue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, issues)
}

func TestSnapshotServiceCachesCollections(t *testing.T) {
	up := &fakeUpstream{records: map[string][]upstream.Record{
		"groups": {{"id": "g1", "name": "A"}, {"name": "sin id"}},
	}}
	repo := &stubCacheRepo{}
	reporter := &recordingReporter{}
	metrics := NewMetricsService()
	svc := NewSnapshotService(SnapshotServiceParams{
		Upstream: up,
		Cache:    NewCacheService(repo, metrics, time.Minute, nil, true),
		Metrics:  metrics,
		Issues:   reporter,
	})
	ctx := context.Background()

	first := svc.Load(ctx, models.CollectionGroups)
	require.Len(t, first.Groups(), 1)
	assert.False(t, first.State(models.CollectionGroups).Cached)
	assert.Contains(t, repo.store, "snap:groups")

	second := svc.Load(ctx, models.CollectionGroups)
	require.Len(t, second.Groups(), 1)
	assert.True(t, second.State(models.CollectionGroups).Cached)
	assert.Equal(t, 1, up.callCount("groups"))

	require.Len(t, reporter.batches, 1, "issues from cached collections are not reported twice")
	assert.Equal(t, 1, reporter.batches[0][0].Index)
	assert.Equal(t, uint64(1), metrics.Snapshot().DroppedRecords)
	assert.Equal(t, uint64(1), metrics.Snapshot().UpstreamFetches)
}

func TestSnapshotServiceFailuresAreNotCached(t *testing.T) {
	up := &fakeUpstream{errs: map[string]error{
		"alerts": appErrors.ErrNotImplemented,
		"users":  appErrors.ErrUpstreamUnavailable,
	}}
	repo := &stubCacheRepo{}
	svc := NewSnapshotService(SnapshotServiceParams{Upstream: up, Cache: NewCacheService(repo, nil, time.Minute, nil, true)})

	snap := svc.Load(context.Background(), models.CollectionAlerts, models.CollectionUsers)
	assert.Equal(t, snapshot.StatusDegraded, snap.State(models.CollectionAlerts).Status)
	assert.Equal(t, snapshot.StatusFailed, snap.State(models.CollectionUsers).Status)
	assert.Len(t, snap.Banners(), 1)
	assert.Empty(t, repo.store)
}

func TestSnapshotServiceReload(t *testing.T) {
	repo := &stubCacheRepo{store: map[string][]byte{
		"snap:users": []byte("[]"), "snap:groups": []byte("[]"), "dash:teacher:t1": []byte("{}"),
	}}
	svc := NewSnapshotService(SnapshotServiceParams{Upstream: &fakeUpstream{}, Cache: NewCacheService(repo, nil, 0, nil, true)})

	require.NoError(t, svc.Reload(context.Background(), models.CollectionGroups))
	assert.Equal(t, []string{"dash:*", "snap:groups", "snap:groups@*"}, repo.patterns)
	assert.Contains(t, repo.store, "snap:users")

	require.NoError(t, svc.Reload(context.Background()))
	assert.Empty(t, repo.store)
}

func TestSnapshotServiceKeepsCallersApart(t *testing.T) {
	up := &fakeUpstream{records: map[string][]upstream.Record{"users": {{"id": "u1", "email": "a@b.com"}}}}
	repo := &stubCacheRepo{}
	svc := NewSnapshotService(SnapshotServiceParams{Upstream: up, Cache: NewCacheService(repo, nil, time.Minute, nil, true)})
	admin := upstream.WithToken(context.Background(), "superadmin-token")
	docente := upstream.WithToken(context.Background(), "docente-token")

	require.Len(t, svc.Load(admin, models.CollectionUsers).Users(), 1)
	snap := svc.Load(docente, models.CollectionUsers)
	assert.False(t, snap.State(models.CollectionUsers).Cached)
	assert.Equal(t, []string{"superadmin-token", "docente-token"}, up.tokens)

	again := svc.Load(docente, models.CollectionUsers)
	assert.True(t, again.State(models.CollectionUsers).Cached)
	assert.Equal(t, 2, up.callCount("users"))
	assert.Len(t, repo.store, 2)

	require.NoError(t, svc.Reload(context.Background(), models.CollectionUsers))
	assert.Empty(t, repo.store)
}

func TestSnapshotServiceWithoutUpstream(t *testing.T) {
	svc := NewSnapshotService(SnapshotServiceParams{})
	snap := svc.Load(context.Background(), models.CollectionCareers)
	assert.Equal(t, snapshot.StatusFailed, snap.State(models.CollectionCareers).Status)
}
