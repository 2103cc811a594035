package snapshot

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-dashboard-api/internal/models"
	appErrors "github.com/noah-isme/academic-dashboard-api/pkg/errors"
)

type fakeSource struct {
	records map[models.Collection][]models.RawRecord
	errs    map[models.Collection]error
	calls   int32
	delay   time.Duration
}

func (f *fakeSource) Fetch(ctx context.Context, c models.Collection) Fetched {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return Fetched{Err: ctx.Err()}
		}
	}
	if err := f.errs[c]; err != nil {
		return Fetched{Err: err}
	}
	return Fetched{Records: f.records[c]}
}

func TestLoaderLoadsCollections(t *testing.T) {
	source := &fakeSource{records: map[models.Collection][]models.RawRecord{
		models.CollectionUsers:  {{"id": "t1", "firstName": "Ana", "lastName": "Ruiz", "role": "teacher"}},
		models.CollectionGroups: {{"id": "g1", "teacherId": "t1"}, {"name": "sin id"}},
	}}
	loader := NewLoader(source, nil)

	snap := loader.Load(context.Background(), models.CollectionUsers, models.CollectionGroups, models.CollectionUsers)

	assert.Equal(t, int32(2), atomic.LoadInt32(&source.calls))
	require.Len(t, snap.Users(), 1)
	assert.Equal(t, models.RoleDocente, snap.Users()[0].Role)
	require.Len(t, snap.Groups(), 1)

	groups := snap.State(models.CollectionGroups)
	assert.Equal(t, StatusLoaded, groups.Status)
	assert.Equal(t, 1, groups.Records)
	assert.Equal(t, 1, groups.Dropped)
	assert.NotNil(t, groups.LoadedAt)

	assert.Equal(t, 1, snap.Dropped())
	require.Len(t, snap.Issues(), 1)
	assert.Equal(t, models.CollectionGroups, snap.Issues()[0].Collection)
	assert.Empty(t, snap.Banners())

	assert.Equal(t, StatusPending, snap.State(models.CollectionCareers).Status)
	assert.Nil(t, snap.Careers())
}

func TestLoaderDegradesOptionalAndFailsRequired(t *testing.T) {
	source := &fakeSource{
		records: map[models.Collection][]models.RawRecord{
			models.CollectionGroups: {{"id": "g1", "careerId": "c1"}},
		},
		errs: map[models.Collection]error{
			models.CollectionAlerts:  appErrors.ErrNotImplemented,
			models.CollectionCareers: appErrors.ErrUpstreamUnavailable,
		},
	}
	snap := NewLoader(source, nil).Load(context.Background(),
		models.CollectionGroups, models.CollectionAlerts, models.CollectionCareers)

	alerts := snap.State(models.CollectionAlerts)
	assert.Equal(t, StatusDegraded, alerts.Status)
	assert.Empty(t, alerts.Message)
	assert.Empty(t, snap.Alerts())

	careers := snap.State(models.CollectionCareers)
	assert.Equal(t, StatusFailed, careers.Status)
	assert.Contains(t, careers.Message, "Carreras")
	assert.Equal(t, []string{careers.Message}, snap.Banners())

	assert.True(t, snap.Loaded(models.CollectionGroups))
	states := snap.States()
	require.Len(t, states, 3)
	assert.Equal(t, models.CollectionCareers, states[0].Collection)
	assert.Equal(t, models.CollectionGroups, states[1].Collection)
	assert.Equal(t, models.CollectionAlerts, states[2].Collection)
}

func TestLoaderRunsFetchesConcurrently(t *testing.T) {
	source := &fakeSource{delay: 50 * time.Millisecond}
	start := time.Now()
	snap := NewLoader(source, nil).Load(context.Background(), models.AllCollections...)
	assert.Less(t, time.Since(start), 300*time.Millisecond)
	for _, st := range snap.States() {
		assert.Equal(t, StatusLoaded, st.Status, string(st.Collection))
	}
}

func TestLoaderCancellation(t *testing.T) {
	source := &fakeSource{delay: time.Minute}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	snap := NewLoader(source, nil).Load(ctx, models.CollectionUsers, models.CollectionReports)

	users := snap.State(models.CollectionUsers)
	assert.Equal(t, StatusFailed, users.Status)
	assert.Contains(t, users.Error, context.Canceled.Error())
	assert.Equal(t, StatusDegraded, snap.State(models.CollectionReports).Status)
}
