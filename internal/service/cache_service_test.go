package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-dashboard-api/internal/models"
	appErrors "github.com/noah-isme/academic-dashboard-api/pkg/errors"
	"github.com/noah-isme/academic-dashboard-api/pkg/upstream"
)

type stubCacheRepo struct {
	store    map[string][]byte
	patterns []string
	getErr   error
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	if s.getErr != nil {
		return s.getErr
	}
	if s.store == nil {
		return appErrors.ErrCacheMiss
	}
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	s.patterns = append(s.patterns, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range s.store {
		if key == pattern || (strings.HasSuffix(pattern, "*") && strings.HasPrefix(key, prefix)) {
			delete(s.store, key)
		}
	}
	return nil
}

func TestCacheServiceGetSet(t *testing.T) {
	repo := &stubCacheRepo{}
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, time.Minute, nil, true)
	ctx := context.Background()

	var out []string
	hit, err := svc.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(ctx, "k", []string{"a"}, 0))
	hit, err = svc.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"a"}, out)

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.CacheHits)
	assert.Equal(t, uint64(1), snap.CacheMisses)
	assert.InDelta(t, 0.5, snap.CacheHitRatio, 0.001)
}

func TestCacheServiceDisabledAndErrors(t *testing.T) {
	repo := &stubCacheRepo{}
	disabled := NewCacheService(repo, nil, 0, zap.NewNop(), false)
	assert.False(t, disabled.Enabled())
	require.NoError(t, disabled.Set(context.Background(), "k", 1, 0))
	assert.Empty(t, repo.store)

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())

	failing := NewCacheService(&stubCacheRepo{getErr: errors.New("boom")}, nil, 0, nil, true)
	var out int
	hit, err := failing.Get(context.Background(), "k", &out)
	assert.Error(t, err)
	assert.False(t, hit)
}

func TestCacheServiceInvalidateAll(t *testing.T) {
	repo := &stubCacheRepo{store: map[string][]byte{"snap:users": []byte("[]"), "snap:groups": []byte("[]"), "dash:superadmin": []byte("{}")}}
	svc := NewCacheService(repo, nil, 0, nil, true)

	require.NoError(t, svc.InvalidateAll(context.Background(), "dash:*", "snap:users"))
	assert.Equal(t, []string{"dash:*", "snap:users"}, repo.patterns)
	assert.Len(t, repo.store, 1)
	assert.Contains(t, repo.store, "snap:groups")
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "snap:groups", SnapshotKey(models.CollectionGroups))
	assert.Equal(t, "dash:superadmin", DashboardKey(models.DashboardSuperAdmin, ""))
	assert.Equal(t, "dash:teacher:t1", DashboardKey(models.DashboardTeacher, "t1"))

	assert.Equal(t, []string{"dash:*", "snap:*"}, ReloadPatterns())
	assert.Equal(t, []string{"dash:*", "snap:users", "snap:users@*", "snap:alerts", "snap:alerts@*"},
		ReloadPatterns(models.CollectionUsers, models.CollectionAlerts))
}

func TestScopedKeyFollowsForwardedToken(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "snap:users", ScopedKey(ctx, "snap:users"))

	admin := ScopedKey(upstream.WithToken(ctx, "superadmin-token"), "snap:users")
	docente := ScopedKey(upstream.WithToken(ctx, "docente-token"), "snap:users")
	assert.True(t, strings.HasPrefix(admin, "snap:users@"))
	assert.NotEqual(t, admin, docente)
	assert.Equal(t, admin, ScopedKey(upstream.WithToken(ctx, "superadmin-token"), "snap:users"))
	assert.NotContains(t, admin, "superadmin-token")
}

func TestRememberCachesOnlyCompleteResults(t *testing.T) {
	repo := &stubCacheRepo{}
	svc := NewCacheService(repo, nil, time.Minute, nil, true)
	ctx := context.Background()

	calls := 0
	partial := func() (int, bool, error) { calls++; return 7, false, nil }
	out, hit, err := Remember(ctx, svc, "k", 0, partial)
	require.NoError(t, err)
	assert.Equal(t, 7, out)
	assert.False(t, hit)
	assert.Empty(t, repo.store)

	complete := func() (int, bool, error) { calls++; return 9, true, nil }
	_, _, err = Remember(ctx, svc, "k", 0, complete)
	require.NoError(t, err)
	out, hit, err = Remember(ctx, svc, "k", 0, complete)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 9, out)
	assert.Equal(t, 2, calls)

	_, _, err = Remember(ctx, svc, "other", 0, func() (int, bool, error) { return 0, true, appErrors.ErrInternal })
	assert.ErrorIs(t, err, appErrors.ErrInternal)
	assert.NotContains(t, repo.store, "other")

	out, hit, err = Remember(ctx, nil, "k", 0, partial)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 7, out)
}
