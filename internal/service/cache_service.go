package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academic-dashboard-api/internal/models"
	appErrors "github.com/noah-isme/academic-dashboard-api/pkg/errors"
	"github.com/noah-isme/academic-dashboard-api/pkg/upstream"
)

// Key space shared by every replica. Snapshots hold raw collection records,
// dashboards hold composed payloads that depend on them.
const (
	snapshotCachePrefix  = "snap:"
	dashboardCachePrefix = "dash:"
	scopeSeparator       = "@"
)

// CacheScope identifies the credential the academic API sees for ctx: a digest
// of the caller's forwarded token, or "" when the configured service token is
// used. Data fetched under one caller's token is never served to another.
func CacheScope(ctx context.Context) string {
	token, ok := upstream.TokenFrom(ctx)
	if !ok {
		return ""
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:12])
}

// ScopedKey suffixes key with the credential scope of ctx.
func ScopedKey(ctx context.Context, key string) string {
	if scope := CacheScope(ctx); scope != "" {
		return key + scopeSeparator + scope
	}
	return key
}

// SnapshotKey is the cache key of a raw collection.
func SnapshotKey(c models.Collection) string {
	return snapshotCachePrefix + string(c)
}

// DashboardKey is the cache key of a dashboard. Personal dashboards carry the
// subject id, institution-wide ones pass an empty subject.
func DashboardKey(name, subject string) string {
	if subject == "" {
		return dashboardCachePrefix + name
	}
	return dashboardCachePrefix + name + ":" + subject
}

// ReloadPatterns lists what a reload of collections must drop across every
// credential scope. Dashboards are always dropped since any of them may read
// the reloaded collections; no collections means all of them.
func ReloadPatterns(collections ...models.Collection) []string {
	patterns := []string{dashboardCachePrefix + "*"}
	if len(collections) == 0 {
		return append(patterns, snapshotCachePrefix+"*")
	}
	for _, c := range collections {
		patterns = append(patterns, SnapshotKey(c), SnapshotKey(c)+scopeSeparator+"*")
	}
	return patterns
}

// CacheRepository abstracts persistence for cached snapshots and dashboards.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService fronts the cache repository with hit/miss metrics. Every
// failure of the backing store degrades to a miss for readers.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get decodes the entry at key into dest and reports whether it was found.
// A miss is not an error.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, appErrors.ErrCacheMiss):
		return false, nil
	}
	s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	return false, err
}

// Set stores value under key. A non-positive ttl uses the default.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Invalidate removes cached values for the provided pattern.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
		return err
	}
	return nil
}

// InvalidateAll removes every pattern, continuing past failures. The first
// error is returned.
func (s *CacheService) InvalidateAll(ctx context.Context, patterns ...string) error {
	var first error
	for _, pattern := range patterns {
		if err := s.Invalidate(ctx, pattern); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Remember serves key, scoped to the caller's credential, from cache or builds
// it. build reports whether its result may be stored; partial results are
// returned but never cached.
func Remember[T any](ctx context.Context, cache *CacheService, key string, ttl time.Duration, build func() (T, bool, error)) (T, bool, error) {
	key = ScopedKey(ctx, key)
	var cached T
	if hit, _ := cache.Get(ctx, key, &cached); hit {
		return cached, true, nil
	}
	out, cacheable, err := build()
	if err != nil || !cacheable {
		return out, false, err
	}
	_ = cache.Set(ctx, key, out, ttl)
	return out, false, nil
}
