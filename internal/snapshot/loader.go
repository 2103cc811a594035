package snapshot

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academic-dashboard-api/internal/models"
)

// Source fetches the raw records of one collection.
type Source interface {
	Fetch(ctx context.Context, collection models.Collection) Fetched
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, collection models.Collection) Fetched

// Fetch implements Source.
func (f SourceFunc) Fetch(ctx context.Context, collection models.Collection) Fetched {
	return f(ctx, collection)
}

// Loader fills snapshots from a Source.
type Loader struct {
	source Source
	logger *zap.Logger
	now    func() time.Time
}

// NewLoader builds a loader.
func NewLoader(source Source, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{source: source, logger: logger, now: time.Now}
}

// Load fetches every collection concurrently and returns once all of them have
// settled. Failures are recorded in the snapshot state, never returned. The
// fetches share ctx, so cancelling it aborts the ones still in flight.
func (l *Loader) Load(ctx context.Context, collections ...models.Collection) *Snapshot {
	collections = dedupe(collections)
	snap := New(collections...)

	var wg sync.WaitGroup
	for _, c := range collections {
		wg.Add(1)
		go func(c models.Collection) {
			defer wg.Done()
			fetched := l.source.Fetch(ctx, c)
			if fetched.Err != nil {
				level := l.logger.Warn
				if c.Optional() {
					level = l.logger.Debug
				}
				level("collection load failed", zap.String("collection", string(c)), zap.Error(fetched.Err))
			}
			snap.apply(c, fetched, l.now().UTC(), l.logger)
		}(c)
	}
	wg.Wait()
	return snap
}

func dedupe(collections []models.Collection) []models.Collection {
	seen := make(map[models.Collection]struct{}, len(collections))
	out := make([]models.Collection, 0, len(collections))
	for _, c := range collections {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
