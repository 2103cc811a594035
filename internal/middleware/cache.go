package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-dashboard-api/internal/snapshot"
)

const (
	responseMetaKey  = "response_meta"
	requestStartKey  = "response_meta_start"
	cacheHitKey      = "cache_hit"
	degradedKey      = "degraded"
	processingTimeMs = "processing_time_ms"

	// CacheHeader reports HIT or MISS for responses served from the dashboard cache.
	CacheHeader = "X-Cache"
	// DegradedHeader lists the collections a response was built without.
	DegradedHeader = "X-Data-Degraded"
)

// WithResponseMeta initialises response metadata storage on the request context.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(requestStartKey, time.Now())
		c.Set(responseMetaKey, map[string]interface{}{})
		c.Next()
	}
}

// SetCacheHit records cache hit information for the current response.
func SetCacheHit(c *gin.Context, hit bool) {
	ensureMeta(c)[cacheHitKey] = hit
	if hit {
		c.Header(CacheHeader, "HIT")
	} else {
		c.Header(CacheHeader, "MISS")
	}
}

// SetLoadStates records the collections that did not load, either degraded to
// empty or failed, so clients can tell a partial response from a complete one.
func SetLoadStates(c *gin.Context, states []snapshot.CollectionState) {
	var degraded []string
	for _, st := range states {
		if st.Status == snapshot.StatusDegraded || st.Status == snapshot.StatusFailed {
			degraded = append(degraded, string(st.Collection))
		}
	}
	if len(degraded) == 0 {
		return
	}
	ensureMeta(c)[degradedKey] = degraded
	c.Header(DegradedHeader, strings.Join(degraded, ","))
}

// ExtractMeta returns the metadata map stored on the context, creating it when
// the request did not pass through WithResponseMeta. Handlers call it right
// before writing, which is when the processing time is stamped.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	meta := ensureMeta(c)
	if v, ok := c.Get(requestStartKey); ok {
		if start, ok := v.(time.Time); ok {
			meta[processingTimeMs] = time.Since(start).Milliseconds()
		}
	}
	return meta
}

func ensureMeta(c *gin.Context) map[string]interface{} {
	if meta, exists := c.Get(responseMetaKey); exists {
		if typed, ok := meta.(map[string]interface{}); ok {
			return typed
		}
	}
	newMeta := make(map[string]interface{})
	c.Set(responseMetaKey, newMeta)
	return newMeta
}
