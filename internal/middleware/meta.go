package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
)

const (
	responseMetaKey = "response_meta"
	requestStartKey = "request_start"
	cacheHitKey     = "cache_hit"
	elapsedKey      = "elapsed_ms"
)

type requestStart struct {
	clock clockwork.Clock
	at    time.Time
}

// ResponseMeta starts per-request response metadata. Handlers add entries
// such as the cache flag and Meta returns them with the elapsed time.
func ResponseMeta(clock clockwork.Clock) gin.HandlerFunc {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return func(c *gin.Context) {
		c.Set(requestStartKey, requestStart{clock: clock, at: clock.Now()})
		ensureMeta(c)
		c.Next()
	}
}

// SetCacheHit flags whether the response was served from the read cache.
func SetCacheHit(c *gin.Context, hit bool) {
	ensureMeta(c)[cacheHitKey] = hit
}

// Meta returns the metadata collected so far, or nil when nothing was
// recorded for the request.
func Meta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	raw, ok := c.Get(responseMetaKey)
	if !ok {
		return nil
	}
	meta, ok := raw.(map[string]interface{})
	if !ok || len(meta) == 0 {
		return nil
	}
	if v, ok := c.Get(requestStartKey); ok {
		if start, ok := v.(requestStart); ok {
			meta[elapsedKey] = start.clock.Since(start.at).Milliseconds()
		}
	}
	return meta
}

func ensureMeta(c *gin.Context) map[string]interface{} {
	if raw, ok := c.Get(responseMetaKey); ok {
		if meta, ok := raw.(map[string]interface{}); ok {
			return meta
		}
	}
	meta := make(map[string]interface{})
	c.Set(responseMetaKey, meta)
	return meta
}
