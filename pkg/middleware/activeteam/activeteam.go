package activeteam

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/coach-lineup-api/pkg/errors"
	"github.com/noah-isme/coach-lineup-api/pkg/response"
)

const (
	// HeaderKey carries the team selected in the client.
	HeaderKey  = "X-Active-Team"
	contextKey = "active_team_id"
	pathParam  = "team_id"
)

// Middleware resolves the active team for the request. The team_id path
// parameter wins over the header. A malformed value is rejected with 400.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.Param(pathParam))
		source := pathParam
		if raw == "" {
			raw = strings.TrimSpace(c.GetHeader(HeaderKey))
			source = HeaderKey
		}
		if raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				response.Error(c, appErrors.Clone(appErrors.ErrBadRequest, "invalid "+source))
				c.Abort()
				return
			}
			c.Set(contextKey, id)
		}
		c.Next()
	}
}

// Value returns the active team resolved for the request.
func Value(c *gin.Context) (int64, bool) {
	v, exists := c.Get(contextKey)
	if !exists {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
