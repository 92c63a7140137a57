package activeteam

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(seen *int64, found *bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := func(c *gin.Context) {
		*seen, *found = Value(c)
		c.Status(http.StatusOK)
	}
	r.GET("/teams/:team_id/players", Middleware(), handler)
	r.GET("/players", Middleware(), handler)
	return r
}

func TestMiddlewarePrefersPathParam(t *testing.T) {
	var seen int64
	var found bool
	r := newRouter(&seen, &found)

	req := httptest.NewRequest(http.MethodGet, "/teams/7/players", nil)
	req.Header.Set(HeaderKey, "3")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, found)
	assert.Equal(t, int64(7), seen)
}

func TestMiddlewareFallsBackToHeader(t *testing.T) {
	var seen int64
	var found bool
	r := newRouter(&seen, &found)

	req := httptest.NewRequest(http.MethodGet, "/players", nil)
	req.Header.Set(HeaderKey, "3")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(3), seen)
}

func TestMiddlewareRejectsMalformedHeader(t *testing.T) {
	var seen int64
	var found bool
	r := newRouter(&seen, &found)

	req := httptest.NewRequest(http.MethodGet, "/players", nil)
	req.Header.Set(HeaderKey, "abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, found)
}

func TestMiddlewareWithoutTeam(t *testing.T) {
	var seen int64
	var found bool
	r := newRouter(&seen, &found)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/players", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, found)
}
