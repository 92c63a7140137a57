package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coach-lineup-api/internal/middleware"
	appErrors "github.com/noah-isme/coach-lineup-api/pkg/errors"
	"github.com/noah-isme/coach-lineup-api/pkg/middleware/activeteam"
	"github.com/noah-isme/coach-lineup-api/pkg/response"
)

// pathID parses a positive integer path parameter and writes a 400 when it
// is malformed.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, appErrors.WithDetails(appErrors.ErrBadRequest, "invalid "+name,
			appErrors.FieldError{Field: name, Reason: "must be a positive integer"}))
		return 0, false
	}
	return id, true
}

// activeTeam returns the team resolved by the activeteam middleware.
func activeTeam(c *gin.Context) (int64, bool) {
	id, ok := activeteam.Value(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrBadRequest, "no active team: set the "+activeteam.HeaderKey+" header"))
		return 0, false
	}
	return id, true
}

func badBody(c *gin.Context, err error, message string) {
	response.Error(c, appErrors.Wrap(err, appErrors.ErrBadRequest.Code, http.StatusBadRequest, message))
}

func ok(c *gin.Context, data interface{}) {
	response.JSON(c, http.StatusOK, data, middleware.Meta(c))
}
