package handler

import (
	"context"
	"io"
	"mime/multipart"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coach-lineup-api/internal/dto"
	appErrors "github.com/noah-isme/coach-lineup-api/pkg/errors"
	"github.com/noah-isme/coach-lineup-api/pkg/response"
)

const csvContentType = "text/csv; charset=utf-8"

type rosterCSVService interface {
	Import(ctx context.Context, teamID int64, r io.Reader) (*dto.RosterImportResult, error)
	Export(ctx context.Context, teamID int64) ([]byte, string, error)
	IssuesReport(token string) ([]byte, string, error)
}

// RosterCSVHandler exposes roster import and export endpoints.
type RosterCSVHandler struct {
	service rosterCSVService
}

// NewRosterCSVHandler builds a roster CSV handler.
func NewRosterCSVHandler(service rosterCSVService) *RosterCSVHandler {
	return &RosterCSVHandler{service: service}
}

// Import godoc
// @Summary Import players from a CSV file
// @Description Header: name,position,jersey,hand,birthdate,email,phone,status. Bad optional cells are cleared and reported.
// @Tags Players
// @Accept multipart/form-data
// @Produce json
// @Param team_id path int true "Team ID"
// @Param file formData file true "Roster CSV"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /teams/{team_id}/players/import_csv [post]
func (h *RosterCSVHandler) Import(c *gin.Context) {
	teamID, valid := pathID(c, "team_id")
	if !valid {
		return
	}
	file, _, valid := uploadedFile(c)
	if !valid {
		return
	}
	defer file.Close()

	result, err := h.service.Import(c.Request.Context(), teamID, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, result)
}

// Export godoc
// @Summary Download the team roster as CSV
// @Tags Players
// @Produce text/csv
// @Param team_id path int true "Team ID"
// @Success 200 {file} binary
// @Router /teams/{team_id}/players/export_csv [get]
func (h *RosterCSVHandler) Export(c *gin.Context) {
	teamID, valid := pathID(c, "team_id")
	if !valid {
		return
	}
	payload, filename, err := h.service.Export(c.Request.Context(), teamID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, filename, csvContentType, payload)
}

// Issues godoc
// @Summary Download the issues report of a roster import
// @Tags Players
// @Produce text/csv
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /imports/issues/{token} [get]
func (h *RosterCSVHandler) Issues(c *gin.Context) {
	payload, filename, err := h.service.IssuesReport(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, filename, csvContentType, payload)
}

// uploadedFile opens the multipart "file" field and writes a 400 when absent.
func uploadedFile(c *gin.Context) (multipart.File, string, bool) {
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.WithDetails(appErrors.ErrBadRequest, "file upload required",
			appErrors.FieldError{Field: "file", Reason: "is required"}))
		return nil, "", false
	}
	file, err := header.Open()
	if err != nil {
		badBody(c, err, "failed to read upload")
		return nil, "", false
	}
	return file, header.Filename, true
}
