package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coach-lineup-api/internal/models"
	"github.com/noah-isme/coach-lineup-api/internal/service"
	"github.com/noah-isme/coach-lineup-api/pkg/response"
)

type lineupService interface {
	List(ctx context.Context, teamID int64) ([]models.LineupTemplate, error)
	Create(ctx context.Context, teamID int64, req service.CreateLineupRequest) (*models.LineupDetail, error)
	Get(ctx context.Context, id int64) (*models.LineupDetail, error)
	AssignSlot(ctx context.Context, slotID int64, req service.AssignSlotRequest) (*models.AssignmentResult, error)
	BulkAssign(ctx context.Context, templateID int64, req service.BulkAssignRequest) (*models.AssignmentResult, error)
	MarkSaved(ctx context.Context, id int64) (*models.LineupTemplate, error)
	AvailablePlayers(ctx context.Context, teamID, templateID int64) ([]models.Player, error)
}

type lineupDocumentService interface {
	Export(ctx context.Context, templateID int64) ([]byte, string, error)
	Check(ctx context.Context, templateID int64) (*models.PDFReadiness, error)
}

// LineupHandler exposes lineup template and slot assignment endpoints.
type LineupHandler struct {
	service lineupService
	pdf     lineupDocumentService
}

// NewLineupHandler builds a lineup handler.
func NewLineupHandler(service lineupService, pdf lineupDocumentService) *LineupHandler {
	return &LineupHandler{service: service, pdf: pdf}
}

// List godoc
// @Summary List a team's lineup templates, newest first
// @Tags Lineups
// @Produce json
// @Param team_id path int true "Team ID"
// @Success 200 {object} response.Envelope
// @Router /teams/{team_id}/lineups [get]
func (h *LineupHandler) List(c *gin.Context) {
	teamID, valid := pathID(c, "team_id")
	if !valid {
		return
	}
	templates, err := h.service.List(c.Request.Context(), teamID)
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, templates)
}

// Create godoc
// @Summary Create a lineup template with its 20 seeded slots
// @Tags Lineups
// @Accept json
// @Produce json
// @Param team_id path int true "Team ID"
// @Param payload body service.CreateLineupRequest true "Lineup payload"
// @Success 201 {object} response.Envelope
// @Router /teams/{team_id}/lineups [post]
func (h *LineupHandler) Create(c *gin.Context) {
	teamID, valid := pathID(c, "team_id")
	if !valid {
		return
	}
	var req service.CreateLineupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err, "invalid lineup payload")
		return
	}
	detail, err := h.service.Create(c.Request.Context(), teamID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, detail)
}

// Available godoc
// @Summary List team players not placed in the lineup
// @Tags Lineups
// @Produce json
// @Param team_id path int true "Team ID"
// @Param lineup_id path int true "Lineup ID"
// @Success 200 {object} response.Envelope
// @Router /teams/{team_id}/lineups/{lineup_id}/available-players [get]
func (h *LineupHandler) Available(c *gin.Context) {
	teamID, valid := pathID(c, "team_id")
	if !valid {
		return
	}
	lineupID, valid := pathID(c, "lineup_id")
	if !valid {
		return
	}
	players, err := h.service.AvailablePlayers(c.Request.Context(), teamID, lineupID)
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, players)
}

// Get godoc
// @Summary Get a lineup with slots and warnings
// @Tags Lineups
// @Produce json
// @Param lineup_id path int true "Lineup ID"
// @Success 200 {object} response.Envelope
// @Router /lineups/{lineup_id} [get]
func (h *LineupHandler) Get(c *gin.Context) {
	id, valid := pathID(c, "lineup_id")
	if !valid {
		return
	}
	detail, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, detail)
}

// AssignSlot godoc
// @Summary Assign or clear one slot
// @Description A null player_id clears the slot. Players from another team are rejected with TEAM_MISMATCH.
// @Tags Lineups
// @Accept json
// @Produce json
// @Param slot_id path int true "Slot ID"
// @Param payload body service.AssignSlotRequest true "Assignment"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /lineups/slots/{slot_id} [put]
func (h *LineupHandler) AssignSlot(c *gin.Context) {
	slotID, valid := pathID(c, "slot_id")
	if !valid {
		return
	}
	var req service.AssignSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err, "invalid assignment payload")
		return
	}
	result, err := h.service.AssignSlot(c.Request.Context(), slotID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, result)
}

// BulkAssign godoc
// @Summary Apply several slot assignments atomically
// @Tags Lineups
// @Accept json
// @Produce json
// @Param lineup_id path int true "Lineup ID"
// @Param payload body service.BulkAssignRequest true "Assignments"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /lineups/{lineup_id}/slots [put]
func (h *LineupHandler) BulkAssign(c *gin.Context) {
	id, valid := pathID(c, "lineup_id")
	if !valid {
		return
	}
	var req service.BulkAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err, "invalid assignment payload")
		return
	}
	result, err := h.service.BulkAssign(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, result)
}

// Save godoc
// @Summary Stamp the lineup as saved
// @Tags Lineups
// @Produce json
// @Param lineup_id path int true "Lineup ID"
// @Success 200 {object} response.Envelope
// @Router /lineups/{lineup_id}/save [post]
func (h *LineupHandler) Save(c *gin.Context) {
	id, valid := pathID(c, "lineup_id")
	if !valid {
		return
	}
	tpl, err := h.service.MarkSaved(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, tpl)
}

// ExportPDF godoc
// @Summary Download the lineup as PDF
// @Tags Lineups
// @Produce application/pdf
// @Param lineup_id path int true "Lineup ID"
// @Success 200 {file} binary
// @Router /lineups/{lineup_id}/export_pdf [get]
func (h *LineupHandler) ExportPDF(c *gin.Context) {
	id, valid := pathID(c, "lineup_id")
	if !valid {
		return
	}
	payload, filename, err := h.pdf.Export(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, filename, "application/pdf", payload)
}

// CheckPDF godoc
// @Summary Check whether the lineup is ready to print
// @Tags Lineups
// @Produce json
// @Param lineup_id path int true "Lineup ID"
// @Success 200 {object} response.Envelope
// @Router /lineups/{lineup_id}/pdf_check [get]
func (h *LineupHandler) CheckPDF(c *gin.Context) {
	id, valid := pathID(c, "lineup_id")
	if !valid {
		return
	}
	readiness, err := h.pdf.Check(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, readiness)
}
