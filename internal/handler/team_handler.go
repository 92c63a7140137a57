package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coach-lineup-api/internal/middleware"
	"github.com/noah-isme/coach-lineup-api/internal/models"
	"github.com/noah-isme/coach-lineup-api/internal/service"
	"github.com/noah-isme/coach-lineup-api/pkg/response"
)

type teamService interface {
	List(ctx context.Context) ([]models.Team, bool, error)
	Get(ctx context.Context, id int64) (*models.Team, error)
	Create(ctx context.Context, req service.CreateTeamRequest) (*models.Team, error)
}

// TeamHandler exposes team endpoints.
type TeamHandler struct {
	service teamService
}

// NewTeamHandler builds a team handler.
func NewTeamHandler(service teamService) *TeamHandler {
	return &TeamHandler{service: service}
}

// List godoc
// @Summary List teams
// @Tags Teams
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /teams [get]
func (h *TeamHandler) List(c *gin.Context) {
	teams, hit, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	ok(c, teams)
}

// Get godoc
// @Summary Get a team
// @Tags Teams
// @Produce json
// @Param team_id path int true "Team ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teams/{team_id} [get]
func (h *TeamHandler) Get(c *gin.Context) {
	id, valid := pathID(c, "team_id")
	if !valid {
		return
	}
	team, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, team)
}

// Create godoc
// @Summary Create a team
// @Tags Teams
// @Accept json
// @Produce json
// @Param payload body service.CreateTeamRequest true "Team payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /teams [post]
func (h *TeamHandler) Create(c *gin.Context) {
	var req service.CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err, "invalid team payload")
		return
	}
	team, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, team)
}
