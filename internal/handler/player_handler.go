package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coach-lineup-api/internal/middleware"
	"github.com/noah-isme/coach-lineup-api/internal/models"
	"github.com/noah-isme/coach-lineup-api/internal/service"
	"github.com/noah-isme/coach-lineup-api/pkg/response"
)

type playerService interface {
	List(ctx context.Context, teamID int64, query service.PlayerListQuery) ([]models.Player, bool, error)
	Get(ctx context.Context, id int64) (*models.Player, error)
	Create(ctx context.Context, teamID int64, req service.CreatePlayerRequest) (*models.Player, error)
	Update(ctx context.Context, id int64, req service.UpdatePlayerRequest) (*models.Player, error)
	Delete(ctx context.Context, id int64) error
}

// PlayerHandler exposes roster endpoints.
type PlayerHandler struct {
	service playerService
}

// NewPlayerHandler builds a player handler.
func NewPlayerHandler(service playerService) *PlayerHandler {
	return &PlayerHandler{service: service}
}

// List godoc
// @Summary List a team's players
// @Tags Players
// @Produce json
// @Param team_id path int true "Team ID"
// @Param position query string false "F, D or G"
// @Param hand query string false "L or R"
// @Param birth_year query int false "Birth year"
// @Param sort_by query string false "name, position, jersey or birthdate"
// @Param sort_order query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Router /teams/{team_id}/players [get]
func (h *PlayerHandler) List(c *gin.Context) {
	teamID, valid := pathID(c, "team_id")
	if !valid {
		return
	}
	h.list(c, teamID)
}

// ListActive godoc
// @Summary List players of the active team
// @Tags Players
// @Produce json
// @Param X-Active-Team header int true "Active team ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /players [get]
func (h *PlayerHandler) ListActive(c *gin.Context) {
	teamID, valid := activeTeam(c)
	if !valid {
		return
	}
	h.list(c, teamID)
}

func (h *PlayerHandler) list(c *gin.Context, teamID int64) {
	var query service.PlayerListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		badBody(c, err, "invalid player query")
		return
	}
	players, hit, err := h.service.List(c.Request.Context(), teamID, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	ok(c, players)
}

// Create godoc
// @Summary Add a player to a team
// @Tags Players
// @Accept json
// @Produce json
// @Param team_id path int true "Team ID"
// @Param payload body service.CreatePlayerRequest true "Player payload"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /teams/{team_id}/players [post]
func (h *PlayerHandler) Create(c *gin.Context) {
	teamID, valid := pathID(c, "team_id")
	if !valid {
		return
	}
	var req service.CreatePlayerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err, "invalid player payload")
		return
	}
	player, err := h.service.Create(c.Request.Context(), teamID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, player)
}

// Get godoc
// @Summary Get a player
// @Tags Players
// @Produce json
// @Param player_id path int true "Player ID"
// @Success 200 {object} response.Envelope
// @Router /players/{player_id} [get]
func (h *PlayerHandler) Get(c *gin.Context) {
	id, valid := pathID(c, "player_id")
	if !valid {
		return
	}
	player, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, player)
}

// Update godoc
// @Summary Partially update a player
// @Description Absent fields are unchanged; an empty string clears an optional field.
// @Tags Players
// @Accept json
// @Produce json
// @Param player_id path int true "Player ID"
// @Param payload body service.UpdatePlayerRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /players/{player_id} [put]
func (h *PlayerHandler) Update(c *gin.Context) {
	id, valid := pathID(c, "player_id")
	if !valid {
		return
	}
	var req service.UpdatePlayerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err, "invalid player payload")
		return
	}
	player, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, player)
}

// Delete godoc
// @Summary Delete a player
// @Description Lineup slots holding the player become empty.
// @Tags Players
// @Param player_id path int true "Player ID"
// @Success 204
// @Router /players/{player_id} [delete]
func (h *PlayerHandler) Delete(c *gin.Context) {
	id, valid := pathID(c, "player_id")
	if !valid {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
