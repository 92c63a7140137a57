package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coach-lineup-api/pkg/middleware/activeteam"
)

// Handlers bundles the API handlers mounted by RegisterRoutes.
type Handlers struct {
	Teams   *TeamHandler
	Players *PlayerHandler
	Lineups *LineupHandler
	Roster  *RosterCSVHandler
	Backup  *BackupHandler
}

// RegisterRoutes mounts the API on api. The active team is resolved for every
// route from the team_id path parameter or the X-Active-Team header.
func RegisterRoutes(api *gin.RouterGroup, h Handlers) {
	api.Use(activeteam.Middleware())

	api.GET("/teams", h.Teams.List)
	api.POST("/teams", h.Teams.Create)
	api.GET("/teams/:team_id", h.Teams.Get)

	api.GET("/teams/:team_id/players", h.Players.List)
	api.POST("/teams/:team_id/players", h.Players.Create)
	api.POST("/teams/:team_id/players/import_csv", h.Roster.Import)
	api.GET("/teams/:team_id/players/export_csv", h.Roster.Export)
	api.GET("/imports/issues/:token", h.Roster.Issues)

	api.GET("/players", h.Players.ListActive)
	api.GET("/players/:player_id", h.Players.Get)
	api.PUT("/players/:player_id", h.Players.Update)
	api.DELETE("/players/:player_id", h.Players.Delete)

	api.GET("/teams/:team_id/lineups", h.Lineups.List)
	api.POST("/teams/:team_id/lineups", h.Lineups.Create)
	api.GET("/teams/:team_id/lineups/:lineup_id/available-players", h.Lineups.Available)
	api.PUT("/lineups/slots/:slot_id", h.Lineups.AssignSlot)
	api.GET("/lineups/:lineup_id", h.Lineups.Get)
	api.PUT("/lineups/:lineup_id/slots", h.Lineups.BulkAssign)
	api.POST("/lineups/:lineup_id/save", h.Lineups.Save)
	api.GET("/lineups/:lineup_id/export_pdf", h.Lineups.ExportPDF)
	api.GET("/lineups/:lineup_id/pdf_check", h.Lineups.CheckPDF)

	api.GET("/backup", h.Backup.Backup)
	api.POST("/backup/validate", h.Backup.Validate)
	api.GET("/backup/info", h.Backup.Info)
	api.POST("/backup/cleanup", h.Backup.Cleanup)
	api.POST("/restore", h.Backup.Restore)
}
