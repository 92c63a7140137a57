package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/noah-isme/coach-lineup-api/internal/models"
	appErrors "github.com/noah-isme/coach-lineup-api/pkg/errors"
)

type lineupRepository interface {
	ListByTeam(ctx context.Context, teamID int64) ([]models.LineupTemplate, error)
	FindByID(ctx context.Context, id int64) (*models.LineupTemplate, error)
	CreateWithSlots(ctx context.Context, tpl *models.LineupTemplate, slots []models.LineupSlot) error
	ListSlots(ctx context.Context, templateID int64) ([]models.LineupSlot, error)
	FindSlot(ctx context.Context, slotID int64) (*models.LineupSlot, error)
	ApplyAssignments(ctx context.Context, templateID int64, assignments []models.SlotAssignment) error
	MarkSaved(ctx context.Context, id int64, savedAt time.Time) error
}

type rosterReader interface {
	ListByTeam(ctx context.Context, teamID int64) ([]models.Player, error)
	FindByID(ctx context.Context, id int64) (*models.Player, error)
	ListAvailable(ctx context.Context, teamID, templateID int64) ([]models.Player, error)
}

// CreateLineupRequest holds payload for creating lineup templates.
type CreateLineupRequest struct {
	Name  string  `json:"name" validate:"required,min=1,max=100"`
	Notes *string `json:"notes" validate:"omitempty,max=500"`
}

// AssignSlotRequest sets or clears the player of one slot.
type AssignSlotRequest struct {
	PlayerID *int64 `json:"player_id" validate:"omitempty,gt=0"`
}

// BulkAssignRequest applies several slot assignments at once.
type BulkAssignRequest struct {
	Assignments []models.SlotAssignment `json:"assignments" validate:"required,min=1,dive"`
}

// LineupService owns lineup templates and the slot assignment rules.
type LineupService struct {
	repo      lineupRepository
	players   rosterReader
	teams     teamLookup
	metrics   *MetricsService
	validator *validator.Validate
	clock     clockwork.Clock
	logger    *zap.Logger
}

// NewLineupService constructs the lineup service.
func NewLineupService(repo lineupRepository, players rosterReader, teams teamLookup, metrics *MetricsService, validate *validator.Validate, clock clockwork.Clock, logger *zap.Logger) *LineupService {
	if validate == nil {
		validate = NewValidator()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LineupService{repo: repo, players: players, teams: teams, metrics: metrics, validator: validate, clock: clock, logger: logger}
}

// List returns the team's templates, newest first.
func (s *LineupService) List(ctx context.Context, teamID int64) ([]models.LineupTemplate, error) {
	if err := ensureTeam(ctx, s.teams, teamID); err != nil {
		return nil, err
	}
	templates, err := s.repo.ListByTeam(ctx, teamID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lineups")
	}
	return templates, nil
}

// Create inserts a template and seeds its slots in one transaction.
func (s *LineupService) Create(ctx context.Context, teamID int64, req CreateLineupRequest) (*models.LineupDetail, error) {
	req.Name = strings.TrimSpace(req.Name)
	clearBlank(&req.Notes)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid lineup payload")
	}
	if err := ensureTeam(ctx, s.teams, teamID); err != nil {
		return nil, err
	}

	tpl := &models.LineupTemplate{TeamID: teamID, Name: req.Name, Notes: req.Notes, CreatedAt: s.clock.Now().UTC()}
	slots := SeedLineupSlots()
	if err := s.repo.CreateWithSlots(ctx, tpl, slots); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create lineup")
	}
	s.logger.Info("lineup created", zap.Int64("lineup_id", tpl.ID), zap.Int64("team_id", teamID), zap.Int("slots", len(slots)))

	views := buildSlotViews(slots, nil)
	return &models.LineupDetail{LineupTemplate: *tpl, Slots: views, Warnings: EvaluateWarnings(views)}, nil
}

// Get returns the template with ordered slots and freshly computed warnings.
func (s *LineupService) Get(ctx context.Context, id int64) (*models.LineupDetail, error) {
	tpl, err := s.loadTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	views, err := s.slotViews(ctx, tpl)
	if err != nil {
		return nil, err
	}
	return &models.LineupDetail{LineupTemplate: *tpl, Slots: views, Warnings: EvaluateWarnings(views)}, nil
}

// AssignSlot sets or clears one slot. Assigning a player from another team is
// rejected and leaves the slot unchanged.
func (s *LineupService) AssignSlot(ctx context.Context, slotID int64, req AssignSlotRequest) (*models.AssignmentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid assignment payload")
	}
	slot, err := s.repo.FindSlot(ctx, slotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load slot")
	}
	tpl, err := s.loadTemplate(ctx, slot.TemplateID)
	if err != nil {
		return nil, err
	}
	roster, err := s.roster(ctx, tpl.TeamID)
	if err != nil {
		return nil, err
	}
	if req.PlayerID != nil {
		if err := s.checkPlayer(ctx, tpl, roster, *req.PlayerID); err != nil {
			return nil, err
		}
	}

	assignment := models.SlotAssignment{SlotID: slotID, PlayerID: req.PlayerID}
	if err := s.repo.ApplyAssignments(ctx, tpl.ID, []models.SlotAssignment{assignment}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign slot")
	}
	return s.result(ctx, tpl, roster, []int64{slotID})
}

// BulkAssign validates every assignment before writing any of them. A single
// bad item rejects the whole batch; accepted batches are written in one
// transaction.
func (s *LineupService) BulkAssign(ctx context.Context, templateID int64, req BulkAssignRequest) (*models.AssignmentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid assignment payload")
	}
	tpl, err := s.loadTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	slots, err := s.repo.ListSlots(ctx, tpl.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load slots")
	}
	inTemplate := make(map[int64]struct{}, len(slots))
	for _, slot := range slots {
		inTemplate[slot.ID] = struct{}{}
	}
	roster, err := s.roster(ctx, tpl.TeamID)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{}, len(req.Assignments))
	updated := make([]int64, 0, len(req.Assignments))
	for i, a := range req.Assignments {
		field := fmt.Sprintf("assignments[%d].slot_id", i)
		if _, ok := inTemplate[a.SlotID]; !ok {
			return nil, appErrors.WithDetails(appErrors.ErrValidation, "slot does not belong to this lineup",
				appErrors.FieldError{Field: field, Reason: fmt.Sprintf("slot %d is not part of lineup %d", a.SlotID, tpl.ID)})
		}
		if _, dup := seen[a.SlotID]; dup {
			return nil, appErrors.WithDetails(appErrors.ErrValidation, "slot listed more than once",
				appErrors.FieldError{Field: field, Reason: fmt.Sprintf("slot %d appears more than once", a.SlotID)})
		}
		seen[a.SlotID] = struct{}{}
		if a.PlayerID != nil {
			if err := s.checkPlayer(ctx, tpl, roster, *a.PlayerID); err != nil {
				return nil, err
			}
		}
		updated = append(updated, a.SlotID)
	}

	if err := s.repo.ApplyAssignments(ctx, tpl.ID, req.Assignments); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign slots")
	}
	return s.result(ctx, tpl, roster, updated)
}

// MarkSaved stamps the template as saved now. Calling it again moves the stamp.
func (s *LineupService) MarkSaved(ctx context.Context, id int64) (*models.LineupTemplate, error) {
	tpl, err := s.loadTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC()
	if err := s.repo.MarkSaved(ctx, tpl.ID, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save lineup")
	}
	tpl.DateSaved = &now
	return tpl, nil
}

// AvailablePlayers lists team players not assigned to any slot of the template.
func (s *LineupService) AvailablePlayers(ctx context.Context, teamID, templateID int64) ([]models.Player, error) {
	if err := ensureTeam(ctx, s.teams, teamID); err != nil {
		return nil, err
	}
	tpl, err := s.loadTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if tpl.TeamID != teamID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "lineup not found for this team")
	}
	players, err := s.players.ListAvailable(ctx, teamID, templateID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list available players")
	}
	return players, nil
}

func (s *LineupService) loadTemplate(ctx context.Context, id int64) (*models.LineupTemplate, error) {
	tpl, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lineup not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lineup")
	}
	return tpl, nil
}

func (s *LineupService) roster(ctx context.Context, teamID int64) (map[int64]*models.Player, error) {
	players, err := s.players.ListByTeam(ctx, teamID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	roster := make(map[int64]*models.Player, len(players))
	for i := range players {
		roster[players[i].ID] = &players[i]
	}
	return roster, nil
}

// checkPlayer enforces that the player exists and shares the template's team.
func (s *LineupService) checkPlayer(ctx context.Context, tpl *models.LineupTemplate, roster map[int64]*models.Player, playerID int64) error {
	if _, ok := roster[playerID]; ok {
		return nil
	}
	player, err := s.players.FindByID(ctx, playerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("player %d not found", playerID))
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load player")
	}
	if player.TeamID != tpl.TeamID {
		s.logger.Info("cross-team assignment rejected",
			zap.Int64("lineup_id", tpl.ID), zap.Int64("player_id", playerID), zap.Int64("player_team_id", player.TeamID))
		return appErrors.Clone(appErrors.ErrTeamMismatch, fmt.Sprintf("player %s is not on this lineup's team", player.Name))
	}
	return nil
}

func (s *LineupService) slotViews(ctx context.Context, tpl *models.LineupTemplate) ([]models.SlotView, error) {
	roster, err := s.roster(ctx, tpl.TeamID)
	if err != nil {
		return nil, err
	}
	return s.slotViewsWith(ctx, tpl, roster)
}

func (s *LineupService) slotViewsWith(ctx context.Context, tpl *models.LineupTemplate, roster map[int64]*models.Player) ([]models.SlotView, error) {
	slots, err := s.repo.ListSlots(ctx, tpl.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load slots")
	}
	return buildSlotViews(slots, roster), nil
}

func (s *LineupService) result(ctx context.Context, tpl *models.LineupTemplate, roster map[int64]*models.Player, updated []int64) (*models.AssignmentResult, error) {
	views, err := s.slotViewsWith(ctx, tpl, roster)
	if err != nil {
		return nil, err
	}
	warnings := EvaluateWarnings(views)
	s.metrics.RecordLineupWarnings(warnings)
	return &models.AssignmentResult{TemplateID: tpl.ID, UpdatedSlots: updated, Slots: views, Warnings: warnings}, nil
}
