package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/noah-isme/coach-lineup-api/internal/models"
	"github.com/noah-isme/coach-lineup-api/pkg/database"
	appErrors "github.com/noah-isme/coach-lineup-api/pkg/errors"
)

type playerRepository interface {
	List(ctx context.Context, filter models.PlayerFilter) ([]models.Player, error)
	FindByID(ctx context.Context, id int64) (*models.Player, error)
	Create(ctx context.Context, player *models.Player) error
	Update(ctx context.Context, player *models.Player) error
	Delete(ctx context.Context, id int64) error
}

type teamLookup interface {
	FindByID(ctx context.Context, id int64) (*models.Team, error)
}

// PlayerListQuery holds the roster list query string.
type PlayerListQuery struct {
	Position  string `form:"position" json:"position" validate:"omitempty,oneof=F D G"`
	Hand      string `form:"hand" json:"hand" validate:"omitempty,oneof=L R"`
	BirthYear int    `form:"birth_year" json:"birth_year" validate:"omitempty,min=1900,max=2100"`
	SortBy    string `form:"sort_by" json:"sort_by" validate:"omitempty,oneof=name position jersey birthdate"`
	SortOrder string `form:"sort_order" json:"sort_order" validate:"omitempty,oneof=asc desc"`
}

func (q PlayerListQuery) isDefault() bool {
	return q == PlayerListQuery{}
}

// CreatePlayerRequest holds payload for creating players.
type CreatePlayerRequest struct {
	Name      string  `json:"name" validate:"required,min=1,max=100"`
	Position  string  `json:"position" validate:"required,oneof=F D G"`
	Jersey    *int    `json:"jersey" validate:"omitempty,min=1,max=99"`
	Hand      *string `json:"hand" validate:"omitempty,oneof=L R"`
	Birthdate *string `json:"birthdate" validate:"omitempty,datetime=2006-01-02"`
	Email     *string `json:"email" validate:"omitempty,max=255,email"`
	Phone     *string `json:"phone" validate:"omitempty,phone"`
	Status    *string `json:"status" validate:"omitempty,oneof=Active Affiliate Injured Inactive"`
}

// UpdatePlayerRequest holds a partial update. Absent fields are unchanged;
// an empty string (or jersey 0) clears an optional field.
type UpdatePlayerRequest struct {
	Name      *string `json:"name" validate:"omitempty,min=1,max=100"`
	Position  *string `json:"position" validate:"omitempty,oneof=F D G"`
	Jersey    *int    `json:"jersey" validate:"omitempty,min=1,max=99"`
	Hand      *string `json:"hand" validate:"omitempty,oneof=L R"`
	Birthdate *string `json:"birthdate" validate:"omitempty,datetime=2006-01-02"`
	Email     *string `json:"email" validate:"omitempty,max=255,email"`
	Phone     *string `json:"phone" validate:"omitempty,phone"`
	Status    *string `json:"status" validate:"omitempty,oneof=Active Affiliate Injured Inactive"`
}

// PlayerService handles roster use-cases.
type PlayerService struct {
	repo      playerRepository
	teams     teamLookup
	cache     *CacheService
	validator *validator.Validate
	clock     clockwork.Clock
	logger    *zap.Logger
}

// NewPlayerService constructs the player service.
func NewPlayerService(repo playerRepository, teams teamLookup, cache *CacheService, validate *validator.Validate, clock clockwork.Clock, logger *zap.Logger) *PlayerService {
	if validate == nil {
		validate = NewValidator()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlayerService{repo: repo, teams: teams, cache: cache, validator: validate, clock: clock, logger: logger}
}

// List returns the team's roster filtered and sorted by the query.
func (s *PlayerService) List(ctx context.Context, teamID int64, query PlayerListQuery) ([]models.Player, bool, error) {
	if err := s.validator.Struct(query); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details := make([]appErrors.FieldError, 0, len(verrs))
			for _, fe := range verrs {
				details = append(details, appErrors.FieldError{Field: fe.Field(), Reason: fieldReason(fe)})
			}
			return nil, false, appErrors.WithDetails(appErrors.ErrBadRequest, "invalid roster query", details...)
		}
		return nil, false, appErrors.Clone(appErrors.ErrBadRequest, "invalid roster query")
	}
	if err := s.ensureTeam(ctx, teamID); err != nil {
		return nil, false, err
	}

	cacheable := query.isDefault()
	if cacheable {
		var cached []models.Player
		if s.cache.Get(ctx, cacheKeyRoster(teamID), &cached) {
			return cached, true, nil
		}
	}

	players, err := s.repo.List(ctx, models.PlayerFilter{
		TeamID:    teamID,
		Position:  models.Position(query.Position),
		Hand:      models.Hand(query.Hand),
		BirthYear: query.BirthYear,
		SortBy:    query.SortBy,
		SortOrder: query.SortOrder,
	})
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list players")
	}
	if cacheable {
		s.cache.Set(ctx, cacheKeyRoster(teamID), players)
	}
	return players, false, nil
}

// Get returns a player by ID.
func (s *PlayerService) Get(ctx context.Context, id int64) (*models.Player, error) {
	player, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "player not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load player")
	}
	return player, nil
}

// Create adds a player to the team.
func (s *PlayerService) Create(ctx context.Context, teamID int64, req CreatePlayerRequest) (*models.Player, error) {
	req.Name = strings.TrimSpace(req.Name)
	for _, field := range []**string{&req.Hand, &req.Birthdate, &req.Email, &req.Phone, &req.Status} {
		clearBlank(field)
	}
	if req.Jersey != nil && *req.Jersey == 0 {
		req.Jersey = nil
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid player payload")
	}
	if err := s.ensureTeam(ctx, teamID); err != nil {
		return nil, err
	}

	player := &models.Player{
		TeamID:    teamID,
		Name:      req.Name,
		Position:  models.Position(req.Position),
		Jersey:    req.Jersey,
		Birthdate: req.Birthdate,
		Email:     req.Email,
		Phone:     req.Phone,
		Status:    models.StatusActive,
		CreatedAt: s.clock.Now().UTC(),
	}
	if req.Hand != nil {
		h := models.Hand(*req.Hand)
		player.Hand = &h
	}
	if req.Status != nil {
		player.Status = models.PlayerStatus(*req.Status)
	}

	if err := s.repo.Create(ctx, player); err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "team not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create player")
	}
	s.cache.Invalidate(ctx, cacheKeyRoster(teamID))
	return player, nil
}

// Update applies a partial update to a player.
func (s *PlayerService) Update(ctx context.Context, id int64, req UpdatePlayerRequest) (*models.Player, error) {
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		if trimmed == "" {
			return nil, appErrors.WithDetails(appErrors.ErrValidation, "invalid player payload",
				appErrors.FieldError{Field: "name", Reason: "is required"})
		}
		req.Name = &trimmed
	}
	clearHand := clearBlank(&req.Hand)
	clearBirthdate := clearBlank(&req.Birthdate)
	clearEmail := clearBlank(&req.Email)
	clearPhone := clearBlank(&req.Phone)
	clearBlank(&req.Position)
	clearBlank(&req.Status)
	clearJersey := req.Jersey != nil && *req.Jersey == 0
	if clearJersey {
		req.Jersey = nil
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid player payload")
	}
	player, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		player.Name = *req.Name
	}
	if req.Position != nil {
		player.Position = models.Position(*req.Position)
	}
	if req.Jersey != nil || clearJersey {
		player.Jersey = req.Jersey
	}
	if req.Hand != nil {
		h := models.Hand(*req.Hand)
		player.Hand = &h
	} else if clearHand {
		player.Hand = nil
	}
	if req.Birthdate != nil || clearBirthdate {
		player.Birthdate = req.Birthdate
	}
	if req.Email != nil || clearEmail {
		player.Email = req.Email
	}
	if req.Phone != nil || clearPhone {
		player.Phone = req.Phone
	}
	if req.Status != nil {
		player.Status = models.PlayerStatus(*req.Status)
	}

	if err := s.repo.Update(ctx, player); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update player")
	}
	s.cache.Invalidate(ctx, cacheKeyRoster(player.TeamID))
	return player, nil
}

// Delete removes a player. Any lineup slot holding the player becomes empty.
func (s *PlayerService) Delete(ctx context.Context, id int64) error {
	player, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete player")
	}
	s.cache.Invalidate(ctx, cacheKeyRoster(player.TeamID))
	s.logger.Info("player deleted", zap.Int64("player_id", id), zap.Int64("team_id", player.TeamID))
	return nil
}

func (s *PlayerService) ensureTeam(ctx context.Context, teamID int64) error {
	return ensureTeam(ctx, s.teams, teamID)
}

func ensureTeam(ctx context.Context, teams teamLookup, teamID int64) error {
	_, err := findTeam(ctx, teams, teamID)
	return err
}

func findTeam(ctx context.Context, teams teamLookup, teamID int64) (*models.Team, error) {
	team, err := teams.FindByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "team not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load team")
	}
	return team, nil
}

// clearBlank trims *field in place and nils it when blank. It reports
// whether a blank value was supplied.
func clearBlank(field **string) bool {
	if *field == nil {
		return false
	}
	trimmed := strings.TrimSpace(**field)
	if trimmed == "" {
		*field = nil
		return true
	}
	*field = &trimmed
	return false
}
