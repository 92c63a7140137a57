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

type teamRepository interface {
	List(ctx context.Context) ([]models.Team, error)
	FindByID(ctx context.Context, id int64) (*models.Team, error)
	ExistsByNameSeason(ctx context.Context, name, season string) (bool, error)
	Create(ctx context.Context, team *models.Team) error
}

// CreateTeamRequest holds payload for creating teams.
type CreateTeamRequest struct {
	Name   string `json:"name" validate:"required,min=1,max=100"`
	Season string `json:"season" validate:"required,min=1,max=50"`
}

// TeamService handles team use-cases.
type TeamService struct {
	repo      teamRepository
	cache     *CacheService
	validator *validator.Validate
	clock     clockwork.Clock
	logger    *zap.Logger
}

// NewTeamService constructs the team service.
func NewTeamService(repo teamRepository, cache *CacheService, validate *validator.Validate, clock clockwork.Clock, logger *zap.Logger) *TeamService {
	if validate == nil {
		validate = NewValidator()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeamService{repo: repo, cache: cache, validator: validate, clock: clock, logger: logger}
}

// List returns all teams ordered by name and season.
func (s *TeamService) List(ctx context.Context) ([]models.Team, bool, error) {
	var cached []models.Team
	if s.cache.Get(ctx, cacheKeyTeams, &cached) {
		return cached, true, nil
	}
	teams, err := s.repo.List(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teams")
	}
	s.cache.Set(ctx, cacheKeyTeams, teams)
	return teams, false, nil
}

// Get returns a team by ID.
func (s *TeamService) Get(ctx context.Context, id int64) (*models.Team, error) {
	team, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "team not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load team")
	}
	return team, nil
}

// Create registers a new team. Name and season together must be unique.
func (s *TeamService) Create(ctx context.Context, req CreateTeamRequest) (*models.Team, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Season = strings.TrimSpace(req.Season)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid team payload")
	}
	exists, err := s.repo.ExistsByNameSeason(ctx, req.Name, req.Season)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate team name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "team with this name and season already exists")
	}
	team := &models.Team{Name: req.Name, Season: req.Season, CreatedAt: s.clock.Now().UTC()}
	if err := s.repo.Create(ctx, team); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "team with this name and season already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create team")
	}
	s.cache.Invalidate(ctx, cacheKeyTeams)
	s.logger.Info("team created", zap.Int64("team_id", team.ID), zap.String("season", team.Season))
	return team, nil
}
