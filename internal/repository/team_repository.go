package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/coach-lineup-api/internal/models"
)

// TeamRepository manages persistence for teams.
type TeamRepository struct {
	db *sqlx.DB
}

// NewTeamRepository constructs a TeamRepository.
func NewTeamRepository(db *sqlx.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

// List returns every team ordered by name then season.
func (r *TeamRepository) List(ctx context.Context) ([]models.Team, error) {
	const query = `SELECT id, name, season, created_at FROM teams ORDER BY name ASC, season ASC`
	teams := make([]models.Team, 0)
	if err := r.db.SelectContext(ctx, &teams, query); err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	return teams, nil
}

// FindByID fetches a team by ID.
func (r *TeamRepository) FindByID(ctx context.Context, id int64) (*models.Team, error) {
	const query = `SELECT id, name, season, created_at FROM teams WHERE id = ?`
	var team models.Team
	if err := r.db.GetContext(ctx, &team, query, id); err != nil {
		return nil, err
	}
	return &team, nil
}

// ExistsByNameSeason reports whether a team already uses the name and season.
func (r *TeamRepository) ExistsByNameSeason(ctx context.Context, name, season string) (bool, error) {
	const query = `SELECT 1 FROM teams WHERE name = ? AND season = ? LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, name, season); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check team name: %w", err)
	}
	return true, nil
}

// Create inserts a team and sets its generated ID.
func (r *TeamRepository) Create(ctx context.Context, team *models.Team) error {
	if team.CreatedAt.IsZero() {
		team.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO teams (name, season, created_at) VALUES (:name, :season, :created_at)`
	res, err := r.db.NamedExecContext(ctx, query, team)
	if err != nil {
		return fmt.Errorf("create team: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create team id: %w", err)
	}
	team.ID = id
	return nil
}
