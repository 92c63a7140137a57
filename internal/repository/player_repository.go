package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/coach-lineup-api/internal/models"
)

const playerColumns = `id, team_id, name, position, jersey, hand, birthdate, email, phone, status, created_at`

// PlayerSortColumns lists the columns a roster may be sorted by.
var PlayerSortColumns = map[string]string{
	"name":      "name",
	"position":  "position",
	"jersey":    "jersey",
	"birthdate": "birthdate",
}

// PlayerRepository manages persistence for players.
type PlayerRepository struct {
	db *sqlx.DB
}

// NewPlayerRepository constructs a PlayerRepository.
func NewPlayerRepository(db *sqlx.DB) *PlayerRepository {
	return &PlayerRepository{db: db}
}

// List returns the players of one team matching the filter.
func (r *PlayerRepository) List(ctx context.Context, filter models.PlayerFilter) ([]models.Player, error) {
	conditions := []string{"team_id = ?"}
	args := []interface{}{filter.TeamID}

	if filter.Position != "" {
		conditions = append(conditions, "position = ?")
		args = append(args, filter.Position)
	}
	if filter.Hand != "" {
		conditions = append(conditions, "hand = ?")
		args = append(args, filter.Hand)
	}
	if filter.BirthYear > 0 {
		conditions = append(conditions, "substr(birthdate, 1, 4) = ?")
		args = append(args, fmt.Sprintf("%04d", filter.BirthYear))
	}

	column, ok := PlayerSortColumns[filter.SortBy]
	if !ok {
		column = "name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	query := fmt.Sprintf("SELECT %s FROM players WHERE %s ORDER BY %s %s, id ASC",
		playerColumns, strings.Join(conditions, " AND "), column, order)

	players := make([]models.Player, 0)
	if err := r.db.SelectContext(ctx, &players, query, args...); err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	return players, nil
}

// ListByTeam returns every player of a team ordered by name.
func (r *PlayerRepository) ListByTeam(ctx context.Context, teamID int64) ([]models.Player, error) {
	return r.List(ctx, models.PlayerFilter{TeamID: teamID})
}

// ListAvailable returns team players not assigned to any slot of the template.
func (r *PlayerRepository) ListAvailable(ctx context.Context, teamID, templateID int64) ([]models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players
        WHERE team_id = ? AND id NOT IN (SELECT player_id FROM lineup_slots WHERE template_id = ? AND player_id IS NOT NULL)
        ORDER BY name ASC, id ASC`
	players := make([]models.Player, 0)
	if err := r.db.SelectContext(ctx, &players, query, teamID, templateID); err != nil {
		return nil, fmt.Errorf("list available players: %w", err)
	}
	return players, nil
}

// FindByID fetches a player by ID.
func (r *PlayerRepository) FindByID(ctx context.Context, id int64) (*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = ?`
	var player models.Player
	if err := r.db.GetContext(ctx, &player, query, id); err != nil {
		return nil, err
	}
	return &player, nil
}

// Create inserts a single player.
func (r *PlayerRepository) Create(ctx context.Context, player *models.Player) error {
	return r.insert(ctx, r.db, player)
}

// CreateBatch inserts all players in one transaction.
func (r *PlayerRepository) CreateBatch(ctx context.Context, players []*models.Player) error {
	if len(players) == 0 {
		return nil
	}
	return runInTx(ctx, r.db, "create players", func(tx *sqlx.Tx) error {
		for _, p := range players {
			if err := r.insert(ctx, tx, p); err != nil {
				return err
			}
		}
		return nil
	})
}

// Update writes every mutable field of the player.
func (r *PlayerRepository) Update(ctx context.Context, player *models.Player) error {
	const query = `UPDATE players SET name = :name, position = :position, jersey = :jersey, hand = :hand,
        birthdate = :birthdate, email = :email, phone = :phone, status = :status WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, player); err != nil {
		return fmt.Errorf("update player: %w", err)
	}
	return nil
}

// Delete removes a player. Slots referencing the player are cleared by the
// ON DELETE SET NULL foreign key.
func (r *PlayerRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM players WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete player: %w", err)
	}
	return nil
}

func (r *PlayerRepository) insert(ctx context.Context, exec sqlx.ExtContext, player *models.Player) error {
	if player.CreatedAt.IsZero() {
		player.CreatedAt = time.Now().UTC()
	}
	if player.Status == "" {
		player.Status = models.StatusActive
	}
	const query = `INSERT INTO players (team_id, name, position, jersey, hand, birthdate, email, phone, status, created_at)
        VALUES (:team_id, :name, :position, :jersey, :hand, :birthdate, :email, :phone, :status, :created_at)`
	res, err := sqlx.NamedExecContext(ctx, exec, query, player)
	if err != nil {
		return fmt.Errorf("create player: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create player id: %w", err)
	}
	player.ID = id
	return nil
}
