package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/coach-lineup-api/internal/models"
)

const (
	templateColumns = `id, team_id, name, notes, date_saved, created_at`
	slotColumns     = `id, template_id, slot_type, label, order_index, player_id`
)

// LineupRepository manages lineup templates and their slots.
type LineupRepository struct {
	db *sqlx.DB
}

// NewLineupRepository constructs a LineupRepository.
func NewLineupRepository(db *sqlx.DB) *LineupRepository {
	return &LineupRepository{db: db}
}

// ListByTeam returns the team's templates, newest first.
func (r *LineupRepository) ListByTeam(ctx context.Context, teamID int64) ([]models.LineupTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM lineup_templates WHERE team_id = ? ORDER BY created_at DESC, id DESC`
	templates := make([]models.LineupTemplate, 0)
	if err := r.db.SelectContext(ctx, &templates, query, teamID); err != nil {
		return nil, fmt.Errorf("list lineup templates: %w", err)
	}
	return templates, nil
}

// FindByID fetches a template by ID.
func (r *LineupRepository) FindByID(ctx context.Context, id int64) (*models.LineupTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM lineup_templates WHERE id = ?`
	var tpl models.LineupTemplate
	if err := r.db.GetContext(ctx, &tpl, query, id); err != nil {
		return nil, err
	}
	return &tpl, nil
}

// CreateWithSlots inserts the template and its seeded slots atomically.
func (r *LineupRepository) CreateWithSlots(ctx context.Context, tpl *models.LineupTemplate, slots []models.LineupSlot) error {
	if tpl.CreatedAt.IsZero() {
		tpl.CreatedAt = time.Now().UTC()
	}
	return runInTx(ctx, r.db, "create lineup template", func(tx *sqlx.Tx) error {
		const insertTemplate = `INSERT INTO lineup_templates (team_id, name, notes, date_saved, created_at)
        VALUES (:team_id, :name, :notes, :date_saved, :created_at)`
		res, err := tx.NamedExecContext(ctx, insertTemplate, tpl)
		if err != nil {
			return fmt.Errorf("create lineup template: %w", err)
		}
		if tpl.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("create lineup template id: %w", err)
		}

		const insertSlot = `INSERT INTO lineup_slots (template_id, slot_type, label, order_index, player_id)
        VALUES (:template_id, :slot_type, :label, :order_index, :player_id)`
		for i := range slots {
			slots[i].TemplateID = tpl.ID
			res, err := tx.NamedExecContext(ctx, insertSlot, &slots[i])
			if err != nil {
				return fmt.Errorf("seed lineup slot %s: %w", slots[i].Label, err)
			}
			if slots[i].ID, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("seed lineup slot id: %w", err)
			}
		}
		return nil
	})
}

// ListSlots returns the template's slots in display order.
func (r *LineupRepository) ListSlots(ctx context.Context, templateID int64) ([]models.LineupSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM lineup_slots WHERE template_id = ? ORDER BY order_index ASC, id ASC`
	slots := make([]models.LineupSlot, 0)
	if err := r.db.SelectContext(ctx, &slots, query, templateID); err != nil {
		return nil, fmt.Errorf("list lineup slots: %w", err)
	}
	return slots, nil
}

// FindSlot fetches a slot by ID.
func (r *LineupRepository) FindSlot(ctx context.Context, slotID int64) (*models.LineupSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM lineup_slots WHERE id = ?`
	var slot models.LineupSlot
	if err := r.db.GetContext(ctx, &slot, query, slotID); err != nil {
		return nil, err
	}
	return &slot, nil
}

// ApplyAssignments writes every assignment in one transaction. Each update is
// scoped to the template so a foreign slot id changes nothing and fails.
func (r *LineupRepository) ApplyAssignments(ctx context.Context, templateID int64, assignments []models.SlotAssignment) error {
	if len(assignments) == 0 {
		return nil
	}
	return runInTx(ctx, r.db, "assign lineup slots", func(tx *sqlx.Tx) error {
		const query = `UPDATE lineup_slots SET player_id = ? WHERE id = ? AND template_id = ?`
		for _, a := range assignments {
			res, err := tx.ExecContext(ctx, query, a.PlayerID, a.SlotID, templateID)
			if err != nil {
				return fmt.Errorf("assign lineup slot %d: %w", a.SlotID, err)
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("assign lineup slot %d: %w", a.SlotID, err)
			}
			if affected != 1 {
				return fmt.Errorf("assign lineup slot %d: slot not in template %d", a.SlotID, templateID)
			}
		}
		return nil
	})
}

// MarkSaved stamps the template's saved time.
func (r *LineupRepository) MarkSaved(ctx context.Context, id int64, savedAt time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE lineup_templates SET date_saved = ? WHERE id = ?`, savedAt, id); err != nil {
		return fmt.Errorf("mark lineup saved: %w", err)
	}
	return nil
}
