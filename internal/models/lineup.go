package models

import "time"

// SlotType is the category a lineup slot belongs to.
type SlotType string

const (
	SlotForward SlotType = "FWD"
	SlotDefense SlotType = "DEF"
	SlotGoalie  SlotType = "G"
)

// Position returns the player position that naturally fills the slot type.
func (t SlotType) Position() Position {
	switch t {
	case SlotForward:
		return PositionForward
	case SlotDefense:
		return PositionDefense
	default:
		return PositionGoalie
	}
}

// LineupTemplate is a named lineup for a team. DateSaved stays nil until the
// coach saves it.
type LineupTemplate struct {
	ID        int64      `db:"id" json:"id"`
	TeamID    int64      `db:"team_id" json:"team_id"`
	Name      string     `db:"name" json:"name"`
	Notes     *string    `db:"notes" json:"notes"`
	DateSaved *time.Time `db:"date_saved" json:"date_saved"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// LineupSlot is one seeded position in a template. PlayerID nil means empty.
type LineupSlot struct {
	ID         int64    `db:"id" json:"id"`
	TemplateID int64    `db:"template_id" json:"template_id"`
	SlotType   SlotType `db:"slot_type" json:"slot_type"`
	Label      string   `db:"label" json:"label"`
	OrderIndex int      `db:"order_index" json:"order_index"`
	PlayerID   *int64   `db:"player_id" json:"player_id"`
}

// SlotAssignment sets or clears the player of one slot.
type SlotAssignment struct {
	SlotID   int64  `json:"slot_id" validate:"required,gt=0"`
	PlayerID *int64 `json:"player_id" validate:"omitempty,gt=0"`
}

// WarningType classifies advisory lineup warnings.
type WarningType string

const (
	WarningDuplicate WarningType = "duplicate"
	WarningStatus    WarningType = "status"
	WarningPosition  WarningType = "position"
)

// LineupWarning is a non-blocking advisory computed from the current slots.
type LineupWarning struct {
	Type       WarningType `json:"type"`
	PlayerID   int64       `json:"player_id"`
	PlayerName string      `json:"player_name"`
	SlotLabels []string    `json:"slot_labels"`
	Message    string      `json:"message"`
}

// SlotView is a slot joined with its assigned player.
type SlotView struct {
	LineupSlot
	Player *Player `json:"player"`
}

// LineupDetail is a template with its ordered slots and fresh warnings.
type LineupDetail struct {
	LineupTemplate
	Slots    []SlotView      `json:"slots"`
	Warnings []LineupWarning `json:"warnings"`
}

// AssignmentResult is returned by every slot mutation. Warnings cover the
// whole template, not only the slots that changed.
type AssignmentResult struct {
	TemplateID   int64           `json:"template_id"`
	UpdatedSlots []int64         `json:"updated_slots"`
	Slots        []SlotView      `json:"slots"`
	Warnings     []LineupWarning `json:"warnings"`
}

// PDFReadiness summarises whether a lineup looks complete enough to print.
// Messages are advisory and never block an export.
type PDFReadiness struct {
	TemplateID    int64    `json:"template_id"`
	TotalSlots    int      `json:"total_slots"`
	AssignedCount int      `json:"assigned_count"`
	GoalieCount   int      `json:"goalie_count"`
	Ready         bool     `json:"ready"`
	Messages      []string `json:"messages"`
}
