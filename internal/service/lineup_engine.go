package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/noah-isme/coach-lineup-api/internal/models"
)

const (
	forwardLines = 4
	defensePairs = 3
)

var (
	forwardSpots = []string{"LW", "C", "RW"}
	defenseSpots = []string{"L", "R"}
	goalieSpots  = []string{"Starter", "Backup"}
)

// SeedLineupSlots returns the fixed slot set every template starts with:
// four forward lines, three defense pairs and two goalies.
func SeedLineupSlots() []models.LineupSlot {
	slots := make([]models.LineupSlot, 0, forwardLines*len(forwardSpots)+defensePairs*len(defenseSpots)+len(goalieSpots))
	for line := 1; line <= forwardLines; line++ {
		for i, spot := range forwardSpots {
			slots = append(slots, models.LineupSlot{
				SlotType:   models.SlotForward,
				Label:      fmt.Sprintf("FWD%d-%s", line, spot),
				OrderIndex: line*10 + i,
			})
		}
	}
	for pair := 1; pair <= defensePairs; pair++ {
		for i, spot := range defenseSpots {
			slots = append(slots, models.LineupSlot{
				SlotType:   models.SlotDefense,
				Label:      fmt.Sprintf("DEF%d-%s", pair, spot),
				OrderIndex: 100 + pair*10 + i,
			})
		}
	}
	for i, spot := range goalieSpots {
		slots = append(slots, models.LineupSlot{
			SlotType:   models.SlotGoalie,
			Label:      "G-" + spot,
			OrderIndex: 200 + i,
		})
	}
	return slots
}

// EvaluateWarnings computes advisory warnings over the full slot set.
// Duplicates come first, then status and position warnings in slot order.
func EvaluateWarnings(slots []models.SlotView) []models.LineupWarning {
	ordered := make([]models.SlotView, len(slots))
	copy(ordered, slots)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].OrderIndex < ordered[j].OrderIndex })

	warnings := make([]models.LineupWarning, 0)

	labelsByPlayer := make(map[int64][]string)
	playerOrder := make([]*models.Player, 0)
	for _, slot := range ordered {
		if slot.Player == nil {
			continue
		}
		if _, seen := labelsByPlayer[slot.Player.ID]; !seen {
			playerOrder = append(playerOrder, slot.Player)
		}
		labelsByPlayer[slot.Player.ID] = append(labelsByPlayer[slot.Player.ID], slot.Label)
	}
	for _, p := range playerOrder {
		labels := labelsByPlayer[p.ID]
		if len(labels) < 2 {
			continue
		}
		warnings = append(warnings, models.LineupWarning{
			Type:       models.WarningDuplicate,
			PlayerID:   p.ID,
			PlayerName: p.Name,
			SlotLabels: labels,
			Message:    fmt.Sprintf("%s is assigned to %d slots: %s", p.Name, len(labels), strings.Join(labels, ", ")),
		})
	}

	for _, slot := range ordered {
		p := slot.Player
		if p == nil || p.Status == models.StatusActive {
			continue
		}
		warnings = append(warnings, models.LineupWarning{
			Type:       models.WarningStatus,
			PlayerID:   p.ID,
			PlayerName: p.Name,
			SlotLabels: []string{slot.Label},
			Message:    fmt.Sprintf("%s has status %s (%s)", p.Name, p.Status, slot.Label),
		})
	}

	for _, slot := range ordered {
		p := slot.Player
		if p == nil || p.Position == slot.SlotType.Position() {
			continue
		}
		warnings = append(warnings, models.LineupWarning{
			Type:       models.WarningPosition,
			PlayerID:   p.ID,
			PlayerName: p.Name,
			SlotLabels: []string{slot.Label},
			Message:    fmt.Sprintf("%s plays %s but %s is a %s slot", p.Name, p.Position, slot.Label, slot.SlotType),
		})
	}

	return warnings
}

// buildSlotViews joins slots with their players. Slots whose player is not in
// roster are shown empty.
func buildSlotViews(slots []models.LineupSlot, roster map[int64]*models.Player) []models.SlotView {
	views := make([]models.SlotView, 0, len(slots))
	for _, slot := range slots {
		view := models.SlotView{LineupSlot: slot}
		if slot.PlayerID != nil {
			view.Player = roster[*slot.PlayerID]
		}
		views = append(views, view)
	}
	return views
}

// slotCaption renders a slot label for documents, e.g. "Line 1 LW".
func slotCaption(slot models.LineupSlot) string {
	label := slot.Label
	switch slot.SlotType {
	case models.SlotForward:
		if rest, ok := strings.CutPrefix(label, "FWD"); ok {
			return "Line " + strings.Replace(rest, "-", " ", 1)
		}
	case models.SlotDefense:
		if rest, ok := strings.CutPrefix(label, "DEF"); ok {
			return "Pair " + strings.Replace(rest, "-", " ", 1)
		}
	case models.SlotGoalie:
		return strings.TrimPrefix(label, "G-")
	}
	return label
}
