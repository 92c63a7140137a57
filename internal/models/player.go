package models

import (
	"strings"
	"time"
)

// Position is the playing position of a player.
type Position string

const (
	PositionForward Position = "F"
	PositionDefense Position = "D"
	PositionGoalie  Position = "G"
)

// Hand is the shooting or catching hand.
type Hand string

const (
	HandLeft  Hand = "L"
	HandRight Hand = "R"
)

// PlayerStatus is the roster status of a player.
type PlayerStatus string

const (
	StatusActive    PlayerStatus = "Active"
	StatusAffiliate PlayerStatus = "Affiliate"
	StatusInjured   PlayerStatus = "Injured"
	StatusInactive  PlayerStatus = "Inactive"
)

// Player belongs to exactly one team.
type Player struct {
	ID        int64        `db:"id" json:"id"`
	TeamID    int64        `db:"team_id" json:"team_id"`
	Name      string       `db:"name" json:"name"`
	Position  Position     `db:"position" json:"position"`
	Jersey    *int         `db:"jersey" json:"jersey"`
	Hand      *Hand        `db:"hand" json:"hand"`
	Birthdate *string      `db:"birthdate" json:"birthdate"`
	Email     *string      `db:"email" json:"email"`
	Phone     *string      `db:"phone" json:"phone"`
	Status    PlayerStatus `db:"status" json:"status"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
}

// PlayerFilter holds the roster list query for one team.
type PlayerFilter struct {
	TeamID    int64
	Position  Position
	Hand      Hand
	BirthYear int
	SortBy    string
	SortOrder string
}

// ParsePosition accepts the one-letter code or the full word, case-insensitive.
func ParsePosition(raw string) (Position, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "F", "FORWARD":
		return PositionForward, true
	case "D", "DEFENSE", "DEFENCE":
		return PositionDefense, true
	case "G", "GOALIE", "GOALTENDER":
		return PositionGoalie, true
	}
	return "", false
}

// ParseHand accepts L/Left and R/Right, case-insensitive.
func ParseHand(raw string) (Hand, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "L", "LEFT":
		return HandLeft, true
	case "R", "RIGHT":
		return HandRight, true
	}
	return "", false
}

// ParseStatus accepts full status names and the three letter roster codes.
func ParseStatus(raw string) (PlayerStatus, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "ACTIVE", "ACT":
		return StatusActive, true
	case "AFFILIATE", "AFF":
		return StatusAffiliate, true
	case "INJURED", "INJ":
		return StatusInjured, true
	case "INACTIVE", "INA":
		return StatusInactive, true
	}
	return "", false
}
