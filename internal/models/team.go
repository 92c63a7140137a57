package models

import "time"

// Team is a named roster for one season. Name and season are unique together.
type Team struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Season    string    `db:"season" json:"season"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
