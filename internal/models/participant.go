package models

import "time"

// Participant represents a tahsin learner.
type Participant struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Address   *string   `db:"address" json:"address,omitempty"`
	Whatsapp  *string   `db:"whatsapp" json:"whatsapp,omitempty"`
	Gender    *string   `db:"gender" json:"gender,omitempty"`
	Job       *string   `db:"job" json:"job,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ParticipantFilter captures listing parameters. Search matches name,
// address, whatsapp and job case-insensitively.
type ParticipantFilter struct {
	Search   string
	Page     int
	PageSize int
}
