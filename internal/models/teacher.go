package models

import "time"

// Teacher represents a tahsin instructor. A teacher owns zero or more
// classes; deleting a teacher cascades to their classes, enrollments and
// attendance rows.
type Teacher struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	Gender    *string   `db:"gender" json:"gender,omitempty"`
	Address   *string   `db:"address" json:"address,omitempty"`
	Notes     *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// TeacherFilter captures listing parameters for teachers.
type TeacherFilter struct {
	Search   string
	Page     int
	PageSize int
}
