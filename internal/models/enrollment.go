package models

import "time"

// EnrollmentStatus is the stored payment status of a billing cycle.
type EnrollmentStatus string

const (
	EnrollmentStatusPaid    EnrollmentStatus = "lunas"
	EnrollmentStatusPending EnrollmentStatus = "menunggu_pembayaran"
)

// Valid returns true when the status is a supported stored value.
func (s EnrollmentStatus) Valid() bool {
	return s == EnrollmentStatusPaid || s == EnrollmentStatusPending
}

// DisplayStatus is the read-time status derived from the billing dates.
// It extends the stored values with two display-only states.
type DisplayStatus string

const (
	DisplayStatusInProgress DisplayStatus = "sedang_berlangsung"
	DisplayStatusDueSoon    DisplayStatus = "belum_jatuh_tempo"
	DisplayStatusPending    DisplayStatus = "menunggu_pembayaran"
)

// Enrollment binds a participant to a class for one 28-day billing cycle.
type Enrollment struct {
	ID            string           `db:"id" json:"id"`
	ParticipantID string           `db:"participant_id" json:"participant_id"`
	TeacherID     string           `db:"teacher_id" json:"teacher_id"`
	ClassID       string           `db:"class_id" json:"class_id"`
	StartDate     *time.Time       `db:"start_date" json:"start_date,omitempty"`
	DueDate       *time.Time       `db:"due_date" json:"due_date,omitempty"`
	Status        EnrollmentStatus `db:"status" json:"status"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
}

// EnrollmentDetail joins an enrollment with its participant, teacher and
// class for list views and exports.
type EnrollmentDetail struct {
	Enrollment
	ParticipantName string    `db:"participant_name" json:"participant_name"`
	TeacherName     string    `db:"teacher_name" json:"teacher_name"`
	ClassName       string    `db:"class_name" json:"class_name"`
	ClassType       ClassType `db:"class_type" json:"class_type"`

	// DerivedStatus is filled by the lifecycle engine at read time. It
	// can diverge from the stored Status until the next mutation or an
	// explicit overdue sync.
	DerivedStatus DisplayStatus `db:"-" json:"derived_status"`
	DaysLeft      *int          `db:"-" json:"days_left,omitempty"`
}

// EnrollmentFilter captures listing parameters for enrollments.
type EnrollmentFilter struct {
	ParticipantID string
	TeacherID     string
	ClassID       string
	Status        *EnrollmentStatus
	Page          int
	PageSize      int
}
