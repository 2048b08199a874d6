package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "hadir"
	AttendanceStatusExcused AttendanceStatus = "izin"
	AttendanceStatusAbsent  AttendanceStatus = "berhalangan"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusExcused, AttendanceStatusAbsent:
		return true
	default:
		return false
	}
}

// AttendanceReason explains a non-present status.
type AttendanceReason string

const (
	AttendanceReasonSick    AttendanceReason = "sakit"
	AttendanceReasonEvent   AttendanceReason = "acara"
	AttendanceReasonUrgent  AttendanceReason = "keperluan_mendesak"
	AttendanceReasonHoliday AttendanceReason = "peserta_libur"
)

// Valid returns true when the reason is a supported value.
func (r AttendanceReason) Valid() bool {
	switch r {
	case AttendanceReasonSick, AttendanceReasonEvent, AttendanceReasonUrgent, AttendanceReasonHoliday:
		return true
	default:
		return false
	}
}

// Attendance is one participant's attendance for one class on one date.
// The natural key is (participant_id, class_id, date); writes for an
// existing key update the row in place.
type Attendance struct {
	ID             string            `db:"id" json:"id"`
	TeacherID      string            `db:"teacher_id" json:"teacher_id"`
	ClassID        string            `db:"class_id" json:"class_id"`
	ParticipantID  string            `db:"participant_id" json:"participant_id"`
	Date           time.Time         `db:"date" json:"date"`
	Status         AttendanceStatus  `db:"status" json:"status"`
	Reason         *AttendanceReason `db:"reason" json:"reason,omitempty"`
	CreatedByAdmin string            `db:"created_by_admin" json:"created_by_admin"`
	CreatedAt      time.Time         `db:"created_at" json:"created_at"`
}

// AttendanceDetail joins an attendance row with names for list views.
type AttendanceDetail struct {
	Attendance
	ParticipantName string `db:"participant_name" json:"participant_name"`
	ClassName       string `db:"class_name" json:"class_name"`
	TeacherName     string `db:"teacher_name" json:"teacher_name"`
}

// AttendanceFilter captures listing parameters for attendance rows.
type AttendanceFilter struct {
	ClassID       string
	ParticipantID string
	TeacherID     string
	DateFrom      *time.Time
	DateTo        *time.Time
	Page          int
	PageSize      int
}
