package dto

// Export row shapes mirror the spreadsheet tab layouts column for
// column. Fields the dashboard does not capture are projected as empty
// strings so the sheet columns stay stable.

// ParticipantExportRow feeds the Participants tab.
type ParticipantExportRow struct {
	ID               string `db:"id"`
	Name             string `db:"name"`
	Email            string `db:"email"`
	Phone            string `db:"phone"`
	Address          string `db:"address"`
	BirthDate        string `db:"birth_date"`
	RegistrationDate string `db:"registration_date"`
	Status           string `db:"status"`
}

// InstructorExportRow feeds the Instructors tab.
type InstructorExportRow struct {
	ID             string `db:"id"`
	Name           string `db:"name"`
	Email          string `db:"email"`
	Phone          string `db:"phone"`
	Specialization string `db:"specialization"`
	Status         string `db:"status"`
}

// AttendanceExportRow feeds the Absensi tab.
type AttendanceExportRow struct {
	ID              string `db:"id"`
	ParticipantName string `db:"participant_name"`
	ClassName       string `db:"class_name"`
	InstructorName  string `db:"instructor_name"`
	Date            string `db:"date"`
	Status          string `db:"status"`
	Notes           string `db:"notes"`
}

// PaymentExportRow feeds the Berlangganan tab.
type PaymentExportRow struct {
	ID              string `db:"id"`
	ParticipantName string `db:"participant_name"`
	InstructorName  string `db:"instructor_name"`
	ClassName       string `db:"class_name"`
	ClassType       string `db:"class_type"`
	StartDate       string `db:"start_date"`
	DueDate         string `db:"due_date"`
	Status          string `db:"status"`
}

// ExportResult reports the outcome of one export run.
type ExportResult struct {
	Domain         string `json:"domain"`
	RowCount       int    `json:"rowCount"`
	SpreadsheetURL string `json:"spreadsheetUrl"`
}
