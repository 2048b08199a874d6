package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/tahsinku/tahsinku-api/internal/dto"
)

// ExportRepository provides the flat projections pushed to spreadsheet
// tabs. Columns the dashboard does not capture are projected as empty
// strings so the tab layouts stay stable.
type ExportRepository struct {
	db *sqlx.DB
}

// NewExportRepository constructs an ExportRepository.
func NewExportRepository(db *sqlx.DB) *ExportRepository {
	return &ExportRepository{db: db}
}

// Participants returns the Participants tab projection, ordered by name.
func (r *ExportRepository) Participants(ctx context.Context) ([]dto.ParticipantExportRow, error) {
	const query = `SELECT p.id, p.name,
        '' AS email,
        COALESCE(p.whatsapp, '') AS phone,
        COALESCE(p.address, '') AS address,
        '' AS birth_date,
        to_char(p.created_at, 'YYYY-MM-DD') AS registration_date,
        'active' AS status
        FROM participants p ORDER BY p.name ASC`
	var rows []dto.ParticipantExportRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("export participants: %w", err)
	}
	return rows, nil
}

// Instructors returns the Instructors tab projection, ordered by name.
func (r *ExportRepository) Instructors(ctx context.Context) ([]dto.InstructorExportRow, error) {
	const query = `SELECT t.id, t.name,
        '' AS email,
        COALESCE(t.phone, '') AS phone,
        COALESCE(t.notes, '') AS specialization,
        'active' AS status
        FROM teachers t ORDER BY t.name ASC`
	var rows []dto.InstructorExportRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("export instructors: %w", err)
	}
	return rows, nil
}

// Attendance returns the Absensi tab projection, most recent date
// first. The instructor name is resolved through the class, matching
// the dashboard's class-centric ownership view. Duplicate natural keys
// are collapsed downstream.
func (r *ExportRepository) Attendance(ctx context.Context) ([]dto.AttendanceExportRow, error) {
	const query = `SELECT a.id,
        p.name AS participant_name,
        c.name AS class_name,
        t.name AS instructor_name,
        to_char(a.date, 'YYYY-MM-DD') AS date,
        a.status,
        COALESCE(a.reason, '') AS notes
        FROM attendance a
        JOIN participants p ON p.id = a.participant_id
        JOIN classes c ON c.id = a.class_id
        JOIN teachers t ON t.id = c.teacher_id
        ORDER BY a.date DESC`
	var rows []dto.AttendanceExportRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("export attendance: %w", err)
	}
	return rows, nil
}

// Payments returns the Berlangganan tab projection, most recent cycle
// first.
func (r *ExportRepository) Payments(ctx context.Context) ([]dto.PaymentExportRow, error) {
	const query = `SELECT e.id,
        p.name AS participant_name,
        t.name AS instructor_name,
        c.name AS class_name,
        c.type AS class_type,
        COALESCE(to_char(e.start_date, 'YYYY-MM-DD'), '') AS start_date,
        COALESCE(to_char(e.due_date, 'YYYY-MM-DD'), '') AS due_date,
        e.status
        FROM enrollments e
        JOIN participants p ON p.id = e.participant_id
        JOIN teachers t ON t.id = e.teacher_id
        JOIN classes c ON c.id = e.class_id
        ORDER BY e.start_date DESC NULLS LAST`
	var rows []dto.PaymentExportRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("export payments: %w", err)
	}
	return rows, nil
}
