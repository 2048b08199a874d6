package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tahsinku/tahsinku-api/internal/models"
)

// AttendanceRepository manages persistence for attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs an AttendanceRepository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// FindByNaturalKey looks up the row for (participant, class, date).
// Returns sql.ErrNoRows when absent.
func (r *AttendanceRepository) FindByNaturalKey(ctx context.Context, participantID, classID string, date time.Time) (*models.Attendance, error) {
	const query = `SELECT id, teacher_id, class_id, participant_id, date, status, reason, created_by_admin, created_at
        FROM attendance WHERE participant_id = $1 AND class_id = $2 AND date = $3`
	var row models.Attendance
	if err := r.db.GetContext(ctx, &row, query, participantID, classID, date); err != nil {
		return nil, err
	}
	return &row, nil
}

// Insert writes a new attendance row.
func (r *AttendanceRepository) Insert(ctx context.Context, row *models.Attendance) error {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO attendance (id, teacher_id, class_id, participant_id, date, status, reason, created_by_admin, created_at)
        VALUES (:id, :teacher_id, :class_id, :participant_id, :date, :status, :reason, :created_by_admin, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("insert attendance: %w", err)
	}
	return nil
}

// Update rewrites the mutable columns of an existing attendance row.
// The natural key columns are never changed by an update.
func (r *AttendanceRepository) Update(ctx context.Context, row *models.Attendance) error {
	const query = `UPDATE attendance SET status = :status, reason = :reason, teacher_id = :teacher_id,
        created_by_admin = :created_by_admin WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("update attendance: %w", err)
	}
	return nil
}

// List returns attendance rows joined with participant, class and
// teacher names, most recent date first.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, int, error) {
	base := `FROM attendance a
        JOIN participants p ON p.id = a.participant_id
        JOIN classes c ON c.id = a.class_id
        JOIN teachers t ON t.id = a.teacher_id`
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("a.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.ParticipantID != "" {
		conditions = append(conditions, fmt.Sprintf("a.participant_id = $%d", len(args)+1))
		args = append(args, filter.ParticipantID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("a.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("a.date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("a.date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT a.id, a.teacher_id, a.class_id, a.participant_id, a.date, a.status, a.reason, a.created_by_admin, a.created_at,
        p.name AS participant_name, c.name AS class_name, t.name AS teacher_name
        %s ORDER BY a.date DESC, a.created_at DESC LIMIT %d OFFSET %d`, base, size, offset)

	var rows []models.AttendanceDetail
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance: %w", err)
	}
	return rows, total, nil
}
