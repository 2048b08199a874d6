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

// EnrollmentRepository manages persistence for billing-cycle records.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs an EnrollmentRepository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// List returns enrollments joined with participant, teacher and class
// names, newest first.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e
        JOIN participants p ON p.id = e.participant_id
        JOIN teachers t ON t.id = e.teacher_id
        JOIN classes c ON c.id = e.class_id`
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.ParticipantID != "" {
		conditions = append(conditions, fmt.Sprintf("e.participant_id = $%d", len(args)+1))
		args = append(args, filter.ParticipantID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("e.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("e.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
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

	query := fmt.Sprintf(`SELECT e.id, e.participant_id, e.teacher_id, e.class_id, e.start_date, e.due_date, e.status, e.created_at,
        p.name AS participant_name, t.name AS teacher_name, c.name AS class_name, c.type AS class_type
        %s ORDER BY e.created_at DESC LIMIT %d OFFSET %d`, base, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID fetches an enrollment detail by ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.participant_id, e.teacher_id, e.class_id, e.start_date, e.due_date, e.status, e.created_at,
        p.name AS participant_name, t.name AS teacher_name, c.name AS class_name, c.type AS class_type
        FROM enrollments e
        JOIN participants p ON p.id = e.participant_id
        JOIN teachers t ON t.id = e.teacher_id
        JOIN classes c ON c.id = e.class_id
        WHERE e.id = $1`
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create inserts a new enrollment record.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO enrollments (id, participant_id, teacher_id, class_id, start_date, due_date, status, created_at)
        VALUES (:id, :participant_id, :teacher_id, :class_id, :start_date, :due_date, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// UpdateCycle persists the billing dates and stored status of one
// enrollment.
func (r *EnrollmentRepository) UpdateCycle(ctx context.Context, enrollment *models.Enrollment) error {
	const query = `UPDATE enrollments SET start_date = :start_date, due_date = :due_date, status = :status WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("update enrollment cycle: %w", err)
	}
	return nil
}

// SyncOverdue forces every enrollment past its due date that is not
// marked paid to the pending status. Returns the number of corrected
// rows.
func (r *EnrollmentRepository) SyncOverdue(ctx context.Context, today time.Time) (int, error) {
	const query = `UPDATE enrollments SET status = $1 WHERE due_date < $2 AND status <> $3`
	res, err := r.db.ExecContext(ctx, query, models.EnrollmentStatusPending, today, models.EnrollmentStatusPaid)
	if err != nil {
		return 0, fmt.Errorf("sync overdue enrollments: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sync overdue enrollments: %w", err)
	}
	return int(affected), nil
}

// Delete removes an enrollment record.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM enrollments WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return nil
}
