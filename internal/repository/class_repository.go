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

// ClassRepository manages persistence for class records.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a ClassRepository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// List returns classes with their teacher names.
func (r *ClassRepository) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error) {
	base := "FROM classes c JOIN teachers t ON t.id = c.teacher_id"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("c.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Type != nil {
		conditions = append(conditions, fmt.Sprintf("c.type = $%d", len(args)+1))
		args = append(args, *filter.Type)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(c.name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
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

	query := fmt.Sprintf(`SELECT c.id, c.type, c.name, c.teacher_id, c.capacity, c.days, c.time, c.created_at,
        t.name AS teacher_name
        %s ORDER BY c.created_at DESC LIMIT %d OFFSET %d`, base, size, offset)

	var classes []models.ClassDetail
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}
	return classes, total, nil
}

// ListByTeacher returns every class owned by a teacher in schedule order.
func (r *ClassRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.Class, error) {
	const query = `SELECT id, type, name, teacher_id, capacity, days, time, created_at
        FROM classes WHERE teacher_id = $1 ORDER BY created_at ASC`
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, teacherID); err != nil {
		return nil, fmt.Errorf("list classes by teacher: %w", err)
	}
	return classes, nil
}

// FindByID fetches a class with its teacher name.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.ClassDetail, error) {
	const query = `SELECT c.id, c.type, c.name, c.teacher_id, c.capacity, c.days, c.time, c.created_at,
        t.name AS teacher_name
        FROM classes c JOIN teachers t ON t.id = c.teacher_id
        WHERE c.id = $1`
	var detail models.ClassDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create inserts a new class record.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	if class.CreatedAt.IsZero() {
		class.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO classes (id, type, name, teacher_id, capacity, days, time, created_at)
        VALUES (:id, :type, :name, :teacher_id, :capacity, :days, :time, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// Update modifies an existing class.
func (r *ClassRepository) Update(ctx context.Context, class *models.Class) error {
	const query = `UPDATE classes SET type = :type, name = :name, teacher_id = :teacher_id,
        capacity = :capacity, days = :days, time = :time WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return nil
}

// Delete removes a class. Enrollments and attendance referencing it are
// removed by the ON DELETE CASCADE constraints.
func (r *ClassRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM classes WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	return nil
}
