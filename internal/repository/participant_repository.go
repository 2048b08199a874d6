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

// ParticipantRepository manages persistence for participant records.
type ParticipantRepository struct {
	db *sqlx.DB
}

// NewParticipantRepository constructs a ParticipantRepository.
func NewParticipantRepository(db *sqlx.DB) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

// List returns participants matching the filter, newest first. Search
// matches name, address, whatsapp and job case-insensitively.
func (r *ParticipantRepository) List(ctx context.Context, filter models.ParticipantFilter) ([]models.Participant, int, error) {
	base := "FROM participants p"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Search != "" {
		idx := len(args) + 1
		conditions = append(conditions, fmt.Sprintf(
			"(LOWER(p.name) LIKE $%d OR LOWER(COALESCE(p.address, '')) LIKE $%d OR LOWER(COALESCE(p.whatsapp, '')) LIKE $%d OR LOWER(COALESCE(p.job, '')) LIKE $%d)",
			idx, idx, idx, idx))
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

	query := fmt.Sprintf(`SELECT p.id, p.name, p.address, p.whatsapp, p.gender, p.job, p.created_at
        %s ORDER BY p.created_at DESC LIMIT %d OFFSET %d`, base, size, offset)

	var participants []models.Participant
	if err := r.db.SelectContext(ctx, &participants, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list participants: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count participants: %w", err)
	}
	return participants, total, nil
}

// FindByID fetches a participant by ID.
func (r *ParticipantRepository) FindByID(ctx context.Context, id string) (*models.Participant, error) {
	const query = `SELECT id, name, address, whatsapp, gender, job, created_at FROM participants WHERE id = $1`
	var participant models.Participant
	if err := r.db.GetContext(ctx, &participant, query, id); err != nil {
		return nil, err
	}
	return &participant, nil
}

// Create inserts a new participant record.
func (r *ParticipantRepository) Create(ctx context.Context, participant *models.Participant) error {
	if participant.ID == "" {
		participant.ID = uuid.NewString()
	}
	if participant.CreatedAt.IsZero() {
		participant.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO participants (id, name, address, whatsapp, gender, job, created_at)
        VALUES (:id, :name, :address, :whatsapp, :gender, :job, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, participant); err != nil {
		return fmt.Errorf("create participant: %w", err)
	}
	return nil
}

// Update modifies an existing participant.
func (r *ParticipantRepository) Update(ctx context.Context, participant *models.Participant) error {
	const query = `UPDATE participants SET name = :name, address = :address, whatsapp = :whatsapp,
        gender = :gender, job = :job WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, participant); err != nil {
		return fmt.Errorf("update participant: %w", err)
	}
	return nil
}

// Delete removes a participant and, via cascade, their enrollments and
// attendance rows.
func (r *ParticipantRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM participants WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete participant: %w", err)
	}
	return nil
}
