package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/tahsinku/tahsinku-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEnrollmentRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	start := time.Date(2025, 10, 26, 0, 0, 0, 0, time.UTC)
	due := start.AddDate(0, 0, 28)
	rows := sqlmock.NewRows([]string{
		"id", "participant_id", "teacher_id", "class_id", "start_date", "due_date", "status", "created_at",
		"participant_name", "teacher_name", "class_name", "class_type",
	}).AddRow("enr-1", "par-1", "tch-1", "cls-1", start, due, models.EnrollmentStatusPaid, time.Now(),
		"Ahmad", "Ustadz Budi", "Tahsin Pagi", models.ClassTypeRegular)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT e.id, e.participant_id, e.teacher_id, e.class_id, e.start_date, e.due_date, e.status, e.created_at,")).
		WithArgs("enr-1").
		WillReturnRows(rows)

	detail, err := repo.FindByID(context.Background(), "enr-1")
	require.NoError(t, err)
	require.Equal(t, "Ahmad", detail.ParticipantName)
	require.Equal(t, models.ClassTypeRegular, detail.ClassType)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpdateCycle(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	start := time.Date(2025, 10, 26, 0, 0, 0, 0, time.UTC)
	due := start.AddDate(0, 0, 28)
	enrollment := &models.Enrollment{
		ID:        "enr-1",
		StartDate: &start,
		DueDate:   &due,
		Status:    models.EnrollmentStatusPaid,
	}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateCycle(context.Background(), enrollment))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositorySyncOverdue(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	today := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET status = $1 WHERE due_date < $2 AND status <> $3")).
		WithArgs(models.EnrollmentStatusPending, today, models.EnrollmentStatusPaid).
		WillReturnResult(sqlmock.NewResult(0, 3))

	updated, err := repo.SyncOverdue(context.Background(), today)
	require.NoError(t, err)
	require.Equal(t, 3, updated)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	enrollment := &models.Enrollment{
		ParticipantID: "par-1",
		TeacherID:     "tch-1",
		ClassID:       "cls-1",
		Status:        models.EnrollmentStatusPending,
	}
	require.NoError(t, repo.Create(context.Background(), enrollment))
	require.NotEmpty(t, enrollment.ID)
	require.False(t, enrollment.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}
