package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/tahsinku/tahsinku-api/internal/models"
)

func TestAttendanceRepositoryFindByNaturalKey(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2025, 10, 26, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "teacher_id", "class_id", "participant_id", "date", "status", "reason", "created_by_admin", "created_at"}).
		AddRow("att-1", "tch-1", "cls-1", "par-1", date, models.AttendanceStatusPresent, nil, "adm-1", time.Now())

	mock.ExpectQuery(regexp.QuoteMeta("FROM attendance WHERE participant_id = $1 AND class_id = $2 AND date = $3")).
		WithArgs("par-1", "cls-1", date).
		WillReturnRows(rows)

	row, err := repo.FindByNaturalKey(context.Background(), "par-1", "cls-1", date)
	require.NoError(t, err)
	require.Equal(t, "att-1", row.ID)
	require.Nil(t, row.Reason)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryFindByNaturalKeyMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2025, 10, 26, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM attendance WHERE participant_id = $1 AND class_id = $2 AND date = $3")).
		WithArgs("par-1", "cls-1", date).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByNaturalKey(context.Background(), "par-1", "cls-1", date)
	require.True(t, errors.Is(err, sql.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryInsertAssignsID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendance")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	reason := models.AttendanceReasonSick
	row := &models.Attendance{
		TeacherID:      "tch-1",
		ClassID:        "cls-1",
		ParticipantID:  "par-1",
		Date:           time.Date(2025, 10, 26, 0, 0, 0, 0, time.UTC),
		Status:         models.AttendanceStatusExcused,
		Reason:         &reason,
		CreatedByAdmin: "adm-1",
	}
	require.NoError(t, repo.Insert(context.Background(), row))
	require.NotEmpty(t, row.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE attendance SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	row := &models.Attendance{
		ID:             "att-1",
		TeacherID:      "tch-2",
		Status:         models.AttendanceStatusPresent,
		CreatedByAdmin: "adm-2",
	}
	require.NoError(t, repo.Update(context.Background(), row))
	require.NoError(t, mock.ExpectationsWereMet())
}
