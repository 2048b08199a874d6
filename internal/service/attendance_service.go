package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tahsinku/tahsinku-api/internal/models"
	appErrors "github.com/tahsinku/tahsinku-api/pkg/errors"
)

type attendanceRepository interface {
	FindByNaturalKey(ctx context.Context, participantID, classID string, date time.Time) (*models.Attendance, error)
	Insert(ctx context.Context, row *models.Attendance) error
	Update(ctx context.Context, row *models.Attendance) error
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, int, error)
}

// AttendanceRecord is one entry in a batch write.
type AttendanceRecord struct {
	TeacherID     string                   `json:"teacher_id" validate:"required"`
	ClassID       string                   `json:"class_id" validate:"required"`
	ParticipantID string                   `json:"participant_id" validate:"required"`
	Date          string                   `json:"date" validate:"required"`
	Status        models.AttendanceStatus  `json:"status" validate:"required"`
	Reason        *models.AttendanceReason `json:"reason"`
}

// RecordAttendanceRequest holds an ordered batch of attendance entries.
type RecordAttendanceRequest struct {
	Records []AttendanceRecord `json:"records" validate:"required,min=1,dive"`
}

// RecordAttendanceResult reports how far a batch write progressed.
type RecordAttendanceResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
}

// AttendanceService records attendance batches with upsert semantics on
// the (participant, class, date) natural key.
type AttendanceService struct {
	repo      attendanceRepository
	exports   exportTrigger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(repo attendanceRepository, exports exportTrigger, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{repo: repo, exports: exports, validator: validate, logger: logger}
}

// Record processes the batch in order. Each entry is looked up by its
// natural key and updated in place when present, inserted otherwise.
// The batch is not atomic: a failure partway leaves earlier records
// committed, aborts the remainder and surfaces the first error.
func (s *AttendanceService) Record(ctx context.Context, adminID string, req RecordAttendanceRequest) (*RecordAttendanceResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}

	result := &RecordAttendanceResult{}
	for i, record := range req.Records {
		if err := s.apply(ctx, adminID, record, result); err != nil {
			if result.Inserted+result.Updated > 0 {
				s.logger.Warn("attendance batch aborted partway",
					zap.Int("failed_index", i),
					zap.Int("committed", result.Inserted+result.Updated))
			}
			return result, err
		}
	}

	s.triggerExport()
	return result, nil
}

func (s *AttendanceService) apply(ctx context.Context, adminID string, record AttendanceRecord, result *RecordAttendanceResult) error {
	if err := validateRecord(record); err != nil {
		return err
	}

	date, err := parseDate(record.Date)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid attendance date %q", record.Date))
	}

	existing, err := s.repo.FindByNaturalKey(ctx, record.ParticipantID, record.ClassID, date)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up attendance")
	}

	if existing != nil {
		existing.Status = record.Status
		existing.Reason = record.Reason
		existing.TeacherID = record.TeacherID
		existing.CreatedByAdmin = adminID
		if err := s.repo.Update(ctx, existing); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update attendance")
		}
		result.Updated++
		return nil
	}

	row := &models.Attendance{
		TeacherID:      record.TeacherID,
		ClassID:        record.ClassID,
		ParticipantID:  record.ParticipantID,
		Date:           date,
		Status:         record.Status,
		Reason:         record.Reason,
		CreatedByAdmin: adminID,
	}
	if err := s.repo.Insert(ctx, row); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to insert attendance")
	}
	result.Inserted++
	return nil
}

// validateRecord enforces the status enum and the status/reason
// coupling: a present participant carries no reason, any other status
// requires one of the four reasons.
func validateRecord(record AttendanceRecord) error {
	if !record.Status.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid attendance status %q", record.Status))
	}
	if record.Status == models.AttendanceStatusPresent {
		if record.Reason != nil {
			return appErrors.Clone(appErrors.ErrValidation, "reason must be empty when status is hadir")
		}
		return nil
	}
	if record.Reason == nil {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("reason is required when status is %s", record.Status))
	}
	if !record.Reason.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid attendance reason %q", *record.Reason))
	}
	return nil
}

// List returns attendance rows with joined names.
func (s *AttendanceService) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, *models.Pagination, error) {
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return rows, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

func (s *AttendanceService) triggerExport() {
	if s.exports != nil {
		s.exports.TriggerAsync(ExportDomainAttendance, "record")
	}
}
