package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tahsinku/tahsinku-api/internal/models"
	appErrors "github.com/tahsinku/tahsinku-api/pkg/errors"
)

// BillingCycleDays is the length of one subscription cycle.
const BillingCycleDays = 28

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	UpdateCycle(ctx context.Context, enrollment *models.Enrollment) error
	SyncOverdue(ctx context.Context, today time.Time) (int, error)
	Delete(ctx context.Context, id string) error
}

type classLookup interface {
	FindByID(ctx context.Context, id string) (*models.ClassDetail, error)
}

type exportTrigger interface {
	TriggerAsync(domain, trigger string)
}

// CreateEnrollmentRequest holds payload for creating enrollments.
type CreateEnrollmentRequest struct {
	ParticipantID string `json:"participant_id" validate:"required"`
	ClassID       string `json:"class_id" validate:"required"`
	StartDate     string `json:"start_date"`
}

// EnrollmentService drives the billing-cycle lifecycle.
type EnrollmentService struct {
	repo      enrollmentRepository
	classes   classLookup
	exports   exportTrigger
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewEnrollmentService constructs the enrollment service.
func NewEnrollmentService(repo enrollmentRepository, classes classLookup, exports exportTrigger, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		repo:      repo,
		classes:   classes,
		exports:   exports,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// DeriveStatus computes the display status of an enrollment from its
// billing dates and stored status. The result is never persisted: the
// stored status and the derived one can diverge until the next mutation
// or an explicit overdue sync.
//
// Dates are compared as calendar days, so the boundary does not drift
// with the time of day or the timezone of either argument.
func DeriveStatus(today time.Time, startDate, dueDate *time.Time, stored models.EnrollmentStatus) (models.DisplayStatus, *int) {
	if dueDate == nil {
		if stored == models.EnrollmentStatusPaid {
			return models.DisplayStatusInProgress, nil
		}
		return models.DisplayStatusPending, nil
	}

	daysLeft := calendarDaysBetween(today, *dueDate)
	switch {
	case daysLeft < 0:
		return models.DisplayStatusPending, &daysLeft
	case daysLeft <= 7:
		return models.DisplayStatusDueSoon, &daysLeft
	default:
		if stored == models.EnrollmentStatusPaid {
			return models.DisplayStatusInProgress, &daysLeft
		}
		return models.DisplayStatusPending, &daysLeft
	}
}

// calendarDaysBetween counts whole calendar days from a to b, ignoring
// the time-of-day component of both.
func calendarDaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	start := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	end := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours() / 24)
}

// List returns enrollments with their derived display status filled in.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	today := s.now()
	for i := range enrollments {
		enrollments[i].DerivedStatus, enrollments[i].DaysLeft = DeriveStatus(today, enrollments[i].StartDate, enrollments[i].DueDate, enrollments[i].Status)
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return enrollments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one enrollment with its derived display status.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	detail.DerivedStatus, detail.DaysLeft = DeriveStatus(s.now(), detail.StartDate, detail.DueDate, detail.Status)
	return detail, nil
}

// Create opens a new billing cycle in the pending state. The class
// determines the teacher. Capacity is descriptive only and never gates
// enrollment. When no start date is given the cycle starts today.
func (s *EnrollmentService) Create(ctx context.Context, req CreateEnrollmentRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	class, err := s.classes.FindByID(ctx, req.ClassID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	start := s.today()
	if req.StartDate != "" {
		parsed, err := parseDate(req.StartDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "start_date must be a valid date (YYYY-MM-DD)")
		}
		start = parsed
	}
	due := start.AddDate(0, 0, BillingCycleDays)

	enrollment := &models.Enrollment{
		ParticipantID: req.ParticipantID,
		TeacherID:     class.TeacherID,
		ClassID:       class.ID,
		StartDate:     &start,
		DueDate:       &due,
		Status:        models.EnrollmentStatusPending,
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
	s.triggerExport("created")
	return enrollment, nil
}

// MarkPaid settles the current cycle and advances the billing dates by
// one cycle length. Calling it twice advances the cycle twice; dates
// never regress. Requires an authenticated admin bound to the context.
func (s *EnrollmentService) MarkPaid(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	if AdminFromContext(ctx) == nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "mark paid requires an authenticated admin")
	}

	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	base := s.today()
	switch {
	case detail.DueDate != nil:
		base = *detail.DueDate
	case detail.StartDate != nil:
		base = *detail.StartDate
	}
	due := base.AddDate(0, 0, BillingCycleDays)

	detail.StartDate = &base
	detail.DueDate = &due
	detail.Status = models.EnrollmentStatusPaid
	if err := s.repo.UpdateCycle(ctx, &detail.Enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to advance billing cycle")
	}

	// The status change is already committed; a failed export never
	// rolls it back.
	s.triggerExport("mark_paid")

	detail.DerivedStatus, detail.DaysLeft = DeriveStatus(s.now(), detail.StartDate, detail.DueDate, detail.Status)
	return detail, nil
}

// SetCycleStart overrides the cycle start date. The due date follows at
// one cycle length and the stored status always resets to pending; an
// admin must re-confirm payment afterward.
func (s *EnrollmentService) SetCycleStart(ctx context.Context, id, newStart string) (*models.EnrollmentDetail, error) {
	start, err := parseDate(newStart)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start date must be a valid date (YYYY-MM-DD)")
	}

	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	due := start.AddDate(0, 0, BillingCycleDays)
	detail.StartDate = &start
	detail.DueDate = &due
	detail.Status = models.EnrollmentStatusPending
	if err := s.repo.UpdateCycle(ctx, &detail.Enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set cycle start")
	}
	s.triggerExport("set_cycle_start")

	detail.DerivedStatus, detail.DaysLeft = DeriveStatus(s.now(), detail.StartDate, detail.DueDate, detail.Status)
	return detail, nil
}

// SyncOverdue persists the pending status for every enrollment past its
// due date that is not marked paid. Rows not yet due, or already paid,
// are left untouched. Returns the number of corrected rows.
func (s *EnrollmentService) SyncOverdue(ctx context.Context) (int, error) {
	updated, err := s.repo.SyncOverdue(ctx, s.today())
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sync overdue enrollments")
	}
	if updated > 0 {
		s.triggerExport("sync_overdue")
	}
	return updated, nil
}

// Delete removes an enrollment.
func (s *EnrollmentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete enrollment")
	}
	s.triggerExport("deleted")
	return nil
}

func (s *EnrollmentService) today() time.Time {
	y, m, d := s.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *EnrollmentService) triggerExport(trigger string) {
	if s.exports != nil {
		s.exports.TriggerAsync(ExportDomainPayments, trigger)
	}
}

// parseDate parses a YYYY-MM-DD calendar date.
func parseDate(value string) (time.Time, error) {
	return time.Parse("2006-01-02", value)
}
