package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tahsinku/tahsinku-api/internal/models"
	appErrors "github.com/tahsinku/tahsinku-api/pkg/errors"
)

type teacherRepository interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
	Delete(ctx context.Context, id string) error
}

// CreateTeacherRequest holds payload for creating teachers.
type CreateTeacherRequest struct {
	Name    string  `json:"name" validate:"required"`
	Phone   *string `json:"phone"`
	Gender  *string `json:"gender"`
	Address *string `json:"address"`
	Notes   *string `json:"notes"`
}

// UpdateTeacherRequest holds payload for updating teachers.
type UpdateTeacherRequest struct {
	Name    string  `json:"name" validate:"required"`
	Phone   *string `json:"phone"`
	Gender  *string `json:"gender"`
	Address *string `json:"address"`
	Notes   *string `json:"notes"`
}

// TeacherService handles instructor use-cases.
type TeacherService struct {
	repo      teacherRepository
	exports   exportTrigger
	cache     scheduleInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs the teacher service.
func NewTeacherService(repo teacherRepository, exports exportTrigger, cache scheduleInvalidator, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{repo: repo, exports: exports, cache: cache, validator: validate, logger: logger}
}

// List returns teachers and pagination metadata.
func (s *TeacherService) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, *models.Pagination, error) {
	teachers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return teachers, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one teacher.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return teacher, nil
}

// Create registers a new teacher.
func (s *TeacherService) Create(ctx context.Context, req CreateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	teacher := &models.Teacher{
		Name:    req.Name,
		Phone:   req.Phone,
		Gender:  req.Gender,
		Address: req.Address,
		Notes:   req.Notes,
	}
	if err := s.repo.Create(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher")
	}
	s.afterMutation(ctx, "created")
	return teacher, nil
}

// Update modifies an existing teacher.
func (s *TeacherService) Update(ctx context.Context, id string, req UpdateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	teacher, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	teacher.Name = req.Name
	teacher.Phone = req.Phone
	teacher.Gender = req.Gender
	teacher.Address = req.Address
	teacher.Notes = req.Notes
	if err := s.repo.Update(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher")
	}
	s.afterMutation(ctx, "updated")
	return teacher, nil
}

// Delete removes a teacher and, via cascade, everything they own.
func (s *TeacherService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete teacher")
	}
	s.afterMutation(ctx, "deleted")
	return nil
}

func (s *TeacherService) afterMutation(ctx context.Context, trigger string) {
	if s.exports != nil {
		s.exports.TriggerAsync(ExportDomainInstructors, trigger)
	}
	if s.cache != nil {
		s.cache.InvalidateSchedules(ctx)
	}
}
