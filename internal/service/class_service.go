package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tahsinku/tahsinku-api/internal/models"
	appErrors "github.com/tahsinku/tahsinku-api/pkg/errors"
)

type classRepository interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.Class, error)
	FindByID(ctx context.Context, id string) (*models.ClassDetail, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	Delete(ctx context.Context, id string) error
}

type teacherLookup interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type scheduleInvalidator interface {
	InvalidateSchedules(ctx context.Context)
}

// CreateClassRequest holds payload for creating classes.
type CreateClassRequest struct {
	Type      models.ClassType `json:"type" validate:"required"`
	Name      string           `json:"name" validate:"required"`
	TeacherID string           `json:"teacher_id" validate:"required"`
	Capacity  int              `json:"capacity"`
	Days      []string         `json:"days"`
	Time      string           `json:"time"`
}

// UpdateClassRequest holds payload for updating classes.
type UpdateClassRequest struct {
	Type      models.ClassType `json:"type" validate:"required"`
	Name      string           `json:"name" validate:"required"`
	TeacherID string           `json:"teacher_id" validate:"required"`
	Capacity  int              `json:"capacity"`
	Days      []string         `json:"days"`
	Time      string           `json:"time"`
}

// ClassService handles class use-cases.
type ClassService struct {
	repo      classRepository
	teachers  teacherLookup
	cache     scheduleInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs the class service.
func NewClassService(repo classRepository, teachers teacherLookup, cache scheduleInvalidator, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, teachers: teachers, cache: cache, validator: validate, logger: logger}
}

// List returns classes with teacher names and pagination metadata.
func (s *ClassService) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, *models.Pagination, error) {
	classes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return classes, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one class with its teacher name.
func (s *ClassService) Get(ctx context.Context, id string) (*models.ClassDetail, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

// Create registers a new class under a teacher. Capacity defaults by
// class type when omitted.
func (s *ClassService) Create(ctx context.Context, req CreateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	if !req.Type.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "type must be privat or reguler")
	}
	if _, err := s.teachers.FindByID(ctx, req.TeacherID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	capacity := req.Capacity
	if capacity <= 0 {
		capacity = req.Type.DefaultCapacity()
	}

	class := &models.Class{
		Type:      req.Type,
		Name:      req.Name,
		TeacherID: req.TeacherID,
		Capacity:  capacity,
		Days:      models.JoinDays(req.Days),
		Time:      req.Time,
	}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	s.invalidate(ctx)
	return class, nil
}

// Update modifies an existing class.
func (s *ClassService) Update(ctx context.Context, id string, req UpdateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	if !req.Type.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "type must be privat or reguler")
	}
	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	class := detail.Class
	class.Type = req.Type
	class.Name = req.Name
	class.TeacherID = req.TeacherID
	class.Time = req.Time
	class.Days = models.JoinDays(req.Days)
	if req.Capacity > 0 {
		class.Capacity = req.Capacity
	}
	if err := s.repo.Update(ctx, &class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	s.invalidate(ctx)
	return &class, nil
}

// Delete removes a class and, via cascade, its enrollments and
// attendance.
func (s *ClassService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}
	s.invalidate(ctx)
	return nil
}

func (s *ClassService) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.InvalidateSchedules(ctx)
	}
}
