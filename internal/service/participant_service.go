package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tahsinku/tahsinku-api/internal/models"
	appErrors "github.com/tahsinku/tahsinku-api/pkg/errors"
)

type participantRepository interface {
	List(ctx context.Context, filter models.ParticipantFilter) ([]models.Participant, int, error)
	FindByID(ctx context.Context, id string) (*models.Participant, error)
	Create(ctx context.Context, participant *models.Participant) error
	Update(ctx context.Context, participant *models.Participant) error
	Delete(ctx context.Context, id string) error
}

// CreateParticipantRequest holds payload for creating participants.
type CreateParticipantRequest struct {
	Name     string  `json:"name" validate:"required"`
	Address  *string `json:"address"`
	Whatsapp *string `json:"whatsapp"`
	Gender   *string `json:"gender"`
	Job      *string `json:"job"`
}

// UpdateParticipantRequest holds payload for updating participants.
type UpdateParticipantRequest struct {
	Name     string  `json:"name" validate:"required"`
	Address  *string `json:"address"`
	Whatsapp *string `json:"whatsapp"`
	Gender   *string `json:"gender"`
	Job      *string `json:"job"`
}

// ParticipantService handles participant use-cases.
type ParticipantService struct {
	repo      participantRepository
	exports   exportTrigger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewParticipantService constructs the participant service.
func NewParticipantService(repo participantRepository, exports exportTrigger, validate *validator.Validate, logger *zap.Logger) *ParticipantService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ParticipantService{repo: repo, exports: exports, validator: validate, logger: logger}
}

// List returns participants and pagination metadata.
func (s *ParticipantService) List(ctx context.Context, filter models.ParticipantFilter) ([]models.Participant, *models.Pagination, error) {
	participants, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list participants")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return participants, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one participant.
func (s *ParticipantService) Get(ctx context.Context, id string) (*models.Participant, error) {
	participant, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "participant not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load participant")
	}
	return participant, nil
}

// Create registers a new participant.
func (s *ParticipantService) Create(ctx context.Context, req CreateParticipantRequest) (*models.Participant, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid participant payload")
	}
	participant := &models.Participant{
		Name:     req.Name,
		Address:  req.Address,
		Whatsapp: req.Whatsapp,
		Gender:   req.Gender,
		Job:      req.Job,
	}
	if err := s.repo.Create(ctx, participant); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create participant")
	}
	s.triggerExport("created")
	return participant, nil
}

// Update modifies an existing participant.
func (s *ParticipantService) Update(ctx context.Context, id string, req UpdateParticipantRequest) (*models.Participant, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid participant payload")
	}
	participant, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	participant.Name = req.Name
	participant.Address = req.Address
	participant.Whatsapp = req.Whatsapp
	participant.Gender = req.Gender
	participant.Job = req.Job
	if err := s.repo.Update(ctx, participant); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update participant")
	}
	s.triggerExport("updated")
	return participant, nil
}

// Delete removes a participant and, via cascade, their enrollments and
// attendance.
func (s *ParticipantService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete participant")
	}
	s.triggerExport("deleted")
	return nil
}

func (s *ParticipantService) triggerExport(trigger string) {
	if s.exports != nil {
		s.exports.TriggerAsync(ExportDomainParticipants, trigger)
	}
}
