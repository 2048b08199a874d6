package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/tahsinku/tahsinku-api/internal/models"
	appErrors "github.com/tahsinku/tahsinku-api/pkg/errors"
)

const scheduleCacheKey = "schedules:all"

type scheduleCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type cacheMetrics interface {
	RecordCacheOperation(hit bool)
}

// TeacherSchedule groups a teacher's classes for the schedule board.
type TeacherSchedule struct {
	TeacherID   string          `json:"teacher_id"`
	TeacherName string          `json:"teacher_name"`
	Classes     []ScheduleClass `json:"classes"`
}

// ScheduleClass is one class entry on the schedule board.
type ScheduleClass struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Type     models.ClassType `json:"type"`
	Days     []string         `json:"days"`
	Time     string           `json:"time"`
	Capacity int              `json:"capacity"`
}

// ScheduleService assembles the per-teacher schedule board, cached in
// Redis and invalidated on any teacher or class mutation.
type ScheduleService struct {
	teachers teacherRepository
	classes  classRepository
	cache    scheduleCache
	metrics  cacheMetrics
	logger   *zap.Logger
	ttl      time.Duration
}

// NewScheduleService constructs the schedule service.
func NewScheduleService(teachers teacherRepository, classes classRepository, cache scheduleCache, metrics cacheMetrics, logger *zap.Logger, ttl time.Duration) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ScheduleService{teachers: teachers, classes: classes, cache: cache, metrics: metrics, logger: logger, ttl: ttl}
}

// List returns every teacher with their classes grouped. The second
// return value reports whether the payload came from cache.
func (s *ScheduleService) List(ctx context.Context) ([]TeacherSchedule, bool, error) {
	if s.cache != nil {
		var cached []TeacherSchedule
		if err := s.cache.Get(ctx, scheduleCacheKey, &cached); err == nil {
			s.recordCache(true)
			return cached, true, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("schedule cache read failed", zap.Error(err))
		}
		s.recordCache(false)
	}

	schedules, err := s.build(ctx)
	if err != nil {
		return nil, false, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, scheduleCacheKey, schedules, s.ttl); err != nil {
			s.logger.Warn("schedule cache write failed", zap.Error(err))
		}
	}
	return schedules, false, nil
}

// InvalidateSchedules drops the cached schedule board.
func (s *ScheduleService) InvalidateSchedules(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "schedules:*"); err != nil {
		s.logger.Warn("schedule cache invalidation failed", zap.Error(err))
	}
}

func (s *ScheduleService) build(ctx context.Context) ([]TeacherSchedule, error) {
	teachers, _, err := s.teachers.List(ctx, models.TeacherFilter{PageSize: 100})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}

	schedules := make([]TeacherSchedule, 0, len(teachers))
	for _, teacher := range teachers {
		classes, err := s.classes.ListByTeacher(ctx, teacher.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes for schedule")
		}
		entry := TeacherSchedule{
			TeacherID:   teacher.ID,
			TeacherName: teacher.Name,
			Classes:     make([]ScheduleClass, 0, len(classes)),
		}
		for i := range classes {
			class := classes[i]
			entry.Classes = append(entry.Classes, ScheduleClass{
				ID:       class.ID,
				Name:     class.Name,
				Type:     class.Type,
				Days:     class.DayList(),
				Time:     class.Time,
				Capacity: class.Capacity,
			})
		}
		schedules = append(schedules, entry)
	}
	return schedules, nil
}

func (s *ScheduleService) recordCache(hit bool) {
	if s.metrics != nil {
		s.metrics.RecordCacheOperation(hit)
	}
}
