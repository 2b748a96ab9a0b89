package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bbifather/student-orders-api/internal/models"
	appErrors "github.com/bbifather/student-orders-api/pkg/errors"
)

const subjectsCacheKey = "subjects:active"

type subjectRepository interface {
	ListActive(ctx context.Context) ([]models.Subject, error)
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	Create(ctx context.Context, subject *models.Subject) error
	Count(ctx context.Context) (int, error)
}

// SubjectService serves the catalog with a read-through Redis cache. The
// cache is optional; without a client every read goes to Postgres.
type SubjectService struct {
	subjects subjectRepository
	cache    *redis.Client
	ttl      time.Duration
	logger   *zap.Logger
}

// NewSubjectService constructs the catalog service.
func NewSubjectService(subjects subjectRepository, cache *redis.Client, ttl time.Duration, logger *zap.Logger) *SubjectService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &SubjectService{subjects: subjects, cache: cache, ttl: ttl, logger: logger}
}

// List returns the active catalog, cache first.
func (s *SubjectService) List(ctx context.Context) ([]models.Subject, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, subjectsCacheKey).Bytes()
		if err == nil {
			var subjects []models.Subject
			if jsonErr := json.Unmarshal(raw, &subjects); jsonErr == nil {
				return subjects, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Sugar().Warnw("subject cache read failed", "error", err)
		}
	}

	subjects, err := s.subjects.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}

	if s.cache != nil {
		if raw, err := json.Marshal(subjects); err == nil {
			if err := s.cache.Set(ctx, subjectsCacheKey, raw, s.ttl).Err(); err != nil {
				s.logger.Sugar().Warnw("subject cache write failed", "error", err)
			}
		}
	}
	return subjects, nil
}

// Get returns one subject by id.
func (s *SubjectService) Get(ctx context.Context, id string) (*models.Subject, error) {
	subject, err := s.subjects.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	return subject, nil
}

// Seed inserts the default catalog when the table is empty. Run once at
// startup so a fresh deployment has subjects to offer.
func (s *SubjectService) Seed(ctx context.Context, defaults []models.Subject) error {
	count, err := s.subjects.Count(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count subjects")
	}
	if count > 0 {
		return nil
	}
	for i := range defaults {
		subject := defaults[i]
		if err := s.subjects.Create(ctx, &subject); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to seed subjects")
		}
	}
	s.logger.Sugar().Infow("subject catalog seeded", "count", len(defaults))
	return nil
}

// DefaultSubjects is the catalog seeded into an empty database.
var DefaultSubjects = []models.Subject{
	{Name: "Математический анализ", Description: "Контрольные, типовые расчёты, курсовые", Price: 1500, IsActive: true},
	{Name: "Линейная алгебра", Description: "Контрольные и индивидуальные задания", Price: 1200, IsActive: true},
	{Name: "Программирование", Description: "Лабораторные работы и проекты", Price: 2000, IsActive: true},
	{Name: "Физика", Description: "Лабораторные и расчётные работы", Price: 1500, IsActive: true},
	{Name: "Теория вероятностей", Description: "Контрольные и типовые расчёты", Price: 1300, IsActive: true},
}
