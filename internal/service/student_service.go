package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/bbifather/student-orders-api/internal/dto"
	"github.com/bbifather/student-orders-api/internal/models"
	appErrors "github.com/bbifather/student-orders-api/pkg/errors"
)

// defaultGroupName marks students registered by the bot before their first
// order fills the real group in.
const defaultGroupName = "Не указана"

type studentRepository interface {
	List(ctx context.Context) ([]models.Student, error)
	FindByTelegram(ctx context.Context, telegram string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	UpdateChat(ctx context.Context, id, chatID, name string) error
}

// StudentService manages the student roster and chat registration.
type StudentService struct {
	students  studentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(students studentRepository, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{students: students, validator: validate, logger: logger}
}

// List returns every known student.
func (s *StudentService) List(ctx context.Context) ([]models.Student, error) {
	students, err := s.students.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, nil
}

// SaveChatID links a chat id to the student with the given handle, creating
// a roster stub when the student has never ordered.
func (s *StudentService) SaveChatID(ctx context.Context, req dto.SaveChatIDRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "telegram_username and chat_id are required")
	}
	handle := models.NormalizeHandle(req.TelegramUsername)
	if handle == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "telegram_username is required")
	}
	chatID := req.ChatID.String()
	name := strings.TrimSpace(req.FirstName + " " + req.LastName)

	student, err := s.students.FindByTelegram(ctx, handle)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up student")
		}
		student = &models.Student{
			Name:      name,
			GroupName: defaultGroupName,
			Telegram:  handle,
			ChatID:    &chatID,
		}
		if err := s.students.Create(ctx, student); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register student")
		}
		s.logger.Sugar().Infow("student registered by bot", "telegram", handle)
		return student, nil
	}

	if name == "" {
		name = student.Name
	}
	if err := s.students.UpdateChat(ctx, student.ID, chatID, name); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save chat id")
	}
	student.ChatID = &chatID
	student.Name = name
	return student, nil
}
