package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/bbifather/student-orders-api/internal/models"
)

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns all students, newest first.
func (r *StudentRepository) List(ctx context.Context) ([]models.Student, error) {
	const query = `SELECT id, name, group_name, telegram, chat_id, created_at, updated_at
        FROM students ORDER BY created_at DESC`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// FindByTelegram fetches a student by normalized handle.
func (r *StudentRepository) FindByTelegram(ctx context.Context, telegram string) (*models.Student, error) {
	const query = `SELECT id, name, group_name, telegram, chat_id, created_at, updated_at
        FROM students WHERE telegram = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, telegram); err != nil {
		return nil, err
	}
	return &student, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, name, group_name, telegram, chat_id, created_at, updated_at)
        VALUES (:id, :name, :group_name, :telegram, :chat_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// UpdateProfile overwrites name and group for an existing student.
// Last write wins, no history kept.
func (r *StudentRepository) UpdateProfile(ctx context.Context, id, name, groupName string) error {
	const query = `UPDATE students SET name = $2, group_name = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, name, groupName, time.Now().UTC()); err != nil {
		return fmt.Errorf("update student profile: %w", err)
	}
	return nil
}

// UpdateChat stores the messaging chat id and refreshes the display name.
func (r *StudentRepository) UpdateChat(ctx context.Context, id, chatID, name string) error {
	const query = `UPDATE students SET chat_id = $2, name = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, chatID, name, time.Now().UTC()); err != nil {
		return fmt.Errorf("update student chat: %w", err)
	}
	return nil
}
