package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/bbifather/student-orders-api/internal/models"
)

// SubjectRepository manages the subject catalog.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs a SubjectRepository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// ListActive returns active catalog entries ordered by name.
func (r *SubjectRepository) ListActive(ctx context.Context) ([]models.Subject, error) {
	const query = `SELECT id, name, description, price, is_active, created_at
        FROM subjects WHERE is_active = true ORDER BY name`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// FindByID fetches a subject by id.
func (r *SubjectRepository) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	const query = `SELECT id, name, description, price, is_active, created_at
        FROM subjects WHERE id = $1`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// FindByName fetches a subject by exact name.
func (r *SubjectRepository) FindByName(ctx context.Context, name string) (*models.Subject, error) {
	const query = `SELECT id, name, description, price, is_active, created_at
        FROM subjects WHERE name = $1`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, name); err != nil {
		return nil, err
	}
	return &subject, nil
}

// Create inserts a new catalog entry.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	if subject.CreatedAt.IsZero() {
		subject.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO subjects (id, name, description, price, is_active, created_at)
        VALUES (:id, :name, :description, :price, :is_active, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}

// Count reports the number of catalog entries.
func (r *SubjectRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM subjects"); err != nil {
		return 0, fmt.Errorf("count subjects: %w", err)
	}
	return total, nil
}
