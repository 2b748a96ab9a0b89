package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/bbifather/student-orders-api/internal/models"
)

// OrderRepository manages persistence for orders and owns the creation
// dedup guard.
type OrderRepository struct {
	db *sqlx.DB
}

// NewOrderRepository constructs an OrderRepository.
func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `o.id, o.student_id, o.subject_id, o.title, o.description, o.input_data, o.variant_info,
        o.deadline, o.status, o.is_paid, o.actual_price, o.selected_works, o.is_full_course, o.files,
        o.revision_comment, o.revision_grade, o.created_at, o.updated_at,
        s.name AS student_name, s.group_name AS student_group, s.telegram AS student_telegram, s.chat_id AS student_chat_id,
        sub.name AS subject_name, sub.description AS subject_description, sub.price AS subject_price`

const orderJoins = `FROM orders o
        JOIN students s ON s.id = o.student_id
        JOIN subjects sub ON sub.id = o.subject_id`

type orderRow struct {
	models.Order
	StudentName        string  `db:"student_name"`
	StudentGroup       string  `db:"student_group"`
	StudentTelegram    string  `db:"student_telegram"`
	StudentChatID      *string `db:"student_chat_id"`
	SubjectName        string  `db:"subject_name"`
	SubjectDescription string  `db:"subject_description"`
	SubjectPrice       float64 `db:"subject_price"`
}

func (row orderRow) detail() models.OrderDetail {
	return models.OrderDetail{
		Order: row.Order,
		Student: models.OrderStudent{
			ID:        row.StudentID,
			Name:      row.StudentName,
			GroupName: row.StudentGroup,
			Telegram:  row.StudentTelegram,
			ChatID:    row.StudentChatID,
		},
		Subject: models.OrderSubject{
			ID:          row.SubjectID,
			Name:        row.SubjectName,
			Description: row.SubjectDescription,
			Price:       row.SubjectPrice,
		},
	}
}

// List returns joined orders newest first, optionally filtered by owner handle.
func (r *OrderRepository) List(ctx context.Context, filter models.OrderFilter) ([]models.OrderDetail, int, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	offset := (page - 1) * limit

	where := ""
	args := []interface{}{}
	if filter.Telegram != "" {
		where = "WHERE s.telegram = $1"
		args = append(args, models.NormalizeHandle(filter.Telegram))
	}

	query := fmt.Sprintf("SELECT %s %s %s ORDER BY o.created_at DESC LIMIT %d OFFSET %d",
		orderColumns, orderJoins, where, limit, offset)

	var rows []orderRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(o.id) %s %s", orderJoins, where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	details := make([]models.OrderDetail, 0, len(rows))
	for _, row := range rows {
		details = append(details, row.detail())
	}
	return details, total, nil
}

// FindByID fetches a joined order by id.
func (r *OrderRepository) FindByID(ctx context.Context, id string) (*models.OrderDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE o.id = $1", orderColumns, orderJoins)
	var row orderRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	detail := row.detail()
	return &detail, nil
}

type createOrderArgs struct {
	models.Order
	DedupCutoff time.Time `db:"dedup_cutoff"`
}

// CreateIfAbsent inserts the order unless a row with the same student,
// subject, title and deadline already exists inside the dedup window. The
// guard is a conditional insert so two near-simultaneous submissions cannot
// both pass an application-level check. Returns false when the insert was
// suppressed by an existing duplicate.
func (r *OrderRepository) CreateIfAbsent(ctx context.Context, order *models.Order, window time.Duration) (bool, error) {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now
	if order.Files == nil {
		order.Files = models.FileList{}
	}

	const query = `INSERT INTO orders (id, student_id, subject_id, title, description, input_data, variant_info,
            deadline, status, is_paid, actual_price, selected_works, is_full_course, files, created_at, updated_at)
        SELECT :id, :student_id, :subject_id, :title, :description, :input_data, :variant_info,
            :deadline, :status, :is_paid, :actual_price, :selected_works, :is_full_course, :files, :created_at, :updated_at
        WHERE NOT EXISTS (
            SELECT 1 FROM orders
            WHERE student_id = :student_id AND subject_id = :subject_id
              AND title = :title AND deadline = :deadline
              AND created_at >= :dedup_cutoff
        )`

	args := createOrderArgs{Order: *order, DedupCutoff: now.Add(-window)}
	res, err := r.db.NamedExecContext(ctx, query, args)
	if err != nil {
		return false, fmt.Errorf("create order: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create order result: %w", err)
	}
	return inserted > 0, nil
}

// FindDuplicate returns the most recent order matching the dedup key inside
// the window. Most recent wins when somehow multiple exist.
func (r *OrderRepository) FindDuplicate(ctx context.Context, studentID, subjectID, title, deadline string, window time.Duration) (*models.OrderDetail, error) {
	query := fmt.Sprintf(`SELECT %s %s
        WHERE o.student_id = $1 AND o.subject_id = $2 AND o.title = $3 AND o.deadline = $4 AND o.created_at >= $5
        ORDER BY o.created_at DESC LIMIT 1`, orderColumns, orderJoins)
	var row orderRow
	cutoff := time.Now().UTC().Add(-window)
	if err := r.db.GetContext(ctx, &row, query, studentID, subjectID, title, deadline, cutoff); err != nil {
		return nil, err
	}
	detail := row.detail()
	return &detail, nil
}

// UpdateStatus sets the status column verbatim.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id, status string) error {
	const query = `UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return nil
}

// UpdatePrice sets the actual price, optionally transitioning status in the
// same statement.
func (r *OrderRepository) UpdatePrice(ctx context.Context, id string, price float64, status string) error {
	if status != "" {
		const query = `UPDATE orders SET actual_price = $2, status = $3, updated_at = $4 WHERE id = $1`
		if _, err := r.db.ExecContext(ctx, query, id, price, status, time.Now().UTC()); err != nil {
			return fmt.Errorf("update order price: %w", err)
		}
		return nil
	}
	const query = `UPDATE orders SET actual_price = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, price, time.Now().UTC()); err != nil {
		return fmt.Errorf("update order price: %w", err)
	}
	return nil
}

// MarkPaid flips the paid flag. Status is deliberately left alone.
func (r *OrderRepository) MarkPaid(ctx context.Context, id string) error {
	const query = `UPDATE orders SET is_paid = true, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark order paid: %w", err)
	}
	return nil
}

// SetFiles replaces the stored file list, optionally forcing a status.
func (r *OrderRepository) SetFiles(ctx context.Context, id string, files models.FileList, status string) error {
	if status != "" {
		const query = `UPDATE orders SET files = $2, status = $3, updated_at = $4 WHERE id = $1`
		if _, err := r.db.ExecContext(ctx, query, id, files, status, time.Now().UTC()); err != nil {
			return fmt.Errorf("set order files: %w", err)
		}
		return nil
	}
	const query = `UPDATE orders SET files = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, files, time.Now().UTC()); err != nil {
		return fmt.Errorf("set order files: %w", err)
	}
	return nil
}

// SetRevision stores the revision comment and grade and moves the order to
// needs_revision.
func (r *OrderRepository) SetRevision(ctx context.Context, id, comment string, grade *string) error {
	const query = `UPDATE orders SET status = $2, revision_comment = $3, revision_grade = $4, updated_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.StatusNeedsRevision, comment, grade, time.Now().UTC()); err != nil {
		return fmt.Errorf("set order revision: %w", err)
	}
	return nil
}
