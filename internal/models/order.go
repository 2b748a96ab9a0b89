package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Known workflow statuses. The status column is intentionally open-ended:
// any string is accepted on update, these are the values the system itself
// assigns and the notification catalog knows about.
const (
	StatusNew            = "new"
	StatusWaitingPayment = "waiting_payment"
	StatusPendingPayment = "pending_payment"
	StatusPaid           = "paid"
	StatusInProgress     = "in_progress"
	StatusCompleted      = "completed"
	StatusNeedsRevision  = "needs_revision"
	StatusCancelled      = "cancelled"
)

// FileList is a JSON-encoded array column. Reads are defensive: malformed or
// NULL values decode to an empty list, never a raw string.
type FileList []string

// Scan implements sql.Scanner.
func (f *FileList) Scan(src interface{}) error {
	*f = FileList{}
	if src == nil {
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported files column type %T", src)
	}
	if len(raw) == 0 {
		return nil
	}
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	*f = items
	return nil
}

// Value implements driver.Valuer.
func (f FileList) Value() (driver.Value, error) {
	if f == nil {
		f = FileList{}
	}
	raw, err := json.Marshal([]string(f))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// WorksList is a nullable JSON array column for selected sub-items.
type WorksList []string

// Scan implements sql.Scanner.
func (w *WorksList) Scan(src interface{}) error {
	*w = nil
	if src == nil {
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported selected_works column type %T", src)
	}
	if len(raw) == 0 {
		return nil
	}
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	*w = items
	return nil
}

// Value implements driver.Valuer. Empty lists are stored as NULL.
func (w WorksList) Value() (driver.Value, error) {
	if len(w) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal([]string(w))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Order is the central entity of the workflow.
type Order struct {
	ID              string    `db:"id" json:"id"`
	StudentID       string    `db:"student_id" json:"student_id"`
	SubjectID       string    `db:"subject_id" json:"subject_id"`
	Title           string    `db:"title" json:"title"`
	Description     string    `db:"description" json:"description"`
	InputData       string    `db:"input_data" json:"input_data"`
	VariantInfo     string    `db:"variant_info" json:"variant_info"`
	Deadline        string    `db:"deadline" json:"deadline"`
	Status          string    `db:"status" json:"status"`
	IsPaid          bool      `db:"is_paid" json:"is_paid"`
	ActualPrice     float64   `db:"actual_price" json:"actual_price"`
	SelectedWorks   WorksList `db:"selected_works" json:"selected_works,omitempty"`
	IsFullCourse    bool      `db:"is_full_course" json:"is_full_course"`
	Files           FileList  `db:"files" json:"files"`
	RevisionComment *string   `db:"revision_comment" json:"revision_comment,omitempty"`
	RevisionGrade   *string   `db:"revision_grade" json:"revision_grade,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// OrderDetail is an order with its student and subject inlined.
type OrderDetail struct {
	Order
	Student OrderStudent `json:"student"`
	Subject OrderSubject `json:"subject"`
}

// OrderStudent is the student slice embedded in joined order rows.
type OrderStudent struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	GroupName string  `json:"group"`
	Telegram  string  `json:"telegram"`
	ChatID    *string `json:"-"`
}

// OrderSubject is the subject slice embedded in joined order rows.
type OrderSubject struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

// OrderFilter encapsulates list query parameters.
type OrderFilter struct {
	Telegram string
	Page     int
	Limit    int
}

// Pagination describes the position of a page inside a larger collection.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalCount int `json:"totalCount"`
}
