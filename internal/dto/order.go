package dto

import "github.com/bbifather/student-orders-api/internal/models"

// StudentBlock carries the submitter's identity inside a create request.
type StudentBlock struct {
	Name      string `json:"name" validate:"required"`
	GroupName string `json:"group" validate:"required"`
	Telegram  string `json:"telegram" validate:"required"`
}

// CreateOrderRequest is the order submission payload.
type CreateOrderRequest struct {
	Student       StudentBlock `json:"student" validate:"required"`
	SubjectID     string       `json:"subject_id"`
	Title         string       `json:"title" validate:"required"`
	Description   string       `json:"description"`
	InputData     string       `json:"input_data"`
	VariantInfo   string       `json:"variant_info"`
	Deadline      string       `json:"deadline" validate:"required"`
	ActualPrice   float64      `json:"actual_price"`
	SelectedWorks []string     `json:"selected_works"`
	IsFullCourse  bool         `json:"is_full_course"`
}

// UpdateStatusRequest carries the new status string.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdatePriceRequest carries the new actual price.
type UpdatePriceRequest struct {
	Price float64 `json:"price" validate:"gte=0"`
}

// RevisionRequest carries the revision comment and optional grade.
type RevisionRequest struct {
	Comment string  `json:"comment"`
	Grade   *string `json:"grade"`
}

// OrderListResponse is the pagination contract for order listings.
type OrderListResponse struct {
	Orders []models.OrderDetail `json:"orders"`
	Total  int                  `json:"total"`
}

// SendFilesRequest asks the service to push an order's files to the
// student's chat. The telegram handle must match the order's owner.
type SendFilesRequest struct {
	OrderID  string `json:"order_id" validate:"required"`
	Telegram string `json:"telegram" validate:"required"`
}

// SendFilesResult reports how many files were queued for delivery.
type SendFilesResult struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	SentCount  int    `json:"sent_count"`
	TotalFiles int    `json:"total_files"`
}

// UploadResult summarises an attach-files call.
type UploadResult struct {
	Order         *models.OrderDetail `json:"order"`
	SavedFiles    []string            `json:"saved_files"`
	RejectedFiles []RejectedFile      `json:"rejected_files"`
}

// RejectedFile names an upload that failed validation and why.
type RejectedFile struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}
