package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/bbifather/student-orders-api/internal/dto"
	"github.com/bbifather/student-orders-api/internal/models"
	appErrors "github.com/bbifather/student-orders-api/pkg/errors"
	"github.com/bbifather/student-orders-api/pkg/storage"
)

type orderRepository interface {
	List(ctx context.Context, filter models.OrderFilter) ([]models.OrderDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.OrderDetail, error)
	CreateIfAbsent(ctx context.Context, order *models.Order, window time.Duration) (bool, error)
	FindDuplicate(ctx context.Context, studentID, subjectID, title, deadline string, window time.Duration) (*models.OrderDetail, error)
	UpdateStatus(ctx context.Context, id, status string) error
	UpdatePrice(ctx context.Context, id string, price float64, status string) error
	MarkPaid(ctx context.Context, id string) error
	SetFiles(ctx context.Context, id string, files models.FileList, status string) error
	SetRevision(ctx context.Context, id, comment string, grade *string) error
}

type studentUpserter interface {
	FindByTelegram(ctx context.Context, telegram string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	UpdateProfile(ctx context.Context, id, name, groupName string) error
}

type subjectResolver interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	FindByName(ctx context.Context, name string) (*models.Subject, error)
	Create(ctx context.Context, subject *models.Subject) error
}

type orderNotifier interface {
	OrderCreated(order models.OrderDetail)
	StatusChanged(order models.OrderDetail, status string)
	PaymentClaimed(order models.OrderDetail)
	RevisionRequested(order models.OrderDetail, comment string, grade *string)
	OrderFiles(order models.OrderDetail, paths []string)
}

type orderFileStore interface {
	Save(orderID, filename string, r io.Reader) (string, error)
	SaveBytes(orderID, filename string, data []byte) (string, error)
	Exists(orderID, filename string) bool
	Open(orderID, filename string) (*os.File, error)
	Path(orderID, filename string) string
	ZipToTemp(orderID string, files []string) (string, []string, error)
}

type deliverableGenerator interface {
	DemoPDF(orderID string) ([]byte, error)
	DemoDocx(orderID string) ([]byte, error)
}

// Upload is one file submitted to the attach endpoint.
type Upload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// FileDownload bundles an opened file with its response metadata.
type FileDownload struct {
	File        *os.File
	Filename    string
	ContentType string
}

// ArchiveDownload points at a temporary zip scheduled for removal after the
// response is streamed.
type ArchiveDownload struct {
	Path     string
	Filename string
	Included []string
}

// OrderServiceConfig tunes workflow behaviour.
type OrderServiceConfig struct {
	DedupWindow        time.Duration
	CustomSubjectName  string
	MaxFileSizeBytes   int64
	AllowedExtensions  []string
	RecompleteOnAttach bool
}

// defaultAllowedExtensions covers common document, spreadsheet,
// presentation, archive, image and source-code uploads.
var defaultAllowedExtensions = []string{
	".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx", ".pdf", ".txt", ".rtf", ".odt", ".md", ".csv",
	".zip", ".rar", ".7z",
	".png", ".jpg", ".jpeg", ".gif", ".bmp",
	".c", ".cpp", ".h", ".py", ".java", ".js", ".ts", ".go", ".cs", ".sql", ".ipynb", ".m",
}

// OrderService owns the order lifecycle: creation with its dedup guard,
// status and price transitions, file attachment and the notification rules
// layered on top.
type OrderService struct {
	orders    orderRepository
	students  studentUpserter
	subjects  subjectResolver
	notifier  orderNotifier
	store     orderFileStore
	generator deliverableGenerator
	validator *validator.Validate
	logger    *zap.Logger
	cfg       OrderServiceConfig
	extSet    map[string]struct{}
}

// NewOrderService constructs the workflow service.
func NewOrderService(orders orderRepository, students studentUpserter, subjects subjectResolver, notifier orderNotifier, store orderFileStore, generator deliverableGenerator, validate *validator.Validate, logger *zap.Logger, cfg OrderServiceConfig) *OrderService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DedupWindow <= 0 {
		cfg.DedupWindow = 2 * time.Minute
	}
	if cfg.CustomSubjectName == "" {
		cfg.CustomSubjectName = "Другой предмет"
	}
	if cfg.MaxFileSizeBytes <= 0 {
		cfg.MaxFileSizeBytes = 100 * 1024 * 1024
	}
	exts := cfg.AllowedExtensions
	if len(exts) == 0 {
		exts = defaultAllowedExtensions
	}
	extSet := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		extSet[strings.ToLower(ext)] = struct{}{}
	}
	return &OrderService{
		orders:    orders,
		students:  students,
		subjects:  subjects,
		notifier:  notifier,
		store:     store,
		generator: generator,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		extSet:    extSet,
	}
}

// List returns joined orders with the pagination total.
func (s *OrderService) List(ctx context.Context, filter models.OrderFilter) (*dto.OrderListResponse, *models.Pagination, error) {
	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list orders")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	pagination := &models.Pagination{Page: page, PageSize: limit, TotalCount: total}
	return &dto.OrderListResponse{Orders: orders, Total: total}, pagination, nil
}

// Get returns one joined order.
func (s *OrderService) Get(ctx context.Context, id string) (*models.OrderDetail, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "order not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load order")
	}
	return order, nil
}

// Create submits a new order. Identical submissions inside the dedup window
// return the previously created order instead of inserting a duplicate.
func (s *OrderService) Create(ctx context.Context, req dto.CreateOrderRequest) (*models.OrderDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid order payload")
	}
	handle := models.NormalizeHandle(req.Student.Telegram)
	if handle == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "telegram handle is required")
	}

	student, err := s.upsertStudent(ctx, handle, req.Student)
	if err != nil {
		return nil, err
	}
	subject, err := s.resolveSubject(ctx, req.SubjectID)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		StudentID:     student.ID,
		SubjectID:     subject.ID,
		Title:         req.Title,
		Description:   req.Description,
		InputData:     req.InputData,
		VariantInfo:   req.VariantInfo,
		Deadline:      req.Deadline,
		Status:        models.StatusNew,
		ActualPrice:   req.ActualPrice,
		SelectedWorks: models.WorksList(req.SelectedWorks),
		IsFullCourse:  req.IsFullCourse,
		Files:         models.FileList{},
	}

	created, err := s.orders.CreateIfAbsent(ctx, order, s.cfg.DedupWindow)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create order")
	}
	if !created {
		existing, err := s.orders.FindDuplicate(ctx, student.ID, subject.ID, req.Title, req.Deadline, s.cfg.DedupWindow)
		if err == nil {
			s.logger.Sugar().Infow("duplicate submission absorbed", "order_id", existing.ID, "telegram", handle)
			return existing, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve duplicate order")
	}

	detail, err := s.orders.FindByID(ctx, order.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load created order")
	}

	if s.notifier != nil {
		s.notifier.OrderCreated(*detail)
	}
	return detail, nil
}

// UpdateStatus sets the status verbatim. There is no transition table: any
// string is accepted, matching the observed workflow. The student is
// notified only when the value actually changed.
func (s *OrderService) UpdateStatus(ctx context.Context, id string, req dto.UpdateStatusRequest) (*models.OrderDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "status is required")
	}
	old, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.orders.UpdateStatus(ctx, id, req.Status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update status")
	}
	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if old.Status != req.Status && s.notifier != nil {
		s.notifier.StatusChanged(*updated, req.Status)
	}
	return updated, nil
}

// UpdatePrice sets the actual price. An unpaid order still sitting in new or
// waiting_payment moves to waiting_payment as a side effect; other statuses
// are left alone.
func (s *OrderService) UpdatePrice(ctx context.Context, id string, req dto.UpdatePriceRequest) (*models.OrderDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "price must be non-negative")
	}
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	transition := !order.IsPaid && (order.Status == models.StatusNew ||
		order.Status == models.StatusWaitingPayment ||
		order.Status == models.StatusPendingPayment)
	newStatus := ""
	if transition {
		newStatus = models.StatusWaitingPayment
	}
	changed := transition && order.Status != models.StatusWaitingPayment

	if err := s.orders.UpdatePrice(ctx, id, req.Price, newStatus); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update price")
	}
	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if changed && s.notifier != nil {
		s.notifier.StatusChanged(*updated, models.StatusWaitingPayment)
	}
	return updated, nil
}

// MarkPaid flips the paid flag. No status change and no notification.
func (s *OrderService) MarkPaid(ctx context.Context, id string) (*models.OrderDetail, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.orders.MarkPaid(ctx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark order paid")
	}
	return s.Get(ctx, id)
}

// NotifyPayment relays a student's payment claim to the admin targets and
// confirms receipt to the student.
func (s *OrderService) NotifyPayment(ctx context.Context, id string) error {
	order, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if s.notifier != nil {
		s.notifier.PaymentClaimed(*order)
	}
	return nil
}

// RequestRevision stores the revision comment and grade and notifies both
// sides.
func (s *OrderService) RequestRevision(ctx context.Context, id string, req dto.RevisionRequest) (*models.OrderDetail, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.orders.SetRevision(ctx, id, req.Comment, req.Grade); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to request revision")
	}
	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.RevisionRequested(*updated, req.Comment, req.Grade)
	}
	return updated, nil
}

// AttachFiles validates and stores uploads for an order, appending them to
// the stored file list. A call without uploads synthesizes placeholder
// deliverables. When at least one file lands, the order is completed and the
// student notified; a call where everything was rejected changes nothing.
func (s *OrderService) AttachFiles(ctx context.Context, id string, uploads []Upload) (*dto.UploadResult, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var saved []string
	rejected := make([]dto.RejectedFile, 0)

	if len(uploads) == 0 {
		saved, err = s.generateDemoFiles(id)
		if err != nil {
			return nil, err
		}
	} else {
		for _, upload := range uploads {
			name, reason := s.acceptUpload(id, upload)
			if reason != "" {
				rejected = append(rejected, dto.RejectedFile{Filename: upload.Filename, Reason: reason})
				continue
			}
			saved = append(saved, name)
		}
	}

	if len(saved) == 0 {
		return &dto.UploadResult{Order: order, SavedFiles: []string{}, RejectedFiles: rejected}, nil
	}

	files := append(models.FileList{}, order.Files...)
	files = append(files, saved...)

	complete := s.cfg.RecompleteOnAttach || order.Status != models.StatusCompleted
	status := ""
	if complete {
		status = models.StatusCompleted
	}
	if err := s.orders.SetFiles(ctx, id, files, status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file list")
	}

	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if complete && s.notifier != nil {
		s.notifier.StatusChanged(*updated, models.StatusCompleted)
	}
	return &dto.UploadResult{Order: updated, SavedFiles: saved, RejectedFiles: rejected}, nil
}

// SendFilesToTelegram queues the order's stored files for delivery to the
// owner's registered chat. Files missing on disk are skipped; the result
// reports queued versus listed counts.
func (s *OrderService) SendFilesToTelegram(ctx context.Context, req dto.SendFilesRequest) (*dto.SendFilesResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "order_id and telegram are required")
	}
	order, err := s.Get(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}

	handle := models.NormalizeHandle(req.Telegram)
	if handle == "" || order.Student.Telegram != handle {
		return nil, appErrors.Clone(appErrors.ErrValidation, "order does not belong to this telegram handle")
	}
	if order.Student.ChatID == nil || *order.Student.ChatID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "chat is not registered, send /start to the bot first")
	}
	if len(order.Files) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "order has no files")
	}

	paths := make([]string, 0, len(order.Files))
	for _, filename := range order.Files {
		if s.store.Exists(req.OrderID, filename) {
			paths = append(paths, s.store.Path(req.OrderID, filename))
		}
	}
	if len(paths) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "files are missing on the server")
	}

	if s.notifier != nil {
		s.notifier.OrderFiles(*order, paths)
	}
	return &dto.SendFilesResult{
		Status:     "success",
		Message:    fmt.Sprintf("Отправка %d файлов в Telegram", len(paths)),
		SentCount:  len(paths),
		TotalFiles: len(order.Files),
	}, nil
}

// Download opens one stored file for streaming. The filename must be a
// member of the order's file list, not merely a path that exists.
func (s *OrderService) Download(ctx context.Context, id, filename string) (*FileDownload, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !containsFile(order.Files, filename) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	if !s.store.Exists(id, filename) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("file %s is missing on the server", filename))
	}
	file, err := s.store.Open(id, filename)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file")
	}
	return &FileDownload{
		File:        file,
		Filename:    filename,
		ContentType: storage.ContentTypeFor(filename),
	}, nil
}

// DownloadAll bundles every listed file that exists on disk into a zip named
// after the order title. Missing files are skipped.
func (s *OrderService) DownloadAll(ctx context.Context, id string) (*ArchiveDownload, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(order.Files) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "order has no files")
	}
	path, included, err := s.store.ZipToTemp(id, order.Files)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build archive")
	}
	title := storage.SanitizeTitle(order.Title)
	if title == "" {
		title = "files"
	}
	name := fmt.Sprintf("Заказ_%s_%s.zip", shortID(order.ID), title)
	return &ArchiveDownload{Path: path, Filename: name, Included: included}, nil
}

func (s *OrderService) upsertStudent(ctx context.Context, handle string, block dto.StudentBlock) (*models.Student, error) {
	student, err := s.students.FindByTelegram(ctx, handle)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up student")
		}
		student = &models.Student{Name: block.Name, GroupName: block.GroupName, Telegram: handle}
		if err := s.students.Create(ctx, student); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
		}
		return student, nil
	}
	if err := s.students.UpdateProfile(ctx, student.ID, block.Name, block.GroupName); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// resolveSubject finds the referenced catalog entry, or lazily provisions
// the shared custom-order placeholder when no subject was selected.
func (s *OrderService) resolveSubject(ctx context.Context, subjectID string) (*models.Subject, error) {
	if subjectID != "" {
		subject, err := s.subjects.FindByID(ctx, subjectID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("subject %s not found", subjectID))
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up subject")
		}
		return subject, nil
	}

	subject, err := s.subjects.FindByName(ctx, s.cfg.CustomSubjectName)
	if err == nil {
		return subject, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up custom subject")
	}
	subject = &models.Subject{
		Name:        s.cfg.CustomSubjectName,
		Description: "Индивидуальные заказы без привязки к каталогу",
		IsActive:    false,
	}
	if err := s.subjects.Create(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create custom subject")
	}
	return subject, nil
}

func (s *OrderService) generateDemoFiles(orderID string) ([]string, error) {
	docx, err := s.generator.DemoDocx(orderID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate demo document")
	}
	pdf, err := s.generator.DemoPDF(orderID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate demo pdf")
	}
	saved := make([]string, 0, 2)
	for _, item := range []struct {
		name string
		data []byte
	}{
		{"completed_work.docx", docx},
		{"report.pdf", pdf},
	} {
		name, err := s.store.SaveBytes(orderID, item.name, item.data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store demo file")
		}
		saved = append(saved, name)
	}
	return saved, nil
}

// acceptUpload validates and stores one upload, returning the stored name or
// a rejection reason.
func (s *OrderService) acceptUpload(orderID string, upload Upload) (string, string) {
	if upload.Filename == "" {
		return "", "filename is empty"
	}
	ext := strings.ToLower(filepath.Ext(upload.Filename))
	if _, ok := s.extSet[ext]; !ok {
		return "", fmt.Sprintf("extension %s is not allowed", ext)
	}
	if upload.Size > s.cfg.MaxFileSizeBytes {
		return "", fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSizeBytes)
	}
	name, err := s.store.Save(orderID, upload.Filename, upload.Content)
	if err != nil {
		s.logger.Sugar().Warnw("failed to store upload", "order_id", orderID, "filename", upload.Filename, "error", err)
		return "", "failed to store file"
	}
	return name, ""
}

func containsFile(files models.FileList, filename string) bool {
	for _, f := range files {
		if f == filename {
			return true
		}
	}
	return false
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
